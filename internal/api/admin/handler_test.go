package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learningly/config"
	"learningly/database"
	"learningly/internal/dbtest"
	"learningly/internal/domain/billing"
	"learningly/internal/domain/plans"
	"learningly/internal/domain/usage"
	"learningly/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*gin.Engine, users.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.DEFAULT_FEATURE_QUOTA = 5
	config.RESET_INTERVAL = 30 * 24 * time.Hour
	database.DB = dbtest.Open(t, &users.User{}, &usage.Record{}, &usage.Reservation{}, &billing.Purchase{})

	u := users.User{Name: "Kim", Email: "kim@example.com", Role: users.RoleUser, AuthProvider: users.ProviderLocal}
	require.NoError(t, database.DB.Create(&u).Error)
	plan, err := plans.Lookup("basic_monthly")
	require.NoError(t, err)
	_, err = billing.ApplyPurchase(context.Background(), database.DB, &billing.Purchase{
		UserID: u.ID, PlanID: plan.ID, IdempotencyKey: "k", AmountCents: 374, Currency: "usd",
	}, plan)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/admin/users", ListAllUsers)
	r.GET("/admin/purchases", ListAllPurchases)
	r.GET("/admin/stats", GetAdminStats)
	r.GET("/admin/user/:id", GetUserDetails)
	r.POST("/admin/usage/reset", TriggerUsageReset)
	return r, u
}

func get(t *testing.T, r *gin.Engine, method, path string, out interface{}) int {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w.Code
}

func TestListUsersIncludesUsage(t *testing.T) {
	r, u := setup(t)

	var list []AdminUser
	require.Equal(t, http.StatusOK, get(t, r, http.MethodGet, "/admin/users", &list))
	require.Len(t, list, 1)
	assert.Equal(t, u.Email, list[0].Email)
	assert.True(t, list[0].Premium)
	assert.Equal(t, 50, list[0].Usage["quiz"])
}

func TestListPurchasesJoinsEmail(t *testing.T) {
	r, u := setup(t)

	var list []AdminPurchase
	require.Equal(t, http.StatusOK, get(t, r, http.MethodGet, "/admin/purchases", &list))
	require.Len(t, list, 1)
	assert.Equal(t, u.Email, list[0].Email)
	assert.Equal(t, billing.StatusGranted, list[0].Status)
	assert.EqualValues(t, 374, list[0].AmountCents)
}

func TestStats(t *testing.T) {
	r, _ := setup(t)

	var stats AdminStats
	require.Equal(t, http.StatusOK, get(t, r, http.MethodGet, "/admin/stats", &stats))
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 1, stats.PremiumUsers)
	assert.InDelta(t, 3.74, stats.TotalRevenue, 0.001)
	assert.Equal(t, 1, stats.PurchasesByState[billing.StatusGranted])
	assert.Equal(t, 1, stats.UsersPerPlan["basic_monthly"])
}

func TestStatsFailsOnQueryError(t *testing.T) {
	r, _ := setup(t)
	require.NoError(t, database.DB.Migrator().DropTable(&billing.Purchase{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to load stats"}`, w.Body.String())
}

func TestUserDetails(t *testing.T) {
	r, u := setup(t)

	assert.Equal(t, http.StatusBadRequest, get(t, r, http.MethodGet, "/admin/user/abc", nil))
	assert.Equal(t, http.StatusNotFound, get(t, r, http.MethodGet, "/admin/user/999", nil))

	var out struct {
		User      AdminUser          `json:"user"`
		Purchases []billing.Purchase `json:"purchases"`
	}
	require.Equal(t, http.StatusOK, get(t, r, http.MethodGet, "/admin/user/1", &out))
	assert.Equal(t, u.ID, out.User.ID)
	assert.Len(t, out.Purchases, 1)
}

func TestTriggerUsageReset(t *testing.T) {
	r, u := setup(t)
	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	require.NoError(t, database.DB.Model(&usage.Record{}).Where("user_id = ?", u.ID).Update("last_reset_at", old).Error)

	var out map[string]int
	require.Equal(t, http.StatusOK, get(t, r, http.MethodPost, "/admin/usage/reset", &out))
	assert.Equal(t, 1, out["reset"])

	rec, err := usage.Get(context.Background(), database.DB, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quiz)
}
