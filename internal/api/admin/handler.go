package admin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"learningly/database"
	"learningly/internal/domain/access"
	"learningly/internal/domain/billing"
	"learningly/internal/domain/usage"
	"learningly/internal/domain/users"
	"learningly/internal/infra/logger"
	"learningly/internal/jobs"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminUser struct {
	ID               uint               `json:"id"`
	Name             string             `json:"name"`
	Email            string             `json:"email"`
	Role             string             `json:"role"`
	AuthProvider     string             `json:"auth_provider"`
	StripeCustomerID *string            `json:"stripe_customer_id,omitempty"`
	Premium          bool               `json:"premium"`
	PlanID           *string            `json:"plan_id,omitempty"`
	QuotaState       *access.QuotaState `json:"quota_state,omitempty"`
	Usage            map[string]int     `json:"usage,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

type AdminPurchase struct {
	ID              uint       `json:"id"`
	Email           string     `json:"email"`
	PlanID          string     `json:"plan_id"`
	AmountCents     int64      `json:"amount_cents"`
	Currency        string     `json:"currency"`
	CouponCode      *string    `json:"coupon_code,omitempty"`
	FreeOrder       bool       `json:"free_order"`
	Status          string     `json:"status"`
	PaymentIntentID *string    `json:"payment_intent_id,omitempty"`
	GrantedAt       *time.Time `json:"granted_at,omitempty"`
	CreatedAt       string     `json:"created_at"`
}

type AdminStats struct {
	TotalUsers       int            `json:"total_users"`
	PremiumUsers     int            `json:"premium_users"`
	TotalRevenue     float64        `json:"total_revenue"`
	RecentRevenue    float64        `json:"recent_revenue"`
	FreeOrders       int            `json:"free_orders"`
	PurchasesByState map[string]int `json:"purchases_by_status"`
	UsersPerPlan     map[string]int `json:"users_per_plan"`
}

func toAdminUser(u users.User, rec *usage.Record, now time.Time) AdminUser {
	out := AdminUser{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             u.Role,
		AuthProvider:     u.AuthProvider,
		StripeCustomerID: u.StripeCustomerID,
		CreatedAt:        u.CreatedAt,
	}
	if rec != nil {
		state := access.ComputeQuotaState(now, *rec, usage.ConfiguredSettings())
		out.Premium = rec.Premium
		out.PlanID = rec.PlanID
		out.QuotaState = &state
		out.Usage = map[string]int{}
		for f, n := range rec.Counters() {
			out.Usage[string(f)] = n
		}
	}
	return out
}

func ListAllUsers(c *gin.Context) {
	var list []users.User
	if err := database.DB.Order("id").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	var records []usage.Record
	if err := database.DB.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}
	byUser := make(map[uint]*usage.Record, len(records))
	for i := range records {
		byUser[records[i].UserID] = &records[i]
	}

	now := time.Now().UTC()
	adminUsers := make([]AdminUser, 0, len(list))
	for _, u := range list {
		adminUsers = append(adminUsers, toAdminUser(u, byUser[u.ID], now))
	}

	c.JSON(http.StatusOK, adminUsers)
}

func ListAllPurchases(c *gin.Context) {
	type row struct {
		billing.Purchase
		Email string
	}
	var rows []row
	err := database.DB.Table("purchases").
		Select("purchases.*, users.email AS email").
		Joins("LEFT JOIN users ON users.id = purchases.user_id").
		Order("purchases.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load purchases"})
		return
	}

	result := make([]AdminPurchase, 0, len(rows))
	for _, p := range rows {
		result = append(result, AdminPurchase{
			ID:              p.ID,
			Email:           p.Email,
			PlanID:          p.PlanID,
			AmountCents:     p.AmountCents,
			Currency:        p.Currency,
			CouponCode:      p.CouponCode,
			FreeOrder:       p.FreeOrder,
			Status:          p.Status,
			PaymentIntentID: p.PaymentIntentID,
			GrantedAt:       p.GrantedAt,
			CreatedAt:       p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, result)
}

func GetAdminStats(c *gin.Context) {
	var stats AdminStats

	var totalUsers, premiumUsers, freeOrders int64
	var totalCents, recentCents int64

	type group struct {
		Grp   *string
		Count int
	}
	var byStatus, byPlan []group

	thirtyDaysAgo := time.Now().UTC().AddDate(0, 0, -30)
	queries := []*gorm.DB{
		database.DB.Model(&users.User{}).Count(&totalUsers),
		database.DB.Model(&usage.Record{}).Where("premium = ?", true).Count(&premiumUsers),
		database.DB.Model(&billing.Purchase{}).Where("free_order = ? AND status = ?", true, billing.StatusGranted).Count(&freeOrders),
		database.DB.Model(&billing.Purchase{}).
			Where("status = ?", billing.StatusGranted).
			Select("COALESCE(SUM(amount_cents), 0)").Scan(&totalCents),
		database.DB.Model(&billing.Purchase{}).
			Where("status = ? AND granted_at >= ?", billing.StatusGranted, thirtyDaysAgo).
			Select("COALESCE(SUM(amount_cents), 0)").Scan(&recentCents),
		database.DB.Model(&billing.Purchase{}).
			Select("status AS grp, COUNT(*) AS count").
			Group("status").
			Scan(&byStatus),
		database.DB.Model(&usage.Record{}).
			Select("plan_id AS grp, COUNT(*) AS count").
			Group("plan_id").
			Scan(&byPlan),
	}
	for _, q := range queries {
		if q.Error != nil {
			logger.Log.WithError(q.Error).Error("admin stats query")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
			return
		}
	}

	stats.TotalUsers = int(totalUsers)
	stats.PremiumUsers = int(premiumUsers)
	stats.FreeOrders = int(freeOrders)
	stats.TotalRevenue = float64(totalCents) / 100
	stats.RecentRevenue = float64(recentCents) / 100

	stats.PurchasesByState = map[string]int{}
	for _, g := range byStatus {
		if g.Grp != nil {
			stats.PurchasesByState[*g.Grp] = g.Count
		}
	}

	stats.UsersPerPlan = map[string]int{}
	for _, g := range byPlan {
		name := "free"
		if g.Grp != nil {
			name = *g.Grp
		}
		stats.UsersPerPlan[name] = g.Count
	}

	c.JSON(http.StatusOK, stats)
}

func GetUserDetails(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	userID := uint(id)
	ctx := c.Request.Context()

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	rec, err := usage.Get(ctx, database.DB, userID)
	if err != nil && !errors.Is(err, usage.ErrNoRecord) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch usage"})
		return
	}

	purchases, err := billing.History(ctx, database.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch purchases"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":      toAdminUser(user, rec, time.Now().UTC()),
		"purchases": purchases,
	})
}

// POST /admin/usage/reset runs the overdue reset immediately.
func TriggerUsageReset(c *gin.Context) {
	n, err := jobs.ResetUsage(c.Request.Context(), database.DB, time.Now().UTC(), usage.ConfiguredSettings(), "admin")
	if err != nil {
		logger.Log.WithError(err).Error("admin usage reset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset usage"})
		return
	}
	logger.Log.WithField("admin_id", c.GetUint("user_id")).WithField("records", n).Info("usage reset triggered")
	c.JSON(http.StatusOK, gin.H{"reset": n})
}
