package plans

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"learningly/internal/domain/plans"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPlans(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/plans", ListPlans)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plans", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Plans []plans.Plan `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Plans, len(plans.Catalog))
	assert.Equal(t, "basic_monthly", out.Plans[0].ID)
	assert.Equal(t, 50, out.Plans[0].Limits[plans.FeatureQuiz])
}
