package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"learningly/database"
	"learningly/internal/dbtest"
	"learningly/internal/domain/billing"
	"learningly/internal/domain/usage"
	"learningly/internal/domain/users"
	"learningly/internal/infra/stripe"
	"learningly/internal/infra/stripe/stripetest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	r    *gin.Engine
	gw   *stripetest.Fake
	user users.User
}

func setup(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	database.DB = dbtest.Open(t, &users.User{}, &usage.Record{}, &billing.Purchase{})

	u := users.User{Name: "Lin", Email: "lin@example.com", Role: users.RoleUser, AuthProvider: users.ProviderLocal}
	require.NoError(t, database.DB.Create(&u).Error)

	gw := stripetest.New()
	stripe.Client = gw

	r := gin.New()
	r.POST("/billing/quote", Quote)
	authed := r.Group("/", func(c *gin.Context) { c.Set("user_id", u.ID) })
	authed.POST("/billing/payment-intent", CreatePaymentIntent)
	authed.POST("/billing/confirm", ConfirmPayment)
	authed.GET("/billing/purchases", GetPurchaseHistory)

	return &env{r: r, gw: gw, user: u}
}

func (e *env) post(path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestQuote(t *testing.T) {
	e := setup(t)

	w := e.post("/billing/quote", `{"plan_id":"basic_monthly","coupon_code":"STUDENT25"}`)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.EqualValues(t, 374, out["charge_cents"])
	assert.Equal(t, false, out["is_free_order"])

	w = e.post("/billing/quote", `{"plan_id":"basic_monthly","coupon_code":"NOPE"}`)
	require.Equal(t, http.StatusOK, w.Code)
	out = decode(t, w)
	assert.EqualValues(t, 499, out["charge_cents"])
	assert.Equal(t, "NOPE", out["ignored_coupon"])

	assert.Equal(t, http.StatusBadRequest, e.post("/billing/quote", `{"plan_id":"gold"}`).Code)
	assert.Equal(t, http.StatusBadRequest, e.post("/billing/quote", `{}`).Code)
}

func TestPaymentIntentFlow(t *testing.T) {
	e := setup(t)

	w := e.post("/billing/payment-intent", `{"plan_id":"basic_monthly","coupon_code":"SAVE2"}`, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "pi_test_1_secret", out["client_secret"])
	assert.EqualValues(t, 299, out["amount_cents"])
	assert.Equal(t, "usd", out["currency"])
	assert.Equal(t, "order-1", out["idempotency_key"])

	w = e.post("/billing/confirm", `{"payment_intent_id":"pi_test_1"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "unpaid intent")

	e.gw.Succeed("pi_test_1")

	w = e.post("/billing/confirm", `{"payment_intent_id":"pi_test_1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["applied"])

	w = e.post("/billing/confirm", `{"payment_intent_id":"pi_test_1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["applied"])

	rec, err := usage.Get(context.Background(), database.DB, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, rec.Quiz)
	assert.True(t, rec.Premium)

	hw := httptest.NewRecorder()
	e.r.ServeHTTP(hw, httptest.NewRequest(http.MethodGet, "/billing/purchases", nil))
	require.Equal(t, http.StatusOK, hw.Code)
	purchases := decode(t, hw)["purchases"].([]interface{})
	require.Len(t, purchases, 1)
	assert.Equal(t, billing.StatusGranted, purchases[0].(map[string]interface{})["status"])
}

func TestPaymentIntentGeneratesKey(t *testing.T) {
	e := setup(t)

	w := e.post("/billing/payment-intent", `{"plan_id":"pro_monthly"}`)
	require.Equal(t, http.StatusOK, w.Code)
	key, _ := decode(t, w)["idempotency_key"].(string)
	assert.Len(t, key, 36)
	require.Len(t, e.gw.Requests, 1)
	assert.Equal(t, key, e.gw.Requests[0].IdempotencyKey)
}

func TestFreeOrderGrantsImmediately(t *testing.T) {
	e := setup(t)

	w := e.post("/billing/payment-intent", `{"plan_id":"basic_monthly","coupon_code":"SPS2025"}`)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, true, out["free_order"])
	assert.Equal(t, true, out["applied"])
	assert.Nil(t, out["client_secret"])
	assert.Empty(t, e.gw.Requests)

	rec, err := usage.Get(context.Background(), database.DB, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, rec.Quiz)
}

func TestPaymentInitFailureIs502(t *testing.T) {
	e := setup(t)
	e.gw.CreateErr = errors.New("stripe down")

	w := e.post("/billing/payment-intent", `{"plan_id":"basic_monthly"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "payment initialization failed", decode(t, w)["error"])
}

func TestConfirmLookupFailureIs502(t *testing.T) {
	e := setup(t)
	e.gw.GetErr = errors.New("stripe down")

	w := e.post("/billing/confirm", `{"payment_intent_id":"pi_123"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "payment lookup failed", decode(t, w)["error"])
}

func TestConfirmForeignIntentIs403(t *testing.T) {
	e := setup(t)
	e.gw.Intents["pi_other"] = &stripe.Intent{
		ID:     "pi_other",
		Status: "succeeded",
		Metadata: map[string]string{
			billing.MetaUserID: "999",
			billing.MetaPlanID: "basic_monthly",
		},
	}

	assert.Equal(t, http.StatusForbidden, e.post("/billing/confirm", `{"payment_intent_id":"pi_other"}`).Code)
	assert.Equal(t, http.StatusBadRequest, e.post("/billing/confirm", `{"payment_intent_id":"cs_123"}`).Code)
}
