package stripewebhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learningly/config"
	"learningly/database"
	"learningly/internal/dbtest"
	"learningly/internal/domain/billing"
	"learningly/internal/domain/usage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.STRIPE_WEBHOOK_SECRET = testSecret
	database.DB = dbtest.Open(t, &usage.Record{}, &billing.Purchase{})

	r := gin.New()
	r.POST("/webhook", StripeWebhook)
	return r
}

func event(t *testing.T, typ string, object map[string]interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{
		"id":          "evt_" + typ,
		"object":      "event",
		"type":        typ,
		"api_version": "2023-08-16",
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return b
}

func send(r *gin.Engine, payload []byte, secret string) *httptest.ResponseRecorder {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func intent(status string) map[string]interface{} {
	return map[string]interface{}{
		"id":       "pi_hook_1",
		"object":   "payment_intent",
		"status":   status,
		"amount":   499,
		"currency": "usd",
		"metadata": map[string]string{
			billing.MetaUserID:         "5",
			billing.MetaPlanID:         "basic_monthly",
			billing.MetaProductID:      "prod_learningly_basic",
			billing.MetaIdempotencyKey: "hook-key",
		},
	}
}

func TestRejectsBadSignature(t *testing.T) {
	r := setup(t)
	w := send(r, event(t, "payment_intent.succeeded", intent("succeeded")), "whsec_wrong")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSucceededGrantsOnce(t *testing.T) {
	r := setup(t)
	payload := event(t, "payment_intent.succeeded", intent("succeeded"))

	require.Equal(t, http.StatusOK, send(r, payload, testSecret).Code)
	require.Equal(t, http.StatusOK, send(r, payload, testSecret).Code)

	rec, err := usage.Get(context.Background(), database.DB, 5)
	require.NoError(t, err)
	assert.Equal(t, 50, rec.Quiz)
	require.NotNil(t, rec.LastPaymentIntent)
	assert.Equal(t, "pi_hook_1", *rec.LastPaymentIntent)

	var p billing.Purchase
	require.NoError(t, database.DB.Where("idempotency_key = ?", "hook-key").First(&p).Error)
	assert.Equal(t, billing.StatusGranted, p.Status)
}

func TestSucceededWithoutMetadataIsAcknowledged(t *testing.T) {
	r := setup(t)
	obj := intent("succeeded")
	obj["metadata"] = map[string]string{}

	assert.Equal(t, http.StatusOK, send(r, event(t, "payment_intent.succeeded", obj), testSecret).Code)
	var count int64
	require.NoError(t, database.DB.Model(&billing.Purchase{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFailedMarksPendingPurchase(t *testing.T) {
	r := setup(t)
	require.NoError(t, database.DB.Create(&billing.Purchase{
		UserID: 5, PlanID: "basic_monthly", IdempotencyKey: "hook-key", Currency: "usd", Status: billing.StatusPending,
	}).Error)

	obj := intent("requires_payment_method")
	obj["last_payment_error"] = map[string]interface{}{"message": "Your card was declined."}
	require.Equal(t, http.StatusOK, send(r, event(t, "payment_intent.payment_failed", obj), testSecret).Code)

	var p billing.Purchase
	require.NoError(t, database.DB.Where("idempotency_key = ?", "hook-key").First(&p).Error)
	assert.Equal(t, billing.StatusFailed, p.Status)

	_, err := usage.Get(context.Background(), database.DB, 5)
	assert.ErrorIs(t, err, usage.ErrNoRecord)
}

func TestUnknownEventIgnored(t *testing.T) {
	r := setup(t)
	w := send(r, event(t, "customer.created", map[string]interface{}{"id": "cus_1", "object": "customer"}), testSecret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ignored"}`, w.Body.String())
}
