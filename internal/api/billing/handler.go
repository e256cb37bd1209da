package billing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"learningly/database"
	"learningly/internal/domain/billing"
	"learningly/internal/domain/plans"
	"learningly/internal/domain/pricing"
	"learningly/internal/domain/usage"
	"learningly/internal/domain/users"
	"learningly/internal/infra/logger"
	"learningly/internal/infra/metrics"
	"learningly/internal/infra/stripe"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// processorTimeout bounds every call that reaches Stripe.
var processorTimeout = 30 * time.Second

const maxIdempotencyKeyLen = 255

type purchaseRequest struct {
	PlanID     string `json:"plan_id" binding:"required"`
	CouponCode string `json:"coupon_code"`
}

func quoteFor(c *gin.Context) (*plans.Plan, pricing.Quote, bool) {
	var body purchaseRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid plan_id"})
		return nil, pricing.Quote{}, false
	}

	plan, err := plans.Lookup(body.PlanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan"})
		return nil, pricing.Quote{}, false
	}

	q, err := pricing.Calculate(plan, body.CouponCode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, pricing.Quote{}, false
	}
	return plan, q, true
}

// POST /billing/quote
func Quote(c *gin.Context) {
	_, q, ok := quoteFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, q)
}

// POST /billing/payment-intent
func CreatePaymentIntent(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	plan, q, ok := quoteFor(c)
	if !ok {
		return
	}

	key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if key == "" {
		key = uuid.NewString()
	}
	if len(key) > maxIdempotencyKeyLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key too long"})
		return
	}

	var user users.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	log := logger.ForUser(userID).WithFields(logrus.Fields{
		"plan_id":         plan.ID,
		"idempotency_key": key,
	})

	ctx, cancel := context.WithTimeout(c.Request.Context(), processorTimeout)
	defer cancel()

	res, err := billing.Initiate(ctx, database.DB, stripe.Client, &user, plan, q, key)
	switch {
	case errors.Is(err, billing.ErrIdempotencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, billing.ErrPaymentInit):
		metrics.PaymentIntentsTotal.WithLabelValues("failed").Inc()
		log.WithError(err).Warn("payment intent creation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": billing.ErrPaymentInit.Error()})
		return
	case err != nil:
		metrics.PaymentIntentsTotal.WithLabelValues("failed").Inc()
		log.WithError(err).Error("initiate purchase")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start purchase"})
		return
	}

	if res.FreeOrder {
		metrics.PaymentIntentsTotal.WithLabelValues("free_order").Inc()
		outcome := "duplicate"
		if res.Applied {
			outcome = "applied"
			publish(c, userID)
		}
		metrics.GrantsTotal.WithLabelValues("free_order", outcome).Inc()
		log.WithField("applied", res.Applied).Info("free order granted")

		c.JSON(http.StatusOK, gin.H{
			"free_order":      true,
			"applied":         res.Applied,
			"purchase":        res.Purchase,
			"idempotency_key": key,
		})
		return
	}

	if res.PaymentIntentID == "" {
		// Key already granted by an earlier request.
		c.JSON(http.StatusOK, gin.H{
			"free_order":      res.FreeOrder,
			"applied":         false,
			"purchase":        res.Purchase,
			"idempotency_key": key,
		})
		return
	}

	metrics.PaymentIntentsTotal.WithLabelValues("created").Inc()
	log.WithField("payment_intent", res.PaymentIntentID).Info("payment intent created")

	c.JSON(http.StatusOK, gin.H{
		"free_order":        false,
		"client_secret":     res.ClientSecret,
		"payment_intent_id": res.PaymentIntentID,
		"amount_cents":      q.ChargeCents,
		"currency":          plan.Currency,
		"idempotency_key":   key,
		"quote":             q,
	})
}

// POST /billing/confirm credits a PaymentIntent the client reports as paid.
func ConfirmPayment(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var body struct {
		PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !strings.HasPrefix(body.PaymentIntentID, "pi_") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid payment_intent_id"})
		return
	}

	log := logger.ForUser(userID).WithField("payment_intent", body.PaymentIntentID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), processorTimeout)
	defer cancel()

	p, applied, err := billing.Confirm(ctx, database.DB, stripe.Client, userID, body.PaymentIntentID)
	switch {
	case errors.Is(err, billing.ErrForeignPaymentIntent):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, billing.ErrPaymentNotSucceeded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, billing.ErrMissingMetadata), errors.Is(err, plans.ErrInvalidPlan):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, billing.ErrIdempotencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, billing.ErrPaymentLookup):
		log.WithError(err).Warn("payment intent lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": billing.ErrPaymentLookup.Error()})
		return
	case err != nil:
		metrics.GrantsTotal.WithLabelValues("confirm", "error").Inc()
		// The charge may have succeeded; the webhook or a retried confirm applies it later.
		log.WithError(err).Error("payment confirmed but grant failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply purchase"})
		return
	}

	outcome := "duplicate"
	if applied {
		outcome = "applied"
		publish(c, userID)
		log.WithField("plan_id", p.PlanID).Info("purchase granted")
	}
	metrics.GrantsTotal.WithLabelValues("confirm", outcome).Inc()

	c.JSON(http.StatusOK, gin.H{"applied": applied, "purchase": p})
}

// GET /billing/purchases
func GetPurchaseHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	list, err := billing.History(c.Request.Context(), database.DB, userID)
	if err != nil {
		logger.ForUser(userID).WithError(err).Error("load purchase history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load purchases"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": list})
}

func publish(c *gin.Context, userID uint) {
	if _, err := usage.Publish(c.Request.Context(), database.DB, userID); err != nil {
		logger.ForUser(userID).WithError(err).Warn("publish usage update")
	}
}
