package stripewebhooks

import (
	"errors"

	"learningly/database"
	"learningly/internal/domain/billing"
	"learningly/internal/domain/plans"
	"learningly/internal/domain/usage"
	"learningly/internal/infra/logger"
	"learningly/internal/infra/metrics"
	"learningly/internal/infra/stripe"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	stripego "github.com/stripe/stripe-go/v75"
)

func handlePaymentSucceeded(c *gin.Context, pi *stripego.PaymentIntent) error {
	intent := stripe.FromPaymentIntent(pi)
	ctx := c.Request.Context()

	p, applied, err := billing.Complete(ctx, database.DB, intent, 0)
	if errors.Is(err, billing.ErrMissingMetadata) || errors.Is(err, plans.ErrInvalidPlan) || errors.Is(err, billing.ErrIdempotencyConflict) {
		// Not one of ours or not recoverable by a retry; acknowledge.
		logger.Log.WithError(err).WithField("payment_intent", pi.ID).Warn("skipping payment intent")
		metrics.GrantsTotal.WithLabelValues("webhook", "skipped").Inc()
		return nil
	}
	if err != nil {
		metrics.GrantsTotal.WithLabelValues("webhook", "error").Inc()
		return err
	}

	log := logger.ForUser(p.UserID).WithFields(logrus.Fields{
		"plan_id":        p.PlanID,
		"payment_intent": pi.ID,
	})
	if !applied {
		metrics.GrantsTotal.WithLabelValues("webhook", "duplicate").Inc()
		log.Debug("payment intent already granted")
		return nil
	}

	metrics.GrantsTotal.WithLabelValues("webhook", "applied").Inc()
	log.Info("purchase granted from webhook")
	if _, err := usage.Publish(ctx, database.DB, p.UserID); err != nil {
		log.WithError(err).Warn("publish usage update")
	}
	return nil
}

func handlePaymentFailed(c *gin.Context, pi *stripego.PaymentIntent) error {
	key := pi.Metadata[billing.MetaIdempotencyKey]
	if key == "" {
		return nil
	}

	changed, err := billing.MarkFailed(c.Request.Context(), database.DB, key)
	if err != nil {
		return err
	}
	if changed {
		entry := logger.Log.WithField("payment_intent", pi.ID)
		if pi.LastPaymentError != nil {
			entry = entry.WithField("reason", pi.LastPaymentError.Msg)
		}
		entry.Info("payment failed")
	}
	return nil
}
