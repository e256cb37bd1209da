package usage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"learningly/database"
	"learningly/internal/domain/access"
	"learningly/internal/domain/plans"
	"learningly/internal/domain/usage"
	"learningly/internal/infra/logger"
	"learningly/internal/infra/metrics"

	"github.com/gin-gonic/gin"
)

// streamHeartbeat keeps idle SSE connections open through proxies.
var streamHeartbeat = 25 * time.Second

type usageResponse struct {
	Usage         map[plans.Feature]int `json:"usage"`
	Policy        access.Policy         `json:"policy"`
	Record        usage.Record          `json:"record"`
	ReservationID string                `json:"reservation_id,omitempty"`
}

func newResponse(rec *usage.Record, now time.Time) usageResponse {
	return usageResponse{
		Usage:  rec.Counters(),
		Policy: access.ComputePolicy(now, *rec, usage.ConfiguredSettings()),
		Record: *rec,
	}
}

func respond(c *gin.Context, status int, rec *usage.Record, now time.Time) {
	c.JSON(status, newResponse(rec, now))
}

// GET /usage
func GetUsage(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}
	ctx := c.Request.Context()
	now := time.Now().UTC()
	s := usage.ConfiguredSettings()
	log := logger.ForUser(userID)

	if err := usage.Ensure(ctx, database.DB, userID, s, now); err != nil {
		log.WithError(err).Error("ensure usage record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}

	reset, err := usage.ResetIfDue(ctx, database.DB, userID, now, s)
	if err != nil {
		log.WithError(err).Error("lazy usage reset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}
	if reset {
		metrics.ResetsTotal.WithLabelValues("read").Inc()
		log.Info("usage counters reset to baseline")
	}

	rec, err := usage.Publish(ctx, database.DB, userID)
	if err != nil {
		log.WithError(err).Error("load usage record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}
	respond(c, http.StatusOK, rec, now)
}

// GET /usage/stream sends the current record, then every change, as SSE.
func StreamUsage(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	updates, cancel := usage.Updates.Subscribe(userID)
	defer cancel()

	// Publishing after subscribing delivers the current record as the first event.
	if _, err := usage.Publish(c.Request.Context(), database.DB, userID); err != nil && !errors.Is(err, usage.ErrNoRecord) {
		logger.ForUser(userID).WithError(err).Warn("prime usage stream")
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case rec, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("usage", newResponse(&rec, time.Now().UTC()))
			return true
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			return true
		}
	})
}

func featureParam(c *gin.Context) (plans.Feature, bool) {
	f, ok := plans.ParseFeature(c.Param("feature"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown feature"})
		return "", false
	}
	return f, true
}

// POST /usage/:feature/consume reserves one unit before the feature runs.
func Consume(c *gin.Context) {
	userID := c.GetUint("user_id")
	f, ok := featureParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	now := time.Now().UTC()
	log := logger.ForUser(userID).WithField("feature", f)

	reservation, err := usage.Consume(ctx, database.DB, userID, f, usage.ConfiguredSettings(), now)
	switch {
	case errors.Is(err, usage.ErrQuotaExhausted):
		metrics.ConsumeTotal.WithLabelValues(string(f), "exhausted").Inc()
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Usage quota exhausted", "feature": f})
		return
	case err != nil:
		metrics.ConsumeTotal.WithLabelValues(string(f), "error").Inc()
		log.WithError(err).Error("consume usage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update usage"})
		return
	}
	metrics.ConsumeTotal.WithLabelValues(string(f), "ok").Inc()

	rec, err := usage.Publish(ctx, database.DB, userID)
	if err != nil {
		log.WithError(err).Error("publish usage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}
	out := newResponse(rec, now)
	out.ReservationID = reservation.ID
	c.JSON(http.StatusOK, out)
}

// POST /usage/:feature/decrement records a completed use. Counters at zero stay at zero.
func Decrement(c *gin.Context) {
	userID := c.GetUint("user_id")
	f, ok := featureParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	log := logger.ForUser(userID).WithField("feature", f)

	changed, err := usage.Decrement(ctx, database.DB, userID, f)
	if err != nil {
		metrics.ConsumeTotal.WithLabelValues(string(f), "error").Inc()
		log.WithError(err).Error("decrement usage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update usage"})
		return
	}
	if !changed {
		metrics.ConsumeTotal.WithLabelValues(string(f), "noop").Inc()
		c.JSON(http.StatusOK, gin.H{"decremented": false})
		return
	}
	metrics.ConsumeTotal.WithLabelValues(string(f), "ok").Inc()

	rec, err := usage.Publish(ctx, database.DB, userID)
	if err != nil {
		log.WithError(err).Error("publish usage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decremented": true, "usage": rec.Counters()})
}

// POST /usage/:feature/refund returns the unit held by a reservation from consume.
func Refund(c *gin.Context) {
	userID := c.GetUint("user_id")
	f, ok := featureParam(c)
	if !ok {
		return
	}

	var body struct {
		ReservationID string `json:"reservation_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing reservation_id"})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	log := logger.ForUser(userID).WithField("feature", f)

	credited, err := usage.Refund(ctx, database.DB, userID, f, body.ReservationID, now)
	if errors.Is(err, usage.ErrNoReservation) {
		c.JSON(http.StatusConflict, gin.H{"error": "No open reservation to refund"})
		return
	}
	if err != nil {
		log.WithError(err).Error("refund usage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update usage"})
		return
	}
	result := "refund"
	if !credited {
		result = "refund_after_reset"
	}
	metrics.ConsumeTotal.WithLabelValues(string(f), result).Inc()

	rec, err := usage.Publish(ctx, database.DB, userID)
	if err != nil {
		log.WithError(err).Error("publish usage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}
	respond(c, http.StatusOK, rec, now)
}
