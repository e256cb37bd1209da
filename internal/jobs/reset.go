// Package jobs runs background work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"learningly/internal/domain/usage"
	"learningly/internal/infra/logger"
	"learningly/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// runTimeout bounds a single scheduled reset pass.
const runTimeout = 5 * time.Minute

// ResetUsage resets every overdue usage record and counts the pass under
// trigger. Reservations older than one interval are dropped afterwards.
func ResetUsage(ctx context.Context, db *gorm.DB, now time.Time, s usage.Settings, trigger string) (int64, error) {
	n, err := usage.ResetDue(ctx, db, now, s)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.ResetsTotal.WithLabelValues(trigger).Add(float64(n))
	}
	if s.Interval > 0 {
		pruned, err := usage.PruneReservations(ctx, db, now.Add(-s.Interval))
		if err != nil {
			return n, err
		}
		if pruned > 0 {
			logger.Log.WithField("reservations", pruned).Debug("pruned stale usage reservations")
		}
	}
	return n, nil
}

// ResetScheduler refills usage counters independently of client reads.
type ResetScheduler struct {
	cron     *cron.Cron
	db       *gorm.DB
	settings func() usage.Settings
	now      func() time.Time
}

func NewResetScheduler(db *gorm.DB, settings func() usage.Settings) *ResetScheduler {
	return &ResetScheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		db:       db,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the reset on schedule (standard cron spec or descriptor
// such as "@hourly") and starts the scheduler goroutine.
func (s *ResetScheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("schedule usage reset %q: %w", schedule, err)
	}
	s.cron.Start()
	logger.Log.WithField("schedule", schedule).Info("usage reset scheduler started")
	return nil
}

// Stop waits for a running pass to finish or ctx to expire.
func (s *ResetScheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *ResetScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := s.now()
	n, err := ResetUsage(ctx, s.db, start, s.settings(), "schedule")
	entry := logger.Log.WithFields(logrus.Fields{
		"job":      "usage_reset",
		"records":  n,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Error("scheduled usage reset failed")
		return
	}
	entry.Info("scheduled usage reset finished")
}
