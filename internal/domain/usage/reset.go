package usage

import (
	"context"
	"fmt"
	"time"

	"learningly/internal/domain/plans"

	"gorm.io/gorm"
)

// NextResetAt is when a record reset last at lastReset becomes due.
func NextResetAt(lastReset time.Time, s Settings) time.Time {
	return lastReset.Add(s.Interval)
}

// IsResetDue reports whether the interval has fully elapsed since lastReset.
func IsResetDue(now, lastReset time.Time, s Settings) bool {
	if s.Interval <= 0 {
		return false
	}
	return !now.Before(NextResetAt(lastReset, s))
}

// ResetIfDue restores the user's counters to the baseline when the reset
// interval has elapsed. It reports whether a reset was written.
func ResetIfDue(ctx context.Context, db *gorm.DB, userID uint, now time.Time, s Settings) (bool, error) {
	if s.Interval <= 0 {
		return false, nil
	}
	res := db.WithContext(ctx).
		Model(&Record{}).
		Where("user_id = ? AND last_reset_at <= ?", userID, now.Add(-s.Interval)).
		UpdateColumns(baselineUpdates(s.Baseline, now))
	if res.Error != nil {
		return false, fmt.Errorf("reset usage record: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ResetDue resets every overdue record and returns how many were touched.
func ResetDue(ctx context.Context, db *gorm.DB, now time.Time, s Settings) (int64, error) {
	if s.Interval <= 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&Record{}).
		Where("last_reset_at <= ?", now.Add(-s.Interval)).
		UpdateColumns(baselineUpdates(s.Baseline, now))
	if res.Error != nil {
		return 0, fmt.Errorf("reset due usage records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func baselineUpdates(baseline int, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{
		"last_reset_at": now,
		"updated_at":    now,
	}
	for _, f := range plans.Features {
		updates[string(f)] = baseline
	}
	return updates
}
