package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learningly/internal/domain/plans"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Get loads the usage record for userID.
func Get(ctx context.Context, db *gorm.DB, userID uint) (*Record, error) {
	var rec Record
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("load usage record: %w", err)
	}
	return &rec, nil
}

// Ensure creates the record at the baseline when the user has none yet.
func Ensure(ctx context.Context, db *gorm.DB, userID uint, s Settings, now time.Time) error {
	rec := Record{UserID: userID, LastResetAt: now}
	rec.setAll(s.Baseline)

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("ensure usage record: %w", err)
	}
	return nil
}

// Credit adds every limit of plan to the user's counters in one upsert, marks
// the user premium and stamps the plan and payment reference. A missing
// record counts as zero. Credit is additive and not idempotent: two calls
// grant twice. Use billing.ApplyPurchase for exactly-once grants.
func Credit(ctx context.Context, db *gorm.DB, userID uint, plan *plans.Plan, paymentRef string, now time.Time) error {
	if plan == nil {
		return plans.ErrInvalidPlan
	}
	planID := plan.ID

	rec := Record{
		UserID:       userID,
		Premium:      true,
		PlanID:       &planID,
		SubscribedAt: &now,
		LastResetAt:  now,
	}
	updates := map[string]interface{}{
		"premium":       true,
		"plan_id":       planID,
		"subscribed_at": now,
		"updated_at":    now,
	}
	if paymentRef != "" {
		rec.LastPaymentIntent = &paymentRef
		updates["last_payment_intent"] = paymentRef
	}

	for f, n := range plan.Limits {
		col, err := column(f)
		if err != nil {
			return fmt.Errorf("plan %s: %w: %s", plan.ID, err, f)
		}
		*rec.counter(f) = n
		updates[col] = gorm.Expr(fmt.Sprintf("%s.%s + excluded.%s", tableName, col, col))
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(updates),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("credit usage record: %w", err)
	}
	return nil
}
