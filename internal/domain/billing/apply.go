package billing

import (
	"context"
	"fmt"
	"time"

	"learningly/internal/domain/plans"
	"learningly/internal/domain/usage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyPurchase credits plan to the purchase's user exactly once per
// idempotency key. The purchase row, its pending->granted flip and the usage
// credit commit together. It reports whether this call did the grant.
func ApplyPurchase(ctx context.Context, db *gorm.DB, p *Purchase, plan *plans.Plan) (bool, error) {
	if p == nil || p.IdempotencyKey == "" {
		return false, fmt.Errorf("apply purchase: missing idempotency key")
	}
	if plan == nil || plan.ID != p.PlanID {
		return false, plans.ErrInvalidPlan
	}

	now := time.Now().UTC()
	applied := false

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := *p
		row.ID = 0
		row.Status = StatusPending
		row.GrantedAt = nil
		// The intent id is attached by the grant below, so the insert can only
		// conflict on the idempotency key.
		row.PaymentIntentID = nil
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("record purchase: %w", err)
		}

		var stored Purchase
		if err := tx.Where("idempotency_key = ?", p.IdempotencyKey).First(&stored).Error; err != nil {
			return fmt.Errorf("load purchase: %w", err)
		}
		if stored.UserID != p.UserID || stored.PlanID != p.PlanID {
			return ErrIdempotencyConflict
		}

		updates := map[string]interface{}{
			"status":     StatusGranted,
			"granted_at": now,
			"updated_at": now,
		}
		if p.PaymentIntentID != nil {
			updates["payment_intent_id"] = *p.PaymentIntentID
		}
		res := tx.Model(&Purchase{}).
			Where("id = ? AND status <> ?", stored.ID, StatusGranted).
			UpdateColumns(updates)
		if res.Error != nil {
			return fmt.Errorf("mark purchase granted: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			*p = stored
			return nil
		}

		ref := ""
		if p.PaymentIntentID != nil {
			ref = *p.PaymentIntentID
		}
		if err := usage.Credit(ctx, tx, p.UserID, plan, ref, now); err != nil {
			return err
		}

		stored.Status = StatusGranted
		stored.GrantedAt = &now
		if p.PaymentIntentID != nil {
			stored.PaymentIntentID = p.PaymentIntentID
		}
		*p = stored
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// MarkFailed flags a still-pending purchase as failed. Granted purchases are left alone.
func MarkFailed(ctx context.Context, db *gorm.DB, idempotencyKey string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&Purchase{}).
		Where("idempotency_key = ? AND status = ?", idempotencyKey, StatusPending).
		UpdateColumns(map[string]interface{}{
			"status":     StatusFailed,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark purchase failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// History lists a user's purchases, newest first.
func History(ctx context.Context, db *gorm.DB, userID uint) ([]Purchase, error) {
	var out []Purchase
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("load purchases: %w", err)
	}
	return out, nil
}
