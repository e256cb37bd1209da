package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learningly/internal/domain/plans"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Decrement lowers the counter for f by one. A missing record or a counter
// already at zero is a no-op and reports false.
func Decrement(ctx context.Context, db *gorm.DB, userID uint, f plans.Feature) (bool, error) {
	col, err := column(f)
	if err != nil {
		return false, err
	}

	res := db.WithContext(ctx).
		Model(&Record{}).
		Where("user_id = ? AND "+col+" > 0", userID).
		UpdateColumns(map[string]interface{}{
			col:          gorm.Expr(col + " - 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("decrement %s: %w", col, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Consume reserves one unit of f before the feature runs and returns the
// reservation that Refund can give back. It returns ErrQuotaExhausted when
// nothing is left.
func Consume(ctx context.Context, db *gorm.DB, userID uint, f plans.Feature, s Settings, now time.Time) (*Reservation, error) {
	if _, err := column(f); err != nil {
		return nil, err
	}

	var out *Reservation
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := Ensure(ctx, tx, userID, s, now); err != nil {
			return err
		}
		ok, err := Decrement(ctx, tx, userID, f)
		if err != nil {
			return err
		}
		if !ok {
			return ErrQuotaExhausted
		}

		r := Reservation{
			ID:        uuid.NewString(),
			UserID:    userID,
			Feature:   f,
			CreatedAt: now,
		}
		if err := tx.Create(&r).Error; err != nil {
			return fmt.Errorf("record reservation: %w", err)
		}
		out = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Refund gives back the unit held by reservation id, for a consumed call that
// failed downstream. A reservation is released at most once. A reservation
// taken before the latest reset is released without a credit, since the reset
// already restored the counter; the bool reports whether a unit was returned.
func Refund(ctx context.Context, db *gorm.DB, userID uint, f plans.Feature, id string, now time.Time) (bool, error) {
	col, err := column(f)
	if err != nil {
		return false, err
	}

	credited := false
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r Reservation
		err := tx.Where("id = ? AND user_id = ? AND feature = ? AND refunded_at IS NULL", id, userID, string(f)).
			First(&r).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoReservation
		}
		if err != nil {
			return fmt.Errorf("load reservation: %w", err)
		}

		released := tx.Model(&Reservation{}).
			Where("id = ? AND refunded_at IS NULL", r.ID).
			UpdateColumn("refunded_at", now)
		if released.Error != nil {
			return fmt.Errorf("release reservation: %w", released.Error)
		}
		if released.RowsAffected == 0 {
			return ErrNoReservation
		}

		res := tx.Model(&Record{}).
			Where("user_id = ? AND last_reset_at <= ?", userID, r.CreatedAt).
			UpdateColumns(map[string]interface{}{
				col:          gorm.Expr(col + " + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("refund %s: %w", col, res.Error)
		}
		credited = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return credited, nil
}
