package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learningly/internal/domain/plans"

	"gorm.io/gorm"
)

var ErrNoReservation = errors.New("no open reservation for this feature")

// Reservation is one unit taken by Consume. RefundedAt is set once the unit
// has been given back.
type Reservation struct {
	ID         string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     uint          `gorm:"not null;index" json:"user_id"`
	Feature    plans.Feature `gorm:"type:varchar(32);not null" json:"feature"`
	RefundedAt *time.Time    `json:"refunded_at"`
	CreatedAt  time.Time     `gorm:"not null;index" json:"created_at"`
}

func (Reservation) TableName() string { return "usage_reservations" }

// PruneReservations deletes reservations taken before cutoff. Refund can no
// longer credit those once a reset has passed them.
func PruneReservations(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Reservation{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune reservations: %w", res.Error)
	}
	return res.RowsAffected, nil
}
