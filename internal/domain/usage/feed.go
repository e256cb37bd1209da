package usage

import (
	"context"

	"learningly/internal/state"

	"gorm.io/gorm"
)

// Updates carries the latest usage record per user to live subscribers.
var Updates = state.NewHub[uint, Record]()

// Publish reloads the user's record and pushes it to Updates.
func Publish(ctx context.Context, db *gorm.DB, userID uint) (*Record, error) {
	rec, err := Get(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if err := Updates.Set(userID, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}
