package billing

import (
	"errors"
	"time"
)

var (
	ErrPaymentInit          = errors.New("payment initialization failed")
	ErrPaymentNotSucceeded  = errors.New("payment has not succeeded")
	ErrForeignPaymentIntent = errors.New("payment intent belongs to another user")
	ErrIdempotencyConflict  = errors.New("idempotency key already used for a different purchase")
	ErrMissingMetadata      = errors.New("payment intent metadata incomplete")
	ErrPaymentLookup        = errors.New("payment lookup failed")
)

const (
	StatusPending = "pending"
	StatusGranted = "granted"
	StatusFailed  = "failed"
)

// Purchase is the audit row for one plan purchase. IdempotencyKey is shared
// with the Stripe request and guarantees the plan is credited at most once.
type Purchase struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	PlanID          string     `gorm:"not null" json:"plan_id"`
	ProductID       string     `json:"product_id"`
	IdempotencyKey  string     `gorm:"not null;uniqueIndex:idx_purchases_idempotency_key" json:"idempotency_key"`
	PaymentIntentID *string    `gorm:"column:payment_intent_id;uniqueIndex:idx_purchases_payment_intent_id" json:"payment_intent_id"`
	CouponCode      *string    `json:"coupon_code"`
	AmountCents     int64      `gorm:"not null" json:"amount_cents"`
	Currency        string     `gorm:"type:varchar(3);not null" json:"currency"`
	FreeOrder       bool       `gorm:"not null" json:"free_order"`
	Status          string     `gorm:"type:varchar(20);not null;index" json:"status"`
	GrantedAt       *time.Time `json:"granted_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
