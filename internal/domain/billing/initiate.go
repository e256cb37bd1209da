package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"learningly/internal/domain/plans"
	"learningly/internal/domain/pricing"
	"learningly/internal/domain/users"
	"learningly/internal/infra/stripe"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Metadata keys attached to every PaymentIntent.
const (
	MetaUserID         = "user_id"
	MetaPlanID         = "plan_id"
	MetaProductID      = "product_id"
	MetaCouponCode     = "coupon_code"
	MetaIdempotencyKey = "idempotency_key"
)

type InitResult struct {
	Purchase        *Purchase
	FreeOrder       bool
	Applied         bool
	PaymentIntentID string
	ClientSecret    string
}

// Initiate starts a purchase of plan at the quoted price. Free orders skip
// the processor and are credited right away; paid orders get a Stripe
// PaymentIntent whose client secret the caller confirms on the client.
func Initiate(ctx context.Context, db *gorm.DB, gw stripe.Gateway, user *users.User, plan *plans.Plan, q pricing.Quote, idempotencyKey string) (*InitResult, error) {
	if plan == nil || q.PlanID != plan.ID {
		return nil, plans.ErrInvalidPlan
	}
	if idempotencyKey == "" {
		return nil, fmt.Errorf("initiate purchase: missing idempotency key")
	}

	p := &Purchase{
		UserID:         user.ID,
		PlanID:         plan.ID,
		ProductID:      plan.ProductID,
		IdempotencyKey: idempotencyKey,
		AmountCents:    q.ChargeCents,
		Currency:       plan.Currency,
		FreeOrder:      q.IsFreeOrder,
		Status:         StatusPending,
	}
	couponCode := ""
	if q.Coupon != nil {
		couponCode = q.Coupon.Code
		p.CouponCode = &couponCode
	}

	if prior, err := findByKey(ctx, db, idempotencyKey); err != nil {
		return nil, err
	} else if prior != nil {
		if prior.UserID != user.ID || prior.PlanID != plan.ID {
			return nil, ErrIdempotencyConflict
		}
		if prior.Status == StatusGranted {
			return &InitResult{Purchase: prior, FreeOrder: prior.FreeOrder}, nil
		}
	}

	if q.IsFreeOrder {
		applied, err := ApplyPurchase(ctx, db, p, plan)
		if err != nil {
			return nil, err
		}
		return &InitResult{Purchase: p, FreeOrder: true, Applied: applied}, nil
	}

	customerID, err := ensureCustomer(ctx, db, gw, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}

	pi, err := gw.CreatePaymentIntent(ctx, stripe.IntentRequest{
		AmountCents: q.ChargeCents,
		Currency:    plan.Currency,
		CustomerID:  customerID,
		Description: "Learningly " + plan.Name,
		Metadata: map[string]string{
			MetaUserID:         strconv.FormatUint(uint64(user.ID), 10),
			MetaPlanID:         plan.ID,
			MetaProductID:      plan.ProductID,
			MetaCouponCode:     couponCode,
			MetaIdempotencyKey: idempotencyKey,
		},
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}

	p.PaymentIntentID = &pi.ID
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payment_intent_id", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return nil, fmt.Errorf("record pending purchase: %w", err)
	}

	return &InitResult{
		Purchase:        p,
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
	}, nil
}

func findByKey(ctx context.Context, db *gorm.DB, key string) (*Purchase, error) {
	var p Purchase
	err := db.WithContext(ctx).Where("idempotency_key = ?", key).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	return &p, nil
}

func ensureCustomer(ctx context.Context, db *gorm.DB, gw stripe.Gateway, user *users.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	id, err := gw.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}

	if err := db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", user.ID).
		Update("stripe_customer_id", id).Error; err != nil {
		return "", fmt.Errorf("store customer: %w", err)
	}
	user.StripeCustomerID = &id
	return id, nil
}
