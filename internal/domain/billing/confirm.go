package billing

import (
	"context"
	"fmt"
	"strconv"

	"learningly/internal/domain/plans"
	"learningly/internal/infra/stripe"

	"gorm.io/gorm"
)

// PurchaseFromIntent rebuilds the purchase described by a PaymentIntent's metadata.
func PurchaseFromIntent(pi *stripe.Intent) (*Purchase, *plans.Plan, error) {
	if pi == nil || pi.Metadata == nil {
		return nil, nil, ErrMissingMetadata
	}
	md := pi.Metadata

	uid, err := strconv.ParseUint(md[MetaUserID], 10, 64)
	if err != nil || uid == 0 {
		return nil, nil, fmt.Errorf("%w: user_id %q", ErrMissingMetadata, md[MetaUserID])
	}

	plan, err := plans.Lookup(md[MetaPlanID])
	if err != nil {
		return nil, nil, err
	}

	key := md[MetaIdempotencyKey]
	if key == "" {
		key = pi.ID
	}

	intentID := pi.ID
	p := &Purchase{
		UserID:          uint(uid),
		PlanID:          plan.ID,
		ProductID:       plan.ProductID,
		IdempotencyKey:  key,
		PaymentIntentID: &intentID,
		AmountCents:     pi.AmountCents,
		Currency:        pi.Currency,
		Status:          StatusPending,
	}
	if code := md[MetaCouponCode]; code != "" {
		p.CouponCode = &code
	}
	return p, plan, nil
}

// Complete credits a succeeded PaymentIntent. Callers that already trust the
// intent (webhooks) pass expectedUserID 0; otherwise it must match the intent owner.
func Complete(ctx context.Context, db *gorm.DB, pi *stripe.Intent, expectedUserID uint) (*Purchase, bool, error) {
	p, plan, err := PurchaseFromIntent(pi)
	if err != nil {
		return nil, false, err
	}
	if expectedUserID != 0 && p.UserID != expectedUserID {
		return nil, false, ErrForeignPaymentIntent
	}
	if stripe.NormalizeIntentStatus(pi.Status) != "succeeded" {
		return p, false, ErrPaymentNotSucceeded
	}

	applied, err := ApplyPurchase(ctx, db, p, plan)
	if err != nil {
		return nil, false, err
	}
	return p, applied, nil
}

// Confirm fetches the intent from the processor and completes it for userID.
func Confirm(ctx context.Context, db *gorm.DB, gw stripe.Gateway, userID uint, intentID string) (*Purchase, bool, error) {
	pi, err := gw.GetPaymentIntent(ctx, intentID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrPaymentLookup, err)
	}
	return Complete(ctx, db, pi, userID)
}
