package pricing

import (
	"math"
	"strings"

	"learningly/internal/domain/coupons"
	"learningly/internal/domain/plans"
)

// MinimumCharge is the smallest amount Stripe accepts for a card charge.
const MinimumCharge = 0.50

type Quote struct {
	PlanID        string          `json:"plan_id"`
	Currency      string          `json:"currency"`
	BasePrice     float64         `json:"base_price"`
	FinalAmount   float64         `json:"final_amount"`
	ChargeAmount  float64         `json:"charge_amount"`
	ChargeCents   int64           `json:"charge_cents"`
	IsFreeOrder   bool            `json:"is_free_order"`
	Coupon        *coupons.Coupon `json:"applied_coupon"`
	IgnoredCoupon string          `json:"ignored_coupon,omitempty"`
}

// Calculate prices plan with the optional coupon code. Unknown codes are
// treated as no coupon and reported back in IgnoredCoupon.
func Calculate(plan *plans.Plan, couponCode string) (Quote, error) {
	if plan == nil {
		return Quote{}, plans.ErrInvalidPlan
	}

	q := Quote{
		PlanID:      plan.ID,
		Currency:    plan.Currency,
		BasePrice:   plan.Price,
		FinalAmount: Round2(plan.Price),
	}

	if code := strings.TrimSpace(couponCode); code != "" {
		if c, ok := coupons.Lookup(code); ok {
			q.Coupon = &c
			q.FinalAmount = Apply(plan.Price, c)
		} else {
			q.IgnoredCoupon = code
		}
	}

	if q.FinalAmount <= 0 && q.Coupon != nil {
		q.FinalAmount = 0
		q.IsFreeOrder = true
		return q, nil
	}

	q.ChargeAmount = math.Max(MinimumCharge, q.FinalAmount)
	q.ChargeCents = ToMinorUnits(q.ChargeAmount)
	return q, nil
}

// Apply returns price after the coupon discount, rounded to cents.
func Apply(price float64, c coupons.Coupon) float64 {
	switch c.DiscountType {
	case coupons.DiscountPercentage:
		return math.Max(0, Round2(price*(1-c.DiscountValue)))
	case coupons.DiscountFixed:
		return Round2(math.Max(0, price-c.DiscountValue))
	default:
		return Round2(price)
	}
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ToMinorUnits(v float64) int64 {
	return int64(math.Round(v * 100))
}
