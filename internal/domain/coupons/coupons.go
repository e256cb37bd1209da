package coupons

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Coupon is a discount rule. For percentage coupons DiscountValue is a
// fraction (0.25 = 25%); for fixed coupons it is an amount in the plan currency.
type Coupon struct {
	Code          string  `json:"code"`
	DiscountType  string  `json:"discount_type"`
	DiscountValue float64 `json:"discount_value"`
	Description   string  `json:"description"`
}

// Table maps coupon codes to discount rules. Codes are case-sensitive.
var Table = map[string]Coupon{
	"STUDENT25": {
		Code:          "STUDENT25",
		DiscountType:  DiscountPercentage,
		DiscountValue: 0.25,
		Description:   "25% off for students",
	},
	"SPS2025": {
		Code:          "SPS2025",
		DiscountType:  DiscountPercentage,
		DiscountValue: 1.0,
		Description:   "Partner school programme 2025, free access",
	},
	"SAVE2": {
		Code:          "SAVE2",
		DiscountType:  DiscountFixed,
		DiscountValue: 2.00,
		Description:   "$2 off any plan",
	},
}

// Lookup finds a coupon by exact code.
func Lookup(code string) (Coupon, bool) {
	c, ok := Table[code]
	return c, ok
}
