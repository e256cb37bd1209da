package stripe

import "strings"

// NormalizeIntentStatus folds Stripe PaymentIntent statuses into the states
// the purchase flow cares about: succeeded|processing|pending|canceled|none.
func NormalizeIntentStatus(s string) string {
	switch strings.TrimSpace(s) {
	case "":
		return "none"
	case "succeeded":
		return "succeeded"
	case "processing":
		return "processing"
	case "requires_payment_method", "requires_confirmation", "requires_action", "requires_capture":
		return "pending"
	case "canceled":
		return "canceled"
	default:
		return strings.TrimSpace(s)
	}
}
