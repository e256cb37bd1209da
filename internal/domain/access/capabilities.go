package access

import (
	"learningly/internal/domain/plans"
	"learningly/internal/domain/usage"
)

// AvailableFeatures lists the features the user can still invoke.
// A pending reset makes everything available: the next read refills it.
func AvailableFeatures(state QuotaState, rec usage.Record) []plans.Feature {
	out := []plans.Feature{}
	for _, f := range plans.Features {
		if state == QuotaResetDue || rec.Remaining(f) > 0 {
			out = append(out, f)
		}
	}
	return out
}
