package access

import (
	"time"

	"learningly/internal/domain/plans"
	"learningly/internal/domain/usage"
)

// ComputeQuotaState classifies a usage record:
// reset_due wins over everything once the interval has elapsed, then
// exhausted if any feature is at zero, else within_quota.
func ComputeQuotaState(now time.Time, rec usage.Record, s usage.Settings) QuotaState {
	if usage.IsResetDue(now, rec.LastResetAt, s) {
		return QuotaResetDue
	}
	if len(ExhaustedFeatures(rec)) > 0 {
		return QuotaExhausted
	}
	return QuotaWithin
}

// ExhaustedFeatures lists the features with no remaining uses.
func ExhaustedFeatures(rec usage.Record) []plans.Feature {
	out := []plans.Feature{}
	for _, f := range plans.Features {
		if rec.Remaining(f) <= 0 {
			out = append(out, f)
		}
	}
	return out
}
