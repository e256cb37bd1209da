package access

import (
	"time"

	"learningly/internal/domain/plans"
	"learningly/internal/domain/usage"
)

type Policy struct {
	State     QuotaState      `json:"state"`
	Available []plans.Feature `json:"available"`
	Exhausted []plans.Feature `json:"exhausted"`
	Premium   bool            `json:"premium"`
	NextReset *time.Time      `json:"next_reset_at"`
}

func ComputePolicy(now time.Time, rec usage.Record, s usage.Settings) Policy {
	state := ComputeQuotaState(now, rec, s)

	var next *time.Time
	if s.Interval > 0 {
		t := usage.NextResetAt(rec.LastResetAt, s)
		next = &t
	}

	return Policy{
		State:     state,
		Available: AvailableFeatures(state, rec),
		Exhausted: ExhaustedFeatures(rec),
		Premium:   rec.Premium,
		NextReset: next,
	}
}
