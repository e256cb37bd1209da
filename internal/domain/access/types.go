package access

type QuotaState string

const (
	QuotaWithin    QuotaState = "within_quota"
	QuotaExhausted QuotaState = "exhausted"
	QuotaResetDue  QuotaState = "reset_due"
)
