package worker

import "sync/atomic"

// Metrics are per-worker-instance counters, exposed for logging and the
// operator status endpoint.
type Metrics struct {
	JobsProcessed  atomic.Int64
	JobsFailed     atomic.Int64
	AIInvocations  atomic.Int64
	QuotaBlocked   atomic.Int64
	Transfers      atomic.Int64
	PaymentReviews atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	JobsProcessed  int64 `json:"jobs_processed"`
	JobsFailed     int64 `json:"jobs_failed"`
	AIInvocations  int64 `json:"ai_invocations"`
	QuotaBlocked   int64 `json:"quota_blocked"`
	Transfers      int64 `json:"transfers"`
	PaymentReviews int64 `json:"payment_reviews"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		JobsProcessed:  m.JobsProcessed.Load(),
		JobsFailed:     m.JobsFailed.Load(),
		AIInvocations:  m.AIInvocations.Load(),
		QuotaBlocked:   m.QuotaBlocked.Load(),
		Transfers:      m.Transfers.Load(),
		PaymentReviews: m.PaymentReviews.Load(),
	}
}
