package types

import "time"

// ReportMessage is the SQS payload sent from the advisor to the report
// worker once a cycle's advice snapshot is persisted. The worker loads
// the snapshot by cycle ID, renders the report, and sends it by email.
type ReportMessage struct {
	// Core Identity
	CycleID string    `json:"cycle_id"`
	RunDate time.Time `json:"run_date"`

	// Delivery
	Email string `json:"email"`

	// Trigger is carried so worker logs can tell manual replays apart
	// from the daily send.
	Trigger CycleTrigger `json:"trigger"`

	// Retry State: carries retry count across the SQS publish-subscribe
	// cycle. Incremented by the worker on transient failures before
	// re-publishing.
	RetryCount int `json:"retry_count"`

	// Observability
	TraceID string `json:"trace_id"`
}
