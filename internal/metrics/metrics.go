// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Transport call outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Refresh outcomes.
const (
	RefreshApplied = "applied"
	RefreshStale   = "stale"
	RefreshFailed  = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Remote user service calls
	ObserveTransportCall(op, outcome string, duration time.Duration)

	// Dashboard metrics
	IncRefresh(outcome string)
	IncNotification(kind string)

	// Session metrics
	SetActiveSessions(n int)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
