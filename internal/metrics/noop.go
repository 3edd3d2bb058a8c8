package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveTransportCall is a no-op.
func (n *NoopRecorder) ObserveTransportCall(op, outcome string, duration time.Duration) {}

// IncRefresh is a no-op.
func (n *NoopRecorder) IncRefresh(outcome string) {}

// IncNotification is a no-op.
func (n *NoopRecorder) IncNotification(kind string) {}

// SetActiveSessions is a no-op.
func (n *NoopRecorder) SetActiveSessions(count int) {}
