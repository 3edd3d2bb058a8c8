package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// CallKey identifies a transport call counter.
type CallKey struct {
	Op      string
	Outcome string
}

// Snapshot captures current in-memory counters.
type Snapshot struct {
	TransportCalls      map[CallKey]uint64
	TransportDurationNs int64
	Refreshes           map[string]uint64
	Notifications       map[string]uint64
	ActiveSessions      int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu            sync.Mutex
	calls         map[CallKey]uint64
	refreshes     map[string]uint64
	notifications map[string]uint64

	durationNs     int64
	activeSessions int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		calls:         make(map[CallKey]uint64),
		refreshes:     make(map[string]uint64),
		notifications: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		TransportCalls:      make(map[CallKey]uint64, len(m.calls)),
		TransportDurationNs: atomic.LoadInt64(&m.durationNs),
		Refreshes:           make(map[string]uint64, len(m.refreshes)),
		Notifications:       make(map[string]uint64, len(m.notifications)),
		ActiveSessions:      atomic.LoadInt64(&m.activeSessions),
	}
	for k, v := range m.calls {
		snap.TransportCalls[k] = v
	}
	for k, v := range m.refreshes {
		snap.Refreshes[k] = v
	}
	for k, v := range m.notifications {
		snap.Notifications[k] = v
	}
	return snap
}

// ObserveTransportCall counts a remote call and accumulates its duration.
func (m *InMemoryRecorder) ObserveTransportCall(op, outcome string, duration time.Duration) {
	atomic.AddInt64(&m.durationNs, duration.Nanoseconds())

	m.mu.Lock()
	m.calls[CallKey{Op: op, Outcome: outcome}]++
	m.mu.Unlock()
}

// IncRefresh increments the refresh counter for outcome.
func (m *InMemoryRecorder) IncRefresh(outcome string) {
	m.mu.Lock()
	m.refreshes[outcome]++
	m.mu.Unlock()
}

// IncNotification increments the notification counter for kind.
func (m *InMemoryRecorder) IncNotification(kind string) {
	m.mu.Lock()
	m.notifications[kind]++
	m.mu.Unlock()
}

// SetActiveSessions records the current session count.
func (m *InMemoryRecorder) SetActiveSessions(n int) {
	atomic.StoreInt64(&m.activeSessions, int64(n))
}
