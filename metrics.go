package goTacAuth

import "sync/atomic"

// MetricID identifies a specific counter in the in-process metrics
// system.
type MetricID uint16

const (
	// MetricSessionStarted is an exported constant or variable used by the authentication engine.
	MetricSessionStarted MetricID = iota
	// MetricSessionAborted is an exported constant or variable used by the authentication engine.
	MetricSessionAborted
	// MetricAuthenPass is an exported constant or variable used by the authentication engine.
	MetricAuthenPass
	// MetricAuthenFail is an exported constant or variable used by the authentication engine.
	MetricAuthenFail
	// MetricAuthenError is an exported constant or variable used by the authentication engine.
	MetricAuthenError
	// MetricPromptSent is an exported constant or variable used by the authentication engine.
	MetricPromptSent
	// MetricMalformedPacket is an exported constant or variable used by the authentication engine.
	MetricMalformedPacket
	// MetricUnsupportedMethod is an exported constant or variable used by the authentication engine.
	MetricUnsupportedMethod
	// MetricBackendQuery is an exported constant or variable used by the authentication engine.
	MetricBackendQuery
	// MetricBackendDeferred is an exported constant or variable used by the authentication engine.
	MetricBackendDeferred
	// MetricBackendError is an exported constant or variable used by the authentication engine.
	MetricBackendError
	// MetricBackendLateAnswer is an exported constant or variable used by the authentication engine.
	MetricBackendLateAnswer
	// MetricRetryReplay is an exported constant or variable used by the authentication engine.
	MetricRetryReplay
	// MetricThrottleHit is an exported constant or variable used by the authentication engine.
	MetricThrottleHit
	// MetricPasswordChangeSuccess is an exported constant or variable used by the authentication engine.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeFailure is an exported constant or variable used by the authentication engine.
	MetricPasswordChangeFailure
	// MetricFallbackLogin is an exported constant or variable used by the authentication engine.
	MetricFallbackLogin

	metricIDCount
)

// Metrics holds atomic counters for the engine. When disabled, all
// operations are no-ops.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a [Metrics] instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Get reads one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricIDCount),
	}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
