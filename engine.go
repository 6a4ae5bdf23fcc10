package goTacAuth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goTacAuth/internal/throttle"
)

// Engine is the authentication core. It owns the live session table and
// drives the per-method state machines; everything environmental (user
// storage, policy rules, the reply transport, the backend chain) is
// injected through the Builder.
//
// An Engine never blocks inside a handler: a slow backend answer comes
// back through CompleteBackend, and every other invocation runs to a
// reply or a suspension and returns.
type Engine struct {
	config      Config
	directory   UserDirectory
	acl         ACLEvaluator
	replyWriter ReplyWriter
	backend     BackendChain
	throttle    *throttle.Throttle
	audit       *auditDispatcher
	metrics     *Metrics
	log         *logrus.Logger
	rewrite     UsernameRewriter

	mu       sync.Mutex
	sessions map[string]*session

	// lastBackendFailure is the in-memory realm failure marker used
	// when no Redis throttle is wired.
	lastBackendFailure time.Time

	openSessions atomic.Int64

	now func() time.Time
}

// OpenSessions reports the number of sessions currently in flight.
func (e *Engine) OpenSessions() int64 {
	return e.openSessions.Load()
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. Sessions still in
// flight are dropped; callers should stop feeding packets first.
func (e *Engine) Close() {
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) lookupSession(id string) (*session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	return s, ok
}

func (e *Engine) addSession(s *session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sessions[s.id]; ok {
		return ErrSessionExists
	}
	e.sessions[s.id] = s
	e.openSessions.Add(1)
	return nil
}

func (e *Engine) teardown(s *session) {
	if s.done {
		return
	}
	s.done = true
	e.mu.Lock()
	delete(e.sessions, s.id)
	e.mu.Unlock()
	e.openSessions.Add(-1)
}

// backendFailureActive reports whether the realm is inside its backend
// failure window, during which fallback-only users become eligible.
func (e *Engine) backendFailureActive(ctx context.Context) bool {
	if e.throttle != nil {
		return e.throttle.BackendFailureActive(ctx, e.config.Realm.Name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastBackendFailure.IsZero() {
		return false
	}
	return e.now().Before(e.lastBackendFailure.Add(e.config.Realm.BackendFailurePeriod))
}

func (e *Engine) markBackendFailure(ctx context.Context) {
	e.mu.Lock()
	e.lastBackendFailure = e.now()
	e.mu.Unlock()
	if e.throttle != nil {
		if err := e.throttle.MarkBackendFailure(ctx, e.config.Realm.Name, e.config.Realm.BackendFailurePeriod); err != nil {
			e.log.WithError(err).Warn("failed to persist backend failure marker")
		}
	}
}
