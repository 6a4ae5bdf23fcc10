package goTacAuth

import (
	"context"
	"crypto/subtle"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goTacAuth/credential"
	"github.com/MrEthical07/goTacAuth/mavis"
)

type replyRecorder struct {
	mu      sync.Mutex
	replies []Reply
}

func (r *replyRecorder) WriteReply(_ context.Context, _ string, reply Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, reply)
	return nil
}

func (r *replyRecorder) last(t *testing.T) Reply {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		t.Fatal("no reply recorded")
	}
	return r.replies[len(r.replies)-1]
}

func (r *replyRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replies)
}

type mockDirectory struct {
	users map[string]*UserRecord
	err   error
}

func (d *mockDirectory) LookupUser(_ context.Context, _, username string) (*UserRecord, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.users[username], nil
}

type recordSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *recordSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordSink) all() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

// testBackend is a scriptable backend module that counts queries per
// type and can hold an auth answer back for deferred delivery.
type testBackend struct {
	mu        sync.Mutex
	passwords map[string]string
	deferAuth bool
	pending   *mavis.Query

	infoCount int
	authCount int
	chalCount int
	chpwCount int
}

func (b *testBackend) Handle(_ context.Context, q *mavis.Query) (mavis.Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch q.Type {
	case mavis.TypeInfo:
		b.infoCount++
		if _, ok := b.passwords[q.Value(mavis.AttrUser)]; !ok {
			return mavis.Down, nil
		}
		q.Set(mavis.AttrResult, mavis.ResultACK)
		return mavis.Final, nil
	case mavis.TypeAuth:
		b.authCount++
		if b.deferAuth {
			b.pending = q
			return mavis.Deferred, nil
		}
		b.answerAuth(q)
		return mavis.Final, nil
	case mavis.TypeChal:
		b.chalCount++
		return mavis.Down, nil
	case mavis.TypeChPW:
		b.chpwCount++
		want, ok := b.passwords[q.Value(mavis.AttrUser)]
		if ok && subtle.ConstantTimeCompare([]byte(want), []byte(q.Value(mavis.AttrPassword))) == 1 {
			b.passwords[q.Value(mavis.AttrUser)] = q.Value(mavis.AttrPasswordNew)
			q.Set(mavis.AttrResult, mavis.ResultACK)
		} else {
			q.Set(mavis.AttrResult, mavis.ResultNAK)
		}
		return mavis.Final, nil
	}
	return mavis.Ignore, nil
}

func (b *testBackend) answerAuth(q *mavis.Query) {
	want, ok := b.passwords[q.Value(mavis.AttrUser)]
	if ok && subtle.ConstantTimeCompare([]byte(want), []byte(q.Value(mavis.AttrPassword))) == 1 {
		q.Set(mavis.AttrResult, mavis.ResultACK)
	} else {
		q.Set(mavis.AttrResult, mavis.ResultNAK)
	}
}

// release delivers the held auth answer through the completer.
func (b *testBackend) release(t *testing.T, e *Engine) {
	t.Helper()
	b.mu.Lock()
	q := b.pending
	b.pending = nil
	b.mu.Unlock()
	if q == nil {
		t.Fatal("no pending backend query to release")
	}
	b.answerAuth(q)
	e.CompleteBackend(context.Background(), q.Serial(), q)
}

func (b *testBackend) counts() (info, auth, chal, chpw int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.infoCount, b.authCount, b.chalCount, b.chpwCount
}

func engineTestConfig() Config {
	cfg := defaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, dir UserDirectory, backend BackendChain) (*Engine, *replyRecorder, *recordSink) {
	t.Helper()

	recorder := &replyRecorder{}
	sink := &recordSink{}

	builder := New().
		WithConfig(cfg).
		WithReplyWriter(recorder).
		WithAuditSink(sink)
	if dir != nil {
		builder = builder.WithUserDirectory(dir)
	}
	if backend != nil {
		builder = builder.WithBackendChain(backend)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, recorder, sink
}

func clearUser(name, password string) *UserRecord {
	return &UserRecord{
		Name: name,
		Passwords: map[Slot]credential.Record{
			SlotLogin:  {Kind: credential.KindClear, Value: password},
			SlotPAP:    {Kind: credential.KindLogin},
			SlotCHAP:   {Kind: credential.KindClear, Value: password},
			SlotMSCHAP: {Kind: credential.KindClear, Value: password},
		},
	}
}

func asciiStart(username string) StartPacket {
	return StartPacket{
		Action:   ActionLogin,
		Type:     TypeASCII,
		Service:  ServiceLogin,
		Username: username,
		Port:     "tty0",
	}
}

func TestHandleStartMalformedPacket(t *testing.T) {
	engine, recorder, _ := newTestEngine(t, engineTestConfig(), nil, nil)

	pkt := asciiStart("alice")
	pkt.DeclaredLength = 4

	err := engine.HandleStart(context.Background(), "s1", pkt)
	if err != ErrMalformedPacket {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
	if recorder.count() != 0 {
		t.Fatalf("malformed start must not produce a reply, got %d", recorder.count())
	}
	if engine.OpenSessions() != 0 {
		t.Fatalf("no session must be retained, got %d", engine.OpenSessions())
	}
}

func TestHandleStartUnsupportedMethod(t *testing.T) {
	engine, recorder, _ := newTestEngine(t, engineTestConfig(), nil, nil)

	pkt := asciiStart("alice")
	pkt.Type = TypeCHAP
	pkt.MinorVersion = MinorVersionDefault

	err := engine.HandleStart(context.Background(), "s1", pkt)
	if err != ErrUnsupportedMethod {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
	if got := recorder.last(t); got.Status != ReplyError {
		t.Fatalf("expected error reply, got status %d", got.Status)
	}
	if snap := engine.MetricsSnapshot(); snap.Counters[MetricUnsupportedMethod] != 1 {
		t.Fatal("unsupported method counter not incremented")
	}
}

func TestHandleStartInvalidPrivilegeLevel(t *testing.T) {
	engine, recorder, _ := newTestEngine(t, engineTestConfig(), nil, nil)

	pkt := asciiStart("alice")
	pkt.PrivLvl = 0x42

	if err := engine.HandleStart(context.Background(), "s1", pkt); err != ErrInvalidPrivilegeLevel {
		t.Fatalf("expected ErrInvalidPrivilegeLevel, got %v", err)
	}
	if got := recorder.last(t); got.Status != ReplyError {
		t.Fatalf("expected error reply, got status %d", got.Status)
	}
}

func TestHandleStartMissingUsername(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(), nil, nil)

	pkt := StartPacket{
		Action:       ActionLogin,
		Type:         TypePAP,
		Service:      ServicePPP,
		MinorVersion: MinorVersionOne,
		Data:         []byte("pw"),
	}
	if err := engine.HandleStart(context.Background(), "s1", pkt); err != ErrNoUsername {
		t.Fatalf("expected ErrNoUsername, got %v", err)
	}
}

func TestHandleContinueUnknownSession(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(), nil, nil)

	err := engine.HandleContinue(context.Background(), "missing", ContinuePacket{Message: "x"})
	if err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDuplicateSessionRejected(t *testing.T) {
	dir := &mockDirectory{users: map[string]*UserRecord{"alice": clearUser("alice", "pw")}}
	engine, _, _ := newTestEngine(t, engineTestConfig(), dir, nil)

	ctx := context.Background()
	if err := engine.HandleStart(ctx, "s1", asciiStart("alice")); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := engine.HandleStart(ctx, "s1", asciiStart("alice")); err != ErrSessionExists {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
}

func TestAbortReportsWithoutReply(t *testing.T) {
	dir := &mockDirectory{users: map[string]*UserRecord{"alice": clearUser("alice", "pw")}}
	engine, recorder, sink := newTestEngine(t, engineTestConfig(), dir, nil)

	ctx := context.Background()
	if err := engine.HandleStart(ctx, "s1", asciiStart("alice")); err != nil {
		t.Fatalf("start: %v", err)
	}
	before := recorder.count()

	err := engine.HandleContinue(ctx, "s1", ContinuePacket{Abort: true, Data: []byte("user gave up")})
	if err != nil {
		t.Fatalf("abort continue: %v", err)
	}
	if recorder.count() != before {
		t.Fatal("abort must not produce a reply")
	}
	if engine.OpenSessions() != 0 {
		t.Fatal("aborted session must be torn down")
	}

	engine.Close()
	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("expected exactly one audit event, got %d", len(events))
	}
	if events[0].MsgID != "AUTHCFAIL-ABORT" {
		t.Fatalf("unexpected msgid %q", events[0].MsgID)
	}
	if events[0].Hint != "aborted by request [user gave up]" {
		t.Fatalf("unexpected hint %q", events[0].Hint)
	}
}

func TestAbortWhileBackendPendingTearsDown(t *testing.T) {
	backend := &testBackend{passwords: map[string]string{"dana": "pw"}, deferAuth: true}
	cfg := engineTestConfig()
	cfg.Realm.MavisUserDB = true
	cfg.Realm.LoginPrefetch = true
	engine, recorder, sink := newTestEngine(t, cfg, nil, backend)

	ctx := context.Background()
	if err := engine.HandleStart(ctx, "s1", asciiStart("dana")); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := engine.HandleContinue(ctx, "s1", ContinuePacket{Message: "pw"}); err != nil {
		t.Fatalf("password continue: %v", err)
	}
	before := recorder.count()

	// The auth query is suspended; an abort must still win immediately.
	if err := engine.HandleContinue(ctx, "s1", ContinuePacket{Abort: true}); err != nil {
		t.Fatalf("abort during deferred query: %v", err)
	}
	if engine.OpenSessions() != 0 {
		t.Fatal("aborted session must be torn down despite the pending query")
	}
	if recorder.count() != before {
		t.Fatal("abort must not produce a reply")
	}

	// The backend answer arrives after the teardown and is discarded.
	backend.release(t, engine)
	if recorder.count() != before {
		t.Fatal("late backend answer must not produce a reply")
	}
	if snap := engine.MetricsSnapshot(); snap.Counters[MetricBackendLateAnswer] != 1 {
		t.Fatal("late answer counter not incremented")
	}

	engine.Close()
	events := sink.all()
	if len(events) != 1 || events[0].MsgID != "AUTHCFAIL-ABORT" {
		t.Fatalf("expected one abort audit event, got %+v", events)
	}
}

func TestHintReexportsMatchCredentialTaxonomy(t *testing.T) {
	pairs := []struct {
		root Hint
		cred credential.Hint
	}{
		{HintAbort, credential.HintAbort},
		{HintFailedPasswordRetry, credential.HintFailedPasswordRetry},
		{HintNoSuchUser, credential.HintNoSuchUser},
		{HintDeniedByACL, credential.HintDeniedByACL},
		{HintWeakPassword, credential.HintWeakPassword},
	}
	for _, p := range pairs {
		if p.root != p.cred {
			t.Fatalf("re-exported hint %v diverges from credential taxonomy", p.cred)
		}
	}
}

func TestCompleteBackendLateAnswerTolerated(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(), nil, nil)

	q := mavis.NewQuery(mavis.TypeAuth, "gone")
	engine.CompleteBackend(context.Background(), "gone", q)

	if snap := engine.MetricsSnapshot(); snap.Counters[MetricBackendLateAnswer] != 1 {
		t.Fatal("late answer counter not incremented")
	}
}

func TestBuilderRequiresReplyWriter(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without reply writer")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithReplyWriter(&replyRecorder{})
	if _, err := b.Build(); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second build")
	}
}

func TestUserValidityWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	u := &UserRecord{ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour)}
	if !u.valid(now) {
		t.Fatal("user inside window must be valid")
	}
	if u.valid(now.Add(2 * time.Hour)) {
		t.Fatal("user past ValidUntil must be invalid")
	}
	if u.valid(now.Add(-2 * time.Hour)) {
		t.Fatal("user before ValidFrom must be invalid")
	}

	unbounded := &UserRecord{}
	if !unbounded.valid(now) {
		t.Fatal("unbounded user must be valid")
	}
}
