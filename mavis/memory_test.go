package mavis

import (
	"context"
	"testing"
)

func newTestMemoryModule(t *testing.T) *MemoryModule {
	t.Helper()
	m := NewMemoryModule()
	m.Add("marc", MemoryUser{
		Password: "abc123",
		Profile:  "netadmin",
		MemberOf: "ops,oncall",
	})
	return m
}

func TestMemoryModuleUnknownUserDelegates(t *testing.T) {
	m := newTestMemoryModule(t)

	q := NewQuery(TypeInfo, "").Set(AttrUser, "nobody")
	outcome, err := m.Handle(context.Background(), q)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome != Down {
		t.Fatalf("got outcome %v, want down", outcome)
	}
}

func TestMemoryModuleInfo(t *testing.T) {
	m := newTestMemoryModule(t)

	q := NewQuery(TypeInfo, "").Set(AttrUser, "marc")
	outcome, err := m.Handle(context.Background(), q)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome != Final {
		t.Fatalf("got outcome %v, want final", outcome)
	}
	if q.Value(AttrResult) != ResultACK {
		t.Fatalf("got result %q, want ACK", q.Value(AttrResult))
	}
	if q.Value(AttrProfile) != "netadmin" {
		t.Fatalf("got profile %q", q.Value(AttrProfile))
	}
	if q.Value(AttrMemberOf) != "ops,oncall" {
		t.Fatalf("got memberof %q", q.Value(AttrMemberOf))
	}
	if _, ok := q.Get(AttrDBPassword); ok {
		t.Fatal("info answer must not leak the credential unless asked to")
	}
}

func TestMemoryModuleInfoReturnPassword(t *testing.T) {
	m := NewMemoryModule()
	m.Add("marc", MemoryUser{Password: "abc123", ReturnPassword: true})

	q := NewQuery(TypeInfo, "").Set(AttrUser, "marc")
	if _, err := m.Handle(context.Background(), q); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if q.Value(AttrDBPassword) != "abc123" {
		t.Fatalf("got dbpassword %q", q.Value(AttrDBPassword))
	}
}

func TestMemoryModuleAuth(t *testing.T) {
	m := newTestMemoryModule(t)

	q := NewQuery(TypeAuth, "").Set(AttrUser, "marc").Set(AttrPassword, "abc123")
	if _, err := m.Handle(context.Background(), q); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if q.Value(AttrResult) != ResultACK {
		t.Fatalf("got result %q, want ACK", q.Value(AttrResult))
	}

	q = NewQuery(TypeAuth, "").Set(AttrUser, "marc").Set(AttrPassword, "wrong")
	if _, err := m.Handle(context.Background(), q); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if q.Value(AttrResult) != ResultNAK {
		t.Fatalf("got result %q, want NAK", q.Value(AttrResult))
	}

	// Empty credentials never match, not even for empty stored secrets.
	m.Add("open", MemoryUser{Password: ""})
	q = NewQuery(TypeAuth, "").Set(AttrUser, "open").Set(AttrPassword, "")
	if _, err := m.Handle(context.Background(), q); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if q.Value(AttrResult) != ResultNAK {
		t.Fatalf("got result %q, want NAK", q.Value(AttrResult))
	}
}

func TestMemoryModuleChal(t *testing.T) {
	m := NewMemoryModule()
	m.Add("marc", MemoryUser{Password: "abc123", Challenge: "favorite color?"})
	m.Add("noreen", MemoryUser{Password: "abc123"})

	q := NewQuery(TypeChal, "").Set(AttrUser, "marc")
	outcome, err := m.Handle(context.Background(), q)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome != Final || q.Value(AttrChallenge) != "favorite color?" {
		t.Fatalf("got outcome %v, challenge %q", outcome, q.Value(AttrChallenge))
	}

	q = NewQuery(TypeChal, "").Set(AttrUser, "noreen")
	outcome, err = m.Handle(context.Background(), q)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome != Down {
		t.Fatalf("got outcome %v, want down for a user without a challenge", outcome)
	}
}

func TestMemoryModuleChangePassword(t *testing.T) {
	m := NewMemoryModule()
	m.Add("marc", MemoryUser{Password: "old", MustChange: true})

	q := NewQuery(TypeChPW, "").
		Set(AttrUser, "marc").
		Set(AttrPassword, "wrong").
		Set(AttrPasswordNew, "brand-new")
	if _, err := m.Handle(context.Background(), q); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if q.Value(AttrResult) != ResultNAK {
		t.Fatalf("got result %q, want NAK for wrong old password", q.Value(AttrResult))
	}

	q = NewQuery(TypeChPW, "").
		Set(AttrUser, "marc").
		Set(AttrPassword, "old").
		Set(AttrPasswordNew, "brand-new")
	if _, err := m.Handle(context.Background(), q); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if q.Value(AttrResult) != ResultACK {
		t.Fatalf("got result %q, want ACK", q.Value(AttrResult))
	}

	// The change commits and clears the must-change flag.
	q = NewQuery(TypeAuth, "").Set(AttrUser, "marc").Set(AttrPassword, "brand-new")
	if _, err := m.Handle(context.Background(), q); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if q.Value(AttrResult) != ResultACK {
		t.Fatalf("got result %q, want ACK with the new password", q.Value(AttrResult))
	}
	if _, ok := q.Get(AttrPasswordMustChange); ok {
		t.Fatal("must-change flag must be cleared by a successful change")
	}
}
