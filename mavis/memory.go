package mavis

import (
	"context"
	"crypto/subtle"
	"sync"
)

// MemoryUser is one entry in a [MemoryModule] user database.
type MemoryUser struct {
	Password   string
	Profile    string
	MemberOf   string
	Challenge  string
	MustChange bool
	Oneshot    bool
	// ReturnPassword includes the cleartext credential in info answers
	// so the engine can compare locally instead of issuing a separate
	// auth query.
	ReturnPassword bool
}

// MemoryModule is a complete in-process backend module serving all four
// query types from a map. It backs tests and the simulator binary, and
// doubles as the reference implementation of the module contract.
type MemoryModule struct {
	mu    sync.RWMutex
	users map[string]MemoryUser
}

// NewMemoryModule creates an empty module.
func NewMemoryModule() *MemoryModule {
	return &MemoryModule{users: make(map[string]MemoryUser)}
}

// Add inserts or replaces a user entry.
func (m *MemoryModule) Add(name string, user MemoryUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[name] = user
}

// Handle implements [Module]. Queries about unknown users are passed
// down the chain.
func (m *MemoryModule) Handle(_ context.Context, q *Query) (Outcome, error) {
	name := q.Value(AttrUser)

	m.mu.RLock()
	user, found := m.users[name]
	m.mu.RUnlock()

	if !found {
		return Down, nil
	}

	switch q.Type {
	case TypeInfo:
		q.Set(AttrResult, ResultACK)
		if user.Profile != "" {
			q.Set(AttrProfile, user.Profile)
		}
		if user.MemberOf != "" {
			q.Set(AttrMemberOf, user.MemberOf)
		}
		if user.ReturnPassword {
			q.Set(AttrDBPassword, user.Password)
		}
		if user.MustChange {
			q.Set(AttrPasswordMustChange, "1")
		}
		if user.Oneshot {
			q.Set(AttrPasswordOneshot, "1")
		}
		return Final, nil

	case TypeAuth:
		supplied := q.Value(AttrPassword)
		if supplied != "" && subtle.ConstantTimeCompare([]byte(user.Password), []byte(supplied)) == 1 {
			q.Set(AttrResult, ResultACK)
			if user.MustChange {
				q.Set(AttrPasswordMustChange, "1")
			}
		} else {
			q.Set(AttrResult, ResultNAK)
		}
		return Final, nil

	case TypeChal:
		if user.Challenge == "" {
			return Down, nil
		}
		q.Set(AttrChallenge, user.Challenge)
		q.Set(AttrResult, ResultACK)
		return Final, nil

	case TypeChPW:
		supplied := q.Value(AttrPassword)
		replacement := q.Value(AttrPasswordNew)
		if supplied == "" || replacement == "" ||
			subtle.ConstantTimeCompare([]byte(user.Password), []byte(supplied)) != 1 {
			q.Set(AttrResult, ResultNAK)
			return Final, nil
		}
		user.Password = replacement
		user.MustChange = false
		m.mu.Lock()
		m.users[name] = user
		m.mu.Unlock()
		q.Set(AttrResult, ResultACK)
		return Final, nil
	}

	return Ignore, nil
}
