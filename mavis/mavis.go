package mavis

import "context"

// Type selects what a query asks the backend for.
type Type uint8

const (
	// TypeInfo asks for user attributes without verifying a credential.
	TypeInfo Type = iota
	// TypeAuth asks the backend to verify the supplied credential.
	TypeAuth
	// TypeChal asks the backend for a challenge string to present to
	// the user in place of the password prompt.
	TypeChal
	// TypeChPW asks the backend to commit a password change.
	TypeChPW
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case TypeInfo:
		return "INFO"
	case TypeAuth:
		return "AUTH"
	case TypeChal:
		return "CHAL"
	case TypeChPW:
		return "CHPW"
	}
	return "INVALID"
}

// Outcome is the six-valued result a module returns for a query.
type Outcome uint8

const (
	// Final means the response is ready; the query must not be re-run.
	Final Outcome = iota
	// FinalNoRescript means the response is ready but the caller's own
	// post-processing must be suppressed to avoid double side effects
	// on replay.
	FinalNoRescript
	// Deferred means the answer will arrive later through
	// [Completer.CompleteBackend]; the caller must suspend.
	Deferred
	// Ignore means the module declines the query; try the next one.
	Ignore
	// Timeout means the backend did not answer in time.
	Timeout
	// Down delegates the unmodified query to the next module in the
	// chain.
	Down
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Final:
		return "final"
	case FinalNoRescript:
		return "final-no-rescript"
	case Deferred:
		return "deferred"
	case Ignore:
		return "ignore"
	case Timeout:
		return "timeout"
	case Down:
		return "down"
	}
	return "invalid"
}

// Attribute names the fixed universe of string-keyed query attributes.
type Attribute string

const (
	// AttrUser is the username the query is about.
	AttrUser Attribute = "user"
	// AttrPassword is the supplied secret for auth queries.
	AttrPassword Attribute = "password"
	// AttrPasswordNew is the replacement secret for password changes.
	AttrPasswordNew Attribute = "password-new"
	// AttrChallenge is the backend-issued challenge string.
	AttrChallenge Attribute = "challenge"
	// AttrResult carries the backend verdict: ACK, NAK, ERR, or NFD.
	AttrResult Attribute = "result"
	// AttrRealm names the realm the query runs in.
	AttrRealm Attribute = "realm"
	// AttrMemberOf lists backend-resolved group membership.
	AttrMemberOf Attribute = "memberof"
	// AttrProfile names the backend-assigned user profile.
	AttrProfile Attribute = "tacprofile"
	// AttrUserResponse is free text the backend wants shown to the user.
	AttrUserResponse Attribute = "user-response"
	// AttrDBPassword is a cleartext credential returned by info queries
	// for local comparison.
	AttrDBPassword Attribute = "dbpassword"
	// AttrPasswordMustChange flags a forced password change ("1").
	AttrPasswordMustChange Attribute = "password-mustchange"
	// AttrPasswordOneshot flags a one-time password ("1").
	AttrPasswordOneshot Attribute = "password-oneshot"
	// AttrSerial is the caller-assigned correlation id for deferred
	// completion.
	AttrSerial Attribute = "serial"
)

// Verdict values carried in [AttrResult].
const (
	ResultACK      = "ACK"
	ResultNAK      = "NAK"
	ResultError    = "ERR"
	ResultNotFound = "NFD"
)

// Query is one request to the backend chain: a kind plus an open
// attribute set with a single string value per known key.
type Query struct {
	Type  Type
	attrs map[Attribute]string
}

// NewQuery creates a query of the given type correlated to serial.
func NewQuery(t Type, serial string) *Query {
	q := &Query{
		Type:  t,
		attrs: make(map[Attribute]string, 8),
	}
	if serial != "" {
		q.attrs[AttrSerial] = serial
	}
	return q
}

// Get returns the attribute value and whether it is set.
func (q *Query) Get(a Attribute) (string, bool) {
	v, ok := q.attrs[a]
	return v, ok
}

// Value returns the attribute value, or "" when unset.
func (q *Query) Value(a Attribute) string {
	return q.attrs[a]
}

// Set stores an attribute value, replacing any previous one.
func (q *Query) Set(a Attribute, v string) *Query {
	q.attrs[a] = v
	return q
}

// Unset removes an attribute.
func (q *Query) Unset(a Attribute) {
	delete(q.attrs, a)
}

// Serial returns the correlation id assigned at creation.
func (q *Query) Serial() string {
	return q.attrs[AttrSerial]
}

// Module is one backend capability in the chain.
type Module interface {
	Handle(ctx context.Context, q *Query) (Outcome, error)
}

// Completer receives deferred answers. Implementations must tolerate a
// serial that no longer maps to a live session: answers arriving after
// session teardown are discarded without fault.
type Completer interface {
	CompleteBackend(ctx context.Context, serial string, q *Query)
}

// Chain is an ordered module list implementing [Module] itself.
// Modules answering Ignore or Down delegate to the next entry; the
// first other outcome wins. A chain that runs out of modules reports
// Ignore.
type Chain struct {
	modules []Module
}

// NewChain builds a chain in evaluation order.
func NewChain(modules ...Module) *Chain {
	return &Chain{modules: modules}
}

// Handle walks the chain until a module produces a decisive outcome.
func (c *Chain) Handle(ctx context.Context, q *Query) (Outcome, error) {
	if c == nil {
		return Ignore, nil
	}
	for _, m := range c.modules {
		outcome, err := m.Handle(ctx, q)
		switch outcome {
		case Ignore, Down:
			continue
		default:
			return outcome, err
		}
	}
	return Ignore, nil
}
