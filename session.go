package goTacAuth

import (
	"context"

	"github.com/MrEthical07/goTacAuth/credential"
)

// handlerFunc is one method state machine. Handlers are re-invoked from
// their entry point on every client round trip and every backend
// completion; they re-derive their position purely from which session
// fields are populated and which query flags are set.
type handlerFunc func(ctx context.Context, s *session)

// session is the mutable per-exchange record. It is created on START,
// destroyed on the terminal reply (or abort/teardown), and is the only
// persistent memory a handler has across re-entries. Each session must
// be driven sequentially; the engine never runs two invocations of the
// same session concurrently as long as the transport delivers one
// packet at a time per connection.
type session struct {
	id    string
	realm string

	username     string
	nasPort      string
	remoteAddr   string
	nasAddr      string
	privLvl      uint8
	minorVersion uint8
	seq          int

	// password fields carry an explicit presence bit: "submitted and
	// empty" and "not submitted yet" drive different dialog steps.
	password       string
	passwordSet    bool
	passwordNew     string
	passwordNewSet  bool
	passwordRetyped bool

	// passwordBad remembers the last failed password so a NAS-side
	// retransmit of the identical value can be failed without another
	// backend query.
	passwordBad      string
	passwordBadSet   bool
	passwordBadAgain bool

	// contMsg/data are the continuation payloads of the most recent
	// packet. Handlers consume contMsg by setting it to nil.
	contMsg *string
	data    []byte

	user      *UserRecord
	passwords map[Slot]credential.Record
	enable    *credential.Record

	enableGetUser      bool
	chpassAction       bool
	passwordMustChange bool

	challenge       string
	challengeDialog bool
	welcomeShown    bool
	userMsg         string

	// Query flags are write-once per session: once set they are never
	// cleared, except flagAuthQueried which is re-armed only when a new
	// password prompt starts a fresh attempt.
	flagInfoQueried   bool
	flagAuthQueried   bool
	flagChalQueried   bool
	flagThrottleCheck bool

	// At most one backend query may be outstanding.
	backendPending     bool
	backendStatus      credential.Status
	backendStatusValid bool

	iterations int
	handler    handlerFunc

	// Output fields consumed by the outcome reporter.
	reported   bool
	done       bool
	lastAction string
	lastHint   string
	lastMsgID  string
	lastResult string
}
