package goTacAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/goTacAuth/credential"
	"github.com/MrEthical07/goTacAuth/mavis"
)

// Hint is the closed enumeration of terminal outcome reasons. It is an
// alias for the credential package's type so pure verification code and
// engine code share one taxonomy.
type Hint = credential.Hint

// The full hint taxonomy, re-exported so callers of the engine never
// need to import the credential package for outcome inspection.
const (
	HintFailed                 = credential.HintFailed
	HintDenied                 = credential.HintDenied
	HintNoPassword             = credential.HintNoPassword
	HintExpired                = credential.HintExpired
	HintNoSuchUser             = credential.HintNoSuchUser
	HintSucceeded              = credential.HintSucceeded
	HintPermitted              = credential.HintPermitted
	HintNoCleartext            = credential.HintNoCleartext
	HintBackendError           = credential.HintBackendError
	HintDeniedProfile          = credential.HintDeniedProfile
	HintFailedPasswordRetry    = credential.HintFailedPasswordRetry
	HintBug                    = credential.HintBug
	HintAbort                  = credential.HintAbort
	HintDeniedByACL            = credential.HintDeniedByACL
	HintInvalidChallengeLength = credential.HintInvalidChallengeLength
	HintWeakPassword           = credential.HintWeakPassword
)

// VerifyStatus is the three-valued credential verification result.
type VerifyStatus = credential.Status

// AuthenAction is the START packet action field.
type AuthenAction uint8

const (
	// ActionLogin is an authentication attempt.
	ActionLogin AuthenAction = 0x01
	// ActionChangePassword is a client-initiated password change dialog.
	ActionChangePassword AuthenAction = 0x02
)

// AuthenService is the START packet service field.
type AuthenService uint8

const (
	// ServiceNone is an exported constant used by the AUTHEN dispatcher.
	ServiceNone AuthenService = 0x00
	// ServiceLogin is an exported constant used by the AUTHEN dispatcher.
	ServiceLogin AuthenService = 0x01
	// ServiceEnable is an exported constant used by the AUTHEN dispatcher.
	ServiceEnable AuthenService = 0x02
	// ServicePPP is an exported constant used by the AUTHEN dispatcher.
	ServicePPP AuthenService = 0x03
)

// AuthenType is the START packet authentication type field.
type AuthenType uint8

const (
	// TypeASCII is an exported constant used by the AUTHEN dispatcher.
	TypeASCII AuthenType = 0x01
	// TypePAP is an exported constant used by the AUTHEN dispatcher.
	TypePAP AuthenType = 0x02
	// TypeCHAP is an exported constant used by the AUTHEN dispatcher.
	TypeCHAP AuthenType = 0x03
	// TypeMSCHAP is an exported constant used by the AUTHEN dispatcher.
	TypeMSCHAP AuthenType = 0x05
	// TypeMSCHAPv2 is an exported constant used by the AUTHEN dispatcher.
	TypeMSCHAPv2 AuthenType = 0x06
)

// Protocol minor versions. CHAP and MS-CHAP starts require MinorVersionOne.
const (
	MinorVersionDefault uint8 = 0x00
	MinorVersionOne     uint8 = 0x01
)

// startFixedFieldsSize and contFixedFieldsSize are the fixed-field byte
// counts of the respective packet bodies, used for the declared-length
// consistency check.
const (
	startFixedFieldsSize = 8
	contFixedFieldsSize  = 5
)

// StartPacket is a parsed AUTHEN START body as delivered by the packet
// transport. DeclaredLength is the total body length the client
// declared; when nonzero the engine verifies the variable-length
// sub-fields actually fit inside it before any handler runs.
type StartPacket struct {
	Action         AuthenAction
	PrivLvl        uint8
	Type           AuthenType
	Service        AuthenService
	MinorVersion   uint8
	DeclaredLength int
	Username       string
	Port           string
	RemoteAddr     string
	Data           []byte
}

// fieldsFitDeclaredLength reports whether the variable-length sub-field
// sum is consistent with the declared total body length. A zero
// DeclaredLength means the transport already performed the check.
func (p *StartPacket) fieldsFitDeclaredLength() bool {
	if p.DeclaredLength == 0 {
		return true
	}
	need := startFixedFieldsSize + len(p.Username) + len(p.Port) + len(p.RemoteAddr) + len(p.Data)
	return need <= p.DeclaredLength
}

// ContinuePacket is a parsed AUTHEN CONTINUE body.
type ContinuePacket struct {
	Abort          bool
	DeclaredLength int
	Message        string
	Data           []byte
}

func (p *ContinuePacket) fieldsFitDeclaredLength() bool {
	if p.DeclaredLength == 0 {
		return true
	}
	need := contFixedFieldsSize + len(p.Message) + len(p.Data)
	return need <= p.DeclaredLength
}

// ReplyStatus is the status field of an AUTHEN reply. Pass, Fail, and
// Error are terminal; the Get* statuses request another client round
// trip.
type ReplyStatus uint8

const (
	// ReplyPass is an exported constant used by reply emission.
	ReplyPass ReplyStatus = 0x01
	// ReplyFail is an exported constant used by reply emission.
	ReplyFail ReplyStatus = 0x02
	// ReplyGetData is an exported constant used by reply emission.
	ReplyGetData ReplyStatus = 0x03
	// ReplyGetUser is an exported constant used by reply emission.
	ReplyGetUser ReplyStatus = 0x04
	// ReplyGetPass is an exported constant used by reply emission.
	ReplyGetPass ReplyStatus = 0x05
	// ReplyError is an exported constant used by reply emission.
	ReplyError ReplyStatus = 0x07
)

// Terminal reports whether the status ends the exchange.
func (s ReplyStatus) Terminal() bool {
	return s == ReplyPass || s == ReplyFail || s == ReplyError
}

// Reply is one outbound AUTHEN reply. Exactly one reply is emitted per
// handler invocation that does not suspend on a backend query.
type Reply struct {
	Status  ReplyStatus
	Message string
	NoEcho  bool
}

// ReplyWriter is implemented by the packet transport. The engine calls
// it once per prompt or terminal transition of a session.
type ReplyWriter interface {
	WriteReply(ctx context.Context, sessionID string, reply Reply) error
}

// Slot addresses a per-method credential record on a user.
type Slot uint8

const (
	// SlotLogin is an exported constant addressing the LOGIN credential.
	SlotLogin Slot = iota
	// SlotPAP is an exported constant addressing the PAP credential.
	SlotPAP
	// SlotCHAP is an exported constant addressing the CHAP credential.
	SlotCHAP
	// SlotMSCHAP is an exported constant addressing the MSCHAP credential.
	SlotMSCHAP
	// SlotMavis is an exported constant addressing the backend credential.
	SlotMavis

	slotCount
)

// String implements fmt.Stringer.
func (s Slot) String() string {
	switch s {
	case SlotLogin:
		return "login"
	case SlotPAP:
		return "pap"
	case SlotCHAP:
		return "chap"
	case SlotMSCHAP:
		return "mschap"
	case SlotMavis:
		return "mavis"
	}
	return "invalid"
}

// Tristate is a three-valued behavioral flag: unset inherits the
// surrounding default.
type Tristate uint8

const (
	// TristateUnset is an exported constant or variable used by the
	// authentication engine.
	TristateUnset Tristate = iota
	// TristateNo is an exported constant or variable used by the
	// authentication engine.
	TristateNo
	// TristateYes is an exported constant or variable used by the
	// authentication engine.
	TristateYes
)

// UserRecord is the read-only account record the engine authenticates
// against. Zero ValidFrom/ValidUntil mean an unbounded validity window.
type UserRecord struct {
	Name       string
	Profile    string
	MemberOf   []string
	ValidFrom  time.Time
	ValidUntil time.Time

	// Passwords holds per-slot credential records. A missing slot is
	// treated as KindUnset.
	Passwords map[Slot]credential.Record
	// Enable holds per-privilege-level enable credentials.
	Enable map[uint8]credential.Record

	// FallbackOnly users are only eligible while the realm is in
	// backend-failure fallback mode.
	FallbackOnly bool

	ChalResp           Tristate
	HushLogin          Tristate
	PasswordOneshot    bool
	PasswordMustChange bool

	// sessionSpecific marks records synthesized from a backend info
	// answer; they live and die with one session.
	sessionSpecific bool
}

// Password returns the credential record for a slot, KindUnset when the
// slot is not configured.
func (u *UserRecord) Password(slot Slot) credential.Record {
	if u == nil || u.Passwords == nil {
		return credential.Record{}
	}
	return u.Passwords[slot]
}

// valid reports whether now falls inside the account validity window.
func (u *UserRecord) valid(now time.Time) bool {
	if u == nil {
		return false
	}
	if !u.ValidFrom.IsZero() && now.Before(u.ValidFrom) {
		return false
	}
	if !u.ValidUntil.IsZero() && !now.Before(u.ValidUntil) {
		return false
	}
	return true
}

// UserDirectory is the realm/user configuration store collaborator.
// A nil record with a nil error is the normal "no such user" outcome.
type UserDirectory interface {
	LookupUser(ctx context.Context, realm, username string) (*UserRecord, error)
}

// Decision is an access-control verdict. DecisionNone means no rule
// matched; callers fall through to their default.
type Decision uint8

const (
	// DecisionNone is an exported constant used by ACL evaluation.
	DecisionNone Decision = iota
	// DecisionPermit is an exported constant used by ACL evaluation.
	DecisionPermit
	// DecisionDeny is an exported constant used by ACL evaluation.
	DecisionDeny
)

// ACLRequest is the session context handed to the ACL evaluator.
// SuppliedPassword is populated only for PasswordACL calls.
type ACLRequest struct {
	SessionID        string
	Realm            string
	Username         string
	NASPort          string
	RemoteAddr       string
	PrivLvl          uint8
	SuppliedPassword string
}

// ACLEvaluator is the access-control collaborator. A nil evaluator is
// equivalent to one returning DecisionNone everywhere.
type ACLEvaluator interface {
	// HostACL is the pre-authentication host chain; DecisionDeny
	// short-circuits before user lookup completes.
	HostACL(ctx context.Context, req ACLRequest) Decision
	// AuthorizationACL is the realm ruleset evaluated after credential
	// verification; DecisionDeny overrides a verifier pass.
	AuthorizationACL(ctx context.Context, req ACLRequest) Decision
	// PasswordACL enforces minimum password requirements on captured
	// secrets.
	PasswordACL(ctx context.Context, req ACLRequest) Decision
	// EnableACL gates eligibility for the augmented and enforced
	// enable dialogs.
	EnableACL(ctx context.Context, req ACLRequest) Decision
}

// UsernameRewriter optionally canonicalizes a username before lookup.
type UsernameRewriter func(username string) string

// BackendChain is the deferred-capable backend collaborator. Both a
// single mavis.Module and a mavis.Chain satisfy it.
type BackendChain interface {
	Handle(ctx context.Context, q *mavis.Query) (mavis.Outcome, error)
}
