package credential

import "crypto/subtle"

// Kind tags the payload of a credential [Record].
type Kind uint8

const (
	// KindUnset means no credential has been configured for the slot.
	KindUnset Kind = iota
	// KindClear is a cleartext secret compared byte for byte.
	KindClear
	// KindCrypt is a salted hash carrying its scheme marker in the value.
	KindCrypt
	// KindPermit accepts any supplied secret, including an empty one.
	KindPermit
	// KindDeny rejects any supplied secret.
	KindDeny
	// KindLogin redirects the slot to the LOGIN slot. Must be resolved
	// before comparison; resolution is single-hop.
	KindLogin
	// KindMavis delegates verification to the external backend. Must be
	// resolved before comparison.
	KindMavis
)

// String implements fmt.Stringer. The credential value is deliberately
// not part of the output.
func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "unset"
	case KindClear:
		return "clear"
	case KindCrypt:
		return "crypt"
	case KindPermit:
		return "permit"
	case KindDeny:
		return "deny"
	case KindLogin:
		return "login"
	case KindMavis:
		return "mavis"
	}
	return "invalid"
}

// Record is a stored credential: a kind tag plus its payload. For
// KindClear the value is the secret itself; for KindCrypt it is a
// scheme-marked hash string; for the sentinel kinds it is empty.
type Record struct {
	Kind  Kind
	Value string
}

// IsSet reports whether the record carries a usable credential kind.
func (r Record) IsSet() bool {
	return r.Kind != KindUnset
}

// Status is the three-valued result of a verification step. The engine
// must distinguish Error ("backend could not answer") from Fail ("the
// secret was wrong"): only the former triggers fallback policy.
type Status uint8

const (
	// StatusFail is a definite rejection.
	StatusFail Status = iota
	// StatusPass is a definite acceptance.
	StatusPass
	// StatusError means verification could not be performed.
	StatusError
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusFail:
		return "fail"
	case StatusPass:
		return "pass"
	case StatusError:
		return "error"
	}
	return "invalid"
}

// Compare checks a supplied secret against a stored record. It is pure
// and deterministic; calling it twice with the same inputs yields the
// same result. Indirection kinds (KindLogin, KindMavis) must have been
// resolved by the caller; seeing one here is a configuration bug.
func Compare(rec Record, supplied string) (Status, Hint) {
	switch rec.Kind {
	case KindClear:
		if subtle.ConstantTimeCompare([]byte(rec.Value), []byte(supplied)) == 1 {
			return StatusPass, HintSucceeded
		}
		return StatusFail, HintFailed
	case KindCrypt:
		ok, err := verifyCrypt(rec.Value, supplied)
		if err != nil {
			return StatusFail, HintBug
		}
		if ok {
			return StatusPass, HintSucceeded
		}
		return StatusFail, HintFailed
	case KindPermit:
		return StatusPass, HintPermitted
	case KindDeny:
		return StatusFail, HintDenied
	case KindUnset:
		return StatusFail, HintNoPassword
	}
	return StatusFail, HintBug
}
