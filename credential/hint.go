package credential

// Hint is the closed enumeration of outcome reasons attached to every
// terminal verification result. The hint is part of the audit contract:
// each value maps to a fixed human-readable text and a stable message id.
type Hint uint8

const (
	// HintFailed is the generic credential-mismatch outcome.
	HintFailed Hint = iota
	// HintDenied is produced by an always-deny credential record.
	HintDenied
	// HintNoPassword means no credential is set for the selected slot.
	HintNoPassword
	// HintExpired means the account validity window excluded the attempt.
	HintExpired
	// HintNoSuchUser means user lookup found nothing in the realm.
	HintNoSuchUser
	// HintSucceeded is the generic success outcome.
	HintSucceeded
	// HintPermitted is produced by an always-permit credential record.
	HintPermitted
	// HintNoCleartext means the method needs a cleartext-comparable secret
	// but the stored credential is a hash.
	HintNoCleartext
	// HintBackendError means the external backend could not answer.
	HintBackendError
	// HintDeniedProfile means the user profile excluded the operation.
	HintDeniedProfile
	// HintFailedPasswordRetry marks a client-side retransmit of a password
	// that already failed in this session.
	HintFailedPasswordRetry
	// HintBug marks an operator misconfiguration or internal inconsistency.
	HintBug
	// HintAbort means the client aborted the exchange.
	HintAbort
	// HintDeniedByACL means an access-control rule denied the attempt.
	HintDeniedByACL
	// HintInvalidChallengeLength means the challenge/response buffer did not
	// have the exact length the method requires.
	HintInvalidChallengeLength
	// HintWeakPassword means the supplied password failed the minimum
	// password-requirements policy.
	HintWeakPassword

	hintCount
)

type hintEntry struct {
	text  string
	msgID string
}

var hintTable = [hintCount]hintEntry{
	HintFailed:                 {"failed", "AUTHCFAIL"},
	HintDenied:                 {"failed (denied)", "AUTHCFAIL-DENY"},
	HintNoPassword:             {"failed (password not set)", "AUTHCFAIL-NOPASS"},
	HintExpired:                {"failed (expired)", "AUTHCFAIL-EXPIRED"},
	HintNoSuchUser:             {"failed (no such user)", "AUTHCFAIL-NOUSER"},
	HintSucceeded:              {"succeeded", "AUTHCPASS"},
	HintPermitted:              {"succeeded (permitted)", "AUTHCPASS-PERMIT"},
	HintNoCleartext:            {"failed (no clear text password set)", "AUTHCFAIL-PASSWORD-NOT-TEXT"},
	HintBackendError:           {"failed (backend error)", "AUTHCFAIL-BACKEND"},
	HintDeniedProfile:          {"denied by user profile", "AUTHCFAIL-USERPROFILE"},
	HintFailedPasswordRetry:    {"failed (retry with identical password)", "AUTHCFAIL-DENY-RETRY"},
	HintBug:                    {"failed (this might be a bug, consider reporting it)", "AUTHCFAIL-BUG"},
	HintAbort:                  {"aborted by request", "AUTHCFAIL-ABORT"},
	HintDeniedByACL:            {"denied by ACL", "AUTHCFAIL-ACL"},
	HintInvalidChallengeLength: {"denied (invalid challenge length)", "AUTHCFAIL-BAD-CHALLENGE-LENGTH"},
	HintWeakPassword:           {"denied (minimum password requirements not met)", "AUTHCFAIL-WEAKPASSWORD"},
}

// Text returns the human-readable form of the hint.
func (h Hint) Text() string {
	if h >= hintCount {
		return hintTable[HintBug].text
	}
	return hintTable[h].text
}

// MsgID returns the stable machine-readable message id of the hint.
func (h Hint) MsgID() string {
	if h >= hintCount {
		return hintTable[HintBug].msgID
	}
	return hintTable[h].msgID
}

// String implements fmt.Stringer using the message id.
func (h Hint) String() string {
	return h.MsgID()
}
