package goTacAuth

import (
	"context"

	"github.com/MrEthical07/goTacAuth/credential"
)

// doCHAP verifies a CHAP start. The data field carries the one-byte
// identifier, the variable-length challenge, and the 16-byte digest.
// CHAP can only ever be checked against a stored cleartext secret; any
// other record kind is reported as such instead of silently failing.
func (e *Engine) doCHAP(ctx context.Context, s *session) {
	if !e.resolveUser(ctx, s, "chap login") {
		return
	}
	if e.queryMavisInfo(ctx, s) {
		return
	}

	status := credential.StatusFail
	hint := HintNoSuchUser

	if s.user != nil {
		rec, _ := e.passwordRecord(s, SlotCHAP)
		switch {
		case !s.user.valid(e.now()):
			hint = HintExpired
		case rec.Kind != credential.KindClear:
			hint = HintNoCleartext
		case len(s.data) <= 1+credential.CHAPDigestLen:
			hint = HintInvalidChallengeLength
		default:
			id := s.data[0]
			challenge := s.data[1 : len(s.data)-credential.CHAPDigestLen]
			digest := s.data[len(s.data)-credential.CHAPDigestLen:]
			if credential.VerifyCHAP(id, rec.Value, challenge, digest) {
				status = credential.StatusPass
				hint = HintSucceeded
			} else {
				hint = HintFailed
			}
		}
	}

	e.finishSimple(ctx, s, "chap login", status, hint, "")
}
