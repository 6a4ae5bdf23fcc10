package goTacAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/goTacAuth/credential"
)

// doMSCHAP verifies an MS-CHAPv1 start: identifier, 8-byte challenge,
// and a 49-byte response blob holding the LM and NT responses plus the
// use-NT flag. Malformed blobs are rejected before any hashing runs.
func (e *Engine) doMSCHAP(ctx context.Context, s *session) {
	e.doMSCHAPCommon(ctx, s, "ms-chap login", func(rec credential.Record) (bool, error) {
		return credential.VerifyMSCHAP(s.data, rec.Value)
	})
}

// doMSCHAPv2 verifies an MS-CHAPv2 start: identifier, 16-byte
// authenticator challenge, and a 49-byte response whose reserved bytes
// must be zero.
func (e *Engine) doMSCHAPv2(ctx context.Context, s *session) {
	e.doMSCHAPCommon(ctx, s, "ms-chapv2 login", func(rec credential.Record) (bool, error) {
		return credential.VerifyMSCHAPv2(s.data, s.username, rec.Value)
	})
}

func (e *Engine) doMSCHAPCommon(ctx context.Context, s *session, action string, verify func(credential.Record) (bool, error)) {
	if !e.resolveUser(ctx, s, action) {
		return
	}
	if e.queryMavisInfo(ctx, s) {
		return
	}

	status := credential.StatusFail
	hint := HintNoSuchUser

	if s.user != nil {
		rec, _ := e.passwordRecord(s, SlotMSCHAP)
		switch {
		case !s.user.valid(e.now()):
			hint = HintExpired
		case rec.Kind != credential.KindClear:
			hint = HintNoCleartext
		default:
			ok, err := verify(rec)
			switch {
			case errors.Is(err, credential.ErrResponseLength) || errors.Is(err, credential.ErrReservedBytes):
				hint = HintInvalidChallengeLength
			case err != nil:
				hint = HintBug
			case ok:
				status = credential.StatusPass
				hint = HintSucceeded
			default:
				hint = HintFailed
			}
		}
	}

	e.finishSimple(ctx, s, action, status, hint, "")
}
