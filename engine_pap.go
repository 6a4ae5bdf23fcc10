package goTacAuth

import (
	"context"

	"github.com/MrEthical07/goTacAuth/credential"
)

// doPAP verifies a PAP start. With minor version one the password
// arrives in the start data; with the default minor version the engine
// prompts for it on a second round trip. The realm can remap the whole
// method onto the login credential set.
func (e *Engine) doPAP(ctx context.Context, s *session) {
	if e.config.Realm.MapPAPToLogin {
		e.doLogin(ctx, s)
		return
	}

	if !s.passwordSet {
		if s.minorVersion == MinorVersionOne {
			s.password = string(s.data)
			s.passwordSet = true
			s.data = nil
		} else if s.contMsg != nil {
			s.password = *s.contMsg
			s.passwordSet = true
			s.contMsg = nil
		}
		if s.passwordSet && e.passwordRequirementsFailed(ctx, s, "pap login", s.password) {
			return
		}
	}
	if !s.passwordSet {
		e.sendReply(ctx, s, Reply{Status: ReplyGetPass, Message: "Password: ", NoEcho: true})
		return
	}

	if !e.resolveUser(ctx, s, "pap login") {
		return
	}
	if e.queryMavisInfoPAP(ctx, s) {
		return
	}
	rec, slot := e.passwordRecord(s, SlotPAP)
	if e.queryMavisAuthPAP(ctx, s, slot) {
		return
	}

	status, hint, resp := e.checkAccess(ctx, s, rec, s.password)
	if status == credential.StatusPass && resp == "" {
		resp = e.motdBanner(s)
	}
	e.finishSimple(ctx, s, "pap login", status, hint, resp)
}
