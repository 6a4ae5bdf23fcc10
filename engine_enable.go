package goTacAuth

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/goTacAuth/credential"
)

// doEnable handles privilege escalation. Depending on host policy it
// runs as a bare password check against the enable credential, chains
// into a full login dialog when the enable record is login-typed, or
// detours through the enforced or augmented identification dialogs.
func (e *Engine) doEnable(ctx context.Context, s *session) {
	action := fmt.Sprintf("enable %d", s.privLvl)

	if e.config.Host.AugmentedEnable && e.enableACLPermits(ctx, s) {
		s.username = ""
		s.handler = e.doEnableAugmented
		e.doEnableAugmented(ctx, s)
		return
	}

	if (s.username == "" || e.enableACLPermits(ctx, s)) &&
		!s.enableGetUser && !e.config.Host.AnonymousEnable {
		s.enableGetUser = true
		s.username = ""
		s.handler = e.doEnableGetUser
		e.doEnableGetUser(ctx, s)
		return
	}

	if !e.resolveUser(ctx, s, action) {
		return
	}
	if e.queryMavisInfo(ctx, s) {
		return
	}

	if s.enable == nil {
		s.enable = e.enableRecord(s)
	}

	status := credential.StatusFail
	hint := HintNoSuchUser

	if s.enable != nil && s.enableGetUser && s.enable.Kind == credential.KindPermit {
		// The user just re-authenticated through the enforced dialog;
		// a permit-typed enable record needs nothing more.
		status = credential.StatusPass
		hint = HintPermitted
	} else {
		if s.user != nil && s.enable != nil && s.enable.Kind == credential.KindLogin {
			s.flagAuthQueried = false
			s.handler = e.doEnableLogin
			e.doEnableLogin(ctx, s)
			return
		}
		if (s.enable == nil || s.enable.Kind != credential.KindPermit) && s.contMsg == nil {
			msg := "Password: "
			if s.enableGetUser {
				msg = "Enable Password: "
			}
			e.sendReply(ctx, s, Reply{Status: ReplyGetPass, Message: msg, NoEcho: true})
			return
		}
		if s.enable == nil {
			hint = HintBug
		} else {
			var supplied string
			if s.contMsg != nil {
				supplied = *s.contMsg
				s.contMsg = nil
			}
			status, hint = credential.Compare(*s.enable, supplied)
		}
	}

	e.reportAuth(ctx, s, action, hint, status)
	if status == credential.StatusPass {
		e.sendReply(ctx, s, Reply{Status: ReplyPass})
		return
	}
	e.sendReply(ctx, s, Reply{Status: ReplyFail, Message: "Permission denied."})
}

func (e *Engine) enableACLPermits(ctx context.Context, s *session) bool {
	return e.acl != nil && e.acl.EnableACL(ctx, e.aclRequest(s, "")) == DecisionPermit
}

// doEnableLogin re-verifies the user's login credential when the enable
// record is login-typed.
func (e *Engine) doEnableLogin(ctx context.Context, s *session) {
	action := fmt.Sprintf("enable %d", s.privLvl)

	if !e.resolveUser(ctx, s, action) {
		return
	}
	if e.queryMavisInfoLogin(ctx, s) {
		return
	}

	rec, slot := e.passwordRecord(s, SlotLogin)

	if s.contMsg != nil {
		s.password = *s.contMsg
		s.passwordSet = true
		s.contMsg = nil
		if e.passwordRequirementsFailed(ctx, s, action, s.password) {
			return
		}
	}
	if !s.passwordSet {
		s.welcomeShown = true
		e.sendPasswordPrompt(ctx, s, slot)
		return
	}

	rec, slot = e.passwordRecord(s, SlotLogin)
	if e.queryMavisAuthLogin(ctx, s, slot) {
		return
	}

	status, hint, resp := e.checkAccess(ctx, s, rec, s.password)
	if resp == "" {
		resp = "Permission denied."
	}

	e.reportAuth(ctx, s, action, hint, status)
	if status == credential.StatusPass {
		e.sendReply(ctx, s, Reply{Status: ReplyPass})
		return
	}
	e.sendReply(ctx, s, Reply{Status: ReplyFail, Message: resp})
}

// doEnableGetUser forces a full username/password identification before
// the actual enable check when anonymous enable is disabled. On success
// it chains back into doEnable.
func (e *Engine) doEnableGetUser(ctx context.Context, s *session) {
	if s.username == "" && s.contMsg != nil {
		s.username = *s.contMsg
		s.contMsg = nil
	}
	if s.username == "" {
		e.sendReply(ctx, s, Reply{
			Status:  ReplyGetUser,
			Message: e.welcomeBanner(ctx, s) + "Username: ",
		})
		return
	}

	if !e.resolveUser(ctx, s, "enforced enable login") {
		return
	}
	if e.queryMavisInfoLogin(ctx, s) {
		return
	}

	rec, slot := e.passwordRecord(s, SlotLogin)

	if s.contMsg != nil {
		s.password = *s.contMsg
		s.passwordSet = true
		s.contMsg = nil
		if e.passwordRequirementsFailed(ctx, s, "enforced enable login", s.password) {
			return
		}
	}
	if !s.passwordSet {
		e.sendPasswordPrompt(ctx, s, slot)
		return
	}

	rec, slot = e.passwordRecord(s, SlotLogin)
	if e.queryMavisAuthLogin(ctx, s, slot) {
		return
	}

	status, hint, resp := e.checkAccess(ctx, s, rec, s.password)
	if status == credential.StatusPass {
		s.contMsg = nil
		s.backendStatusValid = false
		s.handler = e.doEnable
		e.doEnable(ctx, s)
		return
	}
	if resp == "" {
		resp = "Password incorrect.\n"
	}
	e.reportAuth(ctx, s, "enforced enable login", hint, status)
	e.sendReply(ctx, s, Reply{Status: ReplyFail, Message: resp})
}

// doEnableAugmented prompts for a fresh "username password" pair scoped
// to the target privilege level. Only login-typed enable records can
// satisfy it; anything else is a profile mismatch, not a bad password.
func (e *Engine) doEnableAugmented(ctx context.Context, s *session) {
	action := "enable login"

	if !e.resolveUser(ctx, s, action) {
		return
	}
	if e.queryMavisInfoLogin(ctx, s) {
		return
	}

	if (s.enable == nil || s.enable.Kind != credential.KindPermit) && s.contMsg == nil && !s.passwordSet {
		e.sendReply(ctx, s, Reply{Status: ReplyGetPass, Message: "Password: ", NoEcho: true})
		return
	}

	if s.contMsg != nil {
		msg := *s.contMsg
		s.contMsg = nil
		if i := strings.IndexByte(msg, ' '); i > 0 {
			s.username = msg[:i]
			s.password = msg[i+1:]
			s.passwordSet = true
			if e.passwordRequirementsFailed(ctx, s, action, s.password) {
				return
			}
			if !e.resolveUser(ctx, s, action) {
				return
			}
		}
	}

	status := credential.StatusFail
	hint := HintNoSuchUser
	resp := "Permission denied."

	if s.username != "" {
		rec, slot := e.passwordRecord(s, SlotLogin)
		if e.queryMavisAuthLogin(ctx, s, slot) {
			return
		}
		if s.enable == nil {
			s.enable = e.enableRecord(s)
		}
		switch {
		case s.enable == nil:
			hint = HintBug
		case s.enable.Kind != credential.KindLogin:
			hint = HintDeniedProfile
		default:
			var r string
			status, hint, r = e.checkAccess(ctx, s, rec, s.password)
			if r != "" {
				resp = r
			}
		}
	}

	e.reportAuth(ctx, s, action, hint, status)
	if status == credential.StatusPass {
		e.sendReply(ctx, s, Reply{Status: ReplyPass})
		return
	}
	e.sendReply(ctx, s, Reply{Status: ReplyFail, Message: resp})
}
