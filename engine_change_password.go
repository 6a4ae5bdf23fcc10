package goTacAuth

import (
	"context"

	"github.com/MrEthical07/goTacAuth/credential"
)

// doChangePassword runs the four-round password change dialog: old
// password, new password, retype. It is entered three ways: directly
// from a change-password START, from the login dialog when the user
// submits an empty password, and after a successful login whose account
// is flagged must-change. An empty old or new password aborts the
// dialog; a retype mismatch fails it without burning a login attempt.
func (e *Engine) doChangePassword(ctx context.Context, s *session) {
	const action = "password change"

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

	if !s.passwordSet {
		if s.contMsg != nil {
			s.password = *s.contMsg
			s.passwordSet = true
			s.contMsg = nil
		} else {
			e.sendReply(ctx, s, Reply{
				Status:  ReplyGetData,
				Message: s.userMsg + "Old password: ",
				NoEcho:  true,
			})
			s.userMsg = ""
			return
		}
	}
	if s.password == "" {
		e.reportAuth(ctx, s, action, HintAbort, credential.StatusFail)
		e.sendReply(ctx, s, Reply{Status: ReplyFail, Message: "Password change dialog aborted.\n"})
		return
	}

	if !s.passwordNewSet {
		if s.contMsg != nil {
			s.passwordNew = *s.contMsg
			s.passwordNewSet = true
			s.contMsg = nil
			if e.passwordRequirementsFailed(ctx, s, action, s.passwordNew) {
				return
			}
		} else {
			e.sendReply(ctx, s, Reply{
				Status:  e.chpassPromptStatus(s),
				Message: s.userMsg + "New password: ",
				NoEcho:  true,
			})
			s.userMsg = ""
			return
		}
	}
	if s.passwordNew == "" {
		e.reportAuth(ctx, s, action, HintAbort, credential.StatusFail)
		e.sendReply(ctx, s, Reply{Status: ReplyFail, Message: "Password change dialog aborted.\n"})
		return
	}

	if !s.passwordRetyped {
		if s.contMsg == nil {
			e.sendReply(ctx, s, Reply{
				Status:  e.chpassPromptStatus(s),
				Message: "Retype new password: ",
				NoEcho:  true,
			})
			return
		}
		retyped := *s.contMsg
		s.contMsg = nil
		if retyped != s.passwordNew {
			e.metrics.Inc(MetricPasswordChangeFailure)
			e.reportAuth(ctx, s, action, HintFailed, credential.StatusFail)
			e.sendReply(ctx, s, Reply{Status: ReplyFail, Message: "Passwords do not match.\n"})
			return
		}
		s.passwordRetyped = true
	}

	if !e.resolveUser(ctx, s, action) {
		return
	}
	if e.queryMavisInfoLogin(ctx, s) {
		return
	}

	rec, slot := e.passwordRecord(s, SlotLogin)
	if e.queryMavisChangePassword(ctx, s, slot) {
		return
	}

	status, hint, resp := e.checkAccess(ctx, s, rec, s.passwordNew)

	switch status {
	case credential.StatusError:
		e.metrics.Inc(MetricPasswordChangeFailure)
		e.reportAuth(ctx, s, action, hint, status)
		e.sendAuthenError(ctx, s, "")
	case credential.StatusPass:
		s.passwordMustChange = false
		e.metrics.Inc(MetricPasswordChangeSuccess)
		e.reportAuth(ctx, s, action, hint, status)
		if resp == "" {
			resp = "Password change succeeded.\n"
		}
		e.sendReply(ctx, s, Reply{Status: ReplyPass, Message: resp})
	default:
		e.metrics.Inc(MetricPasswordChangeFailure)
		e.reportAuth(ctx, s, action, hint, status)
		if resp == "" {
			resp = "Password change failed.\n"
		}
		e.sendReply(ctx, s, Reply{Status: ReplyFail, Message: resp})
	}
}

// chpassPromptStatus picks the prompt status for the new-password
// rounds: a change-password START uses GETPASS, the in-login detour
// uses GETDATA.
func (e *Engine) chpassPromptStatus(s *session) ReplyStatus {
	if s.chpassAction {
		return ReplyGetPass
	}
	return ReplyGetData
}
