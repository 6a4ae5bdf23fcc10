package goTacAuth

import (
	"context"

	"github.com/MrEthical07/goTacAuth/credential"
)

// doASCIILogin drives the interactive login dialog. It is re-entered
// from the top on every CONTINUE and every backend completion and
// derives its position from which session fields are already filled:
// no username yet means prompt for one, no password yet means prompt
// for one, both present means verify.
func (e *Engine) doASCIILogin(ctx context.Context, s *session) {
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

	if !e.resolveUser(ctx, s, "shell login") {
		return
	}
	if e.queryMavisInfoLogin(ctx, s) {
		return
	}

	rec, slot := e.passwordRecord(s, SlotLogin)

	if rec.Kind != credential.KindPermit {
		if s.contMsg != nil {
			s.password = *s.contMsg
			s.passwordSet = true
			s.contMsg = nil
			if e.passwordRequirementsFailed(ctx, s, "shell login", s.password) {
				return
			}
		}
		if !s.passwordSet {
			e.sendPasswordPrompt(ctx, s, slot)
			return
		}

		// An empty password from a backend-verified account opens the
		// password change dialog instead of failing outright.
		if e.config.Realm.ChPass && s.password == "" &&
			(slot == SlotMavis || (s.user == nil && e.config.Realm.MavisUserDB)) &&
			(s.user == nil || (s.user.ChalResp != TristateYes && !s.user.PasswordOneshot)) {
			s.password = ""
			s.passwordSet = false
			s.userMsg = "Entering password change dialog.\n\n"
			s.handler = e.doChangePassword
			e.doChangePassword(ctx, s)
			return
		}
	}

	var status credential.Status
	var hint Hint
	var resp string

	if s.user != nil && s.passwordSet && s.passwordBadSet && s.password == s.passwordBad {
		// Some NAS implementations replay the rejected password on
		// their own retry. Fail it locally, without asking the backend
		// again.
		status = credential.StatusFail
		hint = HintFailedPasswordRetry
		s.passwordBadAgain = true
		e.metrics.Inc(MetricRetryReplay)
	} else {
		s.passwordBadAgain = false
		rec, slot = e.passwordRecord(s, SlotLogin)
		if e.queryMavisAuthLogin(ctx, s, slot) {
			return
		}
		status, hint, resp = e.checkAccess(ctx, s, rec, s.password)
	}
	s.challenge = ""

	switch status {
	case credential.StatusError:
		e.reportAuth(ctx, s, "shell login", hint, status)
		e.sendAuthenError(ctx, s, "")
		return
	case credential.StatusPass:
		if s.passwordMustChange {
			if s.userMsg == "" {
				s.userMsg = "Please change your password.\n\n"
			}
			s.flagAuthQueried = false
			s.backendStatusValid = false
			s.handler = e.doChangePassword
			e.doChangePassword(ctx, s)
			return
		}
		if s.user != nil && !s.user.ValidUntil.IsZero() && e.config.Realm.ExpiryWarningPeriod > 0 &&
			s.user.ValidUntil.Before(e.now().Add(e.config.Realm.ExpiryWarningPeriod)) {
			s.userMsg = s.userMsg + "Your password is about to expire.\n"
		}
		e.reportAuth(ctx, s, "shell login", hint, status)
		e.sendReply(ctx, s, Reply{Status: ReplyPass, Message: e.motdBanner(s)})
		return
	}

	if resp != "" {
		e.reportAuth(ctx, s, "shell login", hint, status)
		e.sendReply(ctx, s, Reply{Status: ReplyFail, Message: resp})
		return
	}

	s.iterations++
	if s.iterations < e.config.Host.MaxAttempts {
		msg := "Password incorrect.\n\nPassword: "
		noEcho := true
		if s.challengeDialog {
			msg = "Response incorrect.\n\nResponse: "
			noEcho = e.config.Realm.ChalRespNoEcho
		}
		// Re-arm the backend verification for the next attempt.
		s.flagAuthQueried = false
		e.sendReply(ctx, s, Reply{Status: ReplyGetPass, Message: msg, NoEcho: noEcho})
		return
	}

	e.reportAuth(ctx, s, "shell login", hint, status)
	e.sendReply(ctx, s, Reply{Status: ReplyFail})
}

// sendPasswordPrompt emits the password prompt, detouring through the
// backend challenge request for challenge-response users. It either
// sends a reply or suspends on a deferred challenge query.
func (e *Engine) sendPasswordPrompt(ctx context.Context, s *session, slot Slot) {
	if e.config.Realm.ChalResp &&
		(s.user == nil || (slot == SlotMavis && s.user.ChalResp != TristateNo && !s.user.PasswordOneshot)) {
		if !s.flagChalQueried {
			if e.queryMavisChal(ctx, s) {
				return
			}
		}
		if s.challenge != "" {
			s.challengeDialog = true
			e.sendReply(ctx, s, Reply{
				Status:  ReplyGetPass,
				Message: e.welcomeBanner(ctx, s) + "\n" + s.challenge + "\n\nResponse: ",
				NoEcho:  e.config.Realm.ChalRespNoEcho,
			})
			return
		}
	}
	e.sendReply(ctx, s, Reply{
		Status:  ReplyGetPass,
		Message: e.welcomeBanner(ctx, s) + "Password: ",
		NoEcho:  true,
	})
}

// doLogin is the one-shot login path for ASCII starts that already
// carry both a username and a password in the data field. Not in the
// protocol, but some clients send it, so acceptance is an opt-in host
// knob.
func (e *Engine) doLogin(ctx context.Context, s *session) {
	if !s.passwordSet {
		s.password = string(s.data)
		s.passwordSet = true
		s.data = nil
		if e.passwordRequirementsFailed(ctx, s, "ascii login", s.password) {
			return
		}
	}
	if !e.resolveUser(ctx, s, "ascii login") {
		return
	}
	if e.queryMavisInfoLogin(ctx, s) {
		return
	}
	rec, slot := e.passwordRecord(s, SlotLogin)
	if e.queryMavisAuthLogin(ctx, s, slot) {
		return
	}
	status, hint, resp := e.checkAccess(ctx, s, rec, s.password)
	if status == credential.StatusPass && resp == "" {
		resp = e.motdBanner(s)
	}
	e.finishSimple(ctx, s, "ascii login", status, hint, resp)
}
