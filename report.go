package goTacAuth

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goTacAuth/credential"
)

// reportAuth is the outcome reporter. It fires exactly once per session
// that reaches a terminal transition: the hint decides the stable msgid
// and audit text, and supplied or stored secrets never appear in the
// record. Intermediate prompts are not reported.
func (e *Engine) reportAuth(ctx context.Context, s *session, what string, hint Hint, status credential.Status) {
	if s.reported {
		return
	}
	s.reported = true

	text := hint.Text()
	if s.userMsg != "" {
		text = text + " [" + firstLine(s.userMsg) + "]"
	}

	result := "deny"
	if status == credential.StatusPass {
		result = "permit"
	}

	s.lastAction = what
	s.lastHint = text
	s.lastMsgID = hint.MsgID()
	s.lastResult = result

	e.log.WithFields(logrus.Fields{
		"session": s.id,
		"realm":   s.realm,
		"user":    s.username,
		"port":    s.nasPort,
		"msgid":   hint.MsgID(),
	}).Infof("%s for '%s' %s (%s)", what, s.username, text, result)

	var profile string
	if s.user != nil {
		profile = s.user.Profile
	}
	e.audit.Emit(ctx, AuditEvent{
		Timestamp:  e.now(),
		SessionID:  s.id,
		Realm:      s.realm,
		Username:   s.username,
		NASPort:    s.nasPort,
		RemoteAddr: s.remoteAddr,
		NASAddr:    s.nasAddr,
		Action:     what,
		Result:     result,
		MsgID:      hint.MsgID(),
		Hint:       text,
		Profile:    profile,
		Success:    status == credential.StatusPass,
	})
}

// sendReply writes one reply and, when the status is terminal, retires
// the session and feeds the throttle.
func (e *Engine) sendReply(ctx context.Context, s *session, r Reply) {
	switch r.Status {
	case ReplyPass:
		e.metrics.Inc(MetricAuthenPass)
	case ReplyFail:
		e.metrics.Inc(MetricAuthenFail)
	case ReplyError:
		e.metrics.Inc(MetricAuthenError)
	default:
		e.metrics.Inc(MetricPromptSent)
	}

	if err := e.replyWriter.WriteReply(ctx, s.id, r); err != nil {
		e.log.WithError(err).WithField("session", s.id).Warn("failed to write authen reply")
	}

	if !r.Status.Terminal() {
		return
	}
	if e.throttle != nil && s.username != "" {
		switch r.Status {
		case ReplyPass:
			if err := e.throttle.Reset(ctx, s.realm, s.username, s.nasAddr); err != nil {
				e.log.WithError(err).Debug("throttle reset failed")
			}
		case ReplyFail:
			if err := e.throttle.Failure(ctx, s.realm, s.username, s.nasAddr); err != nil {
				e.log.WithError(err).Debug("throttle record failed")
			}
		}
	}
	e.teardown(s)
}

// sendAuthenError emits a terminal error reply. The message is generic
// on purpose; backend specifics stay in the logs.
func (e *Engine) sendAuthenError(ctx context.Context, s *session, msg string) {
	if msg == "" {
		msg = "Authentication backend failure."
	}
	e.sendReply(ctx, s, Reply{Status: ReplyError, Message: msg})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
