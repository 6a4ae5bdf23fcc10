package goTacAuth

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goTacAuth/credential"
	"github.com/MrEthical07/goTacAuth/mavis"
)

// HandleStart describes the handlestart operation and its observable behavior.
//
// HandleStart may return an error when input validation, dependency calls, or security checks fail.
// HandleStart does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) HandleStart(ctx context.Context, sessionID string, pkt StartPacket) error {
	if e == nil || e.replyWriter == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if !pkt.fieldsFitDeclaredLength() {
		e.metrics.Inc(MetricMalformedPacket)
		e.log.WithField("session", sessionID).Debug("authen start field lengths exceed declared packet length")
		return ErrMalformedPacket
	}

	s := &session{
		id:           sessionID,
		realm:        e.config.Realm.Name,
		username:     pkt.Username,
		nasPort:      pkt.Port,
		remoteAddr:   pkt.RemoteAddr,
		nasAddr:      nasAddressFromContext(ctx),
		privLvl:      pkt.PrivLvl,
		minorVersion: pkt.MinorVersion,
		seq:          1,
		data:         pkt.Data,
	}

	if pkt.PrivLvl&^0x0f != 0 {
		return e.rejectStart(ctx, s, "Invalid privilege level in packet.", ErrInvalidPrivilegeLevel)
	}

	handler, usernameRequired := e.selectHandler(s, pkt)
	if handler == nil {
		e.metrics.Inc(MetricUnsupportedMethod)
		return e.rejectStart(ctx, s, "Invalid or unsupported AUTHEN/START packet.", ErrUnsupportedMethod)
	}
	if usernameRequired && s.username == "" {
		return e.rejectStart(ctx, s, "No username in packet.", ErrNoUsername)
	}

	s.handler = handler
	if err := e.addSession(s); err != nil {
		return err
	}
	e.metrics.Inc(MetricSessionStarted)
	e.log.WithFields(logrus.Fields{
		"session": s.id,
		"user":    s.username,
		"port":    s.nasPort,
	}).Debug("authen start")

	handler(ctx, s)
	return nil
}

// selectHandler maps the START action/type/service triple to a method
// state machine. A nil handler means the combination is unsupported.
func (e *Engine) selectHandler(s *session, pkt StartPacket) (handlerFunc, bool) {
	switch pkt.Action {
	case ActionLogin:
		if pkt.Service == ServiceEnable {
			return e.doEnable, false
		}
		switch pkt.Type {
		case TypeASCII:
			if e.config.Host.AllowInvalidStartData && pkt.Username != "" && len(pkt.Data) > 0 {
				return e.doLogin, true
			}
			// Clients must not set data on an ASCII start; discard it.
			s.data = nil
			return e.doASCIILogin, false
		case TypePAP:
			return e.doPAP, true
		case TypeCHAP:
			if pkt.MinorVersion == MinorVersionOne {
				return e.doCHAP, true
			}
		case TypeMSCHAP:
			if pkt.MinorVersion == MinorVersionOne {
				return e.doMSCHAP, true
			}
		case TypeMSCHAPv2:
			if pkt.MinorVersion == MinorVersionOne {
				return e.doMSCHAPv2, true
			}
		}
	case ActionChangePassword:
		if pkt.Type == TypeASCII && e.config.Realm.ChPass {
			s.chpassAction = true
			return e.doChangePassword, false
		}
	}
	return nil, false
}

// rejectStart emits a terminal error reply for a START the dispatcher
// refuses to route. No session is retained.
func (e *Engine) rejectStart(ctx context.Context, s *session, msg string, err error) error {
	e.metrics.Inc(MetricAuthenError)
	if werr := e.replyWriter.WriteReply(ctx, s.id, Reply{Status: ReplyError, Message: msg}); werr != nil {
		e.log.WithError(werr).Warn("failed to write authen error reply")
	}
	return err
}

// HandleContinue describes the handlecontinue operation and its observable behavior.
//
// HandleContinue may return an error when input validation, dependency calls, or security checks fail.
// HandleContinue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) HandleContinue(ctx context.Context, sessionID string, pkt ContinuePacket) error {
	if e == nil || e.replyWriter == nil {
		return ErrEngineNotReady
	}
	s, ok := e.lookupSession(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if !pkt.fieldsFitDeclaredLength() {
		e.metrics.Inc(MetricMalformedPacket)
		e.teardown(s)
		return ErrMalformedPacket
	}
	if pkt.Abort {
		// An abort tears the session down even while a backend query is
		// outstanding; the answer arrives late and is discarded. The
		// abort data field may carry a reason from the client; it
		// surfaces in the hint text, never in a reply.
		s.seq++
		if len(pkt.Data) > 0 {
			s.userMsg = string(pkt.Data)
		}
		e.metrics.Inc(MetricSessionAborted)
		e.reportAuth(ctx, s, "session", HintAbort, credential.StatusFail)
		e.teardown(s)
		return nil
	}
	if s.backendPending {
		return ErrSessionBusy
	}

	s.seq++

	msg := pkt.Message
	s.contMsg = &msg
	if len(pkt.Data) > 0 {
		s.data = pkt.Data
	}

	s.handler(ctx, s)
	return nil
}

// CompleteBackend delivers the answer for a deferred backend query.
// It implements mavis.Completer. Late answers for sessions that no
// longer exist are counted and dropped; the NAS may have torn the
// connection down while the backend was still working.
func (e *Engine) CompleteBackend(ctx context.Context, serial string, q *mavis.Query) {
	if e == nil {
		return
	}
	s, ok := e.lookupSession(serial)
	if !ok || !s.backendPending {
		e.metrics.Inc(MetricBackendLateAnswer)
		e.log.WithField("session", serial).Debug("discarding late backend answer")
		return
	}
	s.backendPending = false
	e.applyBackendAnswer(ctx, s, q, false)
	s.handler(ctx, s)
}
