package goTacAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goTacAuth/credential"
	"github.com/MrEthical07/goTacAuth/internal/throttle"
	"github.com/MrEthical07/goTacAuth/mavis"
)

func (e *Engine) aclRequest(s *session, suppliedPassword string) ACLRequest {
	return ACLRequest{
		SessionID:        s.id,
		Realm:            s.realm,
		Username:         s.username,
		NASPort:          s.nasPort,
		RemoteAddr:       s.remoteAddr,
		PrivLvl:          s.privLvl,
		SuppliedPassword: suppliedPassword,
	}
}

// resolveUser runs the pre-verification pipeline: throttle check, host
// ACL, username rewrite, directory lookup, and the fallback-only
// filter. On a deny it reports and replies itself; callers must return
// immediately when it reports false.
func (e *Engine) resolveUser(ctx context.Context, s *session, action string) bool {
	if e.throttle != nil && s.username != "" && !s.flagThrottleCheck {
		s.flagThrottleCheck = true
		if err := e.throttle.Check(ctx, s.realm, s.username, s.nasAddr); err != nil {
			if errors.Is(err, throttle.ErrThrottled) {
				e.metrics.Inc(MetricThrottleHit)
				e.reportAuth(ctx, s, action, HintDenied, credential.StatusFail)
				e.sendReply(ctx, s, Reply{Status: ReplyFail})
				return false
			}
			// Redis being down must not lock anyone out.
			e.log.WithError(err).Warn("throttle check unavailable")
		}
	}

	if e.acl != nil && e.acl.HostACL(ctx, e.aclRequest(s, "")) == DecisionDeny {
		e.reportAuth(ctx, s, action, HintDeniedByACL, credential.StatusFail)
		e.sendReply(ctx, s, Reply{Status: ReplyFail})
		return false
	}

	if e.rewrite != nil && s.username != "" {
		s.username = e.rewrite(s.username)
	}

	if s.user == nil || !s.user.sessionSpecific {
		s.user = nil
		if e.directory != nil && s.username != "" {
			u, err := e.directory.LookupUser(ctx, s.realm, s.username)
			if err != nil {
				e.log.WithError(err).WithField("user", s.username).Warn("user lookup failed")
				u = nil
			}
			s.user = u
		}
	}

	if s.user != nil && s.user.FallbackOnly {
		if !e.config.Host.AuthFallback || !e.backendFailureActive(ctx) {
			e.log.WithField("user", s.username).Debug("not in emergency mode, ignoring fallback-only user")
			s.user = nil
		} else {
			e.metrics.Inc(MetricFallbackLogin)
		}
	}

	if s.user != nil && s.passwords == nil {
		s.passwords = s.user.Passwords
	}

	return true
}

// passwordRecord resolves the per-method credential with single-hop
// indirection: a login-typed record redirects to the LOGIN slot, a
// mavis-typed record redirects verification to the backend.
func (e *Engine) passwordRecord(s *session, slot Slot) (credential.Record, Slot) {
	if s.user == nil {
		return credential.Record{}, slot
	}
	rec := s.passwords[slot]
	if rec.Kind == credential.KindLogin {
		slot = SlotLogin
		rec = s.passwords[SlotLogin]
	}
	if rec.Kind == credential.KindMavis {
		slot = SlotMavis
	}
	return rec, slot
}

func (e *Engine) enableRecord(s *session) *credential.Record {
	if s.user != nil && s.user.Enable != nil {
		if rec, ok := s.user.Enable[s.privLvl]; ok {
			return &rec
		}
	}
	if rec, ok := e.config.Host.EnablePasswords[s.privLvl]; ok {
		return &rec
	}
	return nil
}

/*
====================================
BACKEND QUERIES
====================================
*/

// The query helpers gate on a write-once flag so a handler re-entered
// after a prompt or a deferred answer can never issue the same query
// twice. The flag is set in the same step as the decision, before the
// chain runs.

func (e *Engine) queryMavisInfoLogin(ctx context.Context, s *session) bool {
	issue := !s.flagInfoQueried && s.user == nil && e.config.Realm.LoginPrefetch
	s.flagInfoQueried = true
	if !issue {
		return false
	}
	return e.backendQuery(ctx, s, mavis.TypeInfo)
}

func (e *Engine) queryMavisInfoPAP(ctx context.Context, s *session) bool {
	issue := !s.flagInfoQueried && s.user == nil && e.config.Realm.PAPPrefetch
	s.flagInfoQueried = true
	if !issue {
		return false
	}
	return e.backendQuery(ctx, s, mavis.TypeInfo)
}

func (e *Engine) queryMavisInfo(ctx context.Context, s *session) bool {
	issue := !s.flagInfoQueried && s.user == nil && e.config.Realm.MavisUserDB
	s.flagInfoQueried = true
	if !issue {
		return false
	}
	return e.backendQuery(ctx, s, mavis.TypeInfo)
}

func (e *Engine) queryMavisAuthLogin(ctx context.Context, s *session, slot Slot) bool {
	issue := !s.flagAuthQueried &&
		((e.config.Realm.MavisUserDB && !e.config.Realm.LoginPrefetch && s.user == nil) ||
			(s.user != nil && slot == SlotMavis))
	s.flagAuthQueried = true
	if !issue {
		return false
	}
	return e.backendQuery(ctx, s, mavis.TypeAuth)
}

func (e *Engine) queryMavisAuthPAP(ctx context.Context, s *session, slot Slot) bool {
	issue := !s.flagAuthQueried &&
		((e.config.Realm.MavisUserDB && !e.config.Realm.PAPPrefetch && s.user == nil) ||
			(s.user != nil && slot == SlotMavis))
	s.flagAuthQueried = true
	if !issue {
		return false
	}
	return e.backendQuery(ctx, s, mavis.TypeAuth)
}

func (e *Engine) queryMavisChal(ctx context.Context, s *session) bool {
	if s.flagChalQueried {
		return false
	}
	s.flagChalQueried = true
	return e.backendQuery(ctx, s, mavis.TypeChal)
}

func (e *Engine) queryMavisChangePassword(ctx context.Context, s *session, slot Slot) bool {
	issue := !s.flagAuthQueried &&
		((e.config.Realm.MavisUserDB && !e.config.Realm.LoginPrefetch && s.user == nil) ||
			(s.user != nil && slot == SlotMavis) ||
			(s.user == nil && e.config.Realm.MavisUserDB))
	s.flagAuthQueried = true
	if !issue {
		return false
	}
	return e.backendQuery(ctx, s, mavis.TypeChPW)
}

// backendQuery runs one query through the chain. The return value is
// true when the query went deferred and the handler must suspend;
// synchronous answers are applied before it returns false.
func (e *Engine) backendQuery(ctx context.Context, s *session, t mavis.Type) bool {
	e.metrics.Inc(MetricBackendQuery)

	q := mavis.NewQuery(t, s.id).
		Set(mavis.AttrUser, s.username).
		Set(mavis.AttrRealm, s.realm)
	switch t {
	case mavis.TypeAuth:
		q.Set(mavis.AttrPassword, s.password)
	case mavis.TypeChPW:
		q.Set(mavis.AttrPassword, s.password).
			Set(mavis.AttrPasswordNew, s.passwordNew)
	}

	if e.backend == nil {
		if t == mavis.TypeAuth || t == mavis.TypeChPW {
			s.backendStatus = credential.StatusError
			s.backendStatusValid = true
			e.metrics.Inc(MetricBackendError)
		}
		return false
	}

	outcome, err := e.backend.Handle(ctx, q)
	if err != nil && outcome != mavis.Deferred {
		e.log.WithError(err).WithField("session", s.id).Warn("backend query failed")
		outcome = mavis.Timeout
	}

	switch outcome {
	case mavis.Deferred:
		s.backendPending = true
		e.metrics.Inc(MetricBackendDeferred)
		return true
	case mavis.Final, mavis.FinalNoRescript:
		e.applyBackendAnswer(ctx, s, q, outcome == mavis.FinalNoRescript)
		return false
	case mavis.Timeout, mavis.Down:
		e.markBackendFailure(ctx)
		e.metrics.Inc(MetricBackendError)
		if t == mavis.TypeAuth || t == mavis.TypeChPW {
			s.backendStatus = credential.StatusError
			s.backendStatusValid = true
		}
		return false
	default:
		// Ignore: nothing in the chain felt responsible. For a
		// verification query that is a misconfiguration, not a deny.
		if t == mavis.TypeAuth || t == mavis.TypeChPW {
			s.backendStatus = credential.StatusError
			s.backendStatusValid = true
			e.metrics.Inc(MetricBackendError)
		}
		return false
	}
}

// applyBackendAnswer folds a completed query into the session.
func (e *Engine) applyBackendAnswer(ctx context.Context, s *session, q *mavis.Query, noRescript bool) {
	switch q.Type {
	case mavis.TypeInfo:
		if q.Value(mavis.AttrResult) == mavis.ResultACK {
			s.user = e.userFromQuery(s, q)
			s.passwords = s.user.Passwords
		}
	case mavis.TypeAuth, mavis.TypeChPW:
		switch q.Value(mavis.AttrResult) {
		case mavis.ResultACK:
			s.backendStatus = credential.StatusPass
			// Without an info prefetch the verification answer is the
			// first place the backend vouches for the user; its attribute
			// set seeds the session user record.
			if s.user == nil {
				s.user = e.userFromQuery(s, q)
				s.passwords = s.user.Passwords
			}
		case mavis.ResultNAK:
			s.backendStatus = credential.StatusFail
		default:
			s.backendStatus = credential.StatusError
			e.metrics.Inc(MetricBackendError)
			e.markBackendFailure(ctx)
		}
		s.backendStatusValid = true
		if !noRescript {
			if msg := q.Value(mavis.AttrUserResponse); msg != "" {
				s.userMsg = msg
			}
			if q.Value(mavis.AttrPasswordMustChange) == "1" {
				s.passwordMustChange = true
			}
			if s.user != nil && s.user.sessionSpecific {
				if p := q.Value(mavis.AttrProfile); p != "" {
					s.user.Profile = p
				}
			}
		}
	case mavis.TypeChal:
		s.challenge = q.Value(mavis.AttrChallenge)
	}
}

// userFromQuery synthesizes a session-specific user record from a
// backend info answer. When the backend returned a cleartext password
// the per-method slots are populated with it; otherwise verification
// stays delegated to the backend.
func (e *Engine) userFromQuery(s *session, q *mavis.Query) *UserRecord {
	u := &UserRecord{
		Name:            s.username,
		Profile:         q.Value(mavis.AttrProfile),
		sessionSpecific: true,
	}
	if m := q.Value(mavis.AttrMemberOf); m != "" {
		for _, g := range strings.Split(m, ",") {
			if g = strings.TrimSpace(g); g != "" {
				u.MemberOf = append(u.MemberOf, g)
			}
		}
	}
	u.PasswordMustChange = q.Value(mavis.AttrPasswordMustChange) == "1"
	u.PasswordOneshot = q.Value(mavis.AttrPasswordOneshot) == "1"

	u.Passwords = map[Slot]credential.Record{
		SlotLogin:  {Kind: credential.KindMavis},
		SlotPAP:    {Kind: credential.KindMavis},
		SlotCHAP:   {Kind: credential.KindUnset},
		SlotMSCHAP: {Kind: credential.KindUnset},
	}
	if pw := q.Value(mavis.AttrDBPassword); pw != "" {
		rec := credential.Record{Kind: credential.KindClear, Value: pw}
		u.Passwords[SlotLogin] = rec
		u.Passwords[SlotPAP] = rec
		u.Passwords[SlotCHAP] = rec
		u.Passwords[SlotMSCHAP] = rec
	}
	return u
}

/*
====================================
ACCESS CHECK
====================================
*/

// checkAccess turns a credential record plus the supplied secret into
// the three-valued verification status and a hint. A pending backend
// verdict takes precedence over local comparison; the authorization ACL
// can override a pass; the validity window is enforced last. On any
// non-pass the supplied password is demoted to passwordBad so an
// identical retry can be detected.
func (e *Engine) checkAccess(ctx context.Context, s *session, rec credential.Record, supplied string) (credential.Status, Hint, string) {
	status := credential.StatusFail
	hint := HintNoSuchUser
	var resp string

	if s.user != nil {
		if s.backendStatusValid {
			status = s.backendStatus
			s.backendStatusValid = false
			switch status {
			case credential.StatusPass:
				hint = HintSucceeded
			case credential.StatusError:
				hint = HintBackendError
			default:
				hint = HintFailed
			}
		} else {
			status, hint = credential.Compare(rec, supplied)
		}

		if status == credential.StatusPass && e.acl != nil &&
			e.acl.AuthorizationACL(ctx, e.aclRequest(s, "")) == DecisionDeny {
			status = credential.StatusFail
			hint = HintDeniedByACL
		}

		if status == credential.StatusPass && !s.user.valid(e.now()) {
			status = credential.StatusFail
			hint = HintExpired
		}

		if status != credential.StatusPass {
			if e.config.Host.RejectBanner != "" {
				resp = e.config.Host.RejectBanner
			}
			s.passwordBad = s.password
			s.passwordBadSet = s.passwordSet
			s.password = ""
			s.passwordSet = false
		}
	} else if s.backendStatusValid {
		if s.backendStatus == credential.StatusError {
			hint = HintBackendError
			status = credential.StatusError
		} else {
			hint = HintFailed
		}
		s.backendStatusValid = false
	}

	return status, hint, resp
}

// passwordRequirementsFailed rejects a freshly captured secret that the
// password ACL refuses. It reports and replies on rejection.
func (e *Engine) passwordRequirementsFailed(ctx context.Context, s *session, action, secret string) bool {
	if e.acl == nil {
		return false
	}
	if e.acl.PasswordACL(ctx, e.aclRequest(s, secret)) != DecisionDeny {
		return false
	}
	e.reportAuth(ctx, s, action, HintWeakPassword, credential.StatusFail)
	e.sendReply(ctx, s, Reply{Status: ReplyFail, Message: "Password doesn't meet minimum requirements.\n"})
	return true
}

/*
====================================
BANNERS
====================================
*/

// welcomeBanner returns the prompt prefix for the first interactive
// round trip, once per session.
func (e *Engine) welcomeBanner(ctx context.Context, s *session) string {
	if s.welcomeShown {
		return ""
	}
	s.welcomeShown = true
	banner := e.config.Host.WelcomeBanner
	if e.config.Host.AuthFallback && e.config.Host.WelcomeBannerFallback != "" && e.backendFailureActive(ctx) {
		banner = e.config.Host.WelcomeBannerFallback
	}
	if banner == "" {
		banner = "User Access Verification\n\n"
	}
	return banner
}

// motdBanner returns the message attached to a successful login reply.
// A hushlogin user gets nothing beyond pending user messages.
func (e *Engine) motdBanner(s *session) string {
	if s.user != nil && s.user.HushLogin == TristateYes {
		return ""
	}
	return e.config.Host.MOTD + s.userMsg
}

// finishSimple emits the terminal report and reply for the one-round
// methods.
func (e *Engine) finishSimple(ctx context.Context, s *session, action string, status credential.Status, hint Hint, resp string) {
	e.reportAuth(ctx, s, action, hint, status)
	switch status {
	case credential.StatusPass:
		e.sendReply(ctx, s, Reply{Status: ReplyPass, Message: resp})
	case credential.StatusError:
		e.sendAuthenError(ctx, s, "")
	default:
		e.sendReply(ctx, s, Reply{Status: ReplyFail, Message: resp})
	}
}
