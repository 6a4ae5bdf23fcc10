package goTacAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/goTacAuth/credential"
)

// Config defines a public type used by goTacAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Realm    RealmConfig
	Host     HostConfig
	Throttle ThrottleConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
REALM CONFIG
====================================
*/

// RealmConfig defines a public type used by goTacAuth APIs.
//
// RealmConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RealmConfig struct {
	Name string

	// MavisUserDB delegates verification for users unknown to the
	// directory to the backend chain.
	MavisUserDB bool
	// LoginPrefetch issues an info query before login verification.
	LoginPrefetch bool
	// PAPPrefetch issues an info query before PAP verification.
	PAPPrefetch bool
	// ChalResp replaces the password prompt with a backend-issued
	// challenge for eligible users.
	ChalResp bool
	// ChalRespNoEcho suppresses echo on the challenge response prompt.
	ChalRespNoEcho bool
	// ChPass permits the password change dialog.
	ChPass bool
	// MapPAPToLogin handles PAP starts through the inbound login path.
	MapPAPToLogin bool

	// BackendFailurePeriod is the fallback window after a backend
	// failure during which fallback-only credentials become eligible.
	BackendFailurePeriod time.Duration
	// ExpiryWarningPeriod controls the "account will expire soon"
	// warning on successful login.
	ExpiryWarningPeriod time.Duration
}

/*
====================================
HOST CONFIG
====================================
*/

// HostConfig defines a public type used by goTacAuth APIs.
//
// HostConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HostConfig struct {
	// MaxAttempts bounds interactive password re-prompting per session.
	MaxAttempts int
	// AuthFallback enables fallback-only credentials during the realm's
	// backend failure window.
	AuthFallback bool
	// AnonymousEnable permits enable without re-identifying the user.
	// When false, enable forces a username/password sub-dialog first.
	AnonymousEnable bool
	// AugmentedEnable re-prompts for a fresh "username password" pair
	// scoped to the target privilege level, gated by the enable ACL.
	AugmentedEnable bool
	// AllowInvalidStartData accepts ASCII starts carrying both a
	// username and data, treating them as a one-shot inbound login.
	// Not in the protocol spec, but emitted by some clients.
	AllowInvalidStartData bool

	// EnablePasswords supplies fixed per-privilege-level enable
	// credentials used when the user record carries none.
	EnablePasswords map[uint8]credential.Record

	WelcomeBanner         string
	WelcomeBannerFallback string
	MOTD                  string
	RejectBanner          string
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig defines a public type used by goTacAuth APIs.
//
// ThrottleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThrottleConfig struct {
	// Enabled turns on the Redis-backed cross-session failure throttle.
	// Requires a Redis client on the builder.
	Enabled bool
	// EnableNASThrottle additionally counts failures per NAS address.
	EnableNASThrottle bool
	RedisPrefix       string
	MaxFailures       int
	FailureWindow     time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by goTacAuth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goTacAuth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Host.EnablePasswords != nil {
		out.Host.EnablePasswords = make(map[uint8]credential.Record, len(cfg.Host.EnablePasswords))
		for lvl, rec := range cfg.Host.EnablePasswords {
			out.Host.EnablePasswords[lvl] = rec
		}
	}
	return out
}

func defaultConfig() Config {
	return Config{
		Realm: RealmConfig{
			Name:                 "default",
			BackendFailurePeriod: 60 * time.Second,
			ExpiryWarningPeriod:  14 * 24 * time.Hour,
		},
		Host: HostConfig{
			MaxAttempts:     3,
			AnonymousEnable: true,
		},
		Throttle: ThrottleConfig{
			Enabled:       false,
			RedisPrefix:   "ta",
			MaxFailures:   10,
			FailureWindow: 5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.Realm.Name == "" {
		return errors.New("realm name must not be empty")
	}
	if cfg.Host.MaxAttempts <= 0 {
		return errors.New("host max attempts must be positive")
	}
	if cfg.Realm.BackendFailurePeriod < 0 {
		return errors.New("backend failure period must not be negative")
	}
	if cfg.Realm.ExpiryWarningPeriod < 0 {
		return errors.New("expiry warning period must not be negative")
	}
	if cfg.Throttle.Enabled {
		if cfg.Throttle.MaxFailures <= 0 {
			return errors.New("throttle max failures must be positive")
		}
		if cfg.Throttle.FailureWindow <= 0 {
			return errors.New("throttle failure window must be positive")
		}
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}
