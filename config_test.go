package goTacAuth

import (
	"testing"
	"time"

	"github.com/MrEthical07/goTacAuth/credential"
)

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "empty realm name",
			mutate:  func(cfg *Config) { cfg.Realm.Name = "" },
			wantErr: true,
		},
		{
			name:    "non-positive max attempts",
			mutate:  func(cfg *Config) { cfg.Host.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "negative backend failure period",
			mutate:  func(cfg *Config) { cfg.Realm.BackendFailurePeriod = -time.Second },
			wantErr: true,
		},
		{
			name:    "negative expiry warning period",
			mutate:  func(cfg *Config) { cfg.Realm.ExpiryWarningPeriod = -time.Hour },
			wantErr: true,
		},
		{
			name: "throttle enabled without failure budget",
			mutate: func(cfg *Config) {
				cfg.Throttle.Enabled = true
				cfg.Throttle.MaxFailures = 0
			},
			wantErr: true,
		},
		{
			name: "throttle enabled without window",
			mutate: func(cfg *Config) {
				cfg.Throttle.Enabled = true
				cfg.Throttle.FailureWindow = 0
			},
			wantErr: true,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(cfg *Config) {
				cfg.Audit.Enabled = true
				cfg.Audit.BufferSize = 0
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := validateConfig(cfg)
			if tc.wantErr && err == nil {
				t.Fatal("expected a validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestCloneConfigCopiesEnablePasswords(t *testing.T) {
	cfg := defaultConfig()
	cfg.Host.EnablePasswords = map[uint8]credential.Record{
		15: {Kind: credential.KindClear, Value: "enable-secret"},
	}

	clone := cloneConfig(cfg)
	delete(cfg.Host.EnablePasswords, 15)
	if rec, ok := clone.Host.EnablePasswords[15]; !ok || rec.Value != "enable-secret" {
		t.Fatal("clone must not share the enable password map")
	}
}
