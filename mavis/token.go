package mavis

import (
	"context"
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSigningMethod selects the signature scheme a [TokenModule]
// accepts.
type TokenSigningMethod string

const (
	// TokenMethodHS256 verifies HMAC-SHA256 signed tokens.
	TokenMethodHS256 TokenSigningMethod = "hs256"
	// TokenMethodEd25519 verifies Ed25519 signed tokens.
	TokenMethodEd25519 TokenSigningMethod = "ed25519"
)

// TokenConfig configures a [TokenModule].
type TokenConfig struct {
	SigningMethod TokenSigningMethod
	// Key is the HMAC secret for hs256 or the 32-byte Ed25519 public
	// key for ed25519.
	Key      []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// TokenModule is a chain-terminal backend module for deployments where
// the "password" a user types is a signed bearer token instead of a
// static secret. It answers auth queries with ACK when the token's
// signature and registered claims verify and its subject matches the
// queried username, NAK otherwise. All other query types are ignored
// so a lower module can serve them.
type TokenModule struct {
	config TokenConfig
}

// NewTokenModule validates cfg and builds the module.
func NewTokenModule(cfg TokenConfig) (*TokenModule, error) {
	switch cfg.SigningMethod {
	case TokenMethodHS256:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires a key")
		}
	case TokenMethodEd25519:
		if len(cfg.Key) != ed25519.PublicKeySize {
			return nil, errors.New("ed25519 requires a 32-byte public key")
		}
	default:
		return nil, errors.New("unsupported token signing method")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &TokenModule{config: cfg}, nil
}

// Handle implements [Module].
func (m *TokenModule) Handle(_ context.Context, q *Query) (Outcome, error) {
	if q.Type != TypeAuth {
		return Ignore, nil
	}

	user := q.Value(AttrUser)
	raw, ok := q.Get(AttrPassword)
	if user == "" || !ok || raw == "" {
		q.Set(AttrResult, ResultNAK)
		return Final, nil
	}

	subject, err := m.verify(raw)
	if err != nil || subject != user {
		q.Set(AttrResult, ResultNAK)
		return Final, nil
	}

	q.Set(AttrResult, ResultACK)
	return Final, nil
}

func (m *TokenModule) verify(raw string) (string, error) {
	options := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.config.Leeway),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}
	switch m.config.SigningMethod {
	case TokenMethodHS256:
		options = append(options, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	case TokenMethodEd25519:
		options = append(options, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	}

	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, m.keyFunc, options...)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("missing subject claim")
	}
	return claims.Subject, nil
}

func (m *TokenModule) keyFunc(*jwt.Token) (any, error) {
	switch m.config.SigningMethod {
	case TokenMethodHS256:
		return m.config.Key, nil
	case TokenMethodEd25519:
		return ed25519.PublicKey(m.config.Key), nil
	}
	return nil, errors.New("unsupported token signing method")
}
