package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrThrottled means the failure budget for the key is exhausted.
	ErrThrottled = errors.New("throttled")
	// ErrRedisUnavailable wraps transport errors from the Redis client.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds throttle tuning parameters.
type Config struct {
	Prefix            string
	MaxFailures       int
	FailureWindow     time.Duration
	EnableNASThrottle bool
}

// Throttle enforces cross-session failed-authentication budgets and
// records the realm backend-failure marker, using Redis counters so
// multiple daemon workers share one view.
type Throttle struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Throttle] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Throttle {
	if cfg.Prefix == "" {
		cfg.Prefix = "ta"
	}
	return &Throttle{
		redis:  redisClient,
		config: cfg,
	}
}

// Check reports whether the user (and optionally the NAS) is still
// within the failure budget. Returns [ErrThrottled] when exhausted.
func (t *Throttle) Check(ctx context.Context, realm, username, nasAddr string) error {
	if err := t.checkCounter(ctx, t.userKey(realm, username)); err != nil {
		return err
	}
	if t.config.EnableNASThrottle && nasAddr != "" {
		if err := t.checkCounter(ctx, t.nasKey(nasAddr)); err != nil {
			return err
		}
	}
	return nil
}

// Failure records one failed authentication for the user+NAS pair.
func (t *Throttle) Failure(ctx context.Context, realm, username, nasAddr string) error {
	count, err := t.incrementWithTTL(ctx, t.userKey(realm, username), t.config.FailureWindow)
	if err != nil {
		return err
	}
	if count > int64(t.config.MaxFailures) {
		return ErrThrottled
	}

	if t.config.EnableNASThrottle && nasAddr != "" {
		count, err = t.incrementWithTTL(ctx, t.nasKey(nasAddr), t.config.FailureWindow)
		if err != nil {
			return err
		}
		if count > int64(t.config.MaxFailures) {
			return ErrThrottled
		}
	}
	return nil
}

// Reset clears the failure counters after a successful authentication.
func (t *Throttle) Reset(ctx context.Context, realm, username, nasAddr string) error {
	keys := []string{t.userKey(realm, username)}
	if t.config.EnableNASThrottle && nasAddr != "" {
		keys = append(keys, t.nasKey(nasAddr))
	}

	if err := t.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// MarkBackendFailure arms the realm's fallback window for the given
// duration.
func (t *Throttle) MarkBackendFailure(ctx context.Context, realm string, window time.Duration) error {
	if window <= 0 {
		return nil
	}
	if err := t.redis.Set(ctx, t.backendKey(realm), time.Now().Unix(), window).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// BackendFailureActive reports whether the realm is inside its fallback
// window. Redis unavailability reads as "not active" so every worker
// fails the same, closed way.
func (t *Throttle) BackendFailureActive(ctx context.Context, realm string) bool {
	err := t.redis.Get(ctx, t.backendKey(realm)).Err()
	return err == nil
}

func (t *Throttle) checkCounter(ctx context.Context, key string) error {
	count, err := t.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count > int64(t.config.MaxFailures) {
		return ErrThrottled
	}
	return nil
}

func (t *Throttle) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := t.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := t.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

func (t *Throttle) userKey(realm, username string) string {
	return t.config.Prefix + ":fu:" + realm + ":" + username
}

func (t *Throttle) nasKey(nasAddr string) string {
	return t.config.Prefix + ":fn:" + nasAddr
}

func (t *Throttle) backendKey(realm string) string {
	return t.config.Prefix + ":bf:" + realm
}
