package goTacAuth

import (
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goTacAuth/internal/throttle"
)

// Builder defines a public type used by goTacAuth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory   UserDirectory
	acl         ACLEvaluator
	replyWriter ReplyWriter
	backend     BackendChain
	auditSink   AuditSink
	logger      *logrus.Logger
	rewrite     UsernameRewriter

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserDirectory describes the withuserdirectory operation and its observable behavior.
//
// WithUserDirectory may return an error when input validation, dependency calls, or security checks fail.
// WithUserDirectory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

// WithACLEvaluator describes the withaclevaluator operation and its observable behavior.
//
// WithACLEvaluator may return an error when input validation, dependency calls, or security checks fail.
// WithACLEvaluator does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithACLEvaluator(acl ACLEvaluator) *Builder {
	b.acl = acl
	return b
}

// WithReplyWriter describes the withreplywriter operation and its observable behavior.
//
// WithReplyWriter may return an error when input validation, dependency calls, or security checks fail.
// WithReplyWriter does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithReplyWriter(w ReplyWriter) *Builder {
	b.replyWriter = w
	return b
}

// WithBackendChain describes the withbackendchain operation and its observable behavior.
//
// WithBackendChain may return an error when input validation, dependency calls, or security checks fail.
// WithBackendChain does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithBackendChain(c BackendChain) *Builder {
	b.backend = c
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(l *logrus.Logger) *Builder {
	b.logger = l
	return b
}

// WithUsernameRewriter describes the withusernamerewriter operation and its observable behavior.
//
// WithUsernameRewriter may return an error when input validation, dependency calls, or security checks fail.
// WithUsernameRewriter does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUsernameRewriter(r UsernameRewriter) *Builder {
	b.rewrite = r
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if b.replyWriter == nil {
		return nil, errors.New("reply writer required")
	}

	if cfg.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("throttle requires redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	engine := &Engine{
		config:      cfg,
		directory:   b.directory,
		acl:         b.acl,
		replyWriter: b.replyWriter,
		backend:     b.backend,
		log:         logger,
		rewrite:     b.rewrite,
		sessions:    make(map[string]*session),
		now:         time.Now,
	}

	if cfg.Throttle.Enabled {
		engine.throttle = throttle.New(b.redis, throttle.Config{
			Prefix:            cfg.Throttle.RedisPrefix,
			MaxFailures:       cfg.Throttle.MaxFailures,
			FailureWindow:     cfg.Throttle.FailureWindow,
			EnableNASThrottle: cfg.Throttle.EnableNASThrottle,
		})
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
