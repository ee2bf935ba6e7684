package sessiongate

import (
	"errors"
	"time"

	"github.com/MrEthical07/sessiongate/internal/rate"
	"github.com/MrEthical07/sessiongate/jwt"
	"github.com/MrEthical07/sessiongate/password"
	"github.com/MrEthical07/sessiongate/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an [Engine]. Configure it during initialization, call Build once, and
// discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	auditSink    AuditSink
	logger       logrus.FieldLogger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The secret is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the HMAC secret. The slice is copied.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.Session.Secret = cloneBytes(secret)
	return b
}

// WithRedis enables bookkeeping records and login/registration throttling.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the account backend used by Login and Register.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the audit destination. Audit.Enabled must also be true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for verification failures and best-effort writes.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for signing, verification and records.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verify latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine. A missing or short secret
// is an error; the process must not start without one.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Session.TrackRenewals && b.redis == nil {
		return nil, errors.New("Session TrackRenewals requires redis client")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// -------- TOKEN CODEC --------
	jm, err := jwt.NewManager(jwt.Config{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Now:    now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD HASHER --------
	ph, err := password.NewBcrypt(password.Config{
		Cost:      cfg.Password.Cost,
		MinLength: cfg.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		jwtManager:   jm,
		passwordHash: ph,
		userProvider: b.userProvider,
		metrics:      NewMetrics(cfg.Metrics),
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		logger:       logger,
		now:          now,
	}

	// -------- REDIS-BACKED PARTS --------
	if b.redis != nil {
		engine.records = session.NewStore(b.redis, cfg.Session.RedisPrefix).WithClock(now)
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:         cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:         cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration:    cfg.Security.LoginCooldownDuration,
			MaxRegisterAttempts:      cfg.Security.MaxRegisterAttempts,
			RegisterCooldownDuration: cfg.Security.RegisterCooldownDuration,
		})
	}

	// jwt.Manager holds the only copy of the secret.
	engine.config.Session.Secret = nil
	b.config.Session.Secret = nil

	b.built = true

	return engine, nil
}
