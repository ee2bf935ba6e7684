// Package config loads process configuration for the sessiongate server and tools from an
// optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/sessiongate"
	"github.com/MrEthical07/sessiongate/jwt"
	"github.com/spf13/viper"
)

// Config is the process configuration. Environment variables use the upper-case key
// with dots replaced by underscores: session.secret is SESSION_SECRET.
type Config struct {
	AppName         string
	ListenAddr      string
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionSecret    []byte
	SessionTTL       time.Duration
	TrackRenewals    bool
	CookieSecure     bool
	CookieDomain     string
	TrustProxy       bool
	AuditEnabled     bool
	MetricsEnabled   bool
	BcryptCost       int
	LoginAttempts    int
	LoginCooldown    time.Duration
	RegisterAttempts int

	// MetricsLogInterval is how often OpenTelemetry metrics are logged. Zero disables it.
	MetricsLogInterval time.Duration
}

// NewViper returns a viper instance bound to the environment. A non-empty path is read
// as a YAML file; a missing file is an error.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.name", "sessiongate")
	v.SetDefault("listen.addr", ":8080")
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("redis.db", 0)
	v.SetDefault("session.ttl", jwt.DefaultTTL.String())
	v.SetDefault("session.track_renewals", false)
	v.SetDefault("cookie.secure", true)
	v.SetDefault("trust_proxy", false)
	v.SetDefault("audit.enabled", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.log_interval", "1m")
	v.SetDefault("password.cost", 10)
	v.SetDefault("security.login_attempts", 5)
	v.SetDefault("security.login_cooldown", "10m")
	v.SetDefault("security.register_attempts", 10)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// Load reads the configuration from path (optional) and the environment, then validates it.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper extracts and validates a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppName:          v.GetString("app.name"),
		ListenAddr:       v.GetString("listen.addr"),
		ShutdownTimeout:  v.GetDuration("shutdown.timeout"),
		LogLevel:         v.GetString("log.level"),
		LogFormat:        v.GetString("log.format"),
		DatabaseURL:      v.GetString("database.url"),
		RedisAddr:        v.GetString("redis.addr"),
		RedisPassword:    v.GetString("redis.password"),
		RedisDB:          v.GetInt("redis.db"),
		SessionSecret:    []byte(v.GetString("session.secret")),
		SessionTTL:       v.GetDuration("session.ttl"),
		TrackRenewals:    v.GetBool("session.track_renewals"),
		CookieSecure:     v.GetBool("cookie.secure"),
		CookieDomain:     v.GetString("cookie.domain"),
		TrustProxy:       v.GetBool("trust_proxy"),
		AuditEnabled:     v.GetBool("audit.enabled"),
		MetricsEnabled:   v.GetBool("metrics.enabled"),
		BcryptCost:       v.GetInt("password.cost"),
		LoginAttempts:    v.GetInt("security.login_attempts"),
		LoginCooldown:    v.GetDuration("security.login_cooldown"),
		RegisterAttempts: v.GetInt("security.register_attempts"),

		MetricsLogInterval: v.GetDuration("metrics.log_interval"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if len(c.SessionSecret) == 0 {
		return errors.New("SESSION_SECRET is required")
	}
	if len(c.SessionSecret) < jwt.MinSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", jwt.MinSecretLength)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be > 0")
	}
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	if c.MetricsLogInterval < 0 {
		return errors.New("METRICS_LOG_INTERVAL must be >= 0")
	}
	if c.TrackRenewals && c.RedisAddr == "" {
		return errors.New("SESSION_TRACK_RENEWALS requires REDIS_ADDR")
	}
	return nil
}

// HasRedis reports whether a Redis address is configured.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

// Engine maps the process settings onto the engine configuration.
func (c *Config) Engine() sessiongate.Config {
	ec := sessiongate.DefaultConfig()
	ec.Session.Secret = c.SessionSecret
	ec.Session.TTL = c.SessionTTL
	ec.Session.TrackRenewals = c.TrackRenewals
	ec.Cookie.Secure = c.CookieSecure
	ec.Cookie.Domain = c.CookieDomain
	ec.Audit.Enabled = c.AuditEnabled
	ec.Metrics.Enabled = c.MetricsEnabled
	if c.BcryptCost > 0 {
		ec.Password.Cost = c.BcryptCost
	}
	if c.LoginAttempts > 0 {
		ec.Security.MaxLoginAttempts = c.LoginAttempts
	}
	if c.LoginCooldown > 0 {
		ec.Security.LoginCooldownDuration = c.LoginCooldown
	}
	if c.RegisterAttempts >= 0 {
		ec.Security.MaxRegisterAttempts = c.RegisterAttempts
	}
	return ec
}
