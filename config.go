package sessiongate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/sessiongate/jwt"
	"github.com/MrEthical07/sessiongate/password"
)

// Config is the full engine configuration. Start from [DefaultConfig] and override fields;
// [Builder.Build] validates the result.
type Config struct {
	Session  SessionConfig
	Cookie   CookieConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls token signing and the sliding window.
type SessionConfig struct {
	// Secret is the process-wide HMAC key. At least 32 bytes.
	Secret []byte
	// TTL is both the default initial lifetime and the sliding renewal window.
	TTL time.Duration
	// RedisPrefix namespaces bookkeeping record keys.
	RedisPrefix string
	// TrackRenewals updates the bookkeeping record on every renewal.
	TrackRenewals bool
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the session cookie attributes that are not fixed.
// HttpOnly and SameSite=Strict are always set.
type CookieConfig struct {
	Name   string
	Path   string
	Domain string
	Secure bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig controls bcrypt hashing for registration and login.
type PasswordConfig struct {
	Cost           int
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls login and registration throttling. Throttling requires Redis.
type SecurityConfig struct {
	EnableIPThrottle         bool
	MaxLoginAttempts         int
	LoginCooldownDuration    time.Duration
	MaxRegisterAttempts      int
	RegisterCooldownDuration time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters exposed through [Engine.MetricsSnapshot].
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. Session.Secret is left empty and must
// be supplied.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:           jwt.DefaultTTL,
			RedisPrefix:   "sg",
			TrackRenewals: false,
		},
		Cookie: CookieConfig{
			Name: "session",
			Path: "/",
		},
		Password: PasswordConfig{
			Cost:           password.DefaultCost,
			MinLength:      password.DefaultMinLength,
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			EnableIPThrottle:         true,
			MaxLoginAttempts:         5,
			LoginCooldownDuration:    10 * time.Minute,
			MaxRegisterAttempts:      10,
			RegisterCooldownDuration: time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.Secret = cloneBytes(cfg.Session.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error. A secret shorter than
// [jwt.MinSecretLength] is always an error.
func (c *Config) Validate() error {
	// Session
	if len(c.Session.Secret) == 0 {
		return errors.New("Session Secret is required")
	}
	if len(c.Session.Secret) < jwt.MinSecretLength {
		return fmt.Errorf("Session Secret must be at least %d bytes", jwt.MinSecretLength)
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.TTL%time.Second != 0 {
		return errors.New("Session TTL must be a whole number of seconds")
	}
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}

	// Cookie
	if !validCookieName(c.Cookie.Name) {
		return errors.New("Cookie Name must be a non-empty token")
	}
	if !strings.HasPrefix(c.Cookie.Path, "/") {
		return errors.New("Cookie Path must start with /")
	}

	// Password
	if c.Password.Cost < 4 || c.Password.Cost > 31 {
		return errors.New("Password Cost must be within [4, 31]")
	}
	if c.Password.MinLength < 1 || c.Password.MinLength > password.MaxLength {
		return fmt.Errorf("Password MinLength must be within [1, %d]", password.MaxLength)
	}

	// Security
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("Security MaxLoginAttempts must be > 0")
	}
	if c.Security.LoginCooldownDuration <= 0 {
		return errors.New("Security LoginCooldownDuration must be > 0")
	}
	if c.Security.MaxRegisterAttempts < 0 {
		return errors.New("Security MaxRegisterAttempts must be >= 0")
	}
	if c.Security.MaxRegisterAttempts > 0 && c.Security.RegisterCooldownDuration <= 0 {
		return errors.New("Security RegisterCooldownDuration must be > 0 when MaxRegisterAttempts is set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune("()<>@,;:\\\"/[]?={}", r) {
			return false
		}
	}
	return true
}

/*
====================================
LINT
====================================
*/

// LintWarning is a valid-but-risky configuration choice reported by [Config.Lint].
type LintWarning struct {
	Code    string
	Message string
}

// LintResult is the ordered list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, len(r))
	for i, w := range r {
		out[i] = w.Code
	}
	return out
}

// Lint reports settings that pass [Config.Validate] but weaken the deployment. It never
// fails; callers decide whether to log or refuse.
func (c *Config) Lint() LintResult {
	var ws LintResult

	if !c.Cookie.Secure {
		ws = append(ws, LintWarning{Code: "cookie_not_secure", Message: "session cookie is sent over plain HTTP"})
	}
	if c.Session.TTL > time.Hour {
		ws = append(ws, LintWarning{Code: "session_ttl_long", Message: "sliding window exceeds one hour"})
	}
	if !c.Security.EnableIPThrottle {
		ws = append(ws, LintWarning{Code: "ip_throttle_disabled", Message: "failed logins are only throttled per identifier"})
	}
	if c.Security.MaxRegisterAttempts == 0 {
		ws = append(ws, LintWarning{Code: "register_throttle_disabled", Message: "registrations are not throttled"})
	}
	if c.Password.Cost < password.DefaultCost {
		ws = append(ws, LintWarning{Code: "bcrypt_cost_low", Message: "bcrypt cost below the default"})
	}
	if c.Audit.Enabled && c.Audit.DropIfFull {
		ws = append(ws, LintWarning{Code: "audit_drop_if_full", Message: "audit events are dropped under backpressure"})
	}

	return ws
}
