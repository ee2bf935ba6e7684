package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm is the only signing algorithm issued or accepted.
const Algorithm = "HS256"

// DefaultTTL is the token lifetime applied when the caller does not pick an expiry.
const DefaultTTL = 10 * time.Minute

// MinSecretLength is the shortest HMAC secret NewManager accepts (the HS256 output size).
const MinSecretLength = 32

const (
	claimUserID    = "userId"
	claimUsername  = "username"
	claimEmail     = "email"
	claimSessionID = "sid"
	claimIssuedAt  = "iat"
	claimExpiresAt = "exp"
)

var (
	// ErrMalformed reports a token that is not a structurally valid JWS.
	ErrMalformed = errors.New("token malformed")
	// ErrBadSignature reports a MAC mismatch or a header declaring a disallowed algorithm.
	ErrBadSignature = errors.New("token signature invalid")
	// ErrExpired reports a correctly signed token whose exp is not in the future.
	ErrExpired = errors.New("token expired")

	// ErrMissingUserID is returned by Sign when the claims carry no user identifier.
	ErrMissingUserID = errors.New("claims missing user id")
	// ErrInvalidExpiry is returned by Sign when an explicit expiry is not after issuance.
	ErrInvalidExpiry = errors.New("expiry must be after issuance")
)

// Config configures a [Manager]. It is read once by [NewManager] and never mutated.
type Config struct {
	// Secret is the process-wide HMAC key. Required, at least MinSecretLength bytes.
	Secret []byte
	// TTL is the default lifetime of a signed token. Zero means DefaultTTL.
	TTL time.Duration
	// Now overrides the clock, mainly for tests. Nil means time.Now.
	Now func() time.Time
}

// Claims is the payload embedded in a session token.
type Claims struct {
	UserID    string
	Username  string
	Email     string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Extra holds any additional caller-supplied keys. Reserved claim names are ignored.
	Extra map[string]any
}

// Clone returns a deep copy of c so that renewals never share an Extra map.
func (c Claims) Clone() Claims {
	out := c
	if c.Extra != nil {
		out.Extra = make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Manager signs and verifies session tokens with a single immutable secret.
// It is safe for concurrent use.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewManager validates cfg and returns a ready [Manager]. A missing or short secret is a
// configuration error; callers are expected to refuse to start.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a secret")
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	m := &Manager{
		secret: secret,
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(m.now),
	)
	return m, nil
}

// TTL returns the default token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Now returns the manager's notion of the current time.
func (m *Manager) Now() time.Time {
	return m.now()
}

// Sign issues a token for c. IssuedAt is always set to now. When c.ExpiresAt is zero the
// token expires after the configured TTL; otherwise c.ExpiresAt is used as given and must be
// after now. The returned Claims carry the timestamps exactly as encoded (second precision).
func (m *Manager) Sign(c Claims) (string, Claims, error) {
	if c.UserID == "" {
		return "", Claims{}, ErrMissingUserID
	}

	now := m.now().Truncate(time.Second)
	expiresAt := c.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(m.ttl)
	}
	expiresAt = expiresAt.Truncate(time.Second)
	if !expiresAt.After(now) {
		return "", Claims{}, ErrInvalidExpiry
	}

	issued := c.Clone()
	issued.IssuedAt = now
	issued.ExpiresAt = expiresAt

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, toMapClaims(issued))
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", Claims{}, err
	}

	return signed, issued, nil
}

// Verify checks, in order, structure, declared algorithm, signature, and expiry, and
// returns the embedded claims. Failures are reported as ErrMalformed, ErrBadSignature, or
// ErrExpired (wrapped with detail); Verify never panics on hostile input.
func (m *Manager) Verify(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	mc := jwt.MapClaims{}
	token, err := m.parser.ParseWithClaims(tokenStr, mc, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != Algorithm {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}
	if !token.Valid {
		return Claims{}, ErrBadSignature
	}

	claims, err := fromMapClaims(mc)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		// missing exp, nbf in the future, undecodable claim types
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func toMapClaims(c Claims) jwt.MapClaims {
	mc := make(jwt.MapClaims, len(c.Extra)+6)
	for k, v := range c.Extra {
		if isReserved(k) {
			continue
		}
		mc[k] = v
	}
	mc[claimUserID] = c.UserID
	if c.Username != "" {
		mc[claimUsername] = c.Username
	}
	if c.Email != "" {
		mc[claimEmail] = c.Email
	}
	if c.SessionID != "" {
		mc[claimSessionID] = c.SessionID
	}
	mc[claimIssuedAt] = jwt.NewNumericDate(c.IssuedAt)
	mc[claimExpiresAt] = jwt.NewNumericDate(c.ExpiresAt)
	return mc
}

func fromMapClaims(mc jwt.MapClaims) (Claims, error) {
	var c Claims

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, err
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}
	iat, err := mc.GetIssuedAt()
	if err != nil {
		return Claims{}, err
	}
	if iat != nil {
		c.IssuedAt = iat.Time
	}

	// Non-string identity fields are treated as absent; the caller decides whether the
	// token still carries a usable identity.
	c.UserID, _ = mc[claimUserID].(string)
	c.Username, _ = mc[claimUsername].(string)
	c.Email, _ = mc[claimEmail].(string)
	c.SessionID, _ = mc[claimSessionID].(string)

	for k, v := range mc {
		if isReserved(k) {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = v
	}
	return c, nil
}

func isReserved(key string) bool {
	switch key {
	case claimUserID, claimUsername, claimEmail, claimSessionID, claimIssuedAt, claimExpiresAt:
		return true
	}
	return false
}
