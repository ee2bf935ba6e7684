package sessiongate

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/sessiongate/jwt"
)

// UserProvider is the interface callers implement to connect the engine to their user
// database. Implementations return [ErrUserNotFound] for unknown accounts and
// [ErrAccountExists] for duplicate registrations; any other error is treated as the
// backend being unavailable.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// UserRecord is the account record returned by [UserProvider]. PasswordHash may be empty
// for accounts that never set a password; such accounts cannot log in with one.
type UserRecord struct {
	UserID       string
	Name         string
	Email        string
	PasswordHash string
}

// CreateUserInput carries a new account. The password is already hashed.
type CreateUserInput struct {
	Name         string
	Email        string
	PasswordHash string
}

// RegisterInput is the plaintext registration request accepted by [Engine.Register].
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Identity is what gets embedded in a fresh session token.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Extra    map[string]any
}

// IssuedToken is a freshly signed session token together with the claims it encodes and
// the cookie that carries it. The cookie's Expires and MaxAge are derived from
// Claims.ExpiresAt.
type IssuedToken struct {
	Token  string
	Claims jwt.Claims
	Cookie *http.Cookie
}

// SessionInfo describes one bookkeeping record for listing on a profile page.
type SessionInfo struct {
	SessionID string
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
	Current   bool
}

// IssueOption customizes [Engine.Issue].
type IssueOption func(*issueOptions)

type issueOptions struct {
	expiresAt time.Time
}

// WithExpiry replaces the default now+TTL expiry with an explicit absolute time.
func WithExpiry(t time.Time) IssueOption {
	return func(o *issueOptions) {
		o.expiresAt = t
	}
}
