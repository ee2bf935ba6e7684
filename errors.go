package sessiongate

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is the common cause of every request-session failure. Callers that only
	// need a yes/no answer test for it with errors.Is.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoToken is returned when the request carries no session cookie.
	ErrNoToken = fmt.Errorf("%w: no session token", ErrUnauthorized)
	// ErrMalformedToken is returned when the cookie value is not a structurally valid token.
	ErrMalformedToken = fmt.Errorf("%w: malformed session token", ErrUnauthorized)
	// ErrBadSignature is returned on MAC mismatch or a disallowed algorithm.
	ErrBadSignature = fmt.Errorf("%w: bad session token signature", ErrUnauthorized)
	// ErrTokenExpired is returned when the signature is valid but the expiry has passed.
	ErrTokenExpired = fmt.Errorf("%w: session token expired", ErrUnauthorized)
	// ErrMissingIdentity is returned when a verified token carries no user identifier.
	ErrMissingIdentity = fmt.Errorf("%w: session token missing identity", ErrUnauthorized)

	// ErrInvalidCredentials is returned by Login for unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by a UserProvider when no account matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned by a UserProvider when the email is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrUserProviderUnavailable wraps unexpected UserProvider failures.
	ErrUserProviderUnavailable = errors.New("user provider unavailable")
	// ErrPasswordPolicy is returned when a new password violates the length policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrLoginRateLimited is returned once the failed-login budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRegisterRateLimited is returned once the registration budget is spent.
	ErrRegisterRateLimited = errors.New("registration rate limited")
	// ErrInvalidInput is returned for empty or oversized identity fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEngineNotReady is returned when a method is called on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
