package sessiongate

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/MrEthical07/sessiongate/internal/rate"
	"github.com/MrEthical07/sessiongate/password"
)

const (
	maxNameLength  = 255
	maxEmailLength = 255
)

// Login verifies email and password against the [UserProvider] and, on success, issues a
// session. Unknown users, accounts without a password and wrong passwords all return
// ErrInvalidCredentials and count against the throttle.
//
// Unknown users and accounts without a password still pay for one bcrypt comparison.
//
//	Flow: throttle check → lookup → bcrypt verify → optional rehash → reset throttle → Issue
func (e *Engine) Login(ctx context.Context, email, plaintext string, opts ...IssueOption) (*IssuedToken, error) {
	if e == nil || e.userProvider == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
			return nil, e.loginThrottleError(ctx, err)
		}
	}

	if email == "" || plaintext == "" {
		return nil, e.loginFailure(ctx, email, ip, "", "empty_credentials")
	}

	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.passwordHash.VerifyDummy(plaintext)
			return nil, e.loginFailure(ctx, email, ip, "", "user_not_found")
		}
		e.logger.WithError(err).Error("user lookup failed")
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrUserProviderUnavailable, nil)
		return nil, fmt.Errorf("%w: %v", ErrUserProviderUnavailable, err)
	}

	if user.PasswordHash == "" {
		e.passwordHash.VerifyDummy(plaintext)
		return nil, e.loginFailure(ctx, email, ip, user.UserID, "no_password")
	}

	ok, err := e.passwordHash.Verify(plaintext, user.PasswordHash)
	if err != nil || !ok {
		reason := "password_mismatch"
		if err != nil {
			reason = "hash_invalid"
		}
		return nil, e.loginFailure(ctx, email, ip, user.UserID, reason)
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHash(ctx, user, plaintext)
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, email, ip); err != nil {
			e.logger.WithError(err).Warn("login throttle reset failed")
		}
	}

	issued, err := e.Issue(ctx, Identity{
		UserID:   user.UserID,
		Username: user.Name,
		Email:    user.Email,
	}, opts...)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, issued.Claims.SessionID, nil, nil)

	return issued, nil
}

func (e *Engine) loginFailure(ctx context.Context, email, ip, userID, reason string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, email, ip); err != nil {
			return e.loginThrottleError(ctx, err)
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": email,
			"reason":     reason,
		}
	})
	return ErrInvalidCredentials
}

func (e *Engine) loginThrottleError(ctx context.Context, err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, nil)
		e.emitRateLimit(ctx, "login")
		return ErrLoginRateLimited
	}

	// Throttle backend down: fail closed.
	e.logger.WithError(err).Error("login throttle unavailable")
	return fmt.Errorf("%w: %v", ErrLoginRateLimited, err)
}

func (e *Engine) upgradeHash(ctx context.Context, user UserRecord, plaintext string) {
	need, err := e.passwordHash.NeedsUpgrade(user.PasswordHash)
	if err != nil || !need {
		return
	}
	upgraded, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		e.logger.WithError(err).Warn("password hash upgrade generation failed")
		return
	}
	// Best-effort: never blocks a successful login.
	if err := e.userProvider.UpdatePasswordHash(ctx, user.UserID, upgraded); err != nil {
		e.logger.WithError(err).Warn("password hash upgrade update failed")
	}
}

// Register creates an account through the [UserProvider] and issues its first session.
//
//	Flow: throttle → validate → bcrypt hash → CreateUser → Issue
func (e *Engine) Register(ctx context.Context, in RegisterInput, opts ...IssueOption) (*IssuedToken, UserRecord, error) {
	if e == nil || e.userProvider == nil || e.passwordHash == nil {
		return nil, UserRecord{}, ErrEngineNotReady
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckRegister(ctx, clientIPFromContext(ctx)); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricRegisterRateLimited)
				e.emitAudit(ctx, auditEventRegisterRateLimited, false, "", "", ErrRegisterRateLimited, nil)
				e.emitRateLimit(ctx, "register")
				return nil, UserRecord{}, ErrRegisterRateLimited
			}
			e.logger.WithError(err).Error("registration throttle unavailable")
			return nil, UserRecord{}, fmt.Errorf("%w: %v", ErrRegisterRateLimited, err)
		}
	}

	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if err := validateIdentity(name, email); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, UserRecord{}, err
	}

	hash, err := e.passwordHash.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong) {
			err = fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
		}
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, UserRecord{}, err
	}

	user, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrAccountExists, nil)
			return nil, UserRecord{}, ErrAccountExists
		}
		e.logger.WithError(err).Error("user creation failed")
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrUserProviderUnavailable, nil)
		return nil, UserRecord{}, fmt.Errorf("%w: %v", ErrUserProviderUnavailable, err)
	}

	issued, err := e.Issue(ctx, Identity{
		UserID:   user.UserID,
		Username: user.Name,
		Email:    user.Email,
	}, opts...)
	if err != nil {
		return nil, UserRecord{}, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.UserID, issued.Claims.SessionID, nil, nil)

	user.PasswordHash = ""
	return issued, user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateIdentity(name, email string) error {
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: name must be 1-%d bytes", ErrInvalidInput, maxNameLength)
	}
	if email == "" || len(email) > maxEmailLength {
		return fmt.Errorf("%w: email must be 1-%d bytes", ErrInvalidInput, maxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email is not a plain address", ErrInvalidInput)
	}
	return nil
}
