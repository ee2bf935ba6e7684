package sessiongate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/sessiongate/internal/rate"
	"github.com/MrEthical07/sessiongate/jwt"
	"github.com/MrEthical07/sessiongate/password"
	"github.com/MrEthical07/sessiongate/session"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine issues, reads and renews session tokens and runs the login and registration
// flows. It is safe for concurrent use after [Builder.Build].
type Engine struct {
	config       Config
	jwtManager   *jwt.Manager
	records      *session.Store
	rateLimiter  *rate.Limiter
	passwordHash *password.Bcrypt
	userProvider UserProvider
	audit        *auditDispatcher
	metrics      *Metrics
	logger       logrus.FieldLogger
	now          func() time.Time
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// CookieName returns the configured session cookie name.
func (e *Engine) CookieName() string {
	return e.config.Cookie.Name
}

// TTL returns the sliding window length.
func (e *Engine) TTL() time.Duration {
	return e.jwtManager.TTL()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
ISSUANCE
====================================
*/

// Issue mints the initial token for id, writes its bookkeeping record when Redis is
// configured, and returns the token with its cookie. Without [WithExpiry] the token lives
// for the sliding TTL.
func (e *Engine) Issue(ctx context.Context, id Identity, opts ...IssueOption) (*IssuedToken, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	var o issueOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	claims := jwt.Claims{
		UserID:    id.UserID,
		Username:  id.Username,
		Email:     id.Email,
		SessionID: uuid.NewString(),
		ExpiresAt: o.expiresAt,
		Extra:     id.Extra,
	}

	token, issued, err := e.jwtManager.Sign(claims)
	if err != nil {
		if errors.Is(err, jwt.ErrMissingUserID) || errors.Is(err, jwt.ErrInvalidExpiry) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}

	e.saveRecord(ctx, token, issued)
	e.metricInc(MetricSessionIssued)

	return &IssuedToken{
		Token:  token,
		Claims: issued,
		Cookie: e.sessionCookie(token, issued.IssuedAt, issued.ExpiresAt),
	}, nil
}

func (e *Engine) saveRecord(ctx context.Context, token string, c jwt.Claims) {
	if e.records == nil {
		return
	}

	rec := &session.Record{
		ID:            c.SessionID,
		UserID:        c.UserID,
		TokenHash:     session.HashValue(token),
		IPHash:        session.HashValue(clientIPFromContext(ctx)),
		UserAgentHash: session.HashValue(userAgentFromContext(ctx)),
		CreatedAt:     c.IssuedAt.Unix(),
		UpdatedAt:     c.IssuedAt.Unix(),
		ExpiresAt:     c.ExpiresAt.Unix(),
	}
	if err := e.records.Save(ctx, rec); err != nil {
		e.metricInc(MetricRecordWriteFailure)
		e.logger.WithFields(logrus.Fields{
			"session_id": c.SessionID,
			"user_id":    c.UserID,
		}).WithError(err).Warn("session record save failed")
	}
}

/*
====================================
SESSION ACCESS
====================================
*/

// SessionFromRequest reads the session cookie from r and verifies it. The error is one of
// ErrNoToken, ErrMalformedToken, ErrBadSignature, ErrTokenExpired or ErrMissingIdentity,
// all of which wrap ErrUnauthorized. No I/O.
func (e *Engine) SessionFromRequest(r *http.Request) (jwt.Claims, error) {
	if e == nil || e.jwtManager == nil {
		return jwt.Claims{}, ErrEngineNotReady
	}

	cookie, err := r.Cookie(e.config.Cookie.Name)
	if err != nil || cookie.Value == "" {
		e.metricInc(MetricSessionNoToken)
		return jwt.Claims{}, ErrNoToken
	}

	return e.verify(cookie.Value)
}

// VerifyToken verifies a raw token string the same way SessionFromRequest does.
func (e *Engine) VerifyToken(token string) (jwt.Claims, error) {
	if e == nil || e.jwtManager == nil {
		return jwt.Claims{}, ErrEngineNotReady
	}
	if token == "" {
		e.metricInc(MetricSessionNoToken)
		return jwt.Claims{}, ErrNoToken
	}
	return e.verify(token)
}

func (e *Engine) verify(token string) (jwt.Claims, error) {
	start := time.Now()
	claims, err := e.jwtManager.Verify(token)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpired):
			e.metricInc(MetricSessionExpired)
			return jwt.Claims{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrBadSignature):
			e.metricInc(MetricSessionBadSignature)
			return jwt.Claims{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
		default:
			e.metricInc(MetricSessionMalformed)
			return jwt.Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	if strings.TrimSpace(claims.UserID) == "" {
		e.metricInc(MetricSessionMissingIdentity)
		return jwt.Claims{}, ErrMissingIdentity
	}

	e.metricInc(MetricSessionValid)
	return claims, nil
}

// GetSession returns the verified claims of r, or (nil, false) when there is no valid
// session. Failures other than a missing cookie are logged at debug level with their
// reason; nothing is written to the response.
func (e *Engine) GetSession(r *http.Request) (*jwt.Claims, bool) {
	claims, err := e.SessionFromRequest(r)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			e.logRejected(r, err)
		}
		return nil, false
	}
	return &claims, true
}

func (e *Engine) logRejected(r *http.Request, err error) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.WithFields(logrus.Fields{
		"reason": RejectReason(err),
		"path":   r.URL.Path,
	}).WithError(err).Debug("session rejected")
}

// RejectReason maps a SessionFromRequest error to a short stable label for logs.
func RejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoToken):
		return "no_token"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrMissingIdentity):
		return "missing_identity"
	default:
		return "internal"
	}
}

/*
====================================
SLIDING RENEWAL
====================================
*/

// Renew reads r exactly as GetSession does and, when the session is valid, re-signs the
// same claims with expiry now+TTL. Returns (nil, false) when there is nothing to renew so
// the caller can decide the redirect.
func (e *Engine) Renew(r *http.Request) (*IssuedToken, bool) {
	claims, err := e.SessionFromRequest(r)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			e.logRejected(r, err)
		}
		return nil, false
	}

	renewed, err := e.Refresh(r.Context(), claims)
	if err != nil {
		e.logger.WithError(err).Warn("session renewal failed")
		return nil, false
	}
	return renewed, true
}

// Refresh re-signs already verified claims with a fresh expiry. Identity fields, the
// session ID and Extra are carried over unchanged.
func (e *Engine) Refresh(ctx context.Context, claims jwt.Claims) (*IssuedToken, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	next := claims.Clone()
	next.IssuedAt = time.Time{}
	next.ExpiresAt = time.Time{}

	token, issued, err := e.jwtManager.Sign(next)
	if err != nil {
		return nil, err
	}

	if e.config.Session.TrackRenewals {
		e.touchRecord(ctx, token, issued)
	}
	e.metricInc(MetricSessionRenewed)

	return &IssuedToken{
		Token:  token,
		Claims: issued,
		Cookie: e.sessionCookie(token, issued.IssuedAt, issued.ExpiresAt),
	}, nil
}

func (e *Engine) touchRecord(ctx context.Context, token string, c jwt.Claims) {
	if e.records == nil || c.SessionID == "" {
		return
	}

	err := e.records.Touch(ctx, c.SessionID, session.HashValue(token), c.ExpiresAt.Unix())
	switch {
	case err == nil:
	case errors.Is(err, session.ErrRecordNotFound):
		e.logger.WithField("session_id", c.SessionID).Debug("renewal for unrecorded session")
	default:
		e.metricInc(MetricRecordWriteFailure)
		e.logger.WithField("session_id", c.SessionID).WithError(err).Warn("session record touch failed")
	}
}

/*
====================================
LOGOUT
====================================
*/

// Logout clears the session cookie on w and removes the bookkeeping record addressed by a
// valid token in r. It always clears the cookie, even when r carries no valid session.
func (e *Engine) Logout(ctx context.Context, r *http.Request, w http.ResponseWriter) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}

	http.SetCookie(w, e.clearedCookie())
	e.metricInc(MetricLogout)

	claims, err := e.SessionFromRequest(r)
	if err != nil {
		e.emitAudit(ctx, auditEventLogout, true, "", "", nil, nil)
		return nil
	}

	var deleteErr error
	if e.records != nil && claims.SessionID != "" {
		if deleteErr = e.records.Delete(ctx, claims.SessionID); deleteErr != nil {
			e.logger.WithField("session_id", claims.SessionID).WithError(deleteErr).Warn("session record delete failed")
		}
	}

	e.emitAudit(ctx, auditEventLogout, deleteErr == nil, claims.UserID, claims.SessionID, deleteErr, nil)
	return nil
}

/*
====================================
RECORDS
====================================
*/

// ListSessions returns the bookkeeping records for userID, newest first. currentSessionID
// marks the caller's own session. Without Redis the list is empty.
func (e *Engine) ListSessions(ctx context.Context, userID, currentSessionID string) ([]SessionInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.records == nil {
		return nil, nil
	}

	recs, err := e.records.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]SessionInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, SessionInfo{
			SessionID: rec.ID,
			CreatedAt: time.Unix(rec.CreatedAt, 0).UTC(),
			UpdatedAt: time.Unix(rec.UpdatedAt, 0).UTC(),
			ExpiresAt: time.Unix(rec.ExpiresAt, 0).UTC(),
			Current:   rec.ID == currentSessionID,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Ping checks the Redis connection when one is configured.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.records == nil {
		return nil
	}
	_, err := e.records.Ping(ctx)
	return err
}
