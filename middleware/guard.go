package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/sessiongate"
	"github.com/MrEthical07/sessiongate/jwt"
	"github.com/sirupsen/logrus"
)

// Action is the terminal outcome of a guard decision.
type Action int

const (
	// ActionAllow passes the request through unchanged.
	ActionAllow Action = iota
	// ActionRedirect answers with a redirect to Decision.Location.
	ActionRedirect
	// ActionRefresh passes the request through and sets the renewed cookie.
	ActionRefresh
)

func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionRedirect:
		return "redirect"
	case ActionRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// State classifies a request before an action is chosen.
type State int

const (
	// StateUnprotected covers paths outside the policy and guests on guest-only pages.
	StateUnprotected State = iota
	StateProtectedNoSession
	StateProtectedInvalid
	StateProtectedValid
	StateAuthPageWhileAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnprotected:
		return "unprotected"
	case StateProtectedNoSession:
		return "protected_no_session"
	case StateProtectedInvalid:
		return "protected_invalid"
	case StateProtectedValid:
		return "protected_valid"
	case StateAuthPageWhileAuthenticated:
		return "auth_page_while_authenticated"
	default:
		return "unknown"
	}
}

// Decision is what the guard resolved for one request. It carries no response effects;
// [Guard.Middleware] applies them.
type Decision struct {
	State  State
	Action Action
	// Location is set for ActionRedirect.
	Location string
	// Renewal is set for ActionRefresh.
	Renewal *sessiongate.IssuedToken
	// Claims are the verified claims, renewed when Renewal is set.
	Claims *jwt.Claims
	// Reason is the rejection label for StateProtectedInvalid. Never sent to the client.
	Reason string
}

// Guard enforces a [Policy] on page requests using the session cookie.
type Guard struct {
	engine         *sessiongate.Engine
	policy         Policy
	loginPath      string
	homePath       string
	redirectStatus int
	logger         logrus.FieldLogger
}

// GuardOption customizes a [Guard].
type GuardOption func(*Guard)

// WithLoginPath sets where unauthenticated requests are sent. Default "/auth".
func WithLoginPath(p string) GuardOption {
	return func(g *Guard) { g.loginPath = p }
}

// WithHomePath sets where authenticated users on guest-only pages are sent. Default "/".
func WithHomePath(p string) GuardOption {
	return func(g *Guard) { g.homePath = p }
}

// WithRedirectStatus overrides the redirect status code. Default 307.
func WithRedirectStatus(code int) GuardOption {
	return func(g *Guard) { g.redirectStatus = code }
}

// WithLogger sets the logger for rejected sessions.
func WithLogger(l logrus.FieldLogger) GuardOption {
	return func(g *Guard) { g.logger = l }
}

// NewGuard returns a Guard for engine. A nil policy means [DefaultPolicy].
func NewGuard(engine *sessiongate.Engine, policy Policy, opts ...GuardOption) *Guard {
	if policy == nil {
		policy = DefaultPolicy()
	}
	g := &Guard{
		engine:         engine,
		policy:         policy,
		loginPath:      "/auth",
		homePath:       "/",
		redirectStatus: http.StatusTemporaryRedirect,
		logger:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decide classifies r and picks exactly one action. It signs a renewal token for valid
// protected requests but never touches the response.
func (g *Guard) Decide(r *http.Request) Decision {
	rule, ok := g.lookup(r.URL)
	if !ok {
		return Decision{State: StateUnprotected, Action: ActionAllow}
	}

	if g.engine == nil {
		if rule.Access == AccessProtected {
			return g.redirectToLogin(StateProtectedInvalid, "internal")
		}
		return Decision{State: StateUnprotected, Action: ActionAllow}
	}

	claims, err := g.engine.SessionFromRequest(r)

	switch rule.Access {
	case AccessGuestOnly:
		if err != nil {
			return Decision{State: StateUnprotected, Action: ActionAllow}
		}
		return Decision{
			State:    StateAuthPageWhileAuthenticated,
			Action:   ActionRedirect,
			Location: g.homePath,
			Claims:   &claims,
		}

	case AccessProtected:
		if errors.Is(err, sessiongate.ErrNoToken) {
			return g.redirectToLogin(StateProtectedNoSession, "")
		}
		if err != nil {
			reason := sessiongate.RejectReason(err)
			g.logger.WithFields(logrus.Fields{
				"reason": reason,
				"path":   r.URL.Path,
			}).Debug("protected request rejected")
			return g.redirectToLogin(StateProtectedInvalid, reason)
		}

		renewed, err := g.engine.Refresh(r.Context(), claims)
		if err != nil {
			// The presented token is still valid; serve it without a new cookie.
			g.logger.WithError(err).WithField("path", r.URL.Path).Warn("session renewal failed")
			return Decision{State: StateProtectedValid, Action: ActionAllow, Claims: &claims}
		}
		return Decision{
			State:   StateProtectedValid,
			Action:  ActionRefresh,
			Renewal: renewed,
			Claims:  &renewed.Claims,
		}
	}

	return Decision{State: StateUnprotected, Action: ActionAllow}
}

// lookup resolves the rule for u. The page router splits on the escaped path, so a
// segment such as "a%2Fb" is one segment there but two in u.Path. Both forms are checked
// and a protected match on either wins.
func (g *Guard) lookup(u *url.URL) (Rule, bool) {
	rule, ok := g.policy.Lookup(u.Path)
	if ok && rule.Access == AccessProtected {
		return rule, true
	}
	if u.RawPath == "" {
		return rule, ok
	}

	routed, err := routingPath(u.EscapedPath())
	if err != nil {
		// Unparseable escapes: treat as protected.
		return Rule{Match: Exact(u.Path), Access: AccessProtected}, true
	}
	if routed == u.Path {
		return rule, ok
	}
	alt, altOK := g.policy.Lookup(routed)
	if altOK && (alt.Access == AccessProtected || !ok) {
		return alt, true
	}
	return rule, ok
}

// routingPath unescapes each segment of escaped while keeping encoded slashes as "%2F".
func routingPath(escaped string) (string, error) {
	segs := strings.Split(escaped, "/")
	for i, seg := range segs {
		pieces := splitEncodedSlash(seg)
		for j, piece := range pieces {
			un, err := url.PathUnescape(piece)
			if err != nil {
				return "", err
			}
			pieces[j] = un
		}
		segs[i] = strings.Join(pieces, "%2F")
	}
	return strings.Join(segs, "/"), nil
}

func splitEncodedSlash(seg string) []string {
	var out []string
	for {
		i := strings.Index(strings.ToUpper(seg), "%2F")
		if i < 0 {
			return append(out, seg)
		}
		out = append(out, seg[:i])
		seg = seg[i+3:]
	}
}

func (g *Guard) redirectToLogin(state State, reason string) Decision {
	return Decision{
		State:    state,
		Action:   ActionRedirect,
		Location: g.loginPath,
		Reason:   reason,
	}
}

// Middleware applies Decide to every request. Redirects end the request; renewals set
// the new cookie and expose the claims through [ClaimsFromContext].
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(r)

		switch d.Action {
		case ActionRedirect:
			http.Redirect(w, r, d.Location, g.redirectStatus)
			return
		case ActionRefresh:
			http.SetCookie(w, d.Renewal.Cookie)
		}

		if d.Claims != nil {
			r = r.WithContext(withClaims(r.Context(), d.Claims))
		}
		next.ServeHTTP(w, r)
	})
}

type claimsContextKey struct{}

func withClaims(ctx context.Context, c *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, c)
}

// ClaimsFromContext returns the claims attached by [Guard.Middleware] or [RequireSession].
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return c, ok && c != nil
}
