package sessiongate

import (
	"net/http"
	"time"
)

// sessionCookie builds the cookie carrying token. Expires and MaxAge both come from the
// signed expiry so the browser never outlives the token.
func (e *Engine) sessionCookie(token string, issuedAt, expiresAt time.Time) *http.Cookie {
	maxAge := int(expiresAt.Sub(issuedAt) / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}

	return &http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    token,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
		Secure:   e.config.Cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// clearedCookie is the logout cookie: empty value, Max-Age=0.
func (e *Engine) clearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    "",
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   e.config.Cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
