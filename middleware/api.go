package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/sessiongate"
	"github.com/MrEthical07/sessiongate/jwt"
)

// RequireSession guards JSON endpoints. The token is read from the session cookie or an
// "Authorization: Bearer" header; failures answer 401 without a redirect. Unlike
// [Guard], it does not renew the session.
func RequireSession(engine *sessiongate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeUnauthorized(w)
				return
			}

			claims, err := requestClaims(engine, r)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), &claims)))
		})
	}
}

// OptionalSession attaches the claims of a valid session when there is one and passes
// every request through.
func OptionalSession(engine *sessiongate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine != nil {
				if claims, err := requestClaims(engine, r); err == nil {
					r = r.WithContext(withClaims(r.Context(), &claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestClaims(engine *sessiongate.Engine, r *http.Request) (jwt.Claims, error) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return engine.VerifyToken(token)
	}
	return engine.SessionFromRequest(r)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
