// Package middleware adapts sessiongate.Engine to net/http.
//
// # Page guard
//
// [Guard] matches the request path against an ordered [Policy] and resolves one
// [Decision]:
//
//   - no rule matches: pass through, no verification
//   - protected, no cookie or invalid token: 307 to the login page
//   - protected, valid: pass through and set a renewed cookie
//   - guest-only, valid: 307 to the home page
//   - guest-only, otherwise: pass through
//
// [Guard.Decide] is separate from [Guard.Middleware] so the routing table can be tested
// without a response writer.
//
// # API guards
//
//   - [RequireSession]: cookie or Bearer token, 401 JSON on failure.
//   - [OptionalSession]: attaches claims when present.
//
// # What this package must NOT do
//
//   - Parse or sign tokens directly (delegates to Engine).
//   - Access Redis.
//   - Tell the client why a session was rejected.
package middleware
