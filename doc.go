// Package sessiongate provides cookie-carried, HMAC-signed session tokens with a sliding
// expiration window, plus the login and registration flows that mint them.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// sessiongate is the public surface. It exposes [Engine], [Builder], [Config], and value
// types ([IssuedToken], [MetricsSnapshot], [SessionInfo]). Token encoding lives in jwt,
// bookkeeping records in session, request gating in middleware.
//
// # Trust model
//
// Verification is stateless: a request is authenticated by the token signature and expiry
// alone. When Redis is configured the engine also keeps a bookkeeping record per session
// (creation, renewals, logout) for listing, but that record is never consulted to decide
// whether a request is authenticated.
//
// # What this package must NOT do
//
//   - Tell the client why a session was rejected. Every failure yields the same outcome.
//   - Start without a secret of at least 32 bytes.
//   - Import any sub-package that re-imports sessiongate (no import cycles).
//
// # Performance contract
//
// [Engine.SessionFromRequest] is the hot path: one HMAC verification, no I/O. Renewal adds
// one signing and, when renewal tracking is enabled, one best-effort Redis round-trip.
package sessiongate
