// Package rate provides the Redis-backed fixed-window counters that throttle failed logins
// and registrations.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - al:  login failures per identifier
//   - ali: login failures per IP
//   - ar:  registrations per IP
//
// # What this package must NOT do
//
//   - Decide what a failure is. Callers increment after they have classified the attempt.
//   - Be imported outside the sessiongate module.
package rate
