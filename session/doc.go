// Package session keeps Redis-backed bookkeeping records for issued session tokens.
//
// # Role
//
// A [Record] is written when a session token is first issued, optionally touched when the
// token is renewed, and deleted on logout. The verification path never reads it: token
// trust is entirely signature based. Records exist so that a user's active sessions can be
// listed (issuing IP/user-agent fingerprints, created/updated times).
//
// # Binary encoding
//
// Records are stored as a compact versioned binary blob (see [Encode]). Decoders reject
// unknown versions instead of guessing.
//
// # What this package must NOT do
//
//   - Parse or sign tokens.
//   - Store raw tokens, IP addresses or user agents (only SHA-256 digests).
//   - Make authorization decisions.
package session
