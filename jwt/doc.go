// Package jwt signs and verifies the compact HS256 session tokens carried in the session
// cookie.
//
// # Wire format
//
// header.payload.signature, each segment base64url without padding. The header always
// declares alg=HS256; the payload is a flat claims object (userId, username, email, sid, iat,
// exp plus caller-supplied keys); the signature is HMAC-SHA256 over "header.payload".
//
// # Failure model
//
// [Manager.Verify] reports failure as one of [ErrMalformed], [ErrBadSignature] or
// [ErrExpired]. It never trusts a token partially: any decoding, algorithm, signature or
// expiry problem rejects the whole token.
//
// # What this package must NOT do
//
//   - Read cookies or HTTP state (the root package owns transport).
//   - Accept any algorithm other than HS256.
//   - Consult storage during verification.
package jwt
