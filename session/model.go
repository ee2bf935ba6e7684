package session

import "crypto/sha256"

// Record is the persisted bookkeeping entry for one issued session token.
type Record struct {
	ID            string
	UserID        string
	TokenHash     [32]byte
	IPHash        [32]byte
	UserAgentHash [32]byte

	CreatedAt int64
	UpdatedAt int64
	ExpiresAt int64
}

// HashValue returns the SHA-256 digest stored in place of a raw token, IP or user agent.
// The empty string hashes to the zero value so that "unknown" stays recognisable.
func HashValue(v string) [32]byte {
	if v == "" {
		return [32]byte{}
	}
	return sha256.Sum256([]byte(v))
}
