package password

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost matches the cost used by existing account hashes.
	DefaultCost = 10
	// DefaultMinLength is the shortest password accepted by [Bcrypt.Hash].
	DefaultMinLength = 6
	// MaxLength is the bcrypt input limit in bytes.
	MaxLength = 72
)

var (
	// ErrTooShort is returned when a password is below the configured minimum length.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong is returned when a password exceeds [MaxLength] bytes.
	ErrTooLong = errors.New("password too long")
	// ErrInvalidHash is returned when a stored hash cannot be parsed.
	ErrInvalidHash = errors.New("invalid password hash")
)

// Config defines the bcrypt parameters.
type Config struct {
	Cost      int
	MinLength int
}

// Bcrypt hashes and verifies passwords. It is safe for concurrent use.
type Bcrypt struct {
	config Config

	dummyOnce sync.Once
	dummy     []byte
}

// NewBcrypt validates cfg and returns a hasher. Zero fields take their defaults.
func NewBcrypt(cfg Config) (*Bcrypt, error) {
	if cfg.Cost == 0 {
		cfg.Cost = DefaultCost
	}
	if cfg.MinLength == 0 {
		cfg.MinLength = DefaultMinLength
	}
	if cfg.Cost < bcrypt.MinCost || cfg.Cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.MinLength < 1 || cfg.MinLength > MaxLength {
		return nil, fmt.Errorf("password min length must be within [1, %d]", MaxLength)
	}

	return &Bcrypt{config: cfg}, nil
}

// Cost returns the configured work factor.
func (b *Bcrypt) Cost() int {
	return b.config.Cost
}

// Hash returns the bcrypt hash of password.
func (b *Bcrypt) Hash(password string) (string, error) {
	// Raw bytes, no Unicode normalization.
	if len(password) < b.config.MinLength {
		return "", ErrTooShort
	}
	if len(password) > MaxLength {
		return "", ErrTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.config.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches encodedHash. A mismatch is (false, nil); an
// unparseable hash is (false, ErrInvalidHash).
func (b *Bcrypt) Verify(password, encodedHash string) (bool, error) {
	if encodedHash == "" {
		return false, ErrInvalidHash
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
}

// VerifyDummy runs a full comparison of password against a throwaway hash of the
// configured cost. Login paths without a stored hash call it so they cost the same as a
// wrong password.
func (b *Bcrypt) VerifyDummy(password string) {
	b.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("sessiongate-unused-account"), b.config.Cost)
		if err == nil {
			b.dummy = h
		}
	})
	if b.dummy == nil {
		return
	}
	if len(password) > MaxLength {
		password = password[:MaxLength]
	}
	_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(password))
}

// NeedsUpgrade reports whether encodedHash was produced with a lower cost than configured.
func (b *Bcrypt) NeedsUpgrade(encodedHash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return cost < b.config.Cost, nil
}
