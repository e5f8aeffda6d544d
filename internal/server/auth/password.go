package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authgate/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
// Every Hash call draws a fresh random salt, so equal passwords produce
// different digests.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher validates cost against bcrypt's supported range.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Cost returns the work factor new hashes are produced with.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns the bcrypt digest of password. Passwords longer than
// MaxPasswordBytes are rejected with common.ErrValidation.
func (h *Hasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password must be at most %d bytes", common.ErrValidation, MaxPasswordBytes)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether digest was produced from password. Mismatches and
// malformed digests both return false; bcrypt compares in constant time.
func (h *Hasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// VerifyDummy spends the same work as Verify against a digest no password
// matches. Call it when there is no stored digest so lookups for unknown
// accounts take as long as wrong-password attempts.
func (h *Hasher) VerifyDummy(password string) bool {
	h.dummyOnce.Do(func() {
		// GenerateFromPassword only fails on cost or length, both fixed here.
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("authgate-no-such-user"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
	return false
}
