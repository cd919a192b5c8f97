package password

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher wraps bcrypt behind a bounded worker pool. Hashing is CPU-bound,
// so the pool keeps a burst of registrations from starving every other
// request handler of CPU.
type Hasher struct {
	cost  int
	slots chan struct{}
}

func NewHasher(cost int, workers int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = 4
	}

	return &Hasher{cost: cost, slots: make(chan struct{}, workers)}
}

// Hash produces a salted bcrypt hash of plaintext. It blocks until a pool
// slot is free or ctx is done.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	select {
	case h.slots <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-h.slots }()

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash. A malformed
// stored hash is a verification failure, not an error.
func (h *Hasher) Verify(plaintext string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
