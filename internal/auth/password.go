package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultHashCost    = bcrypt.DefaultCost
	DefaultHashWorkers = 4
)

// PasswordService wraps bcrypt behind a bounded worker pool. Hashing is
// CPU-bound and comparatively expensive; the pool caps how many hash
// computations run at once so a burst of logins cannot starve the rest of
// the server.
type PasswordService struct {
	cost  int
	slots chan struct{}
}

func NewPasswordService(cost, workers int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	if workers <= 0 {
		workers = DefaultHashWorkers
	}
	return &PasswordService{
		cost:  cost,
		slots: make(chan struct{}, workers),
	}
}

// Hash produces a one-way adaptive hash of the password.
func (s *PasswordService) Hash(ctx context.Context, password string) (string, error) {
	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.release()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Compare reports whether the password matches the stored hash, using the
// hash's constant-time verify primitive. A mismatch is not an error.
func (s *PasswordService) Compare(ctx context.Context, hash, password string) (bool, error) {
	if err := s.acquire(ctx); err != nil {
		return false, err
	}
	defer s.release()

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("comparing password: %w", err)
	}
	return true, nil
}

func (s *PasswordService) acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *PasswordService) release() {
	<-s.slots
}
