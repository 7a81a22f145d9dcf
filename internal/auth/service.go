package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pokerplan/internal/constants"
	"pokerplan/internal/db"
	"pokerplan/internal/models"
)

// Service holds the credential lifecycle business rules: registration,
// login, email verification, and password reset. Storage, token signing,
// and hashing are injected collaborators.
type Service struct {
	users         *db.UserRepository
	jwt           *JWTService
	passwords     *PasswordService
	resetTokenTTL time.Duration
}

func NewService(users *db.UserRepository, jwt *JWTService, passwords *PasswordService, resetTokenTTL time.Duration) *Service {
	return &Service{
		users:         users,
		jwt:           jwt,
		passwords:     passwords,
		resetTokenTTL: resetTokenTTL,
	}
}

type RegisterParams struct {
	Email     string
	Nickname  string
	Password  string
	FirstName *string
	LastName  *string
}

type RegistrationResult struct {
	UserID            string
	Email             string
	VerificationToken string
}

// Register creates a new unverified user and returns the verification
// token for downstream delivery. The existence pre-checks give precise
// conflict messages on the fast path; the store's UNIQUE constraints are
// the authoritative boundary when two registrations race.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*RegistrationResult, error) {
	email := NormalizeEmail(params.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	if _, err := s.users.FindByNickname(ctx, params.Nickname); err == nil {
		return nil, ErrNicknameTaken
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("checking nickname: %w", err)
	}

	passwordHash, err := s.passwords.Hash(ctx, params.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	verificationToken, err := GenerateOpaqueToken(constants.CapabilityTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generating verification token: %w", err)
	}

	user, err := s.users.Create(ctx, db.CreateUserParams{
		Email:             email,
		Nickname:          params.Nickname,
		PasswordHash:      passwordHash,
		FirstName:         params.FirstName,
		LastName:          params.LastName,
		VerificationToken: verificationToken,
	})
	if errors.Is(err, db.ErrDuplicate) {
		// Lost the race after passing the pre-checks. Re-resolve which
		// field collided so the conflict message stays precise.
		if _, lookupErr := s.users.FindByEmail(ctx, email); lookupErr == nil {
			return nil, ErrEmailTaken
		}
		return nil, ErrNicknameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return &RegistrationResult{
		UserID:            user.ID,
		Email:             user.Email,
		VerificationToken: verificationToken,
	}, nil
}

// Login authenticates by email or nickname and issues a bearer token.
// Unknown identifier, wrong password, and unhashable input all collapse to
// ErrInvalidCredentials so callers cannot enumerate accounts; only the
// unverified state gets its own condition.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.User, string, error) {
	var user *models.User
	var err error

	// An identifier containing '@' is always treated as an email; exactly
	// one lookup path is taken.
	if strings.Contains(identifier, "@") {
		user, err = s.users.FindByEmail(ctx, NormalizeEmail(identifier))
	} else {
		user, err = s.users.FindByNickname(ctx, identifier)
	}
	if errors.Is(err, db.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("finding user: %w", err)
	}

	if !user.Verified {
		return nil, "", ErrNotVerified
	}

	ok, err := s.passwords.Compare(ctx, user.PasswordHash, password)
	if err != nil {
		return nil, "", fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.Issue(user)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}

	return user, token, nil
}

// VerifyEmail consumes a verification token, flipping the user to verified.
// The token is single-use: a repeated call with the same token fails.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	_, err := s.users.Verify(ctx, token)
	if errors.Is(err, db.ErrNotFound) {
		return ErrInvalidVerificationToken
	}
	if err != nil {
		return fmt.Errorf("verifying email: %w", err)
	}
	return nil
}

// ForgotPassword issues a fresh reset token for the account, if one
// exists. ok is false for an unknown email; the caller must keep its
// outward response identical in both cases.
func (s *Service) ForgotPassword(ctx context.Context, email string) (token string, ok bool, err error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, db.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("finding user: %w", err)
	}

	token, err = GenerateOpaqueToken(constants.CapabilityTokenBytes)
	if err != nil {
		return "", false, fmt.Errorf("generating reset token: %w", err)
	}

	if err := s.users.SetResetToken(ctx, user.ID, token, time.Now().Add(s.resetTokenTTL)); err != nil {
		return "", false, fmt.Errorf("storing reset token: %w", err)
	}

	return token, true, nil
}

// ResetPassword consumes a reset token and replaces the password hash.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	passwordHash, err := s.passwords.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	_, err = s.users.UpdatePassword(ctx, token, passwordHash)
	if errors.Is(err, db.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("resetting password: %w", err)
	}
	return nil
}

// GetMe returns the profile for an already-authenticated user id.
func (s *Service) GetMe(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return user, nil
}

// NormalizeEmail fixes the email case policy at the service boundary:
// stored and compared lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
