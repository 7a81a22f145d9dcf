package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pokerplan/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

const userColumns = `id, email, nickname, password_hash, first_name, last_name, avatar_url,
	verified, verification_token, reset_token, reset_token_expires_at, created_at, updated_at`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

type CreateUserParams struct {
	Email             string
	Nickname          string
	PasswordHash      string
	FirstName         *string
	LastName          *string
	VerificationToken string
}

// Create inserts a new unverified user. The UNIQUE constraints on email and
// nickname are the authoritative uniqueness boundary; a violation surfaces
// as ErrDuplicate regardless of any pre-checks the caller has done.
func (r *UserRepository) Create(ctx context.Context, params CreateUserParams) (*models.User, error) {
	id, err := GenerateID("usr")
	if err != nil {
		return nil, fmt.Errorf("generating user ID: %w", err)
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, nickname, password_hash, first_name, last_name, verified, verification_token, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id, params.Email, params.Nickname, params.PasswordHash,
		params.FirstName, params.LastName, params.VerificationToken, now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	token := params.VerificationToken
	return &models.User{
		ID:                id,
		Email:             params.Email,
		Nickname:          params.Nickname,
		PasswordHash:      params.PasswordHash,
		FirstName:         params.FirstName,
		LastName:          params.LastName,
		VerificationToken: &token,
		CreatedAt:         now,
	}, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepository) FindByNickname(ctx context.Context, nickname string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE nickname = ?`, nickname)
}

func (r *UserRepository) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = ?`, token)
}

func (r *UserRepository) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token = ?`, token)
}

// Verify consumes a verification token: flips the user to verified and
// clears the token in a single conditional update, so two concurrent calls
// bearing the same token yield exactly one success.
func (r *UserRepository) Verify(ctx context.Context, token string) (*models.User, error) {
	return r.consumeOne(ctx,
		`UPDATE users SET verified = 1, verification_token = NULL, updated_at = ?
		  WHERE verification_token = ?
		  RETURNING `+userColumns,
		time.Now().UTC(), token,
	)
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = ?, reset_token_expires_at = ?, updated_at = ? WHERE id = ?`,
		token, expiresAt.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("setting reset token: %w", err)
	}
	return checkRowsAffected(result)
}

// UpdatePassword consumes a reset token: replaces the password hash and
// clears the token atomically. Expired tokens do not match.
func (r *UserRepository) UpdatePassword(ctx context.Context, token, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()
	return r.consumeOne(ctx,
		`UPDATE users SET password_hash = ?, reset_token = NULL, reset_token_expires_at = NULL, updated_at = ?
		  WHERE reset_token = ?
		    AND reset_token_expires_at > ?
		  RETURNING `+userColumns,
		passwordHash, now, token, now,
	)
}

// ClearExpiredResetTokens drops reset tokens past their validity window so
// the single-use capability cannot linger indefinitely.
func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = NULL, reset_token_expires_at = NULL
		  WHERE reset_token IS NOT NULL AND reset_token_expires_at < ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("clearing expired reset tokens: %w", err)
	}

	return result.RowsAffected()
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) consumeOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consuming token: %w", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var verificationToken, resetToken sql.NullString
	var resetTokenExpires, updatedAt sql.NullTime

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Nickname,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.AvatarURL,
		&u.Verified,
		&verificationToken,
		&resetToken,
		&resetTokenExpires,
		&u.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.VerificationToken = nullStringToPtr(verificationToken)
	u.ResetToken = nullStringToPtr(resetToken)
	u.ResetTokenExpires = nullTimeToPtr(resetTokenExpires)
	u.UpdatedAt = nullTimeToPtr(updatedAt)

	return &u, nil
}
