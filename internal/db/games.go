package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"pokerplan/internal/constants"
	"pokerplan/internal/models"
)

const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type GameRepository struct {
	db *DB
}

func NewGameRepository(db *DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) Create(ctx context.Context, name, hostID string) (*models.Game, error) {
	id, err := GenerateID("gam")
	if err != nil {
		return nil, fmt.Errorf("generating game ID: %w", err)
	}

	code, err := generateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("generating invite code: %w", err)
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO games (id, invite_code, name, host_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, code, name, hostID, now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating game: %w", err)
	}

	return &models.Game{
		ID:         id,
		InviteCode: code,
		Name:       name,
		HostID:     hostID,
		CreatedAt:  now,
	}, nil
}

func (r *GameRepository) FindByID(ctx context.Context, id string) (*models.Game, error) {
	return r.findOne(ctx, `SELECT id, invite_code, name, host_id, created_at FROM games WHERE id = ?`, id)
}

func (r *GameRepository) FindByInviteCode(ctx context.Context, code string) (*models.Game, error) {
	return r.findOne(ctx, `SELECT id, invite_code, name, host_id, created_at FROM games WHERE invite_code = ?`, code)
}

// AddParticipant records membership of a user in a game. Re-adding an
// existing participant is a no-op.
func (r *GameRepository) AddParticipant(ctx context.Context, gameID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO game_participants (game_id, user_id, joined_at) VALUES (?, ?, ?)
		 ON CONFLICT (game_id, user_id) DO NOTHING`,
		gameID, userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("adding participant: %w", err)
	}
	return nil
}

// ListParticipants returns the public identity of each member of a game,
// in join order.
func (r *GameRepository) ListParticipants(ctx context.Context, gameID string) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.nickname, u.first_name, u.last_name, u.avatar_url, u.verified, u.created_at
		   FROM game_participants gp
		   JOIN users u ON u.id = gp.user_id
		  WHERE gp.game_id = ?
		  ORDER BY gp.joined_at`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying participants: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Nickname, &u.FirstName, &u.LastName, &u.AvatarURL, &u.Verified, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		users = append(users, &u)
	}

	return users, rows.Err()
}

func (r *GameRepository) findOne(ctx context.Context, query string, args ...any) (*models.Game, error) {
	var g models.Game
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&g.ID, &g.InviteCode, &g.Name, &g.HostID, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying game: %w", err)
	}
	return &g, nil
}

func generateInviteCode() (string, error) {
	code := make([]byte, constants.InviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
