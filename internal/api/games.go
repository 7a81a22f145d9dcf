package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pokerplan/internal/db"
	"pokerplan/internal/models"
	"pokerplan/internal/ws"
)

type GameHandler struct {
	games *db.GameRepository
	hub   *ws.Hub
}

func NewGameHandler(games *db.GameRepository, hub *ws.Hub) *GameHandler {
	return &GameHandler{games: games, hub: hub}
}

// POST /games
type CreateGameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type GameResponse struct {
	Game *models.Game `json:"game"`
}

func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentity(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	var req CreateGameRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	game, err := h.games.Create(r.Context(), req.Name, identity.UserID)
	if err != nil {
		slog.Error("error creating game", "error", err)
		internalError(w)
		return
	}

	// The host is a participant from the start.
	if err := h.games.AddParticipant(r.Context(), game.ID, identity.UserID); err != nil {
		slog.Error("error adding host as participant", "error", err, "game_id", game.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, GameResponse{Game: game})
}

// POST /games/join
type JoinGameRequest struct {
	InviteCode string `json:"inviteCode" validate:"required,len=8"`
}

func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentity(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	var req JoinGameRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	game, err := h.games.FindByInviteCode(r.Context(), req.InviteCode)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Game not found")
		return
	}
	if err != nil {
		slog.Error("error finding game", "error", err)
		internalError(w)
		return
	}

	if err := h.games.AddParticipant(r.Context(), game.ID, identity.UserID); err != nil {
		slog.Error("error joining game", "error", err, "game_id", game.ID)
		internalError(w)
		return
	}

	h.hub.BroadcastToRoom(ws.GameRoom(game.ID), ws.EventParticipantJoined, ws.ParticipantJoinedPayload{
		GameID:   game.ID,
		UserID:   identity.UserID,
		Nickname: identity.Nickname,
	})

	writeJSON(w, http.StatusOK, GameResponse{Game: game})
}

// GET /games/{gameID}
type GameDetailResponse struct {
	Game         *models.Game   `json:"game"`
	Participants []*models.User `json:"participants"`
}

func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	game, err := h.games.FindByID(r.Context(), gameID)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Game not found")
		return
	}
	if err != nil {
		slog.Error("error finding game", "error", err)
		internalError(w)
		return
	}

	participants, err := h.games.ListParticipants(r.Context(), game.ID)
	if err != nil {
		slog.Error("error listing participants", "error", err, "game_id", game.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, GameDetailResponse{Game: game, Participants: participants})
}
