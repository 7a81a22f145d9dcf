package models

import "time"

// Game is one collaborative session. Participants join with the
// human-shareable invite code; HostID is the owning user.
type Game struct {
	ID         string    `json:"id"`
	InviteCode string    `json:"inviteCode"`
	Name       string    `json:"name"`
	HostID     string    `json:"hostId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// GameParticipant records membership of a user in a game.
type GameParticipant struct {
	GameID   string    `json:"gameId"`
	UserID   string    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}
