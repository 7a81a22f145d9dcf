package ws

import "encoding/json"

// WSMessage is the event envelope on the persistent connection.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client -> Server event types
const (
	CmdJoinGame = "join_game"
)

// Server -> Client event types
const (
	EventGameJoined        = "game_joined"
	EventParticipantJoined = "participant_joined"
	EventError             = "error"
)

// JoinGamePayload assigns the connection to the room for a game.
type JoinGamePayload struct {
	GameID string `json:"gameId"`
}

// GameJoinedPayload acknowledges room membership.
type GameJoinedPayload struct {
	GameID string `json:"gameId"`
}

// ParticipantJoinedPayload notifies a game room that a user became a
// participant.
type ParticipantJoinedPayload struct {
	GameID   string `json:"gameId"`
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

// ErrorPayload is sent when the server rejects a client event.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OutboundMessage pairs an event type with its payload for encoding.
type OutboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// GameRoom is the room identifier for a game id.
func GameRoom(gameID string) string {
	return "game:" + gameID
}
