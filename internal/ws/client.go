package ws

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pokerplan/internal/auth"
	"pokerplan/internal/constants"
)

// ClientState represents the lifecycle state of a WebSocket client
type ClientState int32

const (
	ClientStateConnected ClientState = iota // WS connected, processing events
	ClientStateClosing                      // Shutdown initiated
	ClientStateClosed                       // Terminal
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 15 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Client represents a single WebSocket connection and its room membership.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan *OutboundMessage
	connCloseOnce sync.Once

	state atomic.Int32

	sessionID string

	// identity is present only when the connection supplied a valid bearer
	// token at upgrade time. Joining rooms does not require it.
	identity *auth.Identity

	// DroppedMessages tracks how many messages have been dropped due to full buffer
	DroppedMessages int64
}

// NewClient creates a new client
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan *OutboundMessage, constants.WSClientSendBufferSize),
		sessionID: uuid.New().String(),
	}
	c.state.Store(int32(ClientStateConnected))
	return c
}

// SetIdentity attaches a verified identity to the connection.
func (c *Client) SetIdentity(identity *auth.Identity) {
	c.identity = identity
}

// SessionID returns the unique identifier of this connection.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Close performs cleanup for the client, ensuring it only happens once
func (c *Client) Close() {
	if !c.transitionTo(ClientStateClosing) {
		// Already closing/closed, but still ensure conn is closed
		c.connCloseOnce.Do(func() { c.conn.Close() })
		return
	}
	c.connCloseOnce.Do(func() { c.conn.Close() })
	c.transitionTo(ClientStateClosed)
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error parsing message: %v", err)
			continue
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if c.IsClosed() {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				log.Printf("Error writing message: %v", err)
				return
			}

		case <-ticker.C:
			if c.IsClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *WSMessage) {
	switch msg.Type {
	case CmdJoinGame:
		c.handleJoinGame(msg)
	default:
		log.Printf("Unknown event type: %s", msg.Type)
	}
}

func (c *Client) handleJoinGame(msg *WSMessage) {
	var payload JoinGamePayload
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			log.Printf("Invalid join_game payload: %v", err)
			return
		}
	}

	if payload.GameID == "" {
		c.send <- &OutboundMessage{
			Type: EventError,
			Data: ErrorPayload{Code: "INVALID_REQUEST", Message: "gameId is required"},
		}
		return
	}

	c.hub.JoinRoom(c, GameRoom(payload.GameID))

	c.send <- &OutboundMessage{
		Type: EventGameJoined,
		Data: GameJoinedPayload{GameID: payload.GameID},
	}

	log.Printf("Connection %s joined game room %s", c.sessionID, payload.GameID)
}

// State returns the current client state
func (c *Client) State() ClientState {
	return ClientState(c.state.Load())
}

// IsClosed returns true if the client is closing or closed
func (c *Client) IsClosed() bool {
	state := c.State()
	return state == ClientStateClosing || state == ClientStateClosed
}

// isValidClientTransition checks if a state transition is valid
func isValidClientTransition(from, to ClientState) bool {
	switch from {
	case ClientStateConnected:
		return to == ClientStateClosing
	case ClientStateClosing:
		return to == ClientStateClosed
	case ClientStateClosed:
		return false
	}
	return false
}

// transitionTo atomically transitions to a new state if valid
func (c *Client) transitionTo(newState ClientState) bool {
	for {
		current := ClientState(c.state.Load())
		if !isValidClientTransition(current, newState) {
			return false
		}
		if c.state.CompareAndSwap(int32(current), int32(newState)) {
			return true
		}
	}
}

// CloseSend closes the send channel (called by hub during cleanup)
func (c *Client) CloseSend() {
	if c.transitionTo(ClientStateClosing) {
		close(c.send)
		c.connCloseOnce.Do(func() { c.conn.Close() })
		c.transitionTo(ClientStateClosed)
	}
}
