package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"pokerplan/internal/auth"
	"pokerplan/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub        *ws.Hub
	jwtService *auth.JWTService
}

func NewWebSocketHandler(hub *ws.Hub, jwtService *auth.JWTService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		jwtService: jwtService,
	}
}

// ServeWS upgrades the connection and registers the client with the hub.
// A bearer token is optional: joining game rooms requires no account, but a
// valid token attaches the caller's identity to the connection.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	var identity *auth.Identity
	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := h.jwtService.Validate(token)
		if err != nil {
			log.Printf("Invalid token on websocket upgrade: %v", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		id := auth.IdentityFromClaims(claims)
		identity = &id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	if identity != nil {
		client.SetIdentity(identity)
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
