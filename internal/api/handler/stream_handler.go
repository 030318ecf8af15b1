package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"fieldtrack/internal/fanout"
	"fieldtrack/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin policy is enforced upstream by the gateway.
	CheckOrigin: func(*http.Request) bool { return true },
}

// StreamHandler bridges the fanout hub onto dashboard websockets.
type StreamHandler struct {
	hub *fanout.Hub
	log logging.Logger
}

func NewStreamHandler(hub *fanout.Hub, log logging.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, log: log}
}

// Subscribe upgrades the connection and streams processed-point
// events until the client disconnects. userId=* (or none) follows all
// users. No backlog is replayed; clients fetch current state through
// the current-location endpoint.
func (h *StreamHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = fanout.AllUsers
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := h.hub.Subscribe(userID)
	defer sub.Close()
	defer conn.Close()

	// Reader goroutine: drains control frames and signals close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case update, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(update); err != nil {
				h.log.Debug("subscriber write failed, closing", "userId", userID, "error", err)
				return
			}
		}
	}
}
