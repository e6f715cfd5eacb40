package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ExpressionsHandler pushes one FrameInfo JSON message per processed frame.
type ExpressionsHandler struct {
	hub *Hub
	log logrus.FieldLogger
}

// NewExpressionsHandler creates an ExpressionsHandler reading from hub.
func NewExpressionsHandler(hub *Hub, log logrus.FieldLogger) *ExpressionsHandler {
	return &ExpressionsHandler{hub: hub, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ExpressionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	infos, cancel := h.hub.Subscribe()
	defer cancel()

	// Reads only detect the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"),
				time.Now().Add(writeWait))
			return
		case info, ok := <-infos:
			if !ok {
				return
			}
			msg, err := json.Marshal(info)
			if err != nil {
				h.log.WithError(err).Warn("Error encoding frame info")
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
