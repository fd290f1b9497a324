package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"itemcam/internal/logger"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub registers viewer connections for broadcasts and pings them; a viewer
// that stays silent for PongWait, pongs included, is dropped.
type Hub interface {
	Register(client *websocket.Conn) bool
	Unregister(client *websocket.Conn)
	PongWait() time.Duration
}

// ViewWebsocketHandler handles viewer connections over WebSocket and
// registers them in the hub to receive capture, session and record events.
func ViewWebsocketHandler(hub Hub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		pongWait := hub.PongWait()
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(pongWait))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		if !hub.Register(connection) {
			connection.Close()
			return
		}
		defer hub.Unregister(connection)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				break
			}
			connection.SetReadDeadline(time.Now().Add(pongWait))
		}
	}
}
