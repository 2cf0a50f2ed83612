package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"antpi/internal/logger"
	"antpi/internal/service"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// ViewWebsocketHandler subscribes a gallery viewer to new_image events.
// Incoming messages are only read to notice the disconnect.
func ViewWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		hub := manager.GetWebsocketService()
		sub := hub.Subscribe()
		defer hub.Unsubscribe(sub)

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := connection.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						logger.Warning("Viewer disconnected with error: %v", err)
					}
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case message, ok := <-sub.Messages():
				if !ok {
					return
				}
				connection.SetWriteDeadline(time.Now().Add(writeWait))
				if err := connection.WriteMessage(websocket.TextMessage, message); err != nil {
					logger.Warning("Error sending message to viewer %s: %v", sub.ID(), err)
					return
				}
			}
		}
	}
}
