package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/road-monitor/internal/fanout"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Subscriptions carry no credentials; any origin may listen.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades subscriber connections and ties their lifetime to the
// fan-out hub.
type WSHandler struct {
	hub *fanout.Hub
}

// NewWSHandler creates a WebSocket subscription handler on the given hub.
func NewWSHandler(hub *fanout.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// RegisterRoutes mounts the subscription endpoint on the router.
func (h *WSHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/{user_id}", h.Subscribe)
}

// Subscribe registers the connection for the user id in the path and blocks
// reading until the client goes away. Incoming messages are keep-alives and
// are discarded; any read error, whatever the cause, unsubscribes the
// connection before the handler returns.
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["user_id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	sub := h.hub.Subscribe(userID, conn)
	defer func() {
		h.hub.Unsubscribe(userID, sub)
		conn.Close()
		log.WithField("user_id", userID).Debug("Subscriber disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
