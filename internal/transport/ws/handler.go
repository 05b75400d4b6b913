package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"matchbroker/internal/auth"
	"matchbroker/internal/logging"
	"matchbroker/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Dispatcher handles one decoded inbound frame per call. Implementations
// own the tagged-variant dispatch over the closed event surface (spec §9
// design note); the transport layer here only owns framing and the
// connection lifecycle.
type Dispatcher interface {
	HandleFrame(ctx context.Context, conn *Connection, eventType model.EventType, raw json.RawMessage)
	HandleDisconnect(ctx context.Context, socketID string)
}

// Handler upgrades handshakes and drives the per-connection read/write
// pumps.
type Handler struct {
	hub        *Hub
	authSvc    *auth.Service
	dispatcher Dispatcher
	log        *logrus.Entry
}

// NewHandler builds a Handler.
func NewHandler(hub *Hub, authSvc *auth.Service, dispatcher Dispatcher) *Handler {
	return &Handler{hub: hub, authSvc: authSvc, dispatcher: dispatcher, log: logging.For("ws-handler")}
}

// ServeHTTP handles the single websocket upgrade endpoint. The handshake
// credential arrives as query params per spec §6: token|userId, and an
// optional serverKey for the admin path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	credential := r.URL.Query().Get("token")
	if credential == "" {
		credential = r.URL.Query().Get("userId")
	}
	serverKey := r.URL.Query().Get("serverKey")

	if credential == "" {
		http.Error(w, "missing credential", http.StatusUnauthorized)
		return
	}

	identity, err := h.authSvc.Resolve(credential, serverKey)
	if err != nil {
		http.Error(w, "invalid credential", http.StatusUnauthorized)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	conn := &Connection{
		SocketID: uuid.New().String(),
		UID:      identity.UID,
		IsGuest:  identity.IsGuest,
		IsAdmin:  identity.IsAdmin,
		Send:     make(chan []byte, 256),
		Close:    func() { wsConn.Close() },
	}
	h.hub.Register(conn)
	h.log.WithFields(logrus.Fields{"socketId": conn.SocketID, "uid": conn.UID}).Info("connection established")

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	ctx := context.Background()
	defer func() {
		h.hub.Unregister(conn)
		h.dispatcher.HandleDisconnect(ctx, conn.SocketID)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).WithField("socketId", conn.SocketID).Warn("unexpected close")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.log.WithError(err).WithField("socketId", conn.SocketID).Warn("malformed frame")
			continue
		}
		h.dispatcher.HandleFrame(ctx, conn, env.Type, env.Payload)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			writer, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			writer.Write(message)
			if err := writer.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
