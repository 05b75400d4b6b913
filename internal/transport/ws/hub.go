// Package ws is the WebSocket transport: it upgrades handshakes, keeps
// the socketId -> connection table for this process, and dispatches
// inbound frames to the Dispatcher. Adapted from the teacher's
// Hub/Connection pattern, regrouped by socketId rather than roomCode +
// playerID/host, since the broker has no static room-membership concept.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"matchbroker/internal/logging"
	"matchbroker/internal/model"
)

// Envelope is the wire message format: a named event plus its raw JSON
// payload. See spec §6.
type Envelope struct {
	Type    model.EventType `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Connection is one live socket, identified by a server-minted socketId
// independent of the connecting client's uid.
type Connection struct {
	SocketID string
	UID      string
	IsGuest  bool
	IsAdmin  bool
	Send     chan []byte
	Close    func()
}

// Hub owns the process-local socketId -> Connection table. Implements
// fanout.LocalDeliverer.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Connection

	register   chan *Connection
	unregister chan *Connection

	log *logrus.Entry
}

// NewHub creates a Hub and starts its coordination loop.
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		log:        logging.For("ws-hub"),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn.SocketID] = conn
			h.mu.Unlock()
			h.log.WithField("socketId", conn.SocketID).Debug("connection registered")

		case conn := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.conns[conn.SocketID]; ok && existing == conn {
				delete(h.conns, conn.SocketID)
				close(conn.Send)
			}
			h.mu.Unlock()
			h.log.WithField("socketId", conn.SocketID).Debug("connection unregistered")
		}
	}
}

// Register adds conn to the table.
func (h *Hub) Register(conn *Connection) { h.register <- conn }

// Unregister removes conn from the table.
func (h *Hub) Unregister(conn *Connection) { h.unregister <- conn }

// ForceDisconnect closes socketID's underlying connection if it is local
// to this process, returning true if it found and closed one.
func (h *Hub) ForceDisconnect(socketID string) bool {
	h.mu.RLock()
	conn, ok := h.conns[socketID]
	h.mu.RUnlock()
	if !ok || conn.Close == nil {
		return false
	}
	conn.Close()
	return true
}

// DeliverLocal implements fanout.LocalDeliverer: it writes eventType/
// payload to socketID's Send channel if that socket is connected to this
// process, dropping the message (with a debug log) if the buffer is full
// or the socket isn't local — delivery is at-most-once, per spec §4.7/§9.
func (h *Hub) DeliverLocal(socketID string, eventType model.EventType, payload interface{}) bool {
	h.mu.RLock()
	conn, ok := h.conns[socketID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	payloadData, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Warn("failed to marshal outbound payload")
		return false
	}
	data, err := json.Marshal(Envelope{Type: eventType, Payload: payloadData})
	if err != nil {
		h.log.WithError(err).Warn("failed to marshal outbound envelope")
		return false
	}

	select {
	case conn.Send <- data:
		return true
	default:
		h.log.WithField("socketId", socketID).Debug("send buffer full, dropping message")
		return false
	}
}
