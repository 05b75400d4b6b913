// Package signal relays offer/answer/ice-candidate frames between the two
// sides of a pairing without inspecting their payloads. See spec §4.7.
package signal

import (
	"context"

	"matchbroker/internal/broadcast"
	"matchbroker/internal/model"
	"matchbroker/internal/store"
)

// Resolver answers the lookups Decide needs to pick a frame's target.
// Kept as an interface so Decide stays a pure function over canned
// answers in tests, per the routing design note: "make it synchronous
// over the registry lookup and push the transport-level emit to a
// side-effect boundary."
type Resolver interface {
	SocketForUID(uid string) string
	OpponentOf(senderUID string) (uid, socketID string)
}

// Decide resolves the routing precedence from spec §4.7 steps 1-4 for one
// frame sent by senderUID/senderSocketID. It returns the socketId to
// deliver to, and drop=true if the frame should be discarded (loopback,
// or no resolvable target).
func Decide(senderUID, senderSocketID string, frame model.SignalPayload, resolve Resolver) (targetSocketID string, drop bool) {
	if frame.To != "" {
		return frame.To, false
	}

	if frame.TargetUID != "" {
		if frame.TargetUID == senderUID {
			return "", true
		}
		sid := resolve.SocketForUID(frame.TargetUID)
		if sid == "" {
			return "", true
		}
		return sid, false
	}

	opponentUID, opponentSocketID := resolve.OpponentOf(senderUID)
	if opponentUID == "" || opponentUID == senderUID || opponentSocketID == "" {
		return "", true
	}
	return opponentSocketID, false
}

// registryResolver is the live Resolver backed by the socket and session
// stores.
type registryResolver struct {
	ctx      context.Context
	sockets  *store.SocketRegistry
	sessions *store.SessionStore
}

func (r *registryResolver) SocketForUID(uid string) string {
	sid, err := r.sockets.Lookup(r.ctx, uid)
	if err != nil {
		return ""
	}
	return sid
}

func (r *registryResolver) OpponentOf(senderUID string) (string, string) {
	entry, err := r.sessions.GetSession(r.ctx, senderUID)
	if err != nil || entry == nil {
		return "", ""
	}
	sid, err := r.sockets.Lookup(r.ctx, entry.OpponentUID)
	if err != nil {
		return "", ""
	}
	return entry.OpponentUID, sid
}

// Router is the transport-facing side-effect boundary: it resolves a
// frame's target via Decide and emits it, stamping from/fromUid per spec
// §4.7.
type Router struct {
	sockets  *store.SocketRegistry
	sessions *store.SessionStore
	emit     broadcast.Emitter
}

// NewRouter builds a Router backed by sockets/sessions, emitting through
// emit.
func NewRouter(sockets *store.SocketRegistry, sessions *store.SessionStore, emit broadcast.Emitter) *Router {
	return &Router{sockets: sockets, sessions: sessions, emit: emit}
}

// Route forwards frame of eventType from senderUID/senderSocketID to its
// resolved target, best-effort, with no queuing if the target is offline.
func (r *Router) Route(ctx context.Context, senderUID, senderSocketID string, eventType model.EventType, frame model.SignalPayload) {
	resolve := &registryResolver{ctx: ctx, sockets: r.sockets, sessions: r.sessions}
	targetSocketID, drop := Decide(senderUID, senderSocketID, frame, resolve)
	if drop {
		return
	}

	frame.From = senderSocketID
	frame.FromUID = senderUID
	r.emit.Emit(targetSocketID, eventType, frame)
}
