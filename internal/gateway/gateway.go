// Package gateway is the tagged-variant dispatcher over the closed
// inbound event surface (spec §9 design note): one branch per EventType,
// wiring the transport layer to the Queue Store, Ban Gate, Session
// Registry, Signal Router, and ICE Minter. It implements ws.Dispatcher.
package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"matchbroker/internal/broadcast"
	"matchbroker/internal/ice"
	"matchbroker/internal/logging"
	"matchbroker/internal/model"
	"matchbroker/internal/profile"
	"matchbroker/internal/session"
	"matchbroker/internal/signal"
	"matchbroker/internal/store"
	"matchbroker/internal/transport/ws"
)

// Gateway implements ws.Dispatcher.
type Gateway struct {
	queue    *store.QueueStore
	sockets  *store.SocketRegistry
	bans     *store.BanGate
	sessions *session.Registry
	router   *signal.Router
	minter   *ice.Minter
	profiles *profile.Client
	emit     broadcast.Emitter
	hub      *ws.Hub
	log      *logrus.Entry
}

// New builds a Gateway wired to every subsystem it dispatches to. hub is
// used only to force-close a local connection on admin kick/ban/disconnect.
func New(queue *store.QueueStore, sockets *store.SocketRegistry, bans *store.BanGate, sessions *session.Registry, router *signal.Router, minter *ice.Minter, profiles *profile.Client, emit broadcast.Emitter, hub *ws.Hub) *Gateway {
	return &Gateway{
		queue:    queue,
		sockets:  sockets,
		bans:     bans,
		sessions: sessions,
		router:   router,
		minter:   minter,
		profiles: profiles,
		emit:     emit,
		hub:      hub,
		log:      logging.For("gateway"),
	}
}

// HandleFrame implements ws.Dispatcher.
func (g *Gateway) HandleFrame(ctx context.Context, conn *ws.Connection, eventType model.EventType, raw json.RawMessage) {
	if model.IsSignalFrame(eventType) {
		g.handleSignal(ctx, conn, eventType, raw)
		return
	}

	switch eventType {
	case model.EventJoinQueue:
		g.handleJoinQueue(ctx, conn, raw)
	case model.EventLeaveQueue:
		g.handleLeaveQueue(ctx, conn)
	case model.EventSkipMatch:
		g.handleSkipMatch(ctx, conn)
	case model.EventConnectionStable:
		g.handleConnectionStable(ctx, conn, raw)
	case model.EventReconnect:
		g.handleReconnect(ctx, conn)
	case model.EventGetIceServers:
		g.handleGetIceServers(conn)
	case model.EventSendInvite:
		g.handleSendInvite(ctx, conn, raw)
	case model.EventAcceptInvite:
		g.relayInvite(ctx, conn, raw)
	case model.EventRejectInvite:
		g.handleRejectInvite(ctx, conn, raw)
	case model.EventAdminKickUser:
		g.handleAdminKick(ctx, conn, raw)
	case model.EventAdminBanUser:
		g.handleAdminBan(ctx, conn, raw)
	case model.EventAdminUnbanUser:
		g.handleAdminUnban(ctx, conn, raw)
	case model.EventAdminForceDisconnect:
		g.handleAdminForceDisconnect(ctx, conn, raw)
	default:
		g.log.WithField("eventType", eventType).Debug("unrecognized event type")
	}
}

// HandleDisconnect implements ws.Dispatcher.
func (g *Gateway) HandleDisconnect(ctx context.Context, socketID string) {
	if err := g.queue.RemoveBySocket(ctx, socketID); err != nil {
		g.log.WithError(err).WithField("socketId", socketID).Warn("failed to remove queue entry on disconnect")
	}
	if err := g.sessions.HandleDisconnect(ctx, socketID); err != nil {
		g.log.WithError(err).WithField("socketId", socketID).Warn("failed to tear down session on disconnect")
	}
}

func (g *Gateway) handleJoinQueue(ctx context.Context, conn *ws.Connection, raw json.RawMessage) {
	if !conn.IsGuest {
		if entry, err := g.bans.IsBanned(ctx, conn.UID); err == nil && entry != nil {
			remaining, _ := g.bans.GetRemainingBanTime(ctx, conn.UID)
			g.emit.Emit(conn.SocketID, model.EventBanned, model.BannedPayload{
				Reason:           entry.Reason,
				RemainingMinutes: remaining / int64(time.Minute/time.Millisecond),
				Message:          "you are banned from matchmaking",
			})
			return
		}
	}

	var payload model.JoinQueuePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.emit.Emit(conn.SocketID, model.EventError, model.ErrorPayload{Message: "malformed join_queue payload"})
		return
	}

	prof, err := g.profiles.FetchProfile(conn.UID)
	if err != nil {
		g.emit.Emit(conn.SocketID, model.EventError, model.ErrorPayload{Message: "profile unavailable"})
		return
	}

	user := &model.QueueUser{
		UID:         conn.UID,
		SocketID:    conn.SocketID,
		Gender:      prof.Gender,
		Location:    prof.Location,
		Tier:        prof.Tier,
		Mode:        payload.Mode,
		Preferences: model.FilterPreferencesForTier(prof.Tier, payload.Preferences),
		JoinedAt:    time.Now().UnixMilli(),
	}
	if err := g.queue.JoinQueue(ctx, user); err != nil {
		g.log.WithError(err).WithField("uid", conn.UID).Warn("failed to join queue")
		g.emit.Emit(conn.SocketID, model.EventError, model.ErrorPayload{Message: "failed to join queue"})
	}
}

func (g *Gateway) handleLeaveQueue(ctx context.Context, conn *ws.Connection) {
	if err := g.queue.RemoveByUID(ctx, conn.UID); err != nil {
		g.log.WithError(err).WithField("uid", conn.UID).Warn("failed to leave queue")
	}
}

func (g *Gateway) handleSkipMatch(ctx context.Context, conn *ws.Connection) {
	if err := g.sessions.HandleSkipMatch(ctx, conn.UID); err != nil {
		g.log.WithError(err).WithField("uid", conn.UID).Warn("failed to process skip_match")
	}
}

func (g *Gateway) handleConnectionStable(ctx context.Context, conn *ws.Connection, raw json.RawMessage) {
	var payload model.ConnectionStablePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if err := g.sessions.HandleConnectionStable(ctx, conn.SocketID, payload.RoomID, payload.Service); err != nil {
		g.log.WithError(err).WithField("roomId", payload.RoomID).Warn("failed to process connection_stable")
	}
}

func (g *Gateway) handleReconnect(ctx context.Context, conn *ws.Connection) {
	if err := g.sessions.HandleReconnection(ctx, conn.SocketID, conn.UID); err != nil {
		g.log.WithError(err).WithField("uid", conn.UID).Warn("failed to process reconnect")
	}
}

func (g *Gateway) handleGetIceServers(conn *ws.Connection) {
	g.emit.Emit(conn.SocketID, model.EventIceServersConfig, model.IceServersConfigPayload{IceServers: g.minter.Mint(conn.UID)})
}

func (g *Gateway) handleSignal(ctx context.Context, conn *ws.Connection, eventType model.EventType, raw json.RawMessage) {
	var frame model.SignalPayload
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}
	g.router.Route(ctx, conn.UID, conn.SocketID, eventType, frame)
}

func (g *Gateway) handleSendInvite(ctx context.Context, conn *ws.Connection, raw json.RawMessage) {
	var payload model.InvitePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	socketID, err := g.sockets.Lookup(ctx, payload.TargetUID)
	if err != nil || socketID == "" {
		g.emit.Emit(conn.SocketID, model.EventInviteError, model.ErrorPayload{Message: "target is offline"})
		return
	}
	g.emit.Emit(socketID, model.EventReceiveInvite, model.InvitePayload{InviterUID: conn.UID})
}

func (g *Gateway) relayInvite(ctx context.Context, conn *ws.Connection, raw json.RawMessage) {
	var payload model.InvitePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	target := payload.TargetUID
	if target == "" {
		target = payload.InviterUID
	}
	socketID, err := g.sockets.Lookup(ctx, target)
	if err != nil || socketID == "" {
		return
	}
	g.emit.Emit(socketID, model.EventReceiveInvite, model.InvitePayload{InviterUID: conn.UID})
}

func (g *Gateway) handleRejectInvite(ctx context.Context, conn *ws.Connection, raw json.RawMessage) {
	var payload model.InvitePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	target := payload.InviterUID
	socketID, err := g.sockets.Lookup(ctx, target)
	if err != nil || socketID == "" {
		return
	}
	g.emit.Emit(socketID, model.EventInviteRejected, model.InvitePayload{InviterUID: conn.UID})
}

func (g *Gateway) requireAdmin(conn *ws.Connection) bool {
	if !conn.IsAdmin {
		g.emit.Emit(conn.SocketID, model.EventError, model.ErrorPayload{Message: "admin privileges required"})
		return false
	}
	return true
}

func (g *Gateway) handleAdminKick(ctx context.Context, conn *ws.Connection, raw json.RawMessage) {
	if !g.requireAdmin(conn) {
		return
	}
	var payload model.AdminTargetPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if socketID, err := g.sockets.Lookup(ctx, payload.TargetUID); err == nil && socketID != "" {
		g.emit.Emit(socketID, model.EventKicked, model.KickedPayload{Reason: "removed by administrator"})
		// Best-effort: only takes effect if the target's socket is local to
		// this replica. Fan-out has no remote-close primitive (spec's
		// "opaque emit to socket id" surface is push-only).
		g.hub.ForceDisconnect(socketID)
	}
}

func (g *Gateway) handleAdminBan(ctx context.Context, conn *ws.Connection, raw json.RawMessage) {
	if !g.requireAdmin(conn) {
		return
	}
	var payload model.AdminBanPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if err := g.bans.BanUser(ctx, payload.TargetUID, payload.Reason, payload.DurationMinutes); err != nil {
		g.log.WithError(err).WithField("uid", payload.TargetUID).Warn("failed to ban user")
		return
	}
	if socketID, err := g.sockets.Lookup(ctx, payload.TargetUID); err == nil && socketID != "" {
		g.emit.Emit(socketID, model.EventBanned, model.BannedPayload{
			Reason:           payload.Reason,
			RemainingMinutes: int64(payload.DurationMinutes),
			Message:          "you have been banned from matchmaking",
		})
		g.hub.ForceDisconnect(socketID)
	}
}

func (g *Gateway) handleAdminUnban(ctx context.Context, conn *ws.Connection, raw json.RawMessage) {
	if !g.requireAdmin(conn) {
		return
	}
	var payload model.AdminTargetPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if err := g.bans.UnbanUser(ctx, payload.TargetUID); err != nil {
		g.log.WithError(err).WithField("uid", payload.TargetUID).Warn("failed to unban user")
	}
}

func (g *Gateway) handleAdminForceDisconnect(ctx context.Context, conn *ws.Connection, raw json.RawMessage) {
	if !g.requireAdmin(conn) {
		return
	}
	var payload model.AdminTargetPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if socketID, err := g.sockets.Lookup(ctx, payload.TargetUID); err == nil && socketID != "" {
		g.emit.Emit(socketID, model.EventKicked, model.KickedPayload{Reason: "disconnected by administrator"})
		g.hub.ForceDisconnect(socketID)
	}
}
