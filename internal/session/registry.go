// Package session owns the PendingRoom -> ActiveSession state machine. See
// spec §4.6.
package session

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"matchbroker/internal/analytics"
	"matchbroker/internal/broadcast"
	"matchbroker/internal/ice"
	"matchbroker/internal/logging"
	"matchbroker/internal/model"
	"matchbroker/internal/profile"
	"matchbroker/internal/store"
)

// Registry implements matching.MatchExecutor and owns every PendingRoom /
// ActiveSession transition. See the state machine in spec §4.6.
type Registry struct {
	sessions *store.SessionStore
	sockets  *store.SocketRegistry
	queue    *store.QueueStore
	minter   *ice.Minter
	emit     broadcast.Emitter
	sink     *analytics.Sink
	profiles *profile.Client
	log      *logrus.Entry
}

// NewRegistry builds a Registry wired to its backing stores.
func NewRegistry(sessions *store.SessionStore, sockets *store.SocketRegistry, queue *store.QueueStore, minter *ice.Minter, emit broadcast.Emitter, sink *analytics.Sink, profiles *profile.Client) *Registry {
	return &Registry{
		sessions: sessions,
		sockets:  sockets,
		queue:    queue,
		minter:   minter,
		emit:     emit,
		sink:     sink,
		profiles: profiles,
		log:      logging.For("session-registry"),
	}
}

// ExecuteMatch implements matching.MatchExecutor. Per spec §4.6 step 1, it
// re-resolves each side's current socketId and aborts silently if either
// has gone offline between selection and now (spec §9's partial-failure
// note: the reference behavior does not re-enqueue the survivor, and
// neither does this).
func (r *Registry) ExecuteMatch(ctx context.Context, a, b *model.QueueUser) error {
	socketA, err := r.sockets.Lookup(ctx, a.UID)
	if err != nil {
		return err
	}
	socketB, err := r.sockets.Lookup(ctx, b.UID)
	if err != nil {
		return err
	}
	if socketA == "" || socketB == "" {
		r.log.WithField("uidA", a.UID).WithField("uidB", b.UID).Warn("peer offline at match execution, pair abandoned")
		return nil
	}

	room := &model.PendingRoom{
		RoomID:           strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.New().String(),
		Mode:             a.Mode,
		PlayerA:          model.Peer{UID: a.UID, SocketID: socketA},
		PlayerB:          model.Peer{UID: b.UID, SocketID: socketB},
		ExpectedServices: model.ExpectedServicesForMode(a.Mode),
		Ready:            make(map[model.Service]bool),
		CreatedAt:        time.Now().UnixMilli(),
	}
	if err := r.sessions.SaveRoom(ctx, room); err != nil {
		return err
	}

	r.emitMatchFound(room, model.RoleA, a.UID, socketA, b.UID, socketB, false)
	r.emitMatchFound(room, model.RoleB, b.UID, socketB, a.UID, socketA, false)
	return nil
}

func (r *Registry) emitMatchFound(room *model.PendingRoom, role model.Role, uid, socketID, opponentUID, opponentSocketID string, reconnection bool) {
	r.emit.Emit(socketID, model.EventMatchFound, model.MatchFoundPayload{
		RoomID:         room.RoomID,
		Role:           role,
		OpponentID:     opponentSocketID,
		OpponentUID:    opponentUID,
		IsInitiator:    role == model.RoleA,
		IceServers:     r.minter.Mint(uid),
		IsReconnection: reconnection,
	})
}

// HandleConnectionStable implements spec §4.6's handleConnectionStable: it
// marks service ready for the room holding socket, and finalizes the room
// into two ActiveSession entries once every expected service has reported.
func (r *Registry) HandleConnectionStable(ctx context.Context, socketID, roomID string, service model.Service) error {
	room, err := r.sessions.GetRoom(ctx, roomID)
	if err != nil || room == nil {
		return err
	}

	if _, ok := roleForSocket(room, socketID); !ok {
		return nil
	}
	room.Ready[service] = true

	if !room.AllReady() {
		return r.sessions.SaveRoom(ctx, room)
	}

	now := time.Now().UnixMilli()
	entryA := &model.SessionEntry{RoomID: room.RoomID, UID: room.PlayerA.UID, OpponentUID: room.PlayerB.UID, Role: model.RoleA, Mode: room.Mode, StartTime: now}
	entryB := &model.SessionEntry{RoomID: room.RoomID, UID: room.PlayerB.UID, OpponentUID: room.PlayerA.UID, Role: model.RoleB, Mode: room.Mode, StartTime: now}
	if err := r.sessions.SaveSession(ctx, entryA); err != nil {
		return err
	}
	if err := r.sessions.SaveSession(ctx, entryB); err != nil {
		return err
	}

	r.emit.Emit(room.PlayerA.SocketID, model.EventSessionEstablished, model.SessionEstablishedPayload{RoomID: room.RoomID})
	r.emit.Emit(room.PlayerB.SocketID, model.EventSessionEstablished, model.SessionEstablishedPayload{RoomID: room.RoomID})

	if err := r.sessions.DeleteRoom(ctx, room.RoomID); err != nil {
		r.log.WithError(err).WithField("roomId", room.RoomID).Warn("failed to delete finalized pending room")
	}

	r.sink.RecordMatchStart(ctx, room.RoomID, room.PlayerA.UID, room.PlayerB.UID, string(room.Mode))
	r.profiles.IncrementStat(room.PlayerA.UID, "matches_completed")
	r.profiles.IncrementStat(room.PlayerB.UID, "matches_completed")
	return nil
}

func roleForSocket(room *model.PendingRoom, socketID string) (model.Role, bool) {
	switch socketID {
	case room.PlayerA.SocketID:
		return model.RoleA, true
	case room.PlayerB.SocketID:
		return model.RoleB, true
	default:
		return "", false
	}
}

// HandleReconnection implements spec §4.6's handleReconnection. If uid has
// an ActiveSession, it re-announces match-found with isReconnection=true
// using the opponent's currently-registered socket, and notifies the
// opponent. Otherwise it scans PendingRooms for uid and, if found, updates
// the stored socketId and re-emits match-found to the reconnecting side
// only; the opponent is not notified.
func (r *Registry) HandleReconnection(ctx context.Context, socketID, uid string) error {
	entry, err := r.sessions.GetSession(ctx, uid)
	if err != nil {
		return err
	}
	if entry != nil {
		opponentSocket, err := r.sockets.Lookup(ctx, entry.OpponentUID)
		if err != nil {
			return err
		}
		if opponentSocket == "" {
			return nil
		}
		r.emit.Emit(socketID, model.EventMatchFound, model.MatchFoundPayload{
			RoomID:         entry.RoomID,
			Role:           entry.Role,
			OpponentID:     opponentSocket,
			OpponentUID:    entry.OpponentUID,
			IsInitiator:    entry.Role == model.RoleA,
			IceServers:     r.minter.Mint(uid),
			IsReconnection: true,
		})
		r.emit.Emit(opponentSocket, model.EventOpponentReconnected, model.OpponentReconnectedPayload{OpponentSocketID: socketID})
		return nil
	}

	roomIDs, err := r.sessions.AllRoomIDs(ctx)
	if err != nil {
		return err
	}
	for _, roomID := range roomIDs {
		room, err := r.sessions.GetRoom(ctx, roomID)
		if err != nil || room == nil {
			continue
		}
		role, ok := room.RoleOf(uid)
		if !ok {
			continue
		}
		if role == model.RoleA {
			room.PlayerA.SocketID = socketID
		} else {
			room.PlayerB.SocketID = socketID
		}
		if err := r.sessions.SaveRoom(ctx, room); err != nil {
			return err
		}
		opponent, _ := room.OpponentOf(uid)
		r.emitMatchFound(room, role, uid, socketID, opponent.UID, opponent.SocketID, true)
		return nil
	}
	return nil
}

// HandleSkipMatch tears down uid's ActiveSession (if any), per spec
// §4.6's handleSkipMatch.
func (r *Registry) HandleSkipMatch(ctx context.Context, uid string) error {
	return r.teardown(ctx, uid, "skip")
}

// HandleDisconnect tears down socketID's owner's ActiveSession (if any)
// and records a disconnect analytics event, per spec §4.6's
// handleDisconnect.
func (r *Registry) HandleDisconnect(ctx context.Context, socketID string) error {
	uid, err := r.sockets.UIDBySocket(ctx, socketID)
	if err != nil {
		return err
	}
	if uid == "" {
		return nil
	}
	if err := r.sockets.Unregister(ctx, socketID); err != nil {
		return err
	}
	return r.teardown(ctx, uid, "disconnect")
}

// teardown ends uid's ActiveSession, if one exists: notifies every socket
// of both parties with match-skipped, clears both SessionEntries, and
// records a match-end analytics event.
func (r *Registry) teardown(ctx context.Context, uid, reason string) error {
	entry, err := r.sessions.GetSession(ctx, uid)
	if err != nil || entry == nil {
		return err
	}

	opponentEntry, err := r.sessions.GetSession(ctx, entry.OpponentUID)
	if err != nil {
		return err
	}

	if socketID, err := r.sockets.Lookup(ctx, uid); err == nil && socketID != "" {
		r.emit.Emit(socketID, model.EventMatchSkipped, nil)
	}
	if socketID, err := r.sockets.Lookup(ctx, entry.OpponentUID); err == nil && socketID != "" {
		r.emit.Emit(socketID, model.EventMatchSkipped, nil)
	}

	if err := r.sessions.DeleteSession(ctx, uid); err != nil {
		return err
	}
	if opponentEntry != nil {
		if err := r.sessions.DeleteSession(ctx, entry.OpponentUID); err != nil {
			return err
		}
	}

	r.sink.RecordMatchEnd(ctx, entry.RoomID, uid, reason)
	return nil
}
