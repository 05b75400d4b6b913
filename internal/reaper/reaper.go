// Package reaper periodically sweeps PendingRooms that never completed
// their handshake, per spec §5's "Cancellation & timeouts": a PendingRoom
// is reaped after its configured handshake timeout with a match-error to
// both sides. Grounded on the periodic-job scheduling idiom, adapted to a
// bare gocron job (the reaper needs no lease: deleting an already-deleted
// room is a no-op, so double-execution across replicas is harmless).
package reaper

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"matchbroker/internal/analytics"
	"matchbroker/internal/broadcast"
	"matchbroker/internal/logging"
	"matchbroker/internal/model"
	"matchbroker/internal/store"
)

// Reaper sweeps stale PendingRooms on a fixed interval.
type Reaper struct {
	sessions         *store.SessionStore
	emit             broadcast.Emitter
	sink             *analytics.Sink
	handshakeTimeout time.Duration
	log              *logrus.Entry
}

// NewReaper builds a Reaper backed by sessions. handshakeTimeout is how
// long a PendingRoom may sit without completing its handshake before it's
// reaped (PENDING_ROOM_TTL_SEC, spec §6).
func NewReaper(sessions *store.SessionStore, emit broadcast.Emitter, sink *analytics.Sink, handshakeTimeout time.Duration) *Reaper {
	return &Reaper{sessions: sessions, emit: emit, sink: sink, handshakeTimeout: handshakeTimeout, log: logging.For("reaper")}
}

// Start schedules the sweep every interval and returns the running
// scheduler, which the caller must Shutdown.
func (r *Reaper) Start(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { r.sweep(ctx) }),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}

// sweep scans every PendingRoom and reaps any older than the handshake
// timeout.
func (r *Reaper) sweep(ctx context.Context) {
	roomIDs, err := r.sessions.AllRoomIDs(ctx)
	if err != nil {
		r.log.WithError(err).Warn("failed to list pending rooms")
		return
	}

	now := time.Now().UnixMilli()
	for _, roomID := range roomIDs {
		room, err := r.sessions.GetRoom(ctx, roomID)
		if err != nil || room == nil {
			continue
		}
		if now-room.CreatedAt < r.handshakeTimeout.Milliseconds() {
			continue
		}
		r.reap(ctx, room)
	}
}

func (r *Reaper) reap(ctx context.Context, room *model.PendingRoom) {
	r.emit.Emit(room.PlayerA.SocketID, model.EventMatchError, model.MatchErrorPayload{Message: "handshake timed out"})
	r.emit.Emit(room.PlayerB.SocketID, model.EventMatchError, model.MatchErrorPayload{Message: "handshake timed out"})

	if err := r.sessions.DeleteRoom(ctx, room.RoomID); err != nil {
		r.log.WithError(err).WithField("roomId", room.RoomID).Warn("failed to delete reaped pending room")
		return
	}

	r.sink.RecordMatchEnd(ctx, room.RoomID, room.PlayerA.UID, "handshake_timeout")
	r.sink.RecordMatchEnd(ctx, room.RoomID, room.PlayerB.UID, "handshake_timeout")
}
