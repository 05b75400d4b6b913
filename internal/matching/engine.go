package matching

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"matchbroker/internal/broadcast"
	"matchbroker/internal/logging"
	"matchbroker/internal/model"
	"matchbroker/internal/store"
)

// MatchExecutor hands a selected pair off to the session layer, which owns
// PendingRoom creation and ICE credential issuance. Kept as an interface so
// this package never imports internal/session (avoiding an import cycle);
// implemented by session.Registry.
type MatchExecutor interface {
	ExecuteMatch(ctx context.Context, a, c *model.QueueUser) error
}

// Engine runs one matching cycle per invocation: batch-read both
// partitions, hydrate payloads, widen stale waiters, flag bot mode, select
// pairs, and execute them. See spec §4.5.
type Engine struct {
	Queue      *store.QueueStore
	Emit       broadcast.Emitter
	Executor   MatchExecutor
	BatchSize  int64
	log        *logrus.Entry
	nowFunc    func() time.Time
}

// NewEngine builds an Engine. batchSize bounds how many uids are read from
// each partition per cycle (spec §6 MATCH_BATCH_SIZE).
func NewEngine(queue *store.QueueStore, emit broadcast.Emitter, executor MatchExecutor, batchSize int64) *Engine {
	return &Engine{
		Queue:     queue,
		Emit:      emit,
		Executor:  executor,
		BatchSize: batchSize,
		log:       logging.For("matching-engine"),
		nowFunc:   time.Now,
	}
}

// RunCycle executes one full matching pass, per spec §4.5 steps 1-6.
func (e *Engine) RunCycle(ctx context.Context) error {
	now := e.nowFunc().UnixMilli()

	candidates, err := e.hydrateBatch(ctx, model.GenderMale, now)
	if err != nil {
		return err
	}
	females, err := e.hydrateBatch(ctx, model.GenderFemale, now)
	if err != nil {
		return err
	}
	candidates = append(candidates, females...)

	pairs := SelectPairs(candidates)
	for _, p := range pairs {
		if err := e.Executor.ExecuteMatch(ctx, p.U, p.C); err != nil {
			e.log.WithError(err).WithField("uidA", p.U.UID).WithField("uidB", p.C.UID).Warn("match execution failed")
			continue
		}
		// Matched users leave the queue; the executor owns session
		// creation, this loop only owns queue membership.
		_ = e.Queue.RemoveByUID(ctx, p.U.UID)
		_ = e.Queue.RemoveByUID(ctx, p.C.UID)
	}

	return nil
}

// hydrateBatch reads up to BatchSize uids from partition, loads each
// payload (skipping missing/malformed entries per spec §4.5 step 2),
// derives and persists its widen stage, and signals bot mode where due.
func (e *Engine) hydrateBatch(ctx context.Context, partition model.Gender, now int64) ([]*model.QueueUser, error) {
	uids, err := e.Queue.Range(ctx, partition, e.BatchSize)
	if err != nil {
		return nil, err
	}

	users := make([]*model.QueueUser, 0, len(uids))
	for _, uid := range uids {
		u, err := e.Queue.GetUser(ctx, uid)
		if err != nil {
			return nil, err
		}
		if u == nil {
			continue
		}

		waitMs := now - u.JoinedAt
		stage := DeriveWidenStage(waitMs, u.Tier)
		changed := stage != u.WidenStage
		u.WidenStage = stage

		if ShouldSignalBotMode(waitMs, u.BotModeActive) {
			u.BotModeActive = true
			changed = true
			e.Emit.Emit(u.SocketID, model.EventStartBotMode, model.StartBotModePayload{Reason: "extended_wait"})
		}

		if changed {
			if err := e.Queue.SaveUser(ctx, u); err != nil {
				e.log.WithError(err).WithField("uid", u.UID).Warn("failed to persist widen/bot-mode update")
			}
		}

		users = append(users, u)
	}

	return users, nil
}
