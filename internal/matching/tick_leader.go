package matching

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"matchbroker/internal/logging"
	"matchbroker/internal/store"
)

// TickLeader drives the matching cycle on a fixed interval, using a
// short-TTL lease so exactly one replica runs a cycle at a time. Grounded
// on the ticker-driven matchmaking loop pattern, generalized with the
// lease to survive multi-replica deployment (spec §4.4).
type TickLeader struct {
	lease    *store.Lease
	engine   *Engine
	interval time.Duration
	leaseTTL time.Duration
	log      *logrus.Entry
}

// NewTickLeader builds a TickLeader that ticks every interval and holds
// the lease for leaseTTL per acquisition.
func NewTickLeader(lease *store.Lease, engine *Engine, interval, leaseTTL time.Duration) *TickLeader {
	return &TickLeader{
		lease:    lease,
		engine:   engine,
		interval: interval,
		leaseTTL: leaseTTL,
		log:      logging.For("tick-leader"),
	}
}

// Run blocks, driving matching cycles until ctx is cancelled.
func (t *TickLeader) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.log.Info("tick leader started")

	for {
		select {
		case <-ctx.Done():
			t.log.Info("tick leader stopped")
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *TickLeader) tick(ctx context.Context) {
	token, err := t.lease.Acquire(ctx, t.leaseTTL)
	if err != nil {
		t.log.WithError(err).Warn("lease acquire failed")
		return
	}
	if token == "" {
		// Another replica holds the lease this tick; not an error.
		return
	}
	defer func() {
		if err := t.lease.Release(ctx, token); err != nil {
			t.log.WithError(err).Warn("lease release failed")
		}
	}()

	if err := t.engine.RunCycle(ctx); err != nil {
		t.log.WithError(err).Warn("matching cycle failed")
	}
}
