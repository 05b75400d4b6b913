package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"matchbroker/internal/logging"
)

const leaseKey = "lock:matchmaking"

// Lease is a short-TTL, set-if-absent lock used by the Tick Leader (spec
// §4.4) to serialize matching cycles across replicas. Release is
// compare-and-delete on a per-holder token — the spec's §9 design note
// recommends this over a bare delete-on-release, since an unconditional
// delete under an adversarial pause (GC, scheduler stall) could release a
// successor's lease.
type Lease struct {
	rdb *redis.Client
	log *logrus.Entry
}

// NewLease creates a Lease backed by rdb.
func NewLease(rdb *redis.Client) *Lease {
	return &Lease{rdb: rdb, log: logging.For("tick-lease")}
}

// Acquire attempts to claim the lease for ttl. On success it returns a
// non-empty token that must be passed to Release; on contention it
// returns ("", nil) — not an error, per spec §7 LeaseContention.
func (l *Lease) Acquire(ctx context.Context, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, leaseKey, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release deletes the lease iff it is still held by token.
func (l *Lease) Release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := releaseScript.Run(ctx, l.rdb, []string{leaseKey}, token).Err()
	if err != nil {
		l.log.WithError(err).Warn("failed to release tick lease")
	}
	return err
}
