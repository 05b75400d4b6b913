package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"matchbroker/internal/logging"
)

const socketBindingTTL = 24 * time.Hour

// SocketRegistry maintains the bidirectional {socket-id <-> uid} mapping
// with the "one uid, one active socketId" rule from spec §4.1. Keys follow
// spec §6: socket:uid:{socketId} and user:socket:{uid}, plus users:online.
type SocketRegistry struct {
	rdb *redis.Client
	log *logrus.Entry
}

// NewSocketRegistry creates a SocketRegistry backed by rdb.
func NewSocketRegistry(rdb *redis.Client) *SocketRegistry {
	return &SocketRegistry{rdb: rdb, log: logging.For("socket-registry")}
}

func socketKey(socketID string) string { return "socket:uid:" + socketID }
func userKey(uid string) string        { return "user:socket:" + uid }

const onlineSetKey = "users:online"

// Register binds socketID to uid. If a different socketID was previously
// the reverse binding for uid, it is overwritten — the older connection is
// logically abandoned but not forcibly closed. uid is added to the online
// set unless it is a guest.
func (r *SocketRegistry) Register(ctx context.Context, socketID, uid string, isGuest bool) error {
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, socketKey(socketID), uid, socketBindingTTL)
	pipe.Set(ctx, userKey(uid), socketID, socketBindingTTL)
	if !isGuest {
		pipe.SAdd(ctx, onlineSetKey, uid)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		r.log.WithError(err).WithField("uid", uid).Warn("failed to register socket binding")
		return err
	}
	return nil
}

// Lookup returns the current socketId bound to uid, or "" if none.
func (r *SocketRegistry) Lookup(ctx context.Context, uid string) (string, error) {
	sid, err := r.rdb.Get(ctx, userKey(uid)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return sid, err
}

// UIDBySocket returns the uid currently bound to socketID, or "" if none.
func (r *SocketRegistry) UIDBySocket(ctx context.Context, socketID string) (string, error) {
	uid, err := r.rdb.Get(ctx, socketKey(socketID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return uid, err
}

// unregisterScript atomically drops the forward binding and, if the
// reverse binding still points at the departing socket, the reverse
// binding and online-set membership too. Run as a single Lua script so a
// concurrent Register cannot land between the check and the delete.
var unregisterScript = redis.NewScript(`
local socketKey = KEYS[1]
local uid = redis.call("GET", socketKey)
if not uid then
	return 0
end
redis.call("DEL", socketKey)
local userKey = "user:socket:" .. uid
if redis.call("GET", userKey) == ARGV[1] then
	redis.call("DEL", userKey)
	redis.call("SREM", "users:online", uid)
end
return 1
`)

// Unregister deletes the forward binding unconditionally, and the reverse
// binding only if it still points at socketID — a newer tab must not be
// evicted by an older tab closing.
func (r *SocketRegistry) Unregister(ctx context.Context, socketID string) error {
	err := unregisterScript.Run(ctx, r.rdb, []string{socketKey(socketID)}, socketID).Err()
	if err != nil && err != redis.Nil {
		r.log.WithError(err).WithField("socketId", socketID).Warn("failed to unregister socket binding")
		return err
	}
	return nil
}

// IsOnline reports whether uid is currently in the online set.
func (r *SocketRegistry) IsOnline(ctx context.Context, uid string) (bool, error) {
	return r.rdb.SIsMember(ctx, onlineSetKey, uid).Result()
}
