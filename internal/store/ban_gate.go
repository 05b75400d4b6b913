package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"matchbroker/internal/logging"
	"matchbroker/internal/model"
)

// BanGate is the time-bounded deny list keyed by uid, per spec §4.2. Keys
// follow spec §6: ban:{uid}, JSON, per-entry TTL.
type BanGate struct {
	rdb *redis.Client
	log *logrus.Entry
}

// NewBanGate creates a BanGate backed by rdb.
func NewBanGate(rdb *redis.Client) *BanGate {
	return &BanGate{rdb: rdb, log: logging.For("ban-gate")}
}

func banKey(uid string) string { return "ban:" + uid }

// BanUser stores a ban entry for uid. TTL is applied iff durationMinutes >
// 0; a duration of 0 means indefinite.
func (g *BanGate) BanUser(ctx context.Context, uid, reason string, durationMinutes int) error {
	now := time.Now().UnixMilli()
	entry := &model.BanEntry{
		UID:      uid,
		Reason:   reason,
		BannedAt: now,
	}
	var ttl time.Duration
	if durationMinutes > 0 {
		ttl = time.Duration(durationMinutes) * time.Minute
		entry.ExpiresAt = now + ttl.Milliseconds()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return g.rdb.Set(ctx, banKey(uid), data, ttl).Err()
}

// IsBanned returns the ban entry for uid, or nil if none exists or it has
// expired (an entry not yet reaped by Redis's own TTL is still treated as
// absent on read).
func (g *BanGate) IsBanned(ctx context.Context, uid string) (*model.BanEntry, error) {
	data, err := g.rdb.Get(ctx, banKey(uid)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry model.BanEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		g.log.WithError(err).WithField("uid", uid).Warn("malformed ban entry")
		return nil, nil
	}
	if !entry.Permanent() && entry.ExpiresAt <= time.Now().UnixMilli() {
		return nil, nil
	}
	return &entry, nil
}

// GetRemainingBanTime returns the milliseconds remaining on uid's ban, -1
// for permanent, or 0 if not banned.
func (g *BanGate) GetRemainingBanTime(ctx context.Context, uid string) (int64, error) {
	entry, err := g.IsBanned(ctx, uid)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, nil
	}
	if entry.Permanent() {
		return -1, nil
	}
	remaining := entry.ExpiresAt - time.Now().UnixMilli()
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// UnbanUser removes any ban entry for uid.
func (g *BanGate) UnbanUser(ctx context.Context, uid string) error {
	return g.rdb.Del(ctx, banKey(uid)).Err()
}
