package store

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"matchbroker/internal/logging"
	"matchbroker/internal/model"
)

// QueueStore holds the two ordered partitions (male, female) scored by
// joinedAt, plus the auxiliary uid -> QueueUser payload store. See spec
// §4.3. Keys follow spec §6: queue:male, queue:female, queue:user:{uid}.
type QueueStore struct {
	rdb *redis.Client
	log *logrus.Entry
}

// NewQueueStore creates a QueueStore backed by rdb.
func NewQueueStore(rdb *redis.Client) *QueueStore {
	return &QueueStore{rdb: rdb, log: logging.For("queue-store")}
}

func partitionKey(g model.Gender) string { return "queue:" + string(g) }
func queueUserKey(uid string) string     { return "queue:user:" + uid }

// JoinQueue removes any existing entry for u.UID (idempotence and
// self-match prevention) then inserts u into the partition matching its
// gender.
func (s *QueueStore) JoinQueue(ctx context.Context, u *model.QueueUser) error {
	if err := s.RemoveByUID(ctx, u.UID); err != nil {
		return err
	}

	data, err := json.Marshal(u)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, partitionKey(u.Gender), redis.Z{Score: float64(u.JoinedAt), Member: u.UID})
	pipe.Set(ctx, queueUserKey(u.UID), data, 0)
	_, err = pipe.Exec(ctx)
	return err
}

// RemoveByUID deletes uid's entry from both partitions and its payload.
func (s *QueueStore) RemoveByUID(ctx context.Context, uid string) error {
	pipe := s.rdb.TxPipeline()
	pipe.ZRem(ctx, partitionKey(model.GenderMale), uid)
	pipe.ZRem(ctx, partitionKey(model.GenderFemale), uid)
	pipe.Del(ctx, queueUserKey(uid))
	_, err := pipe.Exec(ctx)
	return err
}

// RemoveBySocket deletes the entry (if any) belonging to socketID.
func (s *QueueStore) RemoveBySocket(ctx context.Context, socketID string) error {
	u, err := s.FindBySocket(ctx, socketID)
	if err != nil || u == nil {
		return err
	}
	return s.RemoveByUID(ctx, u.UID)
}

// FindBySocket scans both partitions' payloads for a matching socketId.
// This is O(n) over queued users and is used only on the disconnect path,
// which is not tick-hot.
func (s *QueueStore) FindBySocket(ctx context.Context, socketID string) (*model.QueueUser, error) {
	for _, g := range []model.Gender{model.GenderMale, model.GenderFemale} {
		uids, err := s.rdb.ZRange(ctx, partitionKey(g), 0, -1).Result()
		if err != nil {
			return nil, err
		}
		for _, uid := range uids {
			u, err := s.GetUser(ctx, uid)
			if err != nil {
				continue
			}
			if u != nil && u.SocketID == socketID {
				return u, nil
			}
		}
	}
	return nil, nil
}

// GetUser hydrates uid's QueueUser payload. A missing or malformed payload
// yields (nil, nil) so callers can skip it, per spec §4.5 step 2.
func (s *QueueStore) GetUser(ctx context.Context, uid string) (*model.QueueUser, error) {
	data, err := s.rdb.Get(ctx, queueUserKey(uid)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u model.QueueUser
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		s.log.WithError(err).WithField("uid", uid).Warn("malformed queue user payload")
		return nil, nil
	}
	return &u, nil
}

// SaveUser overwrites uid's payload in place, without touching its
// position in the ordered partition. Used to persist widenStage/
// botModeActive updates mid-cycle.
func (s *QueueStore) SaveUser(ctx context.Context, u *model.QueueUser) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, queueUserKey(u.UID), data, 0).Err()
}

// Range returns up to limit uids from partition, oldest-first.
func (s *QueueStore) Range(ctx context.Context, partition model.Gender, limit int64) ([]string, error) {
	return s.rdb.ZRange(ctx, partitionKey(partition), 0, limit-1).Result()
}
