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

const pendingRoomTTL = 5 * time.Minute // crash safety, per spec §4.6 step 3

// SessionStore persists PendingRoom and ActiveSession (SessionEntry)
// records, per spec §4.6/§6. Keys: room:{roomId} (JSON, TTL 300s),
// session:{uid} (JSON, no TTL).
type SessionStore struct {
	rdb *redis.Client
	log *logrus.Entry
}

// NewSessionStore creates a SessionStore backed by rdb.
func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb, log: logging.For("session-store")}
}

func roomKey(roomID string) string    { return "room:" + roomID }
func sessionKey(uid string) string    { return "session:" + uid }

// SaveRoom persists a PendingRoom with the crash-safety TTL.
func (s *SessionStore) SaveRoom(ctx context.Context, room *model.PendingRoom) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, roomKey(room.RoomID), data, pendingRoomTTL).Err()
}

// GetRoom retrieves a PendingRoom by id, or nil if absent/expired.
func (s *SessionStore) GetRoom(ctx context.Context, roomID string) (*model.PendingRoom, error) {
	data, err := s.rdb.Get(ctx, roomKey(roomID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var room model.PendingRoom
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// DeleteRoom removes a PendingRoom.
func (s *SessionStore) DeleteRoom(ctx context.Context, roomID string) error {
	return s.rdb.Del(ctx, roomKey(roomID)).Err()
}

// AllRoomIDs returns the ids of every currently-stored PendingRoom. Used
// by the reaper's sweep; O(n) over pending rooms, which is bounded by
// concurrent handshakes in flight, not by total traffic.
func (s *SessionStore) AllRoomIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.rdb.Scan(ctx, 0, "room:*", 200).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len("room:"):])
	}
	return ids, iter.Err()
}

// SaveSession persists a SessionEntry for uid, no TTL (cleared only by
// explicit teardown).
func (s *SessionStore) SaveSession(ctx context.Context, entry *model.SessionEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(entry.UID), data, 0).Err()
}

// GetSession retrieves uid's ActiveSession entry, or nil if none.
func (s *SessionStore) GetSession(ctx context.Context, uid string) (*model.SessionEntry, error) {
	data, err := s.rdb.Get(ctx, sessionKey(uid)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry model.SessionEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteSession removes uid's ActiveSession entry.
func (s *SessionStore) DeleteSession(ctx context.Context, uid string) error {
	return s.rdb.Del(ctx, sessionKey(uid)).Err()
}
