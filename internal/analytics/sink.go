// Package analytics is a one-way sink for match lifecycle events, used for
// product reporting rather than operational decisions. Nothing in the
// broker reads analytics data back. See SPEC_FULL.md §4.10.
package analytics

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"matchbroker/internal/logging"

	"github.com/sirupsen/logrus"
)

const collectionName = "analytics_events"

// Sink records match lifecycle events. A nil *Sink (no Mongo configured)
// degrades every call to a no-op, matching the broker's single-node
// degraded-mode posture for optional backends.
type Sink struct {
	collection *mongo.Collection
	log        *logrus.Entry
}

// NewSink builds a Sink writing into database on client. A nil client
// yields a Sink whose methods are no-ops.
func NewSink(client *mongo.Client, database string) *Sink {
	if client == nil {
		return nil
	}
	return &Sink{
		collection: client.Database(database).Collection(collectionName),
		log:        logging.For("analytics-sink"),
	}
}

type matchStartEvent struct {
	Type      string    `bson:"type"`
	RoomID    string    `bson:"roomId"`
	UIDA      string    `bson:"uidA"`
	UIDB      string    `bson:"uidB"`
	Mode      string    `bson:"mode"`
	Timestamp time.Time `bson:"timestamp"`
}

type matchEndEvent struct {
	Type      string    `bson:"type"`
	RoomID    string    `bson:"roomId"`
	UID       string    `bson:"uid"`
	Reason    string    `bson:"reason"`
	Timestamp time.Time `bson:"timestamp"`
}

// RecordMatchStart logs that roomId finalized into an active session
// between uidA and uidB.
func (s *Sink) RecordMatchStart(ctx context.Context, roomID, uidA, uidB, mode string) {
	if s == nil {
		return
	}
	_, err := s.collection.InsertOne(ctx, matchStartEvent{
		Type:      "match_start",
		RoomID:    roomID,
		UIDA:      uidA,
		UIDB:      uidB,
		Mode:      mode,
		Timestamp: time.Now(),
	})
	if err != nil {
		s.log.WithError(err).Warn("failed to record match start")
	}
}

// RecordMatchEnd logs that uid's session for roomId ended for reason
// (e.g. "skip", "disconnect", "handshake_timeout").
func (s *Sink) RecordMatchEnd(ctx context.Context, roomID, uid, reason string) {
	if s == nil {
		return
	}
	_, err := s.collection.InsertOne(ctx, matchEndEvent{
		Type:      "match_end",
		RoomID:    roomID,
		UID:       uid,
		Reason:    reason,
		Timestamp: time.Now(),
	})
	if err != nil {
		s.log.WithError(err).Warn("failed to record match end")
	}
}
