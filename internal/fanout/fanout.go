// Package fanout implements broadcast.Emitter over Redis pub/sub so an
// event addressed to a socketId reaches it regardless of which replica
// holds that connection. With no Redis configured it degrades to direct
// local delivery, matching the broker's single-node posture (spec §6:
// "if absent the broker runs single-node, disabling cross-replica lease
// and fan-out").
package fanout

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"matchbroker/internal/logging"
	"matchbroker/internal/model"
)

const channelName = "matchbroker:fanout"

// LocalDeliverer delivers an event to a socket connected to this
// process, returning false if no such local connection exists.
// Implemented by internal/transport/ws's Hub.
type LocalDeliverer interface {
	DeliverLocal(socketID string, eventType model.EventType, payload interface{}) bool
}

type wireMessage struct {
	SocketID  string          `json:"socketId"`
	EventType model.EventType `json:"eventType"`
	Payload   interface{}     `json:"payload"`
}

// Fanout implements broadcast.Emitter.
type Fanout struct {
	rdb   *redis.Client
	local LocalDeliverer
	log   *logrus.Entry
}

// NewFanout builds a Fanout delivering locally through local, publishing
// over rdb when rdb is non-nil.
func NewFanout(rdb *redis.Client, local LocalDeliverer) *Fanout {
	return &Fanout{rdb: rdb, local: local, log: logging.For("fanout")}
}

// Emit implements broadcast.Emitter. In single-node mode it delivers
// directly; otherwise it publishes for every replica (including this one)
// to pick up via Listen, so delivery is always routed through one code
// path regardless of which replica holds the target socket.
func (f *Fanout) Emit(socketID string, eventType model.EventType, payload interface{}) {
	if f.rdb == nil {
		f.local.DeliverLocal(socketID, eventType, payload)
		return
	}

	data, err := json.Marshal(wireMessage{SocketID: socketID, EventType: eventType, Payload: payload})
	if err != nil {
		f.log.WithError(err).Warn("failed to marshal fanout message")
		return
	}
	if err := f.rdb.Publish(context.Background(), channelName, data).Err(); err != nil {
		f.log.WithError(err).Warn("failed to publish fanout message")
	}
}

// Listen subscribes to the fanout channel and delivers every message to
// the local socket it names, until ctx is cancelled. No-op in single-node
// mode.
func (f *Fanout) Listen(ctx context.Context) {
	if f.rdb == nil {
		return
	}

	sub := f.rdb.Subscribe(ctx, channelName)
	defer sub.Close()

	f.log.Info("fanout listener started")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			f.log.Info("fanout listener stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var wm wireMessage
			if err := json.Unmarshal([]byte(msg.Payload), &wm); err != nil {
				f.log.WithError(err).Warn("failed to unmarshal fanout message")
				continue
			}
			f.local.DeliverLocal(wm.SocketID, wm.EventType, wm.Payload)
		}
	}
}
