package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"matchbroker/internal/model"
)

type fakeResolver struct {
	socketsByUID map[string]string
	opponentUID  string
	opponentSock string
}

func (f *fakeResolver) SocketForUID(uid string) string {
	return f.socketsByUID[uid]
}

func (f *fakeResolver) OpponentOf(senderUID string) (string, string) {
	return f.opponentUID, f.opponentSock
}

func TestDecideDirectSocketIDWins(t *testing.T) {
	frame := model.SignalPayload{To: "sock-explicit", TargetUID: "ignored-uid"}
	resolve := &fakeResolver{opponentUID: "someone-else", opponentSock: "sock-opponent"}

	target, drop := Decide("sender", "sock-sender", frame, resolve)
	assert.False(t, drop)
	assert.Equal(t, "sock-explicit", target)
}

func TestDecideResolvesTargetUID(t *testing.T) {
	frame := model.SignalPayload{TargetUID: "bob"}
	resolve := &fakeResolver{socketsByUID: map[string]string{"bob": "sock-bob"}}

	target, drop := Decide("alice", "sock-alice", frame, resolve)
	assert.False(t, drop)
	assert.Equal(t, "sock-bob", target)
}

func TestDecideDropsLoopbackTargetUID(t *testing.T) {
	frame := model.SignalPayload{TargetUID: "alice"}
	resolve := &fakeResolver{socketsByUID: map[string]string{"alice": "sock-alice"}}

	_, drop := Decide("alice", "sock-alice", frame, resolve)
	assert.True(t, drop)
}

func TestDecideDropsUnresolvableTargetUID(t *testing.T) {
	frame := model.SignalPayload{TargetUID: "ghost"}
	resolve := &fakeResolver{}

	_, drop := Decide("alice", "sock-alice", frame, resolve)
	assert.True(t, drop)
}

func TestDecideFallsBackToOpponent(t *testing.T) {
	frame := model.SignalPayload{}
	resolve := &fakeResolver{opponentUID: "bob", opponentSock: "sock-bob"}

	target, drop := Decide("alice", "sock-alice", frame, resolve)
	assert.False(t, drop)
	assert.Equal(t, "sock-bob", target)
}

func TestDecideDropsWhenNoOpponent(t *testing.T) {
	frame := model.SignalPayload{}
	resolve := &fakeResolver{}

	_, drop := Decide("alice", "sock-alice", frame, resolve)
	assert.True(t, drop)
}

func TestDecideDropsWhenOpponentIsSelf(t *testing.T) {
	frame := model.SignalPayload{}
	resolve := &fakeResolver{opponentUID: "alice", opponentSock: "sock-alice"}

	_, drop := Decide("alice", "sock-alice", frame, resolve)
	assert.True(t, drop)
}
