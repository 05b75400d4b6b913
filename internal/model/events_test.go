package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalPayloadRoundTripsUnknownFields(t *testing.T) {
	raw := []byte(`{"targetUid":"bob","sdp":"v=0...","type":"offer","candidates":[1,2,3]}`)

	var frame SignalPayload
	require.NoError(t, json.Unmarshal(raw, &frame))

	assert.Equal(t, "bob", frame.TargetUID)
	assert.Equal(t, "v=0...", frame.Extra["sdp"])
	assert.Equal(t, "offer", frame.Extra["type"])
	assert.NotContains(t, frame.Extra, "targetUid")

	frame.From = "sock-1"
	frame.FromUID = "alice"

	out, err := json.Marshal(frame)
	require.NoError(t, err)

	var roundTripped map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &roundTripped))

	assert.Equal(t, "v=0...", roundTripped["sdp"])
	assert.Equal(t, "offer", roundTripped["type"])
	assert.Equal(t, "bob", roundTripped["targetUid"])
	assert.Equal(t, "sock-1", roundTripped["from"])
	assert.Equal(t, "alice", roundTripped["fromUid"])
}
