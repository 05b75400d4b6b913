// Package ice mints short-lived TURN credentials and assembles ICE server
// lists, per spec §4.8.
package ice

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"time"

	"matchbroker/internal/model"
)

const credentialTTL = 24 * time.Hour

var staticStunServers = []model.IceServer{
	{URLs: []string{"stun:stun.l.google.com:19302"}},
}

// TurnEndpoint is one configured TURN server (URL + shared secret).
type TurnEndpoint struct {
	URL    string
	Secret string
}

// MintCredential computes username = "{unixTs+86400}:{uid}" and
// credential = base64(HMAC-SHA1(secret, username)), per spec §4.8. unixTs
// is the seconds-since-epoch the minter is minting at.
func MintCredential(secret, uid string, unixTs int64) (username, credential string) {
	username = fmt.Sprintf("%d:%s", unixTs+int64(credentialTTL/time.Second), uid)
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(username))
	credential = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return username, credential
}

// Minter mints per-user ICE server configs for the game and video
// channels. A nil endpoint for a channel means STUN-only.
type Minter struct {
	Game  *TurnEndpoint
	Video *TurnEndpoint
	Now   func() time.Time
}

// NewMinter builds a Minter from optional TURN endpoints. Either may be
// nil, in which case that channel's list is STUN-only per spec §4.8/§6.
func NewMinter(game, video *TurnEndpoint) *Minter {
	return &Minter{Game: game, Video: video, Now: time.Now}
}

func (m *Minter) mintList(ep *TurnEndpoint, uid string) []model.IceServer {
	servers := append([]model.IceServer{}, staticStunServers...)
	if ep == nil || ep.URL == "" || ep.Secret == "" {
		return servers
	}
	username, credential := MintCredential(ep.Secret, uid, m.Now().Unix())
	servers = append(servers, model.IceServer{
		URLs:       []string{ep.URL},
		Username:   username,
		Credential: credential,
	})
	return servers
}

// Mint produces both the game and video ICE server lists for uid.
func (m *Minter) Mint(uid string) model.IceServerConfig {
	return model.IceServerConfig{
		Game:  m.mintList(m.Game, uid),
		Video: m.mintList(m.Video, uid),
	}
}
