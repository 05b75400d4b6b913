package model

// Service is one of the peer-to-peer channels a room may require ready
// before it is promoted from pending to active.
type Service string

const (
	ServiceGame  Service = "game"
	ServiceVideo Service = "video"
)

// ExpectedServicesForMode derives the set of services a room must confirm
// before finalization, per spec §9's "safer interpretation": mode is a
// single channel, so a room never waits on both.
func ExpectedServicesForMode(mode Mode) []Service {
	if mode == ModeVideo {
		return []Service{ServiceVideo}
	}
	return []Service{ServiceGame}
}

// Role identifies which side of a pairing a peer holds. Side A is always
// the initiator.
type Role string

const (
	RoleA Role = "A"
	RoleB Role = "B"
)

// Peer is one side of a pairing as known to the Session Registry.
type Peer struct {
	UID      string `json:"uid"`
	SocketID string `json:"socketId"`
}

// PendingRoom is a handshake coordinator awaiting readiness of each
// expected service before promotion to an ActiveSession. A service counts
// as ready once either peer reports it. See spec §3.
type PendingRoom struct {
	RoomID           string          `json:"roomId"`
	Mode             Mode            `json:"mode"`
	PlayerA          Peer            `json:"playerA"`
	PlayerB          Peer            `json:"playerB"`
	ExpectedServices []Service       `json:"expectedServices"`
	Ready            map[Service]bool `json:"ready"`
	CreatedAt        int64           `json:"createdAt"`
}

// AllReady reports whether every expected service has reported ready.
func (p *PendingRoom) AllReady() bool {
	for _, svc := range p.ExpectedServices {
		if !p.Ready[svc] {
			return false
		}
	}
	return true
}

// OpponentOf returns the other side of the pairing relative to uid, and false if
// uid is not a party to this room.
func (p *PendingRoom) OpponentOf(uid string) (Peer, bool) {
	switch uid {
	case p.PlayerA.UID:
		return p.PlayerB, true
	case p.PlayerB.UID:
		return p.PlayerA, true
	default:
		return Peer{}, false
	}
}

// RoleOf returns which role uid holds in this room.
func (p *PendingRoom) RoleOf(uid string) (Role, bool) {
	switch uid {
	case p.PlayerA.UID:
		return RoleA, true
	case p.PlayerB.UID:
		return RoleB, true
	default:
		return "", false
	}
}

// SessionEntry is one uid's half of an established ActiveSession. Two
// entries always coexist and reference each other by uid. See spec §3.
type SessionEntry struct {
	RoomID      string `json:"roomId"`
	UID         string `json:"uid"`
	OpponentUID string `json:"opponentUid"`
	Role        Role   `json:"role"`
	Mode        Mode   `json:"mode"`
	StartTime   int64  `json:"startTime"`
}
