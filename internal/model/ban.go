package model

// BanEntry is a time-bounded deny list entry keyed by uid. ExpiresAt of
// zero means indefinite. See spec §3/§4.2.
type BanEntry struct {
	UID       string `json:"uid"`
	Reason    string `json:"reason"`
	BannedAt  int64  `json:"bannedAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Permanent reports whether this entry never expires.
func (b *BanEntry) Permanent() bool {
	return b.ExpiresAt == 0
}
