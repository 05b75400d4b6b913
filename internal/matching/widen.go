// Package matching implements the partitioned matching engine and its
// distributed tick loop. See spec §4.4/§4.5.
package matching

import "matchbroker/internal/model"

const (
	widenStage1AfterMs int64 = 5000  // stage 1: ignore location
	widenStage2AfterMs int64 = 10000 // stage 2: also ignore gender (never for DIAMOND)
	botModeAfterMs     int64 = 30000
)

// DeriveWidenStage computes a waiter's effective widen stage from how long
// it has waited, per the boundary table in spec §8: wait<=5000 -> stage 0;
// 5000<wait<=10000 -> stage 1; wait>10000 -> stage 2 unless tier is
// DIAMOND, which never auto-widens past stage 1.
func DeriveWidenStage(waitMs int64, tier model.Tier) model.WidenStage {
	switch {
	case waitMs <= widenStage1AfterMs:
		return model.WidenStrict
	case waitMs <= widenStage2AfterMs:
		return model.WidenIgnoreLocation
	case tier == model.TierDiamond:
		return model.WidenIgnoreLocation
	default:
		return model.WidenIgnoreGender
	}
}

// ShouldSignalBotMode reports whether a waiter who has not yet been
// flagged botModeActive should now receive the start-bot-mode signal:
// wait>30000ms, exclusive of the exact 30000ms boundary (spec §8).
func ShouldSignalBotMode(waitMs int64, alreadyFlagged bool) bool {
	return !alreadyFlagged && waitMs > botModeAfterMs
}
