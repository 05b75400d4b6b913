package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"matchbroker/internal/model"
)

func TestDeriveWidenStage(t *testing.T) {
	cases := []struct {
		name   string
		waitMs int64
		tier   model.Tier
		want   model.WidenStage
	}{
		{"at first threshold", 5000, model.TierFree, model.WidenStrict},
		{"just past first threshold", 5001, model.TierFree, model.WidenIgnoreLocation},
		{"at second threshold", 10000, model.TierFree, model.WidenIgnoreLocation},
		{"just past second threshold, free tier widens gender", 10001, model.TierFree, model.WidenIgnoreGender},
		{"just past second threshold, gold tier widens gender", 10001, model.TierGold, model.WidenIgnoreGender},
		{"just past second threshold, diamond tier caps at stage 1", 10001, model.TierDiamond, model.WidenIgnoreLocation},
		{"far past second threshold, diamond still caps", 60000, model.TierDiamond, model.WidenIgnoreLocation},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, DeriveWidenStage(c.waitMs, c.tier))
		})
	}
}

func TestShouldSignalBotMode(t *testing.T) {
	assert.False(t, ShouldSignalBotMode(30000, false), "exact boundary must not fire")
	assert.True(t, ShouldSignalBotMode(30001, false), "just past boundary must fire")
	assert.False(t, ShouldSignalBotMode(60000, true), "already flagged must not re-fire")
}
