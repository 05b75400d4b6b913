package ice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMintCredentialDeterministic(t *testing.T) {
	u1, c1 := MintCredential("secret", "user-1", 1000)
	u2, c2 := MintCredential("secret", "user-1", 1000)

	assert.Equal(t, u1, u2)
	assert.Equal(t, c1, c2)
	assert.Equal(t, "87400:user-1", u1)
}

func TestMintCredentialVariesByInput(t *testing.T) {
	_, base := MintCredential("secret", "user-1", 1000)
	_, differentUser := MintCredential("secret", "user-2", 1000)
	_, differentSecret := MintCredential("other-secret", "user-1", 1000)
	_, differentTime := MintCredential("secret", "user-1", 2000)

	assert.NotEqual(t, base, differentUser)
	assert.NotEqual(t, base, differentSecret)
	assert.NotEqual(t, base, differentTime)
}

func TestMintSTUNOnlyWithoutTurnEndpoint(t *testing.T) {
	minter := NewMinter(nil, nil)
	cfg := minter.Mint("user-1")

	assert.Len(t, cfg.Game, 1)
	assert.Len(t, cfg.Video, 1)
	assert.Empty(t, cfg.Game[0].Username)
}

func TestMintIncludesTurnCredentialWhenConfigured(t *testing.T) {
	minter := NewMinter(&TurnEndpoint{URL: "turn:game.example.com", Secret: "s3cret"}, nil)
	minter.Now = func() time.Time { return time.Unix(1000, 0) }

	cfg := minter.Mint("user-1")
	if assert.Len(t, cfg.Game, 2) {
		assert.Equal(t, "turn:game.example.com", cfg.Game[1].URLs[0])
		assert.NotEmpty(t, cfg.Game[1].Credential)
	}
	assert.Len(t, cfg.Video, 1, "video has no configured endpoint")
}
