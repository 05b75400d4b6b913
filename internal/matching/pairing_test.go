package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"matchbroker/internal/model"
)

func user(uid string, gender model.Gender, joinedAt int64) *model.QueueUser {
	return &model.QueueUser{
		UID:      uid,
		Gender:   gender,
		Mode:     model.ModeRandom,
		JoinedAt: joinedAt,
	}
}

func TestSelectPairsBasicOppositeGender(t *testing.T) {
	a := user("a", model.GenderMale, 1000)
	b := user("b", model.GenderFemale, 2000)

	pairs := SelectPairs([]*model.QueueUser{b, a})
	if assert.Len(t, pairs, 1) {
		assert.Equal(t, "a", pairs[0].U.UID)
		assert.Equal(t, "b", pairs[0].C.UID)
	}
}

func TestSelectPairsOldestFirstTieBreak(t *testing.T) {
	oldest := user("oldest", model.GenderFemale, 1000)
	middle := user("middle", model.GenderFemale, 2000)
	seeker := user("seeker", model.GenderMale, 3000)

	pairs := SelectPairs([]*model.QueueUser{seeker, middle, oldest})
	if assert.Len(t, pairs, 1) {
		assert.Equal(t, "oldest", pairs[0].U.UID)
		assert.Equal(t, "seeker", pairs[0].C.UID)
	}
}

func TestSelectPairsRespectsModeStrictly(t *testing.T) {
	a := user("a", model.GenderMale, 1000)
	a.Mode = model.ModeVideo
	b := user("b", model.GenderFemale, 2000)
	b.Mode = model.ModeRandom

	pairs := SelectPairs([]*model.QueueUser{a, b})
	assert.Empty(t, pairs)
}

func TestSelectPairsHonorsExplicitPreference(t *testing.T) {
	a := user("a", model.GenderMale, 1000)
	a.Preferences.Gender = model.GenderMale // seeking another male
	b := user("b", model.GenderFemale, 2000)

	pairs := SelectPairs([]*model.QueueUser{a, b})
	assert.Empty(t, pairs, "a only accepts male partners")
}

func TestSelectPairsLocationGatingAtStageZero(t *testing.T) {
	a := user("a", model.GenderMale, 1000)
	a.Preferences.Location = "sg"
	a.WidenStage = model.WidenStrict
	b := user("b", model.GenderFemale, 2000)
	b.Location = "us"

	pairs := SelectPairs([]*model.QueueUser{a, b})
	assert.Empty(t, pairs, "a requires sg location and has not widened")
}

func TestSelectPairsLocationIgnoredAfterWidening(t *testing.T) {
	a := user("a", model.GenderMale, 1000)
	a.Preferences.Location = "sg"
	a.WidenStage = model.WidenIgnoreLocation
	b := user("b", model.GenderFemale, 2000)
	b.Location = "us"

	pairs := SelectPairs([]*model.QueueUser{a, b})
	assert.Len(t, pairs, 1)
}

func TestSelectPairsNoSelfMatch(t *testing.T) {
	a := user("a", model.GenderMale, 1000)
	pairs := SelectPairs([]*model.QueueUser{a})
	assert.Empty(t, pairs)
}
