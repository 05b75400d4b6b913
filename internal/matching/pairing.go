package matching

import (
	"sort"

	"matchbroker/internal/model"
)

// Pair is a matched pair of queue users, oldest first.
type Pair struct {
	U *model.QueueUser
	C *model.QueueUser
}

func oppositeGender(g model.Gender) model.Gender {
	if g == model.GenderMale {
		return model.GenderFemale
	}
	return model.GenderMale
}

// userTarget returns the gender a user will accept as a partner, per spec
// §4.5's reciprocal preference table: an explicit preference wins; absent
// that, the opposite gender while unwidened past stage 2, else "any"
// (empty Gender, meaning no restriction).
func userTarget(x *model.QueueUser) model.Gender {
	if x.Preferences.Gender != "" {
		return x.Preferences.Gender
	}
	if x.WidenStage < model.WidenIgnoreGender {
		return oppositeGender(x.Gender)
	}
	return "" // any
}

func accepts(target model.Gender, candidateGender model.Gender) bool {
	return target == "" || target == candidateGender
}

// eligible reports whether c is a valid match for u per spec §4.5's check
// table: self, reciprocal gender, user/candidate location, and mode.
func eligible(u, c *model.QueueUser) bool {
	if u.UID == c.UID {
		return false
	}
	if u.Mode != c.Mode {
		return false
	}

	uTarget := userTarget(u)
	cTarget := userTarget(c)
	if !accepts(uTarget, c.Gender) || !accepts(cTarget, u.Gender) {
		return false
	}

	if u.Preferences.Location != "" && u.WidenStage < model.WidenIgnoreLocation {
		if c.Location != u.Preferences.Location {
			return false
		}
	}
	if c.Preferences.Location != "" && c.WidenStage < model.WidenIgnoreLocation {
		if u.Location != c.Preferences.Location {
			return false
		}
	}

	return true
}

// SelectPairs runs one deterministic, oldest-first scan over users (which
// need not be pre-sorted) and returns every pair it finds, per spec §4.5
// steps 5-6. For each not-yet-matched user U it scans the remaining
// not-yet-matched users and picks the first eligible candidate — since the
// remaining pool is itself oldest-first, that candidate is the oldest
// eligible one, giving the starvation-resistant tie-break spec §4.5
// describes.
func SelectPairs(users []*model.QueueUser) []Pair {
	sorted := make([]*model.QueueUser, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].JoinedAt < sorted[j].JoinedAt
	})

	matched := make(map[string]bool, len(sorted))
	var pairs []Pair

	for i, u := range sorted {
		if matched[u.UID] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			c := sorted[j]
			if matched[c.UID] {
				continue
			}
			if eligible(u, c) {
				matched[u.UID] = true
				matched[c.UID] = true
				pairs = append(pairs, Pair{U: u, C: c})
				break
			}
		}
	}

	return pairs
}
