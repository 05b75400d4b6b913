// Package profile fetches a user's profile/tier from the external profile
// service and reports lightweight match stats back to it. See
// SPEC_FULL.md §4.9.
package profile

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"matchbroker/internal/logging"
	"matchbroker/internal/model"
)

// ErrProfileMissing is returned when an authenticated user has no
// resolvable profile, per spec §7's ProfileMissing error kind.
type ErrProfileMissing struct{ UID string }

func (e *ErrProfileMissing) Error() string { return "profile missing for uid " + e.UID }

// Profile is the subset of a user's profile the broker needs to enqueue
// them.
type Profile struct {
	UID      string       `json:"uid"`
	Gender   model.Gender `json:"gender"`
	Tier     model.Tier   `json:"tier"`
	Location string       `json:"location"`
}

// Client talks to the external profile service over HTTP. A Client with
// no configured BaseURL degrades to a local-only default profile for
// every uid, matching the broker's single-node degraded-mode posture.
type Client struct {
	rest    *resty.Client
	token   string
	enabled bool
	log     *logrus.Entry
}

// NewClient builds a Client against baseURL using token for bearer auth.
// An empty baseURL disables remote calls.
func NewClient(baseURL, token string) *Client {
	c := &Client{
		rest:    resty.New().SetBaseURL(baseURL).SetTimeout(3 * time.Second),
		token:   token,
		enabled: baseURL != "",
		log:     logging.For("profile-client"),
	}
	return c
}

// FetchProfile retrieves uid's profile. In degraded (no baseURL) mode it
// returns a FREE-tier default with no location, never an error.
func (c *Client) FetchProfile(uid string) (*Profile, error) {
	if !c.enabled {
		// No gender source exists in degraded mode; default arbitrarily so
		// local runs without a profile backend still exercise matching.
		return &Profile{UID: uid, Gender: model.GenderMale, Tier: model.TierFree}, nil
	}

	var profile Profile
	resp, err := c.rest.R().
		SetHeader("Authorization", "Bearer "+c.token).
		SetResult(&profile).
		Get("/profiles/" + uid)
	if err != nil {
		c.log.WithError(err).WithField("uid", uid).Warn("profile fetch failed")
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, &ErrProfileMissing{UID: uid}
	}
	if resp.StatusCode() != http.StatusOK {
		c.log.WithFields(logrus.Fields{
			"uid":    uid,
			"status": resp.StatusCode(),
		}).Warn("profile fetch returned non-OK status")
		return nil, &ErrProfileMissing{UID: uid}
	}

	return &profile, nil
}

// IncrementStat reports a lightweight, best-effort usage counter (e.g.
// "matches_completed") for uid. Failures are logged and swallowed; stats
// reporting never blocks matchmaking.
func (c *Client) IncrementStat(uid, stat string) {
	if !c.enabled {
		return
	}
	_, err := c.rest.R().
		SetHeader("Authorization", "Bearer "+c.token).
		SetBody(map[string]string{"stat": stat}).
		Post("/profiles/" + uid + "/stats/increment")
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"uid": uid, "stat": stat}).Warn("stat increment failed")
	}
}
