// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// ErrUnauthorized is returned when Spotify rejects the access token.
var ErrUnauthorized = errors.New("spotify rejected the access token")

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// NewWithTokenSource creates a client whose requests carry the bearer token
// currently held by src. The token source is consulted on every request and
// is expected not to refresh on its own. A non-nil limiter throttles requests.
//
// Automatic 429 retry is left off: a throttled call returns its error at once
// so a poll never outlives its tick.
func NewWithTokenSource(src oauth2.TokenSource, limiter *rate.Limiter, opts ...spotify.ClientOption) *Client {
	httpClient := &http.Client{
		Transport: withLimiter(&oauth2.Transport{Source: src}, limiter),
	}
	return New(spotify.New(httpClient, opts...))
}

// UserProfile returns the public profile for a Spotify user id.
func (c *Client) UserProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := c.api.GetUsersPublicProfile(ctx, spotify.ID(userID))
	if err != nil {
		return nil, fmt.Errorf("getting profile for %s: %w", userID, classify(err))
	}

	profile := &Profile{
		ID:          string(user.ID),
		DisplayName: user.DisplayName,
	}
	if len(user.Images) > 0 {
		profile.ImageURL = user.Images[0].URL
	}
	return profile, nil
}

// classify maps Spotify API errors onto this package's sentinel errors.
func classify(err error) error {
	if IsUnauthorized(err) {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}

// IsUnauthorized reports whether err is a 401 from the Spotify Web API.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return true
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Status == http.StatusUnauthorized
	}
	return false
}
