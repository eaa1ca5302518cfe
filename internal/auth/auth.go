// Package auth manages the short-lived Spotify access credential.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// defaultTokenLifetime applies when the token endpoint omits expires_in.
const defaultTokenLifetime = time.Hour

var (
	// ErrMissingCredentials is returned when the client id, secret or refresh token is empty.
	ErrMissingCredentials = errors.New("missing Spotify client id, client secret or refresh token")

	// ErrCredential is returned when the refresh-token exchange fails.
	ErrCredential = errors.New("refreshing access credential failed")

	// ErrNoCredential is returned by Token before the first successful refresh.
	ErrNoCredential = errors.New("no access credential available")
)

// Credential is an access token and the instant it stops being usable.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// ValidAt reports whether the credential can be used at t.
func (c *Credential) ValidAt(t time.Time) bool {
	return c != nil && c.Token != "" && t.Before(c.ExpiresAt)
}

// Manager owns the access credential and refreshes it with the refresh-token grant.
//
// The credential is swapped wholesale. Two callers that observe an expired
// credential at the same time may both refresh; the later result wins.
type Manager struct {
	oauth        *oauth2.Config
	refreshToken string
	httpClient   *http.Client
	now          func() time.Time
	logger       *zap.Logger

	current atomic.Pointer[Credential]
}

// Option configures a Manager.
type Option func(*Manager)

// WithTokenURL overrides the Spotify accounts token endpoint.
func WithTokenURL(url string) Option {
	return func(m *Manager) {
		m.oauth.Endpoint.TokenURL = url
	}
}

// WithHTTPClient sets the client used for the token exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = c
	}
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// New creates a Manager. No credential is fetched until EnsureValid or Refresh is called.
func New(clientID, clientSecret, refreshToken string, opts ...Option) (*Manager, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, ErrMissingCredentials
	}

	m := &Manager{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  spotifyauth.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		refreshToken: refreshToken,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Current returns the credential in use, or nil if none has been obtained.
func (m *Manager) Current() *Credential {
	return m.current.Load()
}

// EnsureValid refreshes the credential when none exists or it has expired.
// A valid credential makes no network call.
func (m *Manager) EnsureValid(ctx context.Context) error {
	if m.current.Load().ValidAt(m.now()) {
		return nil
	}
	return m.Refresh(ctx)
}

// Refresh exchanges the refresh token for a new access token.
// On failure the previous credential, possibly expired, is left in place.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	tok, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: m.refreshToken}).Token()
	if err != nil {
		m.logger.Warn("access token refresh failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrCredential, err)
	}

	// Expiry is measured on the injected clock from the wire expires_in, not
	// from tok.Expiry, which oauth2 stamps with the wall clock.
	lifetime := defaultTokenLifetime
	if tok.ExpiresIn > 0 {
		lifetime = time.Duration(tok.ExpiresIn) * time.Second
	}

	cred := &Credential{
		Token:     tok.AccessToken,
		ExpiresAt: m.now().Add(lifetime),
	}
	m.current.Store(cred)

	m.logger.Debug("access token refreshed", zap.Time("expires_at", cred.ExpiresAt))
	return nil
}

// Token implements oauth2.TokenSource with the current credential. It never
// refreshes; EnsureValid gates authorized calls.
func (m *Manager) Token() (*oauth2.Token, error) {
	cred := m.current.Load()
	if cred == nil || cred.Token == "" {
		return nil, ErrNoCredential
	}
	return &oauth2.Token{
		AccessToken: cred.Token,
		TokenType:   "Bearer",
		Expiry:      cred.ExpiresAt,
	}, nil
}

var _ oauth2.TokenSource = (*Manager)(nil)
