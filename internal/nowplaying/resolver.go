package nowplaying

import (
	"context"

	"go.uber.org/zap"

	"github.com/justestif/party-playlist/internal/attribution"
	"github.com/justestif/party-playlist/internal/spotify"
)

// maxAttempts bounds a poll to the first try plus one retry after a token refresh.
const maxAttempts = 2

// Player abstracts the Spotify calls the resolver makes.
type Player interface {
	CurrentlyPlaying(ctx context.Context) (*spotify.Track, error)
	UserProfile(ctx context.Context, userID string) (*spotify.Profile, error)
}

// Attributions looks up who added a track.
type Attributions interface {
	Lookup(trackID string) (attribution.Entry, bool)
}

// Credentials gates and refreshes the access token.
type Credentials interface {
	EnsureValid(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Resolver joins the currently playing track with its attribution.
type Resolver struct {
	player       Player
	attributions Attributions
	credentials  Credentials
	store        *Store
	logger       *zap.Logger
}

// NewResolver creates a Resolver publishing to store.
func NewResolver(player Player, attributions Attributions, credentials Credentials, store *Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		player:       player,
		attributions: attributions,
		credentials:  credentials,
		store:        store,
		logger:       logger,
	}
}

// Poll resolves what is playing now and overwrites the published snapshot,
// clearing it when nothing attributable is playing or any step fails.
// Errors are logged, never returned.
func (r *Resolver) Poll(ctx context.Context) *Snapshot {
	snap := r.resolve(ctx)
	r.store.Set(snap)
	return snap
}

func (r *Resolver) resolve(ctx context.Context) *Snapshot {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := r.credentials.EnsureValid(ctx); err != nil {
			r.logger.Warn("no valid credential for now-playing poll", zap.Error(err))
			return nil
		}

		track, err := r.player.CurrentlyPlaying(ctx)
		if err != nil {
			if spotify.IsUnauthorized(err) && attempt < maxAttempts {
				r.logger.Info("access token rejected, refreshing and retrying", zap.Error(err))
				if err := r.credentials.Refresh(ctx); err != nil {
					r.logger.Warn("forced token refresh failed", zap.Error(err))
					return nil
				}
				continue
			}
			r.logger.Warn("fetching currently playing failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return nil
		}

		if track == nil {
			r.logger.Debug("nothing playing")
			return nil
		}

		entry, ok := r.attributions.Lookup(track.ID)
		if !ok {
			r.logger.Debug("no attribution for playing track",
				zap.String("track_id", track.ID),
				zap.String("title", track.Title))
			return nil
		}

		return r.compose(ctx, track, entry)
	}
	return nil
}

// compose builds the snapshot, falling back to the raw contributor id when
// the profile cannot be fetched.
func (r *Resolver) compose(ctx context.Context, track *spotify.Track, entry attribution.Entry) *Snapshot {
	snap := &Snapshot{
		ContributorDisplayName: entry.ContributorID,
		Artist:                 track.Artist,
		Title:                  track.Title,
		AlbumImageURL:          track.AlbumImageURL,
	}

	profile, err := r.player.UserProfile(ctx, entry.ContributorID)
	if err != nil {
		r.logger.Warn("fetching contributor profile failed",
			zap.String("contributor", entry.ContributorID),
			zap.Error(err))
		return snap
	}

	if profile.DisplayName != "" {
		snap.ContributorDisplayName = profile.DisplayName
	}
	if profile.ImageURL != "" {
		img := profile.ImageURL
		snap.ContributorProfileImage = &img
	}
	return snap
}
