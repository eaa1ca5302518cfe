// Package attribution maintains the in-memory index of who added each track
// to the shared playlist.
package attribution

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/party-playlist/internal/spotify"
)

// DefaultPageSize is the number of playlist items requested per page.
const DefaultPageSize = spotify.MaxPlaylistPageSize

// Entry is the attribution for a single track.
// Entries are never modified after insertion.
type Entry struct {
	TrackID       string
	ContributorID string
	Title         string
	Artist        string
	AlbumImageURL string
}

// PlaylistSource abstracts the Spotify client for testing.
type PlaylistSource interface {
	PlaylistPage(ctx context.Context, playlistID string, offset, limit int) (*spotify.PlaylistPage, error)
}

// Credentials gates authorized calls on a valid access token.
type Credentials interface {
	EnsureValid(ctx context.Context) error
}

// Cache maps track ids to attributions. Rebuilds are additive: an id already
// present keeps its first entry, so a failed or partial pass never loses or
// rewrites known attributions.
type Cache struct {
	source      PlaylistSource
	credentials Credentials
	playlistID  string
	pageSize    int
	logger      *zap.Logger

	mu      sync.RWMutex
	entries map[string]Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithPageSize sets the number of items fetched per page.
func WithPageSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New creates an empty Cache for playlistID.
func New(source PlaylistSource, credentials Credentials, playlistID string, opts ...Option) *Cache {
	c := &Cache{
		source:      source,
		credentials: credentials,
		playlistID:  playlistID,
		pageSize:    DefaultPageSize,
		logger:      zap.NewNop(),
		entries:     make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the attribution for trackID.
func (c *Cache) Lookup(trackID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[trackID]
	return e, ok
}

// Len returns the number of cached attributions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Rebuild pages through the playlist and inserts attributions for tracks not
// yet cached. It returns the number of entries added. The credential is
// checked before every page, so a pass that outlives a token refreshes it
// instead of sending the expired one. On error the pass stops; entries added
// before the failure are kept.
func (c *Cache) Rebuild(ctx context.Context) (int, error) {
	pass := uuid.New()
	log := c.logger.With(zap.String("pass", pass.String()), zap.String("playlist", c.playlistID))

	added, pages, offset := 0, 0, 0
	for {
		if err := c.credentials.EnsureValid(ctx); err != nil {
			log.Warn("attribution rebuild stopped without a valid credential",
				zap.Int("offset", offset),
				zap.Int("added", added),
				zap.Error(err))
			return added, fmt.Errorf("ensuring credential: %w", err)
		}

		page, err := c.source.PlaylistPage(ctx, c.playlistID, offset, c.pageSize)
		if err != nil {
			log.Warn("attribution rebuild aborted",
				zap.Int("offset", offset),
				zap.Int("added", added),
				zap.Error(err))
			return added, fmt.Errorf("rebuilding attributions: %w", err)
		}
		pages++

		for _, item := range page.Items {
			if c.insertIfAbsent(entryFromItem(item)) {
				added++
			}
		}

		offset += c.pageSize
		if offset >= page.Total {
			break
		}
	}

	log.Debug("attribution rebuild finished",
		zap.Int("pages", pages),
		zap.Int("added", added),
		zap.Int("size", c.Len()))
	return added, nil
}

// insertIfAbsent stores e unless its track is already attributed.
func (c *Cache) insertIfAbsent(e Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[e.TrackID]; exists {
		return false
	}
	c.entries[e.TrackID] = e
	return true
}

func entryFromItem(item spotify.PlaylistItem) Entry {
	return Entry{
		TrackID:       item.ID,
		ContributorID: item.AddedBy,
		Title:         item.Title,
		Artist:        item.Artist,
		AlbumImageURL: item.AlbumImageURL,
	}
}
