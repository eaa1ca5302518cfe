package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// MaxPlaylistPageSize is the largest page Spotify serves for playlist items.
const MaxPlaylistPageSize = 100

// unknownContributor stands in for playlist items without an added_by user.
const unknownContributor = "Unknown"

// CurrentlyPlaying returns the track playing on the account's active device.
// Returns (nil, nil) when nothing is playing.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*Track, error) {
	playing, err := c.api.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting currently playing: %w", classify(err))
	}

	if playing == nil || !playing.Playing || playing.Item == nil {
		return nil, nil
	}

	track := convertTrack(playing.Item)
	return &track, nil
}

// PlaylistPage fetches one page of a playlist's items.
// Items without a track (episodes, removed or local entries without an id) are skipped,
// so len(Items) may be smaller than the requested limit even when more pages follow.
func (c *Client) PlaylistPage(ctx context.Context, playlistID string, offset, limit int) (*PlaylistPage, error) {
	page, err := c.api.GetPlaylistItems(ctx, spotify.ID(playlistID),
		spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("fetching playlist items (offset %d): %w", offset, classify(err))
	}

	result := &PlaylistPage{
		Items:  make([]PlaylistItem, 0, len(page.Items)),
		Offset: offset,
		Total:  int(page.Total),
	}

	for i := range page.Items {
		item := &page.Items[i]
		if item.Track.Track == nil || item.Track.Track.ID == "" {
			continue
		}

		addedBy := string(item.AddedBy.ID)
		if addedBy == "" {
			addedBy = unknownContributor
		}

		result.Items = append(result.Items, PlaylistItem{
			Track:   convertTrack(item.Track.Track),
			AddedBy: addedBy,
		})
	}

	return result, nil
}

// convertTrack converts a Spotify FullTrack to a Track.
func convertTrack(full *spotify.FullTrack) Track {
	track := Track{
		ID:    full.ID.String(),
		Title: full.Name,
	}
	if len(full.Artists) > 0 {
		track.Artist = full.Artists[0].Name
	}
	if len(full.Album.Images) > 0 {
		track.AlbumImageURL = full.Album.Images[0].URL
	}
	return track
}
