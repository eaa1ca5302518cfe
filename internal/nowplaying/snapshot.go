// Package nowplaying resolves the currently playing track to the person who
// added it and publishes the result for readers.
package nowplaying

import "sync/atomic"

// Snapshot is the attributed track currently playing.
// The JSON field names are the party display's wire contract.
type Snapshot struct {
	ContributorDisplayName  string  `json:"currentUserToDisplay"`
	Artist                  string  `json:"currentlyPlayingSongArtist"`
	Title                   string  `json:"currentlyPlayingSongTitle"`
	AlbumImageURL           string  `json:"currentlyPlayingSongImage"`
	ContributorProfileImage *string `json:"userProfileImage"`
}

// Store holds the latest snapshot. A nil snapshot means nothing attributable
// is playing. Reads and writes replace or load the whole value.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the latest snapshot, or nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Set replaces the snapshot. Pass nil to clear it.
func (s *Store) Set(snap *Snapshot) {
	s.current.Store(snap)
}
