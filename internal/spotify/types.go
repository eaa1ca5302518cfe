package spotify

// Track is the subset of Spotify track metadata shown on the party display.
type Track struct {
	ID            string
	Title         string
	Artist        string // Primary artist only
	AlbumImageURL string // Largest album image, empty if none
}

// PlaylistItem is a track in the shared playlist with the user who added it.
type PlaylistItem struct {
	Track
	AddedBy string
}

// PlaylistPage is one offset/limit page of playlist items.
type PlaylistPage struct {
	Items  []PlaylistItem
	Offset int
	Total  int
}

// Profile is a user's public Spotify profile.
type Profile struct {
	ID          string
	DisplayName string
	ImageURL    string // Empty if the user has no profile image
}
