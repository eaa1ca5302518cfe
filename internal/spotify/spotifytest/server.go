// Package spotifytest provides an in-process fake of the Spotify Web API and
// accounts token endpoint for tests.
package spotifytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
)

// Track is a playlist or playback track served by the fake.
type Track struct {
	ID       string
	Name     string
	Artist   string
	ImageURL string
}

// PlaylistEntry is a track in the fake playlist and the user who added it.
type PlaylistEntry struct {
	Track   Track
	AddedBy string
}

// User is a public profile served by the fake.
type User struct {
	ID          string
	DisplayName string
	ImageURL    string
}

// Server is a fake Spotify backend. All setters are safe to call while the
// server is handling requests.
type Server struct {
	*httptest.Server

	mu                sync.Mutex
	playlistID        string
	playlist          []PlaylistEntry
	playing           *Track
	isPlaying         bool
	users             map[string]User
	tokenStatus       int
	tokenExpiresIn    int
	playingStatuses   []int
	playlistFailAfter int
	profileStatus     int
	lastAuthorization string

	TokenCalls            atomic.Int32
	PlaylistCalls         atomic.Int32
	CurrentlyPlayingCalls atomic.Int32
	ProfileCalls          atomic.Int32
}

// NewServer starts a fake serving playlistID. Close it when done.
func NewServer(playlistID string) *Server {
	s := &Server{
		playlistID:        playlistID,
		users:             make(map[string]User),
		tokenStatus:       http.StatusOK,
		tokenExpiresIn:    3600,
		playlistFailAfter: -1,
		profileStatus:     http.StatusOK,
	}

	r := chi.NewRouter()
	r.Post("/api/token", s.handleToken)
	r.Get("/v1/me/player/currently-playing", s.handleCurrentlyPlaying)
	r.Get("/v1/playlists/{id}/tracks", s.handlePlaylist)
	r.Get("/v1/playlists/{id}/items", s.handlePlaylist)
	r.Get("/v1/users/{id}", s.handleUser)

	s.Server = httptest.NewServer(r)
	return s
}

// APIURL is the base URL to pass to spotify.WithBaseURL.
func (s *Server) APIURL() string {
	return s.URL + "/v1/"
}

// TokenURL is the accounts token endpoint.
func (s *Server) TokenURL() string {
	return s.URL + "/api/token"
}

// SetPlaylist replaces the playlist contents.
func (s *Server) SetPlaylist(entries ...PlaylistEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlist = append([]PlaylistEntry(nil), entries...)
}

// SetPlaying sets the track reported by currently-playing. A nil track
// reports an empty player.
func (s *Server) SetPlaying(track *Track, isPlaying bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = track
	s.isPlaying = isPlaying
}

// AddUser registers a public profile.
func (s *Server) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// SetTokenStatus makes the token endpoint answer with status.
func (s *Server) SetTokenStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenStatus = status
}

// QueueCurrentlyPlayingStatus makes the next currently-playing requests fail
// with the given statuses, in order, before normal responses resume.
func (s *Server) QueueCurrentlyPlayingStatus(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playingStatuses = append(s.playingStatuses, statuses...)
}

// FailPlaylistAfter makes playlist requests fail once n pages have been served.
// A negative n disables the failure.
func (s *Server) FailPlaylistAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlistFailAfter = n
}

// SetProfileStatus makes the user profile endpoint answer with status.
func (s *Server) SetProfileStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileStatus = status
}

// LastAuthorization returns the Authorization header of the latest API request.
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuthorization
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	n := s.TokenCalls.Add(1)

	s.mu.Lock()
	status, expiresIn := s.tokenStatus, s.tokenExpiresIn
	s.mu.Unlock()

	if status != http.StatusOK {
		writeJSON(w, status, map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid refresh token",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": fmt.Sprintf("access-%d", n),
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
	})
}

func (s *Server) handleCurrentlyPlaying(w http.ResponseWriter, r *http.Request) {
	s.CurrentlyPlayingCalls.Add(1)

	s.mu.Lock()
	s.lastAuthorization = r.Header.Get("Authorization")
	var status int
	if len(s.playingStatuses) > 0 {
		status = s.playingStatuses[0]
		s.playingStatuses = s.playingStatuses[1:]
	}
	playing, isPlaying := s.playing, s.isPlaying
	s.mu.Unlock()

	if status != 0 {
		writeError(w, status)
		return
	}

	if playing == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"is_playing":             isPlaying,
		"currently_playing_type": "track",
		"progress_ms":            1000,
		"item":                   trackJSON(*playing),
	})
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	served := int(s.PlaylistCalls.Add(1)) - 1

	s.mu.Lock()
	s.lastAuthorization = r.Header.Get("Authorization")
	playlistID, entries, failAfter := s.playlistID, s.playlist, s.playlistFailAfter
	s.mu.Unlock()

	if chi.URLParam(r, "id") != playlistID {
		writeError(w, http.StatusNotFound)
		return
	}
	if failAfter >= 0 && served >= failAfter {
		writeError(w, http.StatusInternalServerError)
		return
	}

	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	items := []any{}
	for i := offset; i < len(entries) && i < offset+limit; i++ {
		items = append(items, map[string]any{
			"added_at": "2025-12-31T20:00:00Z",
			"added_by": map[string]any{"id": entries[i].AddedBy, "type": "user"},
			"is_local": false,
			"track":    trackJSON(entries[i].Track),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"href":   r.URL.String(),
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  len(entries),
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.ProfileCalls.Add(1)

	s.mu.Lock()
	s.lastAuthorization = r.Header.Get("Authorization")
	user, ok := s.users[chi.URLParam(r, "id")]
	status := s.profileStatus
	s.mu.Unlock()

	if status != http.StatusOK {
		writeError(w, status)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound)
		return
	}

	images := []any{}
	if user.ImageURL != "" {
		images = append(images, map[string]any{"url": user.ImageURL, "height": 300, "width": 300})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           user.ID,
		"display_name": user.DisplayName,
		"type":         "user",
		"images":       images,
	})
}

func trackJSON(t Track) map[string]any {
	images := []any{}
	if t.ImageURL != "" {
		images = append(images, map[string]any{"url": t.ImageURL, "height": 640, "width": 640})
	}
	artists := []any{}
	if t.Artist != "" {
		artists = append(artists, map[string]any{"name": t.Artist})
	}
	return map[string]any{
		"id":      t.ID,
		"name":    t.Name,
		"type":    "track",
		"artists": artists,
		"album":   map[string]any{"name": t.Name + " (album)", "images": images},
	}
}

func writeError(w http.ResponseWriter, status int) {
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"status":  status,
			"message": http.StatusText(status),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}
