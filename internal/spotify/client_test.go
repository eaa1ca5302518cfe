package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/party-playlist/internal/spotify/spotifytest"
)

func newTestClient(t *testing.T, fake *spotifytest.Server) *Client {
	t.Helper()
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"})
	return NewWithTokenSource(src, nil, spotify.WithBaseURL(fake.APIURL()))
}

func TestCurrentlyPlaying(t *testing.T) {
	tests := []struct {
		name      string
		track     *spotifytest.Track
		isPlaying bool
		want      *Track
	}{
		{
			name:      "playing",
			track:     &spotifytest.Track{ID: "T1", Name: "Song", Artist: "Band", ImageURL: "img://album"},
			isPlaying: true,
			want:      &Track{ID: "T1", Title: "Song", Artist: "Band", AlbumImageURL: "img://album"},
		},
		{
			name:      "paused",
			track:     &spotifytest.Track{ID: "T1", Name: "Song", Artist: "Band"},
			isPlaying: false,
			want:      nil,
		},
		{
			name:  "no device",
			track: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := spotifytest.NewServer("party")
			defer fake.Close()
			fake.SetPlaying(tt.track, tt.isPlaying)

			got, err := newTestClient(t, fake).CurrentlyPlaying(context.Background())
			if err != nil {
				t.Fatalf("CurrentlyPlaying() error = %v", err)
			}

			if tt.want == nil {
				if got != nil {
					t.Errorf("CurrentlyPlaying() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("CurrentlyPlaying() = nil, want track")
			}
			if *got != *tt.want {
				t.Errorf("CurrentlyPlaying() = %+v, want %+v", *got, *tt.want)
			}
		})
	}
}

func TestCurrentlyPlaying_SendsBearerToken(t *testing.T) {
	fake := spotifytest.NewServer("party")
	defer fake.Close()
	fake.SetPlaying(&spotifytest.Track{ID: "T1", Name: "Song"}, true)

	if _, err := newTestClient(t, fake).CurrentlyPlaying(context.Background()); err != nil {
		t.Fatalf("CurrentlyPlaying() error = %v", err)
	}

	if got := fake.LastAuthorization(); got != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer test-token")
	}
}

func TestCurrentlyPlaying_Unauthorized(t *testing.T) {
	fake := spotifytest.NewServer("party")
	defer fake.Close()
	fake.QueueCurrentlyPlayingStatus(http.StatusUnauthorized)

	_, err := newTestClient(t, fake).CurrentlyPlaying(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("CurrentlyPlaying() error = %v, want ErrUnauthorized", err)
	}
	if !IsUnauthorized(err) {
		t.Error("IsUnauthorized() = false, want true")
	}
}

func TestCurrentlyPlaying_ServerError(t *testing.T) {
	fake := spotifytest.NewServer("party")
	defer fake.Close()
	fake.QueueCurrentlyPlayingStatus(http.StatusBadGateway)

	_, err := newTestClient(t, fake).CurrentlyPlaying(context.Background())
	if err == nil {
		t.Fatal("CurrentlyPlaying() error = nil, want error")
	}
	if IsUnauthorized(err) {
		t.Error("IsUnauthorized() = true for 502")
	}
}

func TestCurrentlyPlaying_RateLimitedReturnsImmediately(t *testing.T) {
	fake := spotifytest.NewServer("party")
	defer fake.Close()
	fake.SetPlaying(&spotifytest.Track{ID: "T1", Name: "Song"}, true)
	fake.QueueCurrentlyPlayingStatus(http.StatusTooManyRequests, http.StatusTooManyRequests)

	_, err := newTestClient(t, fake).CurrentlyPlaying(context.Background())

	var apiErr spotify.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("CurrentlyPlaying() error = %v, want 429 spotify.Error", err)
	}
	if IsUnauthorized(err) {
		t.Error("IsUnauthorized() = true for 429")
	}
	if n := fake.CurrentlyPlayingCalls.Load(); n != 1 {
		t.Errorf("currently-playing calls = %d, want 1 (no automatic retry)", n)
	}
}

func TestPlaylistPage(t *testing.T) {
	fake := spotifytest.NewServer("party")
	defer fake.Close()

	var entries []spotifytest.PlaylistEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, spotifytest.PlaylistEntry{
			Track:   spotifytest.Track{ID: fmt.Sprintf("T%d", i), Name: fmt.Sprintf("Song %d", i), Artist: "Band", ImageURL: "img://x"},
			AddedBy: "alice",
		})
	}
	entries[4].AddedBy = ""
	fake.SetPlaylist(entries...)

	client := newTestClient(t, fake)

	page, err := client.PlaylistPage(context.Background(), "party", 2, 2)
	if err != nil {
		t.Fatalf("PlaylistPage() error = %v", err)
	}
	if page.Total != 5 {
		t.Errorf("Total = %d, want 5", page.Total)
	}
	if page.Offset != 2 {
		t.Errorf("Offset = %d, want 2", page.Offset)
	}
	if len(page.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(page.Items))
	}
	if page.Items[0].ID != "T2" || page.Items[1].ID != "T3" {
		t.Errorf("Items = %s,%s, want T2,T3", page.Items[0].ID, page.Items[1].ID)
	}
	if page.Items[0].AddedBy != "alice" {
		t.Errorf("AddedBy = %q, want alice", page.Items[0].AddedBy)
	}

	last, err := client.PlaylistPage(context.Background(), "party", 4, 2)
	if err != nil {
		t.Fatalf("PlaylistPage() error = %v", err)
	}
	if len(last.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(last.Items))
	}
	if last.Items[0].AddedBy != unknownContributor {
		t.Errorf("AddedBy = %q, want %q", last.Items[0].AddedBy, unknownContributor)
	}
}

func TestPlaylistPage_Error(t *testing.T) {
	fake := spotifytest.NewServer("party")
	defer fake.Close()

	_, err := newTestClient(t, fake).PlaylistPage(context.Background(), "other-playlist", 0, 100)
	if err == nil {
		t.Error("PlaylistPage() error = nil for unknown playlist")
	}
}

func TestUserProfile(t *testing.T) {
	fake := spotifytest.NewServer("party")
	defer fake.Close()
	fake.AddUser(spotifytest.User{ID: "alice", DisplayName: "Alice", ImageURL: "img://a"})
	fake.AddUser(spotifytest.User{ID: "bob", DisplayName: "Bob"})

	client := newTestClient(t, fake)

	alice, err := client.UserProfile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("UserProfile() error = %v", err)
	}
	if alice.DisplayName != "Alice" || alice.ImageURL != "img://a" {
		t.Errorf("UserProfile(alice) = %+v", alice)
	}

	bob, err := client.UserProfile(context.Background(), "bob")
	if err != nil {
		t.Fatalf("UserProfile() error = %v", err)
	}
	if bob.ImageURL != "" {
		t.Errorf("ImageURL = %q, want empty", bob.ImageURL)
	}

	if _, err := client.UserProfile(context.Background(), "nobody"); err == nil {
		t.Error("UserProfile() error = nil for unknown user")
	}
}

func TestConvertTrack(t *testing.T) {
	tests := []struct {
		name string
		full spotify.FullTrack
		want Track
	}{
		{
			name: "primary artist and first image",
			full: spotify.FullTrack{
				SimpleTrack: spotify.SimpleTrack{
					ID:   "track123",
					Name: "Test Song",
					Artists: []spotify.SimpleArtist{
						{Name: "Artist One"},
						{Name: "Artist Two"},
					},
				},
				Album: spotify.SimpleAlbum{
					Images: []spotify.Image{{URL: "img://large"}, {URL: "img://small"}},
				},
			},
			want: Track{ID: "track123", Title: "Test Song", Artist: "Artist One", AlbumImageURL: "img://large"},
		},
		{
			name: "no artists or images",
			full: spotify.FullTrack{
				SimpleTrack: spotify.SimpleTrack{ID: "track000", Name: "Unknown Track"},
			},
			want: Track{ID: "track000", Title: "Unknown Track"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertTrack(&tt.full); got != tt.want {
				t.Errorf("convertTrack() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"api 401", spotify.Error{Status: http.StatusUnauthorized, Message: "expired"}, true},
		{"wrapped api 401", fmt.Errorf("ctx: %w", spotify.Error{Status: http.StatusUnauthorized}), true},
		{"api 403", spotify.Error{Status: http.StatusForbidden}, false},
		{"sentinel", fmt.Errorf("x: %w", ErrUnauthorized), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnauthorized(tt.err); got != tt.want {
				t.Errorf("IsUnauthorized(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
