package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kherzog/ytmsync/internal/shared"
)

func TestYTMusicServiceName(t *testing.T) {
	svc := NewYTMusicService("")
	if svc.Name() != "YouTube Music" {
		t.Errorf("Name() = %q, want YouTube Music", svc.Name())
	}
}

func TestYTMusicServiceDefaultBaseURL(t *testing.T) {
	svc := NewYTMusicService("")
	if svc.baseURL != defaultYTBaseURL {
		t.Errorf("baseURL = %q, want %q", svc.baseURL, defaultYTBaseURL)
	}
}

func writeOAuthFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oauth.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestYTMusicServiceAuthenticate(t *testing.T) {
	validToken := `{"access_token": "ya29.test", "refresh_token": "1//refresh", "token_type": "Bearer"}`

	tests := []struct {
		name        string
		credentials func(t *testing.T) map[string]string
		wantErr     bool
	}{
		{
			name: "valid token file",
			credentials: func(t *testing.T) map[string]string {
				return map[string]string{
					"client_id":     "client",
					"client_secret": "secret",
					"oauth_file":    writeOAuthFile(t, validToken),
				}
			},
		},
		{
			name: "missing client id",
			credentials: func(t *testing.T) map[string]string {
				return map[string]string{
					"client_secret": "secret",
					"oauth_file":    writeOAuthFile(t, validToken),
				}
			},
			wantErr: true,
		},
		{
			name: "missing oauth file",
			credentials: func(t *testing.T) map[string]string {
				return map[string]string{
					"client_id":     "client",
					"client_secret": "secret",
					"oauth_file":    filepath.Join(t.TempDir(), "nope.json"),
				}
			},
			wantErr: true,
		},
		{
			name: "oauth file without tokens",
			credentials: func(t *testing.T) map[string]string {
				return map[string]string{
					"client_id":     "client",
					"client_secret": "secret",
					"oauth_file":    writeOAuthFile(t, `{"scope": "nothing"}`),
				}
			},
			wantErr: true,
		},
		{
			name: "oauth file not JSON",
			credentials: func(t *testing.T) map[string]string {
				return map[string]string{
					"client_id":     "client",
					"client_secret": "secret",
					"oauth_file":    writeOAuthFile(t, "not json"),
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewYTMusicService("")
			err := svc.Authenticate(context.Background(), tt.credentials(t))
			if (err != nil) != tt.wantErr {
				t.Errorf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestYTMusicServiceGetPlaylist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/playlists/PLabc" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "100" {
			t.Errorf("limit = %q, want 100", r.URL.Query().Get("limit"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "PLabc",
			"title": "Test Playlist",
			"trackCount": 3,
			"tracks": [
				{"videoId": "v1", "title": "Song 1", "artists": [{"name": "Artist 1", "id": "a1"}], "duration_seconds": 180},
				{"videoId": "", "title": "Blocked Song", "artists": [], "duration_seconds": 0},
				{"videoId": "v3", "title": "Song 3", "artists": [{"name": "Artist 3", "id": "a3"}, {"name": "Feature", "id": "a4"}], "duration_seconds": 200}
			]
		}`))
	}))
	defer server.Close()

	svc := NewYTMusicService(server.URL)
	export, err := svc.GetPlaylist(context.Background(), "PLabc", 100)
	if err != nil {
		t.Fatalf("GetPlaylist() error = %v", err)
	}

	if export.Playlist.Name != "Test Playlist" || export.Playlist.TrackCount != 3 {
		t.Errorf("playlist = %+v, want Test Playlist with 3 tracks", export.Playlist)
	}
	if len(export.Tracks) != 3 {
		t.Fatalf("got %d tracks, want 3", len(export.Tracks))
	}

	if export.Tracks[0].VideoID != "v1" || export.Tracks[0].Artist != "Artist 1" || export.Tracks[0].Duration != 180 {
		t.Errorf("tracks[0] = %+v", export.Tracks[0])
	}
	if export.Tracks[1].VideoID != "" {
		t.Errorf("blocked track should keep its empty videoId: %+v", export.Tracks[1])
	}
	if export.Tracks[2].Artist != "Artist 3" {
		t.Errorf("tracks[2].Artist = %q, want primary artist", export.Tracks[2].Artist)
	}
}

func TestYTMusicServiceGetPlaylistErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		svc := NewYTMusicService(server.URL)
		_, err := svc.GetPlaylist(context.Background(), "missing", 10)
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("GetPlaylist() error = %v, want ErrPlaylistNotFound", err)
		}
	})

	t.Run("server error with detail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail": "ytmusicapi exploded"}`))
		}))
		defer server.Close()

		svc := NewYTMusicService(server.URL)
		_, err := svc.GetPlaylist(context.Background(), "PLabc", 10)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("GetPlaylist() error = %v, want ErrAPIRequest", err)
		}
	})

	t.Run("malformed response body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		svc := NewYTMusicService(server.URL)
		if _, err := svc.GetPlaylist(context.Background(), "PLabc", 10); err == nil {
			t.Error("GetPlaylist() error = nil for malformed body")
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		svc := NewYTMusicService(server.URL)
		if _, err := svc.GetPlaylist(context.Background(), "PLabc", 10); err == nil {
			t.Error("GetPlaylist() error = nil for unreachable server")
		}
	})
}
