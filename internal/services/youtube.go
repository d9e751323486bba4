// YouTube Music [PlaylistService] implementation
//
// Communicates with a ytmusicapi proxy server. Requests carry an OAuth
// bearer token refreshed from a ytmusicapi-style oauth.json token file.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"

	"github.com/kherzog/ytmsync/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// googleTokenURL is the token refresh endpoint for YouTube Music OAuth
// credentials (TV device flow, same as ytmusicapi uses).
const googleTokenURL = "https://oauth2.googleapis.com/token"

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"`
}

// YTMusicService implements the PlaylistService interface for YouTube Music.
type YTMusicService struct {
	baseURL    string
	httpClient *http.Client
}

// NewYTMusicService creates a new YouTube Music service instance.
func NewYTMusicService(baseURL string) *YTMusicService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YTMusicService{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// Name returns the service name.
func (y *YTMusicService) Name() string {
	return "YouTube Music"
}

// Authenticate builds an OAuth-backed HTTP client for subsequent requests.
//
// Expects credentials["client_id"], credentials["client_secret"] and
// credentials["oauth_file"], where oauth_file points to a JSON token file
// (access_token, refresh_token, expiry). Expired tokens are refreshed
// transparently by the [oauth2.TokenSource].
func (y *YTMusicService) Authenticate(ctx context.Context, credentials map[string]string) error {
	for _, key := range []string{"client_id", "client_secret", "oauth_file"} {
		if credentials[key] == "" {
			return fmt.Errorf("missing %s in credentials", key)
		}
	}

	data, err := os.ReadFile(credentials["oauth_file"])
	if err != nil {
		return fmt.Errorf("failed to read oauth file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("failed to parse oauth file: %w", err)
	}
	if token.RefreshToken == "" && token.AccessToken == "" {
		return fmt.Errorf("oauth file %s contains no usable token", credentials["oauth_file"])
	}

	conf := &oauth2.Config{
		ClientID:     credentials["client_id"],
		ClientSecret: credentials["client_secret"],
		Endpoint:     oauth2.Endpoint{TokenURL: googleTokenURL},
	}

	y.httpClient = oauth2.NewClient(ctx, conf.TokenSource(ctx, &token))
	return nil
}

func (y *YTMusicService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	apiURL := y.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// GetPlaylist retrieves a playlist with its tracks.
//
// Calls GET /api/playlists/{id}?limit=N on the proxy. Tracks with a missing
// videoId are kept in the result; downstream decides how to handle them.
func (y *YTMusicService) GetPlaylist(ctx context.Context, playlistID string, limit int) (*PlaylistExport, error) {
	var ytPlaylist struct {
		ID         string         `json:"id"`
		Title      string         `json:"title"`
		TrackCount int            `json:"trackCount"`
		Tracks     []YouTubeTrack `json:"tracks"`
	}

	endpoint := fmt.Sprintf("/api/playlists/%s?limit=%d", playlistID, limit)
	if err := y.doRequest(ctx, http.MethodGet, endpoint, &ytPlaylist); err != nil {
		return nil, err
	}

	playlist := Playlist{
		ID:         ytPlaylist.ID,
		Name:       ytPlaylist.Title,
		TrackCount: ytPlaylist.TrackCount,
	}

	tracks := make([]Track, len(ytPlaylist.Tracks))
	for i, ytt := range ytPlaylist.Tracks {
		track := Track{
			VideoID:  ytt.VideoID,
			Title:    ytt.Title,
			Duration: ytt.DurationSec,
		}

		if len(ytt.Artists) > 0 {
			track.Artist = ytt.Artists[0].Name
		}

		tracks[i] = track
	}

	return &PlaylistExport{
		Playlist: playlist,
		Tracks:   tracks,
	}, nil
}
