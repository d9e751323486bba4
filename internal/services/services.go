// package services defines the client for the remote playlist API
//
// YouTube Music, reached through a ytmusicapi proxy
package services

import (
	"context"
)

// PlaylistService defines the interface for the remote playlist provider.
type PlaylistService interface {
	// Authenticate performs OAuth authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetPlaylist retrieves a playlist with its tracks. The service may
	// return fewer tracks than limit.
	GetPlaylist(ctx context.Context, playlistID string, limit int) (*PlaylistExport, error)

	// Name returns the name of the service (e.g., "YouTube Music")
	Name() string
}

// Playlist represents playlist metadata from the remote service
type Playlist struct {
	ID         string
	Name       string
	TrackCount int
}

// PlaylistExport represents a playlist with all its tracks
type PlaylistExport struct {
	Playlist Playlist
	Tracks   []Track
}

// Track represents a music track from the remote service.
//
// VideoID may be empty for region-blocked or delisted entries; such tracks
// cannot be downloaded and are skipped by the queue builder.
type Track struct {
	VideoID  string
	Title    string
	Artist   string
	Duration int // Duration in seconds
}
