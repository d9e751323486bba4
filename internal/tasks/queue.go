package tasks

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/kherzog/ytmsync/internal/services"
)

const watchURLBase = "https://music.youtube.com/watch?v="

// unknownTitle substitutes for tracks and events that arrive without one.
const unknownTitle = "Unknown Title"

// WorkItem is one queued download: a watch URL constructed from a track's
// video ID, plus the metadata needed for logging and history rows.
type WorkItem struct {
	URL     string `json:"url"`
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
}

// WatchURL constructs the download URL for a video ID.
func WatchURL(videoID string) string {
	return watchURLBase + videoID
}

// BuildQueue diffs the remote track list against the local library and
// returns the ordered download queue.
//
// Tracks are visited in playlist order. A track without a video ID is
// unqueueable and skipped with a warning, never an error. A track whose
// bracketed ID token already appears in some local filename is skipped as
// present. Every decision is logged.
func BuildQueue(logger *log.Logger, tracks []services.Track, localFiles []string) []WorkItem {
	var queue []WorkItem

	for _, track := range tracks {
		title := track.Title
		if title == "" {
			title = unknownTitle
		}

		if track.VideoID == "" {
			logger.Warn("skipping track, missing video ID", "title", title)
			continue
		}

		if hasToken(localFiles, track.VideoID) {
			logger.Info("already downloaded", "title", title)
			continue
		}

		queue = append(queue, WorkItem{
			URL:     WatchURL(track.VideoID),
			VideoID: track.VideoID,
			Title:   title,
		})
		logger.Info("queued", "title", title)
	}

	logger.Info("queue built", "new", len(queue), "remote", len(tracks))
	return queue
}

// hasToken reports whether any local filename embeds the bracketed identity
// token for videoID. This is the sole already-downloaded test.
func hasToken(localFiles []string, videoID string) bool {
	token := "[" + videoID + "]"
	for _, filename := range localFiles {
		if strings.Contains(filename, token) {
			return true
		}
	}
	return false
}
