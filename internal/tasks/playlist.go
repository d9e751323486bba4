package tasks

import (
	"fmt"
	"os"
	"path"
)

// PlaylistAppender appends completed downloads to an m3u playlist file, one
// absolute path per line. The file is created on first use and only ever
// appended to.
type PlaylistAppender struct {
	path string
	root string
}

func NewPlaylistAppender(playlistPath, root string) *PlaylistAppender {
	return &PlaylistAppender{path: playlistPath, root: root}
}

// Append writes one playlist line for filename, prefixed with the library
// root, and flushes it to disk before returning.
func (p *PlaylistAppender) Append(filename string) error {
	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open playlist file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(path.Join(p.root, filename) + "\n"); err != nil {
		return fmt.Errorf("failed to write playlist entry: %w", err)
	}
	return f.Sync()
}
