package tasks

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPlaylistAppender(t *testing.T) {
	dir := t.TempDir()
	playlistPath := filepath.Join(dir, "playlist.m3u")

	appender := NewPlaylistAppender(playlistPath, "/srv/music")

	if err := appender.Append("Song 1 [abc123].mp3"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := appender.Append("Song 2 [def456].mp3"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	content, err := os.ReadFile(playlistPath)
	if err != nil {
		t.Fatalf("failed to read playlist file: %v", err)
	}

	want := "/srv/music/Song 1 [abc123].mp3\n/srv/music/Song 2 [def456].mp3\n"
	if string(content) != want {
		t.Errorf("playlist content = %q, want %q", string(content), want)
	}
}

func TestPlaylistAppenderPreservesExistingEntries(t *testing.T) {
	dir := t.TempDir()
	playlistPath := filepath.Join(dir, "playlist.m3u")

	if err := os.WriteFile(playlistPath, []byte("/srv/music/old.mp3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	appender := NewPlaylistAppender(playlistPath, "/srv/music")
	if err := appender.Append("new.mp3"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	content, err := os.ReadFile(playlistPath)
	if err != nil {
		t.Fatal(err)
	}

	want := "/srv/music/old.mp3\n/srv/music/new.mp3\n"
	if string(content) != want {
		t.Errorf("playlist content = %q, want %q", string(content), want)
	}
}

func TestPlaylistAppenderBadPath(t *testing.T) {
	appender := NewPlaylistAppender(filepath.Join(t.TempDir(), "missing", "playlist.m3u"), "/srv/music")
	if err := appender.Append("song.mp3"); err == nil {
		t.Error("Append() error = nil for unwritable path")
	}
}
