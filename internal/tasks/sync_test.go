package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/kherzog/ytmsync/internal/engine"
	"github.com/kherzog/ytmsync/internal/services"
	"github.com/kherzog/ytmsync/internal/shared"
)

type mockPlaylistService struct {
	export  *services.PlaylistExport
	err     error
	authErr error
}

func (m *mockPlaylistService) Name() string { return "mock" }

func (m *mockPlaylistService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return m.authErr
}

func (m *mockPlaylistService) GetPlaylist(ctx context.Context, playlistID string, limit int) (*services.PlaylistExport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.export, nil
}

// fakeEngine emits one terminal event per URL, failing the URLs in fail.
type fakeEngine struct {
	fail  map[string]bool
	calls [][]string
	err   error
}

func (f *fakeEngine) Run(ctx context.Context, urls []string, events chan<- engine.Event) error {
	defer close(events)
	f.calls = append(f.calls, urls)
	if f.err != nil {
		return f.err
	}
	for _, u := range urls {
		if f.fail[u] {
			events <- engine.Event{Status: engine.StatusError, SourceURL: u, Message: "HTTP Error 403"}
		} else {
			events <- engine.Event{Status: engine.StatusFinished, SourceURL: u, Filename: fmt.Sprintf("track-%s.webm", u[len(u)-3:])}
		}
	}
	return nil
}

// fakeFactory hands out plain and cookie engines and records which was asked for.
type fakeFactory struct {
	plain   *fakeEngine
	cookies *fakeEngine
	asked   []bool
}

func (f *fakeFactory) build(useCookies bool) DownloadEngine {
	f.asked = append(f.asked, useCookies)
	if useCookies {
		return f.cookies
	}
	return f.plain
}

func playlistExport(ids ...string) *services.PlaylistExport {
	export := &services.PlaylistExport{
		Playlist: services.Playlist{ID: "PL1", Name: "Test Playlist", TrackCount: len(ids)},
	}
	for _, id := range ids {
		export.Tracks = append(export.Tracks, services.Track{VideoID: id, Title: "Track " + id})
	}
	return export
}

func newTestSyncer(t *testing.T, svc services.PlaylistService, factory *fakeFactory, cookieFile string) *Syncer {
	t.Helper()
	cfg := SyncConfig{
		PlaylistID: "PL1",
		Limit:      5000,
		MusicDir:   t.TempDir(),
		AudioExt:   ".mp3",
		CookieFile: cookieFile,
	}
	return NewSyncer(svc, factory.build, &mockAppender{}, &mockRecorder{}, shared.NewLogger(io.Discard), cfg)
}

func TestSyncerEmptyQueueIsCleanSuccess(t *testing.T) {
	dir := t.TempDir()
	svc := &mockPlaylistService{export: playlistExport()}
	factory := &fakeFactory{plain: &fakeEngine{}}

	syncer := NewSyncer(svc, factory.build, &mockAppender{}, &mockRecorder{}, shared.NewLogger(io.Discard), SyncConfig{
		PlaylistID: "PL1",
		MusicDir:   dir,
		AudioExt:   ".mp3",
	})

	result, err := syncer.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.NoNewTracks() {
		t.Error("NoNewTracks() = false for empty queue")
	}
	if len(factory.asked) != 0 {
		t.Errorf("engine built %d times for empty queue, want 0", len(factory.asked))
	}
}

func TestSyncerDownloadsMissingTracks(t *testing.T) {
	svc := &mockPlaylistService{export: playlistExport("abc", "def")}
	factory := &fakeFactory{plain: &fakeEngine{}}
	syncer := newTestSyncer(t, svc, factory, "")

	result, err := syncer.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Queued != 2 || result.Completed != 2 {
		t.Errorf("queued=%d completed=%d, want 2/2", result.Queued, result.Completed)
	}
	if result.Retried {
		t.Error("Retried = true with no failures")
	}
	if len(result.PermanentFailures) != 0 {
		t.Errorf("PermanentFailures = %v, want none", result.PermanentFailures)
	}
	if len(factory.asked) != 1 || factory.asked[0] {
		t.Errorf("engine cookie flags = %v, want [false]", factory.asked)
	}
}

func TestSyncerFailuresWithoutCookiesAreNotRetried(t *testing.T) {
	svc := &mockPlaylistService{export: playlistExport("abc", "def")}
	failURL := WatchURL("def")
	factory := &fakeFactory{plain: &fakeEngine{fail: map[string]bool{failURL: true}}}
	syncer := newTestSyncer(t, svc, factory, "")

	result, err := syncer.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Retried {
		t.Error("Retried = true without a cookie file")
	}
	if len(result.PermanentFailures) != 1 || result.PermanentFailures[0] != failURL {
		t.Errorf("PermanentFailures = %v, want [%s]", result.PermanentFailures, failURL)
	}
}

func TestSyncerRetriesOnlyFailedURLsWithCookies(t *testing.T) {
	svc := &mockPlaylistService{export: playlistExport("abc", "def", "ghi")}
	failURL := WatchURL("def")
	factory := &fakeFactory{
		plain:   &fakeEngine{fail: map[string]bool{failURL: true}},
		cookies: &fakeEngine{},
	}
	syncer := newTestSyncer(t, svc, factory, "cookies.txt")

	result, err := syncer.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Retried {
		t.Fatal("Retried = false with failures and a cookie file")
	}

	if len(factory.cookies.calls) != 1 {
		t.Fatalf("retry pass ran %d times, want 1", len(factory.cookies.calls))
	}
	retryURLs := factory.cookies.calls[0]
	if len(retryURLs) != 1 || retryURLs[0] != failURL {
		t.Errorf("retry submitted %v, want [%s]", retryURLs, failURL)
	}

	if result.Recovered != 1 {
		t.Errorf("Recovered = %d, want 1", result.Recovered)
	}
	if result.Completed != 3 {
		t.Errorf("Completed = %d, want 3", result.Completed)
	}
	if len(result.PermanentFailures) != 0 {
		t.Errorf("PermanentFailures = %v, want none", result.PermanentFailures)
	}

	want := []bool{false, true}
	if len(factory.asked) != len(want) || factory.asked[0] != want[0] || factory.asked[1] != want[1] {
		t.Errorf("engine cookie flags = %v, want %v", factory.asked, want)
	}
}

func TestSyncerRetryIsOneShot(t *testing.T) {
	svc := &mockPlaylistService{export: playlistExport("abc")}
	failURL := WatchURL("abc")
	factory := &fakeFactory{
		plain:   &fakeEngine{fail: map[string]bool{failURL: true}},
		cookies: &fakeEngine{fail: map[string]bool{failURL: true}},
	}
	syncer := newTestSyncer(t, svc, factory, "cookies.txt")

	result, err := syncer.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(factory.cookies.calls) != 1 {
		t.Errorf("retry pass ran %d times, want exactly 1", len(factory.cookies.calls))
	}
	if len(result.PermanentFailures) != 1 || result.PermanentFailures[0] != failURL {
		t.Errorf("PermanentFailures = %v, want [%s]", result.PermanentFailures, failURL)
	}
}

func TestSyncerPlaylistFetchErrorPropagates(t *testing.T) {
	fetchErr := fmt.Errorf("%w: playlist request failed", shared.ErrAPIRequest)
	svc := &mockPlaylistService{err: fetchErr}
	factory := &fakeFactory{plain: &fakeEngine{}}
	syncer := newTestSyncer(t, svc, factory, "")

	_, err := syncer.Run(context.Background(), nil)
	if !errors.Is(err, shared.ErrAPIRequest) {
		t.Errorf("Run() error = %v, want ErrAPIRequest", err)
	}
}

func TestSyncerEngineErrorPropagates(t *testing.T) {
	svc := &mockPlaylistService{export: playlistExport("abc")}
	factory := &fakeFactory{plain: &fakeEngine{err: errors.New("yt-dlp not found")}}
	syncer := newTestSyncer(t, svc, factory, "")

	_, err := syncer.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("Run() error = nil, want engine failure")
	}
}

func TestSyncerMissingDependencies(t *testing.T) {
	logger := shared.NewLogger(io.Discard)
	factory := &fakeFactory{plain: &fakeEngine{}}

	t.Run("nil playlist service", func(t *testing.T) {
		syncer := NewSyncer(nil, factory.build, &mockAppender{}, &mockRecorder{}, logger, SyncConfig{})
		if _, err := syncer.Run(context.Background(), nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("Run() error = %v, want ErrServiceUnavailable", err)
		}
	})

	t.Run("nil engine factory", func(t *testing.T) {
		syncer := NewSyncer(&mockPlaylistService{export: playlistExport()}, nil, &mockAppender{}, &mockRecorder{}, logger, SyncConfig{})
		if _, err := syncer.Run(context.Background(), nil); !errors.Is(err, shared.ErrEngineUnavailable) {
			t.Errorf("Run() error = %v, want ErrEngineUnavailable", err)
		}
	})
}

func TestSyncerProgressUpdatesNeverBlock(t *testing.T) {
	svc := &mockPlaylistService{export: playlistExport("abc", "def", "ghi")}
	factory := &fakeFactory{plain: &fakeEngine{}}
	syncer := newTestSyncer(t, svc, factory, "")

	// Unbuffered channel with no reader: every send must fall through.
	updates := make(chan ProgressUpdate)

	if _, err := syncer.Run(context.Background(), updates); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
