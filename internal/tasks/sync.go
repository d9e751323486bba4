// Package tasks implements the playlist sync pipeline: fetching the remote
// playlist, scanning the local library, building the download queue, driving
// the download engine and aggregating its events into progress, playlist
// appends and history records.
package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/kherzog/ytmsync/internal/engine"
	"github.com/kherzog/ytmsync/internal/services"
	"github.com/kherzog/ytmsync/internal/shared"
)

// DownloadEngine runs downloads for a batch of URLs, emitting events on
// the provided channel and closing it when the batch is drained.
type DownloadEngine interface {
	Run(ctx context.Context, urls []string, events chan<- engine.Event) error
}

// SyncConfig carries the per-run parameters of a sync.
type SyncConfig struct {
	PlaylistID string
	Limit      int
	MusicDir   string
	AudioExt   string
	CookieFile string
}

// SyncResult summarizes a completed sync run.
type SyncResult struct {
	Playlist          services.Playlist
	TotalTracks       int
	LocalFiles        int
	Queued            int
	Completed         int
	Recovered         int
	PermanentFailures []string
	Retried           bool
}

// NoNewTracks reports whether the run found nothing to download.
func (r *SyncResult) NoNewTracks() bool { return r.Queued == 0 }

// Syncer orchestrates one playlist sync. The engine is built per pass so a
// retry pass can be configured with browser cookies while the first pass
// runs without them.
type Syncer struct {
	playlists services.PlaylistService
	newEngine func(useCookies bool) DownloadEngine
	appender  Appender
	recorder  HistoryRecorder
	logger    *log.Logger
	cfg       SyncConfig
}

func NewSyncer(playlists services.PlaylistService, newEngine func(useCookies bool) DownloadEngine, appender Appender, recorder HistoryRecorder, logger *log.Logger, cfg SyncConfig) *Syncer {
	return &Syncer{
		playlists: playlists,
		newEngine: newEngine,
		appender:  appender,
		recorder:  recorder,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run executes the full pipeline. Updates are delivered on the given channel
// with non-blocking sends, so a slow or absent consumer never stalls the
// run; pass nil to discard them.
func (s *Syncer) Run(ctx context.Context, updates chan<- ProgressUpdate) (*SyncResult, error) {
	if s.playlists == nil {
		return nil, fmt.Errorf("%w: no playlist service configured", shared.ErrServiceUnavailable)
	}
	if s.newEngine == nil {
		return nil, fmt.Errorf("%w: no download engine configured", shared.ErrEngineUnavailable)
	}

	sendUpdate(updates, phaseUpdate(PhaseFetchPlaylist, "fetching playlist "+s.cfg.PlaylistID))
	export, err := s.playlists.GetPlaylist(ctx, s.cfg.PlaylistID, s.cfg.Limit)
	if err != nil {
		return nil, err
	}
	s.logger.Info("fetched playlist", "name", export.Playlist.Name, "tracks", len(export.Tracks))

	sendUpdate(updates, phaseUpdate(PhaseScanLibrary, "scanning "+s.cfg.MusicDir))
	localFiles, err := ScanLibrary(s.cfg.MusicDir, s.cfg.AudioExt)
	if err != nil {
		return nil, err
	}
	s.logger.Info("scanned library", "dir", s.cfg.MusicDir, "files", len(localFiles))

	sendUpdate(updates, phaseUpdate(PhaseBuildQueue, "comparing playlist against library"))
	queue := BuildQueue(s.logger, export.Tracks, localFiles)

	result := &SyncResult{
		Playlist:    export.Playlist,
		TotalTracks: len(export.Tracks),
		LocalFiles:  len(localFiles),
		Queued:      len(queue),
	}
	if len(queue) == 0 {
		s.logger.Info("library already up to date", "playlist", export.Playlist.Name)
		sendUpdate(updates, phaseUpdate(PhaseReport, "no new tracks"))
		return result, nil
	}

	agg := NewAggregator(s.logger, s.appender, s.recorder, s.cfg.AudioExt)

	s.logger.Info("starting downloads", "queued", len(queue))
	if err := s.runPass(ctx, agg, 1, queue, updates); err != nil {
		return nil, err
	}
	result.Completed = agg.Succeeded()

	failures := agg.Failures()
	if len(failures) > 0 && s.cfg.CookieFile != "" {
		retryQueue := selectItems(queue, failures)
		s.logger.Info("retrying failed downloads with cookies", "count", len(retryQueue))
		sendUpdate(updates, phaseUpdate(PhaseRetry, fmt.Sprintf("retrying %d failed downloads", len(retryQueue))))

		result.Retried = true
		if err := s.runPass(ctx, agg, 2, retryQueue, updates); err != nil {
			return nil, err
		}
		result.Completed += agg.Succeeded()
		result.Recovered = agg.Succeeded()
		failures = agg.Failures()
		if len(failures) == 0 {
			s.logger.Info("all failed downloads succeeded on retry")
		}
	}

	result.PermanentFailures = failures
	if len(failures) > 0 {
		s.logger.Error("downloads failed", "count", len(failures), "urls", failures)
	}
	sendUpdate(updates, phaseUpdate(PhaseReport, "sync complete"))
	return result, nil
}

// runPass submits one batch to a fresh engine and drains its events through
// the aggregator. The second pass is the cookie-backed retry.
func (s *Syncer) runPass(ctx context.Context, agg *Aggregator, pass int, items []WorkItem, updates chan<- ProgressUpdate) error {
	agg.BeginPass(pass, items)

	urls := make([]string, len(items))
	for i, item := range items {
		urls[i] = item.URL
	}

	eng := s.newEngine(pass > 1)
	events := make(chan engine.Event, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- eng.Run(ctx, urls, events)
	}()

	for ev := range events {
		sendUpdate(updates, agg.Handle(ev))
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("download pass %d: %w", pass, err)
	}
	return nil
}

// selectItems returns the queue entries whose URLs failed, preserving queue
// order.
func selectItems(queue []WorkItem, failed []string) []WorkItem {
	wanted := make(map[string]struct{}, len(failed))
	for _, url := range failed {
		wanted[url] = struct{}{}
	}
	var out []WorkItem
	for _, item := range queue {
		if _, ok := wanted[item.URL]; ok {
			out = append(out, item)
		}
	}
	return out
}

func sendUpdate(updates chan<- ProgressUpdate, update ProgressUpdate) {
	if updates == nil {
		return
	}
	select {
	case updates <- update:
	default:
	}
}
