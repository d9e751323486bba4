package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/kherzog/ytmsync/internal/repositories"
	"github.com/kherzog/ytmsync/internal/shared"
	"github.com/kherzog/ytmsync/internal/tasks"
	"github.com/kherzog/ytmsync/internal/ui"
)

// SyncRun mirrors the configured playlist into the local library: anything
// in the playlist that is missing locally is downloaded, appended to the
// playlist file and recorded in history.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)
	if id := cmd.String("playlist"); id != "" {
		r.config.Playlist.ID = id
	}

	if err := r.authenticate(ctx); err != nil {
		return err
	}

	plain := cmd.Bool("plain")
	if !plain {
		// The syncer and engine factory capture the logger at build time,
		// so the file redirect has to happen before buildSyncer.
		fileLogger, err := shared.NewFileLogger("./tmp/ytmsync.log")
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		r.SetLogger(fileLogger)
	}

	syncer, cleanup, err := r.buildSyncer()
	if err != nil {
		return err
	}
	defer cleanup()

	if plain {
		return r.syncPlain(ctx, syncer)
	}
	return r.syncTUI(ctx, syncer)
}

// buildSyncer wires the syncer from configuration: the playlist service,
// engine factory, playlist appender and the history database. The returned
// cleanup closes the database.
func (r *Runner) buildSyncer() (*tasks.Syncer, func(), error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cookieFile := r.config.Credentials.CookiesFile
	if cookieFile != "" {
		if err := shared.ValidateCookieFile(cookieFile); err != nil {
			r.logger.Warn("cookie file invalid, retry pass disabled", "path", cookieFile, "error", err)
			cookieFile = ""
		}
	}

	appender := tasks.NewPlaylistAppender(r.config.Library.PlaylistFile, r.config.Library.Root)
	recorder := repositories.NewHistoryRepository(db)

	syncer := tasks.NewSyncer(r.playlists, r.newEngine, appender, recorder, r.logger, tasks.SyncConfig{
		PlaylistID: r.config.Playlist.ID,
		Limit:      r.config.Playlist.Limit,
		MusicDir:   r.config.Library.MusicDir,
		AudioExt:   "." + r.config.Downloader.AudioFormat,
		CookieFile: cookieFile,
	})
	return syncer, func() { db.Close() }, nil
}

// syncPlain runs the sync while printing line-oriented progress, for logs
// and terminals that cannot host the TUI.
func (r *Runner) syncPlain(ctx context.Context, syncer *tasks.Syncer) error {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.PhaseFetchPlaylist, tasks.PhaseScanLibrary, tasks.PhaseBuildQueue:
				r.writePlain("• %s\n", update.Message)
			case tasks.PhaseDownload, tasks.PhaseRetry:
				if update.Data == nil {
					r.writePlain("  [%d/%d] %s\n", update.Step, update.Total, update.Message)
				}
			}
		}
	}()

	result, err := syncer.Run(ctx, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}
	return r.printResult(result)
}

// syncTUI runs the sync inside the bubbletea interface. The caller has
// already redirected logs to a file so they do not tear the display.
func (r *Runner) syncTUI(ctx context.Context, syncer *tasks.Syncer) error {
	model := ui.NewModel(ctx, syncer)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	_, runErr := model.Result()
	return runErr
}

// printResult writes the run summary in the plain output format.
func (r *Runner) printResult(result *tasks.SyncResult) error {
	r.writePlain("\n")
	if result.NoNewTracks() {
		r.writePlainHeader("Library Up To Date")
	} else {
		r.writePlainHeader("Sync Complete")
	}
	r.writePlain("Playlist: %s (%d tracks)\n", result.Playlist.Name, result.TotalTracks)
	r.writePlain("Local files: %d\n", result.LocalFiles)
	r.writePlain("Queued: %d\n", result.Queued)
	r.writePlain("Downloaded: %d\n", result.Completed)
	if result.Retried {
		r.writePlain("Recovered on retry: %d\n", result.Recovered)
	}

	if len(result.PermanentFailures) > 0 {
		r.writePlain("\nFailed to download %d tracks:\n", len(result.PermanentFailures))
		for _, url := range result.PermanentFailures {
			r.writePlain("  - %s\n", url)
		}
	}

	return nil
}

// QueuePlan fetches the playlist, scans the library and prints what a sync
// would download, without downloading anything.
func (r *Runner) QueuePlan(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)
	if id := cmd.String("playlist"); id != "" {
		r.config.Playlist.ID = id
	}

	if err := r.authenticate(ctx); err != nil {
		return err
	}

	export, err := r.playlists.GetPlaylist(ctx, r.config.Playlist.ID, r.config.Playlist.Limit)
	if err != nil {
		return err
	}

	audioExt := "." + r.config.Downloader.AudioFormat
	localFiles, err := tasks.ScanLibrary(r.config.Library.MusicDir, audioExt)
	if err != nil {
		return err
	}

	queue := tasks.BuildQueue(r.logger, export.Tracks, localFiles)

	if cmd.Bool("json") {
		return r.writeJSON(queue, true)
	}

	r.writePlainHeader(fmt.Sprintf("Queue for '%s'", export.Playlist.Name))
	r.writePlain("Playlist tracks: %d\n", len(export.Tracks))
	r.writePlain("Local files: %d\n", len(localFiles))
	r.writePlain("To download: %d\n", len(queue))
	for i, item := range queue {
		r.writePlain("  %d. %s (%s)\n", i+1, item.Title, item.VideoID)
	}
	return nil
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Download playlist tracks missing from the local library",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Playlist ID to sync (overrides configuration)",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print line-oriented progress instead of the TUI",
			},
		},
		Action: r.SyncRun,
	}
}

func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Show what a sync would download without downloading",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Playlist ID to inspect (overrides configuration)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit the queue as JSON",
			},
		},
		Action: r.QueuePlan,
	}
}
