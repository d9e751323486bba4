package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kherzog/ytmsync/internal/repositories"
	"github.com/kherzog/ytmsync/internal/shared"
	"github.com/kherzog/ytmsync/internal/tasks"
)

// ScanLocal lists the audio files in the configured music directory.
func (r *Runner) ScanLocal(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	audioExt := "." + r.config.Downloader.AudioFormat
	files, err := tasks.ScanLibrary(r.config.Library.MusicDir, audioExt)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(files, true)
	}

	r.writePlain("Found %d %s files in %s\n", len(files), audioExt, r.config.Library.MusicDir)
	if cmd.Bool("list") {
		for _, f := range files {
			r.writePlain("  %s\n", f)
		}
	}
	return nil
}

// PlaylistShow fetches the configured playlist and prints its tracks.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
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

	if cmd.Bool("json") {
		return r.writeJSON(export, true)
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d tracks)", export.Playlist.Name, export.Playlist.TrackCount))
	for i, track := range export.Tracks {
		marker := " "
		if track.VideoID == "" {
			marker = "!"
		}
		r.writePlain("%s %3d. %s - %s\n", marker, i+1, track.Artist, track.Title)
	}
	return nil
}

// HistoryList prints recent download history entries, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	repo := repositories.NewHistoryRepository(db)
	entries, err := repo.List(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	if len(entries) == 0 {
		r.writePlain("No download history\n")
		return nil
	}

	r.writePlainHeader("Download History")
	for _, entry := range entries {
		marker := "✓"
		if entry.Status == "failed" {
			marker = "✗"
		}
		r.writePlain("%s %s  pass %d  %s\n", marker, entry.CreatedAt.Format("2006-01-02 15:04"), entry.Pass, entry.Title)
	}
	return nil
}

// HistoryClear deletes all download history entries.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	repo := repositories.NewHistoryRepository(db)
	if err := repo.Clear(); err != nil {
		return err
	}

	r.logger.Info("download history cleared")
	r.writePlain("✓ Download history cleared\n")
	return nil
}

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Show the remote playlist's tracks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Playlist ID to show (overrides configuration)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit the playlist as JSON",
			},
		},
		Action: r.PlaylistShow,
	}
}

func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "List audio files in the local library",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "Print every file, not just the count",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit the file list as JSON",
			},
		},
		Action: r.ScanLocal,
	}
}

func historyCommand(r *Runner) *cli.Command {
	configFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		}
	}

	return &cli.Command{
		Name:  "history",
		Usage: "Inspect download history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show recent downloads",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum entries to show",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Emit history as JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:   "clear",
				Usage:  "Delete all download history",
				Flags:  []cli.Flag{configFlag()},
				Action: r.HistoryClear,
			},
		},
	}
}
