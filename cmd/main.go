package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kherzog/ytmsync/internal/services"
	"github.com/kherzog/ytmsync/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	playlists := services.NewYTMusicService(config.API.BaseURL)

	runner := NewRunner(RunnerOpts{
		Config:    config,
		Playlists: playlists,
		Logger:    logger,
	})

	app := &cli.Command{
		Name:     "ytmsync",
		Usage:    "Mirror a YouTube Music playlist into a local audio library",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
