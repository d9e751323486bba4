package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/kherzog/ytmsync/internal/engine"
	"github.com/kherzog/ytmsync/internal/services"
	"github.com/kherzog/ytmsync/internal/shared"
	"github.com/kherzog/ytmsync/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config    *shared.Config
	playlists services.PlaylistService
	newEngine func(useCookies bool) tasks.DownloadEngine
	logger    *log.Logger
	output    io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config
	Playlists services.PlaylistService
	NewEngine func(useCookies bool) tasks.DownloadEngine
	Logger    *log.Logger
	Output    io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.NewEngine == nil {
		opts.NewEngine = engineFactory(opts.Config, opts.Logger)
	}

	return &Runner{
		config:    opts.Config,
		playlists: opts.Playlists,
		newEngine: opts.NewEngine,
		logger:    opts.Logger,
		output:    opts.Output,
	}
}

// engineFactory builds download engines from configuration. The cookie flag
// selects whether the engine authenticates with the browser cookie export,
// which only the retry pass does.
func engineFactory(config *shared.Config, logger *log.Logger) func(bool) tasks.DownloadEngine {
	return func(useCookies bool) tasks.DownloadEngine {
		opts := engine.Options{
			BinPath:      config.Downloader.BinPath,
			AudioFormat:  config.Downloader.AudioFormat,
			AudioQuality: config.Downloader.AudioQuality,
			TargetDir:    config.Library.MusicDir,
			Concurrency:  config.Downloader.Concurrency,
			RateLimit:    config.Downloader.RateLimit,
			IgnoreErrors: true,
		}
		if useCookies {
			opts.CookieFile = config.Credentials.CookiesFile
		}
		return engine.New(opts, logger)
	}
}

// SetLogger swaps the runner's logger, and with it the logger of any engine
// built afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.newEngine = engineFactory(r.config, logger)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, queueCommand, playlistCommand, scanCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig replaces the runner's configuration from the file named by
// the command's --config flag, when that file exists.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); err != nil {
		return
	}
	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current settings", "path", configPath, "error", err)
		return
	}
	r.config = config
	r.newEngine = engineFactory(config, r.logger)
}

// authenticate validates credentials and signs the playlist service in.
func (r *Runner) authenticate(ctx context.Context) error {
	if r.playlists == nil {
		return fmt.Errorf("%w: playlist service not initialized", shared.ErrServiceUnavailable)
	}
	if err := r.config.Validate(); err != nil {
		return err
	}
	return r.playlists.Authenticate(ctx, map[string]string{
		"client_id":     r.config.Credentials.ClientID,
		"client_secret": r.config.Credentials.ClientSecret,
		"oauth_file":    r.config.Credentials.OAuthFile,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
