package shared

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Playlist    PlaylistConfig    `toml:"playlist"`
	Library     LibraryConfig     `toml:"library"`
	Downloader  DownloaderConfig  `toml:"downloader"`
	API         APIConfig         `toml:"api"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains YouTube Music OAuth credentials and the optional
// browser cookie export that unlocks the retry pass.
type CredentialsConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	OAuthFile    string `toml:"oauth_file"`
	CookiesFile  string `toml:"cookies_file"`
}

// PlaylistConfig identifies the remote playlist to mirror.
type PlaylistConfig struct {
	ID    string `toml:"id"`
	Limit int    `toml:"limit"`
}

// LibraryConfig contains local library paths.
//
// Root is the prefix written into the playlist file for each entry, i.e. the
// path the music directory is served under (not necessarily MusicDir itself).
type LibraryConfig struct {
	MusicDir     string `toml:"music_dir"`
	PlaylistFile string `toml:"playlist_file"`
	Root         string `toml:"root"`
}

// DownloaderConfig contains yt-dlp invocation settings.
type DownloaderConfig struct {
	BinPath      string  `toml:"bin_path"`
	AudioFormat  string  `toml:"audio_format"`
	AudioQuality string  `toml:"audio_quality"`
	Concurrency  int     `toml:"concurrency"`
	RateLimit    float64 `toml:"rate_limit"`
}

// APIConfig contains YouTube Music API proxy settings.
type APIConfig struct {
	BaseURL string `toml:"base_url"`
}

// DatabaseConfig contains download history database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that every setting the pipeline cannot run without is set.
//
// The cookies file is deliberately not required; its absence only disables
// the retry pass.
func (c *Config) Validate() error {
	var missing []string

	required := map[string]string{
		"credentials.client_id":     c.Credentials.ClientID,
		"credentials.client_secret": c.Credentials.ClientSecret,
		"credentials.oauth_file":    c.Credentials.OAuthFile,
		"library.music_dir":         c.Library.MusicDir,
		"library.playlist_file":     c.Library.PlaylistFile,
		"playlist.id":               c.Playlist.ID,
	}

	for key, value := range required {
		if value == "" {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing settings: %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	return nil
}
