package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Lastfm    LastfmConfig    `toml:"lastfm"`
	Database  DatabaseConfig  `toml:"database"`
	Scrobbler ScrobblerConfig `toml:"scrobbler"`
}

// LastfmConfig contains the remote scrobble service credentials.
type LastfmConfig struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// DatabaseConfig contains local database settings.
type DatabaseConfig struct {
	Path    string `toml:"path"`
	Timeout int    `toml:"timeout"` // seconds, minimum 1
}

// ScrobblerConfig contains play-qualification and submission settings.
type ScrobblerConfig struct {
	// TimeThreshold is the minimum percentage (50-100) of a track's
	// duration that must elapse before a play qualifies as a scrobble.
	TimeThreshold float64 `toml:"time_threshold"`

	// IgnoredURISchemes lists track URI schemes excluded from all processing.
	IgnoredURISchemes []string `toml:"ignored_uri_schemes"`

	// NowPlayingDelay is the debounce window in seconds for now-playing
	// notifications.
	NowPlayingDelay int `toml:"now_playing_delay"`

	// RateLimit is the maximum number of remote API requests per second.
	RateLimit float64 `toml:"rate_limit"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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

// Validate checks option ranges and fills in defaults for unset values.
func (c *Config) Validate() error {
	if c.Database.Timeout == 0 {
		c.Database.Timeout = 10
	}
	if c.Database.Timeout < 1 {
		return fmt.Errorf("%w: database timeout must be at least 1 second", ErrInvalidConfig)
	}

	if c.Scrobbler.TimeThreshold == 0 {
		c.Scrobbler.TimeThreshold = 50
	}
	if c.Scrobbler.TimeThreshold < 50 || c.Scrobbler.TimeThreshold > 100 {
		return fmt.Errorf("%w: scrobble time threshold must be between 50 and 100", ErrInvalidConfig)
	}

	if c.Scrobbler.NowPlayingDelay == 0 {
		c.Scrobbler.NowPlayingDelay = 5
	}
	if c.Scrobbler.NowPlayingDelay < 1 {
		return fmt.Errorf("%w: now playing delay must be at least 1 second", ErrInvalidConfig)
	}
	if c.Scrobbler.RateLimit <= 0 {
		c.Scrobbler.RateLimit = 5.0
	}

	return nil
}

// HasCredentials reports whether all remote service credentials are present.
func (c *Config) HasCredentials() bool {
	lfm := c.Lastfm
	return lfm.APIKey != "" && lfm.APISecret != "" && lfm.Username != "" && lfm.Password != ""
}
