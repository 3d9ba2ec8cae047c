package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("Parses A Full Config", func(t *testing.T) {
		path := writeConfigFile(t, `
[lastfm]
api_key = "key"
api_secret = "secret"
username = "listener"
password = "hunter2"

[database]
path = "/var/lib/scrobbler/plays.db"
timeout = 30

[scrobbler]
time_threshold = 75.0
ignored_uri_schemes = ["http"]
now_playing_delay = 10
rate_limit = 2.5
`)

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Lastfm.APIKey != "key" || config.Lastfm.Username != "listener" {
			t.Errorf("unexpected lastfm config: %+v", config.Lastfm)
		}
		if config.Database.Path != "/var/lib/scrobbler/plays.db" || config.Database.Timeout != 30 {
			t.Errorf("unexpected database config: %+v", config.Database)
		}
		if config.Scrobbler.TimeThreshold != 75.0 || config.Scrobbler.RateLimit != 2.5 {
			t.Errorf("unexpected scrobbler config: %+v", config.Scrobbler)
		}
		if !config.HasCredentials() {
			t.Error("expected credentials to be reported present")
		}
	})

	t.Run("Fills Defaults For Unset Values", func(t *testing.T) {
		path := writeConfigFile(t, `
[database]
path = "plays.db"
`)

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Timeout != 10 {
			t.Errorf("expected default timeout 10, got %d", config.Database.Timeout)
		}
		if config.Scrobbler.TimeThreshold != 50 {
			t.Errorf("expected default threshold 50, got %v", config.Scrobbler.TimeThreshold)
		}
		if config.Scrobbler.NowPlayingDelay != 5 {
			t.Errorf("expected default delay 5, got %d", config.Scrobbler.NowPlayingDelay)
		}
		if config.Scrobbler.RateLimit != 5.0 {
			t.Errorf("expected default rate limit 5.0, got %v", config.Scrobbler.RateLimit)
		}
		if config.HasCredentials() {
			t.Error("expected missing credentials to be reported")
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Malformed TOML", func(t *testing.T) {
		path := writeConfigFile(t, "not [valid toml")

		_, err := LoadConfig(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Out Of Range Threshold", func(t *testing.T) {
		for _, threshold := range []string{"30.0", "120.0"} {
			path := writeConfigFile(t, "[scrobbler]\ntime_threshold = "+threshold+"\n")

			_, err := LoadConfig(path)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("threshold %s: expected ErrInvalidConfig, got %v", threshold, err)
			}
		}
	})

	t.Run("Negative Now Playing Delay", func(t *testing.T) {
		path := writeConfigFile(t, "[scrobbler]\nnow_playing_delay = -3\n")

		_, err := LoadConfig(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Negative Database Timeout", func(t *testing.T) {
		path := writeConfigFile(t, "[database]\ntimeout = -1\n")

		_, err := LoadConfig(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Database.Path != "advanced_scrobbler.db" {
		t.Errorf("unexpected default database path %q", config.Database.Path)
	}
	if config.Scrobbler.TimeThreshold != 50.0 {
		t.Errorf("unexpected default threshold %v", config.Scrobbler.TimeThreshold)
	}

	// Streaming schemes are ignored out of the box.
	found := false
	for _, scheme := range config.Scrobbler.IgnoredURISchemes {
		if scheme == "http" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected http in default ignored schemes, got %v", config.Scrobbler.IgnoredURISchemes)
	}
}

func TestCreateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	if _, err := LoadConfig(path); err != nil {
		t.Errorf("created config must load cleanly: %v", err)
	}

	if err := CreateConfigFile(path); err == nil {
		t.Error("expected error when the config file already exists")
	}
}
