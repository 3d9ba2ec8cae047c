package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/djmattyg007/advanced-scrobbler/internal/lastfm"
	"github.com/djmattyg007/advanced-scrobbler/internal/scrobbler"
	"github.com/djmattyg007/advanced-scrobbler/internal/service"
	"github.com/djmattyg007/advanced-scrobbler/internal/shared"
	"github.com/djmattyg007/advanced-scrobbler/internal/store"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		loadedConfig, err := shared.LoadConfig("config.toml")
		if err != nil {
			logger.Fatal("failed to load configuration", "err", err)
		}
		config = loadedConfig
	}

	stores := service.NewSupervisor("store", service.Config[*store.Store]{
		Factory: func() (*store.Store, error) {
			return store.Open(config.Database.Path, config.Database.Timeout, logger)
		},
		Closer: func(s *store.Store) { s.Close() },
		Ping:   func(s *store.Store) error { return s.Ping() },
	}, logger)

	network := service.NewSupervisor("network", service.Config[*lastfm.Client]{
		Factory: func() (*lastfm.Client, error) {
			client := lastfm.NewClient(lastfm.Credentials{
				APIKey:    config.Lastfm.APIKey,
				APISecret: config.Lastfm.APISecret,
				Username:  config.Lastfm.Username,
				Password:  config.Lastfm.Password,
			}, "", nil, config.Scrobbler.RateLimit, logger)
			return client, nil
		},
	}, logger)

	runner := NewRunner(RunnerConfig{
		Config:   config,
		Stores:   stores,
		Network:  network,
		Frontend: scrobbler.NewFrontend(config, stores, network, logger),
		Logger:   logger,
	})
	defer runner.Shutdown()

	app := &cli.Command{
		Name:     "advanced-scrobbler",
		Usage:    "Record qualifying plays and deliver them to Last.fm",
		Version:  "1.0.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatal("application error", "err", err)
	}
}
