package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/djmattyg007/advanced-scrobbler/internal/lastfm"
	"github.com/djmattyg007/advanced-scrobbler/internal/models"
	"github.com/djmattyg007/advanced-scrobbler/internal/scrobbler"
	"github.com/djmattyg007/advanced-scrobbler/internal/service"
	"github.com/djmattyg007/advanced-scrobbler/internal/shared"
	"github.com/djmattyg007/advanced-scrobbler/internal/store"
)

// RunnerConfig contains the dependencies the CLI actions operate on.
type RunnerConfig struct {
	Config   *shared.Config
	Stores   *service.Supervisor[*store.Store]
	Network  *service.Supervisor[*lastfm.Client]
	Frontend *scrobbler.Frontend
	Logger   *log.Logger
}

// Runner implements all CLI actions as thin wrappers over the store and
// submission client contracts.
type Runner struct {
	config   *shared.Config
	stores   *service.Supervisor[*store.Store]
	network  *service.Supervisor[*lastfm.Client]
	frontend *scrobbler.Frontend
	logger   *log.Logger
}

// NewRunner creates a Runner with the given dependencies.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		config:   cfg.Config,
		stores:   cfg.Stores,
		network:  cfg.Network,
		frontend: cfg.Frontend,
		logger:   cfg.Logger,
	}
}

// Shutdown stops the supervised services.
func (r *Runner) Shutdown() {
	r.frontend.Stop()
	r.stores.Stop()
	r.network.Stop()
}

// InitConfig writes the example configuration to config.toml.
func (r *Runner) InitConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("wrote configuration file", "path", path)
	return nil
}

// PlaysList prints one page of recorded plays.
func (r *Runner) PlaysList(ctx context.Context, cmd *cli.Command) error {
	sort := store.SortDesc
	if cmd.String("sort") == "asc" {
		sort = store.SortAsc
	}

	var plays []models.RecordedPlay
	var total int
	err := r.stores.Do(ctx, func(s *store.Store) error {
		var err error
		if plays, err = s.LoadPlays(sort, int(cmd.Int("page")), int(cmd.Int("page-size"))); err != nil {
			return err
		}
		total, err = s.GetPlaysCount(cmd.Bool("unsubmitted"))
		return err
	})
	if err != nil {
		return err
	}

	for _, play := range plays {
		submitted := "unsubmitted"
		if play.IsSubmitted() {
			submitted = fmt.Sprintf("submitted at %d", *play.SubmittedAt)
		}
		fmt.Printf("%d\t%s - %s (%s)\t%s\t%s\n",
			play.PlayID, play.Artist, play.Title, play.Corrected, play.TrackURI, submitted)
	}
	fmt.Printf("%d plays total\n", total)

	return nil
}

// PlaysDelete removes unsubmitted plays by ID.
func (r *Runner) PlaysDelete(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Int64Slice("id")
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one play ID is required", shared.ErrMissingArgument)
	}

	var deleted int
	err := r.stores.Do(ctx, func(s *store.Store) error {
		var err error
		deleted, err = s.DeletePlays(ids)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("deleted %d of %d plays\n", deleted, len(ids))
	return nil
}

// PlaysEdit applies a manual metadata edit to a play.
func (r *Runner) PlaysEdit(ctx context.Context, cmd *cli.Command) error {
	edit := models.PlayEdit{
		PlayID:               cmd.Int64("id"),
		TrackURI:             cmd.String("uri"),
		Artist:               cmd.String("artist"),
		Title:                cmd.String("title"),
		Album:                cmd.String("album"),
		SaveCorrection:       cmd.Bool("save-correction"),
		UpdateAllUnsubmitted: cmd.Bool("all-unsubmitted"),
	}

	return r.stores.Do(ctx, func(s *store.Store) error {
		return s.EditPlay(edit)
	})
}

// PlaysSubmit scrobbles a single play immediately and marks it submitted.
func (r *Runner) PlaysSubmit(ctx context.Context, cmd *cli.Command) error {
	playID := cmd.Int64("id")

	var play *models.RecordedPlay
	err := r.stores.Do(ctx, func(s *store.Store) error {
		var err error
		play, err = s.FindPlay(playID)
		return err
	})
	if err != nil {
		return err
	}

	if play == nil {
		return fmt.Errorf("%w: no play found with ID %d", shared.ErrClient, playID)
	}
	if play.IsSubmitted() {
		return fmt.Errorf("%w: play %d was already submitted", shared.ErrClient, playID)
	}

	err = r.network.Do(ctx, func(client *lastfm.Client) error {
		return client.SubmitScrobble(ctx, *play)
	})
	if err != nil {
		return err
	}

	var marked bool
	err = r.stores.Do(ctx, func(s *store.Store) error {
		var err error
		marked, err = s.MarkPlaySubmitted(playID)
		return err
	})
	if err != nil {
		return fmt.Errorf("scrobble succeeded but marking failed: %w", err)
	}

	fmt.Printf("submitted play %d (marked: %t)\n", playID, marked)
	return nil
}

// PlaysApprove promotes an auto-corrected play's values into a correction.
func (r *Runner) PlaysApprove(ctx context.Context, cmd *cli.Command) error {
	return r.stores.Do(ctx, func(s *store.Store) error {
		return s.ApproveAutoCorrection(cmd.Int64("id"))
	})
}

// CorrectionsList prints one page of corrections.
func (r *Runner) CorrectionsList(ctx context.Context, cmd *cli.Command) error {
	var corrections []models.Correction
	var total int
	err := r.stores.Do(ctx, func(s *store.Store) error {
		var err error
		if corrections, err = s.LoadCorrections(int(cmd.Int("page")), int(cmd.Int("page-size"))); err != nil {
			return err
		}
		total, err = s.GetCorrectionsCount()
		return err
	})
	if err != nil {
		return err
	}

	for _, correction := range corrections {
		fmt.Printf("%s\t%s - %s (%s)\n",
			correction.TrackURI, correction.Artist, correction.Title, correction.Album)
	}
	fmt.Printf("%d corrections total\n", total)

	return nil
}

// CorrectionsSet inserts or replaces a correction.
func (r *Runner) CorrectionsSet(ctx context.Context, cmd *cli.Command) error {
	correction := models.Correction{
		TrackURI: cmd.String("uri"),
		Artist:   cmd.String("artist"),
		Title:    cmd.String("title"),
		Album:    cmd.String("album"),
	}

	return r.stores.Do(ctx, func(s *store.Store) error {
		return s.RecordCorrection(correction)
	})
}

// CorrectionsDelete removes the correction for a track URI.
func (r *Runner) CorrectionsDelete(ctx context.Context, cmd *cli.Command) error {
	var deleted bool
	err := r.stores.Do(ctx, func(s *store.Store) error {
		var err error
		deleted, err = s.DeleteCorrection(cmd.String("uri"))
		return err
	})
	if err != nil {
		return err
	}

	if !deleted {
		return fmt.Errorf("%w: no correction found for track URI %q", shared.ErrClient, cmd.String("uri"))
	}

	return nil
}

// Catchup submits the unsubmitted backlog in batches.
func (r *Runner) Catchup(ctx context.Context, cmd *cli.Command) error {
	var checkpoint *int64
	if cmd.IsSet("checkpoint") {
		value := cmd.Int64("checkpoint")
		checkpoint = &value
	}

	result := r.frontend.CatchUp(ctx, checkpoint)

	fmt.Printf("catch-up %s: found %d, scrobbled %d, marked %d\n",
		result.JobID, len(result.Found), len(result.Scrobbled), len(result.Marked))
	if result.Error != "" {
		return fmt.Errorf("catch-up stopped early: %s", result.Error)
	}

	return nil
}

// DbRollback rolls back the most recent schema migration.
func (r *Runner) DbRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path, r.config.Database.Timeout)
	if err != nil {
		return err
	}
	defer db.Close()

	return store.RollbackMigration(db)
}
