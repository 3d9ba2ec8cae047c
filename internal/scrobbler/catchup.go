package scrobbler

import (
	"context"
	"time"

	"github.com/djmattyg007/advanced-scrobbler/internal/lastfm"
	"github.com/djmattyg007/advanced-scrobbler/internal/models"
	"github.com/djmattyg007/advanced-scrobbler/internal/shared"
	"github.com/djmattyg007/advanced-scrobbler/internal/store"
)

// maxCatchupRounds bounds how many backlog batches one catch-up run
// processes before yielding.
const maxCatchupRounds = 5

// CatchupResult reports per-round outcomes of a catch-up run. The ID lists
// make partial success visible: a failed round leaves its IDs out of the
// later lists, and Error carries the first failure, so a caller can resume
// from the last marked ID instead of treating the run as all-or-nothing.
type CatchupResult struct {
	JobID     string  `json:"jobId"`
	Found     []int64 `json:"found"`
	Scrobbled []int64 `json:"scrobbled"`
	Marked    []int64 `json:"marked"`
	Error     string  `json:"error,omitempty"`
}

// CatchUp pages through the unsubmitted backlog in ascending play ID order,
// submitting each batch and marking it submitted, with a courtesy pause
// between rounds. A non-nil checkpoint fixes the working set to plays with
// IDs at or below it, so plays recorded mid-run never extend the run. The
// run stops after maxCatchupRounds, on an empty batch, or on the first
// failed step.
func (f *Frontend) CatchUp(ctx context.Context, checkpoint *int64) *CatchupResult {
	result := &CatchupResult{JobID: shared.GenerateID()}
	logger := shared.WithLogger(f.logger, "catchup_job", result.JobID)

	logger.Info("starting catch-up submission run")

	for round := 0; round < maxCatchupRounds; round++ {
		var batch []models.RecordedPlay
		err := f.stores.Do(ctx, func(s *store.Store) error {
			var err error
			batch, err = s.LoadUnsubmittedPlaysBatch(checkpoint)
			return err
		})
		if err != nil {
			logger.Error("failed to load unsubmitted plays", "round", round, "err", err)
			result.Error = err.Error()
			break
		}

		if len(batch) == 0 {
			break
		}

		ids := playIDs(batch)
		result.Found = append(result.Found, ids...)
		logger.Info("loaded unsubmitted batch", "round", round, "count", len(batch))

		err = f.network.Do(ctx, func(client *lastfm.Client) error {
			return client.SubmitScrobbles(ctx, batch)
		})
		if err != nil {
			logger.Error("failed to submit batch", "round", round, "err", err)
			result.Error = err.Error()
			break
		}
		result.Scrobbled = append(result.Scrobbled, ids...)

		var marked int
		err = f.stores.Do(ctx, func(s *store.Store) error {
			var err error
			marked, err = s.MarkPlaysSubmitted(ids)
			return err
		})
		if err != nil {
			logger.Error("failed to mark batch submitted", "round", round, "err", err)
			result.Error = err.Error()
			break
		}
		if marked != len(ids) {
			logger.Warn("some plays were already marked submitted", "round", round, "marked", marked, "batch", len(ids))
		}
		result.Marked = append(result.Marked, ids...)

		// Deliberate scheduling yield between rounds as rate-limit courtesy.
		select {
		case <-ctx.Done():
			result.Error = ctx.Err().Error()
			logger.Info("catch-up run cancelled", "found", len(result.Found), "marked", len(result.Marked))
			return result
		case <-time.After(f.catchupPause):
		}
	}

	logger.Info("finished catch-up submission run",
		"found", len(result.Found), "scrobbled", len(result.Scrobbled), "marked", len(result.Marked))

	return result
}

func playIDs(plays []models.RecordedPlay) []int64 {
	ids := make([]int64, len(plays))
	for i, play := range plays {
		ids[i] = play.PlayID
	}
	return ids
}
