package scrobbler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/djmattyg007/advanced-scrobbler/internal/lastfm"
	"github.com/djmattyg007/advanced-scrobbler/internal/models"
	"github.com/djmattyg007/advanced-scrobbler/internal/service"
	"github.com/djmattyg007/advanced-scrobbler/internal/shared"
	"github.com/djmattyg007/advanced-scrobbler/internal/store"
)

const (
	// Tracks shorter than this many seconds never qualify as scrobbles.
	minScrobbleDuration = 30

	// Once this many seconds have elapsed a play qualifies regardless of
	// the percentage threshold, so long tracks qualify early.
	elapsedFloorSeconds = 240
)

// Frontend drives the scrobble pipeline from playback events. It holds
// supervised handles to the store and the submission client; all persisted
// state stays behind the store.
type Frontend struct {
	stores  *service.Supervisor[*store.Store]
	network *service.Supervisor[*lastfm.Client]
	logger  *log.Logger

	// threshold is the qualifying fraction of track duration, in [0.5, 1.0].
	threshold      float64
	ignoredSchemes map[string]struct{}
	debouncer      *Debouncer
	catchupPause   time.Duration

	now func() time.Time
}

// NewFrontend wires the orchestrator to its supervised collaborators.
func NewFrontend(
	cfg *shared.Config,
	stores *service.Supervisor[*store.Store],
	network *service.Supervisor[*lastfm.Client],
	logger *log.Logger,
) *Frontend {
	ignored := make(map[string]struct{}, len(cfg.Scrobbler.IgnoredURISchemes))
	for _, scheme := range cfg.Scrobbler.IgnoredURISchemes {
		ignored[scheme] = struct{}{}
	}

	return &Frontend{
		stores:         stores,
		network:        network,
		logger:         logger,
		threshold:      cfg.Scrobbler.TimeThreshold / 100,
		ignoredSchemes: ignored,
		debouncer:      NewDebouncer(time.Duration(cfg.Scrobbler.NowPlayingDelay)*time.Second, logger),
		catchupPause:   time.Second,
		now:            time.Now,
	}
}

// isURIAllowed reports whether a track URI participates in processing at
// all. Tracks without a scheme or with an ignored scheme are dropped.
func (f *Frontend) isURIAllowed(track models.Track) bool {
	scheme := track.Scheme()
	if scheme == "" {
		return false
	}

	_, ignored := f.ignoredSchemes[scheme]
	return !ignored
}

// TrackPlaybackStarted restarts the now-playing debounce window for the
// track. The notification only goes out once playback has been stable for
// the full window.
func (f *Frontend) TrackPlaybackStarted(track models.Track) {
	if !f.isURIAllowed(track) {
		return
	}

	f.logger.Debug("track playback started", "track_uri", track.URI)

	f.debouncer.Restart(func() {
		f.notifyNowPlaying(track)
	})
}

// notifyNowPlaying sends the best-effort now-playing notification. Network
// failures are logged and discarded: a fresher playback event supersedes
// this one, so there is nothing worth retrying.
func (f *Frontend) notifyNowPlaying(track models.Track) {
	ctx := context.Background()

	correction := f.lookupCorrection(ctx, track.URI)
	play := models.PreparePlay(track, correction, f.now().Unix())

	err := f.network.Do(ctx, func(client *lastfm.Client) error {
		return client.SendNowPlayingNotification(ctx, play)
	})
	if err != nil {
		f.logger.Error("error while sending now playing notification", "track_uri", track.URI, "err", err)
	}
}

// TrackPlaybackEnded decides whether the finished play qualifies as a
// scrobble and persists it. Persistence failures are re-raised, not
// swallowed: losing a qualifying play is a correctness violation, a
// duplicate log entry is not.
func (f *Frontend) TrackPlaybackEnded(ctx context.Context, track models.Track, timePositionMs int) error {
	if !f.isURIAllowed(track) {
		return nil
	}

	elapsed := float64(timePositionMs) / 1000
	f.logger.Debug("track playback ended", "track_uri", track.URI, "elapsed_secs", int(elapsed))

	correction := f.lookupCorrection(ctx, track.URI)

	playedAt := f.now().Unix() - int64(elapsed)
	play := models.PreparePlay(track, correction, playedAt)

	if play.Duration < minScrobbleDuration {
		f.logger.Debug("track too short to scrobble",
			"track_uri", track.URI, "duration_secs", play.Duration)
		return nil
	}

	thresholdDuration := float64(play.Duration) * f.threshold
	if elapsed < thresholdDuration && elapsed < elapsedFloorSeconds {
		f.logger.Debug("track not played long enough to scrobble",
			"track_uri", track.URI, "elapsed_secs", int(elapsed), "duration_secs", play.Duration)
		return nil
	}

	err := f.stores.Do(ctx, func(s *store.Store) error {
		_, err := s.RecordPlay(play)
		return err
	})
	if err != nil {
		f.logger.Error("error while recording play", "track_uri", track.URI, "err", err)
		return fmt.Errorf("failed to record play for track %q: %w", track.URI, err)
	}

	return nil
}

// lookupCorrection fetches the stored correction for a track URI. A lookup
// failure degrades to "no correction found" rather than blocking the
// pipeline.
func (f *Frontend) lookupCorrection(ctx context.Context, trackURI string) *models.Correction {
	var correction *models.Correction

	err := f.stores.Do(ctx, func(s *store.Store) error {
		var err error
		correction, err = s.FindCorrection(trackURI)
		return err
	})
	if err != nil {
		f.logger.Error("error while finding correction", "track_uri", trackURI, "err", err)
		return nil
	}

	return correction
}

// Stop cancels any pending now-playing notification.
func (f *Frontend) Stop() {
	f.debouncer.Cancel()
}
