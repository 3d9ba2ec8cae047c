// package scrobbler implements the orchestration frontend: play
// qualification, the debounced now-playing notifier, and the catch-up
// submission job.
package scrobbler

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/djmattyg007/advanced-scrobbler/internal/shared"
)

// Debouncer delays an action until playback has been stable for a fixed
// window. Restarting the window cancels the pending action without
// blocking, so rapid track skips produce no action for the intermediate
// tracks; each window fires at most once.
type Debouncer struct {
	delay  time.Duration
	logger *log.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given stability window.
func NewDebouncer(delay time.Duration, logger *log.Logger) *Debouncer {
	return &Debouncer{delay: delay, logger: logger}
}

// Restart cancels any pending action and schedules fire to run once the
// window elapses undisturbed. Cancellation is advisory: a timer that has
// already started firing may still complete concurrently, which consumers
// treat as a superseded-but-benign extra firing.
func (d *Debouncer) Restart(fire func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	debounceID := shared.GenerateID()
	d.logger.Debug("started debounce", "debounce_id", debounceID)

	d.timer = time.AfterFunc(d.delay, func() {
		d.logger.Debug("finished debounce", "debounce_id", debounceID)
		fire()
	})
}

// Cancel drops any pending action without scheduling a new one.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
