// package shared holds the cross-cutting pieces of the scrobbler: logger
// construction, sentinel errors, configuration, and the database opener.
package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger builds the application [log.Logger] writing to w, with
// timestamps and caller reporting enabled. A nil writer selects
// [os.Stderr]; tests pass [io.Discard].
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger derives a child [log.Logger] carrying the given key-value
// pairs on every entry, used to tag a component or a job run.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel adjusts the minimum [log.Level] emitted by the logger.
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID returns a fresh v4 UUID string, used to correlate log entries
// belonging to one catch-up run or debounce window.
func GenerateID() string {
	return uuid.New().String()
}
