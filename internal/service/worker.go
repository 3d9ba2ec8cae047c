// package service provides the single-writer worker and supervision
// machinery shared by the store and the submission client.
//
// Each supervised resource is owned by exactly one sequential worker:
// callers submit requests to the worker's inbox and block for the reply, so
// no two requests against the same resource ever execute concurrently,
// while different workers run independently of each other and of callers.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/djmattyg007/advanced-scrobbler/internal/shared"
)

type request struct {
	fn   func()
	done chan struct{}
}

// Worker processes submitted functions one at a time in arrival order on a
// dedicated goroutine.
type Worker struct {
	name  string
	inbox chan request
	quit  chan struct{}
	once  sync.Once
}

// NewWorker starts a worker. depth bounds how many requests may queue
// before submitters block.
func NewWorker(name string, depth int) *Worker {
	if depth < 1 {
		depth = 16
	}

	w := &Worker{
		name:  name,
		inbox: make(chan request, depth),
		quit:  make(chan struct{}),
	}
	go w.run()

	return w
}

func (w *Worker) run() {
	for {
		select {
		case <-w.quit:
			return
		case req := <-w.inbox:
			req.fn()
			close(req.done)
		}
	}
}

// Do submits fn and blocks until it has run, the context expires, or the
// worker stops. Expiry surfaces as shared.ErrTimeout and a stopped worker
// as shared.ErrUnavailable. A submitted fn may still run after the caller
// has timed out; callers must tolerate that as a benign race.
func (w *Worker) Do(ctx context.Context, fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}

	select {
	case w.inbox <- req:
	case <-w.quit:
		return fmt.Errorf("%w: worker %s was stopped", shared.ErrUnavailable, w.name)
	case <-ctx.Done():
		return fmt.Errorf("%w: worker %s: %v", shared.ErrTimeout, w.name, ctx.Err())
	}

	select {
	case <-req.done:
		return nil
	case <-w.quit:
		return fmt.Errorf("%w: worker %s was stopped", shared.ErrUnavailable, w.name)
	case <-ctx.Done():
		return fmt.Errorf("%w: worker %s: %v", shared.ErrTimeout, w.name, ctx.Err())
	}
}

// Stop shuts the worker down. Queued requests that have not started are
// abandoned; their submitters receive shared.ErrUnavailable.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.quit) })
}
