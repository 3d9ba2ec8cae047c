package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/djmattyg007/advanced-scrobbler/internal/shared"
)

// State tracks a supervised resource's lifecycle.
type State int

const (
	NotStarted State = iota
	Running
	Dead
)

// String returns a human-readable label for the state.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Dead:
		return "dead"
	default:
		return "not started"
	}
}

// DefaultRequestTimeout bounds how long a caller blocks on a worker reply.
const DefaultRequestTimeout = 10 * time.Second

// Config tunes a supervisor. Only Factory is required.
type Config[T any] struct {
	// Factory builds a fresh resource instance on (re)start.
	Factory func() (T, error)

	// Closer releases a resource instance when it is retired.
	Closer func(T)

	// Ping health-checks the current instance before each request. A ping
	// failure marks the instance dead and triggers a restart.
	Ping func(T) error

	// Timeout bounds each request; defaults to DefaultRequestTimeout.
	Timeout time.Duration
}

// Supervisor provides lazy start, health checking, and restart-on-death for
// a single-owner resource, serializing all access through the resource's
// worker. While the resource is dead, requests fail fast with
// shared.ErrUnavailable until a restart completes.
type Supervisor[T any] struct {
	name   string
	config Config[T]
	logger *log.Logger

	mu         sync.Mutex
	state      State
	inst       T
	worker     *Worker
	restarting bool
}

// NewSupervisor creates a supervisor for the named resource. The resource
// is not built until the first request arrives.
func NewSupervisor[T any](name string, config Config[T], logger *log.Logger) *Supervisor[T] {
	if config.Timeout <= 0 {
		config.Timeout = DefaultRequestTimeout
	}

	return &Supervisor[T]{
		name:   name,
		config: config,
		logger: shared.WithLogger(logger, "service", name),
	}
}

// State reports the current lifecycle state.
func (s *Supervisor[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Do runs fn against the supervised resource on its worker, starting the
// resource first if necessary. Worker-unavailable and timeout errors are
// distinguishable from fn's own application errors via errors.Is against
// shared.ErrUnavailable and shared.ErrTimeout; either kind triggers a
// restart on a separate goroutine so it cannot deadlock against the caller.
func (s *Supervisor[T]) Do(ctx context.Context, fn func(T) error) error {
	inst, worker, err := s.acquire()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var appErr error
	if err := worker.Do(ctx, func() { appErr = fn(inst) }); err != nil {
		s.logger.Warn("request against service failed", "state", s.State(), "err", err)
		s.RequestRestart()
		return err
	}

	return appErr
}

// acquire returns the live instance and its worker, lazily starting the
// resource on first use. Dead resources fail fast.
func (s *Supervisor[T]) acquire() (T, *Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T

	switch s.state {
	case Dead:
		return zero, nil, fmt.Errorf("%w: service %s is dead", shared.ErrUnavailable, s.name)
	case NotStarted:
		if err := s.startLocked(); err != nil {
			return zero, nil, err
		}
	}

	if s.config.Ping != nil {
		if err := s.config.Ping(s.inst); err != nil {
			s.logger.Warn("health check failed", "err", err)
			s.markDeadLocked()
			go s.restart()
			return zero, nil, fmt.Errorf("%w: service %s failed its health check", shared.ErrUnavailable, s.name)
		}
	}

	return s.inst, s.worker, nil
}

// startLocked builds a fresh instance and worker. Caller holds the mutex.
func (s *Supervisor[T]) startLocked() error {
	s.logger.Info("starting service")

	inst, err := s.config.Factory()
	if err != nil {
		s.logger.Error("service failed to start", "err", err)
		return fmt.Errorf("%w: service %s failed to start: %v", shared.ErrUnavailable, s.name, err)
	}

	s.inst = inst
	s.worker = NewWorker(s.name, 0)
	s.state = Running
	return nil
}

// MarkDead retires the current instance. Subsequent requests fail fast
// until a restart completes.
func (s *Supervisor[T]) MarkDead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markDeadLocked()
}

func (s *Supervisor[T]) markDeadLocked() {
	if s.state != Running {
		s.state = Dead
		return
	}

	s.logger.Warn("marking service dead")
	s.state = Dead
	s.worker.Stop()
	if s.config.Closer != nil {
		s.config.Closer(s.inst)
	}

	var zero T
	s.inst = zero
	s.worker = nil
}

// RequestRestart retires the current instance and rebuilds it on a separate
// goroutine. Requests made while the restart is in flight fail fast. The
// returned channel yields the restart outcome.
func (s *Supervisor[T]) RequestRestart() <-chan error {
	result := make(chan error, 1)

	s.mu.Lock()
	if s.restarting {
		s.mu.Unlock()
		result <- fmt.Errorf("%w: service %s restart already in flight", shared.ErrUnavailable, s.name)
		return result
	}
	s.restarting = true
	s.markDeadLocked()
	s.mu.Unlock()

	go func() {
		result <- s.restart()
	}()

	return result
}

// restart rebuilds the instance after marking it dead.
func (s *Supervisor[T]) restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("restarting service")
	s.restarting = false
	s.state = NotStarted

	return s.startLocked()
}

// Stop retires the resource for good. Pending requests fail with
// shared.ErrUnavailable.
func (s *Supervisor[T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markDeadLocked()
}
