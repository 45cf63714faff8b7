// Package scheduler runs named periodic triggers, each on its own goroutine.
// Triggers fire independently with no ordering between them; handlers that
// share state must serialize themselves.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrStarted       = errors.New("scheduler already started")
	ErrStopped       = errors.New("scheduler stopped")
	ErrUnknown       = errors.New("unknown trigger")
	ErrDuplicateName = errors.New("trigger already registered")
)

// Tick describes one firing of a trigger.
type Tick struct {
	Trigger string
	Seq     uint64
	Time    time.Time
}

// HandlerFunc handles one tick. It must not block.
type HandlerFunc func(Tick) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures trigger registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging around every firing of the trigger.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type trigger struct {
	name     string
	delay    time.Duration
	interval time.Duration
	handler  HandlerFunc
	seq      atomic.Uint64

	done       chan struct{}
	cancelOnce sync.Once
}

func (t *trigger) cancel() {
	t.cancelOnce.Do(func() { close(t.done) })
}

// Scheduler owns a set of triggers and their goroutines.
type Scheduler struct {
	logger Logger

	// OTEL metrics
	fired   metric.Int64Counter
	failed  metric.Int64Counter
	running metric.Int64ObservableGauge

	mu       sync.Mutex
	triggers map[string]*trigger
	started  bool
	stopped  bool
	stop     chan struct{}
	wg       sync.WaitGroup
	active   atomic.Int64
}

// New creates a Scheduler with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Scheduler, error) {
	s := &Scheduler{
		logger:   logger,
		triggers: make(map[string]*trigger),
		stop:     make(chan struct{}),
	}

	m := meter()

	var err error

	s.fired, err = m.Int64Counter(
		"scheduler.ticks.fired",
		metric.WithDescription("Total trigger firings"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fired counter: %w", err)
	}

	s.failed, err = m.Int64Counter(
		"scheduler.ticks.failed",
		metric.WithDescription("Total trigger firings whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	s.running, err = m.Int64ObservableGauge(
		"scheduler.triggers.running",
		metric.WithDescription("Number of trigger goroutines currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating running gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(s.running, s.active.Load())
			return nil
		},
		s.running,
	)
	if err != nil {
		return nil, fmt.Errorf("registering running callback: %w", err)
	}

	return s, nil
}

// Register adds a trigger that first fires after delay and then every interval.
// An interval of zero or less fires only once.
func (s *Scheduler) Register(name string, delay, interval time.Duration, h HandlerFunc, opts ...Option) error {
	if delay < 0 {
		return fmt.Errorf("trigger %s: negative delay %s", name, delay)
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = s.withLogging(name, handler)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("register %s: %w", name, ErrStarted)
	}
	if _, ok := s.triggers[name]; ok {
		return fmt.Errorf("register %s: %w", name, ErrDuplicateName)
	}

	s.triggers[name] = &trigger{
		name:     name,
		delay:    delay,
		interval: interval,
		handler:  handler,
		done:     make(chan struct{}),
	}
	return nil
}

// HasTrigger returns true if a trigger is registered under name.
func (s *Scheduler) HasTrigger(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.triggers[name]
	return ok
}

// Start launches every registered trigger.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrStarted
	}
	s.started = true

	for _, t := range s.triggers {
		s.wg.Add(1)
		s.active.Add(1)
		go s.run(t)
	}
	s.logger.Info("scheduler started", "triggers", len(s.triggers))
	return nil
}

// Fire runs the handler of the named trigger synchronously on the calling goroutine.
func (s *Scheduler) Fire(name string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	t, ok := s.triggers[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	return s.fire(t)
}

// Cancel stops a single trigger without waiting for it. Unknown names are ignored.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	t, ok := s.triggers[name]
	s.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// CancelFunc returns a function that cancels the named trigger.
func (s *Scheduler) CancelFunc(name string) func() {
	return func() { s.Cancel(name) }
}

// Stop stops all triggers and waits for running handlers to return.
// After Stop returns no handler is running or will run again.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(t *trigger) {
	defer s.wg.Done()
	defer s.active.Add(-1)

	timer := time.NewTimer(t.delay)
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-t.done:
			return
		case <-timer.C:
		}

		// the timer and a stop can be ready together; stop wins
		select {
		case <-s.stop:
			return
		case <-t.done:
			return
		default:
		}

		_ = s.fire(t)

		if t.interval <= 0 {
			return
		}
		timer.Reset(t.interval)
	}
}

func (s *Scheduler) fire(t *trigger) error {
	tick := Tick{Trigger: t.name, Seq: t.seq.Add(1), Time: time.Now()}
	attrs := metric.WithAttributes(attribute.String("trigger", t.name))

	err := t.handler(tick)

	s.fired.Add(context.Background(), 1, attrs)
	if err != nil {
		s.failed.Add(context.Background(), 1, attrs)
		s.logger.Error("trigger handler failed", "trigger", t.name, "seq", tick.Seq, "error", err)
	}
	return err
}

func (s *Scheduler) withLogging(name string, h HandlerFunc) HandlerFunc {
	return func(tick Tick) error {
		start := time.Now()
		s.logger.Debug("handling tick", "trigger", name, "seq", tick.Seq)

		err := h(tick)

		if err == nil {
			s.logger.Debug("tick complete", "trigger", name, "seq", tick.Seq, "duration", time.Since(start))
		}
		return err
	}
}
