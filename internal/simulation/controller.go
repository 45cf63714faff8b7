// Package simulation wires vehicles, signals, the scheduler and the render
// loop into one running intersection.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/internal/move"
	"github.com/trafficsignal/trafficsignal/internal/render"
	"github.com/trafficsignal/trafficsignal/internal/scheduler"
	"github.com/trafficsignal/trafficsignal/internal/signal"
	"github.com/trafficsignal/trafficsignal/internal/vehicle"
	"github.com/trafficsignal/trafficsignal/internal/zone"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

// Trigger names registered with the scheduler.
const (
	TriggerHorizontal = "vehicle.horizontal"
	TriggerVertical   = "vehicle.vertical"
	TriggerSignal     = "signal.toggle"
)

var (
	ErrAlreadyStarted = errors.New("simulation already started")
	ErrShutdown       = errors.New("simulation shut down")
)

// Sink receives the run lifecycle and its frames. Every storage backend is one.
type Sink interface {
	render.Sink
	StartRun(run *core.Run) error
	EndRun() error
}

// Dependencies are the collaborators of a Controller.
type Dependencies struct {
	Sink   Sink
	Logger *slog.Logger
	// Scheduler is created when nil.
	Scheduler *scheduler.Scheduler
	// Drawable, when set, supplies the renderer resource held by each vehicle
	// and released when the vehicle is disposed.
	Drawable func(v core.VehicleState) io.Closer
}

// Controller owns one simulation run.
type Controller struct {
	cfg    config.Simulation
	bounds *core.Bounds
	logger *slog.Logger
	sink   Sink

	registry   *vehicle.Registry
	horizontal *vehicle.Vehicle
	vertical   *vehicle.Vehicle
	hSignal    *signal.Signal
	vSignal    *signal.Signal

	sched *scheduler.Scheduler
	inv   *render.Invalidator
	loop  *render.Loop

	// serializes every tick handler and snapshot
	tickMu sync.Mutex
	held   map[int]bool

	mu       sync.Mutex
	run      core.Run
	started  bool
	shutdown bool
	// closed once the timers and render loop have stopped
	stopped    chan struct{}
	finishOnce sync.Once
}

// New builds the simulation from a validated configuration. Nothing runs until Start.
func New(cfg config.Simulation, deps Dependencies) (*Controller, error) {
	if deps.Sink == nil {
		return nil, errors.New("simulation: nil sink")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	bounds := cfg.Street
	c := &Controller{
		cfg:      cfg,
		bounds:   &bounds,
		logger:   deps.Logger,
		sink:     deps.Sink,
		registry: vehicle.NewRegistry(),
		hSignal:  signal.New(core.AxisHorizontal, cfg.HorizontalSignal.Color),
		vSignal:  signal.New(core.AxisVertical, cfg.VerticalSignal.Color),
		sched:    deps.Scheduler,
		inv:      render.NewInvalidator(),
		held:     make(map[int]bool),
	}

	c.horizontal = vehicle.New(vehicle.Config{
		Position: cfg.HorizontalCar.StartX,
		Cross:    cfg.HorizontalCar.Y,
		Size:     cfg.HorizontalCar.Width,
		Step:     cfg.HorizontalCar.Step,
		Reset:    cfg.HorizontalCar.X,
	}, c.bounds, zone.Horizontal)
	c.vertical = vehicle.New(vehicle.Config{
		ID:       1,
		Position: cfg.VerticalCar.StartY,
		Cross:    cfg.VerticalCar.X,
		Size:     cfg.VerticalCar.Height,
		Step:     cfg.VerticalCar.Step,
		Reset:    cfg.VerticalCar.Y,
	}, c.bounds, zone.Vertical)

	c.hSignal.Observe(signal.NewLogObserver(c.logger, core.AxisHorizontal))
	c.vSignal.Observe(signal.NewLogObserver(c.logger, core.AxisVertical))

	h := c.registry.Add(c.horizontal)
	v := c.registry.Add(c.vertical)
	if err := c.registry.Link(h, v); err != nil {
		return nil, err
	}

	if c.sched == nil {
		var err error
		if c.sched, err = scheduler.New(c.logger); err != nil {
			return nil, fmt.Errorf("creating scheduler: %w", err)
		}
	}

	triggers := []struct {
		name    string
		timer   config.Timer
		handler scheduler.HandlerFunc
		opts    []scheduler.Option
	}{
		{TriggerHorizontal, cfg.HorizontalCar.Timer, c.vehicleHandler(c.horizontal, c.hSignal), nil},
		{TriggerVertical, cfg.VerticalCar.Timer, c.vehicleHandler(c.vertical, c.vSignal), nil},
		{TriggerSignal, cfg.SignalTimer, c.signalHandler, []scheduler.Option{scheduler.Logged()}},
	}
	for _, t := range triggers {
		if err := c.sched.Register(t.name, t.timer.Delay, t.timer.Interval, t.handler, t.opts...); err != nil {
			return nil, fmt.Errorf("registering %s: %w", t.name, err)
		}
	}
	c.horizontal.BindTimer(c.sched.CancelFunc(TriggerHorizontal))
	c.vertical.BindTimer(c.sched.CancelFunc(TriggerVertical))

	if deps.Drawable != nil {
		for _, veh := range c.registry.All() {
			veh.Attach(deps.Drawable(veh.State()))
		}
	}

	var err error
	c.loop, err = render.NewLoop(c.inv, c.Snapshot, c.sink, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating render loop: %w", err)
	}

	return c, nil
}

// Start opens the run on the sink, then starts rendering and the timers.
func (c *Controller) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}
	if c.started {
		return ErrAlreadyStarted
	}

	c.run = core.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Bounds:    *c.bounds,
		Layout:    c.cfg.Layout,
	}
	if err := c.sink.StartRun(&c.run); err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	c.loop.Start()
	// initial frame shows the starting positions
	c.inv.Request()

	if err := c.sched.Start(); err != nil {
		c.loop.Stop()
		return fmt.Errorf("starting scheduler: %w", err)
	}
	c.started = true

	c.logger.Info("Simulation started",
		"run", c.run.ID,
		"horizontal", c.horizontal.Position(),
		"vertical", c.vertical.Position())
	return nil
}

// Snapshot returns the current state of both vehicles and both signals.
func (c *Controller) Snapshot() core.Frame {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	return core.Frame{
		Vehicles: lo.Map(c.registry.All(), func(v *vehicle.Vehicle, _ int) core.VehicleState {
			return v.State()
		}),
		Signals: []core.SignalState{c.hSignal.State(), c.vSignal.State()},
	}
}

// Run returns the current run, zero before Start.
func (c *Controller) Run() core.Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run
}

// Frames returns the number of frames rendered so far.
func (c *Controller) Frames() uint64 {
	return c.loop.Frames()
}

// Scheduler exposes the trigger scheduler, e.g. for stepping triggers by hand.
func (c *Controller) Scheduler() *scheduler.Scheduler {
	return c.sched
}

// Shutdown stops the timers, renders the final frame, disposes both vehicles
// and closes the run on the sink, in that order. If ctx expires while waiting
// for the timers, a later call resumes the wait and completes the remaining
// steps. Once they have run, further calls return nil.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.shutdown = true
	started := c.started
	if c.stopped == nil {
		c.stopped = make(chan struct{})
		go func(done chan struct{}) {
			c.sched.Stop()
			if started {
				c.loop.Stop()
			}
			close(done)
		}(c.stopped)
	}
	stopped := c.stopped
	c.mu.Unlock()

	select {
	case <-stopped:
	case <-ctx.Done():
		return fmt.Errorf("waiting for timers: %w", ctx.Err())
	}

	var err error
	c.finishOnce.Do(func() {
		err = c.finish(started)
	})
	return err
}

func (c *Controller) finish(started bool) error {
	var errs []error
	for _, v := range c.registry.All() {
		if err := v.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("disposing %s vehicle: %w", v.Axis().Name(), err))
		}
	}

	if started {
		if err := c.sink.EndRun(); err != nil {
			errs = append(errs, fmt.Errorf("ending run: %w", err))
		}
		c.logger.Info("Simulation stopped", "run", c.run.ID, "frames", c.loop.Frames())
	}

	return errors.Join(errs...)
}

func (c *Controller) vehicleHandler(v *vehicle.Vehicle, governing *signal.Signal) scheduler.HandlerFunc {
	return func(scheduler.Tick) error {
		c.tickMu.Lock()
		defer c.tickMu.Unlock()

		color := governing.Color()
		before := v.Position()

		v.SetStrategy(move.ForColor(color))
		v.Tick()

		held := v.Position() == before && !v.Disposed()
		if held != c.held[v.ID()] {
			c.held[v.ID()] = held
			if held {
				c.logger.Debug("Vehicle held", "axis", v.Axis().Name(), "position", before, "signal", color, "zone", v.Zone().String())
			} else {
				c.logger.Debug("Vehicle moving", "axis", v.Axis().Name(), "position", v.Position(), "signal", color)
			}
		}

		c.inv.Request()
		return nil
	}
}

func (c *Controller) signalHandler(scheduler.Tick) error {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	h := c.hSignal.Toggle()
	v := c.vSignal.Toggle()
	c.logger.Info("Signals toggled", "horizontal", h, "vertical", v)

	c.inv.Request()
	return nil
}
