// Package signal holds the two-state traffic signal.
package signal

import (
	"log/slog"

	"github.com/anggasct/fluo"

	"github.com/trafficsignal/trafficsignal/pkg/core"
)

// EventToggle is the only event a signal machine accepts.
const EventToggle = "TOGGLE"

// Signal is the light governing one axis. Toggle is its only mutator.
type Signal struct {
	axis    string
	machine fluo.Machine
}

// New creates a signal for axis showing initial.
func New(axis string, initial core.Color) *Signal {
	if initial != core.ColorStop {
		initial = core.ColorGo
	}

	b := fluo.NewMachine()
	goState := b.State(string(core.ColorGo))
	stopState := b.State(string(core.ColorStop))
	if initial == core.ColorGo {
		goState.Initial()
	} else {
		stopState.Initial()
	}
	goState.To(string(core.ColorStop)).On(EventToggle)
	stopState.To(string(core.ColorGo)).On(EventToggle)

	m := b.Build().CreateInstance()
	// only fails without an initial state
	_ = m.Start()

	return &Signal{axis: axis, machine: m}
}

// Axis returns the axis this signal governs.
func (s *Signal) Axis() string {
	return s.axis
}

// Color returns the current color.
func (s *Signal) Color() core.Color {
	return core.Color(s.machine.CurrentState())
}

// Toggle switches go to stop and stop to go, returning the new color.
func (s *Signal) Toggle() core.Color {
	res := s.machine.SendEvent(EventToggle, nil)
	return core.Color(res.CurrentState)
}

// Observe attaches an observer to the underlying machine.
func (s *Signal) Observe(o fluo.Observer) {
	s.machine.AddObserver(o)
}

// LogObserver reports signal transitions at debug level.
type LogObserver struct {
	fluo.BaseObserver
	axis   string
	logger *slog.Logger
}

// NewLogObserver returns an observer logging transitions of the axis signal.
func NewLogObserver(logger *slog.Logger, axis string) *LogObserver {
	return &LogObserver{axis: axis, logger: logger}
}

func (o *LogObserver) OnTransition(from, to string, _ fluo.Event, _ fluo.Context) {
	o.logger.Debug("Signal changed", "axis", o.axis, "from", from, "to", to)
}

// State returns a snapshot for renderers.
func (s *Signal) State() core.SignalState {
	return core.SignalState{Axis: s.axis, Color: s.Color()}
}
