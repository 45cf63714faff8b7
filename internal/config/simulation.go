package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/trafficsignal/trafficsignal/pkg/core"
)

var (
	ErrInvalidBounds  = errors.New("invalid street bounds")
	ErrInvalidColor   = errors.New("invalid signal color")
	ErrInvalidVehicle = errors.New("invalid vehicle settings")
	ErrInvalidTimer   = errors.New("invalid timer settings")
)

// Timer is the first delay and the repeat interval of a periodic trigger.
type Timer struct {
	Delay    time.Duration
	Interval time.Duration
}

// Vehicle holds the settings of one car. X/Y are the reset coordinates,
// StartX/StartY where the car is when the simulation begins.
type Vehicle struct {
	X      int
	Y      int
	StartX int
	StartY int
	Width  int
	Height int
	Step   int
	Timer  Timer
}

// Signal holds the initial color and renderer geometry of one signal.
type Signal struct {
	Housing core.SignalHousing
	Color   core.Color
}

// Simulation is the complete configuration record consumed by the simulation.
type Simulation struct {
	Street           core.Bounds
	HorizontalCar    Vehicle
	VerticalCar      Vehicle
	HorizontalSignal Signal
	VerticalSignal   Signal
	SignalTimer      Timer
	Layout           core.Layout
}

// GetSimulationConfig builds and validates the simulation configuration.
// Malformed settings are rejected here; the simulation does not re-check them.
func GetSimulationConfig() (Simulation, error) {
	var sim Simulation

	sim.Street = core.Bounds{
		North: viper.GetInt("street.north"),
		South: viper.GetInt("street.south"),
		East:  viper.GetInt("street.east"),
		West:  viper.GetInt("street.west"),
	}
	if err := sim.Street.Validate(); err != nil {
		return sim, fmt.Errorf("%w: %v", ErrInvalidBounds, err)
	}

	var err error
	if sim.HorizontalCar, err = getVehicle("horizontalCar"); err != nil {
		return sim, err
	}
	if sim.VerticalCar, err = getVehicle("verticalCar"); err != nil {
		return sim, err
	}
	if sim.HorizontalSignal, err = getSignal("horizontalSignal"); err != nil {
		return sim, err
	}
	if sim.VerticalSignal, err = getSignal("verticalSignal"); err != nil {
		return sim, err
	}
	if sim.SignalTimer, err = getTimer("signalTimer"); err != nil {
		return sim, err
	}

	sim.Layout = core.Layout{
		CanvasWidth:  core.CanvasWidth,
		CanvasHeight: core.CanvasHeight,
		Sidewalk: core.Sidewalk{
			Width:                 viper.GetInt("sidewalk.width"),
			Height:                viper.GetInt("sidewalk.height"),
			VerticalStreetWidth:   viper.GetInt("sidewalk.verticalStreetWidth"),
			HorizontalStreetWidth: viper.GetInt("sidewalk.horizontalStreetWidth"),
		},
		HorizontalLane:   getRect("horizontalLane"),
		VerticalLane:     getRect("verticalLane"),
		HorizontalSignal: sim.HorizontalSignal.Housing,
		VerticalSignal:   sim.VerticalSignal.Housing,
	}

	return sim, nil
}

func getVehicle(prefix string) (Vehicle, error) {
	v := Vehicle{
		X:      viper.GetInt(prefix + ".x"),
		Y:      viper.GetInt(prefix + ".y"),
		Width:  viper.GetInt(prefix + ".width"),
		Height: viper.GetInt(prefix + ".height"),
		Step:   viper.GetInt(prefix + ".step"),
	}
	v.StartX, v.StartY = v.X, v.Y
	if viper.IsSet(prefix + ".location.x") {
		v.StartX = viper.GetInt(prefix + ".location.x")
	}
	if viper.IsSet(prefix + ".location.y") {
		v.StartY = viper.GetInt(prefix + ".location.y")
	}

	if v.Width <= 0 || v.Height <= 0 {
		return v, fmt.Errorf("%w: %s size %dx%d", ErrInvalidVehicle, prefix, v.Width, v.Height)
	}
	if v.Step <= 0 {
		return v, fmt.Errorf("%w: %s step %d", ErrInvalidVehicle, prefix, v.Step)
	}

	var err error
	if v.Timer, err = getTimer(prefix); err != nil {
		return v, err
	}
	return v, nil
}

func getSignal(prefix string) (Signal, error) {
	color, err := core.ParseColor(viper.GetString(prefix + ".color"))
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %s: %v", ErrInvalidColor, prefix, err)
	}
	return Signal{
		Housing: core.SignalHousing{
			Rect:        getRect(prefix),
			LightWidth:  viper.GetInt(prefix + ".lightWidth"),
			LightHeight: viper.GetInt(prefix + ".lightHeight"),
		},
		Color: color,
	}, nil
}

func getTimer(prefix string) (Timer, error) {
	delay, err := GetMillis(prefix + ".timerDelay")
	if err != nil {
		return Timer{}, fmt.Errorf("%w: %v", ErrInvalidTimer, err)
	}
	interval, err := GetMillis(prefix + ".timerInterval")
	if err != nil {
		return Timer{}, fmt.Errorf("%w: %v", ErrInvalidTimer, err)
	}
	if delay < 0 || interval < 0 {
		return Timer{}, fmt.Errorf("%w: %s delay %s interval %s", ErrInvalidTimer, prefix, delay, interval)
	}
	return Timer{Delay: delay, Interval: interval}, nil
}

func getRect(prefix string) core.Rect {
	return core.Rect{
		X:      viper.GetInt(prefix + ".x"),
		Y:      viper.GetInt(prefix + ".y"),
		Width:  viper.GetInt(prefix + ".width"),
		Height: viper.GetInt(prefix + ".height"),
	}
}
