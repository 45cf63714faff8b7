package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/internal/simulation"
	"github.com/trafficsignal/trafficsignal/internal/storage/memory"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

// stepCommand handles `step [-n steps] [--trigger name...] [--signal-every k]`.
// Timers never start; every step fires the named triggers by hand and prints
// the resulting state.
func stepCommand(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("step", pflag.ContinueOnError)
	steps := flags.IntP("steps", "n", 1, "number of steps")
	triggers := flags.StringSlice("trigger",
		[]string{simulation.TriggerHorizontal, simulation.TriggerVertical},
		"triggers fired on every step, in order")
	signalEvery := flags.Int("signal-every", 0, "toggle the signals every k steps, 0 never")
	if err := flags.Parse(args); err != nil {
		return err
	}

	simCfg, err := config.GetSimulationConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return stepSimulation(simCfg, *steps, *triggers, *signalEvery, out)
}

func stepSimulation(cfg config.Simulation, steps int, triggers []string, signalEvery int, out io.Writer) error {
	if steps < 1 {
		return errors.New("steps must be positive")
	}

	// never started, so nothing reaches the sink
	controller, err := simulation.New(cfg, simulation.Dependencies{
		Sink:   memory.New(config.MemoryConfig{}),
		Logger: Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}
	defer func() {
		if err := controller.Shutdown(context.Background()); err != nil {
			Logger.Error("Failed to shut down simulation", "error", err)
		}
	}()

	sched := controller.Scheduler()
	for _, name := range triggers {
		if !sched.HasTrigger(name) {
			return fmt.Errorf("unknown trigger %q", name)
		}
	}

	for i := 1; i <= steps; i++ {
		for _, name := range triggers {
			if err := sched.Fire(name); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
		if signalEvery > 0 && i%signalEvery == 0 {
			if err := sched.Fire(simulation.TriggerSignal); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
		writeStep(out, i, controller.Snapshot())
	}
	return nil
}

func writeStep(out io.Writer, step int, f core.Frame) {
	parts := lo.Map(f.Vehicles, func(v core.VehicleState, _ int) string {
		return fmt.Sprintf("%s=%d", v.Axis, v.Position)
	})
	parts = append(parts, lo.Map(f.Signals, func(s core.SignalState, _ int) string {
		return fmt.Sprintf("%s.signal=%s", s.Axis, s.Color)
	})...)
	fmt.Fprintf(out, "step=%d %s\n", step, strings.Join(parts, " "))
}
