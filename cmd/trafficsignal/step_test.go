package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/internal/simulation"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

func stepConfig() config.Simulation {
	hour := config.Timer{Delay: time.Hour, Interval: time.Hour}
	return config.Simulation{
		Street: core.Bounds{North: 250, South: 450, West: 450, East: 750},
		HorizontalCar: config.Vehicle{
			X: 1200, Y: 265, StartX: 800, StartY: 265,
			Width: 77, Height: 77, Step: 1, Timer: hour,
		},
		VerticalCar: config.Vehicle{
			X: 655, Y: 700, StartX: 655, StartY: 700,
			Width: 77, Height: 77, Step: 1, Timer: hour,
		},
		HorizontalSignal: config.Signal{Color: core.ColorGo},
		VerticalSignal:   config.Signal{Color: core.ColorStop},
		SignalTimer:      hour,
	}
}

func TestStepSimulation(t *testing.T) {
	var out bytes.Buffer
	err := stepSimulation(stepConfig(), 2, []string{simulation.TriggerHorizontal, simulation.TriggerVertical}, 0, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "step=1 horizontal=799 vertical=699 horizontal.signal=go vertical.signal=stop", lines[0])
	assert.Equal(t, "step=2 horizontal=798 vertical=698 horizontal.signal=go vertical.signal=stop", lines[1])
}

func TestStepSimulation_SignalEvery(t *testing.T) {
	var out bytes.Buffer
	err := stepSimulation(stepConfig(), 2, []string{simulation.TriggerHorizontal}, 1, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "step=1 horizontal=799 vertical=700 horizontal.signal=stop vertical.signal=go", lines[0])
	assert.Equal(t, "step=2 horizontal=798 vertical=700 horizontal.signal=go vertical.signal=stop", lines[1])
}

func TestStepSimulation_UnknownTrigger(t *testing.T) {
	var out bytes.Buffer
	err := stepSimulation(stepConfig(), 1, []string{"nope"}, 0, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown trigger "nope"`)
	assert.Empty(t, out.String())
}

func TestStepSimulation_NoSteps(t *testing.T) {
	assert.Error(t, stepSimulation(stepConfig(), 0, nil, 0, &bytes.Buffer{}))
}
