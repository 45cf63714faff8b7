package streaming

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficsignal/trafficsignal/pkg/core"
)

func TestNewFrame(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &core.Frame{
		Seq:  7,
		Time: now,
		Vehicles: []core.VehicleState{
			{ID: 0, Axis: core.AxisHorizontal, Position: 751, Cross: 265, Zone: core.Zone{CloseToIntersection: true}},
			{ID: 1, Axis: core.AxisVertical, Position: 300, Cross: 655, Zone: core.Zone{InIntersection: true}},
		},
		Signals: []core.SignalState{
			{Axis: core.AxisHorizontal, Color: core.ColorGo},
			{Axis: core.AxisVertical, Color: core.ColorStop},
		},
	}

	p := NewFrame(f)

	assert.Equal(t, uint64(7), p.Seq)
	assert.Equal(t, now, p.Time)
	require.Len(t, p.Vehicles, 2)
	assert.Equal(t, Vehicle{ID: 0, Axis: "horizontal", X: 751, Y: 265, Zone: "close"}, p.Vehicles[0])
	assert.Equal(t, Vehicle{ID: 1, Axis: "vertical", X: 655, Y: 300, Zone: "in"}, p.Vehicles[1])
	assert.Equal(t, []Signal{{"horizontal", "go"}, {"vertical", "stop"}}, p.Signals)
}

func TestNewStartRun(t *testing.T) {
	r := &core.Run{
		ID:     "run-1",
		Bounds: core.Bounds{North: 250, South: 450, East: 750, West: 450},
		Layout: core.Layout{
			CanvasWidth: core.CanvasWidth,
			HorizontalSignal: core.SignalHousing{
				Rect:        core.Rect{X: 800, Y: 160, Width: 40, Height: 80},
				LightWidth:  30,
				LightHeight: 30,
			},
		},
	}

	p := NewStartRun(r)

	assert.Equal(t, "run-1", p.RunID)
	assert.Equal(t, Bounds{North: 250, South: 450, East: 750, West: 450}, p.Bounds)
	assert.Equal(t, Rect{X: 805, Y: 185, Width: 30, Height: 30}, p.Layout.HorizontalSignal.Light)
	assert.Equal(t, 1200, p.Layout.CanvasWidth)
}

func TestEnvelope_JSON(t *testing.T) {
	raw, err := json.Marshal(Signal{Axis: "vertical", Color: "go"})
	require.NoError(t, err)

	data, err := json.Marshal(Envelope{Type: TypeFrame, Payload: raw})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"frame","payload":{"axis":"vertical","color":"go"}}`, string(data))

	var ack AckMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ack","for":"start_run"}`), &ack))
	assert.Equal(t, AckMessage{Type: TypeAck, For: TypeStartRun}, ack)
}
