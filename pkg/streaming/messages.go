package streaming

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"

	"github.com/trafficsignal/trafficsignal/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun = "start_run"
	TypeEndRun   = "end_run"
	TypeFrame    = "frame"
	TypeAck      = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// Bounds is the intersection rectangle on the wire.
type Bounds struct {
	North int `json:"north"`
	South int `json:"south"`
	East  int `json:"east"`
	West  int `json:"west"`
}

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Housing struct {
	Rect
	Light Rect `json:"light"`
}

type Sidewalk struct {
	Width                 int `json:"width"`
	Height                int `json:"height"`
	VerticalStreetWidth   int `json:"verticalStreetWidth"`
	HorizontalStreetWidth int `json:"horizontalStreetWidth"`
}

// Layout is the static scene a renderer draws once per run.
type Layout struct {
	CanvasWidth      int      `json:"canvasWidth"`
	CanvasHeight     int      `json:"canvasHeight"`
	Sidewalk         Sidewalk `json:"sidewalk"`
	HorizontalLane   Rect     `json:"horizontalLane"`
	VerticalLane     Rect     `json:"verticalLane"`
	HorizontalSignal Housing  `json:"horizontalSignal"`
	VerticalSignal   Housing  `json:"verticalSignal"`
}

// StartRunPayload is sent once before the first frame.
type StartRunPayload struct {
	RunID     string    `json:"runId"`
	StartedAt time.Time `json:"startedAt"`
	Bounds    Bounds    `json:"bounds"`
	Layout    Layout    `json:"layout"`
}

// EndRunPayload is sent after the last frame.
type EndRunPayload struct {
	RunID   string    `json:"runId"`
	EndedAt time.Time `json:"endedAt"`
	Frames  uint64    `json:"frames"`
}

type Vehicle struct {
	ID   int    `json:"id"`
	Axis string `json:"axis"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Zone string `json:"zone"`
}

type Signal struct {
	Axis  string `json:"axis"`
	Color string `json:"color"`
}

// FramePayload is one rendered frame.
type FramePayload struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"time"`
	Vehicles []Vehicle `json:"vehicles"`
	Signals  []Signal  `json:"signals"`
}

// NewStartRun converts a run into its wire form.
func NewStartRun(r *core.Run) StartRunPayload {
	return StartRunPayload{
		RunID:     r.ID,
		StartedAt: r.StartedAt,
		Bounds: Bounds{
			North: r.Bounds.North,
			South: r.Bounds.South,
			East:  r.Bounds.East,
			West:  r.Bounds.West,
		},
		Layout: Layout{
			CanvasWidth:      r.Layout.CanvasWidth,
			CanvasHeight:     r.Layout.CanvasHeight,
			Sidewalk:         Sidewalk(r.Layout.Sidewalk),
			HorizontalLane:   Rect(r.Layout.HorizontalLane),
			VerticalLane:     Rect(r.Layout.VerticalLane),
			HorizontalSignal: newHousing(r.Layout.HorizontalSignal),
			VerticalSignal:   newHousing(r.Layout.VerticalSignal),
		},
	}
}

func newHousing(h core.SignalHousing) Housing {
	return Housing{Rect: Rect(h.Rect), Light: Rect(h.Light())}
}

// NewFrame converts a frame into its wire form.
func NewFrame(f *core.Frame) FramePayload {
	return FramePayload{
		Seq:  f.Seq,
		Time: f.Time,
		Vehicles: lo.Map(f.Vehicles, func(v core.VehicleState, _ int) Vehicle {
			return Vehicle{ID: v.ID, Axis: v.Axis, X: v.X(), Y: v.Y(), Zone: v.Zone.String()}
		}),
		Signals: lo.Map(f.Signals, func(s core.SignalState, _ int) Signal {
			return Signal{Axis: s.Axis, Color: string(s.Color)}
		}),
	}
}
