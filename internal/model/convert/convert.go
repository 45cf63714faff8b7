// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/datatypes"

	"github.com/trafficsignal/trafficsignal/internal/model"
	"github.com/trafficsignal/trafficsignal/pkg/core"
	"github.com/trafficsignal/trafficsignal/pkg/streaming"
)

// CoreToRun converts a core.Run to a GORM model.Run. The layout is stored
// in its wire form so renderers can read it back unchanged.
func CoreToRun(r core.Run) (model.Run, error) {
	layout, err := json.Marshal(streaming.NewStartRun(&r).Layout)
	if err != nil {
		return model.Run{}, fmt.Errorf("marshal layout: %w", err)
	}
	return model.Run{
		UUID:      r.ID,
		StartedAt: r.StartedAt,
		North:     r.Bounds.North,
		South:     r.Bounds.South,
		East:      r.Bounds.East,
		West:      r.Bounds.West,
		Layout:    datatypes.JSON(layout),
	}, nil
}

// CoreToFrame converts a core.Frame to a GORM model.Frame with its vehicle states.
func CoreToFrame(f core.Frame) (model.Frame, error) {
	signals, err := json.Marshal(lo.Map(f.Signals, func(s core.SignalState, _ int) streaming.Signal {
		return streaming.Signal{Axis: s.Axis, Color: string(s.Color)}
	}))
	if err != nil {
		return model.Frame{}, fmt.Errorf("marshal signals: %w", err)
	}

	return model.Frame{
		Seq:     f.Seq,
		Time:    f.Time,
		Signals: datatypes.JSON(signals),
		Vehicles: lo.Map(f.Vehicles, func(v core.VehicleState, _ int) model.VehicleState {
			return model.VehicleState{
				VehicleID: v.ID,
				Axis:      v.Axis,
				Position:  v.Position,
				Cross:     v.Cross,
				Zone:      v.Zone.String(),
			}
		}),
	}, nil
}

// FrameToCore converts a stored frame back to a core.Frame.
func FrameToCore(f model.Frame) (core.Frame, error) {
	var signals []streaming.Signal
	if len(f.Signals) > 0 {
		if err := json.Unmarshal(f.Signals, &signals); err != nil {
			return core.Frame{}, fmt.Errorf("frame %d signals: %w", f.Seq, err)
		}
	}

	return core.Frame{
		Seq:  f.Seq,
		Time: f.Time,
		Vehicles: lo.Map(f.Vehicles, func(v model.VehicleState, _ int) core.VehicleState {
			return core.VehicleState{
				ID:       v.VehicleID,
				Axis:     v.Axis,
				Position: v.Position,
				Cross:    v.Cross,
				Zone:     ParseZone(v.Zone),
			}
		}),
		Signals: lo.Map(signals, func(s streaming.Signal, _ int) core.SignalState {
			return core.SignalState{Axis: s.Axis, Color: core.Color(s.Color)}
		}),
	}, nil
}

// RunToCore converts a stored run back to a core.Run. Layout is not restored.
func RunToCore(r model.Run) core.Run {
	return core.Run{
		ID:        r.UUID,
		StartedAt: r.StartedAt,
		Bounds: core.Bounds{
			North: r.North,
			South: r.South,
			East:  r.East,
			West:  r.West,
		},
	}
}

// ParseZone is the inverse of core.Zone.String.
func ParseZone(s string) core.Zone {
	switch s {
	case "in":
		return core.Zone{InIntersection: true}
	case "close":
		return core.Zone{CloseToIntersection: true}
	case "before":
		return core.Zone{BeforeIntersection: true}
	default:
		return core.Zone{}
	}
}
