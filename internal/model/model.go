package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists the structs that represent tables in the database schema.
var DatabaseModels = []interface{}{
	&Run{},
	&Frame{},
	&VehicleState{},
}

// Run is one simulation run from start to shutdown
type Run struct {
	ID         uint         `json:"id" gorm:"primarykey;autoIncrement;"`
	UUID       string       `json:"uuid" gorm:"size:36;uniqueIndex"`
	StartedAt  time.Time    `json:"startedAt"`
	EndedAt    sql.NullTime `json:"endedAt"`
	FrameCount uint64       `json:"frameCount"`

	North int `json:"north"`
	South int `json:"south"`
	East  int `json:"east"`
	West  int `json:"west"`

	// renderer geometry, stored as the streaming layout document
	Layout datatypes.JSON `json:"layout"`
}

func (*Run) TableName() string {
	return "runs"
}

// Frame is one rendered frame
type Frame struct {
	ID      uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID   uint           `json:"runId" gorm:"index:idx_frame_run_seq,priority:1"`
	Run     Run            `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Seq     uint64         `json:"seq" gorm:"index:idx_frame_run_seq,priority:2"`
	Time    time.Time      `json:"time"`
	Signals datatypes.JSON `json:"signals"`

	Vehicles []VehicleState `json:"vehicles" gorm:"foreignkey:FrameID;"`
}

func (*Frame) TableName() string {
	return "frames"
}

// VehicleState is a vehicle's position within one frame
type VehicleState struct {
	ID        uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	FrameID   uint   `json:"frameId" gorm:"index:idx_vehiclestate_frame_id"`
	RunID     uint   `json:"runId" gorm:"index:idx_vehiclestate_run_id"`
	VehicleID int    `json:"vehicleId"`
	Axis      string `json:"axis" gorm:"size:16"`
	Position  int    `json:"position"`
	Cross     int    `json:"cross"`
	Zone      string `json:"zone" gorm:"size:8"`
}

func (*VehicleState) TableName() string {
	return "vehicle_states"
}
