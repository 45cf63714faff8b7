package gormstorage

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficsignal/trafficsignal/internal/database"
	"github.com/trafficsignal/trafficsignal/internal/model"
	"github.com/trafficsignal/trafficsignal/internal/storage"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSQLite("", zerolog.Nop())
	require.NoError(t, err)

	// long interval so tests control writes through Flush/EndRun
	b := New(Dependencies{DB: db, WriteInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testRun() *core.Run {
	return &core.Run{
		ID:        "0b5e",
		StartedAt: time.Now().UTC(),
		Bounds:    core.Bounds{North: 250, South: 450, East: 750, West: 450},
	}
}

func testFrame(seq uint64) *core.Frame {
	return &core.Frame{
		Seq:  seq,
		Time: time.Now().UTC(),
		Vehicles: []core.VehicleState{
			{ID: 0, Axis: core.AxisHorizontal, Position: 800 - int(seq), Cross: 265, Zone: core.Zone{BeforeIntersection: true}},
			{ID: 1, Axis: core.AxisVertical, Position: 500, Cross: 655, Zone: core.Zone{BeforeIntersection: true}},
		},
		Signals: []core.SignalState{
			{Axis: core.AxisHorizontal, Color: core.ColorGo},
			{Axis: core.AxisVertical, Color: core.ColorStop},
		},
	}
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestRecordFrame_BeforeRun(t *testing.T) {
	b := newTestBackend(t)
	assert.ErrorIs(t, b.RecordFrame(testFrame(1)), ErrNoRun)
	assert.ErrorIs(t, b.EndRun(), ErrNoRun)
}

func TestRecordFrame_QueuesUntilFlush(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.StartRun(testRun()))

	require.NoError(t, b.RecordFrame(testFrame(1)))
	require.NoError(t, b.RecordFrame(testFrame(2)))
	assert.Equal(t, 2, b.Pending())

	var n int64
	require.NoError(t, b.DB().Model(&model.Frame{}).Count(&n).Error)
	assert.Zero(t, n)

	require.NoError(t, b.Flush())
	assert.Zero(t, b.Pending())
	require.NoError(t, b.DB().Model(&model.Frame{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
	require.NoError(t, b.DB().Model(&model.VehicleState{}).Count(&n).Error)
	assert.Equal(t, int64(4), n)
}

func TestEndRun_WritesAndClosesRun(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.StartRun(testRun()))
	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, b.RecordFrame(testFrame(seq)))
	}
	require.NoError(t, b.EndRun())

	var run model.Run
	require.NoError(t, b.DB().First(&run).Error)
	assert.Equal(t, "0b5e", run.UUID)
	assert.Equal(t, uint64(3), run.FrameCount)
	assert.True(t, run.EndedAt.Valid)
	assert.Equal(t, 750, run.East)

	var frames []model.Frame
	require.NoError(t, b.DB().Preload("Vehicles").Order("seq").Find(&frames).Error)
	require.Len(t, frames, 3)
	assert.Equal(t, run.ID, frames[0].RunID)
	assert.Equal(t, uint64(3), frames[2].Seq)
	require.Len(t, frames[2].Vehicles, 2)
	assert.Equal(t, 797, frames[2].Vehicles[0].Position)
	assert.Equal(t, run.ID, frames[2].Vehicles[0].RunID)
}

func TestWriteLoop_WritesPeriodically(t *testing.T) {
	db, err := database.OpenSQLite("", zerolog.Nop())
	require.NoError(t, err)

	b := New(Dependencies{DB: db, WriteInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordFrame(testFrame(1)))

	assert.Eventually(t, func() bool { return b.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestClose_FlushesPending(t *testing.T) {
	db, err := database.OpenSQLite("", zerolog.Nop())
	require.NoError(t, err)

	b := New(Dependencies{DB: db, WriteInterval: time.Hour})
	require.NoError(t, b.Init())
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordFrame(testFrame(1)))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	var n int64
	require.NoError(t, db.Model(&model.Frame{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
