package influx

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/internal/storage"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

var _ storage.Backend = (*Backend)(nil)

func testFrame() *core.Frame {
	return &core.Frame{
		Seq:  4,
		Time: time.Unix(1700000000, 0),
		Vehicles: []core.VehicleState{
			{ID: 0, Axis: core.AxisHorizontal, Position: 751, Cross: 265, Zone: core.Zone{CloseToIntersection: true}},
		},
		Signals: []core.SignalState{
			{Axis: core.AxisVertical, Color: core.ColorGo},
		},
	}
}

func TestFramePoints(t *testing.T) {
	points := FramePoints("r1", testFrame())
	require.Len(t, points, 2)

	vehicle := influxdb2_write.PointToLineProtocol(points[0], time.Second)
	assert.True(t, strings.HasPrefix(vehicle, "vehicle,axis=horizontal,run=r1,vehicle=0 "), vehicle)
	assert.Contains(t, vehicle, "position=751i")
	assert.Contains(t, vehicle, "x=751i")
	assert.Contains(t, vehicle, "y=265i")
	assert.Contains(t, vehicle, `zone="close"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(vehicle), " 1700000000"), vehicle)

	signal := influxdb2_write.PointToLineProtocol(points[1], time.Second)
	assert.True(t, strings.HasPrefix(signal, "signal,axis=vertical,run=r1 "), signal)
	assert.Contains(t, signal, `color="go"`)
	assert.Contains(t, signal, "go=true")
}

func TestInit_UnreachableWithoutBackup(t *testing.T) {
	b := New(config.InfluxConfig{URL: "http://127.0.0.1:1", Org: "o", Bucket: "b"}, zerolog.Nop())
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
	assert.NoError(t, b.Close())
}

func TestBackupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.lp.gz")
	b := New(config.InfluxConfig{URL: "http://127.0.0.1:1", BackupPath: path}, zerolog.Nop())
	require.NoError(t, b.Init())

	require.NoError(t, b.StartRun(&core.Run{ID: "r9"}))
	require.NoError(t, b.RecordFrame(testFrame()))
	require.NoError(t, b.EndRun())
	require.NoError(t, b.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "run=r9")
	assert.True(t, strings.HasPrefix(lines[1], "signal,"))
}
