// Package influx writes frames as InfluxDB points: one "vehicle" point per
// vehicle and one "signal" point per signal, tagged with the run ID.
package influx

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

const (
	MeasurementVehicle = "vehicle"
	MeasurementSignal  = "signal"

	pingTimeout = 5 * time.Second
)

// Backend writes frames to InfluxDB, or to a gzipped line protocol backup file
// when the server cannot be reached at Init.
type Backend struct {
	cfg    config.InfluxConfig
	logger zerolog.Logger

	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	mu         sync.Mutex
	backupFile *os.File
	backup     *gzip.Writer
	runID      string
}

// New creates an influx backend. No connection is made until Init.
func New(cfg config.InfluxConfig, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, logger: log}
}

// Init connects to InfluxDB, falling back to the backup file.
func (b *Backend) Init() error {
	b.client = influxdb2.NewClientWithOptions(b.cfg.URL, b.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	running, err := b.client.Ping(ctx)
	if err == nil && running {
		b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)
		go func(errs <-chan error) {
			for writeErr := range errs {
				b.logger.Error().Err(writeErr).Str("bucket", b.cfg.Bucket).Msg("Error sending data to InfluxDB")
			}
		}(b.writer.Errors())
		b.logger.Info().Str("url", b.cfg.URL).Msg("InfluxDB client initialized")
		return nil
	}

	b.client.Close()
	b.client = nil

	if b.cfg.BackupPath == "" {
		return fmt.Errorf("influxdb at %s unreachable and no backup path set: %v", b.cfg.URL, err)
	}

	file, ferr := os.OpenFile(b.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if ferr != nil {
		return fmt.Errorf("error creating backup file: %w", ferr)
	}
	b.backupFile = file
	b.backup = gzip.NewWriter(file)
	b.logger.Warn().Err(err).Str("backupPath", b.cfg.BackupPath).
		Msg("InfluxDB unreachable, writing to backup file")
	return nil
}

// Close flushes pending points and releases the client or backup file.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		b.writer.Flush()
		b.client.Close()
		b.client = nil
	}
	if b.backup != nil {
		err := b.backup.Close()
		if cerr := b.backupFile.Close(); err == nil {
			err = cerr
		}
		b.backup = nil
		return err
	}
	return nil
}

func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runID = run.ID
	return nil
}

// EndRun flushes buffered points.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.writer != nil && b.client != nil {
		b.writer.Flush()
	}
	if b.backup != nil {
		return b.backup.Flush()
	}
	return nil
}

// RecordFrame writes the frame's points.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range FramePoints(b.runID, f) {
		if err := b.writePoint(p); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) writePoint(p *influxdb2_write.Point) error {
	if b.client != nil {
		b.writer.WritePoint(p)
		return nil
	}
	if b.backup == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	line := strings.TrimRight(influxdb2_write.PointToLineProtocol(p, time.Nanosecond), "\n") + "\n"
	if _, err := b.backup.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// FramePoints converts a frame to InfluxDB points.
func FramePoints(runID string, f *core.Frame) []*influxdb2_write.Point {
	points := make([]*influxdb2_write.Point, 0, len(f.Vehicles)+len(f.Signals))

	for _, v := range f.Vehicles {
		points = append(points, influxdb2.NewPoint(MeasurementVehicle,
			map[string]string{
				"run":     runID,
				"axis":    v.Axis,
				"vehicle": strconv.Itoa(v.ID),
			},
			map[string]any{
				"seq":      f.Seq,
				"position": v.Position,
				"x":        v.X(),
				"y":        v.Y(),
				"zone":     v.Zone.String(),
			},
			f.Time,
		))
	}

	for _, s := range f.Signals {
		points = append(points, influxdb2.NewPoint(MeasurementSignal,
			map[string]string{
				"run":  runID,
				"axis": s.Axis,
			},
			map[string]any{
				"seq":   f.Seq,
				"color": string(s.Color),
				"go":    s.Color == core.ColorGo,
			},
			f.Time,
		))
	}

	return points
}
