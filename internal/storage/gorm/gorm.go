// Package gormstorage implements the storage.Backend interface on GORM with an
// internal queue and a background writer goroutine. The sqlite and postgres
// backends wrap it and only supply the connection.
package gormstorage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/trafficsignal/trafficsignal/internal/model"
	"github.com/trafficsignal/trafficsignal/internal/model/convert"
	"github.com/trafficsignal/trafficsignal/internal/queue"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

const (
	defaultWriteInterval = time.Second
	maxBatch             = 500
)

var ErrNoRun = errors.New("no run started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
	// WriteInterval is how often queued frames are written. Zero uses one second.
	WriteInterval time.Duration
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	frames *queue.Queue[model.Frame]

	runID   atomic.Uint64
	written atomic.Uint64

	// serializes queue drains between the writer goroutine and EndRun/Close
	writeMu sync.Mutex

	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = defaultWriteInterval
	}
	return &Backend{
		deps:   deps,
		frames: queue.New[model.Frame](),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}

	b.deps.Logger.Info("Migrating schema")
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine after a final write.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.stopOnce.Do(func() { close(b.stopChan) })
	<-b.done
	return nil
}

// StartRun inserts the run row synchronously so frames can reference it.
func (b *Backend) StartRun(run *core.Run) error {
	row, err := convert.CoreToRun(*run)
	if err != nil {
		return err
	}
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	b.runID.Store(uint64(row.ID))
	b.written.Store(0)
	b.deps.Logger.Info("Run started", "run", run.ID, "rowId", row.ID)
	return nil
}

// RecordFrame converts f and queues it for the writer.
func (b *Backend) RecordFrame(f *core.Frame) error {
	if b.runID.Load() == 0 {
		return ErrNoRun
	}
	row, err := convert.CoreToFrame(*f)
	if err != nil {
		return err
	}
	b.frames.Push(row)
	return nil
}

// EndRun writes every queued frame and closes the run row.
func (b *Backend) EndRun() error {
	runID := uint(b.runID.Load())
	if runID == 0 {
		return ErrNoRun
	}

	if err := b.Flush(); err != nil {
		return err
	}

	err := b.deps.DB.Model(&model.Run{}).Where("id = ?", runID).Updates(map[string]any{
		"ended_at":    sql.NullTime{Time: time.Now(), Valid: true},
		"frame_count": b.written.Load(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to close run: %w", err)
	}

	b.deps.Logger.Info("Run ended", "rowId", runID, "frames", b.written.Load())
	b.runID.Store(0)
	return nil
}

// Flush writes all queued frames now.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	runID := uint(b.runID.Load())
	for !b.frames.Empty() {
		batch := b.frames.Drain(maxBatch)
		for i := range batch {
			batch[i].RunID = runID
			for j := range batch[i].Vehicles {
				batch[i].Vehicles[j].RunID = runID
			}
		}

		start := time.Now()
		if err := b.deps.DB.Create(&batch).Error; err != nil {
			b.deps.Logger.Error("Failed to write frames", "count", len(batch), "error", err)
			return fmt.Errorf("failed to write %d frames: %w", len(batch), err)
		}
		b.written.Add(uint64(len(batch)))
		b.deps.Logger.Debug("Wrote frames", "count", len(batch), "duration", time.Since(start))
	}
	return nil
}

// Pending returns the number of queued frames.
func (b *Backend) Pending() int {
	return b.frames.Len()
}

func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			if b.runID.Load() != 0 {
				_ = b.Flush()
			}
			return
		case <-ticker.C:
			if b.runID.Load() == 0 {
				continue
			}
			// errors are logged by Flush, the batch is dropped
			_ = b.Flush()
		}
	}
}
