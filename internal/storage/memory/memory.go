// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

var ErrNoRun = errors.New("no run started")

// Backend keeps every frame of the current run in memory and exports
// the run to JSON when it ends.
type Backend struct {
	cfg     config.MemoryConfig
	run     *core.Run
	frames  []core.Frame
	endedAt time.Time

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run, discarding frames of any previous one.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.frames = nil
	b.endedAt = time.Time{}
	b.lastExportPath = ""
	return nil
}

// EndRun finalizes the run and exports it when an output directory is configured.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.endedAt = time.Now()

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// RecordFrame stores a copy of f.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}

	cp := *f
	cp.Vehicles = append([]core.VehicleState(nil), f.Vehicles...)
	cp.Signals = append([]core.SignalState(nil), f.Signals...)
	b.frames = append(b.frames, cp)
	return nil
}

// Frames returns the frames recorded so far.
func (b *Backend) Frames() []core.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Frame(nil), b.frames...)
}

// Run returns the current run, nil before StartRun.
func (b *Backend) Run() *core.Run {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.run
}

// ExportedFilePath returns the file written by the last EndRun, if any.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
