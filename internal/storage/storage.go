// internal/storage/storage.go
package storage

import "github.com/trafficsignal/trafficsignal/pkg/core"

// Backend is the interface all frame sinks must satisfy.
// RecordFrame is called from the render goroutine only.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun() error

	// State recording
	RecordFrame(f *core.Frame) error
}

// Exporter is an optional interface for backends that write a file at the end of a run.
type Exporter interface {
	ExportedFilePath() string
}
