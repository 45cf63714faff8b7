// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"

	"github.com/trafficsignal/trafficsignal/pkg/core"
	"github.com/trafficsignal/trafficsignal/pkg/streaming"
)

// Export is the root JSON structure of a recorded run.
type Export struct {
	streaming.StartRunPayload
	EndedAt time.Time                `json:"endedAt"`
	Frames  []streaming.FramePayload `json:"frames"`
}

// BuildExport converts a run and its frames into the export document.
func BuildExport(run *core.Run, frames []core.Frame, endedAt time.Time) Export {
	return Export{
		StartRunPayload: streaming.NewStartRun(run),
		EndedAt:         endedAt,
		Frames: lo.Map(frames, func(f core.Frame, _ int) streaming.FramePayload {
			return streaming.NewFrame(&f)
		}),
	}
}

// WriteExport encodes e to w, gzipped when compress is set.
func WriteExport(w io.Writer, e Export, compress bool) error {
	if compress {
		gz := gzip.NewWriter(w)
		if err := json.NewEncoder(gz).Encode(e); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return gz.Close()
	}
	return json.NewEncoder(w).Encode(e)
}

// ExportFileName names the output file of a run.
func ExportFileName(run *core.Run, compress bool) string {
	name := fmt.Sprintf("run_%s_%s.json", run.StartedAt.UTC().Format("20060102_150405"), run.ID)
	if compress {
		name += ".gz"
	}
	return name
}

// exportJSON writes the run to OutputDir. Callers hold b.mu.
func (b *Backend) exportJSON() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, ExportFileName(b.run, b.cfg.CompressOutput))
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	export := BuildExport(b.run, b.frames, b.endedAt)
	if err := WriteExport(f, export, b.cfg.CompressOutput); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	b.lastExportPath = outputPath
	return nil
}
