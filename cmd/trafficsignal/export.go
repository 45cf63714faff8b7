package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/internal/database"
	"github.com/trafficsignal/trafficsignal/internal/model"
	"github.com/trafficsignal/trafficsignal/internal/model/convert"
	"github.com/trafficsignal/trafficsignal/internal/storage/memory"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

// exportCommand handles `export [-o dir] [--gzip] <recording.db> [run-uuid...]`.
func exportCommand(args []string) error {
	flags := pflag.NewFlagSet("export", pflag.ContinueOnError)
	outDir := flags.StringP("out", "o", config.GetString("storage.memory.outputDir"), "output directory")
	compress := flags.Bool("gzip", config.GetBool("storage.memory.compressOutput"), "gzip the JSON output")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return errors.New("no recording provided")
	}

	paths, err := exportRecording(flags.Arg(0), flags.Args()[1:], *outDir, *compress, ZLog)
	if err != nil {
		return err
	}
	for _, p := range paths {
		Logger.Info("Exported run", "path", p)
	}
	return nil
}

// exportRecording writes one JSON document per run found in the SQLite
// recording at dbPath. When runIDs is empty every run is exported.
func exportRecording(dbPath string, runIDs []string, outDir string, compress bool, log zerolog.Logger) ([]string, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("recording %s: %w", dbPath, err)
	}

	db, err := database.OpenSQLite(dbPath, log)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var runs []model.Run
	q := db.Model(&model.Run{}).Order("id ASC")
	if len(runIDs) > 0 {
		q = q.Where("uuid IN ?", runIDs)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("error getting runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, errors.New("no runs found")
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(runs))
	for _, r := range runs {
		txStart := time.Now()
		p, err := exportRun(db, r, outDir, compress)
		if err != nil {
			return paths, fmt.Errorf("run %s: %w", r.UUID, err)
		}
		log.Debug().Str("run", r.UUID).Dur("duration", time.Since(txStart)).Msg("Exported run")
		paths = append(paths, p)
	}
	return paths, nil
}

func exportRun(db *gorm.DB, r model.Run, outDir string, compress bool) (string, error) {
	var stored []model.Frame
	err := db.Model(&model.Frame{}).
		Where("run_id = ?", r.ID).
		Order("seq ASC").
		Preload("Vehicles", func(tx *gorm.DB) *gorm.DB { return tx.Order("vehicle_id ASC") }).
		Find(&stored).Error
	if err != nil {
		return "", fmt.Errorf("error getting frames: %w", err)
	}

	frames := make([]core.Frame, 0, len(stored))
	for _, f := range stored {
		cf, err := convert.FrameToCore(f)
		if err != nil {
			return "", err
		}
		frames = append(frames, cf)
	}

	run := convert.RunToCore(r)
	endedAt := r.EndedAt.Time
	if !r.EndedAt.Valid && len(frames) > 0 {
		endedAt = frames[len(frames)-1].Time
	}

	export := memory.BuildExport(&run, frames, endedAt)
	if len(r.Layout) > 0 {
		if err := json.Unmarshal(r.Layout, &export.Layout); err != nil {
			return "", fmt.Errorf("error decoding layout: %w", err)
		}
	}

	outPath := filepath.Join(outDir, memory.ExportFileName(&run, compress))
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	if err := memory.WriteExport(out, export, compress); err != nil {
		out.Close()
		return "", err
	}
	return outPath, out.Close()
}
