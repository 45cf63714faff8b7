// Package postgres implements the storage.Backend interface on PostgreSQL by
// wrapping the GORM backend with a connection opened at Init.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/internal/database"
	gormstorage "github.com/trafficsignal/trafficsignal/internal/storage/gorm"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

// Backend writes runs and frames to Postgres.
type Backend struct {
	gorm *gormstorage.Backend
	cfg  config.DBConfig
	log  *slog.Logger
	zlog zerolog.Logger
}

// New creates a Postgres backend. No connection is made until Init.
func New(cfg config.DBConfig, logger *slog.Logger, zlog zerolog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, log: logger, zlog: zlog}
}

// Init connects, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres(b.cfg, b.zlog)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	b.gorm = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.log})
	return b.gorm.Init()
}

// Close stops the writer. Safe to call when Init failed.
func (b *Backend) Close() error {
	if b.gorm == nil {
		return nil
	}
	return b.gorm.Close()
}

func (b *Backend) StartRun(run *core.Run) error {
	if b.gorm == nil {
		return fmt.Errorf("postgres backend not initialized")
	}
	return b.gorm.StartRun(run)
}

func (b *Backend) EndRun() error {
	if b.gorm == nil {
		return fmt.Errorf("postgres backend not initialized")
	}
	return b.gorm.EndRun()
}

func (b *Backend) RecordFrame(f *core.Frame) error {
	if b.gorm == nil {
		return fmt.Errorf("postgres backend not initialized")
	}
	return b.gorm.RecordFrame(f)
}
