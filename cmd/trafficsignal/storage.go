package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/internal/storage"
	influxstorage "github.com/trafficsignal/trafficsignal/internal/storage/influx"
	"github.com/trafficsignal/trafficsignal/internal/storage/memory"
	pgstorage "github.com/trafficsignal/trafficsignal/internal/storage/postgres"
	sqlitestorage "github.com/trafficsignal/trafficsignal/internal/storage/sqlite"
	wsstorage "github.com/trafficsignal/trafficsignal/internal/storage/websocket"
)

func initStorage(storageCfg config.StorageConfig) (storage.Backend, error) {
	Logger.Debug("Initializing storage", "type", storageCfg.Type)

	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend initialized")
		return pgstorage.New(config.GetDBConfig(), Logger, ZLog), nil

	case "sqlite":
		sqliteCfg := storageCfg.SQLite
		if sqliteCfg.DumpPath == "" {
			dir := storageCfg.Memory.OutputDir
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create recordings directory: %w", err)
			}
			sqliteCfg.DumpPath = filepath.Join(dir, fmt.Sprintf("%s_%s.db", AppName, SessionStartTime.Format("20060102_150405")))
		}
		backend, err := sqlitestorage.New(sqliteCfg, Logger, ZLog)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "path", sqliteCfg.DumpPath)
		return backend, nil

	case "websocket":
		wsCfg := storageCfg.WebSocket
		wsCfg.URL = httpToWS(wsCfg.URL)
		Logger.Info("WebSocket storage backend initialized", "url", wsCfg.URL)
		return wsstorage.New(wsCfg, Logger), nil

	case "influx":
		Logger.Info("InfluxDB storage backend initialized", "url", storageCfg.Influx.URL)
		return influxstorage.New(storageCfg.Influx, ZLog), nil

	case "memory", "":
		Logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
