package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/trafficsignal/trafficsignal/internal/api"
	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/internal/logging"
	intOtel "github.com/trafficsignal/trafficsignal/internal/otel"
	"github.com/trafficsignal/trafficsignal/internal/simulation"
	"github.com/trafficsignal/trafficsignal/internal/storage"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "trafficsignal"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager = logging.NewSlogManager()

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	// ZLog is handed to the database and influx layers
	ZLog zerolog.Logger = zerolog.Nop()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFile     *os.File
	LogFilePath string

	// GraylogWriter is the GELF connection, nil when Graylog is disabled
	GraylogWriter io.Closer

	SessionStartTime time.Time = time.Now()

	// current simulation, read by the log context provider
	activeController atomic.Pointer[simulation.Controller]
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	configDir := flags.StringP("config", "c", ".", "directory containing "+config.FileName)
	version := flags.BoolP("version", "v", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *version {
		fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return 0
	}

	SlogManager.Setup(logging.Options{Level: "info"})
	Logger = SlogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", *configDir)
	}

	setupLogging()
	defer closeLogging()

	rest := flags.Args()
	command := "run"
	if len(rest) > 0 {
		command = strings.ToLower(rest[0])
		rest = rest[1:]
	}

	var err error
	switch command {
	case "run":
		err = runSimulation()
	case "export":
		err = exportCommand(rest)
	case "step":
		err = stepCommand(rest, os.Stdout)
	default:
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		Logger.Error("Command failed", "command", command, "error", err)
		return 1
	}
	return 0
}

// setupLogging opens the session log file and rebuilds the logger with the
// configured outputs. Failures fall back to stdout.
func setupLogging() {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	var logOut io.Writer = os.Stdout
	if LogFile != nil {
		logOut = LogFile
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logOut,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		} else {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	opts := logging.Options{
		File:    LogFile,
		Level:   config.GetString("logLevel"),
		Context: runContext,
	}
	if OTelProvider != nil {
		opts.Provider = OTelProvider.LoggerProvider()
	}

	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		w, err := logging.NewGraylogWriter(graylogCfg.Address, AppName)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err, "address", graylogCfg.Address)
		} else {
			opts.Graylog = w
			GraylogWriter = w
		}
	}

	SlogManager.Setup(opts)
	Logger = SlogManager.Logger()
	if LogFile != nil {
		Logger.Info("Logging to file", "path", LogFilePath)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString("logLevel")))
	if err != nil {
		level = zerolog.InfoLevel
	}
	ZLog = zerolog.New(logOut).Level(level).With().Timestamp().Str("app", AppName).Logger()
}

// runContext adds the current run ID to every log record.
func runContext() []slog.Attr {
	controller := activeController.Load()
	if controller == nil {
		return nil
	}
	if id := controller.Run().ID; id != "" {
		return []slog.Attr{slog.String("run", id)}
	}
	return nil
}

func closeLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shut down OTel provider: %v\n", err)
		}
	}
	if GraylogWriter != nil {
		if err := GraylogWriter.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close Graylog writer: %v\n", err)
		}
		GraylogWriter = nil
	}
	if LogFile != nil {
		LogFile.Close()
	}
}

// runSimulation runs until SIGINT or SIGTERM, then shuts the simulation down.
func runSimulation() error {
	simCfg, err := config.GetSimulationConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	backend, err := initStorage(config.GetStorageConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	controller, err := simulation.New(simCfg, simulation.Dependencies{
		Sink:   backend,
		Logger: Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}
	activeController.Store(controller)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := controller.Start(ctx); err != nil {
		_ = controller.Shutdown(context.Background())
		return fmt.Errorf("failed to start simulation: %w", err)
	}
	Logger.Info("Running, press Ctrl+C to stop", "version", CurrentVersion)

	<-ctx.Done()
	Logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := controller.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if exp, ok := backend.(storage.Exporter); ok && exp.ExportedFilePath() != "" {
		Logger.Info("Run exported", "path", exp.ExportedFilePath())
		uploadRun(controller, exp.ExportedFilePath())
	}
	return nil
}

// uploadRun sends the exported run to the web frontend when uploads are enabled.
// Failures are logged; the export stays on disk.
func uploadRun(controller *simulation.Controller, path string) {
	apiCfg := config.GetAPIConfig()
	if !apiCfg.Upload {
		return
	}

	client := api.New(apiCfg.ServerURL, apiCfg.APIKey)
	if err := client.Healthcheck(); err != nil {
		Logger.Warn("Frontend is offline, skipping upload", "error", err)
		return
	}

	r := controller.Run()
	err := client.Upload(path, api.RunMetadata{
		RunID:     r.ID,
		StartedAt: r.StartedAt,
		Duration:  time.Since(r.StartedAt),
		Frames:    controller.Frames(),
	})
	if err != nil {
		Logger.Error("Failed to upload run", "error", err, "path", path)
		return
	}
	Logger.Info("Uploaded run", "path", path, "server", apiCfg.ServerURL)
}
