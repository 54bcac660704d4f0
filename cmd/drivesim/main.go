// Command drivesim loads a scenario from configuration, simulates it at a
// fixed tick rate and records every vehicle's telemetry.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/OCAP2/drivesim/internal/config"
	"github.com/OCAP2/drivesim/internal/influx"
	"github.com/OCAP2/drivesim/internal/logging"
	"github.com/OCAP2/drivesim/internal/monitor"
	intOtel "github.com/OCAP2/drivesim/internal/otel"
	"github.com/OCAP2/drivesim/internal/recorder"
	"github.com/OCAP2/drivesim/internal/sim"
	"github.com/OCAP2/drivesim/internal/storage"
	"github.com/OCAP2/drivesim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildVersion and BuildDate can be set at build time via ldflags
var (
	BuildVersion = "0.1.0"
	BuildDate    = "unknown"
)

const appName = "drivesim"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

// newFlagSet declares the command line. Flags bound to config keys override
// the config file only when given.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.StringP("config", "c", ".", "directory containing "+config.FileName)
	fs.BoolP("version", "v", false, "print the version and exit")
	fs.IntP("ticks", "n", 0, "ticks to simulate, 0 runs until interrupted")
	fs.String("name", "", "run name")
	fs.String("storage", "", "storage backend: memory, sqlite or postgres")
	fs.Bool("realtime", false, "pace ticks to the wall clock")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	return fs
}

var flagKeys = map[string]string{
	"ticks":     "sim.ticks",
	"name":      "sim.name",
	"storage":   "storage.type",
	"realtime":  "sim.realtime",
	"log-level": "logLevel",
}

func bindFlags(fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func run(args []string) error {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if v, _ := fs.GetBool("version"); v {
		fmt.Printf("%s %s (built %s)\n", appName, BuildVersion, BuildDate)
		return nil
	}
	if err := bindFlags(fs); err != nil {
		return err
	}
	configDir, _ := fs.GetString("config")
	if err := config.Load(configDir); err != nil {
		return err
	}

	sessionStart := time.Now()
	simCfg := config.GetSimConfig()
	logLevel := viper.GetString("logLevel")

	// Logging
	logPath := logging.LogFilePath(viper.GetString("logsDir"), appName, sessionStart)
	logFile, err := logging.OpenLogFile(logPath)
	if err != nil {
		return err
	}
	defer logFile.Close()

	provider, err := newOTelProvider(config.GetOTelConfig(), logFile)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Flush(ctx)
		_ = provider.Shutdown(ctx)
	}()

	var runner *sim.Runner
	slogManager := logging.NewSlogManager()
	slogManager.Context = logging.SimContext(simCfg.Name, func() uint64 {
		if runner == nil {
			return 0
		}
		return runner.Tick()
	})
	if gl := config.GetGraylogConfig(); gl.Enabled {
		if err := slogManager.AddGELF(gl.Address, logLevel); err != nil {
			return err
		}
	}
	var otelLogProvider *sdklog.LoggerProvider
	if provider.Enabled() {
		otelLogProvider = provider.LoggerProvider()
	}
	slogManager.Setup(logFile, logLevel, otelLogProvider)
	log := slogManager.Logger()
	log.Info("Starting", "version", BuildVersion, "build", BuildDate, "logFile", logPath)

	zl := logging.NewZerolog(logFile, logLevel, true)

	// Storage and telemetry sinks
	backend, err := storage.NewBackend(config.GetStorageConfig(), config.GetDBConfig(), zl)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("init %s storage: %w", config.GetStorageConfig().Type, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()

	telemetry, closeTelemetry := connectInflux(config.GetInfluxConfig(), zl, log, sessionStart)
	defer closeTelemetry()

	rec, err := recorder.New(logging.NewRecorderLogger(zl))
	if err != nil {
		return err
	}
	sim.RegisterHandlers(rec, backend, telemetry, simCfg.Name, config.GetRecorderConfig())

	// Run
	scenario, err := config.GetScenario()
	if err != nil {
		return err
	}
	t, err := loadTuning()
	if err != nil {
		return err
	}
	world, err := buildWorld(scenario.Obstacles)
	if err != nil {
		return err
	}

	simRun := &core.Run{
		Name:      simCfg.Name,
		StartTime: sessionStart.UTC(),
		TickRate:  simCfg.TickRate,
		Config: map[string]any{
			"ticks":       simCfg.Ticks,
			"parallelism": simCfg.Parallelism,
			"sampleEvery": simCfg.SampleEvery,
			"storage":     config.GetStorageConfig().Type,
			"obstacles":   len(scenario.Obstacles),
			"vehicles":    len(scenario.Vehicles),
		},
	}
	if err := backend.StartRun(simRun); err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	runner, err = sim.New(simRun, rec, log, sim.Options{
		TickRate:    simCfg.TickRate,
		Parallelism: simCfg.Parallelism,
		SampleEvery: simCfg.SampleEvery,
		Realtime:    simCfg.Realtime,
	})
	if err != nil {
		return err
	}

	for _, v := range scenario.Vehicles {
		spec, err := newVehicleSpec(v, t, world, scenario.Origin, log)
		if err != nil {
			log.Error("Skipping vehicle", "name", v.Name, "error", err)
			continue
		}
		_, _ = runner.AddVehicle(spec)
	}
	if len(runner.Vehicles()) == 0 {
		rec.Close()
		return errors.New("scenario has no drivable vehicles")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if mc := config.GetMonitorConfig(); mc.Enabled {
		status := newMonitor(mc, simCfg.Name, runner, backend, log)
		status.Start()
		defer status.Stop()
	}

	log.Info("Simulating", "ticks", simCfg.Ticks, "tickRate", simCfg.TickRate, "vehicles", len(runner.Vehicles()))
	started := time.Now()
	runErr := runner.Run(ctx, simCfg.Ticks)
	if errors.Is(runErr, context.Canceled) {
		log.Info("Interrupted", "tick", runner.Tick())
		runErr = nil
	}
	log.Info("Simulation finished", "ticks", runner.Tick(), "elapsed", time.Since(started))

	rec.Close()
	if err := backend.EndRun(); err != nil {
		return errors.Join(runErr, fmt.Errorf("end run: %w", err))
	}
	if exp, ok := backend.(storage.Exporter); ok && exp.ExportedFilePath() != "" {
		log.Info("Recording exported", "path", exp.ExportedFilePath())
		fmt.Println(exp.ExportedFilePath())
	}
	return runErr
}

func newMonitor(mc config.MonitorConfig, name string, runner *sim.Runner, backend storage.Backend, log *slog.Logger) *monitor.Service {
	deps := monitor.Dependencies{
		Logger:     log,
		Run:        name,
		Tick:       runner.Tick,
		Vehicles:   func() int { return len(runner.Vehicles()) },
		StatusPath: mc.StatusFile,
		Interval:   mc.Interval,
	}
	if pw, ok := backend.(storage.PendingWriter); ok {
		deps.Pending = pw.Pending
	}
	return monitor.NewService(deps)
}

func newOTelProvider(cfg config.OTelConfig, logFile io.Writer) (*intOtel.Provider, error) {
	oc := intOtel.Config{
		Enabled:        cfg.Enabled,
		ServiceName:    cfg.ServiceName,
		BatchTimeout:   cfg.BatchTimeout,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		MetricInterval: cfg.MetricInterval,
	}
	if cfg.Enabled {
		oc.LogWriter = logFile
		oc.MetricWriter = logFile
	}
	p, err := intOtel.New(oc)
	if err != nil {
		return nil, fmt.Errorf("otel provider: %w", err)
	}
	return p, nil
}

// connectInflux returns nil telemetry when InfluxDB is disabled or
// unavailable; the run is still recorded by the storage backend.
func connectInflux(cfg config.InfluxConfig, zl zerolog.Logger, log *slog.Logger, sessionStart time.Time) (recorder.Telemetry, func()) {
	noop := func() {}
	if !cfg.Enabled {
		return nil, noop
	}
	backup := filepath.Join(viper.GetString("logsDir"),
		fmt.Sprintf("%s_influx_%s.lp.gz", appName, sessionStart.Format("20060102_150405")))

	m := influx.NewManager(cfg, zl, backup)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		log.Warn("InfluxDB unavailable, telemetry points disabled", "error", err)
		return nil, noop
	}
	if !m.IsValid {
		log.Warn("InfluxDB unreachable, writing line protocol backup", "path", backup)
	}
	return m, func() {
		if err := m.Close(); err != nil {
			log.Error("Failed to close InfluxDB", "error", err)
		}
	}
}
