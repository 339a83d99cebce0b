package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/db"
	"github.com/thatsimonsguy/irrigation-controller/internal/api"
	"github.com/thatsimonsguy/irrigation-controller/internal/config"
	"github.com/thatsimonsguy/irrigation-controller/internal/controllers/failsafecontroller"
	"github.com/thatsimonsguy/irrigation-controller/internal/controllers/housekeeping"
	"github.com/thatsimonsguy/irrigation-controller/internal/controllers/irrigationcontroller"
	"github.com/thatsimonsguy/irrigation-controller/internal/controllers/powerpolicy"
	"github.com/thatsimonsguy/irrigation-controller/internal/controllers/soilmonitor"
	"github.com/thatsimonsguy/irrigation-controller/internal/controllers/weathermonitor"
	"github.com/thatsimonsguy/irrigation-controller/internal/datadog"
	"github.com/thatsimonsguy/irrigation-controller/internal/env"
	"github.com/thatsimonsguy/irrigation-controller/internal/logging"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/notifications"
	"github.com/thatsimonsguy/irrigation-controller/internal/scheduler"
	"github.com/thatsimonsguy/irrigation-controller/internal/sensor"
	"github.com/thatsimonsguy/irrigation-controller/internal/state"
	"github.com/thatsimonsguy/irrigation-controller/internal/valve"
	"github.com/thatsimonsguy/irrigation-controller/system/shutdown"
	"github.com/thatsimonsguy/irrigation-controller/system/startup"
)

func main() {
	cfg := config.Load()
	env.Cfg = &cfg
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("db", cfg.DBPath).
		Int("time_unit_ms", cfg.TimeUnitMS).
		Msg("Starting irrigation controller")

	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED: valve writes are disabled system-wide")
	}

	datadog.InitMetrics()
	notifications.Init()

	valves := valve.NewDriver(cfg.ValveList(), valve.Options{
		WaterFor:   time.Duration(cfg.WaterSeconds) * time.Second,
		SafeMode:   cfg.SafeMode,
		SetRetries: 2,
	})
	if !cfg.SafeMode {
		if err := valves.ValidateClosed(); err != nil {
			log.Fatal().Err(err).Msg("Refusing to start due to unsafe valve states")
		}
	}

	if err := startup.WriteStartupScript(cfg.BootScriptPath, valves.Valves()); err != nil {
		log.Warn().Err(err).Str("path", cfg.BootScriptPath).Msg("Failed to write boot script")
	}

	dbConn, err := db.Open(cfg.DBPath)
	if err != nil {
		shutdown.ShutdownWithError(valves, err, "Failed to open audit database")
		return
	}
	recorder := db.Recorder{Conn: dbConn}

	var notifier notifications.Ntfy

	var reader sensor.Reader
	switch cfg.SensorSource {
	case config.SensorFile:
		reader = sensor.NewFileReader(cfg.SensorFile, cfg.SensorRetries)
	default:
		reader = sensor.NewSimulated(time.Now().UnixNano())
	}

	st := state.New()
	sched := scheduler.New(time.Duration(cfg.TimeUnitMS) * time.Millisecond)

	soilmonitor.RunSoilMonitor(sched, soilmonitor.New(reader, st))
	weathermonitor.RunWeatherMonitor(sched, weathermonitor.New(reader, st))
	irrigationcontroller.RunIrrigationController(sched, irrigationcontroller.New(st, valves, recorder, notifier))
	if !cfg.SafeMode {
		failsafecontroller.RunFailsafeController(sched, failsafecontroller.New(valves, st, notifier))
	}
	housekeeping.RunLoggingTask(sched)
	housekeeping.RunLowPowerTask(sched)
	sched.OnIdle(powerpolicy.New(st, sched, sched.Units(model.LowPowerDurationUnits), recorder, notifier))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(dbConn, st, cfg.SafeMode)
	go func() {
		if err := server.Start(ctx, cfg.APIPort); err != nil {
			log.Error().Err(err).Msg("API server stopped")
		}
	}()

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Scheduler stopped unexpectedly")
	}

	log.Info().Msg("Shutting down")
	dbConn.Close()
	datadog.Close()
	shutdown.Shutdown(valves)
}
