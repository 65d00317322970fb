package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vst-systems/gm-controller/db"
	"github.com/vst-systems/gm-controller/internal/api"
	"github.com/vst-systems/gm-controller/internal/config"
	"github.com/vst-systems/gm-controller/internal/controllers/cyclecontroller"
	"github.com/vst-systems/gm-controller/internal/controllers/failsafecontroller"
	"github.com/vst-systems/gm-controller/internal/controllers/modecontroller"
	"github.com/vst-systems/gm-controller/internal/datadog"
	"github.com/vst-systems/gm-controller/internal/env"
	"github.com/vst-systems/gm-controller/internal/hwio"
	"github.com/vst-systems/gm-controller/internal/logging"
	"github.com/vst-systems/gm-controller/internal/notifications"
	"github.com/vst-systems/gm-controller/internal/pressure"
	"github.com/vst-systems/gm-controller/system/shutdown"
	"github.com/vst-systems/gm-controller/system/startup"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)
	env.Cfg = &cfg

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("db_path", cfg.DBPath).
		Bool("safe_mode", cfg.SafeMode).
		Msg("Starting GM panel controller")

	datadog.InitMetrics()
	notifications.Init()

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open settings database")
	}
	store := db.NewStore(conn)

	var lineDriver hwio.LineDriver
	var adc hwio.ADCReader
	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED: fake drivers, no hardware I/O")
		fake := hwio.NewFakeLineDriver()
		// bench rig reports panel power present so the failsafe stays quiet
		if pin := cfg.Pins["panel_power"]; pin != nil && pin.Line != nil {
			fake.SetLevel(*pin.Line, true)
		}
		lineDriver = fake
		adc = hwio.NewFakeADC(int(pressure.DefaultADCZero))
	} else {
		lineDriver, err = hwio.NewMCP23017(uint8(cfg.I2CBus), uint8(cfg.MCPDevice))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open GPIO expander")
		}
		adc, err = hwio.NewADS1115(cfg.ADCBus, uint16(cfg.ADCAddress), cfg.ADCChannel)
		if err != nil {
			// The panel still runs without pressure display; sample()
			// reports the sensor-unavailable sentinel instead.
			log.Warn().Err(err).Msg("Failed to open ADC, pressure readings unavailable")
			adc = nil
		}
	}

	pins, err := startup.BuildPinSet(&cfg, lineDriver)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid pin roster")
	}
	if err := startup.Initialize(&cfg, lineDriver, pins); err != nil {
		log.Fatal().Err(err).Msg("Refusing to start with unsafe pin states")
	}

	modes := modecontroller.New(pins, time.Duration(cfg.PinDelayMS)*time.Millisecond)
	cycles := cyclecontroller.New(modes, store)
	sensor := pressure.NewSensor(adc, store)
	readings := pressure.NewService(sensor, cfg.PressurePollSeconds)
	readings.Start()

	failsafe := failsafecontroller.New(pins, cycles, time.Duration(cfg.FailsafePollSeconds)*time.Second)
	failsafe.Start()

	shutdown.Register(cycles, modes, conn)

	server := api.NewServer(modes, cycles, sensor, readings)
	go func() {
		if err := server.Start(cfg.APIPort); err != nil {
			shutdown.ShutdownWithError(err, "API server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Signal received, shutting down")
	failsafe.Stop()
	readings.Stop()
	shutdown.Shutdown()
}
