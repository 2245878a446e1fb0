package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"rtdt-monitor.klederson.com/internal/app"
	"rtdt-monitor.klederson.com/internal/config"
	"rtdt-monitor.klederson.com/internal/emulator"
	"rtdt-monitor.klederson.com/internal/link"
	"rtdt-monitor.klederson.com/internal/logging"
)

var (
	flagConfig    string
	flagPort      string
	flagBaud      int
	flagRate      int
	flagMaxPoints int
	flagDemo      bool
	flagLogFile   string
	flagLogLevel  string
	flagRecordDir string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rtdt-monitor",
		Short: "RTDT Monitor - Terminal real-time telemetry monitor for an MPU6050 sensor board",
		Long: `RTDT Monitor talks to an ESP32 + MPU6050 board over a serial line, starts and
stops its readout, tunes its noise floor and sensor configuration, and draws
live acceleration, velocity and displacement strip charts.

Use --demo to run against a built-in device emulator (no hardware needed).`,
		SilenceUsage: true,
		RunE:         run,
	}

	f := rootCmd.Flags()
	f.StringVar(&flagConfig, "config", "", "YAML configuration file")
	f.StringVar(&flagPort, "port", "", "Serial port to connect to on start")
	f.IntVar(&flagBaud, "baud", config.DefaultBaudRate, "Serial baud rate")
	f.IntVar(&flagRate, "rate", config.Rates[0], "Readout period in milliseconds")
	f.IntVar(&flagMaxPoints, "max-points", config.DefaultMaxPoints, "Samples kept per axis")
	f.BoolVar(&flagDemo, "demo", false, "Run against the built-in device emulator")
	f.StringVar(&flagLogFile, "log-file", config.DefaultLogFile, "Log file (empty disables logging)")
	f.StringVar(&flagLogLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	f.StringVar(&flagRecordDir, "record-dir", ".", "Directory for CSV recordings")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer closer.Close()

	linkLog := logging.Component(logger, "link")
	var l *link.Link
	if cfg.Demo {
		demo := link.PortInfo{Name: config.DemoPort, Product: "device emulator"}
		l = link.New(linkLog, emulator.Opener(logging.Component(logger, "emulator")),
			link.WithExtraPorts(nil, demo), cfg.Serial.OpenTimeout)
	} else {
		l = link.New(linkLog, link.SerialOpener, link.SerialPorts, cfg.Serial.OpenTimeout)
	}

	logger.WithFields(logrus.Fields{
		"port": cfg.Serial.Port,
		"baud": cfg.Serial.BaudRate,
		"rate": cfg.Acquisition.RateMs,
		"demo": cfg.Demo,
	}).Info("starting")

	model := app.New(cfg, l, logger)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(config.TargetFPS),
	)
	model.Attach(p)

	_, err = p.Run()

	// The model disconnects on quit; this covers a killed program.
	if model.Controller().ConnectionState() != link.Disconnected {
		_ = model.Controller().Disconnect()
	}
	return err
}

// loadConfig reads the config file, if any, and applies flags set on the
// command line over it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Serial.Port = flagPort
	}
	if flags.Changed("baud") {
		cfg.Serial.BaudRate = flagBaud
	}
	if flags.Changed("rate") {
		cfg.Acquisition.RateMs = flagRate
	}
	if flags.Changed("max-points") {
		cfg.Acquisition.MaxPoints = flagMaxPoints
	}
	if flags.Changed("demo") {
		cfg.Demo = flagDemo
	}
	if flags.Changed("log-file") {
		cfg.Log.File = flagLogFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	if flags.Changed("record-dir") {
		cfg.Record.Dir = flagRecordDir
	}
	if cfg.Demo && cfg.Serial.Port == "" {
		cfg.Serial.Port = config.DemoPort
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
