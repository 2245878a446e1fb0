package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SerialConfig selects the device port.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// AcquisitionConfig sizes the rolling window and the initial readout rate.
type AcquisitionConfig struct {
	MaxPoints int `yaml:"max_points"`
	RateMs    int `yaml:"rate_ms"`
}

// DeviceConfig holds the raw strings sent with set_accel_noise_floor and
// set_mpu6050_config. They are transmitted verbatim.
type DeviceConfig struct {
	AccelNoiseFloor string `yaml:"accel_noise_floor"`
	MPU6050Config   string `yaml:"mpu6050_config"`
}

// RangeConfig is the symmetric value range of each chart.
type RangeConfig struct {
	Acceleration float64 `yaml:"acceleration"`
	Velocity     float64 `yaml:"velocity"`
	Displacement float64 `yaml:"displacement"`
}

type ChartConfig struct {
	Ranges     RangeConfig `yaml:"ranges"`
	ExportDir  string      `yaml:"export_dir"`
	ExportSize struct {
		Width  float64 `yaml:"width"`
		Height float64 `yaml:"height"`
	} `yaml:"export_size"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

type RecordConfig struct {
	Dir string `yaml:"dir"`
}

// Config is the top-level structure of the YAML configuration file.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Device      DeviceConfig      `yaml:"device"`
	Chart       ChartConfig       `yaml:"chart"`
	Log         LogConfig         `yaml:"log"`
	Record      RecordConfig      `yaml:"record"`
	Demo        bool              `yaml:"demo"`
}

// Default returns the configuration the monitor runs with when no file is given.
func Default() *Config {
	cfg := &Config{
		Serial: SerialConfig{
			BaudRate:    DefaultBaudRate,
			OpenTimeout: DefaultOpenTimeout,
		},
		Acquisition: AcquisitionConfig{
			MaxPoints: DefaultMaxPoints,
			RateMs:    Rates[0],
		},
		Device: DeviceConfig{
			AccelNoiseFloor: DefaultNoiseFloor,
			MPU6050Config:   DefaultMPUConfig,
		},
		Chart: ChartConfig{
			Ranges: RangeConfig{
				Acceleration: DefaultAccelRange,
				Velocity:     DefaultVelocRange,
				Displacement: DefaultDisplRange,
			},
			ExportDir: ".",
		},
		Log: LogConfig{
			File:  DefaultLogFile,
			Level: DefaultLogLevel,
		},
		Record: RecordConfig{Dir: "."},
	}
	cfg.Chart.ExportSize.Width = DefaultPlotWidth
	cfg.Chart.ExportSize.Height = DefaultPlotHeight * 3
	return cfg
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the pipeline itself depends on. Device settings
// (rate, noise floor, MPU config) are sent as-is and checked by the device.
func (c *Config) Validate() error {
	var errs []error
	if c.Serial.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate))
	}
	if c.Serial.OpenTimeout <= 0 {
		errs = append(errs, fmt.Errorf("serial.open_timeout must be positive, got %s", c.Serial.OpenTimeout))
	}
	if c.Acquisition.MaxPoints <= 0 {
		errs = append(errs, fmt.Errorf("acquisition.max_points must be positive, got %d", c.Acquisition.MaxPoints))
	}
	r := c.Chart.Ranges
	if r.Acceleration <= 0 || r.Velocity <= 0 || r.Displacement <= 0 {
		errs = append(errs, fmt.Errorf("chart.ranges must be positive, got %+v", r))
	}
	return errors.Join(errs...)
}
