// Package config loads the equipment configuration file.
//
// The file is YAML with snake_case keys; durations are Go duration strings. Omitted
// keys keep the defaults of the equipment and sim packages.
//
//	device_port: tcp://10.0.0.12:4001
//	baud_rate: 115200
//	measurement_tolerance: 0.1
//	max_retry_attempts: 3
//	enable_logging: true
//	log_file_path: logs/equipment_test.log
//	log_level: info
//	response_timeout: 5s
//	calibration_delay: 2s
//	simulation:
//	  seed: 42
//	  failure_probability: 0.1
//	  devices:
//	    - id: DEV001
//	      nominal_value: 5.0
//	      tolerance: 0.1
//	suites:
//	  - suites/basic_electrical.yaml
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-equiptest/equipment"
	"github.com/arloliu/go-equiptest/logger"
	"github.com/arloliu/go-equiptest/sim"
)

// ErrInvalidConfig indicates a configuration file that cannot be applied.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// File is the decoded configuration file.
type File struct {
	DevicePort           string         `yaml:"device_port"`
	BaudRate             *int           `yaml:"baud_rate"`
	MeasurementTolerance *float64       `yaml:"measurement_tolerance"`
	MaxRetryAttempts     *int           `yaml:"max_retry_attempts"`
	EnableLogging        *bool          `yaml:"enable_logging"`
	LogFilePath          *string        `yaml:"log_file_path"`
	LogLevel             string         `yaml:"log_level"`
	ResponseTimeout      *time.Duration `yaml:"response_timeout"`
	CalibrationDelay     *time.Duration `yaml:"calibration_delay"`

	Simulation Simulation `yaml:"simulation"`

	// Suites lists suite files, relative to the configuration file.
	Suites []string `yaml:"suites"`

	dir string
}

// Simulation configures the simulated environment.
type Simulation struct {
	Seed               *uint64         `yaml:"seed"`
	FailureProbability *float64        `yaml:"failure_probability"`
	MeasurementNoise   *float64        `yaml:"measurement_noise"`
	Devices            []SimulatedUnit `yaml:"devices"`
}

// SimulatedUnit registers one simulated device.
type SimulatedUnit struct {
	ID           string  `yaml:"id"`
	NominalValue float64 `yaml:"nominal_value"`
	Tolerance    float64 `yaml:"tolerance"`
	Units        string  `yaml:"units"`
	FailureMode  bool    `yaml:"failure_mode"`
}

// Parse decodes a configuration document and checks that it can be applied.
// Unknown keys are rejected. An empty document yields the defaults.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, err := f.EquipmentConfig(); err != nil {
		return nil, err
	}
	if f.LogLevel != "" {
		if _, ok := logger.ParseLevel(f.LogLevel); !ok {
			return nil, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, f.LogLevel)
		}
	}
	for i, dev := range f.Simulation.Devices {
		if dev.ID == "" {
			return nil, fmt.Errorf("%w: simulation device %d has no id", ErrInvalidConfig, i)
		}
	}
	if _, err := f.NewSimulator(logger.NewDiscard()); err != nil {
		return nil, err
	}

	return &f, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.dir = filepath.Dir(path)

	return f, nil
}

// EquipmentConfig builds the validated equipment configuration.
func (f *File) EquipmentConfig() (*equipment.Config, error) {
	var opts []equipment.ConfigOption
	if f.BaudRate != nil {
		opts = append(opts, equipment.WithBaudRate(*f.BaudRate))
	}
	if f.MeasurementTolerance != nil {
		opts = append(opts, equipment.WithMeasurementTolerance(*f.MeasurementTolerance))
	}
	if f.MaxRetryAttempts != nil {
		opts = append(opts, equipment.WithMaxRetryAttempts(*f.MaxRetryAttempts))
	}
	if f.EnableLogging != nil {
		opts = append(opts, equipment.WithLogging(*f.EnableLogging))
	}
	if f.LogFilePath != nil {
		opts = append(opts, equipment.WithLogFilePath(*f.LogFilePath))
	}
	if f.ResponseTimeout != nil {
		opts = append(opts, equipment.WithResponseTimeout(*f.ResponseTimeout))
	}
	if f.CalibrationDelay != nil {
		opts = append(opts, equipment.WithCalibrationDelay(*f.CalibrationDelay))
	}

	cfg, err := equipment.NewConfig(f.DevicePort, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// NewLogger builds the logger described by the file.
//
// With logging disabled it returns a discarding logger. Otherwise records are appended
// to the log file, or written to stdout when the path is empty. The returned close
// function releases the log file and is never nil.
func (f *File) NewLogger() (logger.Logger, func() error, error) {
	noop := func() error { return nil }

	cfg, err := f.EquipmentConfig()
	if err != nil {
		return nil, noop, err
	}

	if !cfg.LoggingEnabled() {
		return logger.NewDiscard(), noop, nil
	}

	level := logger.InfoLevel
	if f.LogLevel != "" {
		if parsed, ok := logger.ParseLevel(f.LogLevel); ok {
			level = parsed
		}
	}

	if cfg.LogFilePath() == "" {
		return logger.NewSlog(level, false), noop, nil
	}

	l, err := logger.NewFile(f.resolve(cfg.LogFilePath()), level)
	if err != nil {
		return nil, noop, err
	}

	return l, l.Close, nil
}

// SimOptions returns the sim options described by the simulation section.
func (f *File) SimOptions() []sim.Option {
	var opts []sim.Option
	if s := f.Simulation.Seed; s != nil {
		opts = append(opts, sim.WithSeed(*s))
	}
	if p := f.Simulation.FailureProbability; p != nil {
		opts = append(opts, sim.WithFailureProbability(*p))
	}
	if n := f.Simulation.MeasurementNoise; n != nil {
		opts = append(opts, sim.WithMeasurementNoise(*n))
	}

	return opts
}

// NewSimulator creates the simulated environment and registers the configured devices.
func (f *File) NewSimulator(l logger.Logger) (*sim.Environment, error) {
	env, err := sim.NewEnvironment(append(f.SimOptions(), sim.WithLogger(l))...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for _, dev := range f.Simulation.Devices {
		env.AddDeviceModel(dev.ID, sim.Device{
			NominalValue: dev.NominalValue,
			Tolerance:    dev.Tolerance,
			Units:        dev.Units,
			FailureMode:  dev.FailureMode,
		})
	}

	return env, nil
}

// SuitePaths returns the configured suite files resolved against the configuration
// file's directory.
func (f *File) SuitePaths() []string {
	paths := make([]string, 0, len(f.Suites))
	for _, p := range f.Suites {
		paths = append(paths, f.resolve(p))
	}

	return paths
}

func (f *File) resolve(path string) string {
	if f.dir == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(f.dir, path)
}
