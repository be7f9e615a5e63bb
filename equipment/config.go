package equipment

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultBaudRate             = 115200
	DefaultMeasurementTolerance = 0.1
	DefaultMaxRetryAttempts     = 3
	DefaultLogFilePath          = "equipment_test.log"

	DefaultResponseTimeout  = 5 * time.Second // bounded read for one response line
	DefaultCalibrationDelay = 2 * time.Second // settle time before calibrating
)

// Configuration range limits.
const (
	MinResponseTimeout = 10 * time.Millisecond
	MaxResponseTimeout = 120 * time.Second

	MaxCalibrationDelay = 60 * time.Second

	MaxRetryAttempts = 31
)

// Config is the equipment configuration record.
//
// A Config is immutable once NewConfig returns; the controller only reads it.
type Config struct {
	// devicePort names the instrument channel; empty selects simulation.
	devicePort string
	baudRate   int

	measurementTolerance float64

	// maxRetryAttempts is validated and exposed but not consulted: every operation is
	// a single attempt.
	maxRetryAttempts int

	enableLogging bool
	logFilePath   string

	responseTimeout  time.Duration
	calibrationDelay time.Duration
}

// NewConfig creates a validated equipment configuration.
//
// devicePort is the instrument channel identifier, see DefaultOpener; an empty port
// selects simulation mode. opts are functional options applied in order.
func NewConfig(devicePort string, opts ...ConfigOption) (*Config, error) {
	cfg := &Config{
		devicePort:           strings.TrimSpace(devicePort),
		baudRate:             DefaultBaudRate,
		measurementTolerance: DefaultMeasurementTolerance,
		maxRetryAttempts:     DefaultMaxRetryAttempts,
		enableLogging:        true,
		logFilePath:          DefaultLogFilePath,
		responseTimeout:      DefaultResponseTimeout,
		calibrationDelay:     DefaultCalibrationDelay,
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// defaultConfig is used by a controller that was never initialized.
var defaultConfig, _ = NewConfig("")

// --- Getters ---

// DevicePort returns the instrument channel identifier.
func (cfg *Config) DevicePort() string { return cfg.devicePort }

// IsSimulation returns true when no device port is configured.
func (cfg *Config) IsSimulation() bool { return cfg.devicePort == "" }

// BaudRate returns the transport rate.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// MeasurementTolerance returns the configured measurement tolerance.
func (cfg *Config) MeasurementTolerance() float64 { return cfg.measurementTolerance }

// MaxRetryAttempts returns the configured retry limit. It is reserved: no retry loop
// consults it.
func (cfg *Config) MaxRetryAttempts() int { return cfg.maxRetryAttempts }

// LoggingEnabled returns whether logging is enabled.
func (cfg *Config) LoggingEnabled() bool { return cfg.enableLogging }

// LogFilePath returns the log file path.
func (cfg *Config) LogFilePath() string { return cfg.logFilePath }

// ResponseTimeout returns the maximum wait for one response line.
func (cfg *Config) ResponseTimeout() time.Duration { return cfg.responseTimeout }

// CalibrationDelay returns the settle time before a calibration.
func (cfg *Config) CalibrationDelay() time.Duration { return cfg.calibrationDelay }

// String returns a compact description for logs.
func (cfg *Config) String() string {
	port := cfg.devicePort
	if port == "" {
		port = "<simulation>"
	}

	return fmt.Sprintf("port=%s baud=%d timeout=%s", port, cfg.baudRate, cfg.responseTimeout)
}

// --- ConfigOption ---

// ConfigOption is a functional option for configuring a Config.
type ConfigOption interface {
	apply(*Config) error
}

type configOptFunc func(*Config) error

func (f configOptFunc) apply(cfg *Config) error { return f(cfg) }

// WithBaudRate sets the transport rate. It must be positive.
func WithBaudRate(rate int) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if rate <= 0 {
			return fmt.Errorf("equipment: baud rate %d must be positive", rate)
		}
		cfg.baudRate = rate

		return nil
	})
}

// WithMeasurementTolerance sets the measurement tolerance. It must be a finite value >= 0.
func WithMeasurementTolerance(tolerance float64) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if tolerance < 0 || math.IsNaN(tolerance) || math.IsInf(tolerance, 0) {
			return fmt.Errorf("equipment: measurement tolerance %v must be a finite value >= 0", tolerance)
		}
		cfg.measurementTolerance = tolerance

		return nil
	})
}

// WithMaxRetryAttempts sets the reserved retry limit, in [0, 31].
func WithMaxRetryAttempts(n int) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if n < 0 || n > MaxRetryAttempts {
			return fmt.Errorf("equipment: max retry attempts %d out of range [0, %d]", n, MaxRetryAttempts)
		}
		cfg.maxRetryAttempts = n

		return nil
	})
}

// WithLogging enables or disables logging. Enabled by default.
func WithLogging(enabled bool) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		cfg.enableLogging = enabled
		return nil
	})
}

// WithLogFilePath sets the log file path. An empty path keeps logging on stdout.
func WithLogFilePath(path string) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		cfg.logFilePath = strings.TrimSpace(path)
		return nil
	})
}

// WithResponseTimeout sets the maximum wait for one response line.
func WithResponseTimeout(d time.Duration) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if d < MinResponseTimeout || d > MaxResponseTimeout {
			return fmt.Errorf("equipment: response timeout %v out of range [%v, %v]", d, MinResponseTimeout, MaxResponseTimeout)
		}
		cfg.responseTimeout = d

		return nil
	})
}

// WithCalibrationDelay sets the settle time before a calibration, in [0, 60s].
func WithCalibrationDelay(d time.Duration) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if d < 0 || d > MaxCalibrationDelay {
			return fmt.Errorf("equipment: calibration delay %v out of range [0, %v]", d, MaxCalibrationDelay)
		}
		cfg.calibrationDelay = d

		return nil
	})
}
