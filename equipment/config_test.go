package equipment

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	require := require.New(t)

	cfg, err := NewConfig("  /dev/ttyUSB0 ")
	require.NoError(err)
	require.Equal("/dev/ttyUSB0", cfg.DevicePort())
	require.False(cfg.IsSimulation())
	require.Equal(DefaultBaudRate, cfg.BaudRate())
	require.InDelta(DefaultMeasurementTolerance, cfg.MeasurementTolerance(), 0)
	require.Equal(DefaultMaxRetryAttempts, cfg.MaxRetryAttempts())
	require.True(cfg.LoggingEnabled())
	require.Equal(DefaultLogFilePath, cfg.LogFilePath())
	require.Equal(DefaultResponseTimeout, cfg.ResponseTimeout())
	require.Equal(DefaultCalibrationDelay, cfg.CalibrationDelay())
	require.Contains(cfg.String(), "port=/dev/ttyUSB0")

	sim, err := NewConfig("")
	require.NoError(err)
	require.True(sim.IsSimulation())
	require.Contains(sim.String(), "<simulation>")
}

func TestNewConfig_Options(t *testing.T) {
	require := require.New(t)

	cfg, err := NewConfig("tcp://127.0.0.1:5000",
		WithBaudRate(9600),
		WithMeasurementTolerance(0.25),
		WithMaxRetryAttempts(0),
		WithLogging(false),
		WithLogFilePath("/tmp/equip.log"),
		WithResponseTimeout(time.Second),
		WithCalibrationDelay(0),
	)
	require.NoError(err)
	require.Equal(9600, cfg.BaudRate())
	require.InDelta(0.25, cfg.MeasurementTolerance(), 0)
	require.Zero(cfg.MaxRetryAttempts())
	require.False(cfg.LoggingEnabled())
	require.Equal("/tmp/equip.log", cfg.LogFilePath())
	require.Equal(time.Second, cfg.ResponseTimeout())
	require.Zero(cfg.CalibrationDelay())
}

func TestNewConfig_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  ConfigOption
	}{
		{"zero baud rate", WithBaudRate(0)},
		{"negative tolerance", WithMeasurementTolerance(-0.1)},
		{"NaN tolerance", WithMeasurementTolerance(math.NaN())},
		{"negative retries", WithMaxRetryAttempts(-1)},
		{"too many retries", WithMaxRetryAttempts(MaxRetryAttempts + 1)},
		{"short timeout", WithResponseTimeout(time.Millisecond)},
		{"long timeout", WithResponseTimeout(MaxResponseTimeout + time.Second)},
		{"negative delay", WithCalibrationDelay(-time.Second)},
		{"long delay", WithCalibrationDelay(MaxCalibrationDelay + time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig("", tt.opt)
			require.Error(t, err)
			require.Nil(t, cfg)
		})
	}
}
