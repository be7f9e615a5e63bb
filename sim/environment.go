package sim

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/arloliu/go-equiptest/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// Simulation defaults.
const (
	DefaultFailureProbability = 0.1
	DefaultMeasurementNoise   = 0.05

	// Failed measurements are drawn uniformly from [FailureValueMin, FailureValueMax).
	FailureValueMin = -1.0
	FailureValueMax = 10.0

	// Fallback model used for devices without a registered model.
	FallbackNominal    = 5.0
	FallbackStdDev     = 0.1
	FallbackPassWindow = 0.2
	FallbackUnits      = "V"
)

// Measurement notes.
const (
	NoteSimulatedFailure  = "Simulated device failure"
	NoteSimulationSuccess = "Simulation successful"
	NoteFallbackCompleted = "Simulation mode test completed"
)

var processStart = time.Now()

// Device is the model of one simulated device under test.
type Device struct {
	NominalValue float64
	Tolerance    float64
	Units        string
	// FailureMode forces every measurement to fail.
	FailureMode bool
}

// Measurement is one simulated reading.
type Measurement struct {
	Value  float64
	Units  string
	Passed bool
	Notes  string
}

// Environment is a fleet of simulated devices sharing one random source.
//
// It is safe for concurrent use.
type Environment struct {
	devices            *xsync.MapOf[string, Device]
	rng                *lockedSource
	failureProbability float64
	measurementNoise   float64
	startedAt          time.Time
	clock              func() time.Time
	logger             logger.Logger
}

// Option configures an Environment.
type Option interface {
	apply(*Environment) error
}

type optFunc func(*Environment) error

func (f optFunc) apply(env *Environment) error { return f(env) }

// WithSource sets the random source. The default is an unseeded PCG source.
func WithSource(src Source) Option {
	return optFunc(func(env *Environment) error {
		if src == nil {
			return fmt.Errorf("%w: nil source", ErrInvalidOption)
		}
		env.rng = &lockedSource{src: src}

		return nil
	})
}

// WithSeed sets a deterministic random source for seed.
func WithSeed(seed uint64) Option {
	return WithSource(NewSource(seed))
}

// WithFailureProbability sets the per-measurement probability of a spontaneous failure.
func WithFailureProbability(p float64) Option {
	return optFunc(func(env *Environment) error {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("%w: failure probability %v out of range [0, 1]", ErrInvalidOption, p)
		}
		env.failureProbability = p

		return nil
	})
}

// WithMeasurementNoise sets the standard deviation of the Gaussian measurement noise.
func WithMeasurementNoise(stddev float64) Option {
	return optFunc(func(env *Environment) error {
		if stddev < 0 || math.IsNaN(stddev) || math.IsInf(stddev, 0) {
			return fmt.Errorf("%w: measurement noise %v must be a finite value >= 0", ErrInvalidOption, stddev)
		}
		env.measurementNoise = stddev

		return nil
	})
}

// WithStartTime sets the instant uptime is measured from. The default is process start.
func WithStartTime(t time.Time) Option {
	return optFunc(func(env *Environment) error {
		env.startedAt = t
		return nil
	})
}

// WithClock sets the time source used for uptime.
func WithClock(clock func() time.Time) Option {
	return optFunc(func(env *Environment) error {
		if clock == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidOption)
		}
		env.clock = clock

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(env *Environment) error {
		if l != nil {
			env.logger = l
		}

		return nil
	})
}

// NewEnvironment creates an empty simulated fleet.
func NewEnvironment(opts ...Option) (*Environment, error) {
	env := &Environment{
		devices:            xsync.NewMapOf[string, Device](),
		failureProbability: DefaultFailureProbability,
		measurementNoise:   DefaultMeasurementNoise,
		startedAt:          processStart,
		clock:              time.Now,
		logger:             logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(env); err != nil {
			return nil, err
		}
	}

	if env.rng == nil {
		env.rng = &lockedSource{src: NewSource(uint64(time.Now().UnixNano()))}
	}

	return env, nil
}

// MustNewEnvironment is like NewEnvironment but panics on an invalid option.
func MustNewEnvironment(opts ...Option) *Environment {
	env, err := NewEnvironment(opts...)
	if err != nil {
		panic(err)
	}

	return env
}

// AddDevice registers or replaces a simulated device. The failure mode starts disabled.
func (env *Environment) AddDevice(deviceID string, nominalValue float64, tolerance float64) {
	env.AddDeviceModel(deviceID, Device{NominalValue: nominalValue, Tolerance: tolerance})
}

// AddDeviceModel registers or replaces a simulated device with a full model.
func (env *Environment) AddDeviceModel(deviceID string, dev Device) {
	env.devices.Store(deviceID, dev)
	env.logger.Debug("simulated device added",
		"device_id", deviceID, "nominal", dev.NominalValue, "tolerance", dev.Tolerance)
}

// RemoveDevice unregisters a simulated device. It reports whether the device existed.
func (env *Environment) RemoveDevice(deviceID string) bool {
	_, ok := env.devices.LoadAndDelete(deviceID)
	return ok
}

// SetDeviceFailure switches the failure mode of a registered device.
func (env *Environment) SetDeviceFailure(deviceID string, failure bool) error {
	_, ok := env.devices.Compute(deviceID, func(dev Device, loaded bool) (Device, bool) {
		if !loaded {
			return dev, true
		}
		dev.FailureMode = failure

		return dev, false
	})
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}

	return nil
}

// Device returns the model registered for deviceID.
func (env *Environment) Device(deviceID string) (Device, bool) {
	return env.devices.Load(deviceID)
}

// DeviceIDs returns the registered device ids in lexical order.
func (env *Environment) DeviceIDs() []string {
	ids := make([]string, 0, env.devices.Size())
	env.devices.Range(func(id string, _ Device) bool {
		ids = append(ids, id)
		return true
	})
	slices.Sort(ids)

	return ids
}

// SimulateMeasurement takes one reading from a registered device.
func (env *Environment) SimulateMeasurement(deviceID string) (Measurement, error) {
	dev, ok := env.devices.Load(deviceID)
	if !ok {
		return Measurement{Notes: ErrDeviceNotFound.Error()}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}

	return env.sample(dev), nil
}

// Measure implements the controller's simulator strategy.
//
// Registered devices use their own model; any other device id gets the fallback
// 5.0 V model with a ±0.2 V pass window. The test parameters are not interpreted.
func (env *Environment) Measure(deviceID string, _ []string) Measurement {
	if dev, ok := env.devices.Load(deviceID); ok {
		return env.sample(dev)
	}

	value := env.rng.normal(FallbackNominal, FallbackStdDev)

	return Measurement{
		Value:  value,
		Units:  FallbackUnits,
		Passed: math.Abs(value-FallbackNominal) < FallbackPassWindow,
		Notes:  NoteFallbackCompleted,
	}
}

func (env *Environment) sample(dev Device) Measurement {
	if dev.FailureMode || env.rng.bernoulli(env.failureProbability) {
		return Measurement{
			Value: env.rng.uniform(FailureValueMin, FailureValueMax),
			Units: dev.Units,
			Notes: NoteSimulatedFailure,
		}
	}

	value := dev.NominalValue + env.rng.normal(0, env.measurementNoise)

	return Measurement{
		Value:  value,
		Units:  dev.Units,
		Passed: math.Abs(value-dev.NominalValue) <= dev.Tolerance,
		Notes:  NoteSimulationSuccess,
	}
}
