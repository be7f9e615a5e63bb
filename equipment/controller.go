package equipment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-equiptest/internal/pool"
	"github.com/arloliu/go-equiptest/internal/util"
	"github.com/arloliu/go-equiptest/logger"
	"github.com/arloliu/go-equiptest/protocol"
	"github.com/arloliu/go-equiptest/sim"
)

// Status messages passed to observers.
const (
	msgInitialized           = "Equipment initialized successfully"
	msgInitializedSimulation = "Equipment initialized (simulation mode)"
	msgStarted               = "Equipment started"
	msgStopped               = "Equipment stopped"
	msgPaused                = "Equipment paused"
	msgResumed               = "Equipment resumed"
	msgCalibrating           = "Calibration in progress"
	msgCalibrated            = "Calibration completed successfully"
	msgCalibratedSimulation  = "Calibration completed (simulation)"
	msgCalibrationFailed     = "Calibration failed"
)

// Rejection messages recorded as the last error.
const (
	errMsgStart     = "Equipment must be in IDLE or PAUSED state to start"
	errMsgPause     = "Equipment must be running to pause"
	errMsgResume    = "Equipment must be paused to resume"
	errMsgCalibrate = "Equipment must be idle for calibration"
)

// Simulator produces measurements and telemetry when no channel is attached.
//
// *sim.Environment implements it.
type Simulator interface {
	Measure(deviceID string, params []string) sim.Measurement
	HealthMetrics() sim.HealthMetrics
}

// operation names a gated controller operation.
type operation string

const (
	opStart     operation = "start"
	opPause     operation = "pause"
	opResume    operation = "resume"
	opCalibrate operation = "calibrate"
)

// allowedFrom is the transition table for gated operations.
// Each switch lists every status so that a new status forces a review here.
func allowedFrom(op operation, s Status) bool {
	switch op {
	case opStart:
		switch s {
		case IdleStatus, PausedStatus:
			return true
		case RunningStatus, ErrorStatus, MaintenanceStatus:
			return false
		}
	case opPause:
		switch s {
		case RunningStatus:
			return true
		case IdleStatus, PausedStatus, ErrorStatus, MaintenanceStatus:
			return false
		}
	case opResume:
		switch s {
		case PausedStatus:
			return true
		case IdleStatus, RunningStatus, ErrorStatus, MaintenanceStatus:
			return false
		}
	case opCalibrate:
		switch s {
		case IdleStatus:
			return true
		case RunningStatus, PausedStatus, ErrorStatus, MaintenanceStatus:
			return false
		}
	}

	return false
}

// Controller drives one instrument.
//
// Status transitions and observer dispatch are serialized by one mutex. Channel I/O is
// serialized separately, one request/response pair at a time.
type Controller struct {
	mu        sync.Mutex // guards transitions, observers and the channel swap
	status    atomic.Uint32
	lastError atomic.Pointer[string]
	observers []StatusObserver

	cfg       atomic.Pointer[Config]
	transport atomic.Pointer[lineTransport]
	chState   atomicChanState

	simulator Simulator
	opener    ChannelOpener
	clock     func() time.Time
	logger    logger.Logger

	metrics ControllerMetrics
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSimulator sets the measurement strategy used without a channel.
func WithSimulator(s Simulator) ControllerOption {
	return func(c *Controller) {
		if s != nil {
			c.simulator = s
		}
	}
}

// WithChannelOpener sets the function used by Initialize to open the device port.
func WithChannelOpener(opener ChannelOpener) ControllerOption {
	return func(c *Controller) {
		if opener != nil {
			c.opener = opener
		}
	}
}

// WithClock sets the time source for test identifiers and timestamps.
func WithClock(clock func() time.Time) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewController creates an idle controller in simulation mode.
// Call Initialize to apply a configuration and attach the instrument channel.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		opener: DefaultOpener,
		clock:  time.Now,
		logger: logger.GetLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.simulator == nil {
		c.simulator = sim.MustNewEnvironment(sim.WithLogger(c.logger))
	}

	c.status.Store(uint32(IdleStatus))
	c.cfg.Store(defaultConfig)

	return c
}

// Status returns the current status.
func (c *Controller) Status() Status {
	return Status(c.status.Load())
}

// LastError returns the most recent failure or rejection message.
func (c *Controller) LastError() string {
	if msg := c.lastError.Load(); msg != nil {
		return *msg
	}

	return ""
}

// Config returns the active configuration.
func (c *Controller) Config() *Config {
	return c.cfg.Load()
}

// Metrics returns the controller counters.
func (c *Controller) Metrics() *ControllerMetrics {
	return &c.metrics
}

// IsChannelOpen reports whether an instrument channel is attached.
func (c *Controller) IsChannelOpen() bool {
	return c.chState.isOpened()
}

// AddObserver registers observers, invoked in registration order. Nil values are ignored.
func (c *Controller) AddObserver(observers ...StatusObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, obs := range observers {
		if obs != nil {
			c.observers = append(c.observers, obs)
		}
	}
}

// Initialize applies cfg and resets the controller.
//
// Any attached channel is closed. When cfg names a device port, the channel is opened;
// on failure the status becomes ErrorStatus and the returned error wraps
// ErrConnectionFailure. Otherwise the status becomes IdleStatus.
func (c *Controller) Initialize(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeChannelLocked()
	c.cfg.Store(cfg)

	if cfg.IsSimulation() {
		c.logger.Info("no device port configured, using simulation", "config", cfg.String())
		c.setStatusLocked(IdleStatus, msgInitializedSimulation)

		return nil
	}

	c.chState.toOpening()
	ch, err := c.opener(ctx, cfg.DevicePort(), cfg.BaudRate())
	if err != nil {
		c.chState.toClosed()

		msg := "Initialization failed: " + err.Error()
		c.setLastError(msg)
		c.logger.Error("failed to open instrument channel", "port", cfg.DevicePort(), "error", err)
		c.setStatusLocked(ErrorStatus, msg)

		return fmt.Errorf("%w: %s: %w", ErrConnectionFailure, cfg.DevicePort(), err)
	}

	c.transport.Store(newLineTransport(ch, c.logger.With("port", cfg.DevicePort())))
	c.chState.toOpened()
	c.logger.Info("connected to instrument", "port", cfg.DevicePort(), "baud_rate", cfg.BaudRate())
	c.setStatusLocked(IdleStatus, msgInitialized)

	return nil
}

// Start moves the equipment from Idle or Paused to Running.
func (c *Controller) Start() error {
	return c.transition(opStart, RunningStatus, msgStarted, errMsgStart)
}

// Stop moves the equipment to Idle from any status.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setStatusLocked(IdleStatus, msgStopped)
}

// Pause moves the equipment from Running to Paused.
func (c *Controller) Pause() error {
	return c.transition(opPause, PausedStatus, msgPaused, errMsgPause)
}

// Resume moves the equipment from Paused to Running.
func (c *Controller) Resume() error {
	return c.transition(opResume, RunningStatus, msgResumed, errMsgResume)
}

// RunTest executes one test on deviceID and returns its result.
//
// Outside RunningStatus it returns a failed result without any I/O. Protocol and
// transport problems are reported through a failed result; RunTest never panics on
// instrument input.
func (c *Controller) RunTest(ctx context.Context, deviceID string, params []string) TestResult {
	now := c.clock()
	result := TestResult{
		TestID:    GenerateTestID(now),
		DeviceID:  deviceID,
		Timestamp: now,
	}

	if c.Status() != RunningStatus {
		result.Notes = NoteNotRunning
		c.metrics.recordResult(false)

		return result
	}

	c.metrics.incTestRunCount()

	if t := c.transport.Load(); t != nil && c.chState.isOpened() {
		c.runOnChannel(ctx, t, &result, params)
	} else {
		m := c.simulator.Measure(deviceID, util.CloneSlice(params, 0))
		result.MeasurementValue = Value(m.Value)
		result.Units = m.Units
		result.Passed = m.Passed
		result.Notes = m.Notes
	}

	c.metrics.recordResult(result.Passed)
	c.logger.Debug("test executed",
		"test_id", result.TestID, "device_id", deviceID, "passed", result.Passed, "notes", result.Notes)

	return result
}

func (c *Controller) runOnChannel(ctx context.Context, t *lineTransport, result *TestResult, params []string) {
	req, err := protocol.EncodeTest(result.DeviceID, params)
	if err != nil {
		result.Notes = NoteInvalidCommand + ": " + err.Error()
		c.metrics.incProtocolErrCount()

		return
	}

	line, err := t.exchange(ctx, req, c.Config().ResponseTimeout())
	if err != nil {
		if errors.Is(err, errResponseTimeout) {
			result.Notes = NoteNoResponse
			c.metrics.incProtocolErrCount()

			return
		}

		result.Notes = NoteExecutionError + ": " + err.Error()
		c.metrics.incTransportErrCount()
		c.logger.Error("test execution error", "device_id", result.DeviceID, "error", err)

		return
	}

	resp, err := protocol.DecodeResult(line)
	if err != nil {
		c.metrics.incProtocolErrCount()

		switch {
		case errors.Is(err, protocol.ErrNoResponse):
			result.Notes = NoteNoResponse
		case errors.Is(err, protocol.ErrInvalidFormat):
			result.Notes = NoteInvalidFormat + ": " + line
		case errors.Is(err, protocol.ErrInvalidValue):
			// the format check passed, so the value field exists
			result.Notes = NoteInvalidValue + ": " + strings.Split(line, protocol.Delimiter)[1]
		default:
			result.Notes = NoteExecutionError + ": " + err.Error()
		}
		c.logger.Warn("unexpected instrument response", "device_id", result.DeviceID, "line", line, "error", err)

		return
	}

	result.MeasurementValue = Value(resp.Value)
	result.Units = resp.Units
	result.Passed = resp.Passed
	result.Notes = NoteCompleted
}

// Calibrate runs the calibration procedure.
//
// It is only allowed from Idle. The status is Maintenance for the duration of the
// procedure and ends as Idle on success or Error on failure. A missing or negative
// acknowledgement returns an error wrapping ErrCalibrationFailure.
func (c *Controller) Calibrate(ctx context.Context) error {
	if err := c.transition(opCalibrate, MaintenanceStatus, msgCalibrating, errMsgCalibrate); err != nil {
		return err
	}

	c.metrics.incCalibrationCount()
	cfg := c.Config()

	if err := pool.Sleep(ctx, cfg.CalibrationDelay()); err != nil {
		return c.failCalibration("Calibration error: "+err.Error(), err)
	}

	t := c.transport.Load()
	if t == nil || !c.chState.isOpened() {
		c.finishCalibration(IdleStatus, msgCalibratedSimulation, false)
		return nil
	}

	line, err := t.exchange(ctx, protocol.EncodeCalibrate(), cfg.ResponseTimeout())
	if err != nil && !errors.Is(err, errResponseTimeout) {
		return c.failCalibration("Calibration error: "+err.Error(), err)
	}

	if !protocol.IsCalibrationAck(line) {
		c.metrics.incCalibrationFailCount()
		c.finishCalibration(ErrorStatus, msgCalibrationFailed, true)

		return fmt.Errorf("%w: response %q", ErrCalibrationFailure, line)
	}

	c.finishCalibration(IdleStatus, msgCalibrated, false)

	return nil
}

func (c *Controller) failCalibration(msg string, cause error) error {
	c.metrics.incCalibrationFailCount()
	c.logger.Error("calibration error", "error", cause)
	c.finishCalibration(ErrorStatus, msg, true)

	return fmt.Errorf("%w: %w", ErrCalibrationFailure, cause)
}

// finishCalibration leaves Maintenance for status. A transition made while the
// procedure ran (Stop, then Start) wins, and the outcome is only logged.
func (c *Controller) finishCalibration(status Status, message string, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur := c.Status(); cur != MaintenanceStatus {
		c.logger.Warn("calibration outcome superseded",
			"status", cur, "outcome", status, "message", message)

		return
	}

	if failed {
		c.setLastError(message)
	}
	c.setStatusLocked(status, message)
}

// HealthMetrics returns placeholder telemetry from the simulator.
// The values are synthetic even when an instrument channel is attached.
func (c *Controller) HealthMetrics() sim.HealthMetrics {
	return c.simulator.HealthMetrics()
}

// Close detaches and closes the instrument channel. The status is not changed.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closeChannelLocked()
}

func (c *Controller) closeChannelLocked() error {
	t := c.transport.Swap(nil)
	if t == nil {
		c.chState.toClosed()
		return nil
	}

	c.chState.toClosing()
	err := t.close()
	c.chState.toClosed()
	c.logger.Info("instrument channel closed", "error", err)

	return err
}

// transition applies a gated transition in one critical section.
func (c *Controller) transition(op operation, target Status, message string, rejectMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.Status()
	if !allowedFrom(op, cur) {
		c.metrics.incRejectedTransitionCount()
		c.setLastError(rejectMsg)
		c.logger.Warn("status transition rejected", "operation", op, "status", cur, "reason", rejectMsg)

		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, cur)
	}

	c.setStatusLocked(target, message)

	return nil
}

func (c *Controller) setStatus(status Status, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setStatusLocked(status, message)
}

// setStatusLocked stores status and notifies observers. c.mu must be held.
func (c *Controller) setStatusLocked(status Status, message string) {
	prev := c.Status()
	c.status.Store(uint32(status))
	c.metrics.incTransitionCount()
	c.logger.Info("status changed", "prev_status", prev, "status", status, "message", message)

	c.invokeObservers(status, message)
}

func (c *Controller) invokeObservers(status Status, message string) {
	for i, obs := range c.observers {
		c.callObserver(i, obs, status, message)
	}
}

func (c *Controller) callObserver(idx int, obs StatusObserver, status Status, message string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("status observer panicked", "observer", idx, "status", status, "panic", r)
		}
	}()

	if err := obs.OnStatusChanged(status, message); err != nil {
		c.logger.Error("status observer failed", "observer", idx, "status", status, "error", err)
	}
}

func (c *Controller) setLastError(msg string) {
	c.lastError.Store(&msg)
}
