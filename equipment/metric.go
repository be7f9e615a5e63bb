package equipment

import (
	"sync/atomic"
)

// ControllerMetrics contains atomic counters for a Controller.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ControllerMetrics struct {
	// TestRunCount indicates the number of tests executed while running.
	TestRunCount atomic.Uint64
	// TestPassCount indicates the number of passed tests.
	TestPassCount atomic.Uint64
	// TestFailCount indicates the number of failed tests, including rejected ones.
	TestFailCount atomic.Uint64
	// ProtocolErrCount indicates the number of malformed or missing responses.
	ProtocolErrCount atomic.Uint64
	// TransportErrCount indicates the number of channel read/write errors.
	TransportErrCount atomic.Uint64

	// TransitionCount indicates the number of applied status transitions.
	TransitionCount atomic.Uint64
	// RejectedTransitionCount indicates the number of rejected operations.
	RejectedTransitionCount atomic.Uint64

	// CalibrationCount indicates the number of started calibrations.
	CalibrationCount atomic.Uint64
	// CalibrationFailCount indicates the number of failed calibrations.
	CalibrationFailCount atomic.Uint64
}

func (m *ControllerMetrics) recordResult(passed bool) {
	if passed {
		m.TestPassCount.Add(1)
	} else {
		m.TestFailCount.Add(1)
	}
}

func (m *ControllerMetrics) incTestRunCount() {
	m.TestRunCount.Add(1)
}

func (m *ControllerMetrics) incProtocolErrCount() {
	m.ProtocolErrCount.Add(1)
}

func (m *ControllerMetrics) incTransportErrCount() {
	m.TransportErrCount.Add(1)
}

func (m *ControllerMetrics) incTransitionCount() {
	m.TransitionCount.Add(1)
}

func (m *ControllerMetrics) incRejectedTransitionCount() {
	m.RejectedTransitionCount.Add(1)
}

func (m *ControllerMetrics) incCalibrationCount() {
	m.CalibrationCount.Add(1)
}

func (m *ControllerMetrics) incCalibrationFailCount() {
	m.CalibrationFailCount.Add(1)
}
