package equipment

import "time"

// Test result notes produced by the controller.
const (
	NoteNotRunning     = "Equipment not in running state"
	NoteCompleted      = "Test completed successfully"
	NoteNoResponse     = "No response from device"
	NoteInvalidFormat  = "Invalid response format"
	NoteInvalidValue   = "Invalid measurement value"
	NoteInvalidCommand = "Invalid test command"
	NoteExecutionError = "Test execution error"
)

// TestResult is the outcome of one test on one device.
//
// Results are values; once produced they are not modified by the controller.
type TestResult struct {
	TestID   string `json:"test_id" cbor:"test_id"`
	DeviceID string `json:"device_id" cbor:"device_id"`
	Passed   bool   `json:"passed" cbor:"passed"`
	// MeasurementValue is nil when no measurement was taken.
	MeasurementValue *float64  `json:"measurement_value" cbor:"measurement_value"`
	Units            string    `json:"units" cbor:"units"`
	Timestamp        time.Time `json:"timestamp" cbor:"timestamp"`
	Notes            string    `json:"notes" cbor:"notes"`
}

// Measurement returns the measured value and whether one was taken.
func (r TestResult) Measurement() (float64, bool) {
	if r.MeasurementValue == nil {
		return 0, false
	}

	return *r.MeasurementValue, true
}

// Value returns a pointer to a copy of v, for filling TestResult.MeasurementValue.
func Value(v float64) *float64 {
	return &v
}
