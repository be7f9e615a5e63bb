package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Wire tokens.
const (
	Delimiter      = ":"
	LineTerminator = "\r\n"

	TestCommand      = "TEST"
	CalibrateCommand = "CALIBRATE"

	ResultToken = "RESULT"
	PassToken   = "PASS"
	FailToken   = "FAIL"

	CalibrationAckToken = "CAL_OK"
)

// resultFieldCount is the minimum number of fields in a RESULT line.
const resultFieldCount = 4

// Result is a decoded RESULT line.
type Result struct {
	Value  float64
	Units  string
	Passed bool
}

// EncodeTest frames a test request for deviceID with the given ordered parameters.
//
// It returns ErrDelimiterInField when deviceID or a parameter cannot be framed.
func EncodeTest(deviceID string, params []string) ([]byte, error) {
	if err := checkField("device id", deviceID); err != nil {
		return nil, err
	}

	size := len(TestCommand) + len(Delimiter) + len(deviceID) + len(LineTerminator)
	for i, p := range params {
		if err := checkField(fmt.Sprintf("parameter %d", i), p); err != nil {
			return nil, err
		}
		size += len(Delimiter) + len(p)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, TestCommand...)
	buf = append(buf, Delimiter...)
	buf = append(buf, deviceID...)
	for _, p := range params {
		buf = append(buf, Delimiter...)
		buf = append(buf, p...)
	}
	buf = append(buf, LineTerminator...)

	return buf, nil
}

// EncodeCalibrate frames the calibration request.
func EncodeCalibrate() []byte {
	return []byte(CalibrateCommand + LineTerminator)
}

// DecodeResult parses a response line.
//
// Surrounding whitespace, including the line terminator, is ignored. Fields after the
// fourth are ignored. The value must be a finite number. The status is a pass only on
// an exact "PASS".
func DecodeResult(line string) (Result, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Result{}, ErrNoResponse
	}

	parts := strings.Split(line, Delimiter)
	if len(parts) < resultFieldCount || parts[0] != ResultToken {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidFormat, line)
	}

	value, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidValue, parts[1])
	}

	return Result{
		Value:  value,
		Units:  parts[2],
		Passed: parts[3] == PassToken,
	}, nil
}

// IsCalibrationAck reports whether line acknowledges a calibration request.
func IsCalibrationAck(line string) bool {
	return strings.Contains(line, CalibrationAckToken)
}

func checkField(name, value string) error {
	if strings.ContainsAny(value, Delimiter+LineTerminator) {
		return fmt.Errorf("%w: %s %q", ErrDelimiterInField, name, value)
	}

	return nil
}
