package equipment

import "errors"

var (
	// ErrConfigNil indicates that a nil Config was provided.
	ErrConfigNil = errors.New("equipment: config is nil")

	// ErrConnectionFailure indicates that the instrument channel could not be opened.
	ErrConnectionFailure = errors.New("equipment: connection failure")

	// ErrInvalidTransition is returned when an operation is not allowed from the current status.
	ErrInvalidTransition = errors.New("equipment: invalid status transition")

	// ErrCalibrationFailure indicates that the instrument did not acknowledge a calibration.
	ErrCalibrationFailure = errors.New("equipment: calibration failure")

	// ErrChannelClosed indicates that the instrument closed the channel.
	ErrChannelClosed = errors.New("equipment: channel closed")

	// errResponseTimeout marks a read that produced no data before the response timeout.
	errResponseTimeout = errors.New("equipment: response timeout")
)
