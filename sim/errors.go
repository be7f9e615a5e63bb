package sim

import "errors"

var (
	// ErrDeviceNotFound indicates that no simulated device is registered under the id.
	ErrDeviceNotFound = errors.New("device not found in simulation")

	// ErrInvalidOption indicates an out-of-range simulation option.
	ErrInvalidOption = errors.New("invalid simulation option")
)
