package suite

import "errors"

var (
	// ErrSuiteNotFound is returned when a suite name is not registered.
	ErrSuiteNotFound = errors.New("suite: suite not found")

	// ErrInvalidSuite indicates a suite definition that fails validation.
	ErrInvalidSuite = errors.New("suite: invalid suite")
)
