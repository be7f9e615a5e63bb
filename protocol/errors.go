package protocol

import "errors"

var (
	// ErrNoResponse indicates that the instrument returned an empty line or nothing at all.
	ErrNoResponse = errors.New("no response from device")

	// ErrInvalidFormat indicates a response that does not follow RESULT:<value>:<units>:<status>.
	ErrInvalidFormat = errors.New("invalid response format")

	// ErrInvalidValue indicates that the measurement field of a RESULT line is not a number.
	ErrInvalidValue = errors.New("invalid measurement value")

	// ErrDelimiterInField indicates a device id or parameter that contains the field
	// delimiter or a line terminator and therefore cannot be framed.
	ErrDelimiterInField = errors.New("field contains protocol delimiter")
)
