// Package protocol implements the line protocol spoken by the measurement instrument.
//
// Every request and response is a single ASCII line terminated by CRLF. Fields are
// separated by a colon and are not escaped, so no field may contain the delimiter.
//
// Requests:
//
//	TEST:<device_id>:<param_1>:...:<param_n>
//	CALIBRATE
//
// Responses:
//
//	RESULT:<value>:<units>:<PASS|FAIL>
//
// A calibration is acknowledged by any line containing CAL_OK.
//
// The package is stateless; the equipment package owns the channel and timing.
package protocol
