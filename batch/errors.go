package batch

import "errors"

// ErrInvalidBatch indicates a batch that cannot be scheduled.
var ErrInvalidBatch = errors.New("batch: invalid batch")
