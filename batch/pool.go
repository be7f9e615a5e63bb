package batch

import (
	"github.com/arloliu/go-equiptest/equipment"
	"github.com/arloliu/go-equiptest/logger"
)

// callWithRecover runs fn for one device with panic protection.
// A panicking device yields no results.
func callWithRecover(log logger.Logger, deviceID string, fn func() []equipment.TestResult) (results []equipment.TestResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while testing device", "device_id", deviceID, "panic", r)
			results, ok = nil, false
		}
	}()

	return fn(), true
}
