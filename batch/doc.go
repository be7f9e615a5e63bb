// Package batch runs one test suite across many devices.
//
// A Batch runs sequentially, in device order, or in parallel on a bounded pool of
// workers. Every device is isolated: a panic or an executor construction error while
// testing one device leaves that device with an empty result list and does not affect
// the others. The result map always has an entry for every requested device.
//
// Running a parallel batch through a single shared executor funnels every device through
// the same instrument channel; WithExecutorFactory gives each device its own executor,
// typically a suite.Runner over a dedicated equipment.Controller.
package batch
