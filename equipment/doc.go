// Package equipment implements the instrument controller: the equipment status machine,
// status observers, the attached instrument channel and test execution.
//
// # Status Machine
//
// A Controller starts in IdleStatus. Transitions are gated by the current status:
//
//	Initialize  any              -> Idle (or Error when the channel cannot be opened)
//	Start       Idle, Paused     -> Running
//	Stop        any              -> Idle
//	Pause       Running          -> Paused
//	Resume      Paused           -> Running
//	Calibrate   Idle             -> Maintenance -> Idle (or Error)
//
// A rejected transition leaves the status unchanged, records a last-error message and
// returns an error wrapping ErrInvalidTransition.
//
// # Observers
//
// Every transition invokes the registered StatusObserver values synchronously, in
// registration order, while the controller's transition lock is held. Observers must be
// fast and must not call back into transition methods (Initialize, Start, Stop, Pause,
// Resume, Calibrate, AddObserver) of the same controller, which would deadlock. Status
// and LastError are lock-free and may be called from an observer.
//
// # Channel
//
// When the configuration names a device port, Initialize opens a Channel through the
// configured ChannelOpener and RunTest exchanges one request/response line pair per
// test. Without a port, measurements come from the Simulator strategy.
package equipment
