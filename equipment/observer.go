package equipment

// StatusObserver is notified of every status transition.
//
// OnStatusChanged runs while the controller's transition lock is held; it must return
// quickly and must not call transition methods of the same controller. A returned error
// or a panic is logged and otherwise ignored.
type StatusObserver interface {
	OnStatusChanged(status Status, message string) error
}

// StatusObserverFunc adapts a function to the StatusObserver interface.
type StatusObserverFunc func(status Status, message string) error

// OnStatusChanged calls f(status, message).
func (f StatusObserverFunc) OnStatusChanged(status Status, message string) error {
	return f(status, message)
}
