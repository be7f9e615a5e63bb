package equipment

import "sync/atomic"

// chanState is the open state of the instrument channel.
type chanState uint32

const (
	chanClosed chanState = iota
	chanClosing
	chanOpening
	chanOpened
)

// atomicChanState tracks the channel open state with compare-and-swap transitions.
type atomicChanState struct {
	state atomic.Uint32
}

func (st *atomicChanState) String() string {
	switch st.get() {
	case chanClosed:
		return "closed"
	case chanClosing:
		return "closing"
	case chanOpening:
		return "opening"
	case chanOpened:
		return "opened"
	}

	return "unknown"
}

func (st *atomicChanState) get() chanState {
	return chanState(st.state.Load())
}

func (st *atomicChanState) isOpened() bool {
	return st.get() == chanOpened
}

func (st *atomicChanState) toOpening() bool {
	return st.state.CompareAndSwap(uint32(chanClosed), uint32(chanOpening))
}

func (st *atomicChanState) toOpened() bool {
	if st.isOpened() {
		return true
	}

	return st.state.CompareAndSwap(uint32(chanOpening), uint32(chanOpened))
}

func (st *atomicChanState) toClosing() bool {
	if st.state.CompareAndSwap(uint32(chanOpened), uint32(chanClosing)) {
		return true
	}

	return st.state.CompareAndSwap(uint32(chanOpening), uint32(chanClosing))
}

func (st *atomicChanState) toClosed() {
	st.state.Store(uint32(chanClosed))
}
