package equipment

import (
	"os"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// serialPollInterval bounds one blocking read on a serial port, so a deadline pulled
// in by SetReadDeadline is noticed within this interval.
const serialPollInterval = 50 * time.Millisecond

// serialPort maps Channel read deadlines onto the read timeout of a serial port.
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// serialChannel adapts a serial port to Channel.
type serialChannel struct {
	port     serialPort
	deadline atomic.Int64 // unix nanoseconds, 0 means none
}

func openSerial(path string, baudRate int) (Channel, error) {
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}

	return newSerialChannel(port), nil
}

func newSerialChannel(port serialPort) *serialChannel {
	return &serialChannel{port: port}
}

// SetReadDeadline sets the deadline for the following reads. It may be called while a
// read is blocked; the read then returns within serialPollInterval.
func (sc *serialChannel) SetReadDeadline(t time.Time) error {
	if t.IsZero() {
		sc.deadline.Store(0)
	} else {
		sc.deadline.Store(t.UnixNano())
	}

	return nil
}

// Read blocks until data arrives or the deadline passes, in which case it returns
// os.ErrDeadlineExceeded.
func (sc *serialChannel) Read(p []byte) (int, error) {
	for {
		wait := serialPollInterval
		if dl := sc.deadline.Load(); dl != 0 {
			remaining := time.Until(time.Unix(0, dl))
			if remaining <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			wait = min(wait, remaining)
		}

		if err := sc.port.SetReadTimeout(wait); err != nil {
			return 0, err
		}

		n, err := sc.port.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

func (sc *serialChannel) Write(p []byte) (int, error) {
	return sc.port.Write(p)
}

func (sc *serialChannel) Close() error {
	return sc.port.Close()
}
