package equipment

import (
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"time"
)

// Channel is the duplex byte stream to the instrument.
//
// net.Conn satisfies it; serial ports are adapted by the default opener.
// SetReadDeadline bounds the wait for a response line.
type Channel interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

// ChannelOpener opens the channel named by port.
//
// baudRate configures serial ports and is ignored for network channels.
type ChannelOpener func(ctx context.Context, port string, baudRate int) (Channel, error)

// tcpScheme prefixes a network address in a device port.
const tcpScheme = "tcp://"

// DefaultOpener opens a channel from a device port.
//
//   - "tcp://host:port" and "host:port" dial a TCP connection bound to ctx, for
//     instruments behind a serial-to-Ethernet bridge.
//   - any other value, e.g. "/dev/ttyUSB0" or "COM3", is opened as a serial port at
//     baudRate, 8N1.
func DefaultOpener(ctx context.Context, port string, baudRate int) (Channel, error) {
	if port == "" {
		return nil, fmt.Errorf("equipment: empty device port")
	}

	if addr, ok := strings.CutPrefix(port, tcpScheme); ok {
		return dialTCP(ctx, addr)
	}

	if !filepath.IsAbs(port) {
		if _, _, err := net.SplitHostPort(port); err == nil {
			return dialTCP(ctx, port)
		}
	}

	return openSerial(port, baudRate)
}

func dialTCP(ctx context.Context, addr string) (Channel, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	return conn, nil
}
