package equipment

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-equiptest/logger"
)

// lineTransport exchanges CRLF-terminated request/response lines over a Channel.
//
// exchange holds a mutex for the whole request/response pair, so concurrent callers
// sharing one controller never interleave their lines on the wire.
//
// A request that timed out or was cancelled may still be answered later. The
// transport is then out of sync, and the next exchange drops the late reply
// before writing its own request.
type lineTransport struct {
	mu     sync.Mutex
	ch     Channel
	reader *bufio.Reader
	logger logger.Logger
	stale  bool // guarded by mu
}

func newLineTransport(ch Channel, l logger.Logger) *lineTransport {
	return &lineTransport{
		ch:     ch,
		reader: bufio.NewReader(ch),
		logger: l,
	}
}

// exchange writes req and reads one response line within timeout.
//
// The returned line has surrounding whitespace removed. errResponseTimeout is returned
// when nothing arrived in time; ctx cancellation interrupts the read.
func (lt *lineTransport) exchange(ctx context.Context, req []byte, timeout time.Duration) (string, error) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if lt.stale {
		if err := lt.resync(ctx, timeout); err != nil {
			return "", err
		}
	}

	lt.logger.Debug("instrument request", "line", strings.TrimSpace(string(req)))

	if err := lt.writeAll(req); err != nil {
		return "", err
	}

	line, complete, err := lt.readLine(ctx, timeout)
	if err != nil || !complete {
		// the reply, or its tail, may still arrive
		lt.stale = true
	}
	if err != nil {
		return "", err
	}

	lt.logger.Debug("instrument response", "line", line)

	return line, nil
}

// writeAll writes all bytes in data to the channel.
func (lt *lineTransport) writeAll(data []byte) error {
	for written := 0; written < len(data); {
		n, err := lt.ch.Write(data[written:])
		written += n

		if err != nil {
			return err
		}
	}

	return nil
}

// resync drops a reply left over from an earlier request.
//
// It waits up to window for the late line, then discards anything else already
// buffered. The transport stays out of sync when ctx ends first.
func (lt *lineTransport) resync(ctx context.Context, window time.Duration) error {
	line, _, err := lt.readLine(ctx, window)
	switch {
	case err == nil:
		lt.logger.Warn("discarded late instrument response", "line", line)
	case errors.Is(err, errResponseTimeout):
	default:
		return err
	}

	if n := lt.reader.Buffered(); n > 0 {
		_, _ = lt.reader.Discard(n)
		lt.logger.Warn("discarded buffered instrument data", "bytes", n)
	}
	lt.stale = false

	return nil
}

// readLine reads up to the next '\n' with a deadline of timeout.
//
// A timeout after partial data returns the partial line with complete=false,
// matching instruments that do not terminate their last line.
func (lt *lineTransport) readLine(ctx context.Context, timeout time.Duration) (line string, complete bool, err error) {
	if err := lt.ch.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", false, err
	}

	// pull the deadline in when ctx is done, so a blocked read returns promptly
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = lt.ch.SetReadDeadline(time.Now())
	})
	defer func() {
		// a callback already running must not move the next read's deadline
		if !stop() {
			<-fired
		}
	}()

	line, err = lt.reader.ReadString('\n')
	if err == nil {
		return strings.TrimSpace(line), true, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		lt.reader.Reset(lt.ch)
		return "", false, ctxErr
	}

	line = strings.TrimSpace(line)

	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		if line != "" {
			return line, false, nil
		}
		return "", false, errResponseTimeout
	case errors.Is(err, io.EOF):
		if line != "" {
			return line, false, nil
		}
		return "", false, ErrChannelClosed
	default:
		return "", false, err
	}
}

func (lt *lineTransport) close() error {
	return lt.ch.Close()
}
