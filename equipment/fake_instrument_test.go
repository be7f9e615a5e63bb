package equipment

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// replyFunc returns the response line for a request line, or ok=false to stay silent.
type replyFunc func(req string) (resp string, ok bool)

// fakeInstrument serves the line protocol on one end of a net.Pipe.
type fakeInstrument struct {
	mu       sync.Mutex
	requests []string
	reply    replyFunc
	server   net.Conn
	done     chan struct{}
}

func newFakeInstrument(t *testing.T, reply replyFunc) (*fakeInstrument, ChannelOpener) {
	t.Helper()

	client, server := net.Pipe()
	fi := &fakeInstrument{reply: reply, server: server, done: make(chan struct{})}

	go fi.serve()

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
		<-fi.done
	})

	opener := func(_ context.Context, _ string, _ int) (Channel, error) {
		return client, nil
	}

	return fi, opener
}

func (fi *fakeInstrument) serve() {
	defer close(fi.done)

	r := bufio.NewReader(fi.server)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}

		req := strings.TrimSpace(line)
		fi.mu.Lock()
		fi.requests = append(fi.requests, req)
		fi.mu.Unlock()

		resp, ok := fi.reply(req)
		if !ok {
			continue
		}
		if _, err := fi.server.Write([]byte(resp)); err != nil {
			return
		}
	}
}

func (fi *fakeInstrument) Requests() []string {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	return append([]string(nil), fi.requests...)
}

func fixedReply(resp string) replyFunc {
	return func(string) (string, bool) { return resp, true }
}

func silentReply() replyFunc {
	return func(string) (string, bool) { return "", false }
}

// newChannelController returns a running controller attached to a fake instrument.
func newChannelController(t *testing.T, reply replyFunc, opts ...ConfigOption) (*Controller, *fakeInstrument) {
	t.Helper()

	fi, opener := newFakeInstrument(t, reply)
	c := NewController(WithChannelOpener(opener))

	opts = append([]ConfigOption{
		WithResponseTimeout(200 * time.Millisecond),
		WithCalibrationDelay(0),
	}, opts...)
	cfg, err := NewConfig("tcp://instrument:5000", opts...)
	require.NoError(t, err)

	require.NoError(t, c.Initialize(context.Background(), cfg))
	require.True(t, c.IsChannelOpen())

	return c, fi
}
