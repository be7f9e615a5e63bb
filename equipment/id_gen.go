package equipment

import (
	"strconv"
	"sync/atomic"
	"time"
)

// testIDGenerator produces test identifiers of the form TEST_<unix-seconds>_<seq>.
//
// seq is a process-wide counter, so identifiers generated within the same second, or
// concurrently, never collide.
type testIDGenerator struct {
	seq atomic.Uint64
}

var testIDs testIDGenerator

func (g *testIDGenerator) next(t time.Time) string {
	seq := g.seq.Add(1)

	buf := make([]byte, 0, 32)
	buf = append(buf, "TEST_"...)
	buf = strconv.AppendInt(buf, t.Unix(), 10)
	buf = append(buf, '_')
	buf = strconv.AppendUint(buf, seq, 10)

	return string(buf)
}

// GenerateTestID returns a unique test identifier derived from t.
func GenerateTestID(t time.Time) string {
	return testIDs.next(t)
}
