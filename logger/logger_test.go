package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require := require.New(t)

	tests := []struct {
		name  string
		level Level
		ok    bool
	}{
		{"debug", DebugLevel, true},
		{"info", InfoLevel, true},
		{"", InfoLevel, true},
		{"warning", WarnLevel, true},
		{"error", ErrorLevel, true},
		{"verbose", InfoLevel, false},
	}

	for _, tt := range tests {
		level, ok := ParseLevel(tt.name)
		require.Equal(tt.level, level, tt.name)
		require.Equal(tt.ok, ok, tt.name)
	}
}

func TestSlogWithWriter(t *testing.T) {
	require := require.New(t)
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, InfoLevel, false)

	l.Debug("hidden")
	require.Zero(buf.Len())

	l.With("device_id", "dut-1").Info("status changed", "status", "RUNNING")

	var rec map[string]any
	require.NoError(json.Unmarshal(buf.Bytes(), &rec))
	require.Equal("status changed", rec["msg"])
	require.Equal("dut-1", rec["device_id"])
	require.Equal("RUNNING", rec["status"])
	require.Contains(rec, "ts")

	l.SetLevel(DebugLevel)
	require.Equal(DebugLevel, l.Level())
}

func TestNewFile(t *testing.T) {
	require := require.New(t)
	t.Setenv("ENV", "")

	path := filepath.Join(t.TempDir(), "logs", "station.log")
	l, err := NewFile(path, InfoLevel)
	require.NoError(err)

	l.Warn("calibration failed", "reason", "no ack")
	require.NoError(l.Close())
	require.NoError(l.Close())

	data, err := os.ReadFile(path)
	require.NoError(err)
	require.Contains(string(data), "calibration failed")
}

func TestDiscardAndDefault(t *testing.T) {
	require := require.New(t)

	d := NewDiscard()
	d.Info("nothing")
	require.Same(d, d.With("k", "v"))

	prev := GetLogger()
	t.Cleanup(func() { SetDefault(prev) })

	SetDefault(d)
	require.Same(d, GetLogger())

	SetDefault(nil)
	require.Same(d, GetLogger())
}
