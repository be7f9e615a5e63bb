package batch

import (
	"fmt"
	"strings"
)

// Mode selects how devices of a batch are scheduled.
type Mode uint8

const (
	// Sequential tests devices one after another in the given order.
	Sequential Mode = iota
	// Parallel tests devices concurrently on at most MaxWorkers workers.
	Parallel
)

// String returns "sequential" or "parallel".
func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	}

	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// IsValid reports whether m is a declared mode.
func (m Mode) IsValid() bool {
	return m <= Parallel
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("batch: invalid mode %d", uint8(m))
	}

	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed

	return nil
}

// ParseMode converts a mode name, case-insensitively, into a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sequential":
		return Sequential, nil
	case "parallel":
		return Parallel, nil
	}

	return Sequential, fmt.Errorf("batch: unknown mode %q", name)
}
