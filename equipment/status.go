package equipment

import (
	"fmt"
	"strings"
)

// Status is the lifecycle status of the equipment.
type Status uint32

// Equipment statuses.
const (
	// IdleStatus indicates the equipment is ready; it is the initial status.
	IdleStatus Status = iota
	// RunningStatus indicates tests may be executed.
	RunningStatus
	// PausedStatus indicates a running session is suspended.
	PausedStatus
	// ErrorStatus indicates the channel failed to open or a calibration failed.
	ErrorStatus
	// MaintenanceStatus indicates a calibration is in progress.
	MaintenanceStatus
)

// AllStatuses lists every status in declaration order.
var AllStatuses = []Status{IdleStatus, RunningStatus, PausedStatus, ErrorStatus, MaintenanceStatus}

// String returns the upper-case name of the status.
func (s Status) String() string {
	switch s {
	case IdleStatus:
		return "IDLE"
	case RunningStatus:
		return "RUNNING"
	case PausedStatus:
		return "PAUSED"
	case ErrorStatus:
		return "ERROR"
	case MaintenanceStatus:
		return "MAINTENANCE"
	}

	return fmt.Sprintf("Status(%d)", uint32(s))
}

// IsValid reports whether s is one of the declared statuses.
func (s Status) IsValid() bool {
	return s <= MaintenanceStatus
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("equipment: invalid status %d", uint32(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed

	return nil
}

// ParseStatus converts a status name, case-insensitively, into a Status.
func ParseStatus(name string) (Status, error) {
	for _, s := range AllStatuses {
		if strings.EqualFold(name, s.String()) {
			return s, nil
		}
	}

	return IdleStatus, fmt.Errorf("equipment: unknown status %q", name)
}
