package equipment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus_String(t *testing.T) {
	require := require.New(t)

	names := []string{"IDLE", "RUNNING", "PAUSED", "ERROR", "MAINTENANCE"}
	for i, s := range AllStatuses {
		require.Equal(names[i], s.String())
		require.True(s.IsValid())
	}

	require.False(Status(99).IsValid())
	require.Equal("Status(99)", Status(99).String())
}

func TestParseStatus(t *testing.T) {
	require := require.New(t)

	for _, s := range AllStatuses {
		parsed, err := ParseStatus(s.String())
		require.NoError(err)
		require.Equal(s, parsed)
	}

	s, err := ParseStatus("paused")
	require.NoError(err)
	require.Equal(PausedStatus, s)

	_, err = ParseStatus("BROKEN")
	require.Error(err)
}

func TestStatus_JSON(t *testing.T) {
	require := require.New(t)

	data, err := json.Marshal(map[string]Status{"status": MaintenanceStatus})
	require.NoError(err)
	require.JSONEq(`{"status":"MAINTENANCE"}`, string(data))

	var decoded map[string]Status
	require.NoError(json.Unmarshal(data, &decoded))
	require.Equal(MaintenanceStatus, decoded["status"])

	_, err = json.Marshal(Status(42))
	require.Error(err)
}
