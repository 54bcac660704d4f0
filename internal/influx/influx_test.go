package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/drivesim/internal/config"
	"github.com/OCAP2/drivesim/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableConfig() config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "drivesim",
		Bucket:   "telemetry",
	}
}

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var lines []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if scanner.Text() != "" {
			lines = append(lines, scanner.Text())
		}
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
}

func TestConnect_UnreachableWithoutBackup(t *testing.T) {
	m := NewManager(unreachableConfig(), zerolog.Nop(), "")
	assert.Error(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(unreachableConfig(), zerolog.Nop(), "")
	err := m.WritePoint(influxdb2_write.NewPointWithMeasurement("x").AddField("v", 1))
	assert.Error(t, err)
}

func TestBackupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(unreachableConfig(), zerolog.Nop(), path)

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)

	at := time.Unix(1700000000, 0)
	require.NoError(t, m.RecordVehicleState("oval", &core.VehicleState{
		VehicleID: 3,
		Time:      at,
		Tick:      12,
		Position:  core.Position3D{X: 1.5, Y: 0, Z: 4},
		Speed:     36,
		Grounded:  true,
	}))
	require.NoError(t, m.RecordAgentEvent("oval", &core.AgentEvent{
		VehicleID:     3,
		Time:          at,
		Tick:          12,
		Kind:          core.EventWaypointReached,
		WaypointIndex: 2,
	}))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "second Close is a no-op")

	lines := readBackup(t, path)
	require.Len(t, lines, 2)

	assert.True(t, strings.HasPrefix(lines[0], "vehicle_state,run=oval,vehicle=3 "), lines[0])
	assert.Contains(t, lines[0], "speed=36")
	assert.Contains(t, lines[0], "tick=12i")
	assert.Contains(t, lines[0], "grounded=true")
	assert.True(t, strings.HasSuffix(lines[0], " 1700000000000000000"), lines[0])

	assert.True(t, strings.HasPrefix(lines[1], "agent_event,kind=waypointReached,run=oval,vehicle=3 "), lines[1])
	assert.Contains(t, lines[1], "waypointIndex=2i")
}

func TestBackupFile_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append.gz")

	for i := 0; i < 2; i++ {
		m := NewManager(unreachableConfig(), zerolog.Nop(), path)
		require.NoError(t, m.Connect(context.Background()))
		require.NoError(t, m.RecordVehicleState("r", &core.VehicleState{VehicleID: 1, Time: time.Now()}))
		require.NoError(t, m.Close())
	}

	assert.Len(t, readBackup(t, path), 2)
}

func TestVehicleStatePoint(t *testing.T) {
	p := VehicleStatePoint("run", &core.VehicleState{VehicleID: 7, Yaw: 90, Handbrake: true})

	assert.Equal(t, MeasurementVehicleState, p.Name())
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"run": "run", "vehicle": "7"}, tags)

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 90.0, fields["yaw"])
	assert.Equal(t, true, fields["handbrake"])
	assert.Len(t, fields, 14)
}
