package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		appName string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "drivesimlogs",
			appName: "drivesim",
			want:    filepath.Join("drivesimlogs", "drivesim.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./drivesimlogs",
			appName: "drivesim",
			want:    filepath.Join(".", "drivesimlogs", "drivesim.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "drivesim"),
			appName: "drivesim",
			want:    filepath.Join("/var", "log", "drivesim", "drivesim.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.appName, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenLogFile_RotatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drivesim.log")

	f, err := OpenLogFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("first run\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = OpenLogFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "first run\n", string(old))

	fresh, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}
