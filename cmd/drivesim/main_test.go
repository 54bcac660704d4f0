package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/drivesim/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlags_OverrideOnlyWhenGiven(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(`{"sim": {"ticks": 42, "name": "from-file"}}`), 0644))

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--name", "from-flag", "--storage", "sqlite"}))
	require.NoError(t, bindFlags(fs))
	require.NoError(t, config.Load(dir))

	sc := config.GetSimConfig()
	assert.Equal(t, "from-flag", sc.Name)
	assert.Equal(t, 42, sc.Ticks, "unset flags keep the file value")
	assert.Equal(t, "sqlite", config.GetStorageConfig().Type)
	assert.Equal(t, "info", viper.GetString("logLevel"))
}

func TestRun_Version(t *testing.T) {
	assert.NoError(t, run([]string{"--version"}))
}

func TestRun_MissingConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	assert.Error(t, run([]string{"-c", filepath.Join(t.TempDir(), "missing")}))
}

func TestRun_MemoryScenario(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	out := filepath.Join(dir, "recordings")
	cfg := `{
		"logsDir": "` + filepath.ToSlash(filepath.Join(dir, "logs")) + `",
		"sim": { "name": "lap", "tickRate": 50, "ticks": 100 },
		"storage": { "type": "memory", "memory": { "outputDir": "` + filepath.ToSlash(out) + `", "compressOutput": false } },
		"scenario": {
			"obstacles": [
				{ "name": "wall", "footprint": [[20,-5],[21,-5],[21,5],[20,5]] }
			],
			"vehicles": [
				{ "name": "bot", "driver": "agent", "waypoints": [[0,0],[0,10],[10,10]] },
				{ "name": "player", "driver": "human", "script": [{ "duration": 1, "vertical": 1 }] },
				{ "name": "ghost", "driver": "nobody" }
			]
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0644))

	require.NoError(t, run([]string{"-c", dir}))

	files, err := filepath.Glob(filepath.Join(out, "lap_*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "drivesim.*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRun_NoVehicles(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{"logsDir": "` + filepath.ToSlash(filepath.Join(dir, "logs")) + `", "storage": {"memory": {"outputDir": ""}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0644))

	assert.ErrorContains(t, run([]string{"-c", dir}), "no drivable vehicles")
}
