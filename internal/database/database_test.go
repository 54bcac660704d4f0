package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/drivesim/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDSN_Unique(t *testing.T) {
	a, b := MemoryDSN(), MemoryDSN()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "mode=memory")
}

func TestOpenSQLite_InMemoryIsolated(t *testing.T) {
	first, err := OpenSQLite("")
	require.NoError(t, err)
	second, err := OpenSQLite("")
	require.NoError(t, err)

	require.NoError(t, Migrate(first, zerolog.Nop()))
	require.NoError(t, first.Create(&model.Run{Name: "one", StartTime: time.Now()}).Error)

	assert.True(t, first.Migrator().HasTable(&model.Run{}))
	assert.False(t, second.Migrator().HasTable(&model.Run{}), "in-memory databases must not share tables")
}

func TestMigrate_CreatesTables(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db, zerolog.Nop()))

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
}

func TestDumpToDisk(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db, zerolog.Nop()))
	require.NoError(t, db.Create(&model.Run{Name: "dumped", StartTime: time.Now()}).Error)

	path := filepath.Join(t.TempDir(), "run.db")
	require.NoError(t, TimedDump(db, path, zerolog.Nop()))

	// A second dump replaces the first rather than failing on the existing file.
	require.NoError(t, DumpToDisk(db, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	disk, err := OpenSQLite(path)
	require.NoError(t, err)
	var runs []model.Run
	require.NoError(t, disk.Find(&runs).Error)
	require.Len(t, runs, 1)
	assert.Equal(t, "dumped", runs[0].Name)
}

func TestDumpToDisk_NoPath(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	assert.Error(t, DumpToDisk(db, ""))
}

func TestOpenPostgres_Unreachable(t *testing.T) {
	_, err := OpenPostgres("host=127.0.0.1 port=1 user=x password=x dbname=x sslmode=disable connect_timeout=1")
	assert.Error(t, err)
}
