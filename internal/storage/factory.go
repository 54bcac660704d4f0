package storage

import (
	"fmt"

	"github.com/OCAP2/drivesim/internal/config"
	"github.com/OCAP2/drivesim/internal/storage/memory"
	"github.com/OCAP2/drivesim/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/drivesim/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, db config.DBConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(db.DSN(), log), nil
	case "sqlite":
		b, err := sqlitestorage.New(cfg.SQLite, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
