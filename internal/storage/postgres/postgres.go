// Package postgres implements the storage.Backend interface on PostgreSQL.
// The connection is opened in Init; everything else is the GORM backend.
package postgres

import (
	"fmt"

	"github.com/OCAP2/drivesim/internal/database"
	gormstorage "github.com/OCAP2/drivesim/internal/storage/gorm"
	"github.com/OCAP2/drivesim/pkg/core"
	"github.com/rs/zerolog"
)

// Backend connects to Postgres and delegates to the GORM backend.
type Backend struct {
	dsn  string
	log  zerolog.Logger
	gorm *gormstorage.Backend
}

// New creates a Postgres backend. No connection is made until Init.
func New(dsn string, log zerolog.Logger) *Backend {
	return &Backend{dsn: dsn, log: log}
}

// Init connects, migrates the schema and starts the DB writer.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres(b.dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.log.Info().Msg("Connected to database")

	g := gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.log})
	if err := g.Init(); err != nil {
		return err
	}
	b.gorm = g
	return nil
}

// Close stops the DB writer after a final flush.
func (b *Backend) Close() error {
	if b.gorm == nil {
		return nil
	}
	return b.gorm.Close()
}

func (b *Backend) StartRun(run *core.Run) error {
	if b.gorm == nil {
		return errNotConnected
	}
	return b.gorm.StartRun(run)
}

func (b *Backend) EndRun() error {
	if b.gorm == nil {
		return errNotConnected
	}
	return b.gorm.EndRun()
}

func (b *Backend) AddVehicle(v *core.Vehicle) error {
	if b.gorm == nil {
		return errNotConnected
	}
	return b.gorm.AddVehicle(v)
}

func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	if b.gorm == nil {
		return errNotConnected
	}
	return b.gorm.RecordVehicleState(s)
}

func (b *Backend) RecordAgentEvent(e *core.AgentEvent) error {
	if b.gorm == nil {
		return errNotConnected
	}
	return b.gorm.RecordAgentEvent(e)
}

var errNotConnected = fmt.Errorf("postgres backend: %w", gormstorage.ErrNoDB)

// Pending is the number of rows waiting for the next flush.
func (b *Backend) Pending() int {
	if b.gorm == nil {
		return 0
	}
	return b.gorm.Pending()
}
