// Package storage defines where recorded runs end up.
package storage

import "github.com/OCAP2/drivesim/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun() error

	// Vehicle registration
	AddVehicle(v *core.Vehicle) error

	// Recording
	RecordVehicleState(s *core.VehicleState) error
	RecordAgentEvent(e *core.AgentEvent) error
}

// Exporter is an optional interface for backends that write the run to a
// file when it ends.
type Exporter interface {
	ExportedFilePath() string
}

// PendingWriter is an optional interface for backends that batch writes and
// can report how many rows are still queued.
type PendingWriter interface {
	Pending() int
}
