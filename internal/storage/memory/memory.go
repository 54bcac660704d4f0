// Package memory keeps a run in memory and exports it as JSON when it ends.
package memory

import (
	"sync"

	"github.com/OCAP2/drivesim/internal/config"
	"github.com/OCAP2/drivesim/pkg/core"
)

// VehicleRecord groups a vehicle with all its time-series data
type VehicleRecord struct {
	Vehicle core.Vehicle
	States  []core.VehicleState
	Events  []core.AgentEvent
}

// Backend stores run data in memory and exports to JSON
type Backend struct {
	cfg config.MemoryConfig
	run *core.Run

	vehicles map[uint16]*VehicleRecord

	// events for vehicles that were never registered
	orphanEvents []core.AgentEvent

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		vehicles: make(map[uint16]*VehicleRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run and drops anything recorded before.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.vehicles = make(map[uint16]*VehicleRecord)
	b.orphanEvents = nil
	b.lastExportPath = ""
	return nil
}

// EndRun writes the run to OutputDir. With no output directory configured
// the data stays in memory only.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// AddVehicle registers a new vehicle
func (b *Backend) AddVehicle(v *core.Vehicle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vehicles[v.ID] = &VehicleRecord{
		Vehicle: *v,
		States:  make([]core.VehicleState, 0),
	}
	return nil
}

// RecordVehicleState records a vehicle state update. States for unknown
// vehicles are ignored.
func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.vehicles[s.VehicleID]; ok {
		record.States = append(record.States, *s)
	}
	return nil
}

// RecordAgentEvent records a navigation event
func (b *Backend) RecordAgentEvent(e *core.AgentEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.vehicles[e.VehicleID]; ok {
		record.Events = append(record.Events, *e)
		return nil
	}
	b.orphanEvents = append(b.orphanEvents, *e)
	return nil
}

// GetVehicle looks up a vehicle by ID
func (b *Backend) GetVehicle(id uint16) (*core.Vehicle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.vehicles[id]; ok {
		v := record.Vehicle
		return &v, true
	}
	return nil, false
}

// States returns a copy of the states recorded for a vehicle.
func (b *Backend) States(id uint16) []core.VehicleState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.vehicles[id]
	if !ok {
		return nil
	}
	return append([]core.VehicleState(nil), record.States...)
}

// Events returns a copy of the agent events recorded for a vehicle.
func (b *Backend) Events(id uint16) []core.AgentEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.vehicles[id]
	if !ok {
		return nil
	}
	return append([]core.AgentEvent(nil), record.Events...)
}

// ExportedFilePath returns the file written by the last EndRun.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
