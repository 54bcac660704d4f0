// Package gormstorage implements storage.Backend on GORM. Writes are queued
// and drained into the database in batches by a background writer.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/drivesim/internal/database"
	"github.com/OCAP2/drivesim/internal/model"
	"github.com/OCAP2/drivesim/internal/model/convert"
	"github.com/OCAP2/drivesim/internal/queue"
	"github.com/OCAP2/drivesim/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DefaultFlushInterval is how often the writer drains the queues.
const DefaultFlushInterval = 2 * time.Second

// ErrNoDB is returned by Init when no database handle was provided.
var ErrNoDB = errors.New("no database configured")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Vehicles      *queue.Queue[model.Vehicle]
	VehicleStates *queue.Queue[model.VehicleState]
	AgentEvents   *queue.Queue[model.AgentEvent]
}

func newQueues() *queues {
	return &queues{
		Vehicles:      queue.New[model.Vehicle](),
		VehicleStates: queue.New[model.VehicleState](),
		AgentEvents:   queue.New[model.AgentEvent](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues
	runID  atomic.Uint64

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying database handle.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	if err := database.Migrate(b.deps.DB, b.deps.Logger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.Flush()
}

// StartRun inserts the run synchronously so that its ID can stamp every
// row written afterwards.
func (b *Backend) StartRun(run *core.Run) error {
	if err := b.Flush(); err != nil {
		return fmt.Errorf("failed to flush previous run: %w", err)
	}

	gormRun := convert.CoreToRun(*run)
	gormRun.ID = 0
	if err := b.deps.DB.Create(&gormRun).Error; err != nil {
		return fmt.Errorf("failed to insert new run: %w", err)
	}

	run.ID = gormRun.ID
	b.runID.Store(uint64(gormRun.ID))
	return nil
}

// EndRun flushes the queues and stamps the run's end time.
func (b *Backend) EndRun() error {
	runID := uint(b.runID.Load())
	if runID == 0 {
		return nil
	}
	if err := b.Flush(); err != nil {
		return err
	}
	now := time.Now()
	if err := b.deps.DB.Model(&model.Run{}).Where("id = ?", runID).Update("end_time", now).Error; err != nil {
		return fmt.Errorf("failed to close run %d: %w", runID, err)
	}
	return nil
}

// AddVehicle converts a core vehicle to GORM and pushes to the write queue.
func (b *Backend) AddVehicle(v *core.Vehicle) error {
	b.queues.Vehicles.Push(convert.CoreToVehicle(*v))
	return nil
}

// RecordVehicleState converts and queues a vehicle state.
func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	b.queues.VehicleStates.Push(convert.CoreToVehicleState(*s))
	return nil
}

// RecordAgentEvent converts and queues an agent event.
func (b *Backend) RecordAgentEvent(e *core.AgentEvent) error {
	b.queues.AgentEvents.Push(convert.CoreToAgentEvent(*e))
	return nil
}

// Pending returns how many rows are waiting to be written.
func (b *Backend) Pending() int {
	return b.queues.Vehicles.Len() + b.queues.VehicleStates.Len() + b.queues.AgentEvents.Len()
}

// Flush drains every queue into the database now. Rows of a failed batch
// go back to the front of their queue.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	runID := uint(b.runID.Load())
	return errors.Join(
		writeQueue(b.deps.DB, b.queues.Vehicles, "vehicles", func(items []model.Vehicle) {
			for i := range items {
				items[i].RunID = runID
			}
		}),
		writeQueue(b.deps.DB, b.queues.VehicleStates, "vehicle states", func(items []model.VehicleState) {
			for i := range items {
				items[i].RunID = runID
			}
		}),
		writeQueue(b.deps.DB, b.queues.AgentEvents, "agent events", func(items []model.AgentEvent) {
			for i := range items {
				items[i].RunID = runID
			}
		}),
	)
}

// VehicleStates reads back the current run's states for one vehicle in
// tick order.
func (b *Backend) VehicleStates(vehicleID uint16) ([]core.VehicleState, error) {
	var rows []model.VehicleState
	err := b.deps.DB.
		Where("run_id = ? AND vehicle_object_id = ?", uint(b.runID.Load()), vehicleID).
		Order("tick").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	states := make([]core.VehicleState, len(rows))
	for i, r := range rows {
		states[i] = convert.VehicleStateToCore(r)
	}
	return states, nil
}

// AgentEvents reads back the current run's events for one vehicle.
func (b *Backend) AgentEvents(vehicleID uint16) ([]core.AgentEvent, error) {
	var rows []model.AgentEvent
	err := b.deps.DB.
		Where("run_id = ? AND vehicle_object_id = ?", uint(b.runID.Load()), vehicleID).
		Order("tick, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	events := make([]core.AgentEvent, len(rows))
	for i, r := range rows {
		events[i] = convert.AgentEventToCore(r)
	}
	return events, nil
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	items := q.Take(0)
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		tx.Rollback()
		q.Requeue(items...)
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items...)
		return fmt.Errorf("error committing %s: %w", name, err)
	}
	return nil
}

// writerLoop periodically drains queues into the DB until Close.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error().Err(err).Msg("DB writer failed")
			}
		}
	}
}
