// Package sim runs a set of vehicles at a fixed tick rate and hands each
// tick's states and navigation events to the telemetry recorder.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/OCAP2/drivesim/internal/agent"
	"github.com/OCAP2/drivesim/internal/geo"
	"github.com/OCAP2/drivesim/internal/physics"
	"github.com/OCAP2/drivesim/internal/recorder"
	"github.com/OCAP2/drivesim/internal/vehicle"
	"github.com/OCAP2/drivesim/pkg/core"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoDriver  = errors.New("vehicle has no driver factory")
	ErrNoPhysics = errors.New("vehicle has no controller or physics body")
)

// Submitter accepts telemetry records. *recorder.Recorder implements it.
type Submitter interface {
	Submit(rec recorder.Record) error
}

// Stepper advances the physics of one vehicle by dt seconds.
type Stepper interface {
	Step(dt float64)
}

// DriverFactory builds the driver of a vehicle. emit reports the driver's
// navigation events; drivers that raise none may ignore it.
type DriverFactory func(emit agent.Listener) (agent.Driver, error)

// VehicleSpec is everything the runner needs to own one vehicle.
type VehicleSpec struct {
	Name       string
	Driver     core.DriverKind
	Controller *vehicle.Controller
	Physics    Stepper
	NewDriver  DriverFactory
}

// Options configures a Runner.
type Options struct {
	TickRate    float64 // ticks per second; falls back to the run's rate
	Parallelism int     // vehicles stepped concurrently; <= 0 means GOMAXPROCS
	SampleEvery int     // record states every n ticks; <= 0 means every tick
	Realtime    bool    // pace ticks to the wall clock
}

type entry struct {
	info    core.Vehicle
	ctrl    *vehicle.Controller
	phys    Stepper
	driver  agent.Driver
	pending []agent.Event
}

// step runs one vehicle tick: the driver senses and commands, the controller
// turns commands into wheel torques, then the physics integrates.
func (e *entry) step(dt float64) {
	e.driver.Drive(dt)
	e.ctrl.FixedUpdate(dt)
	e.phys.Step(dt)
}

// Runner owns the vehicles of a run. Only Tick is safe to call concurrently
// with Step.
type Runner struct {
	run  *core.Run
	rec  Submitter
	log  *slog.Logger
	opts Options
	dt   float64

	vehicles []*entry
	byID     map[uint16]*entry
	nextID   uint16
	tick     atomic.Uint64

	tickDuration metric.Float64Histogram
	ticks        metric.Int64Counter
	submitErrors metric.Int64Counter
}

// New validates the options and creates the runner's instruments on the
// global meter.
func New(run *core.Run, rec Submitter, log *slog.Logger, opts Options) (*Runner, error) {
	if run == nil {
		return nil, errors.New("sim: run is nil")
	}
	if rec == nil {
		return nil, errors.New("sim: submitter is nil")
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.TickRate <= 0 {
		opts.TickRate = run.TickRate
	}
	if opts.TickRate <= 0 {
		return nil, fmt.Errorf("sim: tick rate must be positive, got %v", opts.TickRate)
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}
	if opts.SampleEvery <= 0 {
		opts.SampleEvery = 1
	}
	run.TickRate = opts.TickRate

	r := &Runner{
		run:  run,
		rec:  rec,
		log:  log,
		opts: opts,
		dt:   1 / opts.TickRate,
		byID: make(map[uint16]*entry),
	}
	if err := r.initMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) initMetrics() error {
	m := meter()

	var err error
	r.tickDuration, err = m.Float64Histogram(
		"sim.tick.duration",
		metric.WithDescription("Wall time spent simulating one tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("creating tick duration histogram: %w", err)
	}

	r.ticks, err = m.Int64Counter(
		"sim.ticks",
		metric.WithDescription("Total ticks simulated"),
	)
	if err != nil {
		return fmt.Errorf("creating tick counter: %w", err)
	}

	r.submitErrors, err = m.Int64Counter(
		"sim.submit.errors",
		metric.WithDescription("Total telemetry records the recorder refused"),
	)
	if err != nil {
		return fmt.Errorf("creating submit error counter: %w", err)
	}
	return nil
}

// DT is the fixed step in seconds.
func (r *Runner) DT() float64 { return r.dt }

// Tick is the index of the next tick to simulate.
func (r *Runner) Tick() uint64 { return r.tick.Load() }

// AddVehicle registers a vehicle and builds its driver. A vehicle whose
// driver cannot be built is refused and the cause is logged.
func (r *Runner) AddVehicle(spec VehicleSpec) (uint16, error) {
	if spec.Controller == nil || spec.Physics == nil {
		r.log.Error("Refusing vehicle", "name", spec.Name, "error", ErrNoPhysics)
		return 0, fmt.Errorf("vehicle %q: %w", spec.Name, ErrNoPhysics)
	}
	if spec.NewDriver == nil {
		r.log.Error("Refusing vehicle", "name", spec.Name, "error", ErrNoDriver)
		return 0, fmt.Errorf("vehicle %q: %w", spec.Name, ErrNoDriver)
	}

	e := &entry{ctrl: spec.Controller, phys: spec.Physics}
	driver, err := spec.NewDriver(func(ev agent.Event) {
		e.pending = append(e.pending, ev)
	})
	if err != nil {
		r.log.Error("Refusing vehicle", "name", spec.Name, "driver", spec.Driver, "error", err)
		return 0, fmt.Errorf("vehicle %q: %w", spec.Name, err)
	}
	e.driver = driver

	r.nextID++
	tick := r.Tick()
	e.info = core.Vehicle{
		ID:         r.nextID,
		Name:       spec.Name,
		Driver:     spec.Driver,
		JoinTime:   r.timeAt(tick),
		JoinTick:   core.Tick(tick),
		WheelCount: len(spec.Controller.WheelCommands()),
	}
	r.vehicles = append(r.vehicles, e)
	r.byID[e.info.ID] = e

	info := e.info
	r.submit(recorder.Record{Kind: recorder.KindVehicle, Tick: info.JoinTick, Payload: &info})
	r.log.Info("Vehicle added", "id", info.ID, "name", info.Name, "driver", info.Driver)
	return info.ID, nil
}

// Step simulates one tick. Vehicles are independent, so they are stepped in
// parallel; telemetry is submitted afterwards in vehicle order.
func (r *Runner) Step(ctx context.Context) error {
	start := time.Now()
	tick := r.Tick()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallelism)
	for _, e := range r.vehicles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e.step(r.dt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	now := r.timeAt(tick)
	sample := tick%uint64(r.opts.SampleEvery) == 0
	for _, e := range r.vehicles {
		for _, ev := range e.pending {
			r.submit(recorder.Record{Kind: recorder.KindAgentEvent, Tick: core.Tick(tick), Payload: &core.AgentEvent{
				VehicleID:     e.info.ID,
				Time:          now,
				Tick:          core.Tick(tick),
				Kind:          ev.Kind,
				WaypointIndex: ev.WaypointIndex,
				Message:       ev.Message,
			}})
		}
		e.pending = e.pending[:0]

		if sample {
			s := snapshot(e, tick, now)
			r.submit(recorder.Record{Kind: recorder.KindVehicleState, Tick: s.Tick, Payload: &s})
		}
	}

	r.tick.Add(1)
	r.ticks.Add(ctx, 1)
	r.tickDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	return nil
}

// Run simulates ticks ticks, or until ctx is cancelled when ticks <= 0.
func (r *Runner) Run(ctx context.Context, ticks int) error {
	var pace <-chan time.Time
	if r.opts.Realtime {
		t := time.NewTicker(time.Duration(r.dt * float64(time.Second)))
		defer t.Stop()
		pace = t.C
	}

	for i := 0; ticks <= 0 || i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		}
		if err := r.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Vehicles returns the registered vehicles in join order.
func (r *Runner) Vehicles() []core.Vehicle {
	out := make([]core.Vehicle, len(r.vehicles))
	for i, e := range r.vehicles {
		out[i] = e.info
	}
	return out
}

// State returns the current state of a vehicle.
func (r *Runner) State(id uint16) (core.VehicleState, bool) {
	e, ok := r.byID[id]
	if !ok {
		return core.VehicleState{}, false
	}
	tick := r.Tick()
	return snapshot(e, tick, r.timeAt(tick)), true
}

func (r *Runner) submit(rec recorder.Record) {
	if err := r.rec.Submit(rec); err != nil {
		r.submitErrors.Add(context.Background(), 1)
		r.log.Warn("Telemetry record refused", "kind", rec.Kind, "error", err)
	}
}

func (r *Runner) timeAt(tick uint64) time.Time {
	return r.run.StartTime.Add(time.Duration(float64(tick) * r.dt * float64(time.Second)))
}

func snapshot(e *entry, tick uint64, now time.Time) core.VehicleState {
	c := e.ctrl
	cmds := c.WheelCommands()
	wheels := make([]core.WheelState, len(cmds))
	for i, w := range cmds {
		wheels[i] = core.WheelState{
			MotorTorque:  w.MotorTorque,
			BrakeTorque:  w.BrakeTorque,
			SteerAngle:   w.SteerAngle,
			ExtremumSlip: w.ExtremumSlip,
			Grounded:     c.WheelGrounded(i),
		}
	}
	return core.VehicleState{
		VehicleID:      e.info.ID,
		Time:           now,
		Tick:           core.Tick(tick),
		Position:       geo.ToPosition3D(c.Position()),
		Yaw:            physics.Yaw(c.Rotation()),
		Speed:          c.Speed(),
		PlanarVelocity: c.PlanarVelocity(),
		Throttle:       c.Throttle(),
		Steering:       c.Steering(),
		Handbrake:      c.Handbrake(),
		Boosting:       c.Boosting(),
		DriftingAxis:   c.DriftingAxis(),
		TractionLocked: c.TractionLocked(),
		Grounded:       c.IsGrounded(),
		Wheels:         wheels,
	}
}
