package agent

import (
	"errors"
	"fmt"

	"github.com/OCAP2/drivesim/internal/path"
	"github.com/OCAP2/drivesim/internal/physics"
	"github.com/OCAP2/drivesim/internal/sensor"
	"github.com/OCAP2/drivesim/internal/vehicle"
	"github.com/OCAP2/drivesim/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrIndexOutOfRange is returned when the start index does not name a waypoint.
var ErrIndexOutOfRange = errors.New("waypoint index out of range")

const (
	// StuckVelocity is the planar speed at or below which an avoiding vehicle
	// counts as stuck.
	StuckVelocity = 0.025
	// ReverseThrottle is held for the whole reverse phase.
	ReverseThrottle = -0.5

	// accumulators are sums of dt; absorb rounding when comparing to limits
	timeEpsilon = 1e-9
)

// State is the top-level navigation state.
type State int

const (
	StateFollowing State = iota
	StateReversing
)

func (s State) String() string {
	switch s {
	case StateFollowing:
		return "following"
	case StateReversing:
		return "reversing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RecoveryMode selects what happens once a vehicle has been stuck too long.
type RecoveryMode string

const (
	RecoveryReverse RecoveryMode = "reverse"
	RecoveryRespawn RecoveryMode = "respawn"
)

// Config tunes a PathFollower.
type Config struct {
	Tolerance  float64 // planar arrival distance
	MaxWait    float64 // stuck time before recovery, seconds
	MaxReverse float64 // reverse phase duration, seconds
	StartIndex int     // first target; waypoint 0 is the spawn point
	Recovery   RecoveryMode
}

// DefaultConfig returns the stock agent tuning.
func DefaultConfig() Config {
	return Config{
		Tolerance:  0.5,
		MaxWait:    10,
		MaxReverse: 10,
		StartIndex: 1,
		Recovery:   RecoveryReverse,
	}
}

// Vehicle is the vehicle an agent drives.
type Vehicle interface {
	vehicle.Commands
	Position() mgl64.Vec3
	Rotation() mgl64.Quat
	ResetPosition(position mgl64.Vec3, rotation mgl64.Quat)
}

// Sensor samples obstacles around a pose.
type Sensor interface {
	Sense(position mgl64.Vec3, rotation mgl64.Quat) sensor.Reading
}

// Event is a navigation event raised while driving.
type Event struct {
	Kind          core.AgentEventKind
	WaypointIndex int
	Message       string
}

// Listener receives navigation events synchronously.
type Listener func(Event)

// NavState is a snapshot of the agent's navigation state.
type NavState struct {
	State        State
	CurrentIndex int
	Target       mgl64.Vec3
	Avoiding     bool
	Blocked      bool
	WaitTime     float64
	ReverseTime  float64
	Finished     bool
}

// Option configures a PathFollower.
type Option func(*PathFollower)

// WithListener reports navigation events to l.
func WithListener(l Listener) Option {
	return func(a *PathFollower) {
		a.listener = l
	}
}

// PathFollower drives a vehicle along a path, steering around obstacles and
// recovering when it gets stuck.
type PathFollower struct {
	cfg      Config
	veh      Vehicle
	sensors  Sensor
	path     *path.Path
	listener Listener

	nav     NavState
	reading sensor.Reading
}

var _ Driver = (*PathFollower)(nil)

// NewPathFollower validates the path and start index and releases the handbrake.
func NewPathFollower(v Vehicle, s Sensor, p *path.Path, cfg Config, opts ...Option) (*PathFollower, error) {
	if v == nil {
		return nil, errors.New("agent vehicle is nil")
	}
	if s == nil {
		return nil, sensor.ErrQueryUnavailable
	}
	if p == nil || p.Len() == 0 {
		return nil, path.ErrEmptyPath
	}
	if cfg.StartIndex < 0 || cfg.StartIndex >= p.Len() {
		return nil, fmt.Errorf("%w: start index %d, path has %d waypoints", ErrIndexOutOfRange, cfg.StartIndex, p.Len())
	}
	switch cfg.Recovery {
	case "":
		cfg.Recovery = RecoveryReverse
	case RecoveryReverse, RecoveryRespawn:
	default:
		return nil, fmt.Errorf("unknown recovery mode %q", cfg.Recovery)
	}

	a := &PathFollower{cfg: cfg, veh: v, sensors: s, path: p}
	for _, opt := range opts {
		opt(a)
	}
	a.setTarget(cfg.StartIndex)
	v.SetHandbrake(false)
	return a, nil
}

// Nav returns the current navigation state.
func (a *PathFollower) Nav() NavState { return a.nav }

// Path returns the followed path.
func (a *PathFollower) Path() *path.Path { return a.path }

// Drive runs one fixed tick of the agent.
func (a *PathFollower) Drive(dt float64) {
	if a.nav.State == StateReversing {
		a.reverse(dt)
		return
	}
	a.sense()
	if !a.nav.Avoiding {
		a.move()
	}
	a.checkStuck(dt)
}

func (a *PathFollower) reverse(dt float64) {
	a.nav.ReverseTime += dt
	a.veh.SetThrottle(ReverseThrottle)
	if a.nav.ReverseTime >= a.cfg.MaxReverse-timeEpsilon {
		a.nav.State = StateFollowing
		a.emit(core.EventReverseEnd, "")
	}
}

func (a *PathFollower) sense() {
	prev := a.reading
	a.reading = a.sensors.Sense(a.veh.Position(), a.veh.Rotation())
	a.nav.Avoiding = a.reading.Avoiding
	a.nav.Blocked = a.reading.Blocked

	switch {
	case a.reading.Avoiding && !prev.Avoiding:
		a.emit(core.EventAvoidStart, fmt.Sprintf("bias %.1f", a.reading.Bias))
	case !a.reading.Avoiding && prev.Avoiding:
		a.emit(core.EventAvoidEnd, "")
	}
	if a.reading.Blocked && !prev.Blocked {
		a.emit(core.EventBlocked, "")
	}
	a.reading.Apply(a.veh)
}

func (a *PathFollower) move() {
	if a.nav.Finished {
		a.veh.SetThrottle(0)
		return
	}
	pos := a.veh.Position()
	if physics.Planar(pos.Sub(a.nav.Target)).Len() > a.cfg.Tolerance {
		local := physics.InverseTransformPoint(pos, a.veh.Rotation(), a.nav.Target)
		if mag := local.Len(); mag > 0 {
			a.veh.SetSteeringAngle(local.X() / mag * a.veh.MaxSteerAngle())
			a.veh.SetThrottle(1)
			return
		}
	}
	a.advance()
}

func (a *PathFollower) advance() {
	reached := a.nav.CurrentIndex
	a.emit(core.EventWaypointReached, "")

	next, ok := a.path.Next(reached)
	if !ok {
		a.nav.Finished = true
		a.veh.SetThrottle(0)
		a.emit(core.EventPathFinished, "")
		return
	}
	a.setTarget(next)
	if next < reached {
		a.emit(core.EventPathWrapped, "")
	}
}

func (a *PathFollower) checkStuck(dt float64) {
	if !a.nav.Avoiding || a.veh.PlanarVelocity() > StuckVelocity {
		a.nav.WaitTime = 0
		return
	}
	a.nav.WaitTime += dt
	if a.nav.WaitTime <= a.cfg.MaxWait+timeEpsilon {
		return
	}
	a.nav.WaitTime = 0
	a.nav.ReverseTime = 0
	if a.cfg.Recovery == RecoveryRespawn {
		a.respawn()
		return
	}
	a.nav.State = StateReversing
	a.emit(core.EventReverseStart, "")
}

// respawn puts the vehicle back on the previous waypoint facing the next one.
func (a *PathFollower) respawn() {
	spawn := max(a.nav.CurrentIndex-1, 0)
	next, ok := a.path.Next(spawn)
	if !ok {
		next = spawn
	}
	from, to := a.path.Point(spawn), a.path.Point(next)
	a.veh.ResetPosition(from, physics.LookRotation(to.Sub(from)))
	a.nav.Finished = false
	a.setTarget(next)
	a.emit(core.EventRespawn, fmt.Sprintf("spawned at waypoint %d", spawn))
}

func (a *PathFollower) setTarget(i int) {
	a.nav.CurrentIndex = i
	a.nav.Target = a.path.Point(i)
}

func (a *PathFollower) emit(kind core.AgentEventKind, msg string) {
	if a.listener == nil {
		return
	}
	a.listener(Event{Kind: kind, WaypointIndex: a.nav.CurrentIndex, Message: msg})
}
