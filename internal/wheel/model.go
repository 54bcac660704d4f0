// Package wheel converts vehicle-level commands into per-wheel motor torque,
// brake torque, steer angle and sideways friction.
package wheel

import (
	"errors"
	"fmt"
	"math"

	"github.com/OCAP2/drivesim/internal/curve"
	"github.com/OCAP2/drivesim/internal/physics"
	"github.com/samber/lo"
)

var (
	ErrNoWheels      = errors.New("vehicle has no wheels")
	ErrNoDriveWheels = errors.New("vehicle has no drive wheels")
	ErrNoTurnWheels  = errors.New("vehicle has no turn wheels")
	ErrInvalidConfig = errors.New("invalid wheel force configuration")
)

// Role is a bit set describing what a wheel does.
type Role uint8

const (
	RoleDrive Role = 1 << iota
	RoleTurn
)

// RoleIdle wheels only roll and brake.
const RoleIdle Role = 0

// Has reports whether r includes all bits of other.
func (r Role) Has(other Role) bool {
	return r&other == other
}

// Config holds the static tuning of the force model.
type Config struct {
	MaxTorque       float64 // peak torque of the torque curve
	MaxSpeed        float64 // speed at which available torque reaches zero
	GearRatio       float64 // differential gearing multiplier
	BrakeTorque     float64 // torque applied to every wheel while braking
	SteerRate       float64 // lerp factor per tick toward the target angle, (0, 1]
	DriftMultiplier float64 // extremum slip multiplier at full drift, >= 1
	RecoveryTime    float64 // time for the drift axis to decay from 1 to 0
}

// DefaultConfig returns the stock arcade tuning.
func DefaultConfig() Config {
	return Config{
		MaxTorque:       500,
		MaxSpeed:        10,
		GearRatio:       30,
		BrakeTorque:     1500,
		SteerRate:       0.2,
		DriftMultiplier: 5,
		RecoveryTime:    1.5,
	}
}

func (c Config) validate() error {
	switch {
	case c.MaxTorque <= 0:
		return fmt.Errorf("%w: max torque must be positive", ErrInvalidConfig)
	case c.MaxSpeed <= 0:
		return fmt.Errorf("%w: max speed must be positive", ErrInvalidConfig)
	case c.SteerRate <= 0 || c.SteerRate > 1:
		return fmt.Errorf("%w: steer rate must be in (0, 1]", ErrInvalidConfig)
	case c.DriftMultiplier < 1:
		return fmt.Errorf("%w: drift multiplier must be at least 1", ErrInvalidConfig)
	case c.RecoveryTime <= 0:
		return fmt.Errorf("%w: recovery time must be positive", ErrInvalidConfig)
	}
	return nil
}

// Spec binds a physics wheel to its role.
type Spec struct {
	Wheel physics.Wheel
	Role  Role
}

// Command is the set of values written to a wheel during a tick.
type Command struct {
	MotorTorque  float64
	BrakeTorque  float64
	SteerAngle   float64
	ExtremumSlip float64
}

type record struct {
	wheel physics.Wheel
	role  Role
	base  physics.FrictionCurve
	cmd   Command
}

// Model owns the wheel records of one vehicle.
type Model struct {
	cfg        Config
	torque     *curve.Curve
	wheels     []record
	driveCount int
	firstTurn  int
}

// New captures each wheel's base friction curve and builds the torque curve:
// 65% of max torque at rest, full torque at a quarter of max speed and none
// at max speed.
func New(cfg Config, specs []Spec) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, ErrNoWheels
	}

	torque, err := curve.New(
		curve.Key(0, cfg.MaxTorque*0.65),
		curve.Key(cfg.MaxSpeed*0.25, cfg.MaxTorque),
		curve.Key(cfg.MaxSpeed, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("building torque curve: %w", err)
	}

	m := &Model{cfg: cfg, torque: torque, firstTurn: -1}
	for i, s := range specs {
		if s.Wheel == nil {
			return nil, fmt.Errorf("wheel %d: %w", i, ErrNoWheels)
		}
		base := s.Wheel.SidewaysFriction()
		m.wheels = append(m.wheels, record{
			wheel: s.Wheel,
			role:  s.Role,
			base:  base,
			cmd: Command{
				SteerAngle:   s.Wheel.SteerAngle(),
				ExtremumSlip: base.ExtremumSlip,
			},
		})
		if s.Role.Has(RoleDrive) {
			m.driveCount++
		}
		if s.Role.Has(RoleTurn) && m.firstTurn < 0 {
			m.firstTurn = i
		}
	}
	if m.driveCount == 0 {
		return nil, ErrNoDriveWheels
	}
	if m.firstTurn < 0 {
		return nil, ErrNoTurnWheels
	}
	return m, nil
}

// Config returns the model's tuning.
func (m *Model) Config() Config {
	return m.cfg
}

// Len returns the number of wheels.
func (m *Model) Len() int {
	return len(m.wheels)
}

// Commands returns a copy of the last command written to each wheel.
func (m *Model) Commands() []Command {
	out := make([]Command, len(m.wheels))
	for i, w := range m.wheels {
		out[i] = w.cmd
	}
	return out
}

// Grounded reports the contact state of wheel i.
func (m *Model) Grounded(i int) bool {
	return m.wheels[i].wheel.IsGrounded()
}

// AllGrounded reports whether every wheel touches the ground.
func (m *Model) AllGrounded() bool {
	for _, w := range m.wheels {
		if !w.wheel.IsGrounded() {
			return false
		}
	}
	return true
}

// Speed derives the signed vehicle speed from the first turn wheel's rotation.
func (m *Model) Speed() float64 {
	w := m.wheels[m.firstTurn].wheel
	return (2 * math.Pi * w.Radius() * w.RPM() * 60) / 1000
}

// AvailableTorque evaluates the torque curve at speed.
func (m *Model) AvailableTorque(speed float64) float64 {
	return m.torque.Evaluate(speed)
}

// DriveTorque is the motor torque each grounded drive wheel receives.
func (m *Model) DriveTorque(throttle, speed float64) float64 {
	return throttle * m.torque.Evaluate(speed) * m.cfg.GearRatio / float64(m.driveCount)
}

// Steer moves every turn wheel a fraction of the way toward target.
func (m *Model) Steer(target float64) {
	for i := range m.wheels {
		w := &m.wheels[i]
		if !w.role.Has(RoleTurn) {
			continue
		}
		w.cmd.SteerAngle = lerp(w.cmd.SteerAngle, target, m.cfg.SteerRate)
		w.wheel.SetSteerAngle(w.cmd.SteerAngle)
	}
}

// ApplyThrottle releases the brakes and drives grounded drive wheels.
// Airborne drive wheels get no torque so they cannot spin up.
func (m *Model) ApplyThrottle(throttle, speed float64) {
	torque := m.DriveTorque(throttle, speed)
	for i := range m.wheels {
		w := &m.wheels[i]
		w.cmd.BrakeTorque = 0
		w.cmd.MotorTorque = 0
		if w.role.Has(RoleDrive) && w.wheel.IsGrounded() {
			w.cmd.MotorTorque = torque
		}
		w.wheel.SetBrakeTorque(0)
		w.wheel.SetMotorTorque(w.cmd.MotorTorque)
	}
}

// Brake applies the configured brake torque to every wheel and cuts the motor.
func (m *Model) Brake() {
	for i := range m.wheels {
		w := &m.wheels[i]
		w.cmd.MotorTorque = 0
		w.cmd.BrakeTorque = m.cfg.BrakeTorque
		w.wheel.SetMotorTorque(0)
		w.wheel.SetBrakeTorque(m.cfg.BrakeTorque)
	}
}

// ThrottleOff cuts motor torque on every wheel, leaving brakes untouched.
func (m *Model) ThrottleOff() {
	for i := range m.wheels {
		m.wheels[i].cmd.MotorTorque = 0
		m.wheels[i].wheel.SetMotorTorque(0)
	}
}

// SecureDriftAxis is the lowest drift axis at which the scaled extremum slip
// equals the base slip. Entering a drift below it would make the tires grip
// harder than normal for a moment.
func (m *Model) SecureDriftAxis() float64 {
	return 1 / m.cfg.DriftMultiplier
}

// EngageDrift advances the drift axis by dt while the handbrake is held and
// loosens sideways friction accordingly. It returns the new axis.
func (m *Model) EngageDrift(axis, dt float64) float64 {
	axis = lo.Clamp(axis+dt, m.SecureDriftAxis(), 1)
	m.scaleFriction(axis)
	return axis
}

// RecoverDrift decays the drift axis after the handbrake is released. Once the
// scaled slip no longer exceeds the base slip the base friction is restored
// and the axis snaps to zero. The boolean reports whether recovery continues.
func (m *Model) RecoverDrift(axis, dt float64) (float64, bool) {
	axis = math.Max(axis-dt/m.cfg.RecoveryTime, 0)
	if axis*m.cfg.DriftMultiplier > 1 {
		m.scaleFriction(axis)
		return axis, true
	}
	m.restoreFriction()
	return 0, false
}

// BaseExtremumSlip returns wheel i's unmodified extremum slip.
func (m *Model) BaseExtremumSlip(i int) float64 {
	return m.wheels[i].base.ExtremumSlip
}

func (m *Model) scaleFriction(axis float64) {
	for i := range m.wheels {
		w := &m.wheels[i]
		c := w.base
		c.ExtremumSlip = w.base.ExtremumSlip * m.cfg.DriftMultiplier * axis
		w.cmd.ExtremumSlip = c.ExtremumSlip
		w.wheel.SetSidewaysFriction(c)
	}
}

func (m *Model) restoreFriction() {
	for i := range m.wheels {
		w := &m.wheels[i]
		w.cmd.ExtremumSlip = w.base.ExtremumSlip
		w.wheel.SetSidewaysFriction(w.base)
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*lo.Clamp(t, 0, 1)
}
