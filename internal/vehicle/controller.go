// Package vehicle implements the arcade dynamics controller that turns driver
// commands into wheel commands and body forces once per fixed tick.
package vehicle

import (
	"errors"
	"fmt"
	"math"

	"github.com/OCAP2/drivesim/internal/curve"
	"github.com/OCAP2/drivesim/internal/physics"
	"github.com/OCAP2/drivesim/internal/wheel"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

var (
	ErrNoBody      = errors.New("vehicle has no body")
	ErrNoWheels    = wheel.ErrNoWheels
	ErrNoTurnWheel = wheel.ErrNoTurnWheels
)

const (
	// MaxSteerLimit bounds the configurable max steer angle in degrees.
	MaxSteerLimit = 50.0

	tractionRecoveryTime = 1.5
	decelerationRate     = 0.025
	idleVelocity         = 0.025
	restVelocity         = 0.25
	reverseDeadband      = 1.0
	driftVelocity        = 2.5
	skidLateralVelocity  = 5.0
	skidSpeed            = 12.0
)

// Config is the static tuning of one vehicle.
type Config struct {
	MaxTorque              float64
	MaxSpeed               float64
	MaxSpeedReverse        float64
	GearRatio              float64
	BrakeTorque            float64
	DecelerationMultiplier float64
	MaxSteerAngle          float64
	SteerRate              float64
	JumpForce              float64
	DriftMultiplier        float64
	BoostForce             float64

	// SteeringCurve maps normalized steering input to [-1, 1]. Nil means linear.
	SteeringCurve *curve.Curve
}

// DefaultConfig returns the stock arcade tuning.
func DefaultConfig() Config {
	return Config{
		MaxTorque:              500,
		MaxSpeed:               10,
		MaxSpeedReverse:        10,
		GearRatio:              30,
		BrakeTorque:            1500,
		DecelerationMultiplier: 0.1,
		MaxSteerAngle:          30,
		SteerRate:              0.2,
		JumpForce:              1.3,
		DriftMultiplier:        5,
		BoostForce:             5000,
	}
}

func (c Config) wheelConfig() wheel.Config {
	return wheel.Config{
		MaxTorque:       c.MaxTorque,
		MaxSpeed:        c.MaxSpeed,
		GearRatio:       c.GearRatio,
		BrakeTorque:     c.BrakeTorque,
		SteerRate:       c.SteerRate,
		DriftMultiplier: c.DriftMultiplier,
		RecoveryTime:    tractionRecoveryTime,
	}
}

// EffectsSink receives visual feedback transitions. Each method is called only
// when the corresponding flag changes.
type EffectsSink interface {
	SetBoost(on bool)
	SetDrift(on bool)
	SetSkid(on bool)
}

// Commands is the input surface shared by human and autonomous drivers.
type Commands interface {
	Throttle() float64
	SetThrottle(v float64)
	Steering() float64
	SetSteering(input float64)
	SetSteeringAngle(degrees float64)
	MaxSteerAngle() float64
	SetMaxSteerAngle(degrees float64)
	Handbrake() bool
	SetHandbrake(on bool)
	Boosting() bool
	SetBoosting(on bool)
	Jump()

	Speed() float64
	PlanarVelocity() float64
	IsGrounded() bool
}

var _ Commands = (*Controller)(nil)

// Effects is the derived visual state of a vehicle.
type Effects struct {
	Boost bool
	Drift bool
	Skid  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithEffects reports effect transitions to sink.
func WithEffects(sink EffectsSink) Option {
	return func(c *Controller) {
		c.sink = sink
	}
}

// Controller owns the state of one vehicle. It is not safe for concurrent use.
type Controller struct {
	cfg        Config
	body       physics.Body
	wheels     *wheel.Model
	steerCurve *curve.Curve
	sink       EffectsSink

	maxSteer  float64
	throttle  float64
	steering  float64
	handbrake bool
	boosting  bool

	speed          float64
	localVelocity  mgl64.Vec3
	driftingAxis   float64
	tractionLocked bool
	decelerating   bool
	effects        Effects
}

// New builds a controller over body and the given wheels.
func New(body physics.Body, wheels []wheel.Spec, cfg Config, opts ...Option) (*Controller, error) {
	if body == nil {
		return nil, ErrNoBody
	}
	if len(wheels) == 0 {
		return nil, ErrNoWheels
	}
	model, err := wheel.New(cfg.wheelConfig(), wheels)
	if err != nil {
		return nil, fmt.Errorf("building wheel model: %w", err)
	}

	c := &Controller{
		cfg:        cfg,
		body:       body,
		wheels:     model,
		steerCurve: cfg.SteeringCurve,
		maxSteer:   lo.Clamp(cfg.MaxSteerAngle, 0, MaxSteerLimit),
	}
	if c.steerCurve == nil {
		c.steerCurve = curve.Identity()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FixedUpdate advances the controller by one fixed step of dt seconds.
// The stage order matters: each stage reads state written by the previous one.
func (c *Controller) FixedUpdate(dt float64) {
	c.speed = c.wheels.Speed()
	c.localVelocity = physics.InverseTransformDirection(c.body.Rotation(), c.body.LinearVelocity())

	c.wheels.Steer(c.steering)
	c.handleThrottle()
	c.handleDeceleration()
	c.handleHandbrake(dt)
	if !c.handbrake {
		c.recoverTraction(dt)
	}
	c.handleBoost()
	c.updateEffects()
}

func (c *Controller) handleThrottle() {
	c.decelerating = false
	switch {
	case c.throttle > 0:
		if c.localVelocity.Z() < -reverseDeadband {
			c.wheels.Brake()
		} else if math.RoundToEven(c.speed) < c.cfg.MaxSpeed {
			c.wheels.ApplyThrottle(c.throttle, c.speed)
		} else {
			c.wheels.ThrottleOff()
		}
	case c.throttle < 0:
		if c.localVelocity.Z() > reverseDeadband {
			c.wheels.Brake()
		} else if math.Abs(math.RoundToEven(c.speed)) < c.cfg.MaxSpeedReverse {
			c.wheels.ApplyThrottle(c.throttle, c.speed)
		} else {
			c.wheels.ThrottleOff()
		}
	default:
		c.wheels.ThrottleOff()
		if c.PlanarVelocity() > idleVelocity {
			c.decelerating = true
		}
	}
}

func (c *Controller) handleDeceleration() {
	if !c.decelerating {
		return
	}
	c.throttle = 0
	v := c.body.LinearVelocity().Mul(1 / (1 + decelerationRate*c.cfg.DecelerationMultiplier))
	c.body.SetLinearVelocity(v)
	c.wheels.Brake()
	if c.PlanarVelocity() < restVelocity {
		c.body.SetLinearVelocity(mgl64.Vec3{})
		c.decelerating = false
	}
}

func (c *Controller) handleHandbrake(dt float64) {
	if !c.handbrake {
		return
	}
	c.driftingAxis = c.wheels.EngageDrift(c.driftingAxis, dt)
	c.tractionLocked = true
}

func (c *Controller) recoverTraction(dt float64) {
	if !c.tractionLocked && c.driftingAxis == 0 {
		return
	}
	c.driftingAxis, c.tractionLocked = c.wheels.RecoverDrift(c.driftingAxis, dt)
}

func (c *Controller) handleBoost() {
	if !c.boosting {
		return
	}
	c.body.AddForce(c.body.Rotation().Rotate(physics.Forward).Mul(c.cfg.BoostForce))
}

func (c *Controller) updateEffects() {
	lateral := math.Abs(c.localVelocity.X())
	next := Effects{
		Boost: c.boosting,
		Drift: lateral > driftVelocity,
		Skid:  (c.tractionLocked || lateral > skidLateralVelocity) && math.Abs(c.speed) > skidSpeed,
	}
	prev := c.effects
	c.effects = next
	if c.sink == nil {
		return
	}
	if next.Boost != prev.Boost {
		c.sink.SetBoost(next.Boost)
	}
	if next.Drift != prev.Drift {
		c.sink.SetDrift(next.Drift)
	}
	if next.Skid != prev.Skid {
		c.sink.SetSkid(next.Skid)
	}
}

// Throttle returns the current throttle in [-1, 1].
func (c *Controller) Throttle() float64 { return c.throttle }

// SetThrottle clamps v to [-1, 1].
func (c *Controller) SetThrottle(v float64) { c.throttle = lo.Clamp(v, -1, 1) }

// Steering returns the commanded steer angle in degrees.
func (c *Controller) Steering() float64 { return c.steering }

// SetSteering maps normalized input through the steering curve onto the
// max steer angle.
func (c *Controller) SetSteering(input float64) {
	c.steering = c.steerCurve.Evaluate(input) * c.maxSteer
}

// SetSteeringAngle commands an angle directly, clamped to the max steer angle.
func (c *Controller) SetSteeringAngle(degrees float64) {
	c.steering = lo.Clamp(degrees, -c.maxSteer, c.maxSteer)
}

// MaxSteerAngle returns the steer angle limit in degrees.
func (c *Controller) MaxSteerAngle() float64 { return c.maxSteer }

// SetMaxSteerAngle clamps degrees to [0, MaxSteerLimit].
func (c *Controller) SetMaxSteerAngle(degrees float64) {
	c.maxSteer = lo.Clamp(degrees, 0, MaxSteerLimit)
}

// Handbrake reports whether the handbrake is held.
func (c *Controller) Handbrake() bool { return c.handbrake }

// SetHandbrake holds or releases the handbrake.
func (c *Controller) SetHandbrake(on bool) { c.handbrake = on }

// Boosting reports whether boost is engaged.
func (c *Controller) Boosting() bool { return c.boosting }

// SetBoosting engages or disengages boost.
func (c *Controller) SetBoosting(on bool) { c.boosting = on }

// Jump adds an upward velocity impulse. It does nothing unless every wheel
// touches the ground.
func (c *Controller) Jump() {
	if !c.wheels.AllGrounded() {
		return
	}
	up := c.body.Rotation().Rotate(physics.Up)
	c.body.SetLinearVelocity(c.body.LinearVelocity().Add(up.Mul(c.cfg.JumpForce)))
}

// Speed is the signed speed measured at the last fixed update.
func (c *Controller) Speed() float64 { return c.speed }

// PlanarVelocity is the magnitude of the body velocity ignoring the vertical axis.
func (c *Controller) PlanarVelocity() float64 {
	return physics.Planar(c.body.LinearVelocity()).Len()
}

// IsGrounded reports whether every wheel touches the ground.
func (c *Controller) IsGrounded() bool { return c.wheels.AllGrounded() }

// Position returns the body position.
func (c *Controller) Position() mgl64.Vec3 { return c.body.Position() }

// Rotation returns the body rotation.
func (c *Controller) Rotation() mgl64.Quat { return c.body.Rotation() }

// ResetPosition teleports the vehicle and stops it.
func (c *Controller) ResetPosition(position mgl64.Vec3, rotation mgl64.Quat) {
	c.body.Teleport(position, rotation)
	c.body.SetLinearVelocity(mgl64.Vec3{})
	c.body.SetAngularVelocity(mgl64.Vec3{})
}

// DriftingAxis returns the drift intensity in [0, 1].
func (c *Controller) DriftingAxis() float64 { return c.driftingAxis }

// TractionLocked reports whether sideways friction is currently scaled.
func (c *Controller) TractionLocked() bool { return c.tractionLocked }

// Decelerating reports whether passive deceleration is active.
func (c *Controller) Decelerating() bool { return c.decelerating }

// Effects returns the visual state derived at the last fixed update.
func (c *Controller) Effects() Effects { return c.effects }

// WheelCommands returns the last command written to each wheel.
func (c *Controller) WheelCommands() []wheel.Command { return c.wheels.Commands() }

// WheelGrounded reports the contact state of wheel i.
func (c *Controller) WheelGrounded(i int) bool { return c.wheels.Grounded(i) }

// Config returns the vehicle tuning.
func (c *Controller) Config() Config { return c.cfg }
