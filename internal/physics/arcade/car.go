package arcade

import (
	"errors"
	"fmt"
	"math"

	"github.com/OCAP2/drivesim/internal/physics"
	"github.com/OCAP2/drivesim/internal/wheel"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// groundTolerance is how far above the ground plane wheels still touch.
	groundTolerance = 0.01
	// spinDecay is applied to the rpm of airborne wheels each step.
	spinDecay = 0.98
)

// DriveLayout selects which axle receives motor torque.
type DriveLayout string

const (
	DriveRear  DriveLayout = "rear"
	DriveFront DriveLayout = "front"
	DriveAll   DriveLayout = "all"
)

// CarConfig sizes the reference four-wheel car.
type CarConfig struct {
	Mass        float64     `mapstructure:"mass"`
	WheelBase   float64     `mapstructure:"wheelBase"`
	WheelRadius float64     `mapstructure:"wheelRadius"`
	Gravity     float64     `mapstructure:"gravity"`
	Drag        float64     `mapstructure:"drag"`
	LateralGrip float64     `mapstructure:"lateralGrip"`
	Drive       DriveLayout `mapstructure:"drive"`

	Friction physics.FrictionCurve `mapstructure:"-"`
}

func DefaultCarConfig() CarConfig {
	return CarConfig{
		Mass:        1200,
		WheelBase:   2.6,
		WheelRadius: 0.35,
		Gravity:     9.81,
		Drag:        0.05,
		LateralGrip: 8,
		Drive:       DriveRear,
		Friction: physics.FrictionCurve{
			ExtremumSlip:   0.2,
			ExtremumValue:  1,
			AsymptoteSlip:  0.5,
			AsymptoteValue: 0.75,
			Stiffness:      1,
		},
	}
}

func (c CarConfig) validate() error {
	if c.Mass <= 0 || c.WheelBase <= 0 || c.WheelRadius <= 0 {
		return errors.New("car mass, wheel base and wheel radius must be positive")
	}
	if c.Friction.ExtremumSlip <= 0 {
		return errors.New("car friction extremum slip must be positive")
	}
	switch c.Drive {
	case DriveRear, DriveFront, DriveAll:
	default:
		return fmt.Errorf("unknown drive layout %q", c.Drive)
	}
	return nil
}

// Car is a body with four wheels: front left, front right, rear left, rear right.
type Car struct {
	cfg    CarConfig
	body   *Body
	wheels [4]*Wheel
}

// NewCar places a car at pos facing yaw degrees.
func NewCar(cfg CarConfig, pos mgl64.Vec3, yaw float64) (*Car, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &Car{cfg: cfg, body: NewBody(cfg.Mass, pos, yaw)}
	for i := range c.wheels {
		c.wheels[i] = NewWheel(cfg.WheelRadius, cfg.Friction)
	}
	return c, nil
}

func (c *Car) Body() *Body        { return c.body }
func (c *Car) Wheel(i int) *Wheel { return c.wheels[i] }

// Specs lists the wheels with their roles for the vehicle controller. The
// front wheels steer, so the front left wheel is the speed reference.
func (c *Car) Specs() []wheel.Spec {
	front, rear := wheel.RoleTurn, wheel.RoleIdle
	switch c.cfg.Drive {
	case DriveFront:
		front |= wheel.RoleDrive
	case DriveRear:
		rear = wheel.RoleDrive
	case DriveAll:
		front |= wheel.RoleDrive
		rear = wheel.RoleDrive
	}
	return []wheel.Spec{
		{Wheel: c.wheels[0], Role: front},
		{Wheel: c.wheels[1], Role: front},
		{Wheel: c.wheels[2], Role: rear},
		{Wheel: c.wheels[3], Role: rear},
	}
}

// Step integrates the car by dt seconds. Grounded wheels push the body along
// its heading, brakes bleed forward speed toward zero, and lateral velocity
// decays by a grip factor that shrinks as extremum slip grows. Heading
// follows a bicycle model over the front wheels' steer angle.
func (c *Car) Step(dt float64) {
	b := c.body
	grounded := b.pos.Y() <= groundTolerance
	for _, w := range c.wheels {
		w.grounded = grounded
	}

	v := b.vel.Add(b.takeForce().Mul(dt / b.mass))
	var forward float64

	if grounded {
		rot := b.Rotation()
		fwd, right := rot.Rotate(physics.Forward), rot.Rotate(physics.Right)
		forward = v.Dot(fwd)
		lateral := v.Dot(right)

		var drive, brake, slip float64
		for _, w := range c.wheels {
			drive += w.motor / w.radius
			brake += w.brake / w.radius
			slip += w.friction.ExtremumSlip
		}
		slip /= float64(len(c.wheels))

		forward += drive / b.mass * dt
		if dv := brake / b.mass * dt; math.Abs(forward) <= dv {
			forward = 0
		} else {
			forward -= math.Copysign(dv, forward)
		}
		forward *= 1 - math.Min(c.cfg.Drag*dt, 1)

		grip := c.cfg.LateralGrip * dt
		if slip > 0 {
			grip *= c.cfg.Friction.ExtremumSlip / slip
		}
		lateral *= 1 - math.Min(grip, 1)

		steer := (c.wheels[0].steer + c.wheels[1].steer) / 2
		yawRate := forward * math.Tan(mgl64.DegToRad(steer)) / c.cfg.WheelBase
		b.yaw += mgl64.RadToDeg(yawRate * dt)
		b.angVel = mgl64.Vec3{0, yawRate, 0}

		rot = b.Rotation()
		fwd, right = rot.Rotate(physics.Forward), rot.Rotate(physics.Right)
		v = fwd.Mul(forward).Add(right.Mul(lateral)).Add(physics.Up.Mul(v.Y()))
	} else {
		b.yaw += mgl64.RadToDeg(b.angVel.Y() * dt)
	}

	v[1] -= c.cfg.Gravity * dt
	b.pos = b.pos.Add(v.Mul(dt))
	if b.pos.Y() < 0 {
		b.pos[1] = 0
		if v.Y() < 0 {
			v[1] = 0
		}
	}
	b.vel = v

	for _, w := range c.wheels {
		if grounded {
			w.rpm = forward * 60 / (2 * math.Pi * w.radius)
		} else {
			w.rpm *= spinDecay
		}
	}
}
