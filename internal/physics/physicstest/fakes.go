// Package physicstest provides in-memory physics collaborators for tests.
package physicstest

import (
	"math"
	"sync"

	"github.com/OCAP2/drivesim/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
)

// Wheel records every value written to it.
type Wheel struct {
	R        float64
	Rpm      float64
	Ground   bool
	Steer    float64
	Motor    float64
	BrakeT   float64
	Friction physics.FrictionCurve
}

// NewWheel returns a grounded wheel with a 0.35 radius and a typical tire curve.
func NewWheel() *Wheel {
	return &Wheel{
		R:      0.35,
		Ground: true,
		Friction: physics.FrictionCurve{
			ExtremumSlip:   0.2,
			ExtremumValue:  1,
			AsymptoteSlip:  0.5,
			AsymptoteValue: 0.75,
			Stiffness:      1,
		},
	}
}

func (w *Wheel) Radius() float64                             { return w.R }
func (w *Wheel) RPM() float64                                { return w.Rpm }
func (w *Wheel) IsGrounded() bool                            { return w.Ground }
func (w *Wheel) SteerAngle() float64                         { return w.Steer }
func (w *Wheel) SetSteerAngle(d float64)                     { w.Steer = d }
func (w *Wheel) SetMotorTorque(t float64)                    { w.Motor = t }
func (w *Wheel) SetBrakeTorque(t float64)                    { w.BrakeT = t }
func (w *Wheel) SidewaysFriction() physics.FrictionCurve     { return w.Friction }
func (w *Wheel) SetSidewaysFriction(c physics.FrictionCurve) { w.Friction = c }

// SetSpeed sets the RPM that makes the model report speed.
func (w *Wheel) SetSpeed(speed float64) {
	w.Rpm = speed * 1000 / (2 * math.Pi * w.R * 60)
}

// Body is a kinematic body that only stores state.
type Body struct {
	Pos       mgl64.Vec3
	Rot       mgl64.Quat
	Vel       mgl64.Vec3
	AngVel    mgl64.Vec3
	Forces    []mgl64.Vec3
	Teleports int
}

// NewBody returns a body at the origin facing +Z.
func NewBody() *Body {
	return &Body{Rot: mgl64.QuatIdent()}
}

func (b *Body) Position() mgl64.Vec3            { return b.Pos }
func (b *Body) Rotation() mgl64.Quat            { return b.Rot }
func (b *Body) LinearVelocity() mgl64.Vec3      { return b.Vel }
func (b *Body) SetLinearVelocity(v mgl64.Vec3)  { b.Vel = v }
func (b *Body) SetAngularVelocity(w mgl64.Vec3) { b.AngVel = w }
func (b *Body) AddForce(f mgl64.Vec3)           { b.Forces = append(b.Forces, f) }

func (b *Body) Teleport(p mgl64.Vec3, r mgl64.Quat) {
	b.Pos, b.Rot = p, r
	b.Teleports++
}

// Ray is one recorded raycast.
type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
	MaxDist   float64
	Mask      physics.LayerMask
}

// Raycaster answers queries with a user-supplied function and records them.
type Raycaster struct {
	mu     sync.Mutex
	Hit    func(origin, dir mgl64.Vec3, maxDist float64) (physics.Hit, bool)
	Rays   []Ray
	Health error
}

func (r *Raycaster) Raycast(origin, dir mgl64.Vec3, maxDist float64, mask physics.LayerMask) (physics.Hit, bool) {
	r.mu.Lock()
	r.Rays = append(r.Rays, Ray{Origin: origin, Direction: dir, MaxDist: maxDist, Mask: mask})
	r.mu.Unlock()
	if r.Hit == nil {
		return physics.Hit{}, false
	}
	return r.Hit(origin, dir, maxDist)
}

func (r *Raycaster) Healthy() error {
	return r.Health
}

// Reset forgets recorded rays.
func (r *Raycaster) Reset() {
	r.mu.Lock()
	r.Rays = nil
	r.mu.Unlock()
}
