// Package arcade is a small headless physics collaborator: a yaw-only rigid
// body on a flat ground plane, simple wheels and a 2D obstacle world. It is
// good enough to exercise the vehicle core and makes no accuracy claims.
package arcade

import (
	"github.com/OCAP2/drivesim/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
)

// Body is a rigid body whose orientation is a heading about the up axis.
type Body struct {
	mass   float64
	pos    mgl64.Vec3
	yaw    float64 // degrees
	vel    mgl64.Vec3
	angVel mgl64.Vec3
	force  mgl64.Vec3
}

var _ physics.Body = (*Body)(nil)

// NewBody places a body of mass kg at pos facing yaw degrees.
func NewBody(mass float64, pos mgl64.Vec3, yaw float64) *Body {
	return &Body{mass: mass, pos: pos, yaw: yaw}
}

func (b *Body) Mass() float64                  { return b.mass }
func (b *Body) Yaw() float64                   { return b.yaw }
func (b *Body) Position() mgl64.Vec3           { return b.pos }
func (b *Body) Rotation() mgl64.Quat           { return physics.YawRotation(b.yaw) }
func (b *Body) LinearVelocity() mgl64.Vec3     { return b.vel }
func (b *Body) SetLinearVelocity(v mgl64.Vec3) { b.vel = v }
func (b *Body) AngularVelocity() mgl64.Vec3    { return b.angVel }

func (b *Body) SetAngularVelocity(w mgl64.Vec3) { b.angVel = w }

// AddForce accumulates a world-space force applied on the next step.
func (b *Body) AddForce(f mgl64.Vec3) { b.force = b.force.Add(f) }

// Teleport keeps only the heading of rotation.
func (b *Body) Teleport(position mgl64.Vec3, rotation mgl64.Quat) {
	b.pos = position
	b.yaw = physics.Yaw(rotation)
}

// takeForce returns and clears the accumulated force.
func (b *Body) takeForce() mgl64.Vec3 {
	f := b.force
	b.force = mgl64.Vec3{}
	return f
}
