// Package physics declares the collaborators the simulation core drives: a
// rigid body, its wheels and a collision-query service.
//
// Frames are Y-up with +Z forward and +X right. A positive yaw rotates the
// forward axis toward +X, so positive steer angles turn right.
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	Right   = mgl64.Vec3{1, 0, 0}
	Up      = mgl64.Vec3{0, 1, 0}
	Forward = mgl64.Vec3{0, 0, 1}
)

// FrictionCurve describes a tire friction curve. Only ExtremumSlip is
// modulated by the core; the remaining values are carried through.
type FrictionCurve struct {
	ExtremumSlip   float64
	ExtremumValue  float64
	AsymptoteSlip  float64
	AsymptoteValue float64
	Stiffness      float64
}

// Wheel is one wheel of the external wheel/suspension solver.
type Wheel interface {
	Radius() float64
	// RPM is the wheel's rotation speed in revolutions per minute.
	RPM() float64
	IsGrounded() bool

	SteerAngle() float64
	SetSteerAngle(degrees float64)
	SetMotorTorque(torque float64)
	SetBrakeTorque(torque float64)

	SidewaysFriction() FrictionCurve
	SetSidewaysFriction(c FrictionCurve)
}

// Body is the vehicle's rigid body.
type Body interface {
	Position() mgl64.Vec3
	Rotation() mgl64.Quat

	LinearVelocity() mgl64.Vec3
	SetLinearVelocity(v mgl64.Vec3)
	SetAngularVelocity(w mgl64.Vec3)
	AddForce(f mgl64.Vec3)

	// Teleport moves the body without integrating.
	Teleport(position mgl64.Vec3, rotation mgl64.Quat)
}

// LayerMask selects the collision layers a query may hit.
type LayerMask uint32

// AllLayers matches every layer.
const AllLayers LayerMask = math.MaxUint32

// Contains reports whether layer is selected by the mask.
func (m LayerMask) Contains(layer uint8) bool {
	return m&(1<<layer) != 0
}

// Hit is the result of a successful raycast.
type Hit struct {
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

// Raycaster is the collision-query service.
type Raycaster interface {
	Raycast(origin, direction mgl64.Vec3, maxDistance float64, mask LayerMask) (Hit, bool)
}

// HealthChecker is implemented by query services that can report availability.
type HealthChecker interface {
	Healthy() error
}

// TransformPoint converts a local-space point into world space.
func TransformPoint(position mgl64.Vec3, rotation mgl64.Quat, local mgl64.Vec3) mgl64.Vec3 {
	return position.Add(rotation.Rotate(local))
}

// InverseTransformPoint converts a world-space point into the local frame.
func InverseTransformPoint(position mgl64.Vec3, rotation mgl64.Quat, world mgl64.Vec3) mgl64.Vec3 {
	return rotation.Inverse().Rotate(world.Sub(position))
}

// InverseTransformDirection converts a world-space direction into the local frame.
func InverseTransformDirection(rotation mgl64.Quat, world mgl64.Vec3) mgl64.Vec3 {
	return rotation.Inverse().Rotate(world)
}

// YawRotation returns a rotation of degrees about the up axis.
func YawRotation(degrees float64) mgl64.Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(degrees), Up)
}

// Yaw returns the heading of rotation in degrees, in (-180, 180].
func Yaw(rotation mgl64.Quat) float64 {
	f := rotation.Rotate(Forward)
	return mgl64.RadToDeg(math.Atan2(f.X(), f.Z()))
}

// LookRotation returns the yaw-only rotation facing along direction.
// A direction with no planar component yields the identity.
func LookRotation(direction mgl64.Vec3) mgl64.Quat {
	if direction.X() == 0 && direction.Z() == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(math.Atan2(direction.X(), direction.Z()), Up)
}

// Planar drops the vertical component of v.
func Planar(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}
