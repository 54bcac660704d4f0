package arcade

import (
	"github.com/OCAP2/drivesim/internal/physics"
)

// Wheel stores the commands written by the controller and the contact state
// computed by the car's step.
type Wheel struct {
	radius   float64
	rpm      float64
	grounded bool
	steer    float64
	motor    float64
	brake    float64
	friction physics.FrictionCurve
}

var _ physics.Wheel = (*Wheel)(nil)

// NewWheel returns a grounded wheel.
func NewWheel(radius float64, friction physics.FrictionCurve) *Wheel {
	return &Wheel{radius: radius, friction: friction, grounded: true}
}

func (w *Wheel) Radius() float64                             { return w.radius }
func (w *Wheel) RPM() float64                                { return w.rpm }
func (w *Wheel) IsGrounded() bool                            { return w.grounded }
func (w *Wheel) SteerAngle() float64                         { return w.steer }
func (w *Wheel) SetSteerAngle(d float64)                     { w.steer = d }
func (w *Wheel) MotorTorque() float64                        { return w.motor }
func (w *Wheel) SetMotorTorque(t float64)                    { w.motor = t }
func (w *Wheel) BrakeTorque() float64                        { return w.brake }
func (w *Wheel) SetBrakeTorque(t float64)                    { w.brake = t }
func (w *Wheel) SidewaysFriction() physics.FrictionCurve     { return w.friction }
func (w *Wheel) SetSidewaysFriction(c physics.FrictionCurve) { w.friction = c }
