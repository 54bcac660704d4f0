package agent

import (
	"github.com/OCAP2/drivesim/internal/sensor"
	"github.com/go-gl/mathgl/mgl64"
)

type fakeVehicle struct {
	pos      mgl64.Vec3
	rot      mgl64.Quat
	velocity float64

	throttle, steering float64
	maxSteer           float64
	handbrake, boost   bool
	jumps, resets      int
}

func newFakeVehicle() *fakeVehicle {
	return &fakeVehicle{rot: mgl64.QuatIdent(), maxSteer: 30, handbrake: true}
}

func (v *fakeVehicle) Throttle() float64          { return v.throttle }
func (v *fakeVehicle) SetThrottle(t float64)      { v.throttle = mgl64.Clamp(t, -1, 1) }
func (v *fakeVehicle) Steering() float64          { return v.steering }
func (v *fakeVehicle) SetSteering(in float64)     { v.steering = mgl64.Clamp(in, -1, 1) * v.maxSteer }
func (v *fakeVehicle) SetSteeringAngle(d float64) { v.steering = mgl64.Clamp(d, -v.maxSteer, v.maxSteer) }
func (v *fakeVehicle) MaxSteerAngle() float64     { return v.maxSteer }
func (v *fakeVehicle) SetMaxSteerAngle(d float64) { v.maxSteer = d }
func (v *fakeVehicle) Handbrake() bool            { return v.handbrake }
func (v *fakeVehicle) SetHandbrake(on bool)       { v.handbrake = on }
func (v *fakeVehicle) Boosting() bool             { return v.boost }
func (v *fakeVehicle) SetBoosting(on bool)        { v.boost = on }
func (v *fakeVehicle) Jump()                      { v.jumps++ }
func (v *fakeVehicle) Speed() float64             { return v.velocity }
func (v *fakeVehicle) PlanarVelocity() float64    { return v.velocity }
func (v *fakeVehicle) IsGrounded() bool           { return true }
func (v *fakeVehicle) Position() mgl64.Vec3       { return v.pos }
func (v *fakeVehicle) Rotation() mgl64.Quat       { return v.rot }

func (v *fakeVehicle) ResetPosition(p mgl64.Vec3, r mgl64.Quat) {
	v.pos, v.rot = p, r
	v.velocity = 0
	v.resets++
}

// fakeSensor returns a fixed reading and counts calls.
type fakeSensor struct {
	reading sensor.Reading
	calls   int
}

func (s *fakeSensor) Sense(mgl64.Vec3, mgl64.Quat) sensor.Reading {
	s.calls++
	return s.reading
}

func avoidingRight() sensor.Reading {
	var r sensor.Reading
	r.Hits[sensor.ProbeRight] = true
	r.Bias = -1
	r.Avoiding = true
	r.Queries = 4
	return r
}

type eventLog struct {
	events []Event
}

func (l *eventLog) listen(e Event) { l.events = append(l.events, e) }

func (l *eventLog) count(kind string) int {
	n := 0
	for _, e := range l.events {
		if string(e.Kind) == kind {
			n++
		}
	}
	return n
}
