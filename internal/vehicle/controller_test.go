package vehicle

import (
	"testing"

	"github.com/OCAP2/drivesim/internal/curve"
	"github.com/OCAP2/drivesim/internal/physics"
	"github.com/OCAP2/drivesim/internal/physics/physicstest"
	"github.com/OCAP2/drivesim/internal/wheel"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 0.02

type recordingSink struct {
	boost, drift, skid []bool
}

func (s *recordingSink) SetBoost(on bool) { s.boost = append(s.boost, on) }
func (s *recordingSink) SetDrift(on bool) { s.drift = append(s.drift, on) }
func (s *recordingSink) SetSkid(on bool)  { s.skid = append(s.skid, on) }

type rig struct {
	c      *Controller
	body   *physicstest.Body
	wheels []*physicstest.Wheel
}

func newRig(t *testing.T, opts ...Option) rig {
	t.Helper()
	ws := []*physicstest.Wheel{
		physicstest.NewWheel(), physicstest.NewWheel(),
		physicstest.NewWheel(), physicstest.NewWheel(),
	}
	body := physicstest.NewBody()
	c, err := New(body, []wheel.Spec{
		{Wheel: ws[0], Role: wheel.RoleTurn},
		{Wheel: ws[1], Role: wheel.RoleTurn},
		{Wheel: ws[2], Role: wheel.RoleDrive},
		{Wheel: ws[3], Role: wheel.RoleDrive},
	}, DefaultConfig(), opts...)
	require.NoError(t, err)
	return rig{c: c, body: body, wheels: ws}
}

func (r rig) setSpeed(s float64) {
	for _, w := range r.wheels {
		w.SetSpeed(s)
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoBody)

	_, err = New(physicstest.NewBody(), nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoWheels)

	_, err = New(physicstest.NewBody(), []wheel.Spec{
		{Wheel: physicstest.NewWheel(), Role: wheel.RoleDrive},
	}, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoTurnWheel)

	_, err = New(physicstest.NewBody(), []wheel.Spec{
		{Wheel: physicstest.NewWheel(), Role: wheel.RoleTurn},
	}, DefaultConfig())
	assert.ErrorIs(t, err, wheel.ErrNoDriveWheels)
}

func TestCommandSurfaceClamps(t *testing.T) {
	r := newRig(t)
	c := r.c

	c.SetThrottle(2)
	assert.Equal(t, 1.0, c.Throttle())
	c.SetThrottle(-7)
	assert.Equal(t, -1.0, c.Throttle())

	c.SetSteering(0.5)
	assert.InDelta(t, 15, c.Steering(), 1e-9)
	c.SetSteering(4)
	assert.InDelta(t, 30, c.Steering(), 1e-9)

	c.SetSteeringAngle(45)
	assert.Equal(t, 30.0, c.Steering())
	c.SetSteeringAngle(-45)
	assert.Equal(t, -30.0, c.Steering())

	c.SetMaxSteerAngle(80)
	assert.Equal(t, MaxSteerLimit, c.MaxSteerAngle())
	c.SetMaxSteerAngle(-1)
	assert.Zero(t, c.MaxSteerAngle())
}

func TestSetSteering_UsesCurve(t *testing.T) {
	cfg := DefaultConfig()
	eased, err := curve.New(curve.Key(-1, -1), curve.Key(0, 0), curve.Key(1, 1))
	require.NoError(t, err)
	cfg.SteeringCurve = eased

	body := physicstest.NewBody()
	c, err := New(body, []wheel.Spec{{Wheel: physicstest.NewWheel(), Role: wheel.RoleDrive | wheel.RoleTurn}}, cfg)
	require.NoError(t, err)

	c.SetSteering(0.5)
	assert.InDelta(t, 15, c.Steering(), 1e-9)
	c.SetSteering(0.25)
	assert.Less(t, c.Steering(), 7.5)
}

func TestFixedUpdate_SteeringLerps(t *testing.T) {
	r := newRig(t)
	r.c.SetSteeringAngle(30)

	r.c.FixedUpdate(dt)

	assert.InDelta(t, 6, r.wheels[0].Steer, 1e-9)
	assert.InDelta(t, 6, r.c.WheelCommands()[1].SteerAngle, 1e-9)
}

func TestFullThrottle_TorqueFloorBelowMaxSpeed(t *testing.T) {
	r := newRig(t)
	r.c.SetThrottle(1)

	for s := 0.0; s < 9.5; s += 0.1 {
		r.setSpeed(s)
		r.c.FixedUpdate(dt)
		assert.Greater(t, r.wheels[2].Motor, 0.0, "speed %.1f", s)
	}

	r.setSpeed(0)
	r.c.FixedUpdate(dt)
	assert.InDelta(t, 0.65*500*30/2, r.wheels[2].Motor, 1e-9)

	r.setSpeed(10)
	r.c.FixedUpdate(dt)
	assert.Zero(t, r.wheels[2].Motor)
}

func TestThrottle_RoundsSpeedBeforeLimit(t *testing.T) {
	r := newRig(t)
	r.c.SetThrottle(1)

	r.setSpeed(9.4)
	r.c.FixedUpdate(dt)
	assert.Greater(t, r.wheels[2].Motor, 0.0)

	// 9.6 rounds to 10, which is not below max speed.
	r.setSpeed(9.6)
	r.c.FixedUpdate(dt)
	assert.Zero(t, r.wheels[2].Motor)
}

func TestForwardThrottle_BrakesWhileRollingBack(t *testing.T) {
	r := newRig(t)
	r.body.Vel = mgl64.Vec3{0, 0, -2}
	r.c.SetThrottle(1)

	r.c.FixedUpdate(dt)

	for _, w := range r.wheels {
		assert.Equal(t, 1500.0, w.BrakeT)
		assert.Zero(t, w.Motor)
	}
}

func TestReverseThrottle(t *testing.T) {
	r := newRig(t)
	r.c.SetThrottle(-1)

	r.body.Vel = mgl64.Vec3{0, 0, 3}
	r.c.FixedUpdate(dt)
	assert.Equal(t, 1500.0, r.wheels[2].BrakeT)

	r.body.Vel = mgl64.Vec3{0, 0, -0.5}
	r.setSpeed(-3)
	r.c.FixedUpdate(dt)
	assert.Zero(t, r.wheels[2].BrakeT)
	assert.Less(t, r.wheels[2].Motor, 0.0)

	r.setSpeed(-10.2)
	r.c.FixedUpdate(dt)
	assert.Zero(t, r.wheels[2].Motor)
}

func TestThrottle_AirborneDriveWheel(t *testing.T) {
	r := newRig(t)
	r.wheels[3].Ground = false
	r.c.SetThrottle(1)

	r.c.FixedUpdate(dt)

	assert.Greater(t, r.wheels[2].Motor, 0.0)
	assert.Zero(t, r.wheels[3].Motor)
}

func TestIdle_DecaysToExactlyZero(t *testing.T) {
	r := newRig(t)
	r.body.Vel = mgl64.Vec3{3, 0, 4}
	r.c.SetThrottle(0)

	ticks := 0
	for r.body.Vel != (mgl64.Vec3{}) {
		prev := r.body.Vel
		r.c.FixedUpdate(dt)
		ticks++
		require.Less(t, ticks, 5000, "velocity never reached rest")
		assert.GreaterOrEqual(t, r.body.Vel.X(), 0.0)
		assert.GreaterOrEqual(t, r.body.Vel.Z(), 0.0)
		assert.LessOrEqual(t, r.body.Vel.Len(), prev.Len())
	}

	assert.False(t, r.c.Decelerating())
	assert.Equal(t, mgl64.Vec3{}, r.body.Vel)

	r.c.FixedUpdate(dt)
	assert.Equal(t, mgl64.Vec3{}, r.body.Vel)
	assert.False(t, r.c.Decelerating())
}

func TestIdle_BrakesWhileCoasting(t *testing.T) {
	r := newRig(t)
	r.body.Vel = mgl64.Vec3{0, 0, -5}
	r.c.SetThrottle(1)
	r.c.FixedUpdate(dt)
	require.Equal(t, 1500.0, r.wheels[0].BrakeT)

	r.c.SetThrottle(0)
	r.c.FixedUpdate(dt)

	require.True(t, r.c.Decelerating())
	for i, w := range r.wheels {
		assert.Equal(t, 1500.0, w.BrakeT, "wheel %d", i)
		assert.Zero(t, w.Motor, "wheel %d", i)
	}
}

func TestIdle_AtRestKeepsBrakeLatched(t *testing.T) {
	r := newRig(t)
	r.c.SetThrottle(0)
	r.c.FixedUpdate(dt)

	assert.False(t, r.c.Decelerating())
	for _, w := range r.wheels {
		assert.Zero(t, w.BrakeT)
		assert.Zero(t, w.Motor)
	}

	r.body.Vel = mgl64.Vec3{0, 0, 2}
	r.c.FixedUpdate(dt)
	require.Equal(t, 1500.0, r.wheels[0].BrakeT)

	r.body.Vel = mgl64.Vec3{}
	r.c.FixedUpdate(dt)
	assert.Equal(t, 1500.0, r.wheels[0].BrakeT, "idle never releases the brake")

	r.c.SetThrottle(1)
	r.c.FixedUpdate(dt)
	assert.Zero(t, r.wheels[0].BrakeT)
}

func TestHandbrake_ReleaseRestoresBaseSlip(t *testing.T) {
	r := newRig(t)
	base := r.wheels[0].Friction.ExtremumSlip

	r.c.SetHandbrake(true)
	for range 50 {
		r.c.FixedUpdate(dt)
	}
	require.True(t, r.c.TractionLocked())
	require.Greater(t, r.c.DriftingAxis(), 0.9)
	require.Greater(t, r.wheels[0].Friction.ExtremumSlip, base)

	r.c.SetHandbrake(false)
	elapsed := 0.0
	for r.c.TractionLocked() {
		r.c.FixedUpdate(dt)
		elapsed += dt
		require.LessOrEqual(t, elapsed, 1.5+1e-9)
	}

	assert.Zero(t, r.c.DriftingAxis())
	for _, w := range r.wheels {
		assert.Equal(t, base, w.Friction.ExtremumSlip)
	}
}

func TestHandbrake_HeldSkipsRecovery(t *testing.T) {
	r := newRig(t)
	r.c.SetHandbrake(true)

	r.c.FixedUpdate(dt)
	first := r.c.DriftingAxis()
	r.c.FixedUpdate(dt)

	assert.InDelta(t, first+dt, r.c.DriftingAxis(), 1e-12)
	assert.True(t, r.c.TractionLocked())
}

func TestJump(t *testing.T) {
	r := newRig(t)
	r.body.Vel = mgl64.Vec3{1, 0.5, 2}

	r.wheels[2].Ground = false
	r.c.Jump()
	assert.Equal(t, 0.5, r.body.Vel.Y())

	r.wheels[2].Ground = true
	r.c.Jump()
	assert.InDelta(t, 1.8, r.body.Vel.Y(), 1e-9)
	assert.Equal(t, 1.0, r.body.Vel.X())
}

func TestBoost_ForceAndEdgeTriggeredEffect(t *testing.T) {
	sink := &recordingSink{}
	r := newRig(t, WithEffects(sink))
	r.body.Rot = physics.YawRotation(90)

	r.c.SetBoosting(true)
	for range 3 {
		r.c.FixedUpdate(dt)
	}
	require.Len(t, r.body.Forces, 3)
	assert.InDelta(t, 5000, r.body.Forces[0].X(), 1e-6)
	assert.InDelta(t, 0, r.body.Forces[0].Z(), 1e-6)

	r.c.SetBoosting(false)
	r.c.FixedUpdate(dt)
	r.c.FixedUpdate(dt)

	assert.Equal(t, []bool{true, false}, sink.boost)
	assert.Len(t, r.body.Forces, 3)
}

func TestEffects_DriftAndSkid(t *testing.T) {
	sink := &recordingSink{}
	r := newRig(t, WithEffects(sink))

	r.body.Vel = mgl64.Vec3{3, 0, 10}
	r.c.SetThrottle(1)
	r.c.FixedUpdate(dt)
	assert.True(t, r.c.Effects().Drift)
	assert.False(t, r.c.Effects().Skid)

	r.setSpeed(13)
	r.c.SetHandbrake(true)
	r.c.FixedUpdate(dt)
	assert.True(t, r.c.Effects().Skid)

	r.body.Vel = mgl64.Vec3{0, 0, 10}
	r.c.FixedUpdate(dt)

	assert.Equal(t, []bool{true, false}, sink.drift)
	assert.Equal(t, []bool{true}, sink.skid)
}

func TestResetPosition(t *testing.T) {
	r := newRig(t)
	r.body.Vel = mgl64.Vec3{4, 1, 4}
	r.body.AngVel = mgl64.Vec3{0, 2, 0}

	r.c.ResetPosition(mgl64.Vec3{10, 0, 5}, physics.YawRotation(45))

	assert.Equal(t, mgl64.Vec3{10, 0, 5}, r.c.Position())
	assert.InDelta(t, 45, physics.Yaw(r.c.Rotation()), 1e-9)
	assert.Equal(t, mgl64.Vec3{}, r.body.Vel)
	assert.Equal(t, mgl64.Vec3{}, r.body.AngVel)
	assert.Equal(t, 1, r.body.Teleports)
}

func TestIsGrounded(t *testing.T) {
	r := newRig(t)
	assert.True(t, r.c.IsGrounded())
	r.wheels[1].Ground = false
	assert.False(t, r.c.IsGrounded())
	assert.False(t, r.c.WheelGrounded(1))
}
