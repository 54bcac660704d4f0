package convert

import (
	"testing"
	"time"

	"github.com/OCAP2/drivesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreToRun(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := CoreToRun(core.Run{
		ID:        7,
		Name:      "oval",
		StartTime: start,
		TickRate:  50,
		Config:    map[string]any{"ticks": 100},
	})

	assert.Equal(t, uint(7), m.ID)
	assert.Equal(t, "oval", m.Name)
	assert.Equal(t, start, m.StartTime)
	assert.JSONEq(t, `{"ticks":100}`, string(m.Config))

	back := RunToCore(m)
	assert.Equal(t, "oval", back.Name)
	assert.Equal(t, 100.0, back.Config["ticks"])
}

func TestCoreToRun_NilConfig(t *testing.T) {
	m := CoreToRun(core.Run{Name: "bare"})
	assert.Equal(t, "{}", string(m.Config))
}

func TestCoreToVehicle(t *testing.T) {
	m := CoreToVehicle(core.Vehicle{ID: 3, Name: "bot", Driver: core.DriverAgent, JoinTick: 5, WheelCount: 4})

	assert.Equal(t, uint16(3), m.ObjectID)
	assert.Equal(t, "agent", m.Driver)
	assert.Equal(t, uint(5), m.JoinTick)
	assert.Equal(t, core.DriverAgent, VehicleToCore(m).Driver)
}

func TestCoreToVehicleState(t *testing.T) {
	s := core.VehicleState{
		VehicleID:      2,
		Tick:           40,
		Position:       core.Position3D{X: 1, Y: 0.5, Z: 9},
		Yaw:            15,
		Speed:          42,
		PlanarVelocity: 3.2,
		Throttle:       1,
		Handbrake:      true,
		Grounded:       true,
		Wheels: []core.WheelState{
			{MotorTorque: 250, SteerAngle: 12, Grounded: true},
		},
	}

	m := CoreToVehicleState(s)
	assert.Equal(t, uint16(2), m.VehicleObjectID)
	assert.Equal(t, 9.0, m.Z)
	assert.True(t, m.Handbrake)

	back := VehicleStateToCore(m)
	require.Len(t, back.Wheels, 1)
	assert.Equal(t, 250.0, back.Wheels[0].MotorTorque)
	assert.Equal(t, s, back)
}

func TestCoreToVehicleState_NoWheels(t *testing.T) {
	m := CoreToVehicleState(core.VehicleState{VehicleID: 1})
	assert.Equal(t, "[]", string(m.Wheels))
}

func TestCoreToAgentEvent(t *testing.T) {
	e := core.AgentEvent{VehicleID: 4, Tick: 9, Kind: core.EventReverseStart, WaypointIndex: 2, Message: "stuck"}

	m := CoreToAgentEvent(e)
	assert.Equal(t, "reverseStart", m.Kind)
	assert.Equal(t, e, AgentEventToCore(m))
}
