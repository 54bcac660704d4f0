// pkg/core/vehicle.go
package core

import "time"

// DriverKind names the command source steering a vehicle.
type DriverKind string

const (
	DriverHuman DriverKind = "human"
	DriverAgent DriverKind = "agent"
)

// Vehicle represents a simulated vehicle registered with a run.
type Vehicle struct {
	ID         uint16
	Name       string
	Driver     DriverKind
	JoinTime   time.Time
	JoinTick   Tick
	WheelCount int
}

// WheelState is the command applied to one wheel during a tick.
type WheelState struct {
	MotorTorque  float64 `json:"motorTorque"`
	BrakeTorque  float64 `json:"brakeTorque"`
	SteerAngle   float64 `json:"steerAngle"`
	ExtremumSlip float64 `json:"extremumSlip"`
	Grounded     bool    `json:"grounded"`
}

// VehicleState represents vehicle state at the end of a tick.
type VehicleState struct {
	VehicleID      uint16
	Time           time.Time
	Tick           Tick
	Position       Position3D
	Yaw            float64 // degrees, 0 = +Z, positive turns toward +X
	Speed          float64
	PlanarVelocity float64
	Throttle       float64
	Steering       float64
	Handbrake      bool
	Boosting       bool
	DriftingAxis   float64
	TractionLocked bool
	Grounded       bool
	Wheels         []WheelState
}
