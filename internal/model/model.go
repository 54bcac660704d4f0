// Package model holds the GORM table definitions for recorded runs.
package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists every table AutoMigrate creates.
var DatabaseModels = []interface{}{
	&Run{},
	&Vehicle{},
	&VehicleState{},
	&AgentEvent{},
}

// Run is one recorded simulation session
type Run struct {
	gorm.Model
	Name      string         `json:"name" gorm:"size:200"`
	StartTime time.Time      `json:"startTime" gorm:"index:idx_run_start"`
	EndTime   *time.Time     `json:"endTime"`
	TickRate  float64        `json:"tickRate"`
	Config    datatypes.JSON `json:"config"`
}

func (*Run) TableName() string {
	return "runs"
}

// Vehicle is keyed by (RunID, ObjectID); ObjectID is the simulator-assigned
// vehicle ID, not a database sequence.
type Vehicle struct {
	RunID      uint      `json:"runId" gorm:"primaryKey;autoIncrement:false"`
	ObjectID   uint16    `json:"vehicleId" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt  time.Time `json:"createdAt"`
	JoinTime   time.Time `json:"joinTime" gorm:"NOT NULL"`
	JoinTick   uint      `json:"joinTick"`
	Name       string    `json:"name" gorm:"size:64"`
	Driver     string    `json:"driver" gorm:"size:16"`
	WheelCount int       `json:"wheelCount"`
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

// VehicleState is the vehicle at the end of one tick.
type VehicleState struct {
	ID              uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time            time.Time `json:"time"`
	RunID           uint      `json:"runId" gorm:"index:idx_vehiclestate_run_id"`
	Tick            uint      `json:"tick" gorm:"index:idx_vehiclestate_tick"`
	VehicleObjectID uint16    `json:"vehicleId" gorm:"index:idx_vehiclestate_vehicle_id"`

	X              float64        `json:"x"`
	Y              float64        `json:"y"` // up
	Z              float64        `json:"z"`
	Yaw            float64        `json:"yaw"`
	Speed          float64        `json:"speed"`
	PlanarVelocity float64        `json:"planarVelocity"`
	Throttle       float64        `json:"throttle"`
	Steering       float64        `json:"steering"`
	Handbrake      bool           `json:"handbrake"`
	Boosting       bool           `json:"boosting"`
	DriftingAxis   float64        `json:"driftingAxis"`
	TractionLocked bool           `json:"tractionLocked"`
	Grounded       bool           `json:"grounded"`
	Wheels         datatypes.JSON `json:"wheels"` // []core.WheelState
}

func (*VehicleState) TableName() string {
	return "vehicle_states"
}

// AgentEvent is a navigation event raised by a path-following agent.
type AgentEvent struct {
	ID              uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time            time.Time `json:"time"`
	RunID           uint      `json:"runId" gorm:"index:idx_agentevent_run_id"`
	Tick            uint      `json:"tick"`
	VehicleObjectID uint16    `json:"vehicleId" gorm:"index:idx_agentevent_vehicle_id"`
	Kind            string    `json:"kind" gorm:"size:32"`
	WaypointIndex   int       `json:"waypointIndex"`
	Message         string    `json:"message" gorm:"size:255"`
}

func (*AgentEvent) TableName() string {
	return "agent_events"
}
