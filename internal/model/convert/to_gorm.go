// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/OCAP2/drivesim/internal/model"
	"github.com/OCAP2/drivesim/pkg/core"
	"gorm.io/datatypes"
)

// toJSON marshals v for a JSON column, falling back to empty.
func toJSON(v any, empty string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(data)
}

// CoreToRun converts a core.Run to a GORM model.Run.
func CoreToRun(r core.Run) model.Run {
	m := model.Run{
		Name:      r.Name,
		StartTime: r.StartTime,
		TickRate:  r.TickRate,
		Config:    toJSON(r.Config, "{}"),
	}
	m.ID = r.ID
	return m
}

// CoreToVehicle converts a core.Vehicle to a GORM model.Vehicle.
// core.Vehicle.ID maps to GORM Vehicle.ObjectID.
func CoreToVehicle(v core.Vehicle) model.Vehicle {
	return model.Vehicle{
		ObjectID:   v.ID,
		JoinTime:   v.JoinTime,
		JoinTick:   v.JoinTick,
		Name:       v.Name,
		Driver:     string(v.Driver),
		WheelCount: v.WheelCount,
	}
}

// CoreToVehicleState converts a core.VehicleState to a GORM model.VehicleState.
func CoreToVehicleState(s core.VehicleState) model.VehicleState {
	return model.VehicleState{
		Time:            s.Time,
		Tick:            s.Tick,
		VehicleObjectID: s.VehicleID,
		X:               s.Position.X,
		Y:               s.Position.Y,
		Z:               s.Position.Z,
		Yaw:             s.Yaw,
		Speed:           s.Speed,
		PlanarVelocity:  s.PlanarVelocity,
		Throttle:        s.Throttle,
		Steering:        s.Steering,
		Handbrake:       s.Handbrake,
		Boosting:        s.Boosting,
		DriftingAxis:    s.DriftingAxis,
		TractionLocked:  s.TractionLocked,
		Grounded:        s.Grounded,
		Wheels:          toJSON(s.Wheels, "[]"),
	}
}

// CoreToAgentEvent converts a core.AgentEvent to a GORM model.AgentEvent.
func CoreToAgentEvent(e core.AgentEvent) model.AgentEvent {
	return model.AgentEvent{
		Time:            e.Time,
		Tick:            e.Tick,
		VehicleObjectID: e.VehicleID,
		Kind:            string(e.Kind),
		WaypointIndex:   e.WaypointIndex,
		Message:         e.Message,
	}
}
