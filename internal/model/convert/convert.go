package convert

import (
	"encoding/json"

	"github.com/OCAP2/drivesim/internal/model"
	"github.com/OCAP2/drivesim/pkg/core"
)

// RunToCore converts a GORM Run to a core.Run.
func RunToCore(r model.Run) core.Run {
	var cfg map[string]any
	if len(r.Config) > 0 {
		_ = json.Unmarshal(r.Config, &cfg)
	}
	return core.Run{
		ID:        r.ID,
		Name:      r.Name,
		StartTime: r.StartTime,
		TickRate:  r.TickRate,
		Config:    cfg,
	}
}

// VehicleToCore converts a GORM Vehicle to a core.Vehicle.
func VehicleToCore(v model.Vehicle) core.Vehicle {
	return core.Vehicle{
		ID:         v.ObjectID,
		Name:       v.Name,
		Driver:     core.DriverKind(v.Driver),
		JoinTime:   v.JoinTime,
		JoinTick:   v.JoinTick,
		WheelCount: v.WheelCount,
	}
}

// VehicleStateToCore converts a GORM VehicleState to a core.VehicleState.
func VehicleStateToCore(s model.VehicleState) core.VehicleState {
	var wheels []core.WheelState
	if len(s.Wheels) > 0 {
		_ = json.Unmarshal(s.Wheels, &wheels)
	}
	return core.VehicleState{
		VehicleID:      s.VehicleObjectID,
		Time:           s.Time,
		Tick:           s.Tick,
		Position:       core.Position3D{X: s.X, Y: s.Y, Z: s.Z},
		Yaw:            s.Yaw,
		Speed:          s.Speed,
		PlanarVelocity: s.PlanarVelocity,
		Throttle:       s.Throttle,
		Steering:       s.Steering,
		Handbrake:      s.Handbrake,
		Boosting:       s.Boosting,
		DriftingAxis:   s.DriftingAxis,
		TractionLocked: s.TractionLocked,
		Grounded:       s.Grounded,
		Wheels:         wheels,
	}
}

// AgentEventToCore converts a GORM AgentEvent to a core.AgentEvent.
func AgentEventToCore(e model.AgentEvent) core.AgentEvent {
	return core.AgentEvent{
		VehicleID:     e.VehicleObjectID,
		Time:          e.Time,
		Tick:          e.Tick,
		Kind:          core.AgentEventKind(e.Kind),
		WaypointIndex: e.WaypointIndex,
		Message:       e.Message,
	}
}
