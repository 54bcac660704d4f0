package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/OCAP2/drivesim/internal/agent"
	"github.com/OCAP2/drivesim/internal/config"
	"github.com/OCAP2/drivesim/internal/curve"
	"github.com/OCAP2/drivesim/internal/geo"
	"github.com/OCAP2/drivesim/internal/path"
	"github.com/OCAP2/drivesim/internal/physics"
	"github.com/OCAP2/drivesim/internal/physics/arcade"
	"github.com/OCAP2/drivesim/internal/sensor"
	"github.com/OCAP2/drivesim/internal/sim"
	"github.com/OCAP2/drivesim/internal/vehicle"
	"github.com/OCAP2/drivesim/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// tuning is the shared configuration every vehicle of a scenario is built from.
type tuning struct {
	car     arcade.CarConfig
	vehicle vehicle.Config
	sensor  sensor.Config
	agent   agent.Config
}

func loadTuning() (tuning, error) {
	vc, err := config.GetVehicleConfig()
	if err != nil {
		return tuning{}, err
	}
	veh, err := vehicleConfig(vc)
	if err != nil {
		return tuning{}, err
	}
	sc, err := config.GetSensorConfig()
	if err != nil {
		return tuning{}, err
	}
	return tuning{
		car:     carConfig(config.GetCarConfig()),
		vehicle: veh,
		sensor:  sensorConfig(sc),
		agent:   agentConfig(config.GetAgentConfig()),
	}, nil
}

func vehicleConfig(c config.VehicleConfig) (vehicle.Config, error) {
	cfg := vehicle.Config{
		MaxTorque:              c.MaxTorque,
		MaxSpeed:               c.MaxSpeed,
		MaxSpeedReverse:        c.MaxSpeedReverse,
		GearRatio:              c.GearRatio,
		BrakeTorque:            c.BrakeTorque,
		DecelerationMultiplier: c.DecelerationMultiplier,
		MaxSteerAngle:          c.MaxSteerAngle,
		SteerRate:              c.SteerRate,
		JumpForce:              c.JumpForce,
		DriftMultiplier:        c.DriftMultiplier,
		BoostForce:             c.BoostForce,
	}
	if len(c.SteeringCurve) == 0 {
		return cfg, nil
	}
	keys := make([]curve.Keyframe, len(c.SteeringCurve))
	for i, k := range c.SteeringCurve {
		keys[i] = curve.Key(k.Time, k.Value)
	}
	crv, err := curve.New(keys...)
	if err != nil {
		return vehicle.Config{}, fmt.Errorf("steering curve: %w", err)
	}
	cfg.SteeringCurve = crv
	return cfg, nil
}

func carConfig(c config.CarConfig) arcade.CarConfig {
	cfg := arcade.DefaultCarConfig()
	cfg.Mass = c.Mass
	cfg.WheelBase = c.WheelBase
	cfg.WheelRadius = c.WheelRadius
	cfg.Gravity = c.Gravity
	cfg.Drag = c.Drag
	cfg.LateralGrip = c.LateralGrip
	cfg.Drive = arcade.DriveLayout(c.Drive)
	if c.ExtremumSlip > 0 {
		cfg.Friction.ExtremumSlip = c.ExtremumSlip
	}
	return cfg
}

// sensorConfig maps the configured layers to a mask; no layers means all.
func sensorConfig(c config.SensorConfig) sensor.Config {
	mask := physics.AllLayers
	if len(c.Layers) > 0 {
		mask = 0
		for _, l := range c.Layers {
			mask |= 1 << l
		}
	}
	return sensor.Config{
		Length:       c.Length,
		SideDistance: c.SideDistance,
		Angle:        c.Angle,
		Offset:       sensor.Offset{Forward: c.OffsetForward, Up: c.OffsetUp},
		Mask:         mask,
	}
}

func agentConfig(c config.AgentConfig) agent.Config {
	return agent.Config{
		Tolerance:  c.Tolerance,
		MaxWait:    c.MaxWait,
		MaxReverse: c.MaxReverse,
		StartIndex: c.StartIndex,
		Recovery:   agent.RecoveryMode(c.Recovery),
	}
}

func buildWorld(obstacles []config.ObstacleConfig) (*arcade.World, error) {
	w := arcade.NewWorld()
	for _, o := range obstacles {
		poly, err := geo.Footprint(o.Footprint)
		if err != nil {
			return nil, fmt.Errorf("obstacle %q: %w", o.Name, err)
		}
		err = w.Add(arcade.Obstacle{
			Name:      o.Name,
			Footprint: poly,
			Base:      o.Base,
			Height:    o.Height,
			Layer:     o.Layer,
		})
		if err != nil {
			return nil, err
		}
	}
	return w, nil
}

// waypoints resolves map or geographic waypoints. Geographic ones need the
// scenario origin.
func waypoints(v config.VehicleSpec, origin []float64) ([]mgl64.Vec3, error) {
	switch {
	case len(v.LonLat) > 0:
		if len(origin) < 2 {
			return nil, errors.New("lonLat waypoints need a scenario origin [lon, lat]")
		}
		return geo.WaypointsFromLonLat(geo.NewProjector(origin[0], origin[1]), v.LonLat)
	case len(v.Waypoints) > 0:
		return geo.Waypoints(v.Waypoints)
	}
	return nil, path.ErrEmptyPath
}

// spawn is the first waypoint, facing the second one.
func spawn(points []mgl64.Vec3) (mgl64.Vec3, float64) {
	if len(points) == 0 {
		return mgl64.Vec3{}, 0
	}
	pos := points[0]
	if len(points) > 1 {
		if dir := physics.Planar(points[1].Sub(pos)); dir.Len() > 0 {
			return pos, physics.Yaw(physics.LookRotation(dir))
		}
	}
	return pos, 0
}

// newVehicleSpec builds the car, its controller and a driver factory. Path
// and sensor faults surface from the factory so the runner can refuse the
// vehicle and log why.
func newVehicleSpec(v config.VehicleSpec, t tuning, world *arcade.World, origin []float64, log *slog.Logger) (sim.VehicleSpec, error) {
	kind := core.DriverKind(v.Driver)
	if kind == "" {
		kind = core.DriverAgent
	}

	points, err := waypoints(v, origin)
	if err != nil && !errors.Is(err, path.ErrEmptyPath) {
		return sim.VehicleSpec{}, fmt.Errorf("vehicle %q: %w", v.Name, err)
	}
	pos, yaw := spawn(points)

	car, err := arcade.NewCar(t.car, pos, yaw)
	if err != nil {
		return sim.VehicleSpec{}, fmt.Errorf("vehicle %q: %w", v.Name, err)
	}
	ctrl, err := vehicle.New(car.Body(), car.Specs(), t.vehicle, vehicle.WithEffects(sim.NewEffectsLogger(log, v.Name)))
	if err != nil {
		return sim.VehicleSpec{}, fmt.Errorf("vehicle %q: %w", v.Name, err)
	}

	spec := sim.VehicleSpec{Name: v.Name, Driver: kind, Controller: ctrl, Physics: car}
	switch kind {
	case core.DriverAgent:
		spec.NewDriver = func(emit agent.Listener) (agent.Driver, error) {
			arr, err := sensor.New(world, t.sensor)
			if err != nil {
				return nil, err
			}
			p, err := path.New(points, v.Loop)
			if err != nil {
				return nil, err
			}
			return agent.NewPathFollower(ctrl, arr, p, t.agent, agent.WithListener(emit))
		}
	case core.DriverHuman:
		mode, err := agent.ParseActionMode(v.ActionMode)
		if err != nil {
			return sim.VehicleSpec{}, fmt.Errorf("vehicle %q: %w", v.Name, err)
		}
		spec.NewDriver = func(agent.Listener) (agent.Driver, error) {
			in, err := agent.NewScriptedInput(v.Script, v.LoopScript)
			if err != nil {
				return nil, err
			}
			return agent.NewHumanDriver(ctrl, in, mode)
		}
	default:
		return sim.VehicleSpec{}, fmt.Errorf("vehicle %q: unknown driver %q", v.Name, v.Driver)
	}
	return spec, nil
}
