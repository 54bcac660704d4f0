// Package sensor casts forward-biased probes against an obstacle layer and
// turns the hits into an avoidance steer bias or a blocked signal.
package sensor

import (
	"errors"
	"fmt"

	"github.com/OCAP2/drivesim/internal/physics"
	"github.com/OCAP2/drivesim/internal/vehicle"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrQueryUnavailable is returned when the collision-query service is missing
// or reports itself unhealthy.
var ErrQueryUnavailable = errors.New("collision query service unavailable")

// CrawlThrottle is the throttle used while steering around an obstacle.
const CrawlThrottle = 0.3

// Probe identifies one ray of the array.
type Probe int

const (
	ProbeRight Probe = iota
	ProbeRightAngled
	ProbeLeft
	ProbeLeftAngled
	ProbeCenter
	probeCount
)

// MaxQueries is the most raycasts a single Sense call performs.
const MaxQueries = int(probeCount)

func (p Probe) String() string {
	switch p {
	case ProbeRight:
		return "right"
	case ProbeRightAngled:
		return "right-angled"
	case ProbeLeft:
		return "left"
	case ProbeLeftAngled:
		return "left-angled"
	case ProbeCenter:
		return "center"
	default:
		return fmt.Sprintf("probe(%d)", int(p))
	}
}

// bias is the steer contribution of a hit, pointing away from the obstacle.
var bias = [probeCount]float64{
	ProbeRight:       -1,
	ProbeRightAngled: -0.5,
	ProbeLeft:        1,
	ProbeLeftAngled:  0.5,
}

// Offset moves the sensor origin from the vehicle's reference point.
type Offset struct {
	Forward float64
	Up      float64
}

// Config describes the probe pattern.
type Config struct {
	Length       float64 // maximum probe distance
	SideDistance float64 // lateral offset of the side probes
	Angle        float64 // yaw of the angled probes, degrees
	Offset       Offset
	Mask         physics.LayerMask
}

// DefaultConfig returns a 10 unit long array with side probes 1 unit out and
// angled probes at 25 degrees.
func DefaultConfig() Config {
	return Config{
		Length:       10,
		SideDistance: 1,
		Angle:        25,
		Mask:         physics.AllLayers,
	}
}

// Reading is the outcome of one Sense call.
type Reading struct {
	Hits     [probeCount]bool
	Bias     float64
	Avoiding bool
	Blocked  bool
	Queries  int
}

// Hit reports whether probe p hit an obstacle.
func (r Reading) Hit(p Probe) bool {
	return r.Hits[p]
}

// Apply writes the reading into the vehicle's commands. A blocked reading
// only cuts the throttle; an avoiding reading steers by the bias directly,
// bypassing the input curve, and crawls.
func (r Reading) Apply(cmd vehicle.Commands) {
	switch {
	case r.Blocked:
		cmd.SetThrottle(0)
	case r.Avoiding:
		cmd.SetSteeringAngle(r.Bias * cmd.MaxSteerAngle())
		cmd.SetThrottle(CrawlThrottle)
	}
}

// Array casts the probes. It holds no per-tick state.
type Array struct {
	cfg Config
	ray physics.Raycaster
}

// New validates the query service. A Raycaster that also implements
// physics.HealthChecker must report healthy.
func New(ray physics.Raycaster, cfg Config) (*Array, error) {
	if ray == nil {
		return nil, ErrQueryUnavailable
	}
	if hc, ok := ray.(physics.HealthChecker); ok {
		if err := hc.Healthy(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQueryUnavailable, err)
		}
	}
	if cfg.Length <= 0 {
		return nil, fmt.Errorf("sensor length must be positive, got %v", cfg.Length)
	}
	return &Array{cfg: cfg, ray: ray}, nil
}

// Config returns the probe pattern.
func (a *Array) Config() Config {
	return a.cfg
}

// Sense casts the probes from a vehicle at position facing rotation. The
// center probe is only cast when the side probes cancel out.
func (a *Array) Sense(position mgl64.Vec3, rotation mgl64.Quat) Reading {
	var r Reading

	forward := rotation.Rotate(physics.Forward)
	right := rotation.Rotate(physics.Right)
	up := rotation.Rotate(physics.Up)

	origin := position.Add(forward.Mul(a.cfg.Offset.Forward)).Add(up.Mul(a.cfg.Offset.Up))
	rightOrigin := origin.Add(right.Mul(a.cfg.SideDistance))
	leftOrigin := origin.Sub(right.Mul(a.cfg.SideDistance))
	rightAngled := rotation.Rotate(physics.YawRotation(a.cfg.Angle).Rotate(physics.Forward))
	leftAngled := rotation.Rotate(physics.YawRotation(-a.cfg.Angle).Rotate(physics.Forward))

	a.cast(&r, ProbeRight, rightOrigin, forward)
	a.cast(&r, ProbeRightAngled, rightOrigin, rightAngled)
	a.cast(&r, ProbeLeft, leftOrigin, forward)
	a.cast(&r, ProbeLeftAngled, leftOrigin, leftAngled)

	if r.Bias == 0 && a.cast(&r, ProbeCenter, origin, forward) {
		r.Blocked = true
	}
	return r
}

func (a *Array) cast(r *Reading, p Probe, origin, direction mgl64.Vec3) bool {
	r.Queries++
	if _, ok := a.ray.Raycast(origin, direction, a.cfg.Length, a.cfg.Mask); !ok {
		return false
	}
	r.Hits[p] = true
	r.Bias += bias[p]
	r.Avoiding = true
	return true
}
