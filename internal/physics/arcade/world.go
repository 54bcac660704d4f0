package arcade

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/OCAP2/drivesim/internal/geo"
	"github.com/OCAP2/drivesim/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/peterstace/simplefeatures/geom"
)

// DefaultLayer is the collision layer obstacles use unless told otherwise.
const DefaultLayer uint8 = 0

var ErrInvalidObstacle = errors.New("invalid obstacle")

// Obstacle is a prism standing on the ground: a footprint polygon extruded
// from Base up by Height. A zero Height extends without limit.
type Obstacle struct {
	Name      string
	Footprint geom.Polygon
	Base      float64
	Height    float64
	Layer     uint8
}

func (o Obstacle) validate() error {
	if o.Footprint.IsEmpty() {
		return fmt.Errorf("%w %q: empty footprint", ErrInvalidObstacle, o.Name)
	}
	if o.Footprint.NumInteriorRings() > 0 {
		return fmt.Errorf("%w %q: footprints must be solid", ErrInvalidObstacle, o.Name)
	}
	if err := o.Footprint.Validate(); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidObstacle, o.Name, err)
	}
	if o.Height < 0 {
		return fmt.Errorf("%w %q: negative height", ErrInvalidObstacle, o.Name)
	}
	if o.Layer > 31 {
		return fmt.Errorf("%w %q: layer %d out of range", ErrInvalidObstacle, o.Name, o.Layer)
	}
	return nil
}

func (o Obstacle) spans(y float64) bool {
	if y < o.Base {
		return false
	}
	return o.Height == 0 || y <= o.Base+o.Height
}

// World is a static set of obstacles answering raycasts. It is safe for
// concurrent queries from several vehicles.
type World struct {
	mu        sync.RWMutex
	obstacles []Obstacle
	queries   atomic.Int64
}

var (
	_ physics.Raycaster     = (*World)(nil)
	_ physics.HealthChecker = (*World)(nil)
)

func NewWorld() *World {
	return &World{}
}

// Add validates and stores obstacles.
func (w *World) Add(obstacles ...Obstacle) error {
	for _, o := range obstacles {
		if err := o.validate(); err != nil {
			return err
		}
	}
	w.mu.Lock()
	w.obstacles = append(w.obstacles, obstacles...)
	w.mu.Unlock()
	return nil
}

// AddFootprint parses a JSON ring of map coordinates and adds it on the
// default layer.
func (w *World) AddFootprint(name, ring string, base, height float64) error {
	poly, err := geo.ParseFootprint(ring)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidObstacle, name, err)
	}
	return w.Add(Obstacle{Name: name, Footprint: poly, Base: base, Height: height, Layer: DefaultLayer})
}

func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.obstacles)
}

// Queries is the number of raycasts answered so far.
func (w *World) Queries() int64 {
	return w.queries.Load()
}

// Healthy re-validates every stored footprint.
func (w *World) Healthy() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, o := range w.obstacles {
		if err := o.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Raycast returns the nearest obstacle entry along the ray. Rays without a
// ground-plane component never hit. A ray starting inside a footprint hits at
// distance zero with the normal facing back along the ray.
func (w *World) Raycast(origin, direction mgl64.Vec3, maxDistance float64, mask physics.LayerMask) (physics.Hit, bool) {
	w.queries.Add(1)

	if maxDistance <= 0 || direction.Len() == 0 {
		return physics.Hit{}, false
	}
	dir := direction.Normalize()
	if math.Hypot(dir.X(), dir.Z()) < 1e-12 {
		return physics.Hit{}, false
	}
	end := origin.Add(dir.Mul(maxDistance))
	seg := geom.NewLineString(geom.NewSequence([]float64{
		origin.X(), origin.Z(), end.X(), end.Z(),
	}, geom.DimXY)).AsGeometry()
	start := geo.GroundPoint(origin).AsGeometry()

	w.mu.RLock()
	defer w.mu.RUnlock()

	var (
		best  physics.Hit
		found bool
	)
	for _, o := range w.obstacles {
		if !mask.Contains(o.Layer) {
			continue
		}
		poly := o.Footprint.AsGeometry()
		if !geom.Intersects(seg, poly) {
			continue
		}
		if geom.Intersects(start, poly) {
			if o.spans(origin.Y()) {
				return physics.Hit{Point: origin, Normal: dir.Mul(-1), Distance: 0}, true
			}
			continue
		}
		s, normal, ok := entry(o.Footprint, origin, end)
		if !ok {
			continue
		}
		dist := s * maxDistance
		if found && dist >= best.Distance {
			continue
		}
		point := origin.Add(dir.Mul(dist))
		if !o.spans(point.Y()) {
			continue
		}
		if normal.Dot(dir) > 0 {
			normal = normal.Mul(-1)
		}
		best = physics.Hit{Point: point, Normal: normal, Distance: dist}
		found = true
	}
	return best, found
}

// entry finds the first crossing of the ground segment from a to b with the
// footprint's boundary. s is the fraction along the segment and normal the
// horizontal normal of the crossed edge.
func entry(poly geom.Polygon, a, b mgl64.Vec3) (s float64, normal mgl64.Vec3, ok bool) {
	seq := poly.ExteriorRing().Coordinates()
	px, pz := a.X(), a.Z()
	rx, rz := b.X()-px, b.Z()-pz

	s = math.Inf(1)
	for i := 0; i+1 < seq.Length(); i++ {
		e0, e1 := seq.GetXY(i), seq.GetXY(i+1)
		ex, ez := e1.X-e0.X, e1.Y-e0.Y
		den := rx*ez - rz*ex
		if den == 0 {
			continue
		}
		qx, qz := e0.X-px, e0.Y-pz
		t := (qx*ez - qz*ex) / den
		u := (qx*rz - qz*rx) / den
		if t < 0 || t > 1 || u < 0 || u > 1 || t >= s {
			continue
		}
		s = t
		normal = mgl64.Vec3{ez, 0, -ex}.Normalize()
		ok = true
	}
	return s, normal, ok
}
