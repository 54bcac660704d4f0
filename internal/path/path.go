// Package path holds the ordered waypoint sequences agents follow.
package path

import (
	"errors"

	"github.com/OCAP2/drivesim/internal/geo"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrEmptyPath is returned when a path is built without waypoints.
var ErrEmptyPath = errors.New("path has no waypoints")

// Path is an immutable, non-empty sequence of world points. A looping path
// continues from its last point back to the first.
type Path struct {
	points []mgl64.Vec3
	loop   bool
}

// New copies points into a path.
func New(points []mgl64.Vec3, loop bool) (*Path, error) {
	if len(points) == 0 {
		return nil, ErrEmptyPath
	}
	cp := make([]mgl64.Vec3, len(points))
	copy(cp, points)
	return &Path{points: cp, loop: loop}, nil
}

// Parse builds a path from a JSON list of map coordinates.
func Parse(input string, loop bool) (*Path, error) {
	points, err := geo.ParseWaypoints(input)
	if err != nil {
		return nil, err
	}
	return New(points, loop)
}

func (p *Path) Len() int   { return len(p.points) }
func (p *Path) Loop() bool { return p.loop }

// Point returns waypoint i.
func (p *Path) Point(i int) mgl64.Vec3 {
	return p.points[i]
}

// Points returns a copy of the waypoints.
func (p *Path) Points() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(p.points))
	copy(out, p.points)
	return out
}

// Next returns the index after i. For an open path the last index has no
// successor and ok is false.
func (p *Path) Next(i int) (next int, ok bool) {
	if i+1 < len(p.points) {
		return i + 1, true
	}
	if p.loop {
		return 0, true
	}
	return len(p.points) - 1, false
}

// PlanarLength is the ground-plane length of the path, including the closing
// segment of a loop.
func (p *Path) PlanarLength() float64 {
	if len(p.points) < 2 {
		return 0
	}
	pts := p.points
	if p.loop {
		pts = append(p.Points(), p.points[0])
	}
	return geo.GroundLineString(pts).Length()
}
