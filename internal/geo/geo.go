package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/OCAP2/drivesim/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// MAP COORDINATES
// Scenario files use map coordinates: x east, y north, optional elevation.
// The simulation is Y-up with +Z forward, so map y becomes world Z and the
// elevation becomes world Y. Geometry on the ground plane is handled as XY
// where Y holds world Z.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

func splitCoords(coords string) (x, y, elev float64, err error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, ErrInvalidCoordinates
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		vals[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, ErrInvalidCoordinates
		}
	}
	if len(vals) == 3 {
		elev = vals[2]
	}
	return vals[0], vals[1], elev, nil
}

// FromMap converts map coordinates to a world point.
func FromMap(x, y, elev float64) mgl64.Vec3 {
	return mgl64.Vec3{x, elev, y}
}

// ToPosition3D converts a world point to its storage form.
func ToPosition3D(v mgl64.Vec3) core.Position3D {
	return core.Position3D{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// GroundXY projects a world point onto the ground plane.
func GroundXY(v mgl64.Vec3) geom.XY {
	return geom.XY{X: v.X(), Y: v.Z()}
}

// GroundPoint returns the ground-plane point of v as a geometry.
func GroundPoint(v mgl64.Vec3) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: GroundXY(v), Type: geom.DimXY})
}

// Projector maps WGS84 longitude/latitude onto local world metres around an
// origin, using EPSG:3857.
type Projector struct {
	transform func(a, b, c float64) (float64, float64, float64)
	ox, oy    float64
}

// NewProjector returns a projector whose origin is the given longitude/latitude.
func NewProjector(originLon, originLat float64) *Projector {
	f := wgs84.EPSG().Transform(4326, 3857)
	ox, oy, _ := f(originLon, originLat, 0)
	return &Projector{transform: f, ox: ox, oy: oy}
}

// Project converts longitude, latitude and elevation to a world point.
func (p *Projector) Project(lon, lat, elev float64) mgl64.Vec3 {
	x, y, _ := p.transform(lon, lat, 0)
	return FromMap(x-p.ox, y-p.oy, elev)
}

// ProjectString parses "lon,lat" or "lon,lat,elev" and projects it.
func (p *Projector) ProjectString(coords string) (mgl64.Vec3, error) {
	lon, lat, elev, err := splitCoords(coords)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	if lon < -180 || lon > 180 || lat < -85.06 || lat > 85.06 {
		return mgl64.Vec3{}, ErrInvalidCoordinates
	}
	return p.Project(lon, lat, elev), nil
}
