package geo

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ParseWaypoints parses a JSON array of map coordinates into world points.
// Input format: "[[x1,y1],[x2,y2,elev2],...]"
func ParseWaypoints(input string) ([]mgl64.Vec3, error) {
	coords, err := parseCoords(input)
	if err != nil {
		return nil, err
	}
	return Waypoints(coords)
}

// Waypoints converts [x, y] or [x, y, elev] map coordinates to world points.
func Waypoints(coords [][]float64) ([]mgl64.Vec3, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("waypoint list is empty")
	}
	return coordsToPoints(coords)
}

// WaypointsFromLonLat projects WGS84 "lon,lat[,elev]" strings to world points.
func WaypointsFromLonLat(p *Projector, coords []string) ([]mgl64.Vec3, error) {
	out := make([]mgl64.Vec3, len(coords))
	for i, c := range coords {
		v, err := p.ProjectString(c)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d %q: %w", i, c, err)
		}
		out[i] = v
	}
	return out, nil
}

// GroundLineString builds the ground-plane trace of points.
func GroundLineString(points []mgl64.Vec3) geom.LineString {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X(), p.Z())
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// ParseFootprint parses a JSON ring of map coordinates into a ground polygon.
// The ring is closed automatically.
// Input format: "[[x1,y1],[x2,y2],[x3,y3],...]"
func ParseFootprint(input string) (geom.Polygon, error) {
	coords, err := parseCoords(input)
	if err != nil {
		return geom.Polygon{}, err
	}
	return Footprint(coords)
}

// Footprint builds a ground polygon from at least three map coordinates.
func Footprint(coords [][]float64) (geom.Polygon, error) {
	if len(coords) < 3 {
		return geom.Polygon{}, fmt.Errorf("footprint must have at least 3 points, got %d", len(coords))
	}
	flat := make([]float64, 0, (len(coords)+1)*2)
	for i, c := range coords {
		if len(c) < 2 {
			return geom.Polygon{}, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		flat = append(flat, c[0], c[1])
	}
	first, last := coords[0], coords[len(coords)-1]
	if first[0] != last[0] || first[1] != last[1] {
		flat = append(flat, first[0], first[1])
	}
	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{ring})
	if err := poly.Validate(); err != nil {
		return geom.Polygon{}, fmt.Errorf("invalid footprint: %w", err)
	}
	return poly, nil
}

func parseCoords(input string) ([][]float64, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse coordinate JSON: %w", err)
	}
	return coords, nil
}

func coordsToPoints(coords [][]float64) ([]mgl64.Vec3, error) {
	out := make([]mgl64.Vec3, len(coords))
	for i, c := range coords {
		switch len(c) {
		case 2:
			out[i] = FromMap(c[0], c[1], 0)
		case 3:
			out[i] = FromMap(c[0], c[1], c[2])
		default:
			return nil, fmt.Errorf("coordinate %d has %d values, want 2 or 3", i, len(c))
		}
	}
	return out, nil
}
