package geo

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWaypoints_Valid(t *testing.T) {
	pts, err := ParseWaypoints("[[100.5,200.25],[300.75,400.5,2],[500,600]]")

	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, mgl64.Vec3{100.5, 0, 200.25}, pts[0])
	assert.Equal(t, mgl64.Vec3{300.75, 2, 400.5}, pts[1])
	assert.Equal(t, mgl64.Vec3{500, 0, 600}, pts[2])
}

func TestWaypoints(t *testing.T) {
	pts, err := Waypoints([][]float64{{1, 2}, {3, 4, 5}})
	require.NoError(t, err)
	assert.Equal(t, []mgl64.Vec3{{1, 0, 2}, {3, 5, 4}}, pts)

	_, err = Waypoints(nil)
	assert.Error(t, err)

	_, err = Waypoints([][]float64{{1}})
	assert.Error(t, err)
}

func TestParseWaypoints_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", "not valid json"},
		{"empty", "[]"},
		{"too few values", "[[100],[200,300]]"},
		{"too many values", "[[1,2,3,4]]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWaypoints(tt.input)
			require.Error(t, err)
		})
	}
}

func TestWaypointsFromLonLat(t *testing.T) {
	p := NewProjector(0, 0)

	pts, err := WaypointsFromLonLat(p, []string{"0,0", "0.001,0"})
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.InDelta(t, 0, pts[0].X(), 1e-6)
	assert.InDelta(t, 111.3, pts[1].X(), 1)

	_, err = WaypointsFromLonLat(p, []string{"0,0", "x,y"})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.ErrorContains(t, err, "waypoint 1")
}

func TestGroundLineString(t *testing.T) {
	ls := GroundLineString([]mgl64.Vec3{{0, 5, 0}, {3, -1, 4}, {3, 0, 10}})

	assert.InDelta(t, 11, ls.Length(), 1e-9)
	seq := ls.Coordinates()
	require.Equal(t, 3, seq.Length())
	assert.Equal(t, 4.0, seq.GetXY(1).Y)
}

func TestParseFootprint(t *testing.T) {
	poly, err := ParseFootprint("[[0,0],[4,0],[4,2],[0,2]]")
	require.NoError(t, err)

	assert.InDelta(t, 8, poly.Area(), 1e-9)
	assert.Equal(t, 5, poly.ExteriorRing().Coordinates().Length(), "ring is closed")

	closed, err := ParseFootprint("[[0,0],[4,0],[4,2],[0,0]]")
	require.NoError(t, err)
	assert.Equal(t, 4, closed.ExteriorRing().Coordinates().Length())
}

func TestParseFootprint_Errors(t *testing.T) {
	_, err := ParseFootprint("[[0,0],[1,1]]")
	assert.Error(t, err)

	_, err = ParseFootprint("{")
	assert.Error(t, err)

	_, err = ParseFootprint("[[0,0],[1],[1,1]]")
	assert.Error(t, err)

	// Self-intersecting bow tie.
	_, err = ParseFootprint("[[0,0],[2,2],[2,0],[0,2]]")
	assert.Error(t, err)
}
