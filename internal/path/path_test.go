package path

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Empty(t *testing.T) {
	_, err := New(nil, false)
	require.ErrorIs(t, err, ErrEmptyPath)

	_, err = New([]mgl64.Vec3{}, true)
	require.ErrorIs(t, err, ErrEmptyPath)
}

func TestNew_CopiesPoints(t *testing.T) {
	pts := []mgl64.Vec3{{0, 0, 0}, {0, 0, 10}}
	p, err := New(pts, false)
	require.NoError(t, err)

	pts[1] = mgl64.Vec3{99, 99, 99}
	assert.Equal(t, mgl64.Vec3{0, 0, 10}, p.Point(1))

	out := p.Points()
	out[0] = mgl64.Vec3{5, 5, 5}
	assert.Equal(t, mgl64.Vec3{}, p.Point(0))
}

func TestNext(t *testing.T) {
	pts := []mgl64.Vec3{{}, {0, 0, 1}, {0, 0, 2}}

	open, err := New(pts, false)
	require.NoError(t, err)
	next, ok := open.Next(0)
	assert.Equal(t, 1, next)
	assert.True(t, ok)
	next, ok = open.Next(2)
	assert.Equal(t, 2, next)
	assert.False(t, ok)

	loop, err := New(pts, true)
	require.NoError(t, err)
	next, ok = loop.Next(2)
	assert.Equal(t, 0, next)
	assert.True(t, ok)
}

func TestPlanarLength(t *testing.T) {
	square := []mgl64.Vec3{{0, 0, 0}, {10, 3, 0}, {10, 0, 10}, {0, -2, 10}}

	open, err := New(square, false)
	require.NoError(t, err)
	assert.InDelta(t, 30, open.PlanarLength(), 1e-9)

	loop, err := New(square, true)
	require.NoError(t, err)
	assert.InDelta(t, 40, loop.PlanarLength(), 1e-9)
	assert.Equal(t, 4, loop.Len())

	single, err := New(square[:1], true)
	require.NoError(t, err)
	assert.Zero(t, single.PlanarLength())
}

func TestParse(t *testing.T) {
	p, err := Parse("[[0,0],[0,10],[5,10,1]]", true)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())
	assert.True(t, p.Loop())
	assert.Equal(t, mgl64.Vec3{5, 1, 10}, p.Point(2))

	_, err = Parse("[]", false)
	assert.Error(t, err)
}
