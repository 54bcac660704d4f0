package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func assertVec(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	assert.InDelta(t, want.X(), got.X(), 1e-9, "x")
	assert.InDelta(t, want.Y(), got.Y(), 1e-9, "y")
	assert.InDelta(t, want.Z(), got.Z(), 1e-9, "z")
}

func TestYawRotation_TurnsForwardRight(t *testing.T) {
	r := YawRotation(90)
	assertVec(t, Right, r.Rotate(Forward))
	assert.InDelta(t, 90, Yaw(r), 1e-9)
}

func TestTransformRoundTrip(t *testing.T) {
	pos := mgl64.Vec3{3, 1, -2}
	rot := YawRotation(30)
	local := mgl64.Vec3{1, 0.5, 4}

	world := TransformPoint(pos, rot, local)
	assertVec(t, local, InverseTransformPoint(pos, rot, world))
}

func TestInverseTransformPoint_TargetAheadAndRight(t *testing.T) {
	// Facing +X, a point further along +X lies straight ahead.
	rot := YawRotation(90)
	local := InverseTransformPoint(mgl64.Vec3{}, rot, mgl64.Vec3{5, 0, 0})
	assertVec(t, mgl64.Vec3{0, 0, 5}, local)

	// A point at -Z is then on the right-hand side.
	local = InverseTransformPoint(mgl64.Vec3{}, rot, mgl64.Vec3{0, 0, -5})
	assertVec(t, mgl64.Vec3{5, 0, 0}, local)
}

func TestLookRotation(t *testing.T) {
	r := LookRotation(mgl64.Vec3{-2, 7, 0})
	assertVec(t, mgl64.Vec3{-1, 0, 0}, r.Rotate(Forward))

	assert.Equal(t, mgl64.QuatIdent(), LookRotation(mgl64.Vec3{0, 3, 0}))
}

func TestLayerMask(t *testing.T) {
	m := LayerMask(1<<3 | 1<<5)

	assert.True(t, m.Contains(3))
	assert.True(t, m.Contains(5))
	assert.False(t, m.Contains(0))
	assert.True(t, AllLayers.Contains(31))
}

func TestPlanar(t *testing.T) {
	assert.Equal(t, mgl64.Vec3{1, 0, 3}, Planar(mgl64.Vec3{1, 2, 3}))
}
