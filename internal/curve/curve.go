// Package curve implements keyframed response curves evaluated with cubic
// Hermite interpolation. Curves clamp outside their first and last key.
package curve

import (
	"errors"
	"sort"
)

// ErrNoKeys is returned when a curve is built without keyframes.
var ErrNoKeys = errors.New("curve has no keyframes")

// Keyframe is a control point with incoming and outgoing tangents (slopes).
type Keyframe struct {
	Time       float64
	Value      float64
	InTangent  float64
	OutTangent float64
}

// Key returns a keyframe with flat tangents.
func Key(time, value float64) Keyframe {
	return Keyframe{Time: time, Value: value}
}

// Curve is an immutable, time-sorted set of keyframes.
type Curve struct {
	keys []Keyframe
}

// New builds a curve from keys. Keys are sorted by time.
func New(keys ...Keyframe) (*Curve, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	sorted := make([]Keyframe, len(keys))
	copy(sorted, keys)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return &Curve{keys: sorted}, nil
}

// Linear returns a straight line between (t0, v0) and (t1, v1).
func Linear(t0, v0, t1, v1 float64) *Curve {
	slope := 0.0
	if t1 != t0 {
		slope = (v1 - v0) / (t1 - t0)
	}
	return &Curve{keys: []Keyframe{
		{Time: t0, Value: v0, InTangent: slope, OutTangent: slope},
		{Time: t1, Value: v1, InTangent: slope, OutTangent: slope},
	}}
}

// Identity maps [-1, 1] onto itself.
func Identity() *Curve {
	return Linear(-1, -1, 1, 1)
}

// Keys returns a copy of the curve's keyframes.
func (c *Curve) Keys() []Keyframe {
	out := make([]Keyframe, len(c.keys))
	copy(out, c.keys)
	return out
}

// Evaluate returns the curve value at t.
func (c *Curve) Evaluate(t float64) float64 {
	first, last := c.keys[0], c.keys[len(c.keys)-1]
	if t <= first.Time {
		return first.Value
	}
	if t >= last.Time {
		return last.Value
	}

	i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i].Time > t })
	k0, k1 := c.keys[i-1], c.keys[i]
	span := k1.Time - k0.Time
	if span <= 0 {
		return k1.Value
	}
	return hermite(k0.Value, k0.OutTangent*span, k1.Value, k1.InTangent*span, (t-k0.Time)/span)
}

func hermite(p0, m0, p1, m1, u float64) float64 {
	u2 := u * u
	u3 := u2 * u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2
	return h00*p0 + h10*m0 + h01*p1 + h11*m1
}
