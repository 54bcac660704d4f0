package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionMode(t *testing.T) {
	m, err := ParseActionMode("")
	require.NoError(t, err)
	assert.Equal(t, ActionHandbrake, m)

	m, err = ParseActionMode("jump")
	require.NoError(t, err)
	assert.Equal(t, ActionJump, m)

	_, err = ParseActionMode("honk")
	assert.Error(t, err)
}

func TestHumanDriver_HandbrakeMode(t *testing.T) {
	v := newFakeVehicle()
	in, err := NewScriptedInput([]Step{
		{Duration: 0.2, Input: Input{Vertical: 1, Horizontal: -0.5, Boost: true}},
		{Duration: 0.2, Input: Input{Vertical: -2, Action: true}},
	}, false)
	require.NoError(t, err)
	h, err := NewHumanDriver(v, in, ActionHandbrake)
	require.NoError(t, err)

	h.Drive(dt)
	assert.Equal(t, 1.0, v.throttle)
	assert.Equal(t, -15.0, v.steering)
	assert.True(t, v.boost)
	assert.False(t, v.handbrake)

	h.Drive(dt)
	h.Drive(dt)
	assert.Equal(t, -1.0, v.throttle)
	assert.False(t, v.boost)
	assert.True(t, v.handbrake)
	assert.Zero(t, v.jumps)
}

func TestHumanDriver_JumpOnPressEdge(t *testing.T) {
	v := newFakeVehicle()
	in, err := NewScriptedInput([]Step{
		{Duration: 0.3, Input: Input{Action: true}},
		{Duration: 0.1, Input: Input{}},
		{Duration: 0.1, Input: Input{Action: true}},
	}, false)
	require.NoError(t, err)
	h, err := NewHumanDriver(v, in, ActionJump)
	require.NoError(t, err)

	for range 6 {
		h.Drive(dt)
	}

	assert.Equal(t, 2, v.jumps)
	assert.True(t, v.handbrake, "jump mode leaves the handbrake alone")
}

func TestNewHumanDriver_Errors(t *testing.T) {
	in, err := NewScriptedInput(nil, false)
	require.NoError(t, err)

	_, err = NewHumanDriver(nil, in, ActionJump)
	assert.Error(t, err)

	_, err = NewHumanDriver(newFakeVehicle(), in, "honk")
	assert.Error(t, err)
}

func TestScriptedInput(t *testing.T) {
	steps := []Step{
		{Duration: 1, Input: Input{Vertical: 1}},
		{Duration: 0.5, Input: Input{Horizontal: 1}},
	}

	t.Run("stops after the last step", func(t *testing.T) {
		in, err := NewScriptedInput(steps, false)
		require.NoError(t, err)

		assert.Equal(t, 1.0, in.Poll(0.5).Vertical)
		assert.Equal(t, 1.0, in.Poll(0.5).Vertical)
		assert.Equal(t, 1.0, in.Poll(0.5).Horizontal)
		assert.Equal(t, Input{}, in.Poll(0.5))
		assert.Equal(t, Input{}, in.Poll(0.5))
	})

	t.Run("loops", func(t *testing.T) {
		in, err := NewScriptedInput(steps, true)
		require.NoError(t, err)

		for range 3 {
			in.Poll(0.5)
		}
		assert.Equal(t, 1.0, in.Poll(0.5).Vertical)
	})

	t.Run("rejects empty durations", func(t *testing.T) {
		_, err := NewScriptedInput([]Step{{Duration: 0}}, false)
		assert.Error(t, err)
	})
}
