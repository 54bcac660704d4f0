// Package agent provides the command sources that drive a vehicle each tick:
// a human-input driver and an autonomous path follower.
package agent

import (
	"errors"
	"fmt"

	"github.com/OCAP2/drivesim/internal/vehicle"
)

// Driver writes one tick's worth of commands into its vehicle.
type Driver interface {
	Drive(dt float64)
}

// Input is one poll of a human input device.
type Input struct {
	Vertical   float64 `json:"vertical" mapstructure:"vertical"`
	Horizontal float64 `json:"horizontal" mapstructure:"horizontal"`
	Boost      bool    `json:"boost" mapstructure:"boost"`
	Action     bool    `json:"action" mapstructure:"action"`
}

// InputSource is polled once per tick.
type InputSource interface {
	Poll(dt float64) Input
}

// ActionMode selects what the action key does.
type ActionMode string

const (
	// ActionHandbrake holds the handbrake while the key is down.
	ActionHandbrake ActionMode = "handbrake"
	// ActionJump jumps when the key goes down.
	ActionJump ActionMode = "jump"
)

// ParseActionMode accepts "handbrake" and "jump"; empty means handbrake.
func ParseActionMode(s string) (ActionMode, error) {
	switch ActionMode(s) {
	case "", ActionHandbrake:
		return ActionHandbrake, nil
	case ActionJump:
		return ActionJump, nil
	}
	return "", fmt.Errorf("unknown action mode %q", s)
}

// HumanDriver forwards device input to the vehicle.
type HumanDriver struct {
	cmd        vehicle.Commands
	in         InputSource
	mode       ActionMode
	prevAction bool
}

var _ Driver = (*HumanDriver)(nil)

func NewHumanDriver(cmd vehicle.Commands, in InputSource, mode ActionMode) (*HumanDriver, error) {
	if cmd == nil || in == nil {
		return nil, errors.New("human driver needs a vehicle and an input source")
	}
	if _, err := ParseActionMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ActionHandbrake
	}
	return &HumanDriver{cmd: cmd, in: in, mode: mode}, nil
}

func (h *HumanDriver) Drive(dt float64) {
	in := h.in.Poll(dt)
	h.cmd.SetThrottle(in.Vertical)
	h.cmd.SetSteering(in.Horizontal)
	h.cmd.SetBoosting(in.Boost)

	switch h.mode {
	case ActionHandbrake:
		h.cmd.SetHandbrake(in.Action)
	case ActionJump:
		if in.Action && !h.prevAction {
			h.cmd.Jump()
		}
	}
	h.prevAction = in.Action
}

// Step holds an input for a duration in seconds.
type Step struct {
	Duration float64 `json:"duration" mapstructure:"duration"`
	Input    `mapstructure:",squash"`
}

// ScriptedInput replays a fixed timeline of inputs. After the last step it
// reports zero input, or starts over when looping.
type ScriptedInput struct {
	steps   []Step
	loop    bool
	total   float64
	elapsed float64
}

var _ InputSource = (*ScriptedInput)(nil)

func NewScriptedInput(steps []Step, loop bool) (*ScriptedInput, error) {
	s := &ScriptedInput{steps: steps, loop: loop}
	for i, st := range steps {
		if st.Duration <= 0 {
			return nil, fmt.Errorf("step %d: duration must be positive", i)
		}
		s.total += st.Duration
	}
	return s, nil
}

// Poll returns the input active at the current time and advances by dt.
func (s *ScriptedInput) Poll(dt float64) Input {
	t := s.elapsed
	s.elapsed += dt
	if s.loop && s.total > 0 {
		for t >= s.total {
			t -= s.total
		}
	}
	for _, st := range s.steps {
		if t < st.Duration {
			return st.Input
		}
		t -= st.Duration
	}
	return Input{}
}
