// pkg/core/run.go
package core

import "time"

// Run represents one recorded simulation session.
type Run struct {
	ID        uint
	Name      string
	StartTime time.Time
	TickRate  float64 // ticks per second
	Config    map[string]any
}

// Position3D is a world-space position. Y is up.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Tick is the index of a fixed simulation step, starting at 0.
type Tick = uint
