// pkg/core/events.go
package core

import "time"

// AgentEventKind classifies navigation events raised by the path-following agent.
type AgentEventKind string

const (
	EventWaypointReached AgentEventKind = "waypointReached"
	EventPathWrapped     AgentEventKind = "pathWrapped"
	EventPathFinished    AgentEventKind = "pathFinished"
	EventAvoidStart      AgentEventKind = "avoidStart"
	EventAvoidEnd        AgentEventKind = "avoidEnd"
	EventBlocked         AgentEventKind = "blocked"
	EventReverseStart    AgentEventKind = "reverseStart"
	EventReverseEnd      AgentEventKind = "reverseEnd"
	EventRespawn         AgentEventKind = "respawn"
)

// AgentEvent is a single navigation event.
type AgentEvent struct {
	VehicleID     uint16
	Time          time.Time
	Tick          Tick
	Kind          AgentEventKind
	WaypointIndex int
	Message       string
}
