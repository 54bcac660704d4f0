package recorder

import (
	"errors"
	"fmt"

	"github.com/OCAP2/drivesim/internal/storage"
	"github.com/OCAP2/drivesim/pkg/core"
)

// ErrPayload is returned when a record carries an unexpected payload type.
var ErrPayload = errors.New("unexpected record payload")

// VehicleStates persists *core.VehicleState payloads.
func VehicleStates(b storage.Backend) HandlerFunc {
	return func(rec Record) error {
		s, ok := rec.Payload.(*core.VehicleState)
		if !ok {
			return fmt.Errorf("%w: %T", ErrPayload, rec.Payload)
		}
		return b.RecordVehicleState(s)
	}
}

// AgentEvents persists *core.AgentEvent payloads.
func AgentEvents(b storage.Backend) HandlerFunc {
	return func(rec Record) error {
		e, ok := rec.Payload.(*core.AgentEvent)
		if !ok {
			return fmt.Errorf("%w: %T", ErrPayload, rec.Payload)
		}
		return b.RecordAgentEvent(e)
	}
}

// Vehicles registers *core.Vehicle payloads with the backend.
func Vehicles(b storage.Backend) HandlerFunc {
	return func(rec Record) error {
		v, ok := rec.Payload.(*core.Vehicle)
		if !ok {
			return fmt.Errorf("%w: %T", ErrPayload, rec.Payload)
		}
		return b.AddVehicle(v)
	}
}

// Telemetry is a time-series sink keyed by run name, such as InfluxDB.
type Telemetry interface {
	RecordVehicleState(run string, s *core.VehicleState) error
	RecordAgentEvent(run string, e *core.AgentEvent) error
}

// TelemetryStates writes *core.VehicleState payloads as telemetry points.
func TelemetryStates(t Telemetry, run string) HandlerFunc {
	return func(rec Record) error {
		s, ok := rec.Payload.(*core.VehicleState)
		if !ok {
			return fmt.Errorf("%w: %T", ErrPayload, rec.Payload)
		}
		return t.RecordVehicleState(run, s)
	}
}

// TelemetryEvents writes *core.AgentEvent payloads as telemetry points.
func TelemetryEvents(t Telemetry, run string) HandlerFunc {
	return func(rec Record) error {
		e, ok := rec.Payload.(*core.AgentEvent)
		if !ok {
			return fmt.Errorf("%w: %T", ErrPayload, rec.Payload)
		}
		return t.RecordAgentEvent(run, e)
	}
}
