package sim

import (
	"github.com/OCAP2/drivesim/internal/config"
	"github.com/OCAP2/drivesim/internal/recorder"
	"github.com/OCAP2/drivesim/internal/storage"
)

// RegisterHandlers routes the runner's records to the storage backend and,
// when telemetry is non-nil, to a time-series sink as well.
func RegisterHandlers(rec *recorder.Recorder, backend storage.Backend, telemetry recorder.Telemetry, run string, cfg config.RecorderConfig) {
	states := recorder.VehicleStates(backend)
	events := recorder.AgentEvents(backend)
	if telemetry != nil {
		states = recorder.Tee(states, recorder.TelemetryStates(telemetry, run))
		events = recorder.Tee(events, recorder.TelemetryEvents(telemetry, run))
	}

	// Vehicle registration - sync (states are ignored for unknown vehicles)
	rec.Register(recorder.KindVehicle, recorder.Vehicles(backend), recorder.Logged())

	// High-volume per-tick records - buffered
	opts := []recorder.Option{recorder.Buffered(bufferSize(cfg.BufferSize, 10000))}
	if cfg.Blocking {
		opts = append(opts, recorder.Blocking())
	}
	rec.Register(recorder.KindVehicleState, states, opts...)

	// Navigation events are rare; always block rather than drop them
	rec.Register(recorder.KindAgentEvent, events,
		recorder.Buffered(bufferSize(cfg.BufferSize/10, 1000)), recorder.Blocking(), recorder.Logged())
}

func bufferSize(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
