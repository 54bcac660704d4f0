package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/OCAP2/drivesim/pkg/core"
	"github.com/samber/lo"
)

// ErrNoRun is returned by EndRun when StartRun was never called.
var ErrNoRun = errors.New("no run started")

// RunExport is the root JSON structure
type RunExport struct {
	Name      string         `json:"name"`
	StartTime string         `json:"startTime"`
	TickRate  float64        `json:"tickRate"`
	EndTick   core.Tick      `json:"endTick"`
	Config    map[string]any `json:"config,omitempty"`
	Vehicles  []VehicleJSON  `json:"vehicles"`
	Events    []EventJSON    `json:"events"`
}

// VehicleJSON is one vehicle and its track
type VehicleJSON struct {
	ID         uint16    `json:"id"`
	Name       string    `json:"name"`
	Driver     string    `json:"driver"`
	JoinTick   core.Tick `json:"joinTick"`
	WheelCount int       `json:"wheelCount"`

	// Each state is [tick, [x, y, z], yaw, speed, throttle, steering, flags].
	States [][]any `json:"states"`
}

// EventJSON is one agent event
type EventJSON struct {
	Tick          core.Tick `json:"tick"`
	VehicleID     uint16    `json:"vehicleId"`
	Kind          string    `json:"kind"`
	WaypointIndex int       `json:"waypointIndex"`
	Message       string    `json:"message,omitempty"`
}

// state flag bits in the exported flags field
const (
	flagHandbrake = 1 << iota
	flagBoosting
	flagTractionLocked
	flagGrounded
)

// exportJSON writes the run data to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.run.Name)
	if name == "" {
		name = "run"
	}
	timestamp := b.run.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() RunExport {
	export := RunExport{
		Name:      b.run.Name,
		StartTime: b.run.StartTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		TickRate:  b.run.TickRate,
		Config:    b.run.Config,
		Vehicles:  make([]VehicleJSON, 0, len(b.vehicles)),
		Events:    make([]EventJSON, 0),
	}

	records := lo.Values(b.vehicles)
	slices.SortFunc(records, func(x, y *VehicleRecord) int {
		return int(x.Vehicle.ID) - int(y.Vehicle.ID)
	})

	var events []core.AgentEvent
	for _, record := range records {
		v := VehicleJSON{
			ID:         record.Vehicle.ID,
			Name:       record.Vehicle.Name,
			Driver:     string(record.Vehicle.Driver),
			JoinTick:   record.Vehicle.JoinTick,
			WheelCount: record.Vehicle.WheelCount,
			States:     make([][]any, 0, len(record.States)),
		}
		for _, s := range record.States {
			v.States = append(v.States, []any{
				s.Tick,
				[]float64{s.Position.X, s.Position.Y, s.Position.Z},
				s.Yaw,
				s.Speed,
				s.Throttle,
				s.Steering,
				stateFlags(s),
			})
			export.EndTick = max(export.EndTick, s.Tick)
		}
		export.Vehicles = append(export.Vehicles, v)
		events = append(events, record.Events...)
	}
	events = append(events, b.orphanEvents...)

	slices.SortStableFunc(events, func(x, y core.AgentEvent) int {
		return int(x.Tick) - int(y.Tick)
	})
	for _, e := range events {
		export.Events = append(export.Events, EventJSON{
			Tick:          e.Tick,
			VehicleID:     e.VehicleID,
			Kind:          string(e.Kind),
			WaypointIndex: e.WaypointIndex,
			Message:       e.Message,
		})
	}

	return export
}

func stateFlags(s core.VehicleState) int {
	var f int
	if s.Handbrake {
		f |= flagHandbrake
	}
	if s.Boosting {
		f |= flagBoosting
	}
	if s.TractionLocked {
		f |= flagTractionLocked
	}
	if s.Grounded {
		f |= flagGrounded
	}
	return f
}

func writeExport(path string, data RunExport, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if !compress {
		return json.NewEncoder(f).Encode(data)
	}

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}
