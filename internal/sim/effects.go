package sim

import (
	"log/slog"

	"github.com/OCAP2/drivesim/internal/vehicle"
)

// EffectsLogger reports visual effect transitions as debug log records.
type EffectsLogger struct {
	log *slog.Logger
}

var _ vehicle.EffectsSink = (*EffectsLogger)(nil)

// NewEffectsLogger logs transitions for one vehicle; name is attached to
// every record.
func NewEffectsLogger(log *slog.Logger, name string) *EffectsLogger {
	if log == nil {
		log = slog.Default()
	}
	return &EffectsLogger{log: log.With("vehicle", name)}
}

func (l *EffectsLogger) SetBoost(on bool) { l.log.Debug("Boost effect", "on", on) }
func (l *EffectsLogger) SetDrift(on bool) { l.log.Debug("Drift effect", "on", on) }
func (l *EffectsLogger) SetSkid(on bool)  { l.log.Debug("Skid effect", "on", on) }
