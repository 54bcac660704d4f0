// Package influx ships per-tick vehicle telemetry to InfluxDB, falling back
// to a gzipped line-protocol file when the server cannot be reached.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/drivesim/internal/config"
	"github.com/OCAP2/drivesim/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Measurement names.
const (
	MeasurementVehicleState = "vehicle_state"
	MeasurementAgentEvent   = "agent_event"
)

// RetentionSeconds is the expiry set on buckets the manager creates.
const RetentionSeconds = 60 * 60 * 24 * 90

// ErrDisabled is returned by Connect when InfluxDB output is switched off.
var ErrDisabled = errors.New("influx output is disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	cfg    config.InfluxConfig
	Logger zerolog.Logger

	Client     influxdb2.Client
	Writer     influxdb2_api.WriteAPI
	IsValid    bool
	BackupPath string

	mu           sync.Mutex
	backupFile   *os.File
	backupWriter *gzip.Writer
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		cfg:        cfg,
		Logger:     log,
		BackupPath: backupPath,
	}
}

// Connect establishes a connection to InfluxDB. If the server does not
// answer, points go to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.Client.Close()
		m.Client = nil
		m.IsValid = false
		m.Logger.Warn().Err(err).Str("backupPath", m.BackupPath).
			Msg("InfluxDB client failed to initialize, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.IsValid = true
	m.Logger.Info().Str("url", m.cfg.URL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupPath == "" {
		return errors.New("influx unreachable and no backup path configured")
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: RetentionSeconds,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.Writer.Errors())
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.backupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// RecordVehicleState writes one telemetry point for a vehicle state.
func (m *Manager) RecordVehicleState(run string, s *core.VehicleState) error {
	return m.WritePoint(VehicleStatePoint(run, s))
}

// RecordAgentEvent writes one point for a navigation event.
func (m *Manager) RecordAgentEvent(run string, e *core.AgentEvent) error {
	return m.WritePoint(AgentEventPoint(run, e))
}

// Close flushes pending points and releases the client or backup file.
func (m *Manager) Close() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backupWriter == nil {
		return nil
	}
	err := errors.Join(m.backupWriter.Close(), m.backupFile.Close())
	m.backupWriter = nil
	m.backupFile = nil
	return err
}

// VehicleStatePoint converts a vehicle state into a point tagged by run and
// vehicle.
func VehicleStatePoint(run string, s *core.VehicleState) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		MeasurementVehicleState,
		map[string]string{
			"run":     run,
			"vehicle": fmt.Sprint(s.VehicleID),
		},
		map[string]any{
			"tick":           int64(s.Tick),
			"x":              s.Position.X,
			"y":              s.Position.Y,
			"z":              s.Position.Z,
			"yaw":            s.Yaw,
			"speed":          s.Speed,
			"planarVelocity": s.PlanarVelocity,
			"throttle":       s.Throttle,
			"steering":       s.Steering,
			"driftingAxis":   s.DriftingAxis,
			"handbrake":      s.Handbrake,
			"boosting":       s.Boosting,
			"tractionLocked": s.TractionLocked,
			"grounded":       s.Grounded,
		},
		s.Time,
	)
}

// AgentEventPoint converts an agent event into a point; the kind is a tag
// so events can be grouped.
func AgentEventPoint(run string, e *core.AgentEvent) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		MeasurementAgentEvent,
		map[string]string{
			"run":     run,
			"vehicle": fmt.Sprint(e.VehicleID),
			"kind":    string(e.Kind),
		},
		map[string]any{
			"tick":          int64(e.Tick),
			"waypointIndex": int64(e.WaypointIndex),
			"message":       e.Message,
		},
		e.Time,
	)
}
