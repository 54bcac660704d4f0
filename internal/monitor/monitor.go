// Package monitor periodically samples a running simulation and writes its
// status to the log and, optionally, to a status file.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultInterval is the sampling period when none is configured.
const DefaultInterval = time.Second

// Status is one sample of a running simulation.
type Status struct {
	Time           time.Time `json:"time"`
	Run            string    `json:"run"`
	Tick           uint64    `json:"tick"`
	TicksPerSecond float64   `json:"ticksPerSecond"`
	Vehicles       int       `json:"vehicles"`
	PendingWrites  int       `json:"pendingWrites"`
}

// Dependencies holds everything the monitor samples
type Dependencies struct {
	Logger     *slog.Logger
	Run        string
	Tick       func() uint64
	Vehicles   func() int
	Pending    func() int // optional, rows queued by the storage backend
	StatusPath string     // optional, rewritten on every sample
	Interval   time.Duration
}

// Service manages status monitoring
type Service struct {
	deps Dependencies

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
	lastTick  uint64
	lastTime  time.Time
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Sample takes a status snapshot. The tick rate is measured against the
// previous sample.
func (s *Service) Sample(now time.Time) Status {
	st := Status{Time: now, Run: s.deps.Run}
	if s.deps.Tick != nil {
		st.Tick = s.deps.Tick()
	}
	if s.deps.Vehicles != nil {
		st.Vehicles = s.deps.Vehicles()
	}
	if s.deps.Pending != nil {
		st.PendingWrites = s.deps.Pending()
	}

	s.mu.Lock()
	if !s.lastTime.IsZero() {
		if elapsed := now.Sub(s.lastTime).Seconds(); elapsed > 0 && st.Tick >= s.lastTick {
			st.TicksPerSecond = float64(st.Tick-s.lastTick) / elapsed
		}
	}
	s.lastTick, s.lastTime = st.Tick, now
	s.mu.Unlock()

	return st
}

// WriteStatus replaces the status file with st as indented JSON.
func WriteStatus(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stopChan, s.done)
}

func (s *Service) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	logger := s.deps.Logger
	logger.Debug("Starting status monitor", "interval", s.deps.Interval, "statusFile", s.deps.StatusPath)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			st := s.Sample(now)
			logger.Info("Status",
				"tick", st.Tick,
				"ticksPerSecond", fmt.Sprintf("%.1f", st.TicksPerSecond),
				"vehicles", st.Vehicles,
				"pendingWrites", st.PendingWrites)

			if s.deps.StatusPath != "" {
				if err := WriteStatus(s.deps.StatusPath, st); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}
}

// Stop stops the status monitor and waits for its goroutine to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
