// Package recorder routes telemetry records produced by the simulation loop
// to the handlers that persist them, optionally through a bounded queue
// drained by a background goroutine.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/drivesim/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnknownKind = errors.New("no handler for record kind")
	ErrQueueFull   = errors.New("record queue full")
	ErrClosed      = errors.New("recorder closed")
)

// Kind names a class of record.
type Kind string

const (
	KindVehicle      Kind = "vehicle"
	KindVehicleState Kind = "vehicleState"
	KindAgentEvent   Kind = "agentEvent"
)

// Record is one item produced by the simulation.
type Record struct {
	Kind    Kind
	Tick    core.Tick
	Payload any
}

// HandlerFunc persists a record.
type HandlerFunc func(Record) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*handlerConfig)

type handlerConfig struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *handlerConfig) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *handlerConfig) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *handlerConfig) {
		c.logged = true
	}
}

// Recorder routes records to registered handlers by kind.
type Recorder struct {
	handlers map[Kind]HandlerFunc
	logger   Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter

	// mu guards buffers and closed; Submit holds the read lock while sending
	mu      sync.RWMutex
	buffers map[Kind]chan Record
	closed  bool
	wg      sync.WaitGroup
}

// New creates a Recorder with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Recorder, error) {
	r := &Recorder{
		handlers: make(map[Kind]HandlerFunc),
		buffers:  make(map[Kind]chan Record),
		logger:   logger,
	}

	m := meter()

	var err error

	r.queueSize, err = m.Int64ObservableGauge(
		"recorder.queue.size",
		metric.WithDescription("Current number of records in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			for kind, buf := range r.buffers {
				o.ObserveInt64(r.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("kind", string(kind))))
			}
			return nil
		},
		r.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	r.processed, err = m.Int64Counter(
		"recorder.records.processed",
		metric.WithDescription("Total records handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	r.dropped, err = m.Int64Counter(
		"recorder.records.dropped",
		metric.WithDescription("Total records dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	r.failed, err = m.Int64Counter(
		"recorder.records.failed",
		metric.WithDescription("Total records whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return r, nil
}

// Register adds a handler for the given kind with optional configuration.
// Handlers must be registered before the first Submit.
func (r *Recorder) Register(kind Kind, h HandlerFunc, opts ...Option) {
	cfg := &handlerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = r.withLogging(kind, handler)
	}

	if cfg.bufferSize > 0 {
		handler = r.withBuffer(kind, cfg.bufferSize, cfg.blocking, handler)
	}

	r.handlers[kind] = handler
}

// Submit routes a record to its handler. Synchronous handler errors are
// returned as is; buffered handlers only report ErrQueueFull.
func (r *Recorder) Submit(rec Record) error {
	h, ok := r.handlers[rec.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, rec.Kind)
	}
	return h(rec)
}

// HasHandler returns true if a handler is registered for the kind.
func (r *Recorder) HasHandler(kind Kind) bool {
	_, ok := r.handlers[kind]
	return ok
}

// Close stops accepting buffered records and waits until every queue has
// been drained.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		for _, buf := range r.buffers {
			close(buf)
		}
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) withBuffer(kind Kind, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Record, size)

	r.mu.Lock()
	r.buffers[kind] = buffer
	r.mu.Unlock()

	kindAttr := metric.WithAttributes(attribute.String("kind", string(kind)))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for rec := range buffer {
			if err := h(rec); err != nil {
				r.failed.Add(context.Background(), 1, kindAttr)
				r.logger.Error("record failed", "kind", kind, "tick", rec.Tick, "error", err)
				continue
			}
			r.processed.Add(context.Background(), 1, kindAttr)
		}
	}()

	return func(rec Record) error {
		r.mu.RLock()
		defer r.mu.RUnlock()
		if r.closed {
			return ErrClosed
		}
		if blocking {
			buffer <- rec
			return nil
		}
		select {
		case buffer <- rec:
			return nil
		default:
			r.dropped.Add(context.Background(), 1, kindAttr)
			return fmt.Errorf("%w: %s", ErrQueueFull, kind)
		}
	}
}

func (r *Recorder) withLogging(kind Kind, h HandlerFunc) HandlerFunc {
	return func(rec Record) error {
		start := time.Now()
		r.logger.Debug("handling record", "kind", kind, "tick", rec.Tick)

		err := h(rec)

		if err != nil {
			r.logger.Error("record failed", "kind", kind, "duration", time.Since(start), "error", err)
		} else {
			r.logger.Debug("record complete", "kind", kind, "duration", time.Since(start))
		}

		return err
	}
}

// Tee runs every handler and joins their errors.
func Tee(handlers ...HandlerFunc) HandlerFunc {
	return func(rec Record) error {
		var errs []error
		for _, h := range handlers {
			if err := h(rec); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
