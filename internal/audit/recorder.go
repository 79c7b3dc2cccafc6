package audit

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neogan74/catalog/internal/logger"
	"github.com/neogan74/catalog/internal/metrics"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrRecorderClosed is returned when submissions occur after shutdown.
	ErrRecorderClosed = errors.New("audit recorder closed")
	// ErrNilRecord is returned when callers attempt to submit a nil record.
	ErrNilRecord = errors.New("audit record is nil")
	// ErrQueueFull is returned under the drop policy when the buffer is full.
	ErrQueueFull = errors.New("audit buffer full")
)

// DropPolicy determines how the recorder handles a full queue.
type DropPolicy string

const (
	DropPolicyDrop  DropPolicy = "drop"
	DropPolicyBlock DropPolicy = "block"
)

// Config mirrors the public audit configuration.
type Config struct {
	Enabled    bool
	BufferSize int
	DropPolicy DropPolicy
	// SubmitTimeout bounds how long Submit waits under DropPolicyBlock.
	SubmitTimeout time.Duration
	// WriteTimeout bounds a single store append.
	WriteTimeout time.Duration
}

// WriteError reports a record the store failed to persist.
type WriteError struct {
	Record *Record
	Err    error
}

func (e WriteError) Error() string {
	return fmt.Sprintf("persist audit record %s: %v", e.Record.ID, e.Err)
}

func (e WriteError) Unwrap() error { return e.Err }

// Recorder accepts records from request goroutines and persists them on a
// single background worker, so records land in the order they were
// submitted. Delivery is at most once: a failed write is reported on
// Errors and never retried.
type Recorder struct {
	cfg    Config
	log    logger.Logger
	store  Store
	tracer trace.Tracer

	records chan *Record
	errs    chan WriteError
	wg      sync.WaitGroup

	entropy  *ulid.MonotonicEntropy
	now      func() time.Time
	stopOnce sync.Once

	enabled bool
	closed  bool
	mu      sync.RWMutex
}

// NewRecorder builds a recorder over store. When disabled it falls back to a
// no-op recorder that still serves List from the store.
func NewRecorder(cfg Config, store Store, log logger.Logger) (*Recorder, error) {
	if log == nil {
		log = logger.GetDefault()
	}
	if store == nil {
		return nil, errors.New("audit recorder requires a store")
	}

	r := &Recorder{
		cfg:    cfg,
		log:    log.Named("audit"),
		store:  store,
		tracer: otel.Tracer("catalog/audit"),
		now:    time.Now,
	}
	if !cfg.Enabled {
		r.errs = make(chan WriteError)
		close(r.errs)
		return r, nil
	}

	if r.cfg.BufferSize <= 0 {
		r.cfg.BufferSize = 1024
	}
	if r.cfg.DropPolicy == "" {
		r.cfg.DropPolicy = DropPolicyDrop
	}
	if r.cfg.SubmitTimeout <= 0 {
		r.cfg.SubmitTimeout = 100 * time.Millisecond
	}
	if r.cfg.WriteTimeout <= 0 {
		r.cfg.WriteTimeout = 5 * time.Second
	}

	r.records = make(chan *Record, r.cfg.BufferSize)
	r.errs = make(chan WriteError, r.cfg.BufferSize)
	r.entropy = ulid.Monotonic(rand.Reader, 0)
	r.enabled = true

	r.wg.Add(1)
	go r.run()

	return r, nil
}

// Enabled indicates whether audit recording is active.
func (r *Recorder) Enabled() bool {
	return r != nil && r.enabled
}

// Errors delivers persistence failures. The channel is closed once the
// worker exits after Shutdown, and is already closed when recording is
// disabled. Failures are dropped when nobody reads.
func (r *Recorder) Errors() <-chan WriteError {
	return r.errs
}

// Submit queues rec for persistence and returns without waiting for the
// write. The record's ID and CreatedAt are assigned by the worker.
func (r *Recorder) Submit(rec *Record) error {
	if !r.Enabled() {
		return nil
	}
	if rec == nil {
		return ErrNilRecord
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.AuditDroppedTotal.WithLabelValues("recorder_closed").Inc()
		return ErrRecorderClosed
	}

	select {
	case r.records <- rec:
		r.accepted(rec)
		return nil
	default:
	}

	if r.cfg.DropPolicy == DropPolicyDrop {
		metrics.AuditDroppedTotal.WithLabelValues("buffer_full").Inc()
		return ErrQueueFull
	}

	timer := time.NewTimer(r.cfg.SubmitTimeout)
	defer timer.Stop()
	select {
	case r.records <- rec:
		r.accepted(rec)
		return nil
	case <-timer.C:
		metrics.AuditDroppedTotal.WithLabelValues("submit_timeout").Inc()
		return ErrQueueFull
	}
}

func (r *Recorder) accepted(rec *Record) {
	metrics.AuditSubmittedTotal.WithLabelValues(string(rec.Action)).Inc()
	metrics.AuditQueueDepth.Set(float64(len(r.records)))
}

// List reads a page of persisted records, most recent first.
func (r *Recorder) List(ctx context.Context, q Query) (*Page, error) {
	return r.store.List(ctx, q)
}

func (r *Recorder) run() {
	defer r.wg.Done()
	defer close(r.errs)

	for rec := range r.records {
		metrics.AuditQueueDepth.Set(float64(len(r.records)))
		r.write(rec)
	}
}

// Shutdown stops accepting records, drains the queue and closes the store.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if !r.enabled {
		return r.store.Close()
	}

	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.records)
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return r.store.Close()
}

func (r *Recorder) write(rec *Record) {
	if rec.ID == "" {
		rec.ID = ulid.MustNew(ulid.Timestamp(r.now()), r.entropy).String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "audit.append",
		trace.WithAttributes(
			attribute.String("audit.store", r.store.Name()),
			attribute.String("audit.action", string(rec.Action)),
			attribute.String("audit.id", rec.ID),
		),
	)
	defer span.End()

	start := time.Now()
	err := r.append(ctx, rec)
	metrics.AuditWriteDuration.WithLabelValues(r.store.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.AuditWritesTotal.WithLabelValues(r.store.Name(), "error").Inc()
		r.log.Error("Failed to persist audit record",
			logger.String("id", rec.ID),
			logger.String("action", string(rec.Action)),
			logger.String("actor_id", rec.ActorID),
			logger.Error(err))

		select {
		case r.errs <- WriteError{Record: rec, Err: err}:
		default:
		}
		return
	}
	metrics.AuditWritesTotal.WithLabelValues(r.store.Name(), "written").Inc()
}

func (r *Recorder) append(ctx context.Context, rec *Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("audit store panicked: %v", p)
		}
	}()
	return r.store.Append(ctx, rec)
}
