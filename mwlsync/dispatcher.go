package mwlsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/worklist"
)

var (
	// ErrQueueFull is returned by Enqueue when the backlog is at capacity.
	ErrQueueFull = errors.New("mwlsync: sync queue full")
	// ErrDispatcherStopped is returned by Enqueue after Stop.
	ErrDispatcherStopped = errors.New("mwlsync: dispatcher stopped")
)

// SingleSyncer is implemented by Synchronizer.
type SingleSyncer interface {
	SyncOne(ctx context.Context, appointmentID int64) (*worklist.Entry, error)
}

// SyncError reports a failed single-record sync.
type SyncError struct {
	AppointmentID int64
	Err           error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("single-record sync of appointment %d: %v", e.AppointmentID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Dispatcher runs single-record syncs on a fixed pool of workers fed by a
// bounded queue. Booking paths hand ids to Enqueue and return immediately;
// failures come back on Errors.
type Dispatcher struct {
	syncer  SingleSyncer
	workers int
	queue   chan int64
	errs    chan error
	logger  zerolog.Logger

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given pool and queue sizes.
func NewDispatcher(syncer SingleSyncer, workers, queueSize int, logger zerolog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		syncer:  syncer,
		workers: workers,
		queue:   make(chan int64, queueSize),
		errs:    make(chan error, queueSize),
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Start launches the workers. Errors must be drained, by Supervise or by
// the caller, or workers block once the error buffer fills.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for id := range d.queue {
		if _, err := d.syncer.SyncOne(ctx, id); err != nil {
			d.errs <- &SyncError{AppointmentID: id, Err: err}
		}
	}
}

// Enqueue schedules a single-record sync without blocking.
func (d *Dispatcher) Enqueue(appointmentID int64) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- appointmentID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Errors delivers every failed sync. It is closed by Stop.
func (d *Dispatcher) Errors() <-chan error {
	return d.errs
}

// Supervise logs errors until Stop closes the channel.
func (d *Dispatcher) Supervise() {
	for err := range d.errs {
		var syncErr *SyncError
		if errors.As(err, &syncErr) {
			d.logger.Error().Err(syncErr.Err).Int64("appointment_id", syncErr.AppointmentID).Msg("Single-record sync failed")
			continue
		}
		d.logger.Error().Err(err).Msg("Single-record sync failed")
	}
}

// Stop refuses new work, lets the workers finish the backlog and closes
// the error channel.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	close(d.errs)
}

// Pending returns the number of queued, not yet started syncs.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}
