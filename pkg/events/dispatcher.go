package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
	"github.com/Uke-Messaging/uke-pallet/pkg/metrics"
)

const DefaultQueueSize = 1024

var (
	// ErrQueueFull is returned when the dispatcher cannot take another batch.
	ErrQueueFull = errors.New("event queue full")
	// ErrDispatcherClosed is returned by Publish after Close.
	ErrDispatcherClosed = errors.New("event dispatcher closed")
)

// Dispatcher hands batches to a single worker goroutine that delivers them
// to next in the order Publish was called. Publish never blocks; when the
// queue is full the batch is dropped and counted.
type Dispatcher struct {
	next    Sink
	queue   chan []Event
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts the worker. timeout bounds delivery of one batch;
// zero means no bound.
func NewDispatcher(next Sink, size int, timeout time.Duration) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	d := &Dispatcher{
		next:    next,
		queue:   make(chan []Event, size),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	go d.worker()
	return d
}

func (d *Dispatcher) Name() string { return "dispatcher" }

// Publish enqueues evs. The caller's ctx is not used for delivery, which
// outlives the call.
func (d *Dispatcher) Publish(_ context.Context, evs []Event) error {
	if len(evs) == 0 {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- append([]Event(nil), evs...):
		return nil
	default:
		metrics.SinkFailures.WithLabelValues(d.Name()).Inc()
		logger.Warn("event_dropped", "reason", "queue_full", "events", len(evs))
		return ErrQueueFull
	}
}

// Pending reports how many batches wait for delivery.
func (d *Dispatcher) Pending() int { return len(d.queue) }

func (d *Dispatcher) worker() {
	defer close(d.done)
	for evs := range d.queue {
		d.deliver(evs)
	}
}

func (d *Dispatcher) deliver(evs []Event) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	// failures are logged by the fanout
	_ = d.next.Publish(ctx, evs)
}

// Close stops accepting batches, delivers the queued ones and closes next.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	return d.next.Close()
}
