// Package events delivers the notifications produced by committed ledger
// calls to the configured sinks.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
	"github.com/Uke-Messaging/uke-pallet/pkg/metrics"
	"github.com/Uke-Messaging/uke-pallet/pkg/models"
)

type Kind string

const (
	KindMessageSent        Kind = "MessageSent"
	KindConvoStarted       Kind = "ConvoStarted"
	KindRegisteredUsername Kind = "RegisteredUsername"
)

// Event is one notification. Only the fields of its kind are set.
type Event struct {
	Kind      Kind            `json:"kind"`
	Sender    models.Identity `json:"sender,omitempty"`
	Recipient models.Identity `json:"recipient,omitempty"`
	User      models.Identity `json:"user,omitempty"`
}

func MessageSent(sender models.Identity) Event {
	return Event{Kind: KindMessageSent, Sender: sender}
}

func ConvoStarted(sender, recipient models.Identity) Event {
	return Event{Kind: KindConvoStarted, Sender: sender, Recipient: recipient}
}

func RegisteredUsername(user models.Identity) Event {
	return Event{Kind: KindRegisteredUsername, User: user}
}

// Key is the partitioning key of the event: the identity it is about.
func (e Event) Key() string {
	if e.Kind == KindRegisteredUsername {
		return e.User.String()
	}
	return e.Sender.String()
}

// Sink receives the events of one committed call, in emission order.
type Sink interface {
	Name() string
	Publish(ctx context.Context, evs []Event) error
	Close() error
}

// Fanout delivers to every sink. The call has already committed, so a
// failing sink is logged and counted; the remaining sinks still run.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Name() string { return "fanout" }

// Add appends a sink. Not safe to call concurrently with Publish.
func (f *Fanout) Add(s Sink) { f.sinks = append(f.sinks, s) }

func (f *Fanout) Publish(ctx context.Context, evs []Event) error {
	if len(evs) == 0 {
		return nil
	}
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, evs); err != nil {
			metrics.SinkFailures.WithLabelValues(s.Name()).Inc()
			logger.Error("event_publish_failed", "sink", s.Name(), "events", len(evs), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes each event to the process logger.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Publish(_ context.Context, evs []Event) error {
	for _, e := range evs {
		logger.Info("event", "kind", e.Kind, "sender", e.Sender, "recipient", e.Recipient, "user", e.User)
	}
	return nil
}

func (LogSink) Close() error { return nil }

// MetricsSink counts events by kind.
type MetricsSink struct{}

func (MetricsSink) Name() string { return "metrics" }

func (MetricsSink) Publish(_ context.Context, evs []Event) error {
	for _, e := range evs {
		metrics.Events.WithLabelValues(string(e.Kind)).Inc()
	}
	return nil
}

func (MetricsSink) Close() error { return nil }

// MemorySink keeps every event it receives.
type MemorySink struct {
	mu  sync.Mutex
	evs []Event
}

func (m *MemorySink) Name() string { return "memory" }

func (m *MemorySink) Publish(_ context.Context, evs []Event) error {
	m.mu.Lock()
	m.evs = append(m.evs, evs...)
	m.mu.Unlock()
	return nil
}

func (m *MemorySink) Close() error { return nil }

// Events returns a copy of everything received so far.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.evs...)
}

// Reset forgets all received events.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	m.evs = nil
	m.mu.Unlock()
}
