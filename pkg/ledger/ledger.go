// Package ledger runs the messaging calls. Each call executes inside one
// store transaction that is committed only when the whole call succeeds;
// its notifications are delivered after the commit.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Uke-Messaging/uke-pallet/pkg/events"
	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
	"github.com/Uke-Messaging/uke-pallet/pkg/metrics"
	"github.com/Uke-Messaging/uke-pallet/pkg/models"
	"github.com/Uke-Messaging/uke-pallet/pkg/store"
	"github.com/Uke-Messaging/uke-pallet/pkg/store/active"
	"github.com/Uke-Messaging/uke-pallet/pkg/store/threads"
	"github.com/Uke-Messaging/uke-pallet/pkg/store/users"
)

const (
	CallStoreMessage      = "store_message"
	CallRegister          = "register"
	CallStartConversation = "start_conversation"
)

// StoreMessage is the payload of a store_message call.
type StoreMessage struct {
	Message       []byte
	Time          uint64
	ConvoID       []byte
	Recipient     models.Identity
	RecipientName []byte
	SenderName    []byte
}

// StoreResult describes a committed store_message call.
type StoreResult struct {
	// Started is true when this call activated the conversation.
	Started bool
	Seq     uint64
}

// Ledger serializes calls against one store. Queries read committed state
// and do not wait for in-flight calls.
type Ledger struct {
	mu     sync.Mutex
	closed bool
	st     *store.Store
	limits models.Limits
	sink   events.Sink
}

// New returns a ledger over st. A nil sink drops all notifications. The
// sink is invoked with the call mutex held, so it should only enqueue
// (see events.Dispatcher).
func New(st *store.Store, limits models.Limits, sink events.Sink) (*Ledger, error) {
	if err := ValidateLimits(limits); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = events.NewFanout()
	}
	return &Ledger{st: st, limits: limits, sink: sink}, nil
}

// ValidateLimits checks that every bound is usable.
func ValidateLimits(l models.Limits) error {
	switch {
	case l.MaxUsernameLength <= 0:
		return fmt.Errorf("max_username_length must be positive")
	case l.MaxConvoIdLength <= 0:
		return fmt.Errorf("max_convo_id_length must be positive")
	case l.MaxMessageAmount <= 0:
		return fmt.Errorf("max_message_amount must be positive")
	case l.MaxMessageAmount > maxMessageAmount:
		return fmt.Errorf("max_message_amount must be at most %d", maxMessageAmount)
	case l.MaxActiveConversationAmount <= 0:
		return fmt.Errorf("max_active_conversation_amount must be positive")
	case l.MaxMessageLength < 0:
		return fmt.Errorf("max_message_length must not be negative")
	}
	return nil
}

// message keys carry a six digit sequence number
const maxMessageAmount = 999999

func (l *Ledger) Limits() models.Limits { return l.limits }

// Store exposes the underlying store, for admin tooling.
func (l *Ledger) Store() *store.Store { return l.st }

// run executes fn in a fresh transaction and commits it when fn succeeds.
// The events fn returns are delivered only after a successful commit.
func (l *Ledger) run(ctx context.Context, call string, caller models.Identity, fn func(txn *store.Txn) ([]events.Event, error)) error {
	started := time.Now()
	if caller == "" {
		metrics.ObserveCall(call, "rejected", started)
		return newCallError(call, ErrBadOrigin)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		metrics.ObserveCall(call, "rejected", started)
		return newCallError(call, ErrClosed)
	}

	txn := l.st.Begin()
	defer txn.Discard()

	evs, err := fn(txn)
	if err == nil {
		err = txn.Commit()
	}
	if err != nil {
		ce := newCallError(call, err)
		if ce.Kind == KindInternal {
			metrics.ObserveCall(call, "error", started)
			logger.Error("call_failed", "call", call, "caller", caller, "error", err)
		} else {
			metrics.ObserveCall(call, "rejected", started)
			logger.Debug("call_rejected", "call", call, "caller", caller, "kind", ce.Kind)
		}
		return ce
	}
	metrics.ObserveCall(call, "ok", started)
	logger.Debug("call_committed", "call", call, "caller", caller, "events", len(evs))

	if len(evs) > 0 {
		// published under the lock so sinks observe commit order; delivery
		// failures are logged by the sink and the call stands
		_ = l.sink.Publish(ctx, evs)
	}
	return nil
}

// Close waits for the in-flight call, if any, and rejects every later call
// with ErrClosed. It does not close the store or the sink.
func (l *Ledger) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// StoreMessage appends a message to the conversation, starting the
// conversation first when this is its first message.
func (l *Ledger) StoreMessage(ctx context.Context, caller models.Identity, req StoreMessage) (StoreResult, error) {
	var res StoreResult
	err := l.run(ctx, CallStoreMessage, caller, func(txn *store.Txn) ([]events.Event, error) {
		if len(req.ConvoID) > l.limits.MaxConvoIdLength {
			return nil, ErrInvalidConvoId
		}
		var evs []events.Event
		started, err := active.EnsureActivated(txn, l.limits, req.ConvoID, caller, req.SenderName, req.Recipient, req.RecipientName)
		if err != nil {
			return nil, err
		}
		if started {
			evs = append(evs, events.ConvoStarted(caller, req.Recipient))
		}
		seq, err := threads.Append(txn, l.limits, req.ConvoID, models.Message{
			Sender:    caller,
			Recipient: req.Recipient,
			Time:      req.Time,
			Content:   append([]byte(nil), req.Message...),
		})
		if err != nil {
			return nil, err
		}
		evs = append(evs, events.MessageSent(caller))
		res = StoreResult{Started: started, Seq: seq}
		return evs, nil
	})
	if err != nil {
		return StoreResult{}, err
	}
	return res, nil
}

// Register binds name to the caller.
func (l *Ledger) Register(ctx context.Context, caller models.Identity, name []byte) error {
	return l.run(ctx, CallRegister, caller, func(txn *store.Txn) ([]events.Event, error) {
		if _, err := users.Register(txn, l.limits, caller, name); err != nil {
			return nil, err
		}
		return []events.Event{events.RegisteredUsername(caller)}, nil
	})
}

// StartConversation accepts the call and changes nothing.
func (l *Ledger) StartConversation(ctx context.Context, caller models.Identity, recipient models.Identity) error {
	return l.run(ctx, CallStartConversation, caller, func(*store.Txn) ([]events.Event, error) {
		return nil, nil
	})
}

// Thread returns the conversation's full message log.
func (l *Ledger) Thread(convoID []byte) ([]models.Message, error) {
	return threads.List(l.st.Reader(), convoID)
}

// IsActive reports whether the conversation has been started.
func (l *Ledger) IsActive(convoID []byte) (bool, error) {
	return active.IsActive(l.st.Reader(), convoID)
}

// ActiveConversations returns the identity's active conversations.
func (l *Ledger) ActiveConversations(identity models.Identity) ([]models.ActiveConversation, error) {
	return active.List(l.st.Reader(), identity)
}

// User returns the current holder of name.
func (l *Ledger) User(name []byte) (*models.User, bool, error) {
	return users.Get(l.st.Reader(), name)
}

// UsernamesOf returns every name currently held by identity.
func (l *Ledger) UsernamesOf(identity models.Identity) ([]models.User, error) {
	return users.ListByAccount(l.st.Reader(), identity)
}

