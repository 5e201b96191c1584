package ledger

import (
	"errors"

	"github.com/Uke-Messaging/uke-pallet/pkg/models"
)

var (
	ErrInvalidConvoId           = models.ErrInvalidConvoId
	ErrUsernameExceedsLength    = models.ErrUsernameExceedsLength
	ErrConversationLimitReached = models.ErrConversationLimitReached
	ErrMessageExceedsLength     = models.ErrMessageExceedsLength
	// ErrBadOrigin is returned when a call carries no caller identity.
	ErrBadOrigin = errors.New("call requires a verified caller")
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("ledger closed")
)

type ErrorKind string

const (
	KindInvalidConvoId           ErrorKind = "InvalidConvoId"
	KindUsernameExceedsLength    ErrorKind = "UsernameExceedsLength"
	KindConversationLimitReached ErrorKind = "ConversationLimitReached"
	KindMessageExceedsLength     ErrorKind = "MessageExceedsLength"
	KindBadOrigin                ErrorKind = "BadOrigin"
	KindUnavailable              ErrorKind = "Unavailable"
	KindInternal                 ErrorKind = "Internal"
)

// CallError is returned by every failed call. Match the cause with
// errors.Is against the sentinels above.
type CallError struct {
	Kind ErrorKind
	Call string
	Err  error
}

func (e *CallError) Error() string {
	return e.Call + ": " + e.Err.Error()
}

func (e *CallError) Unwrap() error { return e.Err }

func newCallError(call string, err error) *CallError {
	return &CallError{Kind: kindOf(err), Call: call, Err: err}
}

func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidConvoId):
		return KindInvalidConvoId
	case errors.Is(err, ErrUsernameExceedsLength):
		return KindUsernameExceedsLength
	case errors.Is(err, ErrConversationLimitReached):
		return KindConversationLimitReached
	case errors.Is(err, ErrMessageExceedsLength):
		return KindMessageExceedsLength
	case errors.Is(err, ErrBadOrigin):
		return KindBadOrigin
	case errors.Is(err, ErrClosed):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// KindOf returns the kind of a call failure, KindInternal for anything that
// is not a *CallError.
func KindOf(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}
