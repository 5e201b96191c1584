// Package routes holds the HTTP handlers for ledger calls, queries and
// admin operations.
package routes

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/Uke-Messaging/uke-pallet/pkg/api/router"
	"github.com/Uke-Messaging/uke-pallet/pkg/ledger"
	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
)

// Snapshotter takes an on-demand snapshot and returns where it was written.
type Snapshotter interface {
	RunNow(ctx context.Context) (string, error)
}

// Handlers serves the ledger over HTTP.
type Handlers struct {
	Ledger    *ledger.Ledger
	Snapshots Snapshotter
	// CallTimeout bounds event delivery of one call.
	CallTimeout time.Duration
}

func (h *Handlers) callContext() (context.Context, context.CancelFunc) {
	if h.CallTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), h.CallTimeout)
}

func callStatus(kind ledger.ErrorKind) int {
	switch kind {
	case ledger.KindInvalidConvoId, ledger.KindUsernameExceedsLength, ledger.KindMessageExceedsLength:
		return fasthttp.StatusBadRequest
	case ledger.KindConversationLimitReached:
		return fasthttp.StatusConflict
	case ledger.KindBadOrigin:
		return fasthttp.StatusUnauthorized
	case ledger.KindUnavailable:
		return fasthttp.StatusServiceUnavailable
	default:
		return fasthttp.StatusInternalServerError
	}
}

func writeCallError(ctx *fasthttp.RequestCtx, err error) {
	kind := ledger.KindOf(err)
	status := callStatus(kind)
	msg := err.Error()
	if status == fasthttp.StatusInternalServerError {
		logger.Error("call_internal_error", "path", string(ctx.Path()), "error", err)
		msg = "internal error"
	}
	router.WriteJSONErrorCode(ctx, status, msg, string(kind))
}

func writeStoreError(ctx *fasthttp.RequestCtx, op string, err error) {
	logger.Error("query_failed", "query", op, "error", err)
	router.WriteJSONErrorCode(ctx, fasthttp.StatusInternalServerError, "internal error", string(ledger.KindInternal))
}
