package routes

import (
	"encoding/json"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/Uke-Messaging/uke-pallet/pkg/api/auth"
	"github.com/Uke-Messaging/uke-pallet/pkg/api/router"
	"github.com/Uke-Messaging/uke-pallet/pkg/config"
	"github.com/Uke-Messaging/uke-pallet/pkg/ledger"
	"github.com/Uke-Messaging/uke-pallet/pkg/models"
)

func decodeBody(ctx *fasthttp.RequestCtx, v any) bool {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		router.WriteJSONErrorCode(ctx, fasthttp.StatusBadRequest, "invalid JSON payload", "BadRequest")
		return false
	}
	return true
}

// StoreMessage handles POST /v1/messages.
func (h *Handlers) StoreMessage(ctx *fasthttp.RequestCtx) {
	var req storeMessageRequest
	if !decodeBody(ctx, &req) {
		return
	}
	c, cancel := h.callContext()
	defer cancel()

	res, err := h.Ledger.StoreMessage(c, auth.CallerFrom(ctx), ledger.StoreMessage{
		Message:       req.Message,
		Time:          req.Time,
		ConvoID:       req.ConvoID,
		Recipient:     models.Identity(req.Recipient),
		RecipientName: req.RecipientName,
		SenderName:    req.SenderName,
	})
	if err != nil {
		writeCallError(ctx, err)
		return
	}
	_ = router.WriteJSONStatus(ctx, fasthttp.StatusCreated, storeMessageResponse{
		ConvoID: req.ConvoID,
		Started: res.Started,
		Seq:     res.Seq,
	})
}

// Register handles POST /v1/users.
func (h *Handlers) Register(ctx *fasthttp.RequestCtx) {
	var req registerRequest
	if !decodeBody(ctx, &req) {
		return
	}
	c, cancel := h.callContext()
	defer cancel()

	caller := auth.CallerFrom(ctx)
	if err := h.Ledger.Register(c, caller, req.Name); err != nil {
		writeCallError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, UserJSON{Account: caller.String(), Username: req.Name})
}

// StartConversation handles POST /v1/conversations.
func (h *Handlers) StartConversation(ctx *fasthttp.RequestCtx) {
	var req startConversationRequest
	if !decodeBody(ctx, &req) {
		return
	}
	c, cancel := h.callContext()
	defer cancel()

	if err := h.Ledger.StartConversation(c, auth.CallerFrom(ctx), models.Identity(req.Recipient)); err != nil {
		writeCallError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, map[string]bool{"ok": true})
}

// Sign handles POST /v1/_sign: backends obtain the signature a frontend
// presents in X-User-Signature.
func Sign(ctx *fasthttp.RequestCtx) {
	if string(ctx.Request.Header.Peek("X-Role-Name")) != auth.RoleBackend.String() {
		router.WriteJSONError(ctx, fasthttp.StatusForbidden, "forbidden")
		return
	}
	var req signRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if req.UserID == "" || len(req.UserID) > auth.MaxIdentityLength {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "invalid user ID")
		return
	}
	key, ok := signingKey()
	if !ok {
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "signing keys not configured")
		return
	}
	_ = router.WriteJSON(ctx, signResponse{UserID: req.UserID, Signature: auth.CreateHMACSignature(req.UserID, key)})
}

// signingKey returns the lexically first signing key so signatures are
// stable across restarts.
func signingKey() (string, bool) {
	best := ""
	for k := range config.GetSigningKeys() {
		if best == "" || strings.Compare(k, best) < 0 {
			best = k
		}
	}
	return best, best != ""
}
