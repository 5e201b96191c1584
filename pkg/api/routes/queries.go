package routes

import (
	"github.com/valyala/fasthttp"

	"github.com/Uke-Messaging/uke-pallet/pkg/api/router"
	"github.com/Uke-Messaging/uke-pallet/pkg/models"
)

// segmentParam decodes a base64url path parameter, answering 400 when it
// is malformed.
func segmentParam(ctx *fasthttp.RequestCtx, name string) ([]byte, bool) {
	b, err := DecodeSegment(router.Param(ctx, name))
	if err != nil {
		router.WriteJSONErrorCode(ctx, fasthttp.StatusBadRequest, "invalid "+name+": want unpadded base64url", "BadRequest")
		return nil, false
	}
	return b, true
}

// Thread handles GET /v1/conversations/{convoId}/messages.
func (h *Handlers) Thread(ctx *fasthttp.RequestCtx) {
	convoID, ok := segmentParam(ctx, "convoId")
	if !ok {
		return
	}
	msgs, err := h.Ledger.Thread(convoID)
	if err != nil {
		writeStoreError(ctx, "thread", err)
		return
	}
	_ = router.WriteJSON(ctx, struct {
		ConvoID  []byte        `json:"convo_id"`
		Messages []MessageJSON `json:"messages"`
	}{ConvoID: convoID, Messages: MessagesJSON(msgs)})
}

// IsActive handles GET /v1/conversations/{convoId}/active.
func (h *Handlers) IsActive(ctx *fasthttp.RequestCtx) {
	convoID, ok := segmentParam(ctx, "convoId")
	if !ok {
		return
	}
	active, err := h.Ledger.IsActive(convoID)
	if err != nil {
		writeStoreError(ctx, "active", err)
		return
	}
	_ = router.WriteJSON(ctx, struct {
		ConvoID []byte `json:"convo_id"`
		Active  bool   `json:"active"`
	}{ConvoID: convoID, Active: active})
}

// ActiveConversations handles GET /v1/identities/{identity}/conversations.
func (h *Handlers) ActiveConversations(ctx *fasthttp.RequestCtx) {
	identity := router.Param(ctx, "identity")
	list, err := h.Ledger.ActiveConversations(models.Identity(identity))
	if err != nil {
		writeStoreError(ctx, "active_conversations", err)
		return
	}
	_ = router.WriteJSON(ctx, struct {
		Identity      string                   `json:"identity"`
		Conversations []ActiveConversationJSON `json:"conversations"`
	}{Identity: identity, Conversations: ActiveJSON(list)})
}

// Usernames handles GET /v1/identities/{identity}/usernames.
func (h *Handlers) Usernames(ctx *fasthttp.RequestCtx) {
	identity := router.Param(ctx, "identity")
	list, err := h.Ledger.UsernamesOf(models.Identity(identity))
	if err != nil {
		writeStoreError(ctx, "usernames", err)
		return
	}
	out := make([]UserJSON, 0, len(list))
	for _, u := range list {
		out = append(out, ToUserJSON(u))
	}
	_ = router.WriteJSON(ctx, struct {
		Identity  string     `json:"identity"`
		Usernames []UserJSON `json:"usernames"`
	}{Identity: identity, Usernames: out})
}

// User handles GET /v1/users/{username}.
func (h *Handlers) User(ctx *fasthttp.RequestCtx) {
	name, ok := segmentParam(ctx, "username")
	if !ok {
		return
	}
	u, found, err := h.Ledger.User(name)
	if err != nil {
		writeStoreError(ctx, "user", err)
		return
	}
	if !found {
		router.WriteJSONErrorCode(ctx, fasthttp.StatusNotFound, "user not found", "NotFound")
		return
	}
	_ = router.WriteJSON(ctx, ToUserJSON(*u))
}
