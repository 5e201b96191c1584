package routes

import (
	"github.com/valyala/fasthttp"

	"github.com/Uke-Messaging/uke-pallet/pkg/api/router"
	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
	"github.com/Uke-Messaging/uke-pallet/pkg/store"
	"github.com/Uke-Messaging/uke-pallet/pkg/store/keys"
)

// AdminHealth handles GET /admin/health.
func (h *Handlers) AdminHealth(ctx *fasthttp.RequestCtx) {
	_ = router.WriteJSON(ctx, map[string]string{"status": "ok", "service": "uke"})
}

// AdminStats counts stored records by type.
func (h *Handlers) AdminStats(ctx *fasthttp.RequestCtx) {
	counts := map[string]int{}
	err := store.ScanPrefix(h.Ledger.Store().Reader(), nil, func(k, _ []byte) error {
		parts, err := keys.ParseKey(string(k))
		if err != nil {
			counts["unknown"]++
			return nil
		}
		counts[string(parts.Type)]++
		return nil
	})
	if err != nil {
		writeStoreError(ctx, "admin_stats", err)
		return
	}
	_ = router.WriteJSON(ctx, struct {
		Conversations int `json:"conversations"`
		Messages      int `json:"messages"`
		Identities    int `json:"identities"`
		Usernames     int `json:"usernames"`
	}{
		Conversations: counts[string(keys.KeyTypeActiveFlag)],
		Messages:      counts[string(keys.KeyTypeMessage)],
		Identities:    counts[string(keys.KeyTypeIdentityIndex)],
		Usernames:     counts[string(keys.KeyTypeUsername)],
	})
}

// AdminListKeys handles GET /admin/keys?prefix=...&limit=...
func (h *Handlers) AdminListKeys(ctx *fasthttp.RequestCtx) {
	prefix := string(ctx.QueryArgs().Peek("prefix"))
	limit := ctx.QueryArgs().GetUintOrZero("limit")
	all, err := store.ListKeys(h.Ledger.Store().Reader(), prefix)
	if err != nil {
		writeStoreError(ctx, "admin_keys", err)
		return
	}
	truncated := false
	if limit > 0 && len(all) > limit {
		all = all[:limit]
		truncated = true
	}
	if all == nil {
		all = []string{}
	}
	_ = router.WriteJSON(ctx, struct {
		Keys      []string `json:"keys"`
		Truncated bool     `json:"truncated"`
	}{Keys: all, Truncated: truncated})
}

// AdminSnapshot handles POST /admin/snapshots.
func (h *Handlers) AdminSnapshot(ctx *fasthttp.RequestCtx) {
	if h.Snapshots == nil {
		router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "snapshots not configured")
		return
	}
	c, cancel := h.callContext()
	defer cancel()
	path, err := h.Snapshots.RunNow(c)
	if err != nil {
		logger.Error("admin_snapshot_failed", "error", err)
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	_ = router.WriteJSONStatus(ctx, fasthttp.StatusCreated, map[string]string{"path": path})
}
