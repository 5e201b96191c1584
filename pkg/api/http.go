package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/Uke-Messaging/uke-pallet/pkg/api/auth"
	"github.com/Uke-Messaging/uke-pallet/pkg/api/router"
	"github.com/Uke-Messaging/uke-pallet/pkg/api/routes"
)

// wrapHTTPHandler wraps an http.Handler to work with fasthttp.
func wrapHTTPHandler(h http.Handler) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(h)
}

// RegisterRoutes wires all API routes onto the provided router.
func RegisterRoutes(r *router.Router, h *routes.Handlers, ready func() bool) {
	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		_ = router.WriteJSON(ctx, map[string]string{"status": "ok"})
	})
	r.GET("/readyz", func(ctx *fasthttp.RequestCtx) {
		if ready != nil && !ready() {
			router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "not ready")
			return
		}
		_ = router.WriteJSON(ctx, map[string]string{"status": "ready"})
	})

	r.POST("/v1/_sign", routes.Sign)

	// calls
	r.POST("/v1/messages", auth.RequireCaller(h.StoreMessage))
	r.POST("/v1/users", auth.RequireCaller(h.Register))
	r.POST("/v1/conversations", auth.RequireCaller(h.StartConversation))

	// queries
	r.GET("/v1/conversations/{convoId}/messages", h.Thread)
	r.GET("/v1/conversations/{convoId}/active", h.IsActive)
	r.GET("/v1/identities/{identity}/conversations", h.ActiveConversations)
	r.GET("/v1/identities/{identity}/usernames", h.Usernames)
	r.GET("/v1/users/{username}", h.User)

	// admin
	r.GET("/admin/health", h.AdminHealth)
	r.GET("/admin/stats", h.AdminStats)
	r.GET("/admin/keys", h.AdminListKeys)
	r.POST("/admin/snapshots", h.AdminSnapshot)
	r.GET("/admin/metrics", wrapHTTPHandler(promhttp.Handler()))
}

// Handler returns the fasthttp handler for the uke API behind the gateway.
func Handler(gw *auth.Gateway, h *routes.Handlers, ready func() bool) fasthttp.RequestHandler {
	r := router.New()
	RegisterRoutes(r, h, ready)
	return gw.Wrap(r.Handler)
}
