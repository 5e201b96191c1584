package auth

import (
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/Uke-Messaging/uke-pallet/pkg/api/router"
	"github.com/Uke-Messaging/uke-pallet/pkg/api/utils"
	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// Gateway authenticates every request before it reaches the router.
type Gateway struct {
	cfg      SecConfig
	limiters *limiterPool
}

func NewGateway(cfg SecConfig) *Gateway {
	return &Gateway{cfg: cfg, limiters: newLimiterPool(cfg.RPS, cfg.Burst)}
}

// Close stops background limiter cleanup.
func (g *Gateway) Close() { g.limiters.Shutdown() }

// Wrap returns next behind request-id tagging, CORS, IP whitelisting, API
// key roles, route restrictions and per-key rate limiting.
func (g *Gateway) Wrap(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	cfg := g.cfg
	return func(ctx *fasthttp.RequestCtx) {
		reqID := utils.GetHeader(ctx, RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
			ctx.Request.Header.Set(RequestIDHeader, reqID)
		}
		ctx.Response.Header.Set(RequestIDHeader, reqID)
		logger.LogRequestFast(ctx)

		// cors headers and handle options shortcut
		origin := utils.GetHeader(ctx, "Origin")
		if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Set("Vary", "Origin")
			ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			ctx.Response.Header.Set("Access-Control-Max-Age", "600")
			ctx.Response.Header.Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-API-Key,X-User-ID,X-User-Signature,X-Request-ID")
			ctx.Response.Header.Set("Access-Control-Expose-Headers", "X-Role-Name,X-Request-ID")
		}
		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		// ip whitelist check (always before all other checks except cors/options)
		if len(cfg.IPWhitelist) > 0 {
			ip := clientIPFast(ctx)
			if !ipWhitelisted(ip, cfg.IPWhitelist) {
				router.WriteJSONError(ctx, fasthttp.StatusForbidden, "forbidden")
				logger.Warn("request_blocked", "reason", "ip_not_whitelisted", "ip", ip, "path", utils.GetPath(ctx))
				return
			}
		}

		if publicAllowedPath(ctx) {
			ctx.Request.Header.Set("X-Role-Name", RoleUnauth.String())
			next(ctx)
			return
		}

		role, key := validateAPIKey(ctx, cfg)
		if role == RoleUnauth {
			router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "unauthorized")
			logger.Warn("request_unauthorized", "path", utils.GetPath(ctx), "remote", ctx.RemoteAddr().String(), "request_id", reqID)
			return
		}
		ctx.Request.Header.Set("X-Role-Name", role.String())

		if msg, ok := routeAllowed(ctx, role); !ok {
			router.WriteJSONError(ctx, fasthttp.StatusForbidden, msg)
			logger.Warn("request_forbidden", "role", role.String(), "path", utils.GetPath(ctx), "remote", ctx.RemoteAddr().String())
			return
		}

		if !g.limiters.Allow(key) {
			router.WriteJSONError(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded")
			logger.Warn("rate_limited", "role", role.String(), "path", utils.GetPath(ctx))
			return
		}

		next(ctx)
	}
}

func routeAllowed(ctx *fasthttp.RequestCtx, role Role) (string, bool) {
	admin := utils.HasPathPrefix(ctx, "/admin")
	switch role {
	case RoleAdmin:
		if !admin {
			return "admin api keys may only access /admin routes", false
		}
	case RoleBackend:
		if admin {
			return "backend api keys cannot access admin routes", false
		}
	case RoleFrontend:
		if admin || utils.HasPathPrefix(ctx, "/v1/_sign") {
			return "forbidden", false
		}
	}
	return "", true
}

func clientIPFast(ctx *fasthttp.RequestCtx) string {
	host := ctx.RemoteAddr().String()
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	return h
}

func validateAPIKey(ctx *fasthttp.RequestCtx, cfg SecConfig) (Role, string) {
	key := utils.ExtractAPIKey(ctx)
	if key == "" {
		return RoleUnauth, ""
	}
	if _, ok := cfg.AdminKeys[key]; ok {
		return RoleAdmin, key
	}
	if _, ok := cfg.BackendKeys[key]; ok {
		return RoleBackend, key
	}
	if _, ok := cfg.FrontendKeys[key]; ok {
		return RoleFrontend, key
	}
	return RoleUnauth, key
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func ipWhitelisted(ip string, list []string) bool {
	for _, w := range list {
		if ip == w {
			return true
		}
	}
	return false
}

func publicAllowedPath(ctx *fasthttp.RequestCtx) bool {
	path := utils.GetPath(ctx)
	method := string(ctx.Method())
	return (path == "/healthz" || path == "/readyz") && method == fasthttp.MethodGet
}
