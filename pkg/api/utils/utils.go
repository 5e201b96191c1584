package utils

import (
	"strings"

	"github.com/valyala/fasthttp"
)

// GetHeader returns the trimmed value of a request header.
func GetHeader(ctx *fasthttp.RequestCtx, name string) string {
	return strings.TrimSpace(string(ctx.Request.Header.Peek(name)))
}

// Extracts an API key from either the Authorization header or the X-API-Key header
func ExtractAPIKey(ctx *fasthttp.RequestCtx) string {
	auth := GetHeader(ctx, "Authorization")

	// "Bearer <token>" with flexible whitespace
	if auth != "" {
		parts := strings.Fields(auth)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return GetHeader(ctx, "X-API-Key")
}

// Returns the value of the X-Role-Name header, lowercased
func GetApiRole(ctx *fasthttp.RequestCtx) string {
	return strings.ToLower(GetHeader(ctx, "X-Role-Name"))
}

// Returns the value of the X-User-ID header
func GetUserID(ctx *fasthttp.RequestCtx) string {
	return GetHeader(ctx, "X-User-ID")
}

// Returns the value of the X-User-Signature header
func GetUserSignature(ctx *fasthttp.RequestCtx) string {
	return GetHeader(ctx, "X-User-Signature")
}

// Checks if the role in the request is "backend"
func IsBackendRole(ctx *fasthttp.RequestCtx) bool {
	return GetApiRole(ctx) == "backend"
}

// GetPath returns the request path as string
func GetPath(ctx *fasthttp.RequestCtx) string {
	return string(ctx.Path())
}

// HasPathPrefix checks if the request path starts with the given prefix
func HasPathPrefix(ctx *fasthttp.RequestCtx, prefix string) bool {
	return strings.HasPrefix(GetPath(ctx), prefix)
}
