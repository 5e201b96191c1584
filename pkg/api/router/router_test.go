package router

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func do(r *Router, method, uri string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	r.Handler(ctx)
	return ctx
}

func TestRouterParams(t *testing.T) {
	r := New()
	r.GET("/v1/conversations/{convoId}/messages", func(ctx *fasthttp.RequestCtx) {
		_ = WriteJSON(ctx, map[string]string{"convo": Param(ctx, "convoId")})
	})

	ctx := do(r, "GET", "/v1/conversations/a%2Fb/messages?x=1")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var body map[string]string
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.Equal(t, "a/b", body["convo"])
}

func TestRouterRoot(t *testing.T) {
	r := New()
	r.GET("/", func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusNoContent) })
	assert.Equal(t, fasthttp.StatusNoContent, do(r, "GET", "/").Response.StatusCode())
	assert.Equal(t, fasthttp.StatusNotFound, do(r, "GET", "/x").Response.StatusCode())
}

func TestRouterMethodNotAllowed(t *testing.T) {
	r := New()
	r.POST("/v1/users", func(ctx *fasthttp.RequestCtx) {})
	ctx := do(r, "GET", "/v1/users")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())
}

func TestRouterNotFound(t *testing.T) {
	r := New()
	r.GET("/v1/users/{username}", func(ctx *fasthttp.RequestCtx) {})

	ctx := do(r, "GET", "/v1/users/a/b")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())

	var body ErrorBody
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.Equal(t, "not found", body.Error)
}
