package router

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response.
func WriteJSON(ctx *fasthttp.RequestCtx, data interface{}) error {
	ctx.Response.Header.Set("Content-Type", "application/json")
	return json.NewEncoder(ctx).Encode(data)
}

// WriteJSONStatus writes a JSON response with the given status.
func WriteJSONStatus(ctx *fasthttp.RequestCtx, status int, data interface{}) error {
	ctx.SetStatusCode(status)
	return WriteJSON(ctx, data)
}

// WriteJSONError writes a JSON error response.
func WriteJSONError(ctx *fasthttp.RequestCtx, status int, message string) {
	WriteJSONErrorCode(ctx, status, message, "")
}

// WriteJSONErrorCode writes a JSON error response carrying a machine code.
func WriteJSONErrorCode(ctx *fasthttp.RequestCtx, status int, message, code string) {
	ctx.SetStatusCode(status)
	ctx.Response.Header.Set("Content-Type", "application/json")
	_ = json.NewEncoder(ctx).Encode(ErrorBody{Error: message, Code: code})
}
