package router

import (
	"net/url"
	"strings"

	"github.com/valyala/fasthttp"
)

// Router dispatches by method and by path pattern. Patterns use {name} for
// a single path segment. Segments are matched on the raw request path and
// unescaped afterwards, so a parameter may contain an escaped "/".
type Router struct {
	routes   map[string][]route
	notFound fasthttp.RequestHandler
}

type route struct {
	segments []segment
	handler  fasthttp.RequestHandler
}

type segment struct {
	name    string
	isParam bool
}

// New constructs a new Router.
func New() *Router {
	return &Router{routes: make(map[string][]route)}
}

// Handler satisfies the fasthttp.Server handler interface.
func (r *Router) Handler(ctx *fasthttp.RequestCtx) {
	method := string(ctx.Method())
	path := string(ctx.Request.URI().PathOriginal())
	if list, ok := r.routes[method]; ok {
		for _, rt := range list {
			if values, ok := match(path, rt.segments); ok {
				for k, v := range values {
					ctx.SetUserValue(k, v)
				}
				rt.handler(ctx)
				return
			}
		}
	}
	// the path exists under another method
	for m, list := range r.routes {
		if m == method {
			continue
		}
		for _, rt := range list {
			if _, ok := match(path, rt.segments); ok {
				WriteJSONError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
				return
			}
		}
	}
	if r.notFound != nil {
		r.notFound(ctx)
		return
	}
	WriteJSONError(ctx, fasthttp.StatusNotFound, "not found")
}

// GET registers a GET handler.
func (r *Router) GET(path string, h fasthttp.RequestHandler) {
	r.add(fasthttp.MethodGet, path, h)
}

// POST registers a POST handler.
func (r *Router) POST(path string, h fasthttp.RequestHandler) {
	r.add(fasthttp.MethodPost, path, h)
}

// NotFound registers a handler for unmatched routes.
func (r *Router) NotFound(h fasthttp.RequestHandler) {
	r.notFound = h
}

func (r *Router) add(method, path string, h fasthttp.RequestHandler) {
	r.routes[method] = append(r.routes[method], route{segments: parse(path), handler: h})
}

// Param returns the unescaped path parameter name.
func Param(ctx *fasthttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func parse(path string) []segment {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return []segment{{name: ""}}
	}
	parts := strings.Split(path, "/")
	segs := make([]segment, len(parts))
	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 2 {
			segs[i] = segment{name: part[1 : len(part)-1], isParam: true}
		} else {
			segs[i] = segment{name: part}
		}
	}
	return segs
}

func match(path string, segs []segment) (map[string]string, bool) {
	path = strings.TrimPrefix(path, "/")
	if len(segs) == 1 && !segs[0].isParam && segs[0].name == "" {
		return map[string]string{}, path == ""
	}
	parts := []string{}
	if path != "" {
		parts = strings.Split(path, "/")
	}
	if len(parts) != len(segs) {
		return nil, false
	}
	values := make(map[string]string)
	for i, seg := range segs {
		if seg.isParam {
			v, err := url.PathUnescape(parts[i])
			if err != nil || v == "" {
				return nil, false
			}
			values[seg.name] = v
			continue
		}
		if seg.name != parts[i] {
			return nil, false
		}
	}
	return values, true
}
