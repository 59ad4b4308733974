package httpedge

import (
	"fmt"
	"regexp"
	"strings"
)

// HandlerFunc handles a parsed Request and returns a Response.
type HandlerFunc func(req *Request) *Response

// route is one registered method+pattern+handler triple.
type route struct {
	method  string
	pattern *regexp.Regexp
	names   []string
	handler HandlerFunc
}

// Router implements spec.md's "regex-based HTTP router": patterns may
// contain `:name` captures, matched against the request path.
// Registrations are rejected once Freeze is called (spec.md §9's "configuration-
// populated registry... frozen after start").
type Router struct {
	routes []route
	frozen bool
}

// NewRouter returns an empty Router.
func NewRouter() *Router { return &Router{} }

// Register adds a METHOD + path pattern + handler. Patterns look like
// "/users/:id"; ":name" segments become named captures available in
// Request.Params.
func (r *Router) Register(method, pattern string, handler HandlerFunc) error {
	if r.frozen {
		return fmt.Errorf("httpedge: router frozen, cannot register %s %s", method, pattern)
	}
	re, names, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	r.routes = append(r.routes, route{method: strings.ToUpper(method), pattern: re, names: names, handler: handler})
	return nil
}

// Freeze prevents further registration, per spec.md §9.
func (r *Router) Freeze() { r.frozen = true }

// Dispatch finds the first matching route and invokes its handler,
// populating req.Params from any named captures. It returns nil if no
// route matches.
func (r *Router) Dispatch(req *Request) *Response {
	for _, rt := range r.routes {
		if rt.method != req.Method {
			continue
		}
		m := rt.pattern.FindStringSubmatch(req.Path)
		if m == nil {
			continue
		}
		req.Params = make(map[string]string, len(rt.names))
		for i, name := range rt.names {
			req.Params[name] = m[i+1]
		}
		return rt.handler(req)
	}
	return nil
}

var paramSegment = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

func compilePattern(pattern string) (*regexp.Regexp, []string, error) {
	var names []string
	replaced := paramSegment.ReplaceAllStringFunc(pattern, func(tok string) string {
		names = append(names, tok[1:])
		return "([^/]+)"
	})
	re, err := regexp.Compile("^" + replaced + "$")
	if err != nil {
		return nil, nil, fmt.Errorf("httpedge: bad route pattern %q: %w", pattern, err)
	}
	return re, names, nil
}
