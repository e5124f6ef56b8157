package forge

import (
	"sort"
	"strings"
)

// MatchableHandler is a registered handler that decides for itself
// whether it applies to a given route, instead of a literal or template
// match.
type MatchableHandler interface {
	Match(route string) bool
	Handler() *WrappedHandler
}

type variadicEntry struct {
	tmpl    *routeTemplate
	handler *WrappedHandler
}

// RouteHandler is one node of the sub-dispatcher tree: a base path plus
// its literal routes, variadic templates, matchable routes, nested
// sub-dispatchers, and an optional fallback.
type RouteHandler struct {
	basePath string

	literal   map[string]*WrappedHandler
	variadic  []variadicEntry
	matchable []MatchableHandler
	subRoutes map[string]*RouteHandler
	fallback  *WrappedHandler

	navPathSuffix        string
	disableDefaultRoutes bool
}

// NewRouteHandler creates a root or sub dispatcher rooted at basePath,
// which is normalized to end in "/".
func NewRouteHandler(basePath string) *RouteHandler {
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	return &RouteHandler{
		basePath:      basePath,
		literal:       make(map[string]*WrappedHandler),
		subRoutes:     make(map[string]*RouteHandler),
		navPathSuffix: "/",
	}
}

// Register mounts fn at pattern. A pattern containing "{...}" always
// becomes a variadic route, never literal; a
// pattern with adjacent placeholders or duplicate placeholder names
// fails registration.
func (rh *RouteHandler) Register(pattern string, fn any, opts ...HandlerOption) (*WrappedHandler, error) {
	w := Wrap(fn, opts...)
	full := normalizeRoute(rh.basePath + strings.TrimPrefix(pattern, "/"))

	if strings.Contains(pattern, "{") {
		tmpl, err := parseTemplate(full)
		if err != nil {
			return nil, err
		}
		if err := rh.checkAmbiguity(tmpl, w); err != nil {
			return nil, err
		}
		rh.variadic = append(rh.variadic, variadicEntry{tmpl: tmpl, handler: w})
		return w, nil
	}

	rh.literal[full] = w
	return w, nil
}

// RegisterMatchable mounts a MatchableHandler, probed in registration
// order.
func (rh *RouteHandler) RegisterMatchable(m MatchableHandler) {
	rh.matchable = append(rh.matchable, m)
}

// Mount attaches a sub-dispatcher at a sub-base-path. Two sub-route bases
// may never be equal.
func (rh *RouteHandler) Mount(subBase string, sub *RouteHandler) error {
	key := normalizeRoute(rh.basePath + strings.TrimPrefix(subBase, "/"))
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}
	if _, exists := rh.subRoutes[key]; exists {
		return &bindError{msg: "forge: duplicate sub-route base " + key}
	}
	rh.subRoutes[key] = sub
	return nil
}

// SetFallback installs a handler invoked when no literal, sub-route,
// matchable, default, or variadic route matches. It takes precedence over
// the nav-path index.
func (rh *RouteHandler) SetFallback(w *WrappedHandler) {
	rh.fallback = w
}

// checkAmbiguity rejects a new variadic template that is path-equivalent
// to an already-registered one — same segment shape and placeholder
// positions, no constraint that could disambiguate between them. A pair
// where either handler carries a constraint is accepted.
func (rh *RouteHandler) checkAmbiguity(tmpl *routeTemplate, w *WrappedHandler) error {
	for _, existing := range rh.variadic {
		if len(w.Constraints) > 0 || len(existing.handler.Constraints) > 0 {
			continue
		}
		if templatesEquivalent(existing.tmpl, tmpl) {
			return &bindError{msg: "forge: ambiguous route template " + tmpl.raw + " conflicts with " + existing.tmpl.raw}
		}
	}
	return nil
}

func templatesEquivalent(a, b *routeTemplate) bool {
	if len(a.segments) != len(b.segments) {
		return false
	}
	for i := range a.segments {
		if !segmentsEquivalent(a.segments[i], b.segments[i]) {
			return false
		}
	}
	return true
}

func segmentsEquivalent(a, b templateSegment) bool {
	if len(a.parts) != len(b.parts) {
		return false
	}
	for i := range a.parts {
		pa, pb := a.parts[i], b.parts[i]
		if (pa.placeholder == "") != (pb.placeholder == "") {
			return false
		}
		if pa.placeholder == "" && pa.literal != pb.literal {
			return false
		}
	}
	return true
}

// DispatchResult carries a matched handler, its route captures, and (for
// the nav-path fallback) a pre-built response.
type DispatchResult struct {
	Handler  *WrappedHandler
	Captures map[string]string
	Fallback *Response
}

// Dispatch resolves req's route against this dispatcher, descending
// into sub-dispatchers as needed.
func (rh *RouteHandler) Dispatch(req *Request) (*DispatchResult, error) {
	route := req.Route()

	// 4.5.1 Literal lookup.
	if w, ok := rh.literal[normalizeRoute(route)]; ok {
		return rh.finalize(&DispatchResult{Handler: w}, req.Method)
	}

	// 4.5.2 Sub-route descent, longest base first then lexicographic.
	bases := make([]string, 0, len(rh.subRoutes))
	for base := range rh.subRoutes {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool {
		if len(bases[i]) != len(bases[j]) {
			return len(bases[i]) > len(bases[j])
		}
		return bases[i] < bases[j]
	})
	for _, base := range bases {
		if strings.HasPrefix(route, base) || route+"/" == base {
			return rh.subRoutes[base].Dispatch(req)
		}
	}

	// 4.5.3 Matchable-route probe, registration order.
	for _, m := range rh.matchable {
		if m.Match(route) {
			return rh.finalize(&DispatchResult{Handler: m.Handler()}, req.Method)
		}
	}

	// 4.5.4 Default well-known routes.
	if !rh.disableDefaultRoutes {
		if w, ok := defaultRoutes[normalizeRoute(route)]; ok {
			return rh.finalize(&DispatchResult{Handler: w}, req.Method)
		}
	}

	// 4.5.5 Variadic template matching, highest priority first.
	if dr := rh.matchVariadic(route); dr != nil {
		return rh.finalize(dr, req.Method)
	}

	if rh.fallback != nil {
		return rh.finalize(&DispatchResult{Handler: rh.fallback}, req.Method)
	}

	// 4.5.6 Navigation fallback.
	suffix := rh.navPathSuffix
	if suffix == "" {
		suffix = "/"
	}
	if strings.HasSuffix(route, suffix) {
		return &DispatchResult{Fallback: rh.navIndex()}, nil
	}

	return nil, errNotFound
}

// finalize applies the method guard: once a handler is
// selected, method must be in its AllowedMethods, with HEAD implicitly
// accepted whenever GET is (body stripped by the caller at emit time).
func (rh *RouteHandler) finalize(dr *DispatchResult, method string) (*DispatchResult, error) {
	if dr.Handler == nil {
		return dr, nil
	}
	allowed := dr.Handler.AllowedMethods
	for _, m := range allowed {
		if m == method {
			return dr, nil
		}
		if m == MethodGet && method == MethodHead {
			return dr, nil
		}
	}
	return nil, &HttpError{
		Code:    StatusMethodNotAllowed,
		Message: StatusText(StatusMethodNotAllowed),
		Allow:   strings.Join(allowed, ", "),
	}
}

func (rh *RouteHandler) matchVariadic(route string) *DispatchResult {
	trimmed := strings.Trim(route, "/")
	var segs []string
	if trimmed != "" {
		segs = strings.Split(trimmed, "/")
	}

	ranked := make([]variadicEntry, len(rh.variadic))
	copy(ranked, rh.variadic)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[j].tmpl.priority().less(ranked[i].tmpl.priority())
	})

	for _, entry := range ranked {
		captures, ok := entry.tmpl.match(segs)
		if !ok {
			continue
		}
		if !constraintsSatisfied(entry.handler.Constraints, captures) {
			continue
		}
		return &DispatchResult{Handler: entry.handler, Captures: captures}
	}
	return nil
}

func constraintsSatisfied(constraints map[string]Constraint, captures map[string]string) bool {
	for name, c := range constraints {
		v, ok := captures[name]
		if !ok {
			continue
		}
		if !c.Accepts(v) {
			return false
		}
	}
	return true
}

// navIndex synthesizes an HTML listing of every registered route, used
// when no handler matched but the route ends in the nav-path suffix.
func (rh *RouteHandler) navIndex() *Response {
	var b strings.Builder
	b.WriteString("<html><body><h1>Routes</h1><ul>")
	for path := range rh.literal {
		b.WriteString("<li>" + htmlEscape(path) + "</li>")
	}
	for _, e := range rh.variadic {
		b.WriteString("<li>" + htmlEscape(e.tmpl.raw) + "</li>")
	}
	for base := range rh.subRoutes {
		b.WriteString("<li>" + htmlEscape(base) + " (sub-route)</li>")
	}
	b.WriteString("</ul></body></html>")
	return ResponseHTML(StatusOK, b.String())
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func normalizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
		if route == "" {
			route = "/"
		}
	}
	return route
}

var errNotFound = &HttpError{Code: StatusNotFound, Message: StatusText(StatusNotFound)}
