package forge

import (
	"net"
	"reflect"
	"sort"
	"strconv"
	"sync"

	json "github.com/goccy/go-json"
)

// invokeScratch holds the per-call reflect.Value bookkeeping Invoke needs:
// the specials/kwargs maps and the positional slice that every bound call
// fills in and discards. Pooled since every request allocates one.
type invokeScratch struct {
	specials   map[string]reflect.Value
	kwargs     map[string]reflect.Value
	positional []reflect.Value
}

var invokeScratchPool = sync.Pool{
	New: func() any {
		return &invokeScratch{
			specials:   make(map[string]reflect.Value, 8),
			kwargs:     make(map[string]reflect.Value, 8),
			positional: make([]reflect.Value, 0, 4),
		}
	},
}

func getInvokeScratch() *invokeScratch {
	s := invokeScratchPool.Get().(*invokeScratch)
	for k := range s.specials {
		delete(s.specials, k)
	}
	for k := range s.kwargs {
		delete(s.kwargs, k)
	}
	s.positional = s.positional[:0]
	return s
}

func putInvokeScratch(s *invokeScratch) {
	invokeScratchPool.Put(s)
}

// Special parameter canonical names — the closed set of injection kinds
// a handler parameter can request by name or sentinel type.
const (
	injRequest    = "request"
	injSocket     = "socket"
	injQuery      = "query"
	injBody       = "body"
	injHeaders    = "headers"
	injRoute      = "route"
	injFullPath   = "full_path"
	injMethod     = "method"
	injFile       = "file"
	injClientAddr = "client_addr"
)

var specialParamNames = map[string]bool{
	injRequest: true, injSocket: true, injQuery: true, injBody: true,
	injHeaders: true, injRoute: true, injFullPath: true, injMethod: true,
	injFile: true, injClientAddr: true,
}

var (
	requestPtrType = reflect.TypeOf((*Request)(nil))
	connType       = reflect.TypeOf((*net.Conn)(nil)).Elem()
	headerType     = reflect.TypeOf(Header{})
	queryMapType   = reflect.TypeOf(map[string]string(nil))
	bytesType      = reflect.TypeOf([]byte(nil))
	stringType     = reflect.TypeOf("")
	anySliceType   = reflect.TypeOf([]any(nil))
	kwargsMapType  = reflect.TypeOf(map[string]any(nil))
)

// handlerParam describes one formal parameter of a registered handler.
type handlerParam struct {
	name    string
	typ     reflect.Type
	special string // one of the inj* constants, or "" if not an injection
}

// WrappedHandler is a user handler after registration-time analysis
//. It is produced once by Register and
// never mutated afterwards.
type WrappedHandler struct {
	fn     reflect.Value
	params []handlerParam

	// argsParam/kwargsParam index into params; -1 if absent. argsParam
	// names the trailing []any collector, kwargsParam the
	// map[string]any collector — the Go stand-ins for *args/**kwargs.
	argsParam   int
	kwargsParam int

	// declaredReturn is the handler function's static first return type
	// (absent if it returns nothing), recorded at Wrap time so
	// ResponseFromAny can prefer a *Response subclass over value-based
	// inference even when the handler returns a nil *Response.
	declaredReturn reflect.Type

	AllowedMethods []string
	ErrorMode      ErrorMode
	Constraints    map[string]Constraint
}

// HandlerOption configures a registration. Options are applied in order.
type HandlerOption func(*WrappedHandler)

// WithMethods overrides the default allowed-methods set (GET).
func WithMethods(methods ...string) HandlerOption {
	return func(w *WrappedHandler) { w.AllowedMethods = methods }
}

// WithErrorMode sets the handler's panic-shaping error mode.
func WithErrorMode(mode ErrorMode) HandlerOption {
	return func(w *WrappedHandler) { w.ErrorMode = mode }
}

// WithConstraint attaches a per-placeholder constraint, keyed by
// parameter/placeholder name.
func WithConstraint(name string, c Constraint) HandlerOption {
	return func(w *WrappedHandler) {
		if w.Constraints == nil {
			w.Constraints = make(map[string]Constraint)
		}
		w.Constraints[name] = c
	}
}

// Wrap performs the one-time registration-side analysis of a handler
// function's parameter list. fn must be a function value;
// Wrap panics if it is not, since a bad registration is a programming
// error, not a runtime condition.
func Wrap(fn any, opts ...HandlerOption) *WrappedHandler {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		panic("forge: Wrap requires a function")
	}

	w := &WrappedHandler{
		fn:             v,
		AllowedMethods: []string{MethodGet},
		ErrorMode:      ErrorModeHide,
		argsParam:      -1,
		kwargsParam:    -1,
	}
	if t.NumOut() > 0 {
		w.declaredReturn = t.Out(0)
	}

	numIn := t.NumIn()
	names := paramNames(fn, numIn)
	for i := 0; i < numIn; i++ {
		pt := t.In(i)
		name := names[i]

		if pt == anySliceType && name == "args" {
			w.argsParam = i
			w.params = append(w.params, handlerParam{name: name, typ: pt})
			continue
		}
		if pt == kwargsMapType && name == "kwargs" {
			w.kwargsParam = i
			w.params = append(w.params, handlerParam{name: name, typ: pt})
			continue
		}

		special := classifySpecial(name, pt)
		w.params = append(w.params, handlerParam{name: name, typ: pt, special: special})
	}

	for _, opt := range opts {
		opt(w)
	}
	return w
}

// classifySpecial reports which injection kind, if any, a parameter
// requests: by sentinel type, or by canonical name with a compatible (or
// absent/interface) declared type.
func classifySpecial(name string, t reflect.Type) string {
	switch {
	case t == requestPtrType:
		return injRequest
	case t == connType:
		return injSocket
	case t == headerType:
		return injHeaders
	case t == queryMapType:
		return injQuery
	}

	if !specialParamNames[name] {
		return ""
	}

	switch name {
	case injRequest:
		if t == requestPtrType || t.Kind() == reflect.Interface {
			return injRequest
		}
	case injSocket:
		if t == connType || t.Kind() == reflect.Interface {
			return injSocket
		}
	case injQuery:
		if t == queryMapType || t.Kind() == reflect.Interface {
			return injQuery
		}
	case injBody, injFile:
		if t == bytesType || t.Kind() == reflect.Interface {
			return injBody
		}
	case injHeaders:
		if t == headerType || t.Kind() == reflect.Interface {
			return injHeaders
		}
	case injRoute, injFullPath, injMethod, injClientAddr:
		if t == stringType || t.Kind() == reflect.Interface {
			return name
		}
	}

	// Name matches a canonical injection kind but the declared type is
	// incompatible, so registration fails rather than silently zeroing it.
	panic("forge: parameter " + name + " uses a reserved injection name with an incompatible type")
}

// paramNames recovers formal parameter names. Go function values do not
// retain this at runtime, so names come from a companion list supplied via
// RegisterNames; for a function with no such list, paramNames infers
// positional-only names "argN".
var paramNameHints = map[uintptr][]string{}

func paramNames(fn any, numIn int) []string {
	ptr := reflect.ValueOf(fn).Pointer()
	if hints, ok := paramNameHints[ptr]; ok && len(hints) == numIn {
		return hints
	}
	names := make([]string, numIn)
	for i := range names {
		names[i] = "arg" + strconv.Itoa(i)
	}
	return names
}

// RegisterNames attaches formal parameter names to a handler function so
// the adapter can bind query/body/capture arguments by name. Call once at
// package init before Wrap(fn) for that same fn.
func RegisterNames(fn any, names ...string) {
	ptr := reflect.ValueOf(fn).Pointer()
	paramNameHints[ptr] = names
}

// bindError is returned by Invoke for argument-binding failures that the
// server turns into a 400.
type bindError struct{ msg string }

func (e *bindError) Error() string { return e.msg }

// Invoke binds specials, query, body, and capture values to the
// handler's declared parameters, in that priority order, calls it, and
// returns its raw result (shaped into a Response by the caller via
// ResponseFromAny). captures are the route matcher's placeholder
// captures, already validated against constraints.
func (w *WrappedHandler) Invoke(req *Request, captures map[string]string) (result any, err error) {
	scratch := getInvokeScratch()
	defer putInvokeScratch(scratch)
	specials := scratch.specials
	kwargs := scratch.kwargs
	positional := scratch.positional

	w.autofillSpecials(req, specials)

	nextPos, err := w.assignDigitKeys(req.Query(), 0, &positional, kwargs)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Query() {
		if isDigits(k) {
			continue
		}
		kwargs[k] = reflect.ValueOf(v)
	}

	if len(req.Body) > 0 {
		var parsed any
		if json.Unmarshal(req.Body, &parsed) == nil {
			if m, ok := parsed.(map[string]any); ok {
				bodyOrder := make(map[string]any)
				for k, v := range m {
					bodyOrder[k] = v
				}
				nextPos, err = w.assignDigitValuesFromBody(bodyOrder, nextPos, &positional, kwargs)
				if err != nil {
					return nil, err
				}
				for k, v := range bodyOrder {
					if isDigits(k) {
						continue
					}
					kwargs[k] = reflect.ValueOf(v)
				}
			}
		}
	}

	for k, v := range captures {
		kwargs[k] = reflect.ValueOf(v)
	}

	args := make([]reflect.Value, len(w.params))
	var extraPositional []any
	extraKwargs := make(map[string]any)
	posIdx := 0

	for i, p := range w.params {
		switch {
		case i == w.argsParam:
			args[i] = reflect.ValueOf(extraPositional)
		case i == w.kwargsParam:
			args[i] = reflect.ValueOf(extraKwargs)
		case p.special != "":
			if v, ok := specials[p.special]; ok && v.IsValid() {
				args[i] = v
			} else {
				args[i] = reflect.Zero(p.typ)
			}
		default:
			if v, ok := kwargs[p.name]; ok {
				args[i] = coerceToParam(v, p.typ)
				delete(kwargs, p.name)
			} else if posIdx < len(positional) {
				args[i] = coerceToParam(positional[posIdx], p.typ)
				posIdx++
			} else {
				args[i] = reflect.Zero(p.typ)
			}
		}
	}

	for posIdx < len(positional) {
		extraPositional = append(extraPositional, positional[posIdx].Interface())
		posIdx++
	}
	for k, v := range kwargs {
		extraKwargs[k] = valueInterface(v)
	}
	if w.argsParam >= 0 {
		args[w.argsParam] = reflect.ValueOf(extraPositional)
	}
	if w.kwargsParam >= 0 {
		args[w.kwargsParam] = reflect.ValueOf(extraKwargs)
	}

	out := w.fn.Call(args)
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

func valueInterface(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

func (w *WrappedHandler) autofillSpecials(req *Request, kwargs map[string]reflect.Value) {
	kwargs[injRequest] = reflect.ValueOf(req)
	if req.Conn != nil {
		kwargs[injSocket] = reflect.ValueOf(req.Conn)
	}
	kwargs[injQuery] = reflect.ValueOf(req.Query())
	kwargs[injBody] = reflect.ValueOf(req.Body)
	kwargs[injFile] = reflect.ValueOf(req.Body)
	kwargs[injHeaders] = reflect.ValueOf(req.Header)
	kwargs[injRoute] = reflect.ValueOf(req.Route())
	kwargs[injFullPath] = reflect.ValueOf(string(req.Target))
	kwargs[injMethod] = reflect.ValueOf(req.Method)
	kwargs[injClientAddr] = reflect.ValueOf(req.ClientAddr)
}

// assignDigitKeys pulls decimal-digit keys out of a string-valued map,
// requiring they form the contiguous range start..start+k-1.
func (w *WrappedHandler) assignDigitKeys(src map[string]string, start int, positional *[]reflect.Value, kwargs map[string]reflect.Value) (int, error) {
	var digitKeys []int
	for k := range src {
		if isDigits(k) {
			n, _ := strconv.Atoi(k)
			digitKeys = append(digitKeys, n)
		}
	}
	if len(digitKeys) == 0 {
		return start, nil
	}
	sort.Ints(digitKeys)
	for i, n := range digitKeys {
		if n != start+i {
			return start, &bindError{msg: "forge: non-contiguous positional query keys"}
		}
	}
	for _, n := range digitKeys {
		*positional = append(*positional, reflect.ValueOf(src[strconv.Itoa(n)]))
	}
	return start + len(digitKeys), nil
}

func (w *WrappedHandler) assignDigitValuesFromBody(src map[string]any, start int, positional *[]reflect.Value, kwargs map[string]reflect.Value) (int, error) {
	var digitKeys []int
	for k := range src {
		if isDigits(k) {
			n, _ := strconv.Atoi(k)
			digitKeys = append(digitKeys, n)
		}
	}
	if len(digitKeys) == 0 {
		return start, nil
	}
	sort.Ints(digitKeys)
	for i, n := range digitKeys {
		if n != start+i {
			return start, &bindError{msg: "forge: non-contiguous positional body keys"}
		}
	}
	for _, n := range digitKeys {
		*positional = append(*positional, reflect.ValueOf(src[strconv.Itoa(n)]))
	}
	return start + len(digitKeys), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// coerceToParam converts a raw reflect.Value (a string from query/route,
// or an already-typed value from JSON) into p's declared type, via
// Coerce for strings and a direct/convertible assignment otherwise.
func coerceToParam(v reflect.Value, p reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(p)
	}
	if v.Type().AssignableTo(p) {
		return v
	}
	if s, ok := v.Interface().(string); ok {
		coerced := Coerce(s, p)
		cv := reflect.ValueOf(coerced)
		if cv.IsValid() && cv.Type().AssignableTo(p) {
			return cv
		}
		if cv.IsValid() && cv.Type().ConvertibleTo(p) {
			return cv.Convert(p)
		}
		return reflect.Zero(p)
	}
	if v.Type().ConvertibleTo(p) {
		return v.Convert(p)
	}
	return reflect.Zero(p)
}
