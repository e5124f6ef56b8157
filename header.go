package forge

import (
	"net/textproto"
	"strings"
)

// Header represents the key-value pairs in an HTTP header, preserving the
// order in which keys were first added. Keys are stored in canonical form,
// as returned by textproto.CanonicalMIMEHeaderKey.
//
// Wire emit (see response.go's Write) requires headers to appear in
// insertion order, which a plain Go map cannot guarantee on iteration;
// Header keeps a parallel key-order slice alongside the value map for
// exactly this reason.
//
// A Request's Header is built once by the wire codec while parsing and is
// never mutated afterwards; a Response's Header is built by the
// handler/shaping layer on a single goroutine before the codec emits it.
// Neither case needs synchronization.
type Header struct {
	order  []string
	values map[string][]string
}

// NewHeader creates a new empty Header with pre-allocated capacity for the
// common case of a handful of request/response headers.
func NewHeader() Header {
	return Header{
		order:  make([]string, 0, 8),
		values: make(map[string][]string, 8),
	}
}

// HeaderFromMap builds a Header from a plain map[string][]string, such as
// the wire codec's raw parse result. Keys are canonicalized, so keys that
// differ only in case are merged. Key order follows Go's map iteration,
// which is unspecified; callers that need a deterministic wire-emit order
// should build the Header via Add/Set instead.
func HeaderFromMap(m map[string][]string) Header {
	h := Header{
		order:  make([]string, 0, len(m)),
		values: make(map[string][]string, len(m)),
	}
	for k, vv := range m {
		ck := textproto.CanonicalMIMEHeaderKey(k)
		if _, ok := h.values[ck]; !ok {
			h.order = append(h.order, ck)
		}
		h.values[ck] = append(h.values[ck], vv...)
	}
	return h
}

// Add adds the key, value pair to the header.
// It appends to any existing values associated with key.
// The key is case insensitive; it is canonicalized by
// textproto.CanonicalMIMEHeaderKey.
func (h *Header) Add(key, value string) {
	key = textproto.CanonicalMIMEHeaderKey(key)
	h.ensure()
	if _, ok := h.values[key]; !ok {
		h.order = append(h.order, key)
	}
	h.values[key] = append(h.values[key], value)
}

// Set sets the header entries associated with key to the
// single element value. It replaces any existing values
// associated with key.
func (h *Header) Set(key, value string) {
	key = textproto.CanonicalMIMEHeaderKey(key)
	h.ensure()
	if _, ok := h.values[key]; !ok {
		h.order = append(h.order, key)
	}
	h.values[key] = []string{value}
}

// Get gets the first value associated with the given key.
// If there are no values associated with the key, Get returns "".
func (h Header) Get(key string) string {
	values := h.values[textproto.CanonicalMIMEHeaderKey(key)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Values returns all values associated with the given key, case insensitive.
func (h Header) Values(key string) []string {
	return h.values[textproto.CanonicalMIMEHeaderKey(key)]
}

// Del deletes the values associated with key.
func (h *Header) Del(key string) {
	key = textproto.CanonicalMIMEHeaderKey(key)
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	if h.values == nil {
		return Header{}
	}
	h2 := Header{
		order:  append([]string(nil), h.order...),
		values: make(map[string][]string, len(h.values)),
	}
	for k, vv := range h.values {
		cp := make([]string, len(vv))
		copy(cp, vv)
		h2.values[k] = cp
	}
	return h2
}

func (h *Header) ensure() {
	if h.values == nil {
		h.values = make(map[string][]string, 8)
	}
}

// stringWriter is the interface that wraps the WriteString method.
type stringWriter interface {
	WriteString(s string) (n int, err error)
}

// WriteSubset writes a header in wire format, in insertion order, skipping
// keys where exclude[key] is true. Values are cleaned of embedded CR/LF to
// avoid header injection.
func (h Header) WriteSubset(w stringWriter, exclude map[string]bool) error {
	for _, key := range h.order {
		if exclude != nil && exclude[key] {
			continue
		}
		for _, v := range h.values[key] {
			if strings.ContainsAny(v, "\r\n") {
				v = strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
			}
			if _, err := w.WriteString(key + ": " + v + "\r\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// Write writes a header in wire format, in insertion order.
func (h Header) Write(w stringWriter) error {
	return h.WriteSubset(w, nil)
}
