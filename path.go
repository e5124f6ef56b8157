package forge

import (
	"net/url"
	"strings"
)

// Path is a raw request-target: a route portion, optionally followed by
// "?" and a query string.
type Path string

// Route returns the substring before the first "?", percent-decoded. An
// undecodable escape is left as-is rather than failing the request.
func (p Path) Route() string {
	route := string(p)
	if i := strings.IndexByte(route, '?'); i >= 0 {
		route = route[:i]
	}
	decoded, err := url.PathUnescape(route)
	if err != nil {
		return route
	}
	return decoded
}

// QueryArgs splits everything after the first "?" on "&", then each
// fragment on the first "=". A fragment without "=" maps to an empty
// value. Repeated keys: the later one wins. Both keys and values are
// percent-decoded.
func (p Path) QueryArgs() map[string]string {
	args := make(map[string]string)

	raw := string(p)
	i := strings.IndexByte(raw, '?')
	if i < 0 {
		return args
	}
	query := raw[i+1:]
	if query == "" {
		return args
	}

	for _, frag := range strings.Split(query, "&") {
		if frag == "" {
			continue
		}
		key := frag
		value := ""
		if eq := strings.IndexByte(frag, '='); eq >= 0 {
			key = frag[:eq]
			value = frag[eq+1:]
		}
		args[decodeOrKeep(key)] = decodeOrKeep(value)
	}

	return args
}

// decodeOrKeep percent-decodes s, falling back to s unchanged on a
// malformed escape rather than failing the request.
func decodeOrKeep(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
