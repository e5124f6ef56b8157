package forge

import (
	"fmt"
	"strings"
)

// templatePart is one literal or placeholder fragment of a template
// segment.
type templatePart struct {
	literal     string
	placeholder string // empty unless this part is a placeholder
}

// templateSegment is the parsed form of one "/"-delimited segment of a
// route template: an alternating sequence of literal and placeholder
// parts.
type templateSegment struct {
	parts []templatePart
}

// routeTemplate is a fully parsed variadic route template.
type routeTemplate struct {
	raw      string
	segments []templateSegment

	nonVariadicSegments int
	nonVariadicChars    int
	placeholderCount    int
}

// parseTemplate parses a template string such as "/a/{b}_is2/c/{d}" into a
// routeTemplate, rejecting adjacent placeholders and duplicate names at
// parse (registration) time.
func parseTemplate(tmpl string) (*routeTemplate, error) {
	trimmed := strings.Trim(tmpl, "/")
	var rawSegments []string
	if trimmed != "" {
		rawSegments = strings.Split(trimmed, "/")
	}

	rt := &routeTemplate{raw: tmpl}
	seen := make(map[string]bool)

	for _, seg := range rawSegments {
		parsed, err := parseSegment(seg)
		if err != nil {
			return nil, err
		}
		variadic := false
		for _, p := range parsed.parts {
			if p.placeholder != "" {
				variadic = true
				if seen[p.placeholder] {
					return nil, fmt.Errorf("forge: duplicate placeholder %q in template %q", p.placeholder, tmpl)
				}
				seen[p.placeholder] = true
				rt.placeholderCount++
			} else {
				rt.nonVariadicChars += len(p.literal)
			}
		}
		if !variadic {
			rt.nonVariadicSegments++
		}
		rt.segments = append(rt.segments, parsed)
	}

	return rt, nil
}

// parseSegment splits a single path segment into alternating literal and
// placeholder parts, rejecting two adjacent placeholders.
func parseSegment(seg string) (templateSegment, error) {
	var out templateSegment
	i := 0
	lastWasPlaceholder := false

	for i < len(seg) {
		if seg[i] == '{' {
			end := strings.IndexByte(seg[i:], '}')
			if end < 0 {
				return out, fmt.Errorf("forge: unterminated placeholder in segment %q", seg)
			}
			if lastWasPlaceholder {
				return out, fmt.Errorf("forge: adjacent placeholders in segment %q", seg)
			}
			name := seg[i+1 : i+end]
			out.parts = append(out.parts, templatePart{placeholder: name})
			i += end + 1
			lastWasPlaceholder = true
			continue
		}

		end := strings.IndexByte(seg[i:], '{')
		var lit string
		if end < 0 {
			lit = seg[i:]
			i = len(seg)
		} else {
			lit = seg[i : i+end]
			i += end
		}
		if lit != "" {
			out.parts = append(out.parts, templatePart{literal: lit})
		}
		lastWasPlaceholder = false
	}

	return out, nil
}

// priorityTuple is the tuple compared (descending) when several templates
// could match the same request.
type priorityTuple struct {
	segments            int
	nonVariadicSegments  int
	nonVariadicChars     int
	placeholderCount     int
	length               int
}

func (rt *routeTemplate) priority() priorityTuple {
	return priorityTuple{
		segments:            len(rt.segments),
		nonVariadicSegments: rt.nonVariadicSegments,
		nonVariadicChars:    rt.nonVariadicChars,
		placeholderCount:    rt.placeholderCount,
		length:              len(rt.raw),
	}
}

// less reports whether a ranks lower than b (so sorting descending by
// `less` puts the highest-priority template first).
func (a priorityTuple) less(b priorityTuple) bool {
	if a.segments != b.segments {
		return a.segments < b.segments
	}
	if a.nonVariadicSegments != b.nonVariadicSegments {
		return a.nonVariadicSegments < b.nonVariadicSegments
	}
	if a.nonVariadicChars != b.nonVariadicChars {
		return a.nonVariadicChars < b.nonVariadicChars
	}
	if a.placeholderCount != b.placeholderCount {
		return a.placeholderCount < b.placeholderCount
	}
	return a.length < b.length
}

// match attempts to match route (already split into "/"-separated
// segments with empty trailing segments trimmed) against the template,
// returning captures on success.
func (rt *routeTemplate) match(routeSegments []string) (map[string]string, bool) {
	if len(routeSegments) != len(rt.segments) {
		return nil, false
	}

	captures := make(map[string]string)
	for i, seg := range rt.segments {
		ok := matchSegment(seg, routeSegments[i], captures)
		if !ok {
			return nil, false
		}
	}
	return captures, true
}

// matchSegment matches one template segment's alternating literal/
// placeholder parts against one request path segment, left to right.
func matchSegment(seg templateSegment, text string, captures map[string]string) bool {
	pos := 0
	var pendingPlaceholder string
	havePending := false

	flushPending := func(upto string) {
		if havePending {
			captures[pendingPlaceholder] = upto
			havePending = false
		}
	}

	for _, part := range seg.parts {
		if part.placeholder != "" {
			pendingPlaceholder = part.placeholder
			havePending = true
			continue
		}
		idx := strings.Index(text[pos:], part.literal)
		if idx < 0 {
			return false
		}
		flushPending(text[pos : pos+idx])
		pos += idx + len(part.literal)
	}

	if havePending {
		captures[pendingPlaceholder] = text[pos:]
		return true
	}
	return pos == len(text)
}
