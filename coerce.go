package forge

import (
	"reflect"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/valyala/fastjson"
)

var trueWords = map[string]bool{"true": true, "t": true, "yes": true, "y": true}
var falseWords = map[string]bool{"false": true, "f": true, "no": true, "n": true}

// Coerce converts a textual argument into a typed value given a declared
// type hint (possibly nil, meaning "no hint"). It never fails: on any
// ambiguity or parse error, the original text is returned.
func Coerce(text string, hint reflect.Type) any {
	// Rule 1: integer.
	if hint == nil || isIntKind(hint.Kind()) {
		if v, ok := tryInt(text); ok {
			if hint != nil && hint.Kind() != reflect.Interface {
				return reflect.ValueOf(v).Convert(hint).Interface()
			}
			return v
		}
	}

	// Rule 2: float.
	if hint == nil || isFloatKind(hint.Kind()) {
		if v, ok := tryFloat(text); ok {
			if hint != nil && hint.Kind() != reflect.Interface {
				return reflect.ValueOf(v).Convert(hint).Interface()
			}
			return v
		}
	}

	// Rule 3: bool.
	if hint == nil || hint.Kind() == reflect.Bool {
		lower := strings.ToLower(text)
		if trueWords[lower] {
			return true
		}
		if falseWords[lower] {
			return false
		}
		if hint != nil && hint.Kind() == reflect.Bool {
			if lower == "1" || lower == "ok" {
				return true
			}
			if lower == "0" {
				return false
			}
		}
	}

	// Rule 4: null/none.
	lower := strings.ToLower(text)
	if lower == "none" || lower == "null" {
		if hint == nil || hint.Kind() != reflect.String {
			return nil
		}
	}

	// Rule 5: bytes-like.
	if hint != nil && isByteSliceType(hint) {
		return []byte(text)
	}

	// Rule 6: collection, or absent hint with a bracketed literal.
	if hint == nil || isCollectionKind(hint.Kind()) {
		trimmed := strings.TrimSpace(text)
		if looksBracketed(trimmed) {
			normalized := normalizeLiteral(trimmed)
			if fastjson.Validate(normalized) == nil {
				var v any
				if err := json.Unmarshal([]byte(normalized), &v); err == nil {
					return v
				}
			}
		}
	}

	// Rule 7: original text.
	return text
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isCollectionKind(k reflect.Kind) bool {
	switch k {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return false
	}
}

func isByteSliceType(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func tryInt(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func tryFloat(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func looksBracketed(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '[', '(', '{':
		return true
	default:
		return false
	}
}

// normalizeLiteral turns a tuple/set literal "(...)" into a JSON array
// "[...]" so the remaining bracketed forms ("[...]" and "{...}" object
// literals) can go straight through the JSON parser.
func normalizeLiteral(s string) string {
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		return "[" + s[1:len(s)-1] + "]"
	}
	return s
}
