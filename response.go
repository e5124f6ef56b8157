package forge

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// Response is the codec's emit-side data model: a status
// code with a reason phrase, a version (defaulting to the request's),
// headers, and a raw body. The six named constructors below share this
// one public contract, differing only in how they fill it in.
type Response struct {
	StatusCode int
	Phrase     string
	Version    string
	Header     Header
	Body       []byte
}

// newResponse builds the common skeleton every constructor starts from.
func newResponse(status int) *Response {
	return &Response{
		StatusCode: status,
		Phrase:     StatusText(status),
		Version:    "HTTP/1.1",
		Header:     NewHeader(),
	}
}

// WithPhrase overrides the default reason phrase for this response.
func (r *Response) WithPhrase(phrase string) *Response {
	r.Phrase = phrase
	return r
}

// ResponsePlain builds a text/plain response.
func ResponsePlain(status int, body string) *Response {
	r := newResponse(status)
	r.Header.Set("Content-Type", "text/plain; charset=utf-8")
	r.Body = []byte(body)
	return r
}

// ResponseHTML builds a text/html response.
func ResponseHTML(status int, body string) *Response {
	r := newResponse(status)
	r.Header.Set("Content-Type", "text/html; charset=utf-8")
	r.Body = []byte(body)
	return r
}

// ResponseJSON builds an application/json response, encoding v with a
// correct, escape-aware JSON serializer.
func ResponseJSON(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r := newResponse(status)
	r.Header.Set("Content-Type", "application/json")
	r.Body = body
	return r, nil
}

// ResponseError builds an error response body shaped as JSON
// {"status":...,"message":...}.
func ResponseError(status int, message string) *Response {
	r := newResponse(status)
	r.Header.Set("Content-Type", "application/json")
	body, _ := json.Marshal(&Error{Status: status, Message: message})
	r.Body = body
	return r
}

// ResponseRedirect builds a redirect response. status must be a 3xx
// code; callers typically pass StatusFound or StatusMovedPermanently.
func ResponseRedirect(status int, location string) *Response {
	r := newResponse(status)
	r.Header.Set("Location", location)
	r.Header.Set("Content-Type", "text/plain; charset=utf-8")
	r.Body = []byte(r.Phrase)
	return r
}

// mimeBySuffix is a deliberately small extension lookup; anything
// beyond this set falls back to application/octet-stream.
var mimeBySuffix = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript",
	".json": "application/json",
	".txt":  "text/plain; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".xml":  "application/xml",
	".zip":  "application/zip",
}

// ResponseFile builds a File response: reads the file (or, for a
// directory, a freshly built ZIP of its entries) fully into memory and
// sets Content-Type, Content-Length, and Last-Modified.
func ResponseFile(path string) (*Response, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	r := newResponse(StatusOK)

	if info.IsDir() {
		body, err := zipDirectory(path)
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/zip")
		r.Body = body
	} else {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		contentType := mimeBySuffix[filepath.Ext(path)]
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		r.Header.Set("Content-Type", contentType)
		r.Body = body
	}

	r.Header.Set("Content-Length", strconv.Itoa(len(r.Body)))
	r.Header.Set("Last-Modified", info.ModTime().UTC().Format(time.RFC1123))
	return r, nil
}

func zipDirectory(dir string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(rel)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ResponseFromAny shapes a handler's raw return value into a Response.
// declaredReturn, if non-nil, is the handler's static return type — when
// it is *Response, that subclass is preferred over the value-based
// inference.
func ResponseFromAny(v any, declaredReturn reflect.Type) (*Response, error) {
	if declaredReturn == responsePtrType {
		if r, ok := v.(*Response); ok && r != nil {
			return r, nil
		}
	}

	switch val := v.(type) {
	case nil:
		return newResponse(StatusNoContent), nil
	case *Response:
		if val == nil {
			return newResponse(StatusNoContent), nil
		}
		return val, nil
	case int:
		if val >= 100 && val <= 599 {
			return newStatusOnlyResponse(val), nil
		}
		return ResponseJSON(StatusOK, val)
	case []byte:
		r := newResponse(StatusOK)
		r.Header.Set("Content-Type", "application/octet-stream")
		r.Body = val
		return r, nil
	case string:
		if looksLikeFilesystemPath(val) {
			if resp, err := ResponseFile(val); err == nil {
				return resp, nil
			}
		}
		return ResponseHTML(StatusOK, val), nil
	case error:
		return ResponseError(StatusInternalServerError, val.Error()), nil
	default:
		return ResponseJSON(StatusOK, val)
	}
}

var responsePtrType = reflect.TypeOf((*Response)(nil))

func newStatusOnlyResponse(status int) *Response {
	return newPlainResponse(status, StatusText(status))
}

// newPlainResponse builds a minimal text/plain response carrying message
// as the body. Framework-originated failures (malformed routing, method
// mismatches, argument-binding failures, recovered panics) are plain
// status responses rather than JSON bodies.
func newPlainResponse(status int, message string) *Response {
	r := newResponse(status)
	r.Header.Set("Content-Type", "text/plain; charset=utf-8")
	r.Body = []byte(message)
	return r
}

// looksLikeFilesystemPath is a conservative heuristic: only values that
// name an existing file or directory are treated as file responses, so
// ordinary text bodies are never mistaken for paths.
func looksLikeFilesystemPath(s string) bool {
	if s == "" {
		return false
	}
	if _, err := os.Stat(s); err != nil {
		return false
	}
	return true
}

// Write serializes the response onto w per the emit contract: status line, headers in insertion order, blank line, body. If
// stripBody is true (HEAD requests), identical headers are written but
// the body is omitted.
func (r *Response) Write(w io.Writer, stripBody bool) error {
	if r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}
	if r.Header.Get("Content-Length") == "" {
		r.Header.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}

	sw, ok := w.(stringWriter)
	if !ok {
		sw = &stringWriterAdapter{w}
	}

	if _, err := sw.WriteString(fmt.Sprintf("%s %d %s\r\n", r.Version, r.StatusCode, r.Phrase)); err != nil {
		return err
	}
	if err := r.Header.Write(sw); err != nil {
		return err
	}
	if _, err := sw.WriteString("\r\n"); err != nil {
		return err
	}
	if stripBody {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

type stringWriterAdapter struct{ io.Writer }

func (a *stringWriterAdapter) WriteString(s string) (int, error) {
	return a.Write([]byte(s))
}
