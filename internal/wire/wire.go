// Package wire implements the byte-level HTTP/1.x parse contract: a tolerant request-line/header/body reader that never needs a
// full RFC 7230 parser, since pipelining, chunked bodies, and HTTP/2 are
// all out of scope. Bare-LF line endings parse the same as CRLF (see
// DESIGN.md).
package wire

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// Errors surfaced to the caller as fixed status codes: malformed request line -> 400, oversized header block -> 431,
// oversized body -> 413. ErrConnectionClosed marks an EOF seen before the
// header terminator or before all Content-Length body bytes arrived, which
// the server treats as a silent disconnect.
var (
	ErrMalformedRequestLine = errors.New("wire: malformed request line")
	ErrHeaderTooLarge       = errors.New("wire: header block exceeds limit")
	ErrBodyTooLarge         = errors.New("wire: body exceeds limit")
	ErrConnectionClosed     = errors.New("wire: connection closed before request completed")
)

// Options bounds a single read: chunk size, and the header/body limits
// that turn into 431/413 responses.
type Options struct {
	ReadChunkSize  int
	MaxHeaderBytes int64
	MaxBodyBytes   int64
}

// Request is the codec's raw parse result: the three request-line
// tokens, headers in arrival order (duplicates kept, last-wins is a
// caller concern), and the fully-assembled body.
type Request struct {
	Method  string
	Target  string
	Version string
	Header  map[string][]string
	Body    []byte
}

var (
	crlfcrlf = []byte("\r\n\r\n")
	lflf     = []byte("\n\n")
)

// Read blocks on r until a complete request has been assembled or a
// terminal condition (malformed input, size limit, close) is reached.
func Read(r io.Reader, opts Options) (*Request, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	chunk := make([]byte, opts.ReadChunkSize)
	headerEnd := -1
	termLen := 0

	for headerEnd == -1 {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if idx := bytes.Index(buf.B, crlfcrlf); idx != -1 {
				headerEnd, termLen = idx, len(crlfcrlf)
			} else if idx := bytes.Index(buf.B, lflf); idx != -1 {
				headerEnd, termLen = idx, len(lflf)
			}
		}
		if headerEnd == -1 {
			if err != nil {
				if errors.Is(err, io.EOF) {
					if buf.Len() == 0 {
						return nil, ErrConnectionClosed
					}
					return nil, ErrConnectionClosed
				}
				return nil, err
			}
			if int64(buf.Len()) > opts.MaxHeaderBytes {
				return nil, ErrHeaderTooLarge
			}
		}
	}

	head := buf.B[:headerEnd]
	method, target, version, header, err := parseHead(head)
	if err != nil {
		return nil, err
	}

	bodyStart := headerEnd + termLen
	need := contentLength(header)
	if need > 0 && opts.MaxBodyBytes > 0 && int64(need) > opts.MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}

	for int64(buf.Len()-bodyStart) < int64(need) {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if opts.MaxBodyBytes > 0 && int64(buf.Len()-bodyStart) > opts.MaxBodyBytes {
				return nil, ErrBodyTooLarge
			}
		}
		if int64(buf.Len()-bodyStart) >= int64(need) {
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrConnectionClosed
			}
			return nil, err
		}
	}

	var body []byte
	if need > 0 {
		body = append([]byte(nil), buf.B[bodyStart:bodyStart+need]...)
	}

	return &Request{Method: method, Target: target, Version: version, Header: header, Body: body}, nil
}

// parseHead splits the request line on the first two ASCII spaces and
// each header line on the first colon, tolerating both CRLF and bare-LF
// line endings.
func parseHead(head []byte) (method, target, version string, header map[string][]string, err error) {
	lines := splitLines(head)
	if len(lines) == 0 {
		return "", "", "", nil, ErrMalformedRequestLine
	}

	parts := strings.SplitN(lines[0], " ", 3)
	if len(parts) != 3 {
		return "", "", "", nil, ErrMalformedRequestLine
	}
	method, target, version = parts[0], parts[1], parts[2]

	header = make(map[string][]string)
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx == -1 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if name == "" {
			continue
		}
		header[name] = append(header[name], value)
	}
	return method, target, version, header, nil
}

// splitLines splits on "\n" and trims a trailing "\r" from each line, so
// both CRLF and LF-only input parse identically.
func splitLines(b []byte) []string {
	raw := strings.Split(string(b), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimSuffix(l, "\r"))
	}
	return lines
}

// contentLength reads the last Content-Length header value, defaulting
// to 0 (absent, non-numeric, or negative all mean "no body").
func contentLength(header map[string][]string) int {
	vals, ok := header["Content-Length"]
	if !ok || len(vals) == 0 {
		return 0
	}
	n, err := strconv.Atoi(vals[len(vals)-1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}
