package httpserve

import (
	"bytes"
	"strings"
	"unsafe"

	"github.com/searchktools/staticd/core"
)

const maxMethodLen = 16
const maxPathLen = 2048

// Request is the result of parsing a single HTTP request line. Only the
// request line is parsed — headers beyond the line are not needed by a
// server that never reads a body and never keeps a connection alive, so
// they are skipped rather than collected.
type Request struct {
	Method string
	Path   string
	Proto  string
}

// unsafeString views a byte slice as a string without copying. Safe here
// because the backing buffer outlives the Request's use within a single
// request/response cycle and is never mutated while the Request is alive.
func unsafeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return *(*string)(unsafe.Pointer(&b))
}

// ParseRequestLine extracts METHOD, PATH and PROTO from the first line of
// a raw read buffer. It does not validate the method against the set of
// methods the server actually supports — that is the caller's job — only
// that the line is well-formed.
func ParseRequestLine(data []byte) (Request, error) {
	lineEnd := bytes.IndexByte(data, '\n')
	if lineEnd == -1 {
		return Request{}, core.ErrInvalidRequest
	}
	line := data[:lineEnd]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 == -1 {
		return Request{}, core.ErrInvalidRequest
	}
	if sp1 > maxMethodLen {
		return Request{}, core.ErrMethodTooLong
	}

	rest := line[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 == -1 {
		return Request{}, core.ErrInvalidRequest
	}

	path := rest[:sp2]
	if len(path) > maxPathLen {
		return Request{}, core.ErrPathTooLong
	}

	return Request{
		Method: string(line[:sp1]),
		Path:   string(path),
		Proto:  unsafeString(rest[sp2+1:]),
	}, nil
}

// SanitizePath resolves a request path into a filesystem-safe path for the
// caller to join onto its document root. "/" maps to "/index.html", any query string is
// stripped, and any path containing ".." is rejected outright rather than
// cleaned, matching the fail-closed behavior of the reference server.
func SanitizePath(requestPath string) (relPath string, ok bool) {
	p := requestPath
	if idx := strings.IndexByte(p, '?'); idx != -1 {
		p = p[:idx]
	}
	if p == "/" {
		p = "/index.html"
	}
	if strings.Contains(p, "..") {
		return "", false
	}
	return p, true
}
