// Package httpserve implements the minimal slice of HTTP/1.1 this daemon
// speaks: request-line parsing, response header framing, MIME resolution and
// zero-copy file transfer. It has no knowledge of workers, queues or caches —
// callers hand it a socket and a path and get bytes on the wire back.
package httpserve

import "strings"

// mimeTypes maps file extensions to content types, mirroring the fixed
// extension table a static file server needs and nothing more — no
// sniffing, no magic-byte detection.
var mimeTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".txt":  "text/plain",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".woff": "font/woff",
	".woff2": "font/woff2",
}

const defaultContentType = "application/octet-stream"

// ContentType resolves a file's MIME type from its extension.
func ContentType(path string) string {
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 {
		return defaultContentType
	}
	if ct, ok := mimeTypes[strings.ToLower(path[dot:])]; ok {
		return ct
	}
	return defaultContentType
}
