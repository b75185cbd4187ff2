package httpserve

import (
	"strings"
	"testing"

	"github.com/searchktools/staticd/core"
)

func TestParseRequestLineParsesMethodPathProto(t *testing.T) {
	req, err := ParseRequestLine([]byte("GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	if err != nil {
		t.Fatalf("ParseRequestLine: %v", err)
	}
	if req.Method != "GET" {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if req.Path != "/index.html" {
		t.Errorf("Path = %q, want /index.html", req.Path)
	}
	if req.Proto != "HTTP/1.1" {
		t.Errorf("Proto = %q, want HTTP/1.1", req.Proto)
	}
}

func TestParseRequestLineAcceptsBareLFTerminator(t *testing.T) {
	req, err := ParseRequestLine([]byte("HEAD /a HTTP/1.0\nHost: x\n"))
	if err != nil {
		t.Fatalf("ParseRequestLine: %v", err)
	}
	if req.Method != "HEAD" || req.Path != "/a" {
		t.Errorf("req = %+v, want Method=HEAD Path=/a", req)
	}
}

func TestParseRequestLineRejectsMissingNewline(t *testing.T) {
	_, err := ParseRequestLine([]byte("GET /index.html HTTP/1.1"))
	if err != core.ErrInvalidRequest {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestParseRequestLineRejectsMissingSecondSpace(t *testing.T) {
	_, err := ParseRequestLine([]byte("GET /index.html\r\n"))
	if err != core.ErrInvalidRequest {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestParseRequestLineRejectsOversizedMethod(t *testing.T) {
	method := strings.Repeat("A", maxMethodLen+1)
	_, err := ParseRequestLine([]byte(method + " / HTTP/1.1\r\n"))
	if err != core.ErrMethodTooLong {
		t.Fatalf("err = %v, want ErrMethodTooLong", err)
	}
}

func TestParseRequestLineRejectsOversizedPath(t *testing.T) {
	path := "/" + strings.Repeat("a", maxPathLen+1)
	_, err := ParseRequestLine([]byte("GET " + path + " HTTP/1.1\r\n"))
	if err != core.ErrPathTooLong {
		t.Fatalf("err = %v, want ErrPathTooLong", err)
	}
}

func TestSanitizePathMapsRootToIndex(t *testing.T) {
	rel, ok := SanitizePath("/")
	if !ok || rel != "/index.html" {
		t.Fatalf("SanitizePath(\"/\") = %q, %v, want /index.html, true", rel, ok)
	}
}

func TestSanitizePathStripsQueryString(t *testing.T) {
	rel, ok := SanitizePath("/style.css?v=2")
	if !ok || rel != "/style.css" {
		t.Fatalf("SanitizePath = %q, %v, want /style.css, true", rel, ok)
	}
}

func TestSanitizePathRejectsTraversal(t *testing.T) {
	if _, ok := SanitizePath("/../etc/passwd"); ok {
		t.Fatal("expected traversal path to be rejected")
	}
	if _, ok := SanitizePath("/a/../../etc/passwd"); ok {
		t.Fatal("expected nested traversal path to be rejected")
	}
}

func TestSanitizePathPassesThroughOrdinaryPath(t *testing.T) {
	rel, ok := SanitizePath("/css/site.css")
	if !ok || rel != "/css/site.css" {
		t.Fatalf("SanitizePath = %q, %v, want /css/site.css, true", rel, ok)
	}
}
