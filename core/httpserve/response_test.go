package httpserve

import (
	"net"
	"strings"
	"testing"
	"time"
)

func readAllFromPipe(t *testing.T, server net.Conn) string {
	t.Helper()
	server.SetReadDeadline(time.Now().Add(time.Second))
	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := server.Read(buf)
		b.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return b.String()
}

func TestWriteHeaderFormatsStatusLineAndHeaders(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	var got string
	go func() {
		got = readAllFromPipe(t, server)
		close(done)
	}()

	extra := map[string]string{"X-Cache-Status": "HIT"}
	if err := WriteHeader(client, 200, 42, extra); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	client.Close()
	<-done

	lines := strings.Split(got, "\r\n")
	if lines[0] != "HTTP/1.1 200 OK" {
		t.Fatalf("status line = %q, want HTTP/1.1 200 OK", lines[0])
	}
	if !strings.Contains(got, "Connection: close\r\n") {
		t.Errorf("missing Connection: close header, got %q", got)
	}
	if !strings.Contains(got, "Content-Length: 42\r\n") {
		t.Errorf("missing Content-Length header, got %q", got)
	}
	if !strings.Contains(got, "X-Cache-Status: HIT\r\n") {
		t.Errorf("missing extra header, got %q", got)
	}
	if !strings.HasSuffix(got, "\r\n\r\n") {
		t.Errorf("header block not terminated by blank line, got %q", got)
	}
}

func TestWriteErrorIncludesRetryAfterOnServiceUnavailable(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	var got string
	go func() {
		got = readAllFromPipe(t, server)
		close(done)
	}()

	n, err := WriteError(client, 503)
	if err != nil {
		t.Fatalf("WriteError: %v", err)
	}
	client.Close()
	<-done

	if n <= 0 {
		t.Fatalf("body byte count = %d, want > 0", n)
	}
	if !strings.Contains(got, "Retry-After: 1\r\n") {
		t.Errorf("missing Retry-After header, got %q", got)
	}
	if !strings.Contains(got, "Content-Type: text/html\r\n") {
		t.Errorf("missing text/html content type, got %q", got)
	}
	if !strings.Contains(got, "<h1>503 Service Unavailable</h1>") {
		t.Errorf("missing HTML error body, got %q", got)
	}
}

func TestWriteErrorBodyMatchesReferenceFormat(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	var got string
	go func() {
		got = readAllFromPipe(t, server)
		close(done)
	}()

	if _, err := WriteError(client, 404); err != nil {
		t.Fatalf("WriteError: %v", err)
	}
	client.Close()
	<-done

	if !strings.HasSuffix(got, "<h1>404 Not Found</h1>") {
		t.Errorf("body = %q, want exact suffix <h1>404 Not Found</h1>", got)
	}
}

func TestContentTypeResolvesKnownExtensions(t *testing.T) {
	cases := map[string]string{
		"/index.html": "text/html",
		"/app.js":     "application/javascript",
		"/photo.PNG":  "image/png",
		"/data":       defaultContentType,
		"/data.bin":   defaultContentType,
	}
	for path, want := range cases {
		if got := ContentType(path); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", path, got, want)
		}
	}
}
