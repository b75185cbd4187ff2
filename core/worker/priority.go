package worker

import (
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/staticd/core/httpserve"
)

// peekTimeout bounds the non-destructive peek used to classify a
// connection as a priority endpoint before it is ever read destructively.
// The reference server peeks with no deadline at all, which can stall the
// accept loop behind a slow client; bounding it here is the fix the spec's
// own design notes call for.
const peekTimeout = 200 * time.Millisecond

var priorityPrefixes = []string{
	"GET /health", "HEAD /health",
	"GET /metrics", "HEAD /metrics",
	"GET /stats", "HEAD /stats",
}

// peekIsPriority examines the first bytes of conn without consuming them,
// reporting whether the request line looks like one of the three
// observability endpoints.
func peekIsPriority(conn *net.TCPConn) bool {
	conn.SetReadDeadline(time.Now().Add(peekTimeout))
	defer conn.SetReadDeadline(time.Time{})

	buf := make([]byte, 512)
	raw, err := conn.SyscallConn()
	if err != nil {
		return false
	}

	var n int
	var peekErr error
	err = raw.Read(func(fd uintptr) bool {
		n, _, peekErr = unix.Recvfrom(int(fd), buf, unix.MSG_PEEK)
		if peekErr == unix.EAGAIN {
			return false
		}
		return true
	})
	if err != nil || peekErr != nil || n <= 0 {
		return false
	}

	line := string(buf[:n])
	for _, prefix := range priorityPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// isPriorityPath reports whether a parsed path (trailing slash tolerated,
// matching the reference server) names an observability endpoint.
func isPriorityPath(path string) bool {
	switch strings.TrimSuffix(path, "/") {
	case "/health", "/metrics", "/stats":
		return true
	}
	return false
}

// servePriority reads the already-peeked request, generates the
// corresponding body, writes the response and closes the connection.
// /metrics reads its counters under one acquisition of the statistics
// primitive; /stats reads the lifetime counters and the since-last-call
// average under two separate acquisitions, so the two are not taken from
// one single snapshot.
func (w *Worker) servePriority(conn *net.TCPConn) {
	defer conn.Close()

	buf := w.bufs.get()
	defer w.bufs.put(buf)

	conn.SetDeadline(time.Now().Add(time.Duration(w.cfg.TimeoutSeconds) * time.Second))
	n, err := conn.Read(buf)
	if n <= 0 || err != nil {
		return
	}

	req, err := httpserve.ParseRequestLine(buf[:n])
	if err != nil {
		return
	}

	w.respondPriority(conn, req.Method, req.Path)
}

// respondPriority answers a request already known to target /health,
// /metrics or /stats.
func (w *Worker) respondPriority(conn *net.TCPConn, method, path string) {
	var body string
	var contentType string

	switch strings.TrimSuffix(path, "/") {
	case "/health":
		body = w.healthBody()
		contentType = "application/json"
	case "/metrics":
		body = w.metricsBody()
		contentType = "text/plain; version=0.0.4"
	case "/stats":
		body = w.statsBody()
		contentType = "application/json"
	default:
		return
	}

	extra := map[string]string{"Content-Type": contentType, "X-Priority": "high"}
	if err := httpserve.WriteHeader(conn, 200, int64(len(body)), extra); err != nil {
		return
	}
	if method == "GET" {
		conn.Write([]byte(body))
	}
	w.stats.RecordResponse(int64(len(body)), 200)
	w.noteResponse(int64(len(body)), 200)
}

func (w *Worker) healthBody() string {
	uptime := int(time.Since(w.startedAt).Seconds())
	return fmt.Sprintf(`{"status":"healthy","uptime":%d,"workers":%d}`, uptime, w.cfg.NumWorkers)
}

func (w *Worker) metricsBody() string {
	s := w.stats.Read()
	var b strings.Builder
	fmt.Fprintf(&b, "# HELP http_requests_total Total HTTP requests served.\n")
	fmt.Fprintf(&b, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(&b, "http_requests_total %d\n", s.TotalRequests)
	fmt.Fprintf(&b, "# HELP http_bytes_sent_total Total bytes sent in response bodies.\n")
	fmt.Fprintf(&b, "# TYPE http_bytes_sent_total counter\n")
	fmt.Fprintf(&b, "http_bytes_sent_total %d\n", s.BytesSent)
	fmt.Fprintf(&b, "# HELP http_requests_by_code Total requests by status code.\n")
	fmt.Fprintf(&b, "# TYPE http_requests_by_code counter\n")
	fmt.Fprintf(&b, "http_requests_by_code{code=\"200\"} %d\n", s.HTTP200Count)
	fmt.Fprintf(&b, "http_requests_by_code{code=\"404\"} %d\n", s.HTTP404Count)
	fmt.Fprintf(&b, "http_requests_by_code{code=\"500\"} %d\n", s.HTTP5xxCount)
	fmt.Fprintf(&b, "# HELP http_active_connections In-flight connections.\n")
	fmt.Fprintf(&b, "# TYPE http_active_connections gauge\n")
	fmt.Fprintf(&b, "http_active_connections %d\n", s.ActiveConnections)
	fmt.Fprintf(&b, "# HELP http_avg_response_time_ms Lifetime average response time.\n")
	fmt.Fprintf(&b, "# TYPE http_avg_response_time_ms gauge\n")
	fmt.Fprintf(&b, "http_avg_response_time_ms %.3f\n", s.AvgResponseTimeMs)
	return b.String()
}

func (w *Worker) statsBody() string {
	lifetime := w.stats.Read()
	delta := w.stats.SnapshotDeltaReset()
	return fmt.Sprintf(
		`{"total_requests":%d,"bytes_sent":%d,"http_codes":{"200":%d,"404":%d,"500":%d},"active_connections":%d,"avg_response_time_ms":%.3f,"avg_response_time_ms_since_last_scrape":%.3f}`,
		lifetime.TotalRequests, lifetime.BytesSent,
		lifetime.HTTP200Count, lifetime.HTTP404Count, lifetime.HTTP5xxCount,
		lifetime.ActiveConnections, lifetime.AvgResponseTimeMs, delta.AvgResponseTimeMs,
	)
}
