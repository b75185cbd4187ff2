package httpserve

import (
	"fmt"
	"net"
	"strconv"
)

// StatusText maps the small set of status codes this server ever emits to
// their reason phrases. A lookup miss is a programmer error, not a runtime
// condition, so callers should only ever pass codes listed here.
var StatusText = map[int]string{
	200: "OK",
	206: "Partial Content",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	500: "Internal Server Error",
	501: "Not Implemented",
	503: "Service Unavailable",
}

// WriteHeader writes a status line and the given headers, terminated by the
// blank line that ends the header block. Every response this server sends
// closes the connection afterward, so Connection: close is always present.
func WriteHeader(conn net.Conn, status int, contentLength int64, extra map[string]string) error {
	buf := make([]byte, 0, 256)
	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(status), 10)
	buf = append(buf, ' ')
	buf = append(buf, StatusText[status]...)
	buf = append(buf, "\r\n"...)
	buf = append(buf, "Server: staticd\r\n"...)
	buf = append(buf, "Connection: close\r\n"...)
	buf = append(buf, "Content-Length: "...)
	buf = strconv.AppendInt(buf, contentLength, 10)
	buf = append(buf, "\r\n"...)
	for k, v := range extra {
		buf = append(buf, k...)
		buf = append(buf, ": "...)
		buf = append(buf, v...)
		buf = append(buf, "\r\n"...)
	}
	buf = append(buf, "\r\n"...)
	_, err := conn.Write(buf)
	return err
}

// WriteError writes a minimal HTML error body, matching the reference
// server's "<h1>%d %s</h1>" error pages exactly. It returns the number of
// body bytes written so callers can feed an accurate byte count into the
// statistics region.
func WriteError(conn net.Conn, status int) (int, error) {
	body := fmt.Sprintf("<h1>%d %s</h1>", status, StatusText[status])
	extra := map[string]string{"Content-Type": "text/html"}
	if status == 503 {
		extra["Retry-After"] = "1"
	}
	if err := WriteHeader(conn, status, int64(len(body)), extra); err != nil {
		return 0, err
	}
	n, err := conn.Write([]byte(body))
	return n, err
}
