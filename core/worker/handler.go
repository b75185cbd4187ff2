package worker

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/searchktools/staticd/core"
	"github.com/searchktools/staticd/core/cache"
	"github.com/searchktools/staticd/core/httpserve"
)

// respondServiceUnavailable answers a connection the queue had no room for.
// The reference server's overload path still counts as a served response
// for statistics purposes, so this records one.
func (w *Worker) respondServiceUnavailable(conn *net.TCPConn) {
	defer conn.Close()
	n, _ := httpserve.WriteError(conn, 503)
	w.stats.RecordResponse(int64(n), 503)
	w.noteResponse(int64(n), 503)
}

// handleConnection owns one dequeued connection end to end: read the
// request, dispatch it, record statistics, close the socket. Matches
// spec.md §4.4.b.
func (w *Worker) handleConnection(conn *net.TCPConn) {
	defer conn.Close()

	w.stats.IncrementActive()
	defer w.stats.DecrementActive()

	start := time.Now()
	defer func() {
		w.stats.AddResponseTime(time.Since(start).Milliseconds())
	}()

	buf := w.bufs.get()
	defer w.bufs.put(buf)

	n, err := conn.Read(buf)
	if n <= 0 || err != nil {
		return
	}

	req, err := httpserve.ParseRequestLine(buf[:n])
	if err != nil {
		sent, _ := httpserve.WriteError(conn, 400)
		w.stats.RecordResponse(int64(sent), 400)
		w.noteResponse(int64(sent), 400)
		return
	}

	if req.Method != "GET" && req.Method != "HEAD" {
		sent, _ := httpserve.WriteError(conn, 501)
		w.stats.RecordResponse(int64(sent), 501)
		w.noteResponse(int64(sent), 501)
		return
	}

	// A priority endpoint can still land here if a client pipelines the
	// request in right behind the accept-time peek's read deadline; handle
	// it the same way the fast path would.
	if isPriorityPath(req.Path) {
		w.respondPriority(conn, req.Method, req.Path)
		return
	}

	relPath, ok := httpserve.SanitizePath(req.Path)
	if !ok {
		sent, _ := httpserve.WriteError(conn, 403)
		w.stats.RecordResponse(int64(sent), 403)
		w.noteResponse(int64(sent), 403)
		return
	}

	fsPath := filepath.Join(w.cfg.DocumentRoot, relPath)
	w.serveFile(conn, fsPath, req.Method)
}

// serveFile answers a single GET/HEAD for a sanitized filesystem path,
// consulting the cache before touching disk and choosing between a cached
// copy and zero-copy sendfile, per spec.md §4.4.c.
func (w *Worker) serveFile(conn *net.TCPConn, fsPath, method string) {
	contentType := httpserve.ContentType(fsPath)

	if w.cache != nil {
		if content, ok := w.cache.Get(fsPath); ok {
			w.writeCachedFile(conn, content, contentType, "HIT", method)
			return
		}
	}

	f, err := os.Open(fsPath)
	if err != nil {
		sent, _ := httpserve.WriteError(conn, 404)
		w.stats.RecordResponse(int64(sent), 404)
		w.noteResponse(int64(sent), 404)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		sent, _ := httpserve.WriteError(conn, 500)
		w.stats.RecordResponse(int64(sent), 500)
		w.noteResponse(int64(sent), 500)
		return
	}
	if info.IsDir() {
		sent, _ := httpserve.WriteError(conn, 403)
		w.stats.RecordResponse(int64(sent), 403)
		w.noteResponse(int64(sent), 403)
		return
	}

	size := info.Size()

	if w.cache != nil && size > 0 && size <= cache.MaxEntrySize {
		content, err := io.ReadAll(f)
		if err != nil {
			sent, _ := httpserve.WriteError(conn, 500)
			w.stats.RecordResponse(int64(sent), 500)
			w.noteResponse(int64(sent), 500)
			return
		}
		w.cache.Put(fsPath, content)
		// Just populated, not found there: this is still a cache MISS from
		// the client's point of view, even though the response now comes
		// from the in-memory copy instead of a second disk read.
		w.writeCachedFile(conn, content, contentType, "MISS", method)
		return
	}

	extra := map[string]string{core.HeaderContentType: contentType, core.HeaderCacheStatus: "MISS"}
	if err := httpserve.WriteHeader(conn, 200, size, extra); err != nil {
		return
	}
	if method == "HEAD" {
		w.stats.RecordResponse(0, 200)
		w.noteResponse(0, 200)
		return
	}
	sent, err := httpserve.SendFile(conn, f, 0, size)
	w.stats.RecordResponse(sent, 200)
	w.noteResponse(sent, 200)
	_ = err
}

func (w *Worker) writeCachedFile(conn *net.TCPConn, content []byte, contentType, cacheStatus, method string) {
	extra := map[string]string{core.HeaderContentType: contentType, core.HeaderCacheStatus: cacheStatus}
	if err := httpserve.WriteHeader(conn, 200, int64(len(content)), extra); err != nil {
		return
	}
	if method == "HEAD" {
		w.stats.RecordResponse(0, 200)
		w.noteResponse(0, 200)
		return
	}
	conn.Write(content)
	w.stats.RecordResponse(int64(len(content)), 200)
	w.noteResponse(int64(len(content)), 200)
}
