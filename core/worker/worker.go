// Package worker implements a single worker process's runtime: the accept
// loop (producer), the fixed thread pool (consumers), the priority
// fast-path, and per-request handling and file delivery.
package worker

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/staticd/config"
	"github.com/searchktools/staticd/core/cache"
	"github.com/searchktools/staticd/core/gctune"
	"github.com/searchktools/staticd/core/queue"
	"github.com/searchktools/staticd/core/stats"
)

// Worker owns one bounded queue, one thread pool and one cache, exactly as
// spec.md's data model describes a worker subprocess.
type Worker struct {
	id        int
	cfg       *config.Config
	stats     *stats.Region
	startedAt time.Time

	listener *net.TCPListener
	q        *queue.Queue[*net.TCPConn]
	cache    *cache.Cache
	bufs     *bufPool

	activeMu      sync.Mutex
	activeThreads int

	rejectedMu sync.Mutex
	rejected   uint64

	debugMu    sync.Mutex
	debugCount uint64
}

// debugLogInterval mirrors original_source/src/stats.c's update_stats,
// which logs a running total every 15 requests independent of the master's
// 30-second summary.
const debugLogInterval = 15

// noteResponse logs a worker-local debug line every debugLogInterval
// responses. It is separate from the shared statistics region: this counter
// lives only in this process and resets on worker restart.
func (w *Worker) noteResponse(bytesSent int64, status int) {
	w.debugMu.Lock()
	w.debugCount++
	n := w.debugCount
	w.debugMu.Unlock()

	if n%debugLogInterval == 0 {
		log.Printf("worker %d: served %d responses so far (last: status=%d bytes=%d)", w.id, n, status, bytesSent)
	}
}

// New constructs a worker. It does not yet bind a socket or start any
// goroutines — call Run for that.
func New(id int, cfg *config.Config, region *stats.Region, startedAt time.Time) *Worker {
	w := &Worker{
		id:        id,
		cfg:       cfg,
		stats:     region,
		startedAt: startedAt,
		q:         queue.New[*net.TCPConn](),
		bufs:      newBufPool(),
	}
	if cfg.CacheSizeMB > 0 {
		w.cache = cache.New(int64(cfg.CacheSizeMB) * 1024 * 1024)
	}
	return w
}

// listenConfig enables SO_REUSEADDR/SO_REUSEPORT so every worker process
// can independently bind the same port; the kernel load-balances accepted
// connections across them. This is the re-exec model's substitute for
// literal fd inheritance from a forked listener.
var listenConfig = net.ListenConfig{
	Control: func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			if sockErr != nil {
				return
			}
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
		})
		if err != nil {
			return err
		}
		return sockErr
	},
}

func addrFor(port int) string {
	return fmt.Sprintf(":%d", port)
}

// Run binds the shared listening port, starts the thread pool, and runs
// the accept loop until ctx is canceled. It blocks until shutdown is
// complete: the accept loop has exited, the queue has been shut down, every
// thread has exited, and connections still queued have been closed without
// being served.
func (w *Worker) Run(ctx context.Context) error {
	ln, err := listenConfig.Listen(ctx, "tcp", addrFor(w.cfg.Port))
	if err != nil {
		return err
	}
	w.listener = ln.(*net.TCPListener)

	gctune.Apply(gctune.DefaultThroughputConfig())

	var threads sync.WaitGroup
	threads.Add(w.cfg.ThreadsPerWorker)
	for i := 0; i < w.cfg.ThreadsPerWorker; i++ {
		go func(threadID int) {
			defer threads.Done()
			w.threadLoop(threadID)
		}(i)
	}

	log.Printf("worker %d: listening on port %d with %d threads", w.id, w.cfg.Port, w.cfg.ThreadsPerWorker)

	go func() {
		<-ctx.Done()
		w.listener.Close()
	}()

	w.acceptLoop(ctx)

	log.Printf("worker %d: accept loop exited, draining %d threads", w.id, w.cfg.ThreadsPerWorker)
	w.q.Shutdown()
	threads.Wait()
	w.q.Drain(func(c *net.TCPConn) {
		if c != nil {
			c.Close()
		}
	})

	if w.cache != nil {
		s := w.cache.Stats()
		log.Printf("worker %d: final cache stats - %d entries, %d bytes", w.id, s.Entries, s.TotalSize)
	}
	log.Printf("worker %d: exiting", w.id)
	return nil
}

func (w *Worker) acceptLoop(ctx context.Context) {
	for {
		conn, err := w.listener.AcceptTCP()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				continue
			}
			return
		}

		if peekIsPriority(conn) {
			w.servePriority(conn)
			continue
		}

		if err := w.q.TryEnqueue(conn); err != nil {
			w.rejectConnection(conn)
		}
	}
}

func (w *Worker) rejectConnection(conn *net.TCPConn) {
	w.respondServiceUnavailable(conn)

	w.rejectedMu.Lock()
	w.rejected++
	n := w.rejected
	w.rejectedMu.Unlock()

	if n%100 == 1 {
		log.Printf("worker %d: queue full, rejected %d connections so far", w.id, n)
	}
}

func (w *Worker) threadLoop(threadID int) {
	w.activeMu.Lock()
	w.activeThreads++
	w.activeMu.Unlock()
	defer func() {
		w.activeMu.Lock()
		w.activeThreads--
		w.activeMu.Unlock()
	}()

	ctx := context.Background()
	for {
		conn, err := w.q.Dequeue(ctx)
		if err != nil {
			return
		}
		timeout := time.Duration(w.cfg.TimeoutSeconds) * time.Second
		conn.SetDeadline(time.Now().Add(timeout))
		w.handleConnection(conn)
	}
}
