/*
Package staticd implements a concurrent, prefork static file server: one
master process re-execs a fixed pool of worker processes, each running a
fixed pool of goroutines against a shared listening port, a per-worker
in-memory LRU cache, and a cross-process shared statistics region.

Architecture

  - Master: loads configuration, allocates the shared statistics region,
    re-execs one child per worker, reaps them, and coordinates graceful
    shutdown on SIGINT/SIGTERM.
  - Worker: binds the configured port with SO_REUSEPORT so the kernel load
    balances accepted connections across every worker process, runs a fixed
    goroutine pool pulling off a bounded hand-off queue, and serves files
    from its own LRU cache or directly from disk via sendfile.
  - Statistics: one mmap'd region, guarded by a single spinlock, updated by
    every worker and read back by the master's periodic summary and by the
    /metrics and /stats fast-path endpoints.

Non-goals

This server speaks only the slice of HTTP/1.1 a static file server needs:
GET and HEAD, no persistent connections, no TLS, no request bodies, no
dynamic content. See SPEC_FULL.md for the complete list.

Quick Start

	staticd server.conf

A missing configuration file is not an error — the server starts on its
built-in defaults (port 8080, document root /var/www/html, 4 workers, 10
threads per worker).

Modules

  - app: process-role wiring (master vs. worker) for a loaded configuration
  - config: KEY=VALUE configuration file loading
  - core/master: the master supervisor
  - core/worker: the worker runtime — accept loop, thread pool, request
    handling, file delivery, priority fast-path
  - core/httpserve: request-line parsing, response framing, MIME
    resolution, zero-copy file transfer
  - core/cache: the per-worker LRU file cache
  - core/queue: the bounded cross-thread connection hand-off queue
  - core/stats: the cross-process shared statistics region
  - core/gctune: process-startup GC tuning applied by every worker
*/
package staticd
