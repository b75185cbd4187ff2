// Package stats implements the single cross-process statistics region
// shared by the master and every worker: one mmap'd block of memory,
// guarded by exactly one synchronization primitive, updated on every
// request and read back by the master's periodic report and by the
// /metrics and /stats fast-path endpoints.
//
// Go has no direct equivalent of a pthread mutex initialized with
// PTHREAD_PROCESS_SHARED, so the mutual exclusion primitive here is a
// hand-rolled spinlock built from a single atomically-addressed word living
// inside the mapped region itself — any process holding a pointer to the
// same mapping can contend on it.
package stats

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// record mirrors the C server_stats_t layout field for field: a lock word
// followed by fixed-width counters. Field order and width matter — this
// struct is overlaid directly onto mmap'd bytes, so it must never contain
// anything with indirection (no slices, strings, pointers).
type record struct {
	lock               uint32
	_                  uint32 // padding to keep 8-byte fields aligned
	totalRequests      uint64
	bytesSent          uint64
	http200Count       uint64
	http404Count       uint64
	http5xxCount       uint64
	activeConnections  uint64
	totalResponseTime  uint64 // milliseconds
	responseCount      uint64
	lastSnapshotReqs   uint64
	lastSnapshotBytes  uint64
	lastSnapshotTimeMs uint64
	lastSnapshotCount  uint64
}

const regionSize = int(unsafe.Sizeof(record{}))

// Region is a handle onto the shared statistics memory, valid in whichever
// process mapped it. The master creates the backing memfd; every worker
// receives the same descriptor (via ExtraFiles) and maps it independently.
type Region struct {
	data []byte
	rec  *record
}

// Create allocates a new anonymous, memory-backed file suitable for sharing
// across the exec boundary and maps it read-write. The caller owns the
// returned fd: Region.Close unmaps but does not close it. Pass it to
// workers (e.g. via exec.Cmd.ExtraFiles) before closing it.
func Create() (*Region, int, error) {
	fd, err := unix.MemfdCreate("staticd-stats", 0)
	if err != nil {
		return nil, -1, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(regionSize)); err != nil {
		unix.Close(fd)
		return nil, -1, fmt.Errorf("ftruncate: %w", err)
	}
	r, err := mapFD(fd)
	if err != nil {
		unix.Close(fd)
		return nil, -1, err
	}
	return r, fd, nil
}

// Open maps an already-created shared region from an inherited file
// descriptor. Workers call this with the fd passed down by the master.
func Open(fd int) (*Region, error) {
	return mapFD(fd)
}

func mapFD(fd int) (*Region, error) {
	data, err := unix.Mmap(fd, 0, regionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &Region{
		data: data,
		rec:  (*record)(unsafe.Pointer(&data[0])),
	}, nil
}

// Close unmaps the region in the current process. It does not affect other
// processes still holding the mapping.
func (r *Region) Close() error {
	return unix.Munmap(r.data)
}

func (r *Region) lockSpin() {
	backoff := 0
	for !atomic.CompareAndSwapUint32(&r.rec.lock, 0, 1) {
		backoff++
		if backoff > 100 {
			runtime.Gosched()
			backoff = 0
		}
	}
}

func (r *Region) unlock() {
	atomic.StoreUint32(&r.rec.lock, 0)
}

// RecordResponse accounts for one completed response: total requests,
// bytes sent and the status-code bucket it falls into.
func (r *Region) RecordResponse(bytesSent int64, status int) {
	r.lockSpin()
	r.rec.totalRequests++
	r.rec.bytesSent += uint64(bytesSent)
	switch {
	case status == 200:
		r.rec.http200Count++
	case status == 404:
		r.rec.http404Count++
	case status >= 500:
		r.rec.http5xxCount++
	}
	r.unlock()
}

// IncrementActive marks one more connection in flight.
func (r *Region) IncrementActive() {
	r.lockSpin()
	r.rec.activeConnections++
	r.unlock()
}

// DecrementActive marks one fewer connection in flight, clamped at zero.
func (r *Region) DecrementActive() {
	r.lockSpin()
	if r.rec.activeConnections > 0 {
		r.rec.activeConnections--
	}
	r.unlock()
}

// AddResponseTime accumulates one response's latency toward the lifetime
// average.
func (r *Region) AddResponseTime(ms int64) {
	r.lockSpin()
	r.rec.totalResponseTime += uint64(ms)
	r.rec.responseCount++
	r.unlock()
}

// Snapshot is a point-in-time, race-free copy of the shared counters.
type Snapshot struct {
	TotalRequests     uint64
	BytesSent         uint64
	HTTP200Count      uint64
	HTTP404Count      uint64
	HTTP5xxCount      uint64
	ActiveConnections uint64
	AvgResponseTimeMs float64
}

// Read takes a consistent snapshot of every counter under the lock.
func (r *Region) Read() Snapshot {
	r.lockSpin()
	s := Snapshot{
		TotalRequests:     r.rec.totalRequests,
		BytesSent:         r.rec.bytesSent,
		HTTP200Count:      r.rec.http200Count,
		HTTP404Count:      r.rec.http404Count,
		HTTP5xxCount:      r.rec.http5xxCount,
		ActiveConnections: r.rec.activeConnections,
	}
	if r.rec.responseCount > 0 {
		s.AvgResponseTimeMs = float64(r.rec.totalResponseTime) / float64(r.rec.responseCount)
	}
	r.unlock()
	return s
}

// SnapshotDeltaReset returns the request count, byte count and average
// response time accumulated since the previous call to SnapshotDeltaReset
// (or since Create, for the first call), then resets the delta baseline.
// The status-code buckets and the active-connection gauge are left zero in
// the returned Snapshot. The /stats endpoint uses it alongside Read's
// lifetime view.
func (r *Region) SnapshotDeltaReset() Snapshot {
	r.lockSpin()
	s := Snapshot{
		TotalRequests: r.rec.totalRequests - r.rec.lastSnapshotReqs,
		BytesSent:     r.rec.bytesSent - r.rec.lastSnapshotBytes,
	}
	deltaCount := r.rec.responseCount - r.rec.lastSnapshotCount
	deltaTime := r.rec.totalResponseTime - r.rec.lastSnapshotTimeMs
	if deltaCount > 0 {
		s.AvgResponseTimeMs = float64(deltaTime) / float64(deltaCount)
	}
	r.rec.lastSnapshotReqs = r.rec.totalRequests
	r.rec.lastSnapshotBytes = r.rec.bytesSent
	r.rec.lastSnapshotTimeMs = r.rec.totalResponseTime
	r.rec.lastSnapshotCount = r.rec.responseCount
	r.unlock()
	return s
}

// PrintSummary logs the full lifetime counters, matching the reference
// server's periodic "=== GLOBAL STATISTICS ===" report.
func (r *Region) PrintSummary(logf func(format string, args ...any)) {
	s := r.Read()
	logf("=== stats summary ===")
	logf("requests=%d bytes=%s 200=%d 404=%d 5xx=%d active=%d avg_response_ms=%.2f",
		s.TotalRequests, humanize.Bytes(s.BytesSent), s.HTTP200Count, s.HTTP404Count,
		s.HTTP5xxCount, s.ActiveConnections, s.AvgResponseTimeMs)
}
