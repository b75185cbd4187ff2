package stats

import (
	"sync"
	"testing"

	"golang.org/x/sys/unix"
)

func newTestRegion(t *testing.T) *Region {
	t.Helper()
	r, fd, err := Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		unix.Close(fd)
	})
	return r
}

func TestRecordResponseBucketsByStatus(t *testing.T) {
	r := newTestRegion(t)
	r.RecordResponse(100, 200)
	r.RecordResponse(50, 404)
	r.RecordResponse(10, 503)

	s := r.Read()
	if s.TotalRequests != 3 {
		t.Fatalf("TotalRequests = %d, want 3", s.TotalRequests)
	}
	if s.BytesSent != 160 {
		t.Fatalf("BytesSent = %d, want 160", s.BytesSent)
	}
	if s.HTTP200Count != 1 || s.HTTP404Count != 1 || s.HTTP5xxCount != 1 {
		t.Fatalf("unexpected status buckets: %+v", s)
	}
}

func TestActiveConnectionsNeverGoNegative(t *testing.T) {
	r := newTestRegion(t)
	r.DecrementActive()
	if got := r.Read().ActiveConnections; got != 0 {
		t.Fatalf("ActiveConnections = %d, want 0", got)
	}

	r.IncrementActive()
	r.IncrementActive()
	r.DecrementActive()
	if got := r.Read().ActiveConnections; got != 1 {
		t.Fatalf("ActiveConnections = %d, want 1", got)
	}
}

func TestConcurrentRecordResponseIsRaceFree(t *testing.T) {
	r := newTestRegion(t)
	const goroutines = 50
	const perGoroutine = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				r.RecordResponse(1, 200)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perGoroutine)
	if got := r.Read().TotalRequests; got != want {
		t.Fatalf("TotalRequests = %d, want %d", got, want)
	}
}

func TestSnapshotDeltaResetOnlyCountsSinceLastCall(t *testing.T) {
	r := newTestRegion(t)
	r.RecordResponse(10, 200)
	r.RecordResponse(10, 200)
	first := r.SnapshotDeltaReset()
	if first.TotalRequests != 2 {
		t.Fatalf("first delta TotalRequests = %d, want 2", first.TotalRequests)
	}

	second := r.SnapshotDeltaReset()
	if second.TotalRequests != 0 {
		t.Fatalf("second delta TotalRequests = %d, want 0", second.TotalRequests)
	}

	r.RecordResponse(10, 200)
	third := r.SnapshotDeltaReset()
	if third.TotalRequests != 1 {
		t.Fatalf("third delta TotalRequests = %d, want 1", third.TotalRequests)
	}

	lifetime := r.Read()
	if lifetime.TotalRequests != 3 {
		t.Fatalf("lifetime TotalRequests = %d, want 3", lifetime.TotalRequests)
	}
}
