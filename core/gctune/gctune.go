// Package gctune holds the process-startup GC tuning every worker applies
// (the master does not), adapted from the teacher engine's GC-tuning helper for a
// server that serves largely static, cacheable content rather than
// allocating heavily per request.
package gctune

import (
	"runtime"
	"runtime/debug"
)

// ThroughputConfig holds the GC parameters applied to worker processes.
type ThroughputConfig struct {
	// GOGC sets the garbage collection target percentage. A static file
	// server backed by an LRU cache allocates comparatively little per
	// request, so a higher-than-default value trades some extra resident
	// memory for fewer collection cycles under load.
	GOGC int

	// RetainExtra is baseline memory allocated once at startup to raise
	// the heap's initial size and push the first few collections further
	// out.
	RetainExtra int64
}

// DefaultThroughputConfig returns the tuning applied to every worker at
// startup.
func DefaultThroughputConfig() ThroughputConfig {
	return ThroughputConfig{
		GOGC:        200,
		RetainExtra: 16 << 20,
	}
}

// Apply installs cfg as the process's GC tuning.
func Apply(cfg ThroughputConfig) {
	if cfg.GOGC > 0 {
		debug.SetGCPercent(cfg.GOGC)
	}
	if cfg.RetainExtra > 0 {
		runtime.GC()
		_ = make([]byte, cfg.RetainExtra)
	}
}
