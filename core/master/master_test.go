package master

import (
	"os/exec"
	"testing"
)

func TestTerminateAllToleratesNilEntries(t *testing.T) {
	m := &Master{}
	// Must not panic on a nil slice, a nil *exec.Cmd, or a Cmd whose
	// Process was never started.
	m.terminateAll(nil)
	m.terminateAll([]*exec.Cmd{nil, {}})
}

func TestStatsRegionFDMatchesFirstExtraFile(t *testing.T) {
	// exec.Cmd documents that ExtraFiles[0] always lands at fd 3 in the
	// child, after stdin/stdout/stderr. Workers rely on that fixed offset
	// to find their shared statistics region without any handshake.
	if StatsRegionFD != 3 {
		t.Fatalf("StatsRegionFD = %d, want 3", StatsRegionFD)
	}
}
