// Package master implements the supervisor process: it owns the shared
// statistics region, re-execs one child process per configured worker,
// reaps them, periodically reports aggregate statistics, and coordinates
// graceful shutdown on SIGINT/SIGTERM.
//
// The reference server gets this shape for free from fork(): a forked
// child shares its parent's already-mapped memory and its already-open
// listening socket. Go's runtime cannot safely fork with goroutines
// running, so this supervisor re-execs its own binary instead, handing
// each child the shared-memory file descriptor over exec.Cmd.ExtraFiles
// and a STATICD_WORKER_ID environment variable telling it which worker
// slot it is.
package master

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/searchktools/staticd/config"
	"github.com/searchktools/staticd/core/stats"
)

// WorkerIDEnv is set in every re-exec'd child to tell it which worker slot
// it occupies and that it should run as a worker rather than a master.
const WorkerIDEnv = "STATICD_WORKER_ID"

// summaryInterval is how often the master logs the aggregate statistics
// summary, matching the reference server's periodic report.
const summaryInterval = 30 * time.Second

// StatsRegionFD is the file descriptor a worker finds its shared statistics
// region on. exec.Cmd.ExtraFiles always lands the first extra file at fd 3
// in the child, regardless of what fd it held in the parent.
const StatsRegionFD = 3

// Master supervises the worker fleet for the lifetime of the process.
type Master struct {
	cfg        *config.Config
	configPath string
	region     *stats.Region
	statsFile  *os.File
}

// New creates a master bound to cfg, allocating the shared statistics
// region that every worker will map. configPath is forwarded to every
// re-exec'd worker so it loads the same configuration file.
func New(cfg *config.Config, configPath string) (*Master, error) {
	region, fd, err := stats.Create()
	if err != nil {
		return nil, fmt.Errorf("master: create statistics region: %w", err)
	}
	return &Master{
		cfg:        cfg,
		configPath: configPath,
		region:     region,
		statsFile:  os.NewFile(uintptr(fd), "staticd-stats"),
	}, nil
}

// childExit reports one worker's exit back to the reaping loop.
type childExit struct {
	id  int
	err error
}

// Run spawns cfg.NumWorkers re-exec'd children, waits for a termination
// signal, and shuts the fleet down gracefully. It returns once every child
// has exited.
func (m *Master) Run() error {
	defer m.region.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("master: resolve executable: %w", err)
	}

	cmds := make([]*exec.Cmd, m.cfg.NumWorkers)
	exits := make(chan childExit, m.cfg.NumWorkers)

	var wg sync.WaitGroup
	for i := 0; i < m.cfg.NumWorkers; i++ {
		cmd, err := m.spawnWorker(exe, i)
		if err != nil {
			m.terminateAll(cmds[:i])
			return fmt.Errorf("master: spawn worker %d: %w", i, err)
		}
		cmds[i] = cmd

		wg.Add(1)
		go func(id int, c *exec.Cmd) {
			defer wg.Done()
			exits <- childExit{id: id, err: c.Wait()}
		}(i, cmd)
	}

	log.Printf("master: started %d workers, pid=%d", m.cfg.NumWorkers, os.Getpid())

	ticker := time.NewTicker(summaryInterval)
	defer ticker.Stop()

	doneCh := ctx.Done()
	live := m.cfg.NumWorkers
	for live > 0 {
		select {
		case <-doneCh:
			log.Printf("master: shutdown signal received, terminating %d workers", live)
			m.terminateAll(cmds)
			doneCh = nil // already handled; stop selecting on it
		case <-ticker.C:
			m.region.PrintSummary(log.Printf)
		case exit := <-exits:
			live--
			if exit.err != nil {
				log.Printf("master: worker %d exited: %v", exit.id, exit.err)
			} else {
				log.Printf("master: worker %d exited cleanly", exit.id)
			}
		}
	}

	wg.Wait()
	log.Printf("master: all workers exited, shutting down")
	return nil
}

func (m *Master) spawnWorker(exe string, id int) (*exec.Cmd, error) {
	cmd := exec.Command(exe, m.configPath)
	cmd.Env = append(os.Environ(), WorkerIDEnv+"="+strconv.Itoa(id))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{m.statsFile}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (m *Master) terminateAll(cmds []*exec.Cmd) {
	for _, cmd := range cmds {
		if cmd == nil || cmd.Process == nil {
			continue
		}
		cmd.Process.Signal(syscall.SIGTERM)
	}
}
