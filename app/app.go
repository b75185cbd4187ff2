// Package app wires a loaded configuration to either the master supervisor
// or a single worker's runtime, depending on how the process was invoked.
package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/searchktools/staticd/config"
	"github.com/searchktools/staticd/core/master"
	"github.com/searchktools/staticd/core/stats"
	"github.com/searchktools/staticd/core/worker"
)

// App is the application instance for one staticd process: either the
// master supervisor or one worker, decided by the presence of
// master.WorkerIDEnv in the environment.
type App struct {
	cfg        *config.Config
	configPath string
}

// New creates an application instance bound to cfg, loaded from configPath.
func New(cfg *config.Config, configPath string) *App {
	return &App{cfg: cfg, configPath: configPath}
}

// Run starts the process in whichever role its environment selects and
// blocks until it exits.
func (a *App) Run() error {
	if idStr, ok := os.LookupEnv(master.WorkerIDEnv); ok {
		return a.runWorker(idStr)
	}
	return a.runMaster()
}

func (a *App) runMaster() error {
	m, err := master.New(a.cfg, a.configPath)
	if err != nil {
		return err
	}
	log.Printf("staticd: starting master, port=%d workers=%d document_root=%s",
		a.cfg.Port, a.cfg.NumWorkers, a.cfg.DocumentRoot)
	return m.Run()
}

func (a *App) runWorker(idStr string) error {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return err
	}

	region, err := stats.Open(master.StatsRegionFD)
	if err != nil {
		return err
	}
	defer region.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.New(id, a.cfg, region, time.Now())
	return w.Run(ctx)
}
