// Command staticd is a concurrent static file server: a master process
// re-execs a fixed pool of worker processes, each running a fixed pool of
// goroutines against a shared listening port, an in-memory LRU file cache
// and a cross-process shared statistics region.
//
// Usage: staticd [config_file]
package main

import (
	"log"
	"os"

	"github.com/searchktools/staticd/app"
	"github.com/searchktools/staticd/config"
)

func main() {
	configPath := "server.conf"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("staticd: %v", err)
	}

	if err := app.New(cfg, configPath).Run(); err != nil {
		log.Fatalf("staticd: %v", err)
	}
}
