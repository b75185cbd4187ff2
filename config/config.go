// Package config loads the server's KEY=VALUE configuration file.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every tunable the daemon reads from its configuration file.
type Config struct {
	Port             int
	DocumentRoot     string
	NumWorkers       int
	ThreadsPerWorker int
	TimeoutSeconds   int
	CacheSizeMB      int
}

// Default returns the configuration used when no file is present, matching
// the reference server's built-in defaults.
func Default() *Config {
	return &Config{
		Port:             8080,
		DocumentRoot:     "/var/www/html",
		NumWorkers:       4,
		ThreadsPerWorker: 10,
		TimeoutSeconds:   30,
		CacheSizeMB:      10,
	}
}

// Load reads path and overlays KEY=VALUE pairs onto the defaults. A missing
// file is not an error — the caller keeps running on defaults, logging the
// condition is left to the caller.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		if err := cfg.set(key, value); err != nil {
			return nil, fmt.Errorf("config: %s line %d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) set(key, value string) error {
	switch key {
	case "PORT":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = n
	case "DOCUMENT_ROOT":
		c.DocumentRoot = value
	case "NUM_WORKERS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("NUM_WORKERS: %w", err)
		}
		c.NumWorkers = n
	case "THREADS_PER_WORKER":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("THREADS_PER_WORKER: %w", err)
		}
		c.ThreadsPerWorker = n
	case "TIMEOUT_SECONDS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("TIMEOUT_SECONDS: %w", err)
		}
		c.TimeoutSeconds = n
	case "CACHE_SIZE_MB":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("CACHE_SIZE_MB: %w", err)
		}
		c.CacheSizeMB = n
	default:
		// Unknown keys are ignored rather than rejected, so a config file
		// written for a newer version still loads.
	}
	return nil
}
