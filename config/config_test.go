package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if *cfg != *want {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadParsesKeyValuePairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.conf")
	contents := `# comment
PORT=9090

DOCUMENT_ROOT = /srv/www
NUM_WORKERS=8
THREADS_PER_WORKER=20
TIMEOUT_SECONDS=15
CACHE_SIZE_MB=0
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.DocumentRoot != "/srv/www" {
		t.Errorf("DocumentRoot = %q, want /srv/www", cfg.DocumentRoot)
	}
	if cfg.NumWorkers != 8 {
		t.Errorf("NumWorkers = %d, want 8", cfg.NumWorkers)
	}
	if cfg.ThreadsPerWorker != 20 {
		t.Errorf("ThreadsPerWorker = %d, want 20", cfg.ThreadsPerWorker)
	}
	if cfg.TimeoutSeconds != 15 {
		t.Errorf("TimeoutSeconds = %d, want 15", cfg.TimeoutSeconds)
	}
	if cfg.CacheSizeMB != 0 {
		t.Errorf("CacheSizeMB = %d, want 0", cfg.CacheSizeMB)
	}
}

func TestLoadRejectsMalformedInt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.conf")
	if err := os.WriteFile(path, []byte("PORT=not-a-number\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed PORT value")
	}
}
