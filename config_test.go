package strata

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strata.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
endpoint: http://localhost:8080
api_key: secret
headers:
  X-Team: search
timeout_sec: 7
poll_interval_ms: 100
backup_wait_sec: 10
replication_wait_sec: 120
max_batch_size: 50
consistency: ALL
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Endpoint != "http://localhost:8080" || cfg.APIKey != "secret" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Headers["X-Team"] != "search" {
		t.Errorf("headers = %v", cfg.Headers)
	}
	if cfg.Consistency != "ALL" || cfg.MaxBatchSize != 50 {
		t.Errorf("unexpected knobs: %+v", cfg)
	}

	opts := cfg.Options()
	c := &clientConfig{}
	for _, o := range opts {
		o.apply(c)
	}
	if c.pollInterval != 100*time.Millisecond {
		t.Errorf("pollInterval = %v", c.pollInterval)
	}
	if c.httpClient == nil || c.httpClient.Timeout != 7*time.Second {
		t.Errorf("httpClient = %+v, want a 7s request timeout", c.httpClient)
	}
	if c.backupTimeout != 10*time.Second || c.replicationTimeout != 120*time.Second {
		t.Errorf("timeouts = %v, %v", c.backupTimeout, c.replicationTimeout)
	}
	if c.consistency != ConsistencyAll {
		t.Errorf("consistency = %v", c.consistency)
	}
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	t.Setenv("STRATA_KEY", "from-env")
	path := writeConfig(t, `
endpoint: ${STRATA_ENDPOINT:-http://fallback:8080}
api_key: ${STRATA_KEY}
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want env value", cfg.APIKey)
	}
	if cfg.Endpoint != "http://fallback:8080" {
		t.Errorf("Endpoint = %q, want the :- default", cfg.Endpoint)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, `api_key: x`)); err == nil {
		t.Error("expected error for missing endpoint")
	}
	if _, err := LoadConfig(writeConfig(t, "endpoint: http://x\nconsistency: MOST")); err == nil {
		t.Error("expected error for bad consistency level")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewValidatesEndpoint(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty endpoint")
	}
	if _, err := New("not a url"); err == nil {
		t.Error("expected error for malformed endpoint")
	}
}
