package strata

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML representation of client settings, for services
// that prefer configuration files over code. Values of the form ${VAR} or
// ${VAR:-default} are expanded from the environment at load time.
type FileConfig struct {
	Endpoint           string            `yaml:"endpoint"`
	APIKey             string            `yaml:"api_key"`
	Headers            map[string]string `yaml:"headers"`
	TimeoutSec         int               `yaml:"timeout_sec"`
	PollIntervalMS     int               `yaml:"poll_interval_ms"`
	BackupWaitSec      int               `yaml:"backup_wait_sec"`
	ReplicationWaitSec int               `yaml:"replication_wait_sec"`
	MaxBatchSize       int               `yaml:"max_batch_size"`
	Consistency        string            `yaml:"consistency"` // ONE, QUORUM, ALL
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (FileConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for correctness.
func (c FileConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	switch c.Consistency {
	case "", string(ConsistencyOne), string(ConsistencyQuorum), string(ConsistencyAll):
	default:
		return fmt.Errorf("consistency must be ONE, QUORUM or ALL, got %q", c.Consistency)
	}
	return nil
}

// Options converts the file config into client options.
func (c FileConfig) Options() []Option {
	var opts []Option
	if c.APIKey != "" {
		opts = append(opts, WithAPIKey(c.APIKey))
	}
	for k, v := range c.Headers {
		opts = append(opts, WithHeader(k, v))
	}
	if c.TimeoutSec > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{
			Timeout: time.Duration(c.TimeoutSec) * time.Second,
		}))
	}
	if c.PollIntervalMS > 0 {
		opts = append(opts, WithPollInterval(time.Duration(c.PollIntervalMS)*time.Millisecond))
	}
	if c.BackupWaitSec > 0 {
		opts = append(opts, WithBackupWaitTimeout(time.Duration(c.BackupWaitSec)*time.Second))
	}
	if c.ReplicationWaitSec > 0 {
		opts = append(opts, WithReplicationWaitTimeout(time.Duration(c.ReplicationWaitSec)*time.Second))
	}
	if c.MaxBatchSize > 0 {
		opts = append(opts, WithMaxBatchSize(c.MaxBatchSize))
	}
	if c.Consistency != "" {
		opts = append(opts, WithConsistency(ConsistencyLevel(c.Consistency)))
	}
	return opts
}

// NewFromConfig creates a client from a YAML config file. Extra options
// (logger, metrics, embedder) are applied on top of the file settings.
func NewFromConfig(path string, extra ...Option) (*Client, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(cfg.Endpoint, append(cfg.Options(), extra...)...)
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandEnvVars substitutes ${VAR} and ${VAR:-default} references.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		groups := envVarPattern.FindSubmatch(match)
		if v, ok := os.LookupEnv(string(groups[1])); ok {
			return []byte(v)
		}
		return groups[3]
	})
}
