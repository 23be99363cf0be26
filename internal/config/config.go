package config

import (
	"fmt"
	"time"
)

// Config is the complete configuration surface this core reads at
// startup: the registry's own enumerated keys plus connection settings for
// its external collaborators (etcd leadership, NATS eventing, the admin
// HTTP surface).
type Config struct {
	ClusterID string       `mapstructure:"cluster_id"`
	ScmID     string       `mapstructure:"scm_id"`
	Registry  RegistryConfig `mapstructure:"registry"`
	Etcd      EtcdConfig   `mapstructure:"etcd"`
	Events    EventsConfig `mapstructure:"events"`
	Admin     AdminConfig  `mapstructure:"admin"`
	Logging   LoggingConfig `mapstructure:"logging"`
}

// RegistryConfig holds the registry's tunable thresholds and placement
// limits.
type RegistryConfig struct {
	UseHostname                bool          `mapstructure:"use_hostname"`
	PipelinesPerMetadataVolume int           `mapstructure:"pipelines_per_metadata_volume"`
	DatanodePipelineLimit      int           `mapstructure:"datanode_pipeline_limit"`
	StaleThreshold             time.Duration `mapstructure:"stale_threshold"`
	DeadThreshold               time.Duration `mapstructure:"dead_threshold"`
	ScanInterval                time.Duration `mapstructure:"scan_interval"`
}

// EtcdConfig configures the leadership election client.
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	ElectionKey string        `mapstructure:"election_key"`
}

// EventsConfig configures the NATS-backed event publisher.
type EventsConfig struct {
	URL string `mapstructure:"url"`
}

// AdminConfig configures the gin-backed management surface.
type AdminConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds the logging settings. cmd/scmcore reads only Format
// ("json" selects the production logger, anything else the development
// one); Level is loaded but not applied.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate rejects configurations the registry cannot run with.
func (c *Config) Validate() error {
	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry config: %w", err)
	}
	if c.ClusterID == "" {
		return fmt.Errorf("cluster_id is required")
	}
	return nil
}

// Validate enforces the stale < dead threshold ordering the health
// state machine requires.
func (c *RegistryConfig) Validate() error {
	if c.StaleThreshold <= 0 || c.DeadThreshold <= 0 || c.ScanInterval <= 0 {
		return fmt.Errorf("stale_threshold, dead_threshold, and scan_interval must all be positive")
	}
	if c.StaleThreshold >= c.DeadThreshold {
		return fmt.Errorf("stale_threshold must be less than dead_threshold")
	}
	if c.PipelinesPerMetadataVolume < 1 {
		return fmt.Errorf("pipelines_per_metadata_volume must be >= 1")
	}
	return nil
}
