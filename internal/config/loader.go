package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from configPath, or from the default search
// locations when configPath is empty, filling unset keys with
// setDefaults, and allowing SCMCORE_-prefixed environment variables to
// override anything.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/scmcore")
	}

	setDefaults(v)

	v.SetEnvPrefix("SCMCORE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cluster_id", "scmcore-dev-cluster")
	v.SetDefault("scm_id", "scmcore-dev-scm")

	v.SetDefault("registry.use_hostname", false)
	v.SetDefault("registry.pipelines_per_metadata_volume", 2)
	v.SetDefault("registry.datanode_pipeline_limit", 0)
	v.SetDefault("registry.stale_threshold", "60s")
	v.SetDefault("registry.dead_threshold", "300s")
	v.SetDefault("registry.scan_interval", "30s")

	v.SetDefault("etcd.endpoints", []string{"http://localhost:2379"})
	v.SetDefault("etcd.dial_timeout", "5s")
	v.SetDefault("etcd.election_key", "/scmcore/leader")

	v.SetDefault("events.url", "nats://localhost:4222")

	v.SetDefault("admin.listen_addr", "0.0.0.0:9876")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads from configPath, falling back to DefaultConfig on
// any error (e.g. an invalid override left in the environment).
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a valid configuration with no file or environment
// involved, used by tests and by LoadOrDefault's fallback.
func DefaultConfig() *Config {
	return &Config{
		ClusterID: "scmcore-dev-cluster",
		ScmID:     "scmcore-dev-scm",
		Registry: RegistryConfig{
			UseHostname:                false,
			PipelinesPerMetadataVolume: 2,
			StaleThreshold:             60 * time.Second,
			DeadThreshold:              300 * time.Second,
			ScanInterval:               30 * time.Second,
		},
		Etcd: EtcdConfig{
			Endpoints:   []string{"http://localhost:2379"},
			DialTimeout: 5 * time.Second,
			ElectionKey: "/scmcore/leader",
		},
		Events: EventsConfig{URL: "nats://localhost:4222"},
		Admin:  AdminConfig{ListenAddr: "0.0.0.0:9876"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
