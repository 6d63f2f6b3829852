package config

// Package config provides a reusable loader for BrightChain configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"brightchain/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a BrightChain node. It
// mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Network struct {
		NodeID         string   `mapstructure:"node_id" json:"node_id"`
		ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
		DiscoveryTag   string   `mapstructure:"discovery_tag" json:"discovery_tag"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
	} `mapstructure:"network" json:"network"`

	Store struct {
		BlockSize    int    `mapstructure:"block_size" json:"block_size"`
		Backend      string `mapstructure:"backend" json:"backend"` // "memory" or "disk"
		DiskDir      string `mapstructure:"disk_dir" json:"disk_dir"`
		MaxEntries   int    `mapstructure:"max_entries" json:"max_entries"`
	} `mapstructure:"store" json:"store"`

	Gossip struct {
		Fanout          int `mapstructure:"fanout" json:"fanout"`
		DefaultTTL      int `mapstructure:"default_ttl" json:"default_ttl"`
		BatchIntervalMs int `mapstructure:"batch_interval_ms" json:"batch_interval_ms"`
		MaxBatchSize    int `mapstructure:"max_batch_size" json:"max_batch_size"`
		NormalFanout    int `mapstructure:"normal_fanout" json:"normal_fanout"`
		NormalTTL       int `mapstructure:"normal_ttl" json:"normal_ttl"`
		HighFanout      int `mapstructure:"high_fanout" json:"high_fanout"`
		HighTTL         int `mapstructure:"high_ttl" json:"high_ttl"`
	} `mapstructure:"gossip" json:"gossip"`

	Retry struct {
		InitialTimeoutMs  int `mapstructure:"initial_timeout_ms" json:"initial_timeout_ms"`
		BackoffMultiplier int `mapstructure:"backoff_multiplier" json:"backoff_multiplier"`
		MaxRetries        int `mapstructure:"max_retries" json:"max_retries"`
		MaxBackoffMs      int `mapstructure:"max_backoff_ms" json:"max_backoff_ms"`
	} `mapstructure:"retry" json:"retry"`

	Server struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"server" json:"server"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the BRIGHTCHAIN_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("BRIGHTCHAIN_ENV", ""))
}
