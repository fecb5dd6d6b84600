package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/nosan/embedded-cassandra-sub005/internal/env"
	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
)

/**
 * Server configuration parameters
 * @property {string} address - HTTP API listening address (e.g. "127.0.0.1:9950")
 * @property {string} mode - gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" for standard output
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Metrics configuration
 * @property {bool} enabled - Serve prometheus metrics from the HTTP API
 * @property {string} path - Route the metrics are served on
 */
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Nodes   []NodeConfig  `mapstructure:"nodes"`
}

const envPrefix = "EMBEDDED_CASSANDRA"

var Config AppConfig

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1:9950")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "console")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errdefs.NewConfigError("", "cannot decode configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

/**
 * Load application configuration from config.yaml
 * @returns {*AppConfig} Defaults when no config file exists
 * @description
 * - Searches the current directory, then the base directory
 * - EMBEDDED_CASSANDRA_* environment variables override scalar keys (e.g. EMBEDDED_CASSANDRA_LOG_LEVEL)
 */
func LoadConfig() (*AppConfig, error) {
	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath(env.BaseDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errdefs.NewConfigError("", "cannot read config.yaml", err)
		}
	}
	return decode(v)
}

// LoadConfigFile loads an explicit configuration file.
func LoadConfigFile(path string) (*AppConfig, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errdefs.NewConfigError("", fmt.Sprintf("cannot read %s", path), err)
	}
	return decode(v)
}

// ReloadConfig re-reads the configuration into Config. An empty path searches
// the default locations.
func ReloadConfig(path string) error {
	var (
		cfg *AppConfig
		err error
	)
	if path == "" {
		cfg, err = LoadConfig()
	} else {
		cfg, err = LoadConfigFile(path)
	}
	if err != nil {
		return err
	}
	Config = *cfg
	return nil
}

// Validate checks every node definition and that node names are unique.
func (c *AppConfig) Validate() error {
	seen := make(map[string]int, len(c.Nodes))
	for i := range c.Nodes {
		prefix := fmt.Sprintf("nodes[%d]", i)
		if err := c.Nodes[i].Validate(); err != nil {
			var cfgErr *errdefs.ConfigError
			if errors.As(err, &cfgErr) {
				return errdefs.NewConfigError(prefix+"."+cfgErr.Field, cfgErr.Message, cfgErr.Err)
			}
			return err
		}
		if j, dup := seen[c.Nodes[i].Name]; dup {
			return errdefs.NewConfigError(prefix+".name", fmt.Sprintf("node name '%s' already used by nodes[%d]", c.Nodes[i].Name, j), nil)
		}
		seen[c.Nodes[i].Name] = i
	}
	return nil
}

// FindNode returns the definition named name.
func (c *AppConfig) FindNode(name string) (*NodeConfig, bool) {
	for i := range c.Nodes {
		if c.Nodes[i].Name == name {
			return &c.Nodes[i], true
		}
	}
	return nil, false
}

func init() {
	cfg, err := LoadConfig()
	if err != nil {
		v := newViper()
		cfg = &AppConfig{}
		_ = v.Unmarshal(cfg)
	}
	Config = *cfg
}
