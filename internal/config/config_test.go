package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/settings"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleConfig = `
server:
  address: ":9999"
log:
  level: debug
nodes:
  - name: primary
    version: "4.1.3"
    distribution: /opt/cassandra
    platform: unix
    listen_address: 127.0.0.1
    ports:
      native_transport_port: 19042
      storage_port: 0
    jvm_options: ["-Xmx512m"]
    system_properties: ["cassandra.skip_wait_for_gossip_to_settle=0"]
    env: ["MAX_HEAP_SIZE=512M"]
    config_properties:
      num_tokens: 16
      client_encryption_options:
        optional: true
    startup_timeout: 90s
    probe_ports: false
  - name: legacy
    version: "3.11.16"
    distribution: /opt/cassandra-3
    rpc: true
`

func TestLoadConfigFile(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Path)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	require.Len(t, cfg.Nodes, 2)

	primary, ok := cfg.FindNode("primary")
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, primary.StartupTimeout)
	assert.Equal(t, models.PlatformUnix, primary.Provider().Platform)

	_, ok = cfg.FindNode("missing")
	assert.False(t, ok)
}

func TestNodeConfigBuilder(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	primary, _ := cfg.FindNode("primary")

	b, err := primary.Builder()
	require.NoError(t, err)

	port, ok := b.GetPort(settings.NativeTransport)
	assert.True(t, ok)
	assert.Equal(t, uint16(19042), port)
	_, ok = b.GetPort(settings.Storage)
	assert.False(t, ok, "port 0 is left to the allocator")

	b.Port(settings.Storage, 17000).Port(settings.JMX, 17199)
	s, err := b.Freeze(version.MustParse(primary.Version))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", s.ListenAddress())
	assert.Equal(t, []string{"-Xmx512m"}, s.JVMOptions())
	assert.Equal(t, []settings.Property{{Key: "cassandra.skip_wait_for_gossip_to_settle", Value: "0"}}, s.SystemProperties())
	assert.Equal(t, map[string]string{"MAX_HEAP_SIZE": "512M"}, s.Env())
	assert.Equal(t, []string{"client_encryption_options.optional", "num_tokens"}, s.ConfigKeys())
	assert.Equal(t, 90*time.Second, s.StartupTimeout())
	assert.Equal(t, settings.DefaultStopGracePeriod, s.StopGracePeriod())
	assert.False(t, s.ProbePorts())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "missing version",
			yaml:  "nodes:\n  - name: a\n    distribution: /d\n",
			field: "nodes[0].version",
		},
		{
			name:  "bad version",
			yaml:  "nodes:\n  - name: a\n    version: \"3.\"\n    distribution: /d\n",
			field: "nodes[0].version",
		},
		{
			name:  "bad name",
			yaml:  "nodes:\n  - name: \"a/b\"\n    version: \"4.0\"\n    distribution: /d\n",
			field: "nodes[0].name",
		},
		{
			name:  "duplicate name",
			yaml:  "nodes:\n  - name: a\n    version: \"4.0\"\n    distribution: /d\n  - name: a\n    version: \"4.0\"\n    distribution: /e\n",
			field: "nodes[1].name",
		},
		{
			name:  "unknown port kind",
			yaml:  "nodes:\n  - name: a\n    version: \"4.0\"\n    distribution: /d\n    ports:\n      thrift: 9160\n",
			field: "nodes[0].ports[thrift]",
		},
		{
			name:  "env without value",
			yaml:  "nodes:\n  - name: a\n    version: \"4.0\"\n    distribution: /d\n    env: [\"NOPE\"]\n",
			field: "nodes[0].env[0]",
		},
		{
			name:  "bad marker",
			yaml:  "nodes:\n  - name: a\n    version: \"4.0\"\n    distribution: /d\n    ready_patterns: [\"(\"]\n",
			field: "nodes[0].readypatterns[0]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.yaml))
			var cfgErr *errdefs.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestEnvironmentOverridesScalars(t *testing.T) {
	t.Setenv("EMBEDDED_CASSANDRA_LOG_LEVEL", "error")
	cfg, err := LoadConfigFile(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestReloadConfig(t *testing.T) {
	saved := Config
	t.Cleanup(func() { Config = saved })

	require.NoError(t, ReloadConfig(writeConfig(t, "server:\n  mode: debug\n")))
	assert.Equal(t, "debug", Config.Server.Mode)

	assert.Error(t, ReloadConfig(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Equal(t, "debug", Config.Server.Mode)
}
