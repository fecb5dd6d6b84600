package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nosan/embedded-cassandra-sub005/internal/distribution"
	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/settings"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

/**
 * Node definition
 * @property {string} name - Node name, used in runtime directory names and API paths
 * @property {string} version - Server version of the distribution
 * @property {string} distribution - Directory holding the extracted distribution
 * @property {map[string]int} ports - Fixed ports by kind, 0 or absent to allocate
 * @property {[]string} env - Child environment overrides as KEY=VALUE
 * @property {[]string} systemProperties - JVM system properties as key=value
 * @property {map[string]any} configProperties - cassandra.yaml overrides, nested maps become dotted keys
 */
type NodeConfig struct {
	Name                string         `mapstructure:"name" validate:"required,nodename"`
	Version             string         `mapstructure:"version" validate:"required"`
	Distribution        string         `mapstructure:"distribution" validate:"required"`
	Platform            string         `mapstructure:"platform" validate:"omitempty,oneof=unix windows"`
	WorkDir             string         `mapstructure:"work_dir"`
	DeleteWorkDirOnStop bool           `mapstructure:"delete_work_dir_on_stop"`
	ListenAddress       string         `mapstructure:"listen_address" validate:"omitempty,ip|hostname"`
	BroadcastAddress    string         `mapstructure:"broadcast_address" validate:"omitempty,ip|hostname"`
	RPCAddress          string         `mapstructure:"rpc_address" validate:"omitempty,ip|hostname"`
	Ports               map[string]int `mapstructure:"ports" validate:"dive,keys,oneof=native_transport_port native_transport_port_ssl storage_port ssl_storage_port rpc_port jmx_port,endkeys,gte=0,lte=65535"`
	NativeTransportSSL  bool           `mapstructure:"native_transport_ssl"`
	StorageSSL          bool           `mapstructure:"storage_ssl"`
	RPC                 bool           `mapstructure:"rpc"`
	JVMOptions          []string       `mapstructure:"jvm_options" validate:"dive,required"`
	SystemProperties    []string       `mapstructure:"system_properties" validate:"dive,required"`
	ConfigProperties    map[string]any `mapstructure:"config_properties"`
	Env                 []string       `mapstructure:"env" validate:"dive,required"`
	StartupTimeout      time.Duration  `mapstructure:"startup_timeout" validate:"gte=0"`
	StopGracePeriod     time.Duration  `mapstructure:"stop_grace_period" validate:"gte=0"`
	ProbePorts          *bool          `mapstructure:"probe_ports"`
	ReadyPatterns       []string       `mapstructure:"ready_patterns" validate:"dive,required,regexp"`
	FatalPatterns       []string       `mapstructure:"fatal_patterns" validate:"dive,required,regexp"`
}

// Validate checks the definition without touching the disk.
func (n *NodeConfig) Validate() error {
	if err := settings.ValidateStruct(n); err != nil {
		return err
	}
	if _, err := n.ParsedVersion(); err != nil {
		return errdefs.NewConfigError("version", err.Error(), err)
	}
	for i, kv := range n.SystemProperties {
		if _, _, err := splitPair(kv); err != nil {
			return errdefs.NewConfigError(fmt.Sprintf("system_properties[%d]", i), err.Error(), err)
		}
	}
	for i, kv := range n.Env {
		if _, _, err := splitPair(kv); err != nil {
			return errdefs.NewConfigError(fmt.Sprintf("env[%d]", i), err.Error(), err)
		}
	}
	return nil
}

func (n *NodeConfig) ParsedVersion() (version.Version, error) {
	return version.Parse(n.Version)
}

// Provider serves the configured distribution directory.
func (n *NodeConfig) Provider() distribution.Directory {
	return distribution.Directory{Path: n.Distribution, Platform: models.Platform(n.Platform)}
}

/**
 * Convert the definition into a settings builder
 * @returns {*settings.Builder} Builder with every configured value applied
 * @returns {error} ConfigError for malformed key=value entries
 * @description
 * - Durations left at 0 keep the builder defaults
 * - Ports set to 0 stay unset so the allocator picks them
 */
func (n *NodeConfig) Builder() (*settings.Builder, error) {
	b := settings.NewBuilder().
		ListenAddress(n.ListenAddress).
		BroadcastAddress(n.BroadcastAddress).
		RPCAddress(n.RPCAddress).
		NativeTransportSSL(n.NativeTransportSSL).
		StorageSSL(n.StorageSSL).
		RPC(n.RPC).
		JVMOptions(n.JVMOptions...).
		WorkDir(n.WorkDir).
		DeleteWorkDirOnStop(n.DeleteWorkDirOnStop).
		ReadyPatterns(n.ReadyPatterns...).
		FatalPatterns(n.FatalPatterns...)

	for kind, port := range n.Ports {
		if port > 0 {
			b.Port(settings.PortKind(kind), uint16(port))
		}
	}
	for i, kv := range n.SystemProperties {
		k, v, err := splitPair(kv)
		if err != nil {
			return nil, errdefs.NewConfigError(fmt.Sprintf("system_properties[%d]", i), err.Error(), err)
		}
		b.SystemProperty(k, v)
	}
	for i, kv := range n.Env {
		k, v, err := splitPair(kv)
		if err != nil {
			return nil, errdefs.NewConfigError(fmt.Sprintf("env[%d]", i), err.Error(), err)
		}
		b.Env(k, v)
	}
	props := flattenProperties("", n.ConfigProperties, map[string]any{})
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.ConfigProperty(k, props[k])
	}
	if n.StartupTimeout > 0 {
		b.StartupTimeout(n.StartupTimeout)
	}
	if n.StopGracePeriod > 0 {
		b.StopGracePeriod(n.StopGracePeriod)
	}
	if n.ProbePorts != nil {
		b.ProbePorts(*n.ProbePorts)
	}
	return b, nil
}

func splitPair(kv string) (string, string, error) {
	k, v, ok := strings.Cut(kv, "=")
	if !ok || k == "" {
		return "", "", fmt.Errorf("'%s' is not in key=value form", kv)
	}
	return k, v, nil
}

// flattenProperties turns nested mappings into dotted keys. Sequences are
// kept whole.
func flattenProperties(prefix string, in map[string]any, out map[string]any) map[string]any {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch nested := v.(type) {
		case map[string]any:
			flattenProperties(key, nested, out)
		case map[any]any:
			m := make(map[string]any, len(nested))
			for nk, nv := range nested {
				m[fmt.Sprint(nk)] = nv
			}
			flattenProperties(key, m, out)
		default:
			out[key] = v
		}
	}
	return out
}
