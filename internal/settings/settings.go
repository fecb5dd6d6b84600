package settings

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

// values is the validated shape shared by Validate and the frozen Settings.
type values struct {
	ListenAddress    string `validate:"omitempty,ip|hostname"`
	BroadcastAddress string `validate:"omitempty,ip|hostname"`
	RPCAddress       string `validate:"omitempty,ip|hostname"`

	Ports map[PortKind]uint16

	NativeTransportSSL bool
	StorageSSL         bool
	RPC                bool

	JVMOptions       []string          `validate:"dive,required"`
	SystemProperties []Property        `validate:"dive"`
	ConfigProperties map[string]any    `validate:"dive,keys,required,endkeys"`
	Env              map[string]string `validate:"dive,keys,envkey,endkeys"`

	WorkDir             string
	DeleteWorkDirOnStop bool
	StartupTimeout      time.Duration `validate:"gt=0"`
	StopGracePeriod     time.Duration `validate:"gte=0"`
	ProbePorts          bool
	ReadyPatterns       []string `validate:"dive,required,regexp"`
	FatalPatterns       []string `validate:"dive,required,regexp"`
}

func (b *Builder) values(v version.Version) values {
	return values{
		ListenAddress:       b.listenAddress,
		BroadcastAddress:    b.broadcastAddress,
		RPCAddress:          b.rpcAddress,
		Ports:               maps.Clone(b.ports),
		NativeTransportSSL:  b.nativeTransportSSL,
		StorageSSL:          b.storageSSL,
		RPC:                 b.rpc && RPCSupported(v),
		JVMOptions:          slices.Clone(b.jvmOptions),
		SystemProperties:    slices.Clone(b.systemProperties),
		ConfigProperties:    maps.Clone(b.configProperties),
		Env:                 maps.Clone(b.env),
		WorkDir:             b.workDir,
		DeleteWorkDirOnStop: b.deleteWorkDirOnStop,
		StartupTimeout:      b.startupTimeout,
		StopGracePeriod:     b.stopGracePeriod,
		ProbePorts:          b.probePorts,
		ReadyPatterns:       slices.Clone(b.readyPatterns),
		FatalPatterns:       slices.Clone(b.fatalPatterns),
	}
}

/**
 * Validate builder state against a server version
 * @param {version.Version} v - Version the node will run
 * @returns {error} ConfigError on the first problem found
 * @description
 * - Struct rules: address formats, positive startup timeout, env and property keys
 * - Every port required by the enabled features must be set and in [1, 65535]
 * - Concrete ports of enabled features must be pairwise distinct
 */
func (b *Builder) Validate(v version.Version) error {
	if v.IsZero() {
		return errdefs.NewConfigError("version", "server version is required", nil)
	}
	vals := b.values(v)
	if err := GetValidator().Struct(vals); err != nil {
		return convertValidationError(err)
	}
	seen := make(map[uint16]PortKind)
	for _, kind := range b.RequiredPorts(v) {
		port, ok := b.ports[kind]
		if !ok {
			return errdefs.NewConfigError(string(kind), "port is required but not set", nil)
		}
		if port == 0 {
			return errdefs.NewConfigError(string(kind), "port must be in [1, 65535]", nil)
		}
		if other, dup := seen[port]; dup {
			return errdefs.NewConfigError(string(kind), fmt.Sprintf("port %d already used by %s", port, other), nil)
		}
		seen[port] = kind
	}
	return nil
}

// Freeze validates and returns an immutable snapshot. Ports of disabled
// features are dropped from the snapshot.
func (b *Builder) Freeze(v version.Version) (Settings, error) {
	if err := b.Validate(v); err != nil {
		return Settings{}, err
	}
	vals := b.values(v)
	required := b.RequiredPorts(v)
	vals.Ports = make(map[PortKind]uint16, len(required))
	for _, kind := range required {
		vals.Ports[kind] = b.ports[kind]
	}
	return Settings{v: vals, version: v, required: required}, nil
}

// Settings is the frozen configuration retained by a node. Accessors return copies.
type Settings struct {
	v        values
	version  version.Version
	required []PortKind
}

func (s Settings) Version() version.Version { return s.version }
func (s Settings) ListenAddress() string    { return s.v.ListenAddress }
func (s Settings) BroadcastAddress() string { return s.v.BroadcastAddress }
func (s Settings) RPCAddress() string       { return s.v.RPCAddress }

// Port returns the concrete port for kind; ok is false when the feature is disabled.
func (s Settings) Port(kind PortKind) (uint16, bool) {
	p, ok := s.v.Ports[kind]
	return p, ok
}

// Ports returns the concrete ports in AllPortKinds order.
func (s Settings) Ports() []uint16 {
	out := make([]uint16, 0, len(s.required))
	for _, kind := range s.required {
		out = append(out, s.v.Ports[kind])
	}
	return out
}

// RequiredPorts lists the enabled port kinds.
func (s Settings) RequiredPorts() []PortKind { return slices.Clone(s.required) }

func (s Settings) NativeTransportSSL() bool { return s.v.NativeTransportSSL }
func (s Settings) StorageSSL() bool         { return s.v.StorageSSL }

// RPC reports whether Thrift is effectively enabled (requested and supported).
func (s Settings) RPC() bool { return s.v.RPC }

func (s Settings) JVMOptions() []string             { return slices.Clone(s.v.JVMOptions) }
func (s Settings) SystemProperties() []Property     { return slices.Clone(s.v.SystemProperties) }
func (s Settings) ConfigProperties() map[string]any { return maps.Clone(s.v.ConfigProperties) }
func (s Settings) Env() map[string]string           { return maps.Clone(s.v.Env) }
func (s Settings) WorkDir() string                  { return s.v.WorkDir }
func (s Settings) DeleteWorkDirOnStop() bool        { return s.v.DeleteWorkDirOnStop }
func (s Settings) StartupTimeout() time.Duration    { return s.v.StartupTimeout }
func (s Settings) StopGracePeriod() time.Duration   { return s.v.StopGracePeriod }
func (s Settings) ProbePorts() bool                 { return s.v.ProbePorts }
func (s Settings) ReadyPatterns() []string          { return slices.Clone(s.v.ReadyPatterns) }
func (s Settings) FatalPatterns() []string          { return slices.Clone(s.v.FatalPatterns) }

// ConfigKeys returns the override keys sorted, for deterministic patching.
func (s Settings) ConfigKeys() []string {
	keys := make([]string, 0, len(s.v.ConfigProperties))
	for k := range s.v.ConfigProperties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ProbeHost is the address clients connect to.
func (s Settings) ProbeHost() string {
	switch {
	case s.v.RPCAddress != "" && s.v.RPCAddress != "0.0.0.0":
		return s.v.RPCAddress
	case s.v.ListenAddress != "" && s.v.ListenAddress != "0.0.0.0":
		return s.v.ListenAddress
	default:
		return "127.0.0.1"
	}
}

// JVMExtraOpts renders JVM options followed by -D system properties, as passed in JVM_EXTRA_OPTS.
func (s Settings) JVMExtraOpts() []string {
	out := slices.Clone(s.v.JVMOptions)
	for _, p := range s.v.SystemProperties {
		out = append(out, fmt.Sprintf("-D%s=%s", p.Key, p.Value))
	}
	return out
}
