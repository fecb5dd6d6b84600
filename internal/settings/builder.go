package settings

import (
	"maps"
	"slices"
	"time"

	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

const (
	DefaultStartupTimeout  = 2 * time.Minute
	DefaultStopGracePeriod = 30 * time.Second
)

// Property is one ordered -Dkey=value system property.
type Property struct {
	Key   string `validate:"required,propkey"`
	Value string
}

// Customize mutates a builder before it is frozen.
type Customize func(*Builder)

// Builder collects node settings. It is not safe for concurrent use; the
// port allocator and Freeze are the only readers once a node is created.
type Builder struct {
	listenAddress    string
	broadcastAddress string
	rpcAddress       string

	ports map[PortKind]uint16

	nativeTransportSSL bool
	storageSSL         bool
	rpc                bool

	jvmOptions       []string
	systemProperties []Property
	configProperties map[string]any
	env              map[string]string

	workDir             string
	deleteWorkDirOnStop bool
	startupTimeout      time.Duration
	stopGracePeriod     time.Duration
	probePorts          bool
	readyPatterns       []string
	fatalPatterns       []string
}

// NewBuilder returns a builder with the default timeouts and nothing else set.
func NewBuilder() *Builder {
	return &Builder{
		ports:            map[PortKind]uint16{},
		configProperties: map[string]any{},
		env:              map[string]string{},
		startupTimeout:   DefaultStartupTimeout,
		stopGracePeriod:  DefaultStopGracePeriod,
		probePorts:       true,
	}
}

func (b *Builder) ListenAddress(addr string) *Builder    { b.listenAddress = addr; return b }
func (b *Builder) BroadcastAddress(addr string) *Builder { b.broadcastAddress = addr; return b }
func (b *Builder) RPCAddress(addr string) *Builder       { b.rpcAddress = addr; return b }

// Port fixes a port. Fixed ports are never changed by the allocator.
func (b *Builder) Port(kind PortKind, port uint16) *Builder {
	b.ports[kind] = port
	return b
}

// ClearPort removes a fixed or allocated port.
func (b *Builder) ClearPort(kind PortKind) *Builder {
	delete(b.ports, kind)
	return b
}

// GetPort returns the port for kind and whether it is set.
func (b *Builder) GetPort(kind PortKind) (uint16, bool) {
	p, ok := b.ports[kind]
	return p, ok
}

func (b *Builder) NativeTransportSSL(enabled bool) *Builder { b.nativeTransportSSL = enabled; return b }
func (b *Builder) StorageSSL(enabled bool) *Builder         { b.storageSSL = enabled; return b }

// RPC requests the Thrift endpoint. It only takes effect for versions below 4.0.
func (b *Builder) RPC(enabled bool) *Builder { b.rpc = enabled; return b }

// JVMOptions appends options in order.
func (b *Builder) JVMOptions(opts ...string) *Builder {
	b.jvmOptions = append(b.jvmOptions, opts...)
	return b
}

// SystemProperty appends -Dkey=value, replacing an earlier entry with the same key in place.
func (b *Builder) SystemProperty(key, value string) *Builder {
	for i := range b.systemProperties {
		if b.systemProperties[i].Key == key {
			b.systemProperties[i].Value = value
			return b
		}
	}
	b.systemProperties = append(b.systemProperties, Property{Key: key, Value: value})
	return b
}

// ConfigProperty overrides a cassandra.yaml key. Dotted keys address nested mappings.
func (b *Builder) ConfigProperty(key string, value any) *Builder {
	b.configProperties[key] = value
	return b
}

// Env sets an environment override for the child process.
func (b *Builder) Env(key, value string) *Builder {
	b.env[key] = value
	return b
}

func (b *Builder) WorkDir(dir string) *Builder { b.workDir = dir; return b }

func (b *Builder) DeleteWorkDirOnStop(enabled bool) *Builder {
	b.deleteWorkDirOnStop = enabled
	return b
}

func (b *Builder) StartupTimeout(d time.Duration) *Builder  { b.startupTimeout = d; return b }
func (b *Builder) StopGracePeriod(d time.Duration) *Builder { b.stopGracePeriod = d; return b }

// ProbePorts toggles the TCP probe that follows the ready marker.
func (b *Builder) ProbePorts(enabled bool) *Builder { b.probePorts = enabled; return b }

// ReadyPatterns replaces the default ready markers.
func (b *Builder) ReadyPatterns(patterns ...string) *Builder {
	b.readyPatterns = slices.Clone(patterns)
	return b
}

// FatalPatterns replaces the default fatal markers.
func (b *Builder) FatalPatterns(patterns ...string) *Builder {
	b.fatalPatterns = slices.Clone(patterns)
	return b
}

// Apply runs customize callbacks in order.
func (b *Builder) Apply(fns ...Customize) *Builder {
	for _, fn := range fns {
		if fn != nil {
			fn(b)
		}
	}
	return b
}

// RequiredPorts lists the port kinds the enabled features need for v.
func (b *Builder) RequiredPorts(v version.Version) []PortKind {
	return requiredPorts(b.nativeTransportSSL, b.storageSSL, b.rpc, v)
}

// Clone returns a deep copy.
func (b *Builder) Clone() *Builder {
	c := *b
	c.ports = maps.Clone(b.ports)
	c.configProperties = maps.Clone(b.configProperties)
	c.env = maps.Clone(b.env)
	c.jvmOptions = slices.Clone(b.jvmOptions)
	c.systemProperties = slices.Clone(b.systemProperties)
	c.readyPatterns = slices.Clone(b.readyPatterns)
	c.fatalPatterns = slices.Clone(b.fatalPatterns)
	return &c
}
