package settings

import (
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

// PortKind names a port slot. Except for JMX, the value is the cassandra.yaml key.
type PortKind string

const (
	NativeTransport    PortKind = "native_transport_port"
	NativeTransportSSL PortKind = "native_transport_port_ssl"
	Storage            PortKind = "storage_port"
	StorageSSL         PortKind = "ssl_storage_port"
	RPC                PortKind = "rpc_port"
	JMX                PortKind = "jmx_port"
)

// AllPortKinds in a stable order.
var AllPortKinds = []PortKind{NativeTransport, NativeTransportSSL, Storage, StorageSSL, RPC, JMX}

// Thrift was removed in 4.0
var rpcUnsupportedSince = version.New(4, 0)

// RPCSupported reports whether the server version still ships the Thrift RPC endpoint.
func RPCSupported(v version.Version) bool {
	return v.Less(rpcUnsupportedSince)
}

// requiredPorts lists the kinds the enabled feature set needs, in AllPortKinds order.
func requiredPorts(nativeSSL, storageSSL, rpc bool, v version.Version) []PortKind {
	kinds := []PortKind{NativeTransport}
	if nativeSSL {
		kinds = append(kinds, NativeTransportSSL)
	}
	kinds = append(kinds, Storage)
	if storageSSL {
		kinds = append(kinds, StorageSSL)
	}
	if rpc && RPCSupported(v) {
		kinds = append(kinds, RPC)
	}
	return append(kinds, JMX)
}
