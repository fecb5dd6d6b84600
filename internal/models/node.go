package models

import (
	"time"
)

// State is the lifecycle state of a node
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateStarting   State = "STARTING"
	StateRunning    State = "RUNNING"
	StateStopping   State = "STOPPING"
	StateStopped    State = "STOPPED"
	StateFailed     State = "FAILED"
)

// Active reports whether a process may exist in this state.
func (s State) Active() bool {
	return s == StateStarting || s == StateRunning || s == StateStopping
}

// Startable reports whether Start spawns a new process from this state.
// A STOPPED node stays stopped; Start on it is a no-op.
func (s State) Startable() bool {
	return s == StateNotStarted || s == StateFailed
}

// NodePorts lists the concrete ports a node was started with, 0 when disabled
type NodePorts struct {
	NativeTransport    int `json:"nativeTransport,omitempty"`
	NativeTransportSSL int `json:"nativeTransportSsl,omitempty"`
	Storage            int `json:"storage,omitempty"`
	StorageSSL         int `json:"storageSsl,omitempty"`
	RPC                int `json:"rpc,omitempty"`
	JMX                int `json:"jmx,omitempty"`
}

// NodeDetail is the externally visible snapshot of a node, also persisted as node.json
type NodeDetail struct {
	Name          string    `json:"name"`
	RunID         string    `json:"runId,omitempty"`
	Version       string    `json:"version"`
	State         State     `json:"state"`
	Pid           int       `json:"pid,omitempty"`
	WorkDir       string    `json:"workDir,omitempty"`
	ListenAddress string    `json:"listenAddress,omitempty"`
	Ports         NodePorts `json:"ports"`
	StartCount    int       `json:"startCount"`
	StartTime     time.Time `json:"startTime,omitempty"`
	ReadyTime     time.Time `json:"readyTime,omitempty"`
	LastExitTime  time.Time `json:"lastExitTime,omitempty"`
	LastError     string    `json:"lastError,omitempty"`
}

// NodeActionResponse is returned by start/stop endpoints
type NodeActionResponse struct {
	Name  string `json:"name"`
	State State  `json:"state"`
}
