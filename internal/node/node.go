package node

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nosan/embedded-cassandra-sub005/internal/customizer"
	"github.com/nosan/embedded-cassandra-sub005/internal/distribution"
	"github.com/nosan/embedded-cassandra-sub005/internal/env"
	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/ports"
	"github.com/nosan/embedded-cassandra-sub005/internal/proc"
	"github.com/nosan/embedded-cassandra-sub005/internal/settings"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

// Options describe a node. Name, Version and Provider are required.
type Options struct {
	Name      string
	Version   version.Version
	Provider  distribution.Provider
	Builder   *settings.Builder
	Pipeline  *customizer.Pipeline
	Allocator *ports.Allocator
}

// startAttempt is shared by every Start call made while the node is STARTING.
type startAttempt struct {
	done    chan struct{}
	err     error
	killErr error
	cancel  context.CancelFunc
}

/**
 * Node is one managed server process and its lifecycle state
 * @property {string} name - Node name, unique within a manager
 * @property {models.State} state - Lifecycle state, guarded by mu
 * @property {*startAttempt} attempt - Outcome shared by concurrent Start callers
 * @property {*proc.ProcessInstance} process - Current process, nil when none was spawned
 */
type Node struct {
	name      string
	version   version.Version
	provider  distribution.Provider
	builder   *settings.Builder
	pipeline  *customizer.Pipeline
	allocator *ports.Allocator

	mu            sync.Mutex
	state         models.State
	runID         string
	settings      settings.Settings
	workDir       string
	process       *proc.ProcessInstance
	attempt       *startAttempt
	stopRequested bool
	stopDone      chan struct{}
	stopErr       error
	startCount    int
	startTime     time.Time
	readyTime     time.Time
	lastExitTime  time.Time
	lastErr       error
	failures      chan error
}

func New(opts Options) (*Node, error) {
	if opts.Name == "" {
		return nil, errdefs.NewConfigError("name", "node name is required", nil)
	}
	if opts.Version.IsZero() {
		return nil, errdefs.NewConfigError("version", "server version is required", nil)
	}
	if opts.Provider == nil {
		return nil, errdefs.NewConfigError("distribution", "a distribution provider is required", nil)
	}
	if opts.Builder == nil {
		opts.Builder = settings.NewBuilder()
	}
	if opts.Pipeline == nil {
		opts.Pipeline = customizer.DefaultPipeline()
	}
	if opts.Allocator == nil {
		opts.Allocator = ports.NewAllocator()
	}
	return &Node{
		name:      opts.Name,
		version:   opts.Version,
		provider:  opts.Provider,
		builder:   opts.Builder.Clone(),
		pipeline:  opts.Pipeline,
		allocator: opts.Allocator,
		state:     models.StateNotStarted,
		failures:  make(chan error, 8),
	}, nil
}

func (n *Node) Name() string { return n.name }

func (n *Node) Version() version.Version { return n.version }

func (n *Node) State() models.State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Node) IsRunning() bool {
	return n.State() == models.StateRunning
}

// BoundSettings returns the frozen settings of the current or last run.
func (n *Node) BoundSettings() settings.Settings {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.settings
}

// WorkDir is the runtime directory of the current or last run.
func (n *Node) WorkDir() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.workDir
}

// Failures reports unexpected exits of a RUNNING node. Sends never block;
// failures are dropped when nobody reads.
func (n *Node) Failures() <-chan error {
	return n.failures
}

func (n *Node) Pid() int {
	n.mu.Lock()
	pi := n.process
	n.mu.Unlock()
	if pi == nil {
		return 0
	}
	return pi.Pid()
}

// Detail returns a snapshot for the API and node.json.
func (n *Node) Detail() models.NodeDetail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.detailLocked()
}

func (n *Node) detailLocked() models.NodeDetail {
	d := models.NodeDetail{
		Name:          n.name,
		RunID:         n.runID,
		Version:       n.version.String(),
		State:         n.state,
		WorkDir:       n.workDir,
		ListenAddress: n.settings.ListenAddress(),
		StartCount:    n.startCount,
		StartTime:     n.startTime,
		ReadyTime:     n.readyTime,
		LastExitTime:  n.lastExitTime,
	}
	if n.process != nil && n.state.Active() {
		d.Pid = n.process.Pid()
	}
	if n.lastErr != nil {
		d.LastError = n.lastErr.Error()
	}
	port := func(kind settings.PortKind) int {
		p, _ := n.settings.Port(kind)
		return int(p)
	}
	d.Ports = models.NodePorts{
		NativeTransport:    port(settings.NativeTransport),
		NativeTransportSSL: port(settings.NativeTransportSSL),
		Storage:            port(settings.Storage),
		StorageSSL:         port(settings.StorageSSL),
		RPC:                port(settings.RPC),
		JMX:                port(settings.JMX),
	}
	return d
}

/**
 * Start the node and wait until it is ready
 * @param {context.Context} ctx - Cancels the wait; the first caller's ctx also bounds the attempt
 * @returns {error} ConfigError, PortAllocationError, FileError or StartError
 * @description
 * - NOT_STARTED, FAILED: a new run is prepared and spawned
 * - STARTING: waits for the attempt already in flight and returns its outcome
 * - RUNNING, STOPPING, STOPPED: no-op returning the last attempt's outcome
 */
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	switch {
	case n.state == models.StateStarting:
		att := n.attempt
		n.mu.Unlock()
		return waitAttempt(ctx, att)
	case !n.state.Startable():
		var err error
		if n.attempt != nil {
			err = n.attempt.err
		}
		n.mu.Unlock()
		return err
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	att := &startAttempt{done: make(chan struct{}), cancel: cancel}
	n.attempt = att
	n.state = models.StateStarting
	n.stopRequested = false
	n.runID = uuid.NewString()
	n.startCount++
	n.startTime = time.Now()
	n.readyTime = time.Time{}
	n.lastErr = nil
	n.process = nil
	n.mu.Unlock()

	err := n.start(attemptCtx, att)
	cancel()

	n.mu.Lock()
	att.err = err
	n.mu.Unlock()
	close(att.done)
	return err
}

func waitAttempt(ctx context.Context, att *startAttempt) error {
	select {
	case <-att.done:
		return att.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

/**
 * Stop the node
 * @param {context.Context} ctx - A deadline shorter than the grace period shortens it
 * @returns {error} StopError only when the process could not be killed
 * @description
 * - RUNNING: SIGTERM to the process group, SIGKILL once the grace period expires
 * - STARTING: cancels the readiness wait and kills the process right away
 * - STOPPING: waits for the stop in progress
 * - NOT_STARTED, STOPPED, FAILED: no-op
 */
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	switch n.state {
	case models.StateStarting:
		n.stopRequested = true
		att := n.attempt
		n.mu.Unlock()
		att.cancel()
		if err := waitAttempt(ctx, att); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		n.mu.Lock()
		defer n.mu.Unlock()
		if att.killErr != nil {
			return errdefs.NewStopError(n.name, 0, att.killErr)
		}
		return nil
	case models.StateStopping:
		done := n.stopDone
		n.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		n.mu.Lock()
		defer n.mu.Unlock()
		return n.stopErr
	case models.StateRunning:
	default:
		n.mu.Unlock()
		return nil
	}

	pi := n.process
	n.state = models.StateStopping
	n.stopDone = make(chan struct{})
	n.stopErr = nil
	grace := n.settings.StopGracePeriod()
	n.writeSnapshotLocked()
	n.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < grace {
			grace = left
		}
	}
	err := n.stopProcess(pi, grace)

	n.mu.Lock()
	n.stopErr = err
	close(n.stopDone)
	n.mu.Unlock()
	return err
}

func (n *Node) defaultRunDir(parent string) string {
	if parent == "" {
		parent = env.RunDir()
	}
	return filepath.Join(parent, fmt.Sprintf("%s-%s", n.name, n.runID))
}
