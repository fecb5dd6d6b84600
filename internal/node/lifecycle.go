package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nosan/embedded-cassandra-sub005/internal/customizer"
	"github.com/nosan/embedded-cassandra-sub005/internal/distribution"
	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
	"github.com/nosan/embedded-cassandra-sub005/internal/metrics"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/proc"
	"github.com/nosan/embedded-cassandra-sub005/internal/readiness"
	"github.com/nosan/embedded-cassandra-sub005/internal/settings"
	"github.com/nosan/embedded-cassandra-sub005/internal/utils"
)

// SnapshotFile is written into the runtime directory on every transition.
const SnapshotFile = "node.json"

const reasonStopped = "stopped during startup"

/**
 * Run one start attempt from port allocation to readiness
 * @param {context.Context} ctx - Canceled by Stop or by the first caller
 * @param {*startAttempt} att - Attempt record shared with concurrent callers
 * @returns {error} nil once RUNNING
 * @description
 * - Allocate ports, freeze settings, copy the distribution, run the customizers
 * - Spawn the launch script and wait for the readiness outcome
 * - Any outcome other than ready kills the process group before returning
 */
func (n *Node) start(ctx context.Context, att *startAttempt) error {
	b := n.builder.Clone()
	if err := n.allocator.Allocate(ctx, n.runID, b, n.version); err != nil {
		return n.abort(att, nil, err)
	}
	s, err := b.Freeze(n.version)
	if err != nil {
		return n.abort(att, nil, err)
	}
	workDir := n.defaultRunDir(s.WorkDir())
	n.mu.Lock()
	n.settings = s
	n.workDir = workDir
	n.mu.Unlock()

	dist, err := n.provider.Get(ctx, n.version)
	if err != nil {
		return n.abort(att, nil, n.startError("distribution unavailable", err))
	}
	if err := distribution.Prepare(ctx, dist, workDir); err != nil {
		return n.abort(att, nil, n.startError("failed to prepare runtime directory", err))
	}
	c := customizer.Context{Version: n.version, Platform: dist.Platform, Settings: s}
	if err := n.pipeline.Apply(ctx, workDir, c); err != nil {
		return n.abort(att, nil, err)
	}

	markers, err := readiness.DefaultMarkers(n.version).Override(s.ReadyPatterns(), s.FatalPatterns())
	if err != nil {
		return n.abort(att, nil, errdefs.NewConfigError("markers", err.Error(), err))
	}

	command, args := dist.Command(workDir, utils.IsPrivileged())
	pi := proc.NewProcessInstance(n.name, command, args)
	pi.WorkDir = workDir
	pi.Env = utils.MergeEnv(childEnv(s))
	nodeLog := logger.WithNode(n.name)
	pi.SetWatcher(func(line string) { nodeLog.Debug().Msg(line) }, n.onExit)

	n.mu.Lock()
	if n.stopRequested || ctx.Err() != nil {
		n.mu.Unlock()
		return n.abort(att, nil, context.Canceled)
	}
	if err := pi.StartProcess(); err != nil {
		n.mu.Unlock()
		return n.abort(att, nil, errdefs.NewStartError(n.name, "failed to spawn launch script", nil, err))
	}
	n.process = pi
	n.writeSnapshotLocked()
	n.mu.Unlock()

	det := readiness.Detector{Markers: markers, ProbeHost: s.ProbeHost()}
	if s.ProbePorts() {
		det.ProbePorts = clientPorts(s)
	}
	waitCtx, cancel := context.WithTimeout(ctx, s.StartupTimeout())
	res := det.Wait(waitCtx, pi.Lines(), pi.Exited())
	cancel()
	pi.Drain()

	if res.Outcome == readiness.Ready {
		n.mu.Lock()
		exited := false
		select {
		case <-pi.Exited():
			exited = true
		default:
		}
		if !n.stopRequested && !exited {
			n.state = models.StateRunning
			n.readyTime = time.Now()
			elapsed := n.readyTime.Sub(n.startTime)
			n.writeSnapshotLocked()
			n.mu.Unlock()
			metrics.RecordStart(n.name, string(readiness.Ready), elapsed.Seconds())
			logger.Infof("Node '%s' (%s, PID: %d) is running after %v", n.name, n.version, pi.Pid(), elapsed.Round(time.Millisecond))
			return nil
		}
		n.mu.Unlock()
		if exited {
			res = readiness.Result{Outcome: readiness.Failed, Line: res.Line, Err: readiness.ErrExited}
		} else {
			res = readiness.Result{Outcome: readiness.Canceled, Err: context.Canceled}
		}
	}

	return n.abort(att, pi, errdefs.NewStartError(n.name, n.reason(res, s), pi.Tail(), res.Err))
}

// startError wraps a failure before spawn, reporting a Stop that caused it as such.
func (n *Node) startError(reason string, err error) error {
	n.mu.Lock()
	if n.stopRequested {
		reason = reasonStopped
	}
	n.mu.Unlock()
	return errdefs.NewStartError(n.name, reason, nil, err)
}

func (n *Node) reason(res readiness.Result, s settings.Settings) string {
	switch res.Outcome {
	case readiness.TimedOut:
		return fmt.Sprintf("not ready within %v", s.StartupTimeout())
	case readiness.Canceled:
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.stopRequested {
			return reasonStopped
		}
		return "startup canceled"
	default:
		if errors.Is(res.Err, readiness.ErrExited) {
			return "process exited before it became ready"
		}
		return "server reported a fatal error"
	}
}

// abort kills pi if it was spawned, releases the ports and records the
// terminal state: STOPPED when Stop asked for it, FAILED otherwise.
func (n *Node) abort(att *startAttempt, pi *proc.ProcessInstance, err error) error {
	var killErr error
	if pi != nil {
		if kerr := pi.KillProcess(); kerr != nil {
			killErr = kerr
		}
	}
	n.allocator.Release(n.runID)

	n.mu.Lock()
	stopped := n.stopRequested
	if stopped && !isTyped(err) {
		err = errdefs.NewStartError(n.name, reasonStopped, nil, err)
	}
	att.killErr = killErr
	if pi != nil {
		n.lastExitTime = time.Now()
	}
	if stopped {
		n.state = models.StateStopped
	} else {
		n.state = models.StateFailed
	}
	n.lastErr = err
	n.writeSnapshotLocked()
	n.mu.Unlock()

	outcome := "failed"
	var startErr *errdefs.StartError
	if errors.As(err, &startErr) {
		switch {
		case stopped:
			outcome = string(readiness.Canceled)
		case strings.HasPrefix(startErr.Reason, "not ready within"):
			outcome = string(readiness.TimedOut)
		}
	}
	metrics.RecordStart(n.name, outcome, 0)
	if stopped {
		logger.Infof("Node '%s' start aborted by stop", n.name)
	} else {
		logger.Errorf("Node '%s' failed to start: %v", n.name, err)
	}
	if killErr != nil {
		logger.Errorf("Node '%s' process could not be killed: %v", n.name, killErr)
	}
	return err
}

func isTyped(err error) bool {
	var startErr *errdefs.StartError
	var fileErr *errdefs.FileError
	var cfgErr *errdefs.ConfigError
	var portErr *errdefs.PortAllocationError
	return errors.As(err, &startErr) || errors.As(err, &fileErr) ||
		errors.As(err, &cfgErr) || errors.As(err, &portErr)
}

func (n *Node) stopProcess(pi *proc.ProcessInstance, grace time.Duration) error {
	forced, err := pi.StopProcess(grace)
	n.allocator.Release(n.runID)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastExitTime = time.Now()
	if err != nil && !errors.Is(err, proc.ErrNotStarted) {
		stopErr := errdefs.NewStopError(n.name, pi.Pid(), err)
		n.state = models.StateFailed
		n.lastErr = stopErr
		n.writeSnapshotLocked()
		logger.Errorf("Node '%s' could not be stopped: %v", n.name, err)
		return stopErr
	}

	n.state = models.StateStopped
	mode := "graceful"
	if forced {
		mode = "forced"
	}
	metrics.RecordStop(n.name, mode, true)
	n.writeSnapshotLocked()
	logger.Infof("Node '%s' stopped (%s)", n.name, mode)

	if n.settings.DeleteWorkDirOnStop() && n.workDir != "" {
		if err := os.RemoveAll(n.workDir); err != nil {
			logger.Warnf("Node '%s' failed to delete %s: %v", n.name, n.workDir, err)
		}
	}
	return nil
}

// onExit runs on the process watcher goroutine. Only exits of a RUNNING
// node are unexpected; the others are handled by Start and Stop.
func (n *Node) onExit(pi *proc.ProcessInstance) {
	n.mu.Lock()
	if n.process != pi || n.state != models.StateRunning {
		n.mu.Unlock()
		return
	}
	exitErr := pi.ExitErr()
	if exitErr == nil {
		exitErr = errors.New("exit status 0")
	}
	err := fmt.Errorf("node '%s' exited unexpectedly: %w", n.name, exitErr)
	n.state = models.StateFailed
	n.lastErr = err
	n.lastExitTime = time.Now()
	n.writeSnapshotLocked()
	n.mu.Unlock()

	// the leader is gone but the server may still live in its group
	if err := utils.KillGroup(pi.Pid()); err != nil {
		logger.Warnf("Node '%s' leftover processes could not be killed: %v", n.name, err)
	}
	n.allocator.Release(n.runID)
	metrics.RecordUnexpectedExit(n.name)
	logger.Errorf("%v", err)
	select {
	case n.failures <- err:
	default:
	}
}

// writeSnapshotLocked saves the node detail as node.json. Caller holds mu.
func (n *Node) writeSnapshotLocked() {
	if n.workDir == "" {
		return
	}
	if _, err := os.Stat(n.workDir); err != nil {
		return
	}
	data, err := json.MarshalIndent(n.detailLocked(), "", "  ")
	if err != nil {
		logger.Errorf("Node [%s] save info failed, error: %v", n.name, err)
		return
	}
	if err := os.WriteFile(filepath.Join(n.workDir, SnapshotFile), data, 0644); err != nil {
		logger.Errorf("Node [%s] save info failed, error: %v", n.name, err)
	}
}

// childEnv is the caller's overrides plus JVM_EXTRA_OPTS carrying JVM options
// and system properties, appended to any JVM_EXTRA_OPTS override.
func childEnv(s settings.Settings) map[string]string {
	env := s.Env()
	if extra := s.JVMExtraOpts(); len(extra) > 0 {
		opts := strings.Join(extra, " ")
		if existing := env["JVM_EXTRA_OPTS"]; existing != "" {
			opts = existing + " " + opts
		}
		env["JVM_EXTRA_OPTS"] = opts
	}
	return env
}

// clientPorts are the ports clients connect to and the probe waits for.
func clientPorts(s settings.Settings) []int {
	var out []int
	for _, kind := range []settings.PortKind{settings.NativeTransport, settings.NativeTransportSSL, settings.RPC} {
		if p, ok := s.Port(kind); ok {
			out = append(out, int(p))
		}
	}
	return out
}
