package proc

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
	"github.com/nosan/embedded-cassandra-sub005/internal/utils"
)

// DefaultLineBuffer bounds the output channel; a slow reader stalls the child.
const DefaultLineBuffer = 256

var ErrNotStarted = errors.New("process not started")

/**
 * ProcessInstance is one spawned server process
 * @property {string} Title - Display name used in logs
 * @property {string} Command - Executable
 * @property {[]string} Args - Arguments
 * @property {string} WorkDir - Working directory of the child
 * @property {[]string} Env - Complete environment of the child
 * @property {time.Time} StartTime - Spawn time
 * @property {time.Time} ExitTime - Time the exit was observed
 */
type ProcessInstance struct {
	Title     string
	Command   string
	Args      []string
	WorkDir   string
	Env       []string
	StartTime time.Time
	ExitTime  time.Time

	onLine   func(string)
	onExit   func(*ProcessInstance)
	tail     *Tail
	lines    chan string
	exited   chan struct{}
	exitErr  error
	process  *os.Process
	drain    sync.Once
	mutex    sync.Mutex
	started  bool
	bufLines int
}

// NewProcessInstance prepares a process; nothing runs until StartProcess.
func NewProcessInstance(title, command string, args []string) *ProcessInstance {
	return &ProcessInstance{
		Title:    title,
		Command:  command,
		Args:     args,
		tail:     NewTail(DefaultTailLines),
		exited:   make(chan struct{}),
		bufLines: DefaultLineBuffer,
	}
}

// SetWatcher registers callbacks: onLine for every output line, before it is
// published, and onExit once the process has been reaped.
func (pi *ProcessInstance) SetWatcher(onLine func(string), onExit func(*ProcessInstance)) {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	pi.onLine = onLine
	pi.onExit = onExit
}

func (pi *ProcessInstance) Pid() int {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	if pi.process == nil {
		return 0
	}
	return pi.process.Pid
}

/**
 * Spawn the process
 * @returns {error} Spawn error, or an error when called twice
 * @description
 * - The child gets its own process group
 * - Stdout and stderr share one pipe so their interleaving is kept
 * - A pump goroutine publishes lines on Lines(); a watcher goroutine reaps the child
 */
func (pi *ProcessInstance) StartProcess() error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.started {
		return fmt.Errorf("process '%s' already started", pi.Title)
	}
	logger.Infof("Executing command: %s %s", pi.Command, strings.Join(pi.Args, " "))

	cmd := exec.Command(pi.Command, pi.Args...)
	cmd.Dir = pi.WorkDir
	cmd.Env = pi.Env
	utils.SetNewPG(cmd)

	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create output pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		logger.Errorf("Failed to start process '%s', error: %v", pi.Title, err)
		return err
	}
	// the child holds its own copy of the write end
	w.Close()

	pi.started = true
	pi.process = cmd.Process
	pi.StartTime = time.Now()
	pi.lines = make(chan string, pi.bufLines)
	logger.Infof("Process '%s' started (PID: %d)", pi.Title, cmd.Process.Pid)

	go pi.pump(r, pi.onLine)
	go pi.watchProcess(cmd)
	return nil
}

func (pi *ProcessInstance) pump(r *os.File, onLine func(string)) {
	defer close(pi.lines)
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		pi.tail.Add(line)
		if onLine != nil {
			onLine(line)
		}
		pi.lines <- line
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Warnf("Output of '%s' ended with error: %v", pi.Title, err)
	}
}

func (pi *ProcessInstance) watchProcess(cmd *exec.Cmd) {
	err := cmd.Wait()

	pi.mutex.Lock()
	pi.exitErr = err
	pi.ExitTime = time.Now()
	onExit := pi.onExit
	pi.mutex.Unlock()

	if err != nil {
		logger.Infof("Process '%s' (PID: %d) exited: %v", pi.Title, cmd.Process.Pid, err)
	} else {
		logger.Infof("Process '%s' (PID: %d) exited normally", pi.Title, cmd.Process.Pid)
	}
	close(pi.exited)
	if onExit != nil {
		onExit(pi)
	}
}

// Lines streams combined output in order; closed at EOF. Nil before start.
func (pi *ProcessInstance) Lines() <-chan string {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.lines
}

// Exited is closed once the process has been reaped.
func (pi *ProcessInstance) Exited() <-chan struct{} {
	return pi.exited
}

// ExitErr is the reap result; only meaningful after Exited is closed.
func (pi *ProcessInstance) ExitErr() error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.exitErr
}

// Tail returns the most recent output lines.
func (pi *ProcessInstance) Tail() []string {
	return pi.tail.Lines()
}

// Drain discards remaining output in the background so the child never
// blocks on a full pipe once nobody reads Lines().
func (pi *ProcessInstance) Drain() {
	lines := pi.Lines()
	if lines == nil {
		return
	}
	pi.drain.Do(func() {
		go func() {
			for range lines {
			}
		}()
	})
}

/**
 * Stop the process group
 * @param {time.Duration} grace - How long to wait after SIGTERM
 * @returns {bool} forced - true when SIGKILL was needed
 * @returns {error} Error only when the forced kill failed
 */
func (pi *ProcessInstance) StopProcess(grace time.Duration) (bool, error) {
	pid := pi.Pid()
	if pid == 0 {
		return false, ErrNotStarted
	}
	select {
	case <-pi.exited:
		return false, nil
	default:
	}

	if grace > 0 {
		if err := utils.TerminateGroup(pid); err != nil {
			logger.Warnf("Failed to terminate process '%s' (PID: %d): %v", pi.Title, pid, err)
		} else {
			timer := time.NewTimer(grace)
			defer timer.Stop()
			select {
			case <-pi.exited:
				return false, nil
			case <-timer.C:
				logger.Warnf("Process '%s' (PID: %d) did not exit within %v, killing it", pi.Title, pid, grace)
			}
		}
	}
	return true, pi.KillProcess()
}

// KillProcess sends SIGKILL to the group and waits for the reap.
func (pi *ProcessInstance) KillProcess() error {
	pid := pi.Pid()
	if pid == 0 {
		return ErrNotStarted
	}
	if err := utils.KillGroup(pid); err != nil {
		select {
		case <-pi.exited:
			return nil
		default:
		}
		logger.Errorf("Failed to kill process '%s' (PID: %d): %v", pi.Title, pid, err)
		return err
	}
	select {
	case <-pi.exited:
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("process '%s' (PID: %d) still running after kill", pi.Title, pid)
	}
}
