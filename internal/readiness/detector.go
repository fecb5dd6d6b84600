package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nosan/embedded-cassandra-sub005/internal/utils"
)

// Outcome of a startup wait
type Outcome string

const (
	Ready    Outcome = "ready"
	Failed   Outcome = "failed"
	TimedOut Outcome = "timeout"
	Canceled Outcome = "canceled"
)

// Result describes how the wait ended. Line is the marker line, if any.
type Result struct {
	Outcome Outcome
	Line    string
	Err     error
}

var ErrExited = errors.New("process exited before it became ready")

// exitDrain bounds how long lines still buffered after exit are examined.
const exitDrain = 500 * time.Millisecond

// Detector watches server output for ready or fatal markers.
type Detector struct {
	Markers       Markers
	ProbeHost     string
	ProbePorts    []int
	ProbeInterval time.Duration
}

/**
 * Wait until the server is ready, fails or the context ends
 * @param {context.Context} ctx - Its deadline is the startup timeout
 * @param {<-chan string} lines - Combined output in order, closed at EOF
 * @param {<-chan struct{}} exited - Closed when the process has exited
 * @returns {Result} Ready, Failed, TimedOut or Canceled
 * @description
 * - A fatal marker or an exit before the ready marker is Failed
 * - After the ready marker, ProbePorts must accept connections within the same deadline
 * - Lines still buffered when the process exits are checked so the fatal line is reported
 */
func (d Detector) Wait(ctx context.Context, lines <-chan string, exited <-chan struct{}) Result {
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if matchAny(d.Markers.Fatal, line) {
				return Result{Outcome: Failed, Line: line, Err: fmt.Errorf("fatal output: %s", line)}
			}
			if matchAny(d.Markers.Ready, line) {
				return d.probe(ctx, line, lines, exited)
			}
		case <-exited:
			return d.afterExit(lines)
		case <-ctx.Done():
			return fromContext(ctx)
		}
	}
}

func (d Detector) afterExit(lines <-chan string) Result {
	if lines == nil {
		return Result{Outcome: Failed, Err: ErrExited}
	}
	timer := time.NewTimer(exitDrain)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return Result{Outcome: Failed, Err: ErrExited}
			}
			if matchAny(d.Markers.Fatal, line) {
				return Result{Outcome: Failed, Line: line, Err: fmt.Errorf("fatal output: %s", line)}
			}
		case <-timer.C:
			return Result{Outcome: Failed, Err: ErrExited}
		}
	}
}

func (d Detector) probe(ctx context.Context, line string, lines <-chan string, exited <-chan struct{}) Result {
	if len(d.ProbePorts) == 0 {
		return Result{Outcome: Ready, Line: line}
	}
	host := d.ProbeHost
	if host == "" {
		host = "127.0.0.1"
	}
	interval := d.ProbeInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	// keep consuming output while probing so the child never blocks on a full pipe
	fatal := make(chan string, 1)
	go func() {
		for {
			select {
			case l, ok := <-lines:
				if !ok {
					lines = nil
					continue
				}
				if matchAny(d.Markers.Fatal, l) {
					fatal <- l
					cancel()
					return
				}
			case <-exited:
				cancel()
				return
			case <-probeCtx.Done():
				return
			}
		}
	}()

	if err := utils.WaitPortsConnectable(probeCtx, host, d.ProbePorts, interval); err != nil {
		select {
		case l := <-fatal:
			return Result{Outcome: Failed, Line: l, Err: fmt.Errorf("fatal output: %s", l)}
		default:
		}
		select {
		case <-exited:
			return Result{Outcome: Failed, Line: line, Err: ErrExited}
		default:
		}
		r := fromContext(ctx)
		r.Line = line
		return r
	}
	return Result{Outcome: Ready, Line: line}
}

func fromContext(ctx context.Context) Result {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{Outcome: TimedOut, Err: ctx.Err()}
	}
	return Result{Outcome: Canceled, Err: ctx.Err()}
}
