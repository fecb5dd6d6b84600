package ports

import (
	"context"
	"fmt"

	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
	"github.com/nosan/embedded-cassandra-sub005/internal/metrics"
	"github.com/nosan/embedded-cassandra-sub005/internal/settings"
	"github.com/nosan/embedded-cassandra-sub005/internal/utils"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

const DefaultRetries = 32

// Allocator fills unset ports with free ones.
//
// A probed port is released before the server binds it, so another program
// can still take it in between. The reservation registry and the lock file
// only close that window for allocators that cooperate.
type Allocator struct {
	retries  int
	registry *Registry
	probe    func() (int, error)
	lock     func() (*fileLock, error)
}

type Option func(*Allocator)

// WithRetries bounds the probes per port.
func WithRetries(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.retries = n
		}
	}
}

// WithRegistry uses a private reservation registry.
func WithRegistry(r *Registry) Option {
	return func(a *Allocator) { a.registry = r }
}

// WithProbe replaces the ephemeral-port probe.
func WithProbe(probe func() (int, error)) Option {
	return func(a *Allocator) { a.probe = probe }
}

// WithoutFileLock skips the cross-process lock.
func WithoutFileLock() Option {
	return func(a *Allocator) { a.lock = nil }
}

func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		retries:  DefaultRetries,
		registry: DefaultRegistry,
		probe:    utils.ListenEphemeral,
		lock:     acquireFileLock,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry returns the registry reservations are recorded in.
func (a *Allocator) Registry() *Registry { return a.registry }

/**
 * Fill every required but unset port of the builder
 * @param {context.Context} ctx - Cancels between probes
 * @param {string} owner - Reservation owner, usually the node run id
 * @param {*settings.Builder} b - Builder to fill in place
 * @param {version.Version} v - Decides which ports are required
 * @returns {error} ConfigError for duplicate fixed ports, PortAllocationError otherwise
 * @description
 * - Fixed ports are kept but must not collide with each other or another owner's reservation
 * - Each missing port is probed by binding 127.0.0.1:0 and closing the listener
 * - A probed number already used by this config or reserved elsewhere is retried
 * - All required ports end up reserved for owner until Release(owner)
 * - Calling again with every port concrete changes nothing
 */
func (a *Allocator) Allocate(ctx context.Context, owner string, b *settings.Builder, v version.Version) error {
	a.registry.mu.Lock()
	defer a.registry.mu.Unlock()

	if a.lock != nil {
		l, err := a.lock()
		if err != nil {
			logger.Warnf("Port lock unavailable, continuing with in-process lock only: %v", err)
		} else {
			defer l.Release()
		}
	}

	required := b.RequiredPorts(v)
	used := make(map[uint16]settings.PortKind, len(required))
	var missing []settings.PortKind
	for _, kind := range required {
		port, ok := b.GetPort(kind)
		if !ok {
			missing = append(missing, kind)
			continue
		}
		if port == 0 {
			return errdefs.NewConfigError(string(kind), "port must be in [1, 65535]", nil)
		}
		if other, dup := used[port]; dup {
			return errdefs.NewConfigError(string(kind), fmt.Sprintf("port %d already used by %s", port, other), nil)
		}
		if holder, taken := a.registry.heldByOther(port, owner); taken {
			return errdefs.NewPortAllocationError(string(kind), 0, fmt.Errorf("port %d is reserved by %s", port, holder))
		}
		used[port] = kind
	}

	for _, kind := range missing {
		port, err := a.pick(ctx, owner, kind, used)
		if err != nil {
			return err
		}
		used[port] = kind
		b.Port(kind, port)
		logger.Debugf("Allocated %s=%d for %s", kind, port, owner)
	}

	ports := make([]uint16, 0, len(used))
	for p := range used {
		ports = append(ports, p)
	}
	a.registry.reserve(owner, ports)
	return nil
}

func (a *Allocator) pick(ctx context.Context, owner string, kind settings.PortKind, used map[uint16]settings.PortKind) (uint16, error) {
	var lastErr error
	for attempt := 1; attempt <= a.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, errdefs.NewPortAllocationError(string(kind), attempt-1, err)
		}
		p, err := a.probe()
		if err != nil {
			lastErr = err
			continue
		}
		if p <= 0 || p > 65535 {
			lastErr = fmt.Errorf("probe returned out of range port %d", p)
			continue
		}
		port := uint16(p)
		if other, dup := used[port]; dup {
			lastErr = fmt.Errorf("port %d already used by %s", port, other)
			metrics.IncPortRetry(string(kind))
			continue
		}
		if holder, taken := a.registry.heldByOther(port, owner); taken {
			lastErr = fmt.Errorf("port %d is reserved by %s", port, holder)
			metrics.IncPortRetry(string(kind))
			continue
		}
		return port, nil
	}
	return 0, errdefs.NewPortAllocationError(string(kind), a.retries, lastErr)
}

// Release frees owner's reservations in the allocator's registry.
func (a *Allocator) Release(owner string) {
	a.registry.Release(owner)
}
