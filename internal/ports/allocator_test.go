package ports

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/settings"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

var v311 = version.MustParse("3.11.6")

// sequence returns a probe yielding the given ports in order, then repeating the last one.
func sequence(ports ...int) func() (int, error) {
	var mu sync.Mutex
	i := 0
	return func() (int, error) {
		mu.Lock()
		defer mu.Unlock()
		p := ports[i]
		if i < len(ports)-1 {
			i++
		}
		return p, nil
	}
}

func concretePorts(t *testing.T, b *settings.Builder, v version.Version) map[settings.PortKind]uint16 {
	t.Helper()
	out := map[settings.PortKind]uint16{}
	for _, kind := range b.RequiredPorts(v) {
		p, ok := b.GetPort(kind)
		require.True(t, ok, "port %s not set", kind)
		out[kind] = p
	}
	return out
}

func TestAllocateFillsDistinctPorts(t *testing.T) {
	t.Parallel()

	a := NewAllocator(WithRegistry(NewRegistry()), WithoutFileLock())
	b := settings.NewBuilder().RPC(true).NativeTransportSSL(true)

	require.NoError(t, a.Allocate(context.Background(), "n1", b, v311))

	got := concretePorts(t, b, v311)
	assert.Len(t, got, 5)
	seen := map[uint16]bool{}
	for kind, p := range got {
		assert.NotZero(t, p, kind)
		assert.False(t, seen[p], "duplicate port %d", p)
		seen[p] = true
	}
	_, rpcSet := b.GetPort(settings.RPC)
	assert.True(t, rpcSet)
	_, sslSet := b.GetPort(settings.StorageSSL)
	assert.False(t, sslSet)

	_, err := b.Freeze(v311)
	assert.NoError(t, err)
}

func TestAllocateIsIdempotent(t *testing.T) {
	t.Parallel()

	a := NewAllocator(WithRegistry(NewRegistry()), WithoutFileLock())
	b := settings.NewBuilder()
	require.NoError(t, a.Allocate(context.Background(), "n1", b, v311))
	first := concretePorts(t, b, v311)

	require.NoError(t, a.Allocate(context.Background(), "n1", b, v311))
	assert.Equal(t, first, concretePorts(t, b, v311))
}

func TestAllocateRetriesCollisions(t *testing.T) {
	t.Parallel()

	a := NewAllocator(
		WithRegistry(NewRegistry()),
		WithoutFileLock(),
		WithProbe(sequence(9042, 9042, 7000, 9042, 7000, 7199)),
	)
	b := settings.NewBuilder()
	require.NoError(t, a.Allocate(context.Background(), "n1", b, version.MustParse("4.1")))

	got := concretePorts(t, b, version.MustParse("4.1"))
	assert.Equal(t, map[settings.PortKind]uint16{
		settings.NativeTransport: 9042,
		settings.Storage:         7000,
		settings.JMX:             7199,
	}, got)
}

func TestAllocateKeepsFixedPorts(t *testing.T) {
	t.Parallel()

	a := NewAllocator(WithRegistry(NewRegistry()), WithoutFileLock(), WithProbe(sequence(9042, 9142, 7199)))
	b := settings.NewBuilder().Port(settings.NativeTransport, 9042).Port(settings.Storage, 7000)
	require.NoError(t, a.Allocate(context.Background(), "n1", b, v311))

	got := concretePorts(t, b, v311)
	assert.Equal(t, uint16(9042), got[settings.NativeTransport])
	assert.Equal(t, uint16(7000), got[settings.Storage])
	assert.Equal(t, uint16(9142), got[settings.JMX])
}

func TestAllocateExhaustsRetries(t *testing.T) {
	t.Parallel()

	a := NewAllocator(WithRegistry(NewRegistry()), WithoutFileLock(), WithRetries(4), WithProbe(sequence(9042)))
	b := settings.NewBuilder().Port(settings.NativeTransport, 9042)

	err := a.Allocate(context.Background(), "n1", b, v311)
	var allocErr *errdefs.PortAllocationError
	require.True(t, errors.As(err, &allocErr))
	assert.Equal(t, string(settings.Storage), allocErr.Port)
	assert.Equal(t, 4, allocErr.Attempts)
}

func TestAllocateRejectsDuplicateFixedPorts(t *testing.T) {
	t.Parallel()

	a := NewAllocator(WithRegistry(NewRegistry()), WithoutFileLock())
	b := settings.NewBuilder().Port(settings.NativeTransport, 9042).Port(settings.JMX, 9042)

	err := a.Allocate(context.Background(), "n1", b, v311)
	var cfgErr *errdefs.ConfigError
	require.True(t, errors.As(err, &cfgErr))
}

func TestReservationsSpanOwners(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	probe := sequence(9042, 7000, 7199, 9042, 7000, 7199, 9043, 7001, 7200)
	a := NewAllocator(WithRegistry(reg), WithoutFileLock(), WithProbe(probe))
	v := version.MustParse("4.0")

	first := settings.NewBuilder()
	require.NoError(t, a.Allocate(context.Background(), "first", first, v))
	second := settings.NewBuilder()
	require.NoError(t, a.Allocate(context.Background(), "second", second, v))

	assert.Equal(t, []uint16{7000, 7199, 9042}, reg.Reserved("first"))
	assert.Equal(t, []uint16{7001, 7200, 9043}, reg.Reserved("second"))

	// a fixed port held by another owner is refused
	third := settings.NewBuilder().Port(settings.NativeTransport, 9042)
	err := a.Allocate(context.Background(), "third", third, v)
	var allocErr *errdefs.PortAllocationError
	require.True(t, errors.As(err, &allocErr))

	a.Release("first")
	assert.Empty(t, reg.Reserved("first"))
}

func TestAllocateConcurrentOwnersNeverShare(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	a := NewAllocator(WithRegistry(reg), WithoutFileLock())

	const n = 8
	builders := make([]*settings.Builder, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		builders[i] = settings.NewBuilder()
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, a.Allocate(context.Background(), string(rune('a'+i)), builders[i], v311))
		}(i)
	}
	wg.Wait()

	seen := map[uint16]bool{}
	for _, b := range builders {
		for _, p := range concretePorts(t, b, v311) {
			assert.False(t, seen[p], "port %d handed out twice", p)
			seen[p] = true
		}
	}
}

func TestAllocateHonoursCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewAllocator(WithRegistry(NewRegistry()), WithoutFileLock())

	err := a.Allocate(ctx, "n1", settings.NewBuilder(), v311)
	var allocErr *errdefs.PortAllocationError
	require.True(t, errors.As(err, &allocErr))
	assert.ErrorIs(t, err, context.Canceled)
}
