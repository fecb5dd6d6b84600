package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosan/embedded-cassandra-sub005/internal/distribution"
	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/ports"
	"github.com/nosan/embedded-cassandra-sub005/internal/settings"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

func TestNewValidatesOptions(t *testing.T) {
	t.Parallel()

	provider := distribution.Directory{Path: t.TempDir()}
	tests := []struct {
		name  string
		opts  Options
		field string
	}{
		{"no name", Options{Version: version.MustParse("4.0"), Provider: provider}, "name"},
		{"no version", Options{Name: "n", Provider: provider}, "version"},
		{"no provider", Options{Name: "n", Version: version.MustParse("4.0")}, "distribution"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.opts)
			var cfgErr *errdefs.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	t.Parallel()

	n, err := New(Options{Name: "idle", Version: version.MustParse("4.0"), Provider: distribution.Directory{Path: t.TempDir()}})
	require.NoError(t, err)

	assert.NoError(t, n.Stop(context.Background()))
	assert.Equal(t, models.StateNotStarted, n.State())
	assert.False(t, n.IsRunning())
	assert.Equal(t, 0, n.Pid())

	d := n.Detail()
	assert.Equal(t, "idle", d.Name)
	assert.Equal(t, "4.0", d.Version)
	assert.Equal(t, models.StateNotStarted, d.State)
}

func TestStartFailsWithoutDistribution(t *testing.T) {
	t.Parallel()

	n, err := New(Options{
		Name:     "nodist",
		Version:  version.MustParse("4.0"),
		Provider: distribution.Directory{Path: t.TempDir(), Platform: models.PlatformUnix},
		Builder:  settings.NewBuilder().WorkDir(t.TempDir()),
	})
	require.NoError(t, err)

	err = n.Start(context.Background())
	var startErr *errdefs.StartError
	require.True(t, errors.As(err, &startErr))
	assert.Equal(t, "distribution unavailable", startErr.Reason)
	assert.ErrorIs(t, err, distribution.ErrLaunchScriptMissing)
	assert.Equal(t, models.StateFailed, n.State())
	assert.Contains(t, n.Detail().LastError, "distribution unavailable")
}

// blockingProvider holds Get until the start attempt is canceled.
type blockingProvider struct {
	entered chan struct{}
}

func (p blockingProvider) Get(ctx context.Context, _ version.Version) (distribution.Distribution, error) {
	close(p.entered)
	<-ctx.Done()
	return distribution.Distribution{}, ctx.Err()
}

func TestStopWhileFetchingDistribution(t *testing.T) {
	t.Parallel()

	provider := blockingProvider{entered: make(chan struct{})}
	n, err := New(Options{
		Name:      "fetching",
		Version:   version.MustParse("4.1.3"),
		Provider:  provider,
		Builder:   settings.NewBuilder().WorkDir(t.TempDir()),
		Allocator: ports.NewAllocator(ports.WithRegistry(ports.NewRegistry()), ports.WithoutFileLock()),
	})
	require.NoError(t, err)

	startErr := make(chan error, 1)
	go func() { startErr <- n.Start(context.Background()) }()
	select {
	case <-provider.entered:
	case <-time.After(10 * time.Second):
		t.Fatal("distribution was never requested")
	}
	require.NoError(t, n.Stop(context.Background()))

	err = <-startErr
	var se *errdefs.StartError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, reasonStopped, se.Reason)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.StateStopped, n.State())
}

func TestChildEnv(t *testing.T) {
	t.Parallel()

	s, err := settings.NewBuilder().
		Port(settings.NativeTransport, 1).Port(settings.Storage, 2).Port(settings.JMX, 3).
		JVMOptions("-Xmx256m").
		SystemProperty("cassandra.skip_wait_for_gossip_to_settle", "0").
		Env("JVM_EXTRA_OPTS", "-ea").
		Env("MAX_HEAP_SIZE", "256M").
		Freeze(version.MustParse("4.0"))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"JVM_EXTRA_OPTS": "-ea -Xmx256m -Dcassandra.skip_wait_for_gossip_to_settle=0",
		"MAX_HEAP_SIZE":  "256M",
	}, childEnv(s))
	assert.Equal(t, []int{1}, clientPorts(s))
}
