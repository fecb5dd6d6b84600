//go:build unix

package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nosan/embedded-cassandra-sub005/internal/customizer"
	"github.com/nosan/embedded-cassandra-sub005/internal/distribution"
	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/ports"
	"github.com/nosan/embedded-cassandra-sub005/internal/settings"
	"github.com/nosan/embedded-cassandra-sub005/internal/utils"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

// TestHelperProcess is not a test: it is the fake server started by bin/cassandra.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	os.Exit(fakeServer(os.Getenv("FAKE_MODE")))
}

// orphanPidFile names the pid of the extra process crash mode leaves behind.
const orphanPidFile = "orphan.pid"

func fakeServer(mode string) int {
	if mode == "orphan" {
		time.Sleep(time.Hour)
		return 0
	}
	data, err := os.ReadFile(filepath.Join("conf", "cassandra.yaml"))
	if err != nil {
		fmt.Println("ERROR [main] Exception encountered during startup:", err)
		return 1
	}
	var conf struct {
		NativeTransportPort int `yaml:"native_transport_port"`
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		fmt.Println("ERROR [main] Exception encountered during startup:", err)
		return 1
	}

	terms := make(chan os.Signal, 1)
	switch mode {
	case "stubborn":
		signal.Ignore(syscall.SIGTERM)
	default:
		signal.Notify(terms, syscall.SIGTERM)
	}

	fmt.Println("INFO  [main] Node configuration:[cluster_name=Test Cluster]")
	switch mode {
	case "fatal":
		fmt.Fprintln(os.Stderr, "ERROR [main] Exception encountered during startup: boom")
		time.Sleep(time.Hour)
		return 1
	case "hang":
		fmt.Println("INFO  [main] Initializing system keyspace")
		<-terms
		return 0
	}

	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", conf.NativeTransportPort))
	if err != nil {
		fmt.Println("ERROR [main] Exception encountered during startup:", err)
		return 1
	}
	defer l.Close()
	fmt.Printf("INFO  [main] Starting listening for CQL clients on /127.0.0.1:%d (unencrypted)...\n", conf.NativeTransportPort)

	switch mode {
	case "crash":
		if err := startOrphan(); err != nil {
			fmt.Println("ERROR [main] orphan:", err)
			return 1
		}
		time.Sleep(time.Second)
		fmt.Println("ERROR [main] out of memory")
		return 3
	case "stubborn":
		time.Sleep(time.Hour)
		return 0
	}
	<-terms
	fmt.Println("INFO  [StorageServiceShutdownHook] Announcing shutdown")
	return 0
}

// startOrphan starts a sleeping copy of the helper in the same process group.
func startOrphan() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe, "-test.run=^TestHelperProcess$")
	cmd.Env = append(os.Environ(), "FAKE_MODE=orphan")
	if err := cmd.Start(); err != nil {
		return err
	}
	return os.WriteFile(orphanPidFile, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644)
}

// processAlive treats zombies as gone.
func processAlive(pid int) bool {
	running, err := utils.IsProcessRunning(pid)
	if err != nil || !running {
		return false
	}
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return true
	}
	i := strings.LastIndexByte(string(stat), ')')
	return i < 0 || i+2 >= len(stat) || stat[i+2] != 'Z'
}

const fakeLaunchScript = `#!/bin/sh
if [ -n "$SPAWN_LOG" ]; then echo spawn >> "$SPAWN_LOG"; fi
exec "$HELPER_BIN" -test.run='^TestHelperProcess$' -- "$@"
`

func fakeDistribution(t *testing.T, withEnvScript bool) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"bin/cassandra":           fakeLaunchScript,
		"conf/cassandra.yaml":     "cluster_name: 'Test Cluster'\nnative_transport_port: 9042\nstorage_port: 7000\n",
		"conf/jvm-server.options": "-Xms4G\n-Xmx4G\n",
		"conf/logback.xml":        "<configuration/>\n",
	}
	if withEnvScript {
		files["conf/cassandra-env.sh"] = "#!/bin/sh\nJMX_PORT=\"7199\"\n"
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	}
	return root
}

type fixture struct {
	node     *Node
	registry *ports.Registry
	spawnLog string
}

func newFixture(t *testing.T, mode string, withEnvScript bool, customize ...settings.Customize) fixture {
	t.Helper()
	spawnLog := filepath.Join(t.TempDir(), "spawns")
	helper, err := os.Executable()
	require.NoError(t, err)
	b := settings.NewBuilder().
		WorkDir(t.TempDir()).
		StartupTimeout(20*time.Second).
		StopGracePeriod(5*time.Second).
		Env("GO_WANT_HELPER_PROCESS", "1").
		Env("HELPER_BIN", helper).
		Env("FAKE_MODE", mode).
		Env("SPAWN_LOG", spawnLog).
		Apply(customize...)

	registry := ports.NewRegistry()
	n, err := New(Options{
		Name:      "node-" + mode,
		Version:   version.MustParse("4.1.3"),
		Provider:  distribution.Directory{Path: fakeDistribution(t, withEnvScript), Platform: models.PlatformUnix},
		Builder:   b,
		Pipeline:  customizer.DefaultPipeline(),
		Allocator: ports.NewAllocator(ports.WithRegistry(registry), ports.WithoutFileLock()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Stop(context.Background()) })
	return fixture{node: n, registry: registry, spawnLog: spawnLog}
}

func spawnCount(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	require.NoError(t, err)
	return strings.Count(string(data), "spawn")
}

func TestNodeEndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "ready", true, func(b *settings.Builder) { b.JVMOptions("-Xmx256m") })
	n := f.node

	require.NoError(t, n.Start(context.Background()))
	assert.Equal(t, models.StateRunning, n.State())
	assert.True(t, n.IsRunning())

	s := n.BoundSettings()
	native, ok := s.Port(settings.NativeTransport)
	require.True(t, ok)
	jmx, ok := s.Port(settings.JMX)
	require.True(t, ok)
	assert.True(t, utils.CheckPortConnectable("127.0.0.1", int(native), time.Second))
	runID := n.Detail().RunID
	assert.Len(t, f.registry.Reserved(runID), 3)

	workDir := n.WorkDir()
	assert.Equal(t, filepath.Join(filepath.Dir(workDir), "node-ready-"+runID), workDir)
	env, err := os.ReadFile(filepath.Join(workDir, "conf", "cassandra-env.sh"))
	require.NoError(t, err)
	assert.Contains(t, string(env), fmt.Sprintf(`JMX_PORT="%d"`, jmx))
	opts, err := os.ReadFile(filepath.Join(workDir, "conf", "jvm-server.options"))
	require.NoError(t, err)
	assert.Contains(t, string(opts), customizer.Marker+"-Xmx4G")

	snapshot, err := os.ReadFile(filepath.Join(workDir, SnapshotFile))
	require.NoError(t, err)
	assert.Contains(t, string(snapshot), `"state": "RUNNING"`)

	d := n.Detail()
	assert.Greater(t, d.Pid, 0)
	assert.Equal(t, int(native), d.Ports.NativeTransport)
	assert.Equal(t, 1, d.StartCount)

	// Start on a running node is a no-op
	require.NoError(t, n.Start(context.Background()))
	assert.Equal(t, 1, spawnCount(t, f.spawnLog))

	require.NoError(t, n.Stop(context.Background()))
	assert.Equal(t, models.StateStopped, n.State())
	assert.Empty(t, f.registry.Reserved(runID))
	assert.Eventually(t, func() bool { return utils.CheckPortListenable(int(native)) }, 5*time.Second, 50*time.Millisecond)
	snapshot, err = os.ReadFile(filepath.Join(workDir, SnapshotFile))
	require.NoError(t, err)
	assert.Contains(t, string(snapshot), `"state": "STOPPED"`)

	require.NoError(t, n.Stop(context.Background()))

	// Start on a stopped node is a no-op
	require.NoError(t, n.Start(context.Background()))
	assert.Equal(t, models.StateStopped, n.State())
	assert.Equal(t, 1, spawnCount(t, f.spawnLog))
	assert.Equal(t, workDir, n.WorkDir())
	assert.Equal(t, 1, n.Detail().StartCount)
}

func TestConcurrentStartSpawnsOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "ready", true)
	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.node.Start(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, spawnCount(t, f.spawnLog))
	assert.Equal(t, 1, f.node.Detail().StartCount)
	require.NoError(t, f.node.Stop(context.Background()))
}

func TestStopDuringStartIsPrompt(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "hang", true, func(b *settings.Builder) { b.StartupTimeout(time.Minute) })
	n := f.node

	startErr := make(chan error, 1)
	go func() { startErr <- n.Start(context.Background()) }()
	require.Eventually(t, func() bool { return n.Pid() != 0 }, 10*time.Second, 20*time.Millisecond)
	pid := n.Pid()

	begin := time.Now()
	require.NoError(t, n.Stop(context.Background()))
	assert.Less(t, time.Since(begin), 5*time.Second)

	err := <-startErr
	var se *errdefs.StartError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, reasonStopped, se.Reason)
	assert.Equal(t, models.StateStopped, n.State())

	running, err := utils.IsProcessRunning(pid)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestFatalOutputFailsStart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "fatal", true)
	n := f.node

	err := n.Start(context.Background())
	var se *errdefs.StartError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "server reported a fatal error", se.Reason)
	assert.Contains(t, strings.Join(se.Output, "\n"), "Exception encountered during startup: boom")
	assert.Contains(t, err.Error(), "--- last output ---")
	assert.Equal(t, models.StateFailed, n.State())
	assert.Empty(t, f.registry.Reserved(n.Detail().RunID))

	running, err := utils.IsProcessRunning(n.Pid())
	require.NoError(t, err)
	assert.False(t, running)
}

func TestStartupTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "hang", true, func(b *settings.Builder) { b.StartupTimeout(300 * time.Millisecond) })

	err := f.node.Start(context.Background())
	var se *errdefs.StartError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Reason, "not ready within")
	assert.Equal(t, models.StateFailed, f.node.State())
}

func TestUnexpectedExitIsReported(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "crash", true)
	require.NoError(t, f.node.Start(context.Background()))

	select {
	case err := <-f.node.Failures():
		assert.Contains(t, err.Error(), "exited unexpectedly")
	case <-time.After(10 * time.Second):
		t.Fatal("no failure reported")
	}
	assert.Equal(t, models.StateFailed, f.node.State())
	assert.False(t, f.node.IsRunning())

	data, err := os.ReadFile(filepath.Join(f.node.WorkDir(), orphanPidFile))
	require.NoError(t, err)
	orphan, err := strconv.Atoi(string(data))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !processAlive(orphan) }, 5*time.Second, 50*time.Millisecond)
	assert.NoError(t, f.node.Stop(context.Background()))
}

func TestStopEscalatesWhenTermIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "stubborn", true, func(b *settings.Builder) { b.StopGracePeriod(300 * time.Millisecond) })
	require.NoError(t, f.node.Start(context.Background()))
	pid := f.node.Pid()

	begin := time.Now()
	require.NoError(t, f.node.Stop(context.Background()))
	assert.Less(t, time.Since(begin), 5*time.Second)
	assert.Equal(t, models.StateStopped, f.node.State())

	running, err := utils.IsProcessRunning(pid)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestCustomizerFailurePreventsSpawn(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "ready", false)

	err := f.node.Start(context.Background())
	var fileErr *errdefs.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, "jmx-port-unix", fileErr.Customizer)
	assert.Equal(t, models.StateFailed, f.node.State())
	assert.Equal(t, 0, spawnCount(t, f.spawnLog))
}
