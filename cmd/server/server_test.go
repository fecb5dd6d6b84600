package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosan/embedded-cassandra-sub005/internal/config"
	"github.com/nosan/embedded-cassandra-sub005/services"
)

func TestParseListenAddr(t *testing.T) {
	assert.Equal(t, ListenAddr{Network: "tcp", Address: "127.0.0.1:9950"}, ParseListenAddr("127.0.0.1:9950"))
	assert.Equal(t, ListenAddr{Network: "unix", Address: "/run/ec.sock"}, ParseListenAddr("unix:/run/ec.sock"))
}

func TestCreateListenersSkipsFailures(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	addrs := []ListenAddr{{Network: "tcp", Address: "127.0.0.1:0"}, {Network: "tcp", Address: busy.Addr().String()}}
	if runtime.GOOS != "windows" {
		addrs = append(addrs, ListenAddr{Network: "unix", Address: filepath.Join(t.TempDir(), "api.sock")})
	}
	listeners, err := CreateListeners(addrs)
	assert.Error(t, err)
	require.Len(t, listeners, len(addrs)-1)
	for _, l := range listeners {
		l.Close()
	}
}

func TestRouterMetricsToggle(t *testing.T) {
	svc := services.NewServer(services.NewNodeManager(nil))

	enabled := &config.AppConfig{Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}}
	w := httptest.NewRecorder()
	NewRouter(enabled, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	disabled := &config.AppConfig{Metrics: config.MetricsConfig{Path: "/metrics"}}
	w = httptest.NewRecorder()
	NewRouter(disabled, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	NewRouter(disabled, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
