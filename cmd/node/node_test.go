package node

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/rpc"
)

func fakeServer(t *testing.T) rpc.HTTPClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/nodes":
			_ = json.NewEncoder(w).Encode([]models.NodeDetail{
				{Name: "a", Version: "4.1.3", State: models.StateRunning, Pid: 42, Ports: models.NodePorts{NativeTransport: 9042}},
				{Name: "b", Version: "3.11.16", State: models.StateFailed, LastError: "start error [b]: boom\n--- last output ---\nx"},
			})
		case "/api/v1/nodes/a/start":
			_ = json.NewEncoder(w).Encode(models.NodeActionResponse{Name: "a", State: models.StateRunning})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(models.ErrorResponse{Code: "node.notexist", Error: "node [x] isn't exist"})
		}
	}))
	t.Cleanup(server.Close)
	return rpc.NewHTTPClient(&rpc.HTTPConfig{Address: strings.TrimPrefix(server.URL, "http://"), Timeout: 5 * time.Second})
}

func TestListNodes(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, listNodes(fakeServer(t), &out, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "RUNNING")
	assert.Contains(t, lines[1], "9042")
	assert.Contains(t, lines[2], "start error [b]: boom")
	assert.NotContains(t, out.String(), "last output")
}

func TestNodeAction(t *testing.T) {
	client := fakeServer(t)

	var out bytes.Buffer
	require.NoError(t, nodeAction(client, &out, "start", "a"))
	assert.Equal(t, "Node a is RUNNING\n", out.String())

	err := nodeAction(client, &out, "stop", "x")
	assert.EqualError(t, err, "server returned 404: node [x] isn't exist")
}
