package services

import (
	"context"
	"time"

	"github.com/nosan/embedded-cassandra-sub005/internal/env"
	"github.com/nosan/embedded-cassandra-sub005/internal/metrics"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
)

type Server struct {
	nodes     *NodeManager
	startTime time.Time
}

/**
 * Create new server instance
 * @param {*NodeManager} nodes - Nodes served by the HTTP API
 * @returns {Server} Returns new server instance
 */
func NewServer(nodes *NodeManager) *Server {
	return &Server{
		nodes:     nodes,
		startTime: time.Now(),
	}
}

func (s *Server) Nodes() *NodeManager {
	return s.nodes
}

// StartAllNodes starts every configured node; failures are logged per node.
func (s *Server) StartAllNodes(ctx context.Context) error {
	return s.nodes.StartAll(ctx)
}

func (s *Server) StopAllNodes(ctx context.Context) error {
	return s.nodes.StopAll(ctx)
}

// StartMonitoring logs unexpected node exits until ctx ends.
func (s *Server) StartMonitoring(ctx context.Context) {
	s.nodes.WatchFailures(ctx, nil)
}

/**
 * Build the health check response
 * @returns {models.HealthResponse} Version, uptime, request and node counters
 * @description
 * - Status is DEGRADED when any node is FAILED, UP otherwise
 */
func (s *Server) GetHealthz() models.HealthResponse {
	uptime := time.Since(s.startTime)

	details := s.nodes.GetDetails()
	running, failed := 0, 0
	for _, d := range details {
		switch d.State {
		case models.StateRunning:
			running++
		case models.StateFailed:
			failed++
		}
	}
	status := "UP"
	if failed > 0 {
		status = "DEGRADED"
	}

	return models.HealthResponse{
		Version:   env.Version,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    status,
		Uptime:    uptime.Round(time.Second).String(),
		Metrics: models.Metrics{
			TotalRequests: metrics.GetTotalRequestCount(),
			ErrorRequests: metrics.GetTotalErrorCount(),
			TotalNodes:    len(details),
			RunningNodes:  running,
			FailedNodes:   failed,
		},
	}
}
