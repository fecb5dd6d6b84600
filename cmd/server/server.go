package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nosan/embedded-cassandra-sub005/cmd/root"
	"github.com/nosan/embedded-cassandra-sub005/controllers"
	"github.com/nosan/embedded-cassandra-sub005/internal/config"
	"github.com/nosan/embedded-cassandra-sub005/internal/env"
	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
	"github.com/nosan/embedded-cassandra-sub005/internal/middleware"
	"github.com/nosan/embedded-cassandra-sub005/services"
)

var shutdownTimeout time.Duration

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start every configured node and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return startServer(ctx, &config.Config)
	},
}

// NewRouter wires middleware and controllers for the node API.
func NewRouter(cfg *config.AppConfig, svc *services.Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.MetricsMiddleware())

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	controllers.NewAPIController(svc, metricsPath).RegisterRoutes(router)
	controllers.NewNodeController(svc.Nodes()).RegisterRoutes(router)
	return router
}

/**
 * Serve the HTTP API and run every configured node until ctx ends
 * @param {context.Context} ctx - Canceled on SIGINT/SIGTERM
 * @param {*config.AppConfig} cfg - Application configuration
 * @returns {error} Listener or node manager setup errors
 * @description
 * - Nodes start in the background so the API is reachable while they boot
 * - On shutdown the HTTP server closes first, then every node is stopped
 */
func startServer(ctx context.Context, cfg *config.AppConfig) error {
	env.Daemon = true
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	nodes, err := services.NewNodeManagerFromConfig(cfg, nil)
	if err != nil {
		return err
	}
	svc := services.NewServer(nodes)
	router := NewRouter(cfg, svc)

	var addrs []ListenAddr
	for _, a := range strings.Split(cfg.Server.Address, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, ParseListenAddr(a))
		}
	}
	listeners, err := CreateListeners(addrs)
	if len(listeners) == 0 {
		if err == nil {
			err = errors.New("no listen address configured")
		}
		return err
	}

	httpServer := &http.Server{Handler: router}
	var wg sync.WaitGroup
	for _, l := range listeners {
		l := l
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Infof("HTTP API listening on %s", l.Addr())
			if err := httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("HTTP server on %s failed: %v", l.Addr(), err)
			}
		}()
	}

	svc.StartMonitoring(ctx)
	go func() {
		if err := svc.StartAllNodes(ctx); err != nil {
			logger.Warnf("Some nodes failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP shutdown: %v", err)
	}
	wg.Wait()
	return svc.StopAllNodes(shutdownCtx)
}

func init() {
	serverCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 2*time.Minute, "upper bound for stopping nodes on shutdown")
	root.RootCmd.AddCommand(serverCmd)
}
