package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nosan/embedded-cassandra-sub005/services"
)

type APIController struct {
	server      *services.Server
	metricsPath string
}

/**
 * Create new API controller instance
 * @param {*services.Server} server - Server exposing health information
 * @param {string} metricsPath - Route for prometheus metrics, empty to disable
 * @returns {*APIController} New API controller instance
 */
func NewAPIController(server *services.Server, metricsPath string) *APIController {
	return &APIController{
		server:      server,
		metricsPath: metricsPath,
	}
}

/**
 * Register system routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - GET /healthz
 * - GET <metricsPath> serving the default prometheus registry
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	if a.metricsPath != "" {
		r.GET(a.metricsPath, gin.WrapH(promhttp.Handler()))
	}
}

// @Summary Readiness probe
// @Description Returns version, start time, uptime, request counters and node counts
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(200, a.server.GetHealthz())
}
