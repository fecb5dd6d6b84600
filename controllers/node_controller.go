package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/services"
)

type NodeController struct {
	nodes *services.NodeManager
}

func NewNodeController(nodes *services.NodeManager) *NodeController {
	return &NodeController{nodes: nodes}
}

/**
 * Register node API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Registers routes for node management (list/get/start/stop)
 * @example
 * controller := NewNodeController(nodeManager)
 * controller.RegisterRoutes(router)
 */
func (n *NodeController) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.GET("/nodes", n.ListNodes)
	api.GET("/nodes/:name", n.GetNode)
	api.POST("/nodes/:name/start", n.StartNode)
	api.POST("/nodes/:name/stop", n.StopNode)
}

// ListNodes lists all managed nodes
//
//	@Summary		List all nodes
//	@Tags			Nodes
//	@Produce		json
//	@Success		200	{array}	models.NodeDetail	"List of nodes"
//	@Router			/api/v1/nodes [get]
func (n *NodeController) ListNodes(c *gin.Context) {
	c.JSON(http.StatusOK, n.nodes.GetDetails())
}

// GetNode returns one node
//
//	@Summary		Get node
//	@Tags			Nodes
//	@Produce		json
//	@Param			name	path		string					true	"Node name"
//	@Success		200		{object}	models.NodeDetail		"Node detail"
//	@Failure		404		{object}	models.ErrorResponse	"Node not found"
//	@Router			/api/v1/nodes/{name} [get]
func (n *NodeController) GetNode(c *gin.Context) {
	name := c.Param("name")
	node, ok := n.nodes.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, notFound(name))
		return
	}
	c.JSON(http.StatusOK, node.Detail())
}

// StartNode starts a node and waits until it is ready. A client that
// disconnects stops waiting but does not abort the start.
//
//	@Summary		Start node
//	@Tags			Nodes
//	@Produce		json
//	@Param			name	path		string						true	"Node name"
//	@Success		200		{object}	models.NodeActionResponse	"Node is running"
//	@Failure		404		{object}	models.ErrorResponse		"Node not found"
//	@Failure		500		{object}	models.ErrorResponse		"Start failed"
//	@Router			/api/v1/nodes/{name}/start [post]
func (n *NodeController) StartNode(c *gin.Context) {
	name := c.Param("name")
	if err := n.nodes.StartNode(startContext(c), name); err != nil {
		c.JSON(errorStatus(err), errorResponse(err))
		return
	}
	n.respondState(c, name)
}

// StopNode stops a node
//
//	@Summary		Stop node
//	@Tags			Nodes
//	@Produce		json
//	@Param			name	path		string						true	"Node name"
//	@Success		200		{object}	models.NodeActionResponse	"Node is stopped"
//	@Failure		404		{object}	models.ErrorResponse		"Node not found"
//	@Failure		500		{object}	models.ErrorResponse		"Stop failed"
//	@Router			/api/v1/nodes/{name}/stop [post]
func (n *NodeController) StopNode(c *gin.Context) {
	name := c.Param("name")
	if err := n.nodes.StopNode(c.Request.Context(), name); err != nil {
		c.JSON(errorStatus(err), errorResponse(err))
		return
	}
	n.respondState(c, name)
}

func (n *NodeController) respondState(c *gin.Context, name string) {
	node, _ := n.nodes.Get(name)
	c.JSON(http.StatusOK, models.NodeActionResponse{Name: name, State: node.State()})
}

func notFound(name string) *models.ErrorResponse {
	return models.NewErrorResponse("node.notexist", fmt.Errorf("node [%s] isn't exist", name))
}

func errorStatus(err error) int {
	var (
		cfgErr  *errdefs.ConfigError
		portErr *errdefs.PortAllocationError
	)
	switch {
	case errors.Is(err, services.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &portErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) *models.ErrorResponse {
	var (
		cfgErr   *errdefs.ConfigError
		portErr  *errdefs.PortAllocationError
		fileErr  *errdefs.FileError
		startErr *errdefs.StartError
		stopErr  *errdefs.StopError
	)
	code := "node.error"
	switch {
	case errors.Is(err, services.ErrNodeNotFound):
		code = "node.notexist"
	case errors.As(err, &cfgErr):
		code = "node.config"
	case errors.As(err, &portErr):
		code = "node.ports"
	case errors.As(err, &fileErr):
		code = "node.customize"
	case errors.As(err, &startErr):
		code = "node.start"
	case errors.As(err, &stopErr):
		code = "node.stop"
	}
	return models.NewErrorResponse(code, err)
}

// startContext keeps the request values but not its cancellation; the attempt
// is shared with every other caller starting the same node.
func startContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}
