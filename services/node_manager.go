package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nosan/embedded-cassandra-sub005/internal/config"
	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/node"
	"github.com/nosan/embedded-cassandra-sub005/internal/ports"
)

var ErrNodeNotFound = errors.New("node not found")

/**
 * Registry of named nodes
 * @property {map[string]*node.Node} nodes - Nodes by name
 * @property {[]string} order - Registration order, used for listing
 * @property {*ports.Allocator} allocator - Shared by every node so reservations never collide
 */
type NodeManager struct {
	mu        sync.RWMutex
	nodes     map[string]*node.Node
	order     []string
	allocator *ports.Allocator
}

func NewNodeManager(allocator *ports.Allocator) *NodeManager {
	if allocator == nil {
		allocator = ports.NewAllocator()
	}
	return &NodeManager{
		nodes:     make(map[string]*node.Node),
		allocator: allocator,
	}
}

/**
 * Create a manager holding every node defined in the configuration
 * @param {*config.AppConfig} cfg - Validated application configuration
 * @param {*ports.Allocator} allocator - Port allocator, nil for the default
 * @returns {*NodeManager} Manager with nodes in NOT_STARTED state
 * @returns {error} ConfigError naming the offending node definition
 */
func NewNodeManagerFromConfig(cfg *config.AppConfig, allocator *ports.Allocator) (*NodeManager, error) {
	nm := NewNodeManager(allocator)
	for i := range cfg.Nodes {
		if _, err := nm.AddConfig(&cfg.Nodes[i]); err != nil {
			return nil, err
		}
	}
	return nm, nil
}

// Allocator is shared by every node registered through AddConfig.
func (nm *NodeManager) Allocator() *ports.Allocator { return nm.allocator }

// AddConfig builds a node from its definition and registers it.
func (nm *NodeManager) AddConfig(nc *config.NodeConfig) (*node.Node, error) {
	if err := nc.Validate(); err != nil {
		return nil, err
	}
	v, err := nc.ParsedVersion()
	if err != nil {
		return nil, errdefs.NewConfigError("version", err.Error(), err)
	}
	b, err := nc.Builder()
	if err != nil {
		return nil, err
	}
	n, err := node.New(node.Options{
		Name:      nc.Name,
		Version:   v,
		Provider:  nc.Provider(),
		Builder:   b,
		Allocator: nm.allocator,
	})
	if err != nil {
		return nil, err
	}
	if err := nm.Add(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Add registers n. Names are unique.
func (nm *NodeManager) Add(n *node.Node) error {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	if _, exists := nm.nodes[n.Name()]; exists {
		return errdefs.NewConfigError("name", fmt.Sprintf("node '%s' is already registered", n.Name()), nil)
	}
	nm.nodes[n.Name()] = n
	nm.order = append(nm.order, n.Name())
	return nil
}

func (nm *NodeManager) Get(name string) (*node.Node, bool) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	n, ok := nm.nodes[name]
	return n, ok
}

// GetInstances returns the nodes in registration order.
func (nm *NodeManager) GetInstances() []*node.Node {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	out := make([]*node.Node, 0, len(nm.order))
	for _, name := range nm.order {
		out = append(out, nm.nodes[name])
	}
	return out
}

func (nm *NodeManager) GetDetails() []models.NodeDetail {
	instances := nm.GetInstances()
	out := make([]models.NodeDetail, 0, len(instances))
	for _, n := range instances {
		out = append(out, n.Detail())
	}
	return out
}

func (nm *NodeManager) StartNode(ctx context.Context, name string) error {
	n, ok := nm.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	if err := n.Start(ctx); err != nil {
		logger.Errorf("Start [%s] failed: %v", name, err)
		return err
	}
	return nil
}

func (nm *NodeManager) StopNode(ctx context.Context, name string) error {
	n, ok := nm.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	if err := n.Stop(ctx); err != nil {
		logger.Errorf("Stop [%s] failed: %v", name, err)
		return err
	}
	return nil
}

/**
 * Start every node in parallel
 * @param {context.Context} ctx - Bounds every start
 * @returns {error} Joined errors of the nodes that failed; the others keep running
 */
func (nm *NodeManager) StartAll(ctx context.Context) error {
	return nm.each(func(n *node.Node) error {
		if err := n.Start(ctx); err != nil {
			logger.Errorf("Failed to start node '%s': %v", n.Name(), err)
			return err
		}
		return nil
	})
}

// StopAll stops every node in parallel and joins the errors.
func (nm *NodeManager) StopAll(ctx context.Context) error {
	return nm.each(func(n *node.Node) error {
		if err := n.Stop(ctx); err != nil {
			logger.Errorf("Failed to stop node '%s': %v", n.Name(), err)
			return err
		}
		return nil
	})
}

func (nm *NodeManager) each(fn func(*node.Node) error) error {
	instances := nm.GetInstances()
	errs := make([]error, len(instances))
	var wg sync.WaitGroup
	for i, n := range instances {
		wg.Add(1)
		go func(i int, n *node.Node) {
			defer wg.Done()
			errs[i] = fn(n)
		}(i, n)
	}
	wg.Wait()
	return errors.Join(errs...)
}

/**
 * Log unexpected exits until ctx ends
 * @param {context.Context} ctx - Stops the watchers
 * @param {func(string, error)} onFailure - Optional callback per failure
 * @description
 * - One watcher per node reads its Failures channel
 * - A failed node stays FAILED; restarting is left to the operator
 */
func (nm *NodeManager) WatchFailures(ctx context.Context, onFailure func(name string, err error)) {
	for _, n := range nm.GetInstances() {
		go func(n *node.Node) {
			for {
				select {
				case <-ctx.Done():
					return
				case err := <-n.Failures():
					logger.Errorf("Node [%s] failed: %v", n.Name(), err)
					if onFailure != nil {
						onFailure(n.Name(), err)
					}
				}
			}
		}(n)
	}
}
