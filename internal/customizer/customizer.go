package customizer

import (
	"context"
	"errors"

	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/settings"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

// Context is what every customizer sees.
type Context struct {
	Version  version.Version
	Platform models.Platform
	Settings settings.Settings
}

// Customizer rewrites files below a runtime directory.
type Customizer interface {
	Name() string
	// Applies decides whether the customizer runs at all for this server.
	Applies(v version.Version, p models.Platform) bool
	Apply(root string, c Context) error
}

// Pipeline runs customizers in order.
type Pipeline struct {
	steps []Customizer
}

func NewPipeline(steps ...Customizer) *Pipeline {
	return &Pipeline{steps: steps}
}

// Append adds steps at the end, after the existing ones.
func (p *Pipeline) Append(steps ...Customizer) *Pipeline {
	p.steps = append(p.steps, steps...)
	return p
}

// Names lists the step names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.steps))
	for _, s := range p.steps {
		names = append(names, s.Name())
	}
	return names
}

/**
 * Run every applicable customizer against root
 * @param {context.Context} ctx - Checked before each step
 * @param {string} root - Runtime directory
 * @param {Context} c - Version, platform and frozen settings
 * @returns {error} FileError naming the first failing customizer
 * @description
 * - Steps run strictly in order, skipped steps leave no trace
 * - Rewrites made before a failure stay on disk
 */
func (p *Pipeline) Apply(ctx context.Context, root string, c Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !step.Applies(c.Version, c.Platform) {
			logger.Debugf("Customizer '%s' skipped for %s/%s", step.Name(), c.Version, c.Platform)
			continue
		}
		if err := step.Apply(root, c); err != nil {
			var fileErr *errdefs.FileError
			if errors.As(err, &fileErr) {
				return err
			}
			return errdefs.NewFileError(step.Name(), "", err)
		}
		logger.Debugf("Customizer '%s' applied", step.Name())
	}
	return nil
}
