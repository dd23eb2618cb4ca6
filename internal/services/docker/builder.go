// Package docker wraps tool invocations so they run inside the NiftyMIC image
// with exactly one bind-mounted host directory.
package docker

import (
	"context"
	"strings"

	"niftymic/internal/config"
	"niftymic/internal/services"
	"niftymic/internal/services/process"
)

// Builder produces container invocations for one engine and image.
type Builder struct {
	engine string
	image  string
	mount  string
	runner process.Runner
}

// New constructs a Builder. mount is the in-container path host directories
// are bound to.
func New(engine, image, mount string, runner process.Runner) *Builder {
	return &Builder{
		engine: strings.TrimSpace(engine),
		image:  strings.TrimSpace(image),
		mount:  strings.TrimSpace(mount),
		runner: runner,
	}
}

// FromConfig binds the engine path, image, and mount path from configuration.
func FromConfig(cfg *config.Config, runner process.Runner) *Builder {
	return New(cfg.Executables.Docker, cfg.Docker.Image, cfg.Docker.WorkingDirectory, runner)
}

// MountPath is where hostDir appears inside the container. Tool arguments must
// already be translated onto it.
func (b *Builder) MountPath() string {
	return b.mount
}

// Args returns the engine arguments that run tool with args and bind hostDir
// onto the mount path: run --rm -v <host>:<mount> <image> <tool> args...
func (b *Builder) Args(tool string, args []string, hostDir string) []string {
	out := make([]string, 0, len(args)+6)
	out = append(out, "run", "--rm", "-v", hostDir+":"+b.mount, b.image, tool)
	return append(out, args...)
}

// Invocation wraps a tool call for the process supervisor.
func (b *Builder) Invocation(stage, tool string, args []string, hostDir string) process.Invocation {
	return process.Invocation{
		Stage:  stage,
		Binary: b.engine,
		Args:   b.Args(tool, args, hostDir),
	}
}

// Run executes tool inside the container and waits for it to finish.
func (b *Builder) Run(ctx context.Context, stage, tool string, args []string, hostDir string) error {
	if b.runner == nil {
		return services.Wrap(services.ErrCommandSpawn, stage, "docker", "no process runner configured", nil)
	}
	return b.runner.Run(ctx, b.Invocation(stage, tool, args, hostDir))
}
