package commands

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/ruffel/tsaotun"
)

// Start starts a stopped container.
type Start struct{ targetsContainer }

func (Start) Name() string { return "start" }

func (Start) Run(ctx context.Context, args tsaotun.Arguments, engine *tsaotun.Engine) (string, error) {
	id, err := engine.ResolveContainer(args.String(tsaotun.ArgContainer))
	if err != nil {
		return "", err
	}

	if err := engine.API().ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("failed to start %s: %w", id, err)
	}

	engine.Session().Use(id)

	return id, nil
}

// Stop stops a running container, optionally with a grace period in seconds.
type Stop struct{ targetsContainer }

func (Stop) Name() string { return "stop" }

func (Stop) Run(ctx context.Context, args tsaotun.Arguments, engine *tsaotun.Engine) (string, error) {
	id, err := engine.ResolveContainer(args.String(tsaotun.ArgContainer))
	if err != nil {
		return "", err
	}

	if err := engine.API().ContainerStop(ctx, id, stopOptions(args)); err != nil {
		return "", fmt.Errorf("failed to stop %s: %w", id, err)
	}

	return id, nil
}

// Restart restarts a container.
type Restart struct{ targetsContainer }

func (Restart) Name() string { return "restart" }

func (Restart) Run(ctx context.Context, args tsaotun.Arguments, engine *tsaotun.Engine) (string, error) {
	id, err := engine.ResolveContainer(args.String(tsaotun.ArgContainer))
	if err != nil {
		return "", err
	}

	if err := engine.API().ContainerRestart(ctx, id, stopOptions(args)); err != nil {
		return "", fmt.Errorf("failed to restart %s: %w", id, err)
	}

	engine.Session().Use(id)

	return id, nil
}

func stopOptions(args tsaotun.Arguments) container.StopOptions {
	var opts container.StopOptions

	if secs, ok := args.Int(tsaotun.ArgTimeout); ok {
		opts.Timeout = &secs
	}

	return opts
}

// Remove force-removes a container. Missing containers are not an error.
type Remove struct{ targetsContainer }

func (Remove) Name() string { return "rm" }

func (Remove) Run(ctx context.Context, args tsaotun.Arguments, engine *tsaotun.Engine) (string, error) {
	engine.RemoveContainer(ctx, args.String(tsaotun.ArgContainer))

	return "", nil
}
