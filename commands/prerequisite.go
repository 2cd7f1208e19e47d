package commands

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/ruffel/tsaotun"
)

// targetsContainer is embedded by handlers that act on one container. Its
// prerequisite fills in the container argument when the caller omitted it:
// first from the session, then from the most recently created container.
// When neither exists the argument stays unset.
type targetsContainer struct{}

func (targetsContainer) RequiresPrerequisite() bool { return true }

func (targetsContainer) ResolvePrerequisite(ctx context.Context, args tsaotun.Arguments, engine *tsaotun.Engine) error {
	if args.Has(tsaotun.ArgContainer) {
		return nil
	}

	if last := engine.Session().Last(); last != "" {
		args.Set(tsaotun.ArgContainer, last)

		return nil
	}

	latest, err := engine.API().ContainerList(ctx, container.ListOptions{Latest: true, All: true})
	if err != nil {
		return fmt.Errorf("failed to find latest container: %w", err)
	}

	if len(latest) > 0 {
		args.Set(tsaotun.ArgContainer, latest[0].ID)
		engine.Logger().Debug("using latest container", "container", shortID(latest[0].ID))
	}

	return nil
}

// shortID truncates a container ID the way the docker CLI displays it.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}

	return id
}
