package commands

import (
	"context"

	"github.com/ruffel/tsaotun"
)

// Exec runs a command inside a container and streams its output.
type Exec struct{ targetsContainer }

func (Exec) Name() string { return "exec" }

func (Exec) Run(ctx context.Context, args tsaotun.Arguments, engine *tsaotun.Engine) (string, error) {
	engine.Execute(ctx, target(args), args.String(tsaotun.ArgCommand))

	return "", nil
}

// Logs follows a container's stdout log.
type Logs struct{ targetsContainer }

func (Logs) Name() string { return "logs" }

func (Logs) Run(ctx context.Context, args tsaotun.Arguments, engine *tsaotun.Engine) (string, error) {
	engine.Logs(ctx, target(args))

	return "", nil
}

// Pull pulls an image and reports progress.
type Pull struct{}

func (Pull) Name() string { return "pull" }

func (Pull) Run(ctx context.Context, args tsaotun.Arguments, engine *tsaotun.Engine) (string, error) {
	engine.Pull(ctx, args.String(tsaotun.ArgImage))

	return "", nil
}

func target(args tsaotun.Arguments) tsaotun.ExecutionTarget {
	return tsaotun.ExecutionTarget{
		ContainerID: args.String(tsaotun.ArgContainer),
		WorkingPath: args.String(tsaotun.ArgPath),
	}
}
