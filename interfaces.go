// Package tsaotun runs container subcommands against a Docker daemon and
// streams their output without hanging on a silent stream.
//
// # Core Types
//
// - Engine: owns the daemon API handle and exposes the streaming operations
// (Execute, Logs, Pull) and RemoveContainer.
// - Dispatcher: resolves a Handler by command name from a static Registry and runs it.
// - Consumer: forwards a line stream to a Logger, giving up after a period of inactivity.
//
// # Failures
//
// Per-operation failures never escape Engine.Execute, Engine.Logs,
// Engine.Pull or Engine.RemoveContainer. Missing containers are ignored; every
// other failure is reported once through the Logger. Only connection bootstrap
// (package daemon) fails hard.
package tsaotun

import (
	"context"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// API is the subset of the Docker Engine client used by tsaotun.
// *client.Client satisfies it; tests substitute mock.API.
type API interface {
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)

	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)

	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)

	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error
	CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, container.PathStat, error)
	ContainerStatPath(ctx context.Context, containerID, path string) (container.PathStat, error)
}

var _ API = (*client.Client)(nil)

// Logger is the sink for streamed lines and reported failures.
// *log.Logger from github.com/charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
}

// Handler executes one named subcommand.
type Handler interface {
	// Name is the command name the handler is registered under.
	Name() string

	// Run performs the command and returns its printable outcome.
	Run(ctx context.Context, args Arguments, engine *Engine) (string, error)
}

// Prerequisite is implemented by handlers that need a setup step before Run,
// such as picking an implicit target container. ResolvePrerequisite may add
// derived values to args.
type Prerequisite interface {
	RequiresPrerequisite() bool
	ResolvePrerequisite(ctx context.Context, args Arguments, engine *Engine) error
}
