package tsaotun

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
)

// Engine owns the daemon API handle for the lifetime of the process and
// exposes the daemon-facing operations.
//
// The API handle is shared and never mutated, so read-only concurrent use is
// safe. Streaming calls against the same container must not overlap; callers
// serialize them or use separate connections.
type Engine struct {
	api     API
	host    string
	logger  Logger
	session *Session
	timeout time.Duration
	shell   []string
}

// NewEngine wraps api.
func NewEngine(api API, opts ...Option) *Engine {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	return &Engine{
		api:     api,
		host:    cfg.Host,
		logger:  cfg.Logger,
		session: cfg.Session,
		timeout: cfg.Timeout,
		shell:   cfg.Shell,
	}
}

// API returns the underlying daemon client.
func (e *Engine) API() API {
	return e.api
}

// Host returns the daemon host recorded for diagnostics.
func (e *Engine) Host() string {
	return e.host
}

// Logger returns the engine's logging sink.
func (e *Engine) Logger() Logger {
	return e.logger
}

// Session returns the session used to resolve implicit containers.
func (e *Engine) Session() *Session {
	return e.session
}

// Timeout returns the inactivity deadline applied to streams.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// ResolveContainer returns id, or the session's last active container when id is empty.
func (e *Engine) ResolveContainer(id string) (string, error) {
	return e.session.Resolve(id)
}

// RemoveContainer force-removes a container. An empty id removes the last
// active container. Missing containers are ignored; other failures are logged.
func (e *Engine) RemoveContainer(ctx context.Context, containerID string) {
	id, err := e.session.Resolve(containerID)
	if err != nil {
		e.absorb("remove", err)

		return
	}

	if err := e.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		e.absorb("remove", err)

		return
	}

	e.session.Forget(id)
}

// Execute runs cmd inside the target container, rooted at target.WorkingPath,
// and streams its combined output to the logger until the command finishes or
// its output stays silent for the inactivity timeout.
func (e *Engine) Execute(ctx context.Context, target ExecutionTarget, cmd string) {
	id, err := e.session.Resolve(target.ContainerID)
	if err != nil {
		e.absorb("exec", err)

		return
	}

	e.session.Use(id)

	execConfig, err := buildExecConfig(target, cmd, e.shell)
	if err != nil {
		e.absorb("exec", err)

		return
	}

	created, err := e.api.ContainerExecCreate(ctx, id, execConfig)
	if err != nil {
		e.absorb("exec", fmt.Errorf("failed to create exec: %w", err))

		return
	}

	resp, err := e.api.ContainerExecAttach(ctx, created.ID, buildAttachConfig())
	if err != nil {
		e.absorb("exec", fmt.Errorf("failed to attach exec: %w", err))

		return
	}

	stream, wait := demux(&hijackedStream{resp: resp})
	state, err := e.newConsumer(ModeExec).Consume(ctx, stream)

	wait()

	if err != nil {
		e.absorb("exec", err)

		return
	}

	if state != StateClosed {
		return
	}

	inspect, err := pollForExitCode(ctx, e.api, created.ID, exitPollTimeout)
	if err != nil {
		e.absorb("exec", err)

		return
	}

	if inspect.ExitCode != 0 {
		e.logger.Error(fmt.Sprintf("command exited with code %d", inspect.ExitCode), "op", "exec", "container", id)
	}
}

// Logs follows the stdout log of the target container. Stderr is not requested.
func (e *Engine) Logs(ctx context.Context, target ExecutionTarget) {
	id, err := e.session.Resolve(target.ContainerID)
	if err != nil {
		e.absorb("logs", err)

		return
	}

	e.session.Use(id)

	info, err := e.api.ContainerInspect(ctx, id)
	if err != nil {
		e.absorb("logs", err)

		return
	}

	rc, err := e.api.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: false,
		Follow:     true,
	})
	if err != nil {
		e.absorb("logs", err)

		return
	}

	var (
		stream io.ReadCloser = rc
		wait                 = func() {}
	)

	if info.Config == nil || !info.Config.Tty {
		stream, wait = demux(rc)
	}

	_, err = e.newConsumer(ModeLogs).Consume(ctx, stream)

	wait()

	e.absorb("logs", err)
}

// Pull pulls ref and reports each progress event as it arrives.
func (e *Engine) Pull(ctx context.Context, ref string) {
	if ref == "" {
		e.absorb("pull", fmt.Errorf("%w: image reference is required", ErrInvalidArgument))

		return
	}

	rc, err := e.api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		e.absorb("pull", err)

		return
	}

	_, err = e.newConsumer(ModePull, WithJSONEvents()).Consume(ctx, rc)
	e.absorb("pull", err)
}

func (e *Engine) newConsumer(mode Mode, opts ...ConsumerOption) *Consumer {
	opts = append([]ConsumerOption{WithMode(mode), WithConsumerTimeout(e.timeout)}, opts...)

	return NewConsumer(e.logger, opts...)
}
