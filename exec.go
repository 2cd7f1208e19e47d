package tsaotun

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/google/shlex"
)

// exitPollTimeout bounds how long Execute waits for the exec to report an exit code.
const exitPollTimeout = 30 * time.Second

// commandLine turns cmd into an exec argv: appended to shell when one is
// configured, otherwise split with shell quoting rules.
func commandLine(cmd string, shell []string) ([]string, error) {
	if strings.TrimSpace(cmd) == "" {
		return nil, fmt.Errorf("%w: command cannot be empty", ErrInvalidArgument)
	}

	if len(shell) > 0 {
		return append(slices.Clone(shell), cmd), nil
	}

	parts, err := shlex.Split(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse command: %w", ErrInvalidArgument, err)
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrInvalidArgument)
	}

	return parts, nil
}

// buildExecConfig translates a target and command into container.ExecOptions.
// Output is always attached and never uses a TTY, so the stream is multiplexed.
func buildExecConfig(target ExecutionTarget, cmd string, shell []string) (container.ExecOptions, error) {
	argv, err := commandLine(cmd, shell)
	if err != nil {
		return container.ExecOptions{}, err
	}

	return container.ExecOptions{
		Cmd:          argv,
		WorkingDir:   target.WorkingPath,
		AttachStdout: true,
		AttachStderr: true,
	}, nil
}

// buildAttachConfig creates the configuration for attaching to an exec instance.
func buildAttachConfig() container.ExecAttachOptions {
	return container.ExecAttachOptions{
		Tty: false,
	}
}

// hijackedStream adapts an exec attach connection to io.ReadCloser.
type hijackedStream struct {
	resp types.HijackedResponse
}

func (h *hijackedStream) Read(p []byte) (int, error) {
	return h.resp.Reader.Read(p)
}

func (h *hijackedStream) Close() error {
	if h.resp.Conn != nil {
		h.resp.Close()
	}

	return nil
}

// pollForExitCode polls the daemon until the exec process stops running or the timeout passes.
func pollForExitCode(ctx context.Context, api API, execID string, timeout time.Duration) (container.ExecInspect, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		inspectResp, err := api.ContainerExecInspect(pollCtx, execID)
		if err != nil {
			return inspectResp, err
		}

		if !inspectResp.Running {
			return inspectResp, nil
		}

		select {
		case <-pollCtx.Done():
			return inspectResp, pollCtx.Err()
		case <-ticker.C:
		}
	}
}
