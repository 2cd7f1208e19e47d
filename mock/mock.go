package mock

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/ruffel/tsaotun"
	"github.com/stretchr/testify/mock"
)

// Anything re-exports mock.Anything so callers need a single import.
const Anything = mock.Anything

// API implements a mock tsaotun.API using testify/mock.
type API struct {
	mock.Mock
}

var _ tsaotun.API = (*API)(nil)

// New creates a new mock API.
func New() *API {
	return &API{}
}

// ContainerStart mocks starting a container.
func (m *API) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	return m.Called(ctx, containerID, options).Error(0)
}

// ContainerStop mocks stopping a container.
func (m *API) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	return m.Called(ctx, containerID, options).Error(0)
}

// ContainerRestart mocks restarting a container.
func (m *API) ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error {
	return m.Called(ctx, containerID, options).Error(0)
}

// ContainerRemove mocks removing a container.
func (m *API) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	return m.Called(ctx, containerID, options).Error(0)
}

// ContainerInspect mocks inspecting a container.
func (m *API) ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error) {
	args := m.Called(ctx, containerID)

	return args.Get(0).(container.InspectResponse), args.Error(1)
}

// ContainerList mocks listing containers.
func (m *API) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	args := m.Called(ctx, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]container.Summary), args.Error(1)
}

// ContainerLogs mocks opening a container's log stream.
func (m *API) ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, containerID, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// ContainerExecCreate mocks creating an exec instance.
func (m *API) ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error) {
	args := m.Called(ctx, containerID, options)

	return args.Get(0).(container.ExecCreateResponse), args.Error(1)
}

// ContainerExecAttach mocks attaching to an exec instance.
func (m *API) ContainerExecAttach(ctx context.Context, execID string, config container.ExecAttachOptions) (types.HijackedResponse, error) {
	args := m.Called(ctx, execID, config)

	return args.Get(0).(types.HijackedResponse), args.Error(1)
}

// ContainerExecInspect mocks inspecting an exec instance.
func (m *API) ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error) {
	args := m.Called(ctx, execID)

	return args.Get(0).(container.ExecInspect), args.Error(1)
}

// ImagePull mocks pulling an image.
func (m *API) ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, refStr, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// CopyToContainer mocks copying a tar archive into a container.
// The content reader is drained so progress callbacks observe the transfer.
func (m *API) CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error {
	args := m.Called(ctx, containerID, dstPath, content, options)
	if content != nil {
		_, _ = io.Copy(io.Discard, content)
	}

	return args.Error(0)
}

// CopyFromContainer mocks copying a tar archive out of a container.
func (m *API) CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, container.PathStat, error) {
	args := m.Called(ctx, containerID, srcPath)
	if args.Get(0) == nil {
		return nil, args.Get(1).(container.PathStat), args.Error(2)
	}

	return args.Get(0).(io.ReadCloser), args.Get(1).(container.PathStat), args.Error(2)
}

// ContainerStatPath mocks stat-ing a path inside a container.
func (m *API) ContainerStatPath(ctx context.Context, containerID, path string) (container.PathStat, error) {
	args := m.Called(ctx, containerID, path)

	return args.Get(0).(container.PathStat), args.Error(1)
}

// Multiplexed frames stdout and stderr the way the daemon does for
// containers and execs without a TTY.
func Multiplexed(stdout, stderr string) []byte {
	var buf bytes.Buffer

	if stdout != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(stdout))
	}

	if stderr != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(stderr))
	}

	return buf.Bytes()
}

// Body returns a stream body yielding payload.
func Body(payload []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(payload))
}

// Text returns a stream body yielding s.
func Text(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

// Hijacked returns an attach response whose connection delivers payload and
// then hangs up. The writing side stops early if the response is closed.
func Hijacked(payload []byte) types.HijackedResponse {
	client, server := net.Pipe()

	go func() {
		_, _ = server.Write(payload)
		_ = server.Close()
	}()

	return types.HijackedResponse{
		Conn:   client,
		Reader: bufio.NewReader(client),
	}
}
