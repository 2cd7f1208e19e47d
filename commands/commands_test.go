package commands

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/ruffel/tsaotun"
	"github.com/ruffel/tsaotun/fileutil"
	"github.com/ruffel/tsaotun/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testifymock "github.com/stretchr/testify/mock"
)

type harness struct {
	api        *mock.API
	rec        *mock.Recorder
	engine     *tsaotun.Engine
	dispatcher *tsaotun.Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	api := mock.New()
	rec := mock.NewRecorder()
	engine := tsaotun.NewEngine(api, tsaotun.WithLogger(rec))

	t.Cleanup(func() { api.AssertExpectations(t) })

	return &harness{
		api:        api,
		rec:        rec,
		engine:     engine,
		dispatcher: tsaotun.NewDispatcher(engine, Registry()),
	}
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"cp", "exec", "inspect", "logs", "ps", "pull", "restart", "rm", "start", "stop",
	}, Registry().Names())
}

func TestTargetsContainer(t *testing.T) {
	t.Parallel()

	t.Run("explicit container kept", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		args := tsaotun.Arguments{tsaotun.ArgContainer: "web"}

		require.NoError(t, targetsContainer{}.ResolvePrerequisite(t.Context(), args, h.engine))
		assert.Equal(t, "web", args.String(tsaotun.ArgContainer))
	})

	t.Run("session last", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.engine.Session().Use("db")

		args := tsaotun.Arguments{}
		require.NoError(t, targetsContainer{}.ResolvePrerequisite(t.Context(), args, h.engine))
		assert.Equal(t, "db", args.String(tsaotun.ArgContainer))
	})

	t.Run("latest container", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.api.On("ContainerList", testifymock.Anything, container.ListOptions{Latest: true, All: true}).
			Return([]container.Summary{{ID: "4f2a9c1b7e3d5a6f8b0c"}}, nil)

		args := tsaotun.Arguments{}
		require.NoError(t, targetsContainer{}.ResolvePrerequisite(t.Context(), args, h.engine))
		assert.Equal(t, "4f2a9c1b7e3d5a6f8b0c", args.String(tsaotun.ArgContainer))
	})

	t.Run("no containers", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.api.On("ContainerList", testifymock.Anything, testifymock.Anything).Return([]container.Summary{}, nil)

		args := tsaotun.Arguments{}
		require.NoError(t, targetsContainer{}.ResolvePrerequisite(t.Context(), args, h.engine))
		assert.False(t, args.Has(tsaotun.ArgContainer))
	})

	t.Run("list failure", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.api.On("ContainerList", testifymock.Anything, testifymock.Anything).Return(nil, errors.New("daemon busy"))

		err := targetsContainer{}.ResolvePrerequisite(t.Context(), tsaotun.Arguments{}, h.engine)
		require.ErrorContains(t, err, "daemon busy")
	})
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("start records session", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.api.On("ContainerStart", testifymock.Anything, "web", container.StartOptions{}).Return(nil)

		out, err := h.dispatcher.Dispatch(t.Context(), tsaotun.Request("start").Container("web").Build())
		require.NoError(t, err)
		assert.Equal(t, "web", out)
		assert.Equal(t, "web", h.engine.Session().Last())
	})

	t.Run("stop with grace period", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.api.On("ContainerStop", testifymock.Anything, "web", testifymock.MatchedBy(func(o container.StopOptions) bool {
			return o.Timeout != nil && *o.Timeout == 5
		})).Return(nil)

		_, err := h.dispatcher.Dispatch(t.Context(), tsaotun.Request("stop").Container("web").Arg(tsaotun.ArgTimeout, 5).Build())
		require.NoError(t, err)
	})

	t.Run("restart default grace period", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.api.On("ContainerRestart", testifymock.Anything, "web", container.StopOptions{}).Return(nil)

		_, err := h.dispatcher.Dispatch(t.Context(), tsaotun.Request("restart").Container("web").Build())
		require.NoError(t, err)
	})

	t.Run("start without any container", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.api.On("ContainerList", testifymock.Anything, testifymock.Anything).Return([]container.Summary{}, nil)

		_, err := h.dispatcher.Dispatch(t.Context(), tsaotun.Request("start").Build())
		require.ErrorIs(t, err, tsaotun.ErrNullResource)
	})

	t.Run("rm without any container is silent", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.api.On("ContainerList", testifymock.Anything, testifymock.Anything).Return([]container.Summary{}, nil)

		out, err := h.dispatcher.Dispatch(t.Context(), tsaotun.Request("rm").Build())
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Empty(t, h.rec.Messages(log.ErrorLevel))
	})
}

func TestStreamingHandlers(t *testing.T) {
	t.Parallel()

	t.Run("exec", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.api.On("ContainerExecCreate", testifymock.Anything, "web", testifymock.MatchedBy(func(o container.ExecOptions) bool {
			return o.WorkingDir == "/srv"
		})).Return(container.ExecCreateResponse{ID: "e1"}, nil)
		h.api.On("ContainerExecAttach", testifymock.Anything, "e1", testifymock.Anything).
			Return(mock.Hijacked(mock.Multiplexed("built\n", "")), nil)
		h.api.On("ContainerExecInspect", testifymock.Anything, "e1").Return(container.ExecInspect{}, nil)

		req := tsaotun.Request("exec").Container("web").Path("/srv").Arg(tsaotun.ArgCommand, "make").Build()

		out, err := h.dispatcher.Dispatch(t.Context(), req)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Equal(t, []string{"built"}, h.rec.Messages(log.InfoLevel))
	})

	t.Run("pull", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.api.On("ImagePull", testifymock.Anything, "redis:7", testifymock.Anything).
			Return(mock.Text(`{"status":"Pull complete","id":"a1b2"}`+"\n"), nil)

		_, err := h.dispatcher.Dispatch(t.Context(), tsaotun.Request("pull").Arg(tsaotun.ArgImage, "redis:7").Build())
		require.NoError(t, err)
		assert.Equal(t, []string{"a1b2: Pull complete"}, h.rec.Messages(log.InfoLevel))
	})
}

func TestInspect(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.api.On("ContainerInspect", testifymock.Anything, "web").Return(container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{ID: "4f2a9c1b7e3d", Name: "/web"},
		Config:            &container.Config{Image: "nginx:1.27"},
	}, nil)

	out, err := h.dispatcher.Dispatch(t.Context(), tsaotun.Request("inspect").Container("web").Build())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "4f2a9c1b7e3d", decoded["Id"])
	assert.Contains(t, out, "\n    \"Name\": \"/web\"")
}

func TestList(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	h := newHarness(t)
	h.api.On("ContainerList", testifymock.Anything, container.ListOptions{All: true}).Return([]container.Summary{
		{
			ID:      "4f2a9c1b7e3d5a6f8b0c",
			Image:   "nginx:1.27",
			Command: "nginx -g 'daemon off;'",
			Created: now.Add(-2 * time.Hour).Unix(),
			Status:  "Up 2 hours",
			Names:   []string{"/web"},
		},
	}, nil)

	out, err := List{now: func() time.Time { return now }}.Run(t.Context(), tsaotun.Arguments{tsaotun.ArgAll: true}, h.engine)
	require.NoError(t, err)

	assert.Contains(t, out, "CONTAINER ID")
	assert.Contains(t, out, "4f2a9c1b7e3d")
	assert.NotContains(t, out, "4f2a9c1b7e3d5a6f")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "Up 2 hours")
	assert.Contains(t, out, " web ")
	assert.Contains(t, out, "╭")
}

func TestParseLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg  string
		want location
	}{
		{arg: "web:/etc/hosts", want: location{Remote: true, Container: "web", Path: "/etc/hosts"}},
		{arg: ":/var/log", want: location{Remote: true, Path: "/var/log"}},
		{arg: "/tmp/out", want: location{Path: "/tmp/out"}},
		{arg: "./a:b", want: location{Path: "./a:b"}},
		{arg: "notes.txt", want: location{Path: "notes.txt"}},
		{arg: "", want: location{}},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseLocation(tt.arg))
		})
	}
}

func TestCopy_Upload(t *testing.T) {
	t.Parallel()

	notFound := fmt.Errorf("Could not find the file in container web: %w", cerrdefs.ErrNotFound)
	dirStat := container.PathStat{Mode: os.ModeDir | 0o755}
	fileStat := container.PathStat{Mode: 0o644}

	tests := []struct {
		name      string
		dest      string
		stat      container.PathStat
		statErr   error
		wantDir   string
		wantNames []string
		wantOut   string
	}{
		{
			name:      "new file under its own name",
			dest:      "web:/etc/app/config.yaml",
			statErr:   notFound,
			wantDir:   "/etc/app",
			wantNames: []string{"config.yaml"},
			wantOut:   "to web:/etc/app/config.yaml",
		},
		{
			name:      "existing directory keeps local name",
			dest:      "web:/tmp/",
			stat:      dirStat,
			wantDir:   "/tmp",
			wantNames: []string{"app.yaml"},
			wantOut:   "to web:/tmp/app.yaml",
		},
		{
			name:      "container root keeps local name",
			dest:      "web:/",
			stat:      dirStat,
			wantDir:   "/",
			wantNames: []string{"app.yaml"},
			wantOut:   "to web:/app.yaml",
		},
		{
			name:      "existing file is replaced",
			dest:      "web:/etc/app/config.yaml",
			stat:      fileStat,
			wantDir:   "/etc/app",
			wantNames: []string{"config.yaml"},
			wantOut:   "to web:/etc/app/config.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := filepath.Join(t.TempDir(), "app.yaml")
			require.NoError(t, os.WriteFile(src, []byte("port: 8080\n"), 0o644))

			h := newHarness(t)

			var names []string

			remote := tt.dest[len("web:"):]
			h.api.On("ContainerStatPath", testifymock.Anything, "web", path.Clean(remote)).Return(tt.stat, tt.statErr)
			h.api.On("CopyToContainer", testifymock.Anything, "web", tt.wantDir, testifymock.Anything,
				container.CopyToContainerOptions{}).
				Run(captureTarNames(&names)).Return(nil)

			req := tsaotun.Request("cp").Arg(tsaotun.ArgSource, src).Arg(tsaotun.ArgDest, tt.dest).Build()

			out, err := h.dispatcher.Dispatch(t.Context(), req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantNames, names)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestCopy_UploadDirectoryIntoDirectory(t *testing.T) {
	t.Parallel()

	site := filepath.Join(t.TempDir(), "site")
	require.NoError(t, os.Mkdir(site, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(site, "index.html"), []byte("<p>hi</p>"), 0o644))

	h := newHarness(t)

	var names []string

	h.api.On("ContainerStatPath", testifymock.Anything, "web", "/srv").
		Return(container.PathStat{Mode: os.ModeDir | 0o755}, nil)
	h.api.On("CopyToContainer", testifymock.Anything, "web", "/srv", testifymock.Anything,
		container.CopyToContainerOptions{}).
		Run(captureTarNames(&names)).Return(nil)

	req := tsaotun.Request("cp").Arg(tsaotun.ArgSource, site).Arg(tsaotun.ArgDest, "web:/srv").Build()

	_, err := h.dispatcher.Dispatch(t.Context(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"site/", "site/index.html"}, names)
}

func TestCopy_UploadStatFailure(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(src, []byte("port: 8080\n"), 0o644))

	h := newHarness(t)
	h.api.On("ContainerStatPath", testifymock.Anything, "web", "/etc").
		Return(container.PathStat{}, errors.New("container web is not running"))

	req := tsaotun.Request("cp").Arg(tsaotun.ArgSource, src).Arg(tsaotun.ArgDest, "web:/etc").Build()

	_, err := h.dispatcher.Dispatch(t.Context(), req)
	require.ErrorContains(t, err, "not running")
	h.api.AssertNotCalled(t, "CopyToContainer", testifymock.Anything, testifymock.Anything,
		testifymock.Anything, testifymock.Anything, testifymock.Anything)
}

func captureTarNames(names *[]string) func(testifymock.Arguments) {
	return func(args testifymock.Arguments) {
		tr := tar.NewReader(args.Get(3).(io.Reader))

		for {
			hdr, err := tr.Next()
			if err != nil {
				return
			}

			*names = append(*names, hdr.Name)
		}
	}
}

func TestCopy_Download(t *testing.T) {
	t.Parallel()

	staged := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(staged, []byte("127.0.0.1 localhost\n"), 0o644))

	archive, err := io.ReadAll(fileutil.TarArchive(staged, "hosts"))
	require.NoError(t, err)

	h := newHarness(t)
	h.engine.Session().Use("web")
	h.api.On("CopyFromContainer", testifymock.Anything, "web", "/etc/hosts").
		Return(mock.Body(archive), container.PathStat{Name: "hosts"}, nil)

	dst := t.TempDir()
	req := tsaotun.Request("cp").Arg(tsaotun.ArgSource, ":/etc/hosts").Arg(tsaotun.ArgDest, dst).Build()

	out, err := h.dispatcher.Dispatch(t.Context(), req)
	require.NoError(t, err)
	assert.Contains(t, out, "from web:/etc/hosts")

	got, err := os.ReadFile(filepath.Join(dst, "hosts"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1 localhost\n", string(got))
}

func TestCopy_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src, dst string
	}{
		{name: "both local", src: "/tmp/a", dst: "/tmp/b"},
		{name: "both remote", src: "web:/a", dst: "db:/b"},
		{name: "missing destination", src: "web:/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)

			_, err := h.dispatcher.Dispatch(t.Context(), tsaotun.Request("cp").Arg(tsaotun.ArgSource, tt.src).Arg(tsaotun.ArgDest, tt.dst).Build())
			require.ErrorIs(t, err, tsaotun.ErrInvalidArgument)
		})
	}
}
