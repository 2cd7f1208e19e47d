package commands

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/dustin/go-humanize"
	"github.com/ruffel/tsaotun"
	"github.com/ruffel/tsaotun/fileutil"
)

// progressStep is how many bytes pass between transfer progress reports.
const progressStep = 1 << 20

// Copy copies files between the local filesystem and a container. Exactly
// one of the "src" and "dst" arguments must be a container location of the
// form CONTAINER:PATH; ":PATH" refers to the last active container.
type Copy struct{}

func (Copy) Name() string { return "cp" }

func (Copy) Run(ctx context.Context, args tsaotun.Arguments, engine *tsaotun.Engine) (string, error) {
	src := parseLocation(args.String(tsaotun.ArgSource))
	dst := parseLocation(args.String(tsaotun.ArgDest))

	switch {
	case src.Path == "" || dst.Path == "":
		return "", fmt.Errorf("%w: cp needs a source and a destination", tsaotun.ErrInvalidArgument)
	case src.Remote == dst.Remote:
		return "", fmt.Errorf("%w: exactly one of source and destination must be a container path", tsaotun.ErrInvalidArgument)
	case src.Remote:
		return download(ctx, engine, src.Container, src.Path, dst.Path)
	default:
		return upload(ctx, engine, src.Path, dst.Container, dst.Path)
	}
}

// location is one side of a copy.
type location struct {
	Remote    bool
	Container string
	Path      string
}

// parseLocation splits CONTAINER:PATH. Absolute and dot-relative paths are
// always local.
func parseLocation(arg string) location {
	if arg == "" || filepath.IsAbs(arg) || strings.HasPrefix(arg, ".") {
		return location{Path: arg}
	}

	name, p, ok := strings.Cut(arg, ":")
	if !ok {
		return location{Path: arg}
	}

	return location{Remote: true, Container: name, Path: p}
}

func upload(ctx context.Context, engine *tsaotun.Engine, local, containerID, remote string) (string, error) {
	id, err := engine.ResolveContainer(containerID)
	if err != nil {
		return "", err
	}

	if !path.IsAbs(remote) {
		return "", fmt.Errorf("%w: container path %q must be absolute", tsaotun.ErrInvalidArgument, remote)
	}

	abs, err := filepath.Abs(local)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(abs); err != nil {
		return "", err
	}

	dir, name, err := uploadTarget(ctx, engine.API(), id, path.Clean(remote), filepath.Base(abs))
	if err != nil {
		return "", err
	}

	archive := fileutil.TarArchive(abs, name)
	defer func() { _ = archive.Close() }()

	progress := fileutil.NewTransfer(ctx, archive, progressStep, progressLogger(engine.Logger(), "upload"))

	if err := engine.API().CopyToContainer(ctx, id, dir, progress, container.CopyToContainerOptions{}); err != nil {
		return "", fmt.Errorf("failed to copy to container: %w", err)
	}

	return fmt.Sprintf("copied %s to %s:%s", humanize.Bytes(uint64(progress.Bytes())), shortID(id), path.Join(dir, name)), nil
}

// uploadTarget returns the container directory to extract into and the name
// of the archive root. An existing directory receives the local base name.
// Any other path is written under its own name inside its parent.
func uploadTarget(ctx context.Context, api tsaotun.API, id, remote, localBase string) (string, string, error) {
	stat, err := api.ContainerStatPath(ctx, id, remote)

	switch {
	case err == nil && stat.Mode.IsDir():
		return remote, localBase, nil
	case err != nil && tsaotun.Classify(err) != tsaotun.ClassNotFound:
		return "", "", fmt.Errorf("failed to stat %s: %w", remote, err)
	case remote == "/":
		return "", "", fmt.Errorf("%w: cannot replace the container root", tsaotun.ErrInvalidArgument)
	}

	return path.Dir(remote), path.Base(remote), nil
}

func download(ctx context.Context, engine *tsaotun.Engine, containerID, remote, local string) (string, error) {
	id, err := engine.ResolveContainer(containerID)
	if err != nil {
		return "", err
	}

	reader, _, err := engine.API().CopyFromContainer(ctx, id, remote)
	if err != nil {
		return "", fmt.Errorf("failed to copy from container: %w", err)
	}

	defer func() { _ = reader.Close() }()

	if fi, err := os.Stat(local); err == nil && fi.IsDir() {
		local = filepath.Join(local, path.Base(remote))
	}

	progress := fileutil.NewTransfer(ctx, reader, progressStep, progressLogger(engine.Logger(), "download"))

	if err := fileutil.Untar(progress, local); err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", remote, err)
	}

	return fmt.Sprintf("copied %s from %s:%s", humanize.Bytes(uint64(progress.Bytes())), shortID(id), remote), nil
}

// progressLogger reports transfer progress at debug level.
func progressLogger(l tsaotun.Logger, op string) func(n int64) {
	return func(n int64) {
		l.Debug("transferring", "op", op, "bytes", humanize.Bytes(uint64(n)))
	}
}
