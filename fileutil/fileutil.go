// Package fileutil moves files in and out of containers: it streams local
// trees as tar archives, extracts archives returned by the daemon, and
// meters each transfer.
package fileutil

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
)

// Transfer meters one copy to or from a container. Reads fail once ctx is
// done, and report is called each time another step bytes have passed.
type Transfer struct {
	ctx    context.Context //nolint:containedctx
	src    io.Reader
	step   int64
	next   int64
	n      int64
	report func(n int64)
}

// NewTransfer wraps src. A step of 0 or less reports after every read; a nil
// report disables reporting.
func NewTransfer(ctx context.Context, src io.Reader, step int64, report func(n int64)) *Transfer {
	return &Transfer{ctx: ctx, src: src, step: max(step, 0), next: max(step, 0), report: report}
}

func (t *Transfer) Read(p []byte) (int, error) {
	if err := t.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := t.src.Read(p)
	t.n += int64(n)

	if n > 0 && t.report != nil && t.n >= t.next {
		t.next = t.n + t.step
		t.report(t.n)
	}

	return n, err
}

// Bytes returns how many bytes have been read so far.
func (t *Transfer) Bytes() int64 {
	return t.n
}

// Contained fails unless target, once resolved, is root or lies beneath it.
// Archive entries are checked with it before anything is written.
func Contained(root, target string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("illegal file path: cannot resolve root %s: %w", root, err)
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("illegal file path: cannot resolve target %s: %w", target, err)
	}

	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil || !filepath.IsLocal(rel) {
		return fmt.Errorf("illegal file path: %s escapes %s", target, root)
	}

	return nil
}
