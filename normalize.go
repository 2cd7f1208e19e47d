package tsaotun

import (
	"context"
	"errors"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/client"
	"github.com/ruffel/tsaotun/daemon"
)

// ErrorClass groups daemon-facing failures by how they are handled.
type ErrorClass int

const (
	// ClassNone is the class of a nil error.
	ClassNone ErrorClass = iota
	// ClassNotFound covers missing or already-removed targets; ignored silently.
	ClassNotFound
	// ClassCanceled covers caller cancellation; ignored silently.
	ClassCanceled
	// ClassUsage covers malformed calls (bad or missing arguments); logged and absorbed.
	ClassUsage
	// ClassAPI covers any other rejection by the daemon; logged and absorbed.
	ClassAPI
	// ClassConnection covers an unreachable daemon. Fatal at bootstrap,
	// logged and absorbed mid-operation.
	ClassConnection
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassNotFound:
		return "not-found"
	case ClassCanceled:
		return "canceled"
	case ClassUsage:
		return "usage"
	case ClassAPI:
		return "api"
	case ClassConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// Ignorable reports whether failures of this class are swallowed without logging.
func (c ErrorClass) Ignorable() bool {
	return c == ClassNone || c == ClassNotFound || c == ClassCanceled
}

// Classify maps err to its ErrorClass.
func Classify(err error) ErrorClass {
	var connErr *daemon.ConnectionError

	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrNullResource), cerrdefs.IsNotFound(err):
		return ClassNotFound
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case errors.Is(err, ErrInvalidArgument), cerrdefs.IsInvalidArgument(err):
		return ClassUsage
	case client.IsErrConnectionFailed(err), errors.As(err, &connErr):
		return ClassConnection
	default:
		return ClassAPI
	}
}

// daemonPrefix is how the Docker client prefixes messages returned by the daemon.
const daemonPrefix = "Error response from daemon: "

// Explanation returns the human-readable reason carried by err, without the
// client's wrapping prefixes.
func Explanation(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	if i := strings.LastIndex(msg, daemonPrefix); i >= 0 {
		msg = msg[i+len(daemonPrefix):]
	}

	return strings.TrimSpace(msg)
}

// absorb applies the per-operation failure policy: ignorable failures vanish,
// everything else is logged once at ERROR with its explanation.
func (e *Engine) absorb(op string, err error) {
	class := Classify(err)
	if class.Ignorable() {
		return
	}

	e.logger.Error(Explanation(err), "op", op, "class", class)
}
