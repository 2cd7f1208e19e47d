package tsaotun

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Well-known argument keys shared by the CLI and the handlers.
const (
	ArgContainer = "container"
	ArgCommand   = "command"
	ArgPath      = "path"
	ArgImage     = "image"
	ArgAll       = "all"
	ArgForce     = "force"
	ArgTimeout   = "timeout"
	ArgSource    = "src"
	ArgDest      = "dst"
)

// Arguments maps option names to values for a single command invocation.
type Arguments map[string]any

// Has reports whether key is set to a non-nil value.
func (a Arguments) Has(key string) bool {
	v, ok := a[key]

	return ok && v != nil
}

// Set stores value under key.
func (a Arguments) Set(key string, value any) {
	a[key] = value
}

// String returns the value of key as a string, or "" when unset.
func (a Arguments) String(key string) string {
	switch v := a[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the value of key as a bool. Strings are parsed with strconv.ParseBool.
func (a Arguments) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)

		return b
	default:
		return false
	}
}

// Int returns the value of key as an int and whether it was set and numeric.
func (a Arguments) Int(key string) (int, bool) {
	switch v := a[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))

		return n, err == nil
	default:
		return 0, false
	}
}

// Clone returns a shallow copy of the arguments.
func (a Arguments) Clone() Arguments {
	if a == nil {
		return Arguments{}
	}

	return maps.Clone(a)
}

// Keys returns the argument names in sorted order.
func (a Arguments) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

// CommandRequest is the parsed intent of a single invocation.
type CommandRequest struct {
	Name      string
	Arguments Arguments

	// RequiresPrerequisite asks the dispatcher to run the handler's
	// prerequisite step even if the handler does not demand it.
	RequiresPrerequisite bool
}

// ExecutionTarget identifies the container and directory a command runs against.
type ExecutionTarget struct {
	ContainerID string // Empty means the session's last active container
	WorkingPath string // Working directory inside the container (empty keeps the image default)
}

// Mode selects which daemon stream a Consumer is reading.
type Mode int

const (
	// ModeExec streams the combined output of a command executed in a container.
	ModeExec Mode = iota
	// ModeLogs streams a container's stdout log.
	ModeLogs
	// ModePull streams image pull progress events.
	ModePull
)

func (m Mode) String() string {
	switch m {
	case ModeExec:
		return "exec"
	case ModeLogs:
		return "logs"
	case ModePull:
		return "pull"
	default:
		return "unknown"
	}
}

// State is the lifecycle position of a Consumer.
type State int

const (
	// StateIdle is the state before a stream is opened.
	StateIdle State = iota
	// StateStreaming means lines are being forwarded.
	StateStreaming
	// StateTimedOut means the inactivity deadline elapsed before the stream ended.
	StateTimedOut
	// StateClosed means the stream ended on its own (or was abandoned on error).
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateTimedOut:
		return "timed-out"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
