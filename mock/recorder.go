package mock

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ruffel/tsaotun"
)

// Entry is a single recorded log call.
type Entry struct {
	Level   log.Level
	Message string
	Keyvals []any
}

// Value returns the value paired with key, or nil.
func (e Entry) Value(key string) any {
	for i := 0; i+1 < len(e.Keyvals); i += 2 {
		if e.Keyvals[i] == key {
			return e.Keyvals[i+1]
		}
	}

	return nil
}

// Recorder is a tsaotun.Logger that keeps every call for later assertions.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

var _ tsaotun.Logger = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Debug(msg interface{}, keyvals ...interface{}) {
	r.record(log.DebugLevel, msg, keyvals)
}

func (r *Recorder) Info(msg interface{}, keyvals ...interface{}) {
	r.record(log.InfoLevel, msg, keyvals)
}

func (r *Recorder) Error(msg interface{}, keyvals ...interface{}) {
	r.record(log.ErrorLevel, msg, keyvals)
}

func (r *Recorder) record(level log.Level, msg interface{}, keyvals []interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, Entry{Level: level, Message: fmt.Sprint(msg), Keyvals: keyvals})
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)

	return out
}

// Messages returns the messages recorded at level, in order.
func (r *Recorder) Messages(level log.Level) []string {
	var out []string

	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}

	return out
}

// String renders every entry as "LEVEL message" lines.
func (r *Recorder) String() string {
	var b strings.Builder

	for _, e := range r.Entries() {
		fmt.Fprintf(&b, "%s %s\n", strings.ToUpper(e.Level.String()), e.Message)
	}

	return b.String()
}
