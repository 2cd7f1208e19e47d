package tsaotun

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultShell wraps exec commands so they run through a shell.
var DefaultShell = []string{"/bin/bash", "-c"}

// Config holds Engine settings derived from options.
type Config struct {
	Host    string        // Daemon host, kept for diagnostics
	Logger  Logger        // Sink for streamed lines and failures
	Session *Session      // Last-active container tracking
	Timeout time.Duration // Inactivity deadline for streams
	Shell   []string      // Exec wrapper; empty runs the command directly
}

// DefaultConfig returns the defaults used by NewEngine.
func DefaultConfig() Config {
	return Config{
		Host:    "127.0.0.1",
		Logger:  log.New(io.Discard),
		Session: NewSession(),
		Timeout: DefaultInactivityTimeout,
		Shell:   slices.Clone(DefaultShell),
	}
}

// Option defines a functional option for an Engine.
type Option func(*Config)

// WithHost records the daemon host for diagnostics.
func WithHost(host string) Option {
	return func(c *Config) {
		c.Host = host
	}
}

// WithLogger sets the logging sink.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithSession shares a caller-owned session with the engine.
func WithSession(s *Session) Option {
	return func(c *Config) {
		if s != nil {
			c.Session = s
		}
	}
}

// WithInactivityTimeout sets how long a stream may stay silent.
func WithInactivityTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithShell sets the argv prefix used to run exec commands, e.g. "sh", "-c".
// With no arguments, commands are split with shell quoting rules and run directly.
func WithShell(argv ...string) Option {
	return func(c *Config) {
		c.Shell = slices.Clone(argv)
	}
}
