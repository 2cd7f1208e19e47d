package tsaotun

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/dustin/go-humanize"
	"github.com/ruffel/tsaotun/jsonstream"
	"golang.org/x/sync/errgroup"
)

// maxLineSize bounds a single emitted line. Longer lines are emitted in pieces.
const maxLineSize = 1024 * 1024

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithConsumerTimeout sets the inactivity deadline (default DefaultInactivityTimeout).
func WithConsumerTimeout(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMode labels the stream for errors and diagnostics.
func WithMode(m Mode) ConsumerOption {
	return func(c *Consumer) {
		c.mode = m
	}
}

// WithJSONEvents treats every line as one or more concatenated JSON progress
// messages and emits a formatted rendition of each instead of the raw line.
func WithJSONEvents() ConsumerOption {
	return func(c *Consumer) {
		c.jsonEvents = true
	}
}

// Consumer forwards a line stream to a Logger until the stream ends or stays
// silent for longer than its inactivity deadline.
//
// A Consumer is meant for a single Consume call.
type Consumer struct {
	sink       Logger
	timeout    time.Duration
	mode       Mode
	jsonEvents bool

	state atomic.Int32
	lines atomic.Int64
}

// NewConsumer creates a Consumer emitting to sink.
func NewConsumer(sink Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		sink:    sink,
		timeout: DefaultInactivityTimeout,
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// State returns the consumer's current lifecycle state. Safe for concurrent use.
func (c *Consumer) State() State {
	return State(c.state.Load())
}

// Lines returns how many lines have been received so far. Safe for concurrent use.
func (c *Consumer) Lines() int64 {
	return c.lines.Load()
}

// Consume reads src line by line, emitting each line at INFO level in the
// order received. Every line resets the inactivity deadline.
//
// It returns StateTimedOut (with a nil error) when the deadline elapses,
// StateClosed when src ends, and a *StreamError when reading src fails.
// Cancelling ctx stops consumption with the context's error. src is closed
// before Consume returns.
func (c *Consumer) Consume(ctx context.Context, src io.ReadCloser) (State, error) {
	c.state.Store(int32(StateStreaming))

	lines := make(chan string)
	done := make(chan struct{})

	var g errgroup.Group

	g.Go(func() error {
		return scanLines(src, lines, done)
	})

	state, err := c.loop(ctx, lines)

	close(done)

	_ = src.Close()

	scanErr := g.Wait()
	if err == nil && state == StateClosed && scanErr != nil {
		err = &StreamError{Mode: c.mode, Err: scanErr}
	}

	c.state.Store(int32(state))

	return state, err
}

func (c *Consumer) loop(ctx context.Context, lines <-chan string) (State, error) {
	deadline := NewDeadline(c.timeout)

	timer := time.NewTimer(deadline.Remaining())
	defer timer.Stop()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return StateClosed, nil
			}

			c.lines.Add(1)
			c.emit(line)

			if deadline.Expired() {
				return StateTimedOut, nil
			}

			deadline.Reset()
			timer.Reset(deadline.Remaining())
		case <-timer.C:
			if remaining := deadline.Remaining(); remaining > 0 {
				timer.Reset(remaining)

				continue
			}

			c.sink.Debug("stream inactive, giving up", "mode", c.mode, "timeout", c.timeout)

			return StateTimedOut, nil
		case <-ctx.Done():
			return StateClosed, ctx.Err()
		}
	}
}

// scanLines feeds lines from r into out until r is exhausted or done is closed.
func scanLines(r io.Reader, out chan<- string, done <-chan struct{}) error {
	defer close(out)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(splitLines(maxLineSize))

	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-done:
			return nil
		}
	}

	return scanner.Err()
}

// splitLines behaves like bufio.ScanLines, except that a line reaching limit
// bytes without a newline is cut at limit (backing off to a rune boundary)
// instead of failing the scan.
func splitLines(limit int) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := bufio.ScanLines(data, atEOF)
		if advance > 0 || token != nil || err != nil || len(data) < limit {
			return advance, token, err
		}

		cut := limit

		for i := 1; i < utf8.UTFMax && i <= cut; i++ {
			if utf8.RuneStart(data[cut-i]) {
				if !utf8.FullRune(data[cut-i : cut]) {
					cut -= i
				}

				break
			}
		}

		return cut, data[:cut], nil
	}
}

func (c *Consumer) emit(line string) {
	if !c.jsonEvents {
		c.sink.Info(line)

		return
	}

	for raw, err := range jsonstream.Decode(line) {
		if err != nil {
			c.sink.Debug("undecodable progress message", "error", err)
			c.sink.Info(line)

			return
		}

		var msg jsonmessage.JSONMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sink.Info(string(raw))

			continue
		}

		if msg.Error != nil {
			c.sink.Error(msg.Error.Message)

			continue
		}

		if text := formatMessage(msg); text != "" {
			c.sink.Info(text)
		}
	}
}

// formatMessage renders a progress message as "id: status current/total".
func formatMessage(msg jsonmessage.JSONMessage) string {
	var b strings.Builder

	if msg.ID != "" {
		b.WriteString(msg.ID)
		b.WriteString(": ")
	}

	b.WriteString(msg.Status)

	if msg.Stream != "" {
		b.WriteString(strings.TrimRight(msg.Stream, "\n"))
	}

	if p := msg.Progress; p != nil && p.Current > 0 {
		if p.Total > 0 {
			fmt.Fprintf(&b, " %s/%s", humanize.Bytes(uint64(p.Current)), humanize.Bytes(uint64(p.Total)))
		} else {
			fmt.Fprintf(&b, " %s", humanize.Bytes(uint64(p.Current)))
		}
	}

	return strings.TrimSpace(b.String())
}

// demuxed is a plain byte stream recovered from Docker's multiplexed
// stdout/stderr framing. Closing it closes the framed source as well.
type demuxed struct {
	*io.PipeReader

	src io.Closer
}

func (d *demuxed) Close() error {
	_ = d.PipeReader.Close()

	return d.src.Close()
}

// demux copies both framed channels of src into a single stream.
// wait blocks until the copying goroutine has returned.
func demux(src io.ReadCloser) (stream io.ReadCloser, wait func()) {
	pr, pw := io.Pipe()

	var wg sync.WaitGroup

	// A copy error reaches the reader through the pipe.
	wg.Go(func() {
		_, err := stdcopy.StdCopy(pw, pw, src)
		_ = pw.CloseWithError(err)
	})

	return &demuxed{PipeReader: pr, src: src}, wg.Wait
}
