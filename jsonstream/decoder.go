package jsonstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// ErrTruncated indicates the buffer ended in the middle of a JSON value.
var ErrTruncated = errors.New("unexpected end of input")

// ParseError reports a malformed JSON value inside a concatenated buffer.
type ParseError struct {
	Offset int // Byte offset of the value that failed to decode
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed json value at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// isSpace matches ASCII whitespace, including form feed and vertical tab.
// Those two are accepted between values but not inside one.
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	default:
		return false
	}
}

// nextValue returns the offset of the next non-whitespace byte at or after pos, or -1.
func nextValue(buf string, pos int) int {
	for i := pos; i < len(buf); i++ {
		if !isSpace(buf[i]) {
			return i
		}
	}

	return -1
}

// Decode lazily yields every top-level JSON value in buf, left to right.
//
// Values may be separated by any amount of whitespace, including none. The
// sequence ends when only whitespace remains. A malformed value yields a
// *ParseError and ends the sequence; values yielded before it are unaffected.
// Each range over the returned sequence decodes buf from the start.
func Decode(buf string) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		pos := 0

		for {
			start := nextValue(buf, pos)
			if start < 0 {
				return
			}

			// encoding/json rejects \f and \v, so each value gets a decoder
			// positioned on its first byte.
			dec := json.NewDecoder(strings.NewReader(buf[start:]))

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				yield(nil, &ParseError{Offset: start, Err: normalizeEOF(err)})

				return
			}

			pos = start + int(dec.InputOffset())

			if !yield(raw, nil) {
				return
			}
		}
	}
}

// DecodeAll collects every value in buf. On failure the values decoded before
// the malformed one are returned together with the error.
func DecodeAll(buf string) ([]json.RawMessage, error) {
	var values []json.RawMessage

	for raw, err := range Decode(buf) {
		if err != nil {
			return values, err
		}

		values = append(values, raw)
	}

	return values, nil
}

// Values decodes each top-level value in buf into a T.
func Values[T any](buf string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for raw, err := range Decode(buf) {
			var v T
			if err != nil {
				yield(v, err)

				return
			}

			if err := json.Unmarshal(raw, &v); err != nil {
				yield(v, fmt.Errorf("unmarshal %s: %w", abbreviate(raw), err))

				return
			}

			if !yield(v, nil) {
				return
			}
		}
	}
}

// A truncated trailing value surfaces from encoding/json as an EOF error.
func normalizeEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}

	return err
}

func abbreviate(raw json.RawMessage) string {
	const limit = 32

	raw = bytes.TrimSpace(raw)
	if len(raw) <= limit {
		return string(raw)
	}

	return string(raw[:limit]) + "..."
}
