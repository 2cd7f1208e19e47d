package fileutil

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContained(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		root      string
		target    string
		expectErr bool
	}{
		{
			name:      "Safe child",
			root:      "/tmp/safe",
			target:    "/tmp/safe/child.txt",
			expectErr: false,
		},
		{
			name:      "Safe deep child",
			root:      "/tmp/safe",
			target:    "/tmp/safe/dir/child.txt",
			expectErr: false,
		},
		{
			name:      "Root itself",
			root:      "/tmp/safe",
			target:    "/tmp/safe",
			expectErr: false,
		},
		{
			name:      "Traversal attempt",
			root:      "/tmp/safe",
			target:    "/tmp/safe/../evil.txt",
			expectErr: true,
		},
		{
			name:      "Direct parent traversal",
			root:      "/tmp/safe",
			target:    "/tmp/evil.txt",
			expectErr: true,
		},
		{
			name:      "Root prefix but not child",
			root:      "/tmp/safe",
			target:    "/tmp/safe_suffix_is_not_child",
			expectErr: true,
		},
		{
			name:      "Relative paths safe",
			root:      "safe",
			target:    "safe/child",
			expectErr: false,
		},
		{
			name:      "Relative paths unsafe",
			root:      "safe",
			target:    "safe/../evil",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Normalize for OS (Windows vs Unix)
			root := filepath.FromSlash(tt.root)
			target := filepath.FromSlash(tt.target)

			err := Contained(root, target)
			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "illegal file path")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransfer_Reports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		step int64
		want []int64
	}{
		{name: "every read", step: 0, want: []int64{1, 2, 3, 4, 5}},
		{name: "every two bytes", step: 2, want: []int64{2, 4}},
		{name: "step larger than input", step: 10, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got []int64

			tr := NewTransfer(t.Context(), iotest.OneByteReader(strings.NewReader("abcde")), tt.step, func(n int64) {
				got = append(got, n)
			})

			data, err := io.ReadAll(tr)
			require.NoError(t, err)

			assert.Equal(t, "abcde", string(data))
			assert.Equal(t, int64(5), tr.Bytes())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransfer_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())

	tr := NewTransfer(ctx, strings.NewReader("data"), 0, nil)

	buf := make([]byte, 2)

	n, err := tr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cancel()

	_, err = tr.Read(buf)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(2), tr.Bytes())
}
