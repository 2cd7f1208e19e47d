package tsaotun

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "short lines",
			input: "ab\ncd\r\n\nef",
			want:  []string{"ab", "cd", "", "ef"},
		},
		{
			name:  "line cut at limit",
			input: "abcdefg\nhi",
			want:  []string{"abcd", "efg", "hi"},
		},
		{
			name:  "cut backs off to rune boundary",
			input: "ab€cd\n",
			want:  []string{"ab", "€c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			scanner := bufio.NewScanner(strings.NewReader(tt.input))
			scanner.Buffer(make([]byte, 0, 2), 4)
			scanner.Split(splitLines(4))

			var got []string
			for scanner.Scan() {
				got = append(got, scanner.Text())
			}

			require.NoError(t, scanner.Err())
			assert.Equal(t, tt.want, got)
		})
	}
}
