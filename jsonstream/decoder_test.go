package jsonstream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		buf  string
		want []string
	}{
		{
			name: "no separator",
			buf:  `{"a":1}{"b":2}`,
			want: []string{`{"a":1}`, `{"b":2}`},
		},
		{
			name: "surrounding and blank lines",
			buf:  "  {\"a\":1}\n\n{\"b\":2}  ",
			want: []string{`{"a":1}`, `{"b":2}`},
		},
		{
			name: "mixed value kinds",
			buf:  "[1,2]\t\"x\" 3 true null{}",
			want: []string{`[1,2]`, `"x"`, `3`, `true`, `null`, `{}`},
		},
		{
			name: "adjacent literals",
			buf:  "truefalse",
			want: []string{`true`, `false`},
		},
		{
			name: "nested documents",
			buf:  `{"status":"Pulling","progressDetail":{"current":1,"total":2}}{"status":"Done"}`,
			want: []string{
				`{"status":"Pulling","progressDetail":{"current":1,"total":2}}`,
				`{"status":"Done"}`,
			},
		},
		{
			name: "form feed between numbers",
			buf:  "1\f2",
			want: []string{`1`, `2`},
		},
		{
			name: "vertical tab between objects",
			buf:  "{\"a\":1}\v{\"b\":2}",
			want: []string{`{"a":1}`, `{"b":2}`},
		},
		{
			name: "mixed ascii whitespace",
			buf:  "\f\v [1] \v\f\r\n\"x\"\f",
			want: []string{`[1]`, `"x"`},
		},
		{
			name: "empty",
			buf:  "",
			want: nil,
		},
		{
			name: "whitespace only",
			buf:  " \r\n\t\f\v ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeAll(tt.buf)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))

			for i, raw := range got {
				assert.JSONEq(t, tt.want[i], string(raw), "value %d", i)
			}
		})
	}
}

func TestDecode_EqualsIsolatedDecode(t *testing.T) {
	t.Parallel()

	docs := []string{`{"a":[1,{"b":null}]}`, `"str"`, `-1.5e3`, `[]`}
	buf := docs[0] + docs[1] + "\n" + docs[2] + "   " + docs[3]

	i := 0

	for raw, err := range Decode(buf) {
		require.NoError(t, err)

		var got, want any
		require.NoError(t, json.Unmarshal(raw, &got))
		require.NoError(t, json.Unmarshal([]byte(docs[i]), &want))
		assert.Equal(t, want, got)

		i++
	}

	assert.Equal(t, len(docs), i)
}

func TestDecode_MalformedFirstValue(t *testing.T) {
	t.Parallel()

	var yielded int

	var parseErr *ParseError

	for _, err := range Decode(`  {"a":} {"b":2}`) {
		if err != nil {
			require.ErrorAs(t, err, &parseErr)

			break
		}

		yielded++
	}

	assert.Equal(t, 0, yielded)
	require.NotNil(t, parseErr)
	assert.Equal(t, 2, parseErr.Offset)
}

func TestDecode_MalformedAfterValid(t *testing.T) {
	t.Parallel()

	values, err := DecodeAll(`{"a":1} {"b":`)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 8, parseErr.Offset)

	require.Len(t, values, 1)
	assert.JSONEq(t, `{"a":1}`, string(values[0]))
}

func TestDecode_Restartable(t *testing.T) {
	t.Parallel()

	seq := Decode(`1 2 3`)

	count := func() int {
		n := 0
		for _, err := range seq {
			require.NoError(t, err)
			n++
		}

		return n
	}

	assert.Equal(t, 3, count())
	assert.Equal(t, 3, count())
}

func TestDecode_StopsEarly(t *testing.T) {
	t.Parallel()

	var first json.RawMessage

	for raw, err := range Decode(`{"a":1}{"b":2}{"c":`) {
		require.NoError(t, err)

		first = raw

		break
	}

	assert.JSONEq(t, `{"a":1}`, string(first))
}

func TestValues(t *testing.T) {
	t.Parallel()

	type event struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}

	var got []event

	for ev, err := range Values[event](`{"status":"Waiting","id":"a1"}{"status":"Done","id":"b2"}`) {
		require.NoError(t, err)

		got = append(got, ev)
	}

	assert.Equal(t, []event{{Status: "Waiting", ID: "a1"}, {Status: "Done", ID: "b2"}}, got)
}

func TestValues_TypeMismatch(t *testing.T) {
	t.Parallel()

	var last error

	for _, err := range Values[map[string]int](`{"a":1} [1]`) {
		last = err
	}

	require.Error(t, last)
	assert.Contains(t, last.Error(), "unmarshal [1]")
}

func TestDecode_FormFeedInsideValue(t *testing.T) {
	t.Parallel()

	values, err := DecodeAll("1 [1,\f2]")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2, parseErr.Offset)
	require.Len(t, values, 1)
	assert.JSONEq(t, `1`, string(values[0]))
}
