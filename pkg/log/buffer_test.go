package log_test

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramendr/drenv/pkg/log"
)

func TestCircularBuffer_NewCircularBuffer(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		capacity int
		want     int
	}{
		"positive":        {capacity: 10, want: 10},
		"zero defaults":   {capacity: 0, want: log.DefaultBufferLines},
		"negative values": {capacity: -5, want: log.DefaultBufferLines},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cb := log.NewCircularBuffer(tc.capacity)
			assert.Equal(t, tc.want, cb.Capacity())
			assert.Zero(t, cb.Len())
			assert.Empty(t, cb.Lines())
		})
	}
}

func TestCircularBuffer_Write(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		writes []string
		want   []string
	}{
		"single line": {
			writes: []string{"one\n"},
			want:   []string{"one"},
		},
		"multiple lines in one write": {
			writes: []string{"one\ntwo\nthree\n"},
			want:   []string{"one", "two", "three"},
		},
		"line split across writes": {
			writes: []string{"partial ", "line\n"},
			want:   []string{"partial line"},
		},
		"trailing data without newline": {
			writes: []string{"one\ntw", "o"},
			want:   []string{"one", "two"},
		},
		"carriage returns are trimmed": {
			writes: []string{"one\r\n"},
			want:   []string{"one"},
		},
		"empty write": {
			writes: []string{""},
			want:   []string{},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cb := log.NewCircularBuffer(10)
			for _, w := range tc.writes {
				n, err := cb.Write([]byte(w))
				require.NoError(t, err)
				assert.Equal(t, len(w), n)
			}

			assert.Equal(t, tc.want, cb.Lines())
		})
	}
}

func TestCircularBuffer_Overwrite(t *testing.T) {
	t.Parallel()

	cb := log.NewCircularBuffer(3)
	for i := range 5 {
		_, err := fmt.Fprintf(cb, "line%d\n", i)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"line2", "line3", "line4"}, cb.Lines())
	assert.Equal(t, 3, cb.Len())
	assert.Equal(t, 2, cb.Dropped())
	assert.Equal(t, "line2\nline3\nline4", cb.String())
}

func TestCircularBuffer_Reset(t *testing.T) {
	t.Parallel()

	cb := log.NewCircularBuffer(2)
	_, err := cb.Write([]byte("a\nb\nc\npending"))
	require.NoError(t, err)

	cb.Reset()

	assert.Empty(t, cb.Lines())
	assert.Zero(t, cb.Len())
	assert.Zero(t, cb.Dropped())

	_, err = cb.Write([]byte("d\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, cb.Lines())
}

func TestCircularBuffer_WriteTo(t *testing.T) {
	t.Parallel()

	cb := log.NewCircularBuffer(5)
	_, err := cb.Write([]byte("first\nsecond\n"))
	require.NoError(t, err)

	var buf bytes.Buffer

	n, err := cb.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, "first\nsecond\n", buf.String())
}

func TestCircularBuffer_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cb := log.NewCircularBuffer(100)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 20 {
				_, err := fmt.Fprintf(cb, "writer%d-%d\n", id, j)
				assert.NoError(t, err)
				_ = cb.Lines()
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 100, cb.Len())
	assert.Equal(t, 100, cb.Dropped())
}
