package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_StatusLines(t *testing.T) {
	var buf bytes.Buffer
	sink := Console(&buf)

	sink.Info("running tests against %s", "DEV1:{Sim:0}")
	sink.Success("done")
	sink.Warning("kill failed")
	sink.Error("connection timeout")

	assert.Equal(t,
		"ℹ running tests against DEV1:{Sim:0}\n✓ done\n⚠ kill failed\n✗ connection timeout\n",
		buf.String())
	assert.False(t, sink.IsFile())
	assert.Empty(t, sink.Path())
}

func TestConsole_CloseIsNoop(t *testing.T) {
	var buf bytes.Buffer
	sink := Console(&buf)

	require.NoError(t, sink.Close())
	sink.Printf("still open")

	assert.Equal(t, "still open\n", buf.String())
}

func TestOpen_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	require.NoError(t, os.WriteFile(path, []byte("previous session\n"), 0o644))

	sink, err := Open(path)
	require.NoError(t, err)
	assert.True(t, sink.IsFile())
	assert.Equal(t, path, sink.Path())

	sink.Error("validation failed")
	sink.Banner("banner\n")
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous session\n✗ validation failed\nbanner\n", string(data))
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "out.log"))
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	sink, err := Open(filepath.Join(t.TempDir(), "out.log"))
	require.NoError(t, err)

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	_, err = sink.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)

	// Status lines after close are dropped, not panics.
	sink.Warning("after close")
}

func TestSink_ConcurrentWritesKeepLinesIntact(t *testing.T) {
	var buf bytes.Buffer
	sink := Console(&buf)

	const writers = 8
	const lines = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < lines; j++ {
				sink.Printf("writer-%d line-%d", id, j)
			}
		}(i)
	}
	wg.Wait()

	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, got, writers*lines)
	for _, line := range got {
		assert.True(t, strings.HasPrefix(line, "writer-"), "interleaved line: %q", line)
	}
}
