package logio

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLinesAreTimestamped(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := New(fs, "injector.log")
	require.NoError(t, w.Open())

	w.Line("attached to pid %d", 4242)
	w.Line("load wait exceeded %dms", 1000)
	require.NoError(t, w.Close())

	content, err := afero.ReadFile(fs, "injector.log")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "attached to pid 4242")
	assert.True(t, strings.HasPrefix(lines[0], "20"), "expected a leading timestamp, got %q", lines[0])
}

func TestWriterLineBeforeOpenIsANoop(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := New(fs, "injector.log")
	w.Line("should not panic or write anything")

	exists, _ := afero.Exists(fs, "injector.log")
	assert.False(t, exists)
}

func TestWriterCloseIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := New(fs, "injector.log")
	require.NoError(t, w.Open())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
