package scratch_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist/internal/scratch"
)

func TestWriteAndRelease(t *testing.T) {
	t.Parallel()

	dir, err := scratch.New("cymbal-test-")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.ReleaseAll() })

	path, err := dir.Write("chart.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, dir.Root(), filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "chart-"))
	assert.Equal(t, ".png", filepath.Ext(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(got))
	assert.Equal(t, []string{path}, dir.Files())

	require.NoError(t, dir.Release(path))
	assert.NoFileExists(t, path)
	assert.Empty(t, dir.Files())

	// Idempotent.
	require.NoError(t, dir.Release(path))
	require.NoError(t, dir.Release("/not/tracked"))
}

func TestWriteStripsDirectories(t *testing.T) {
	t.Parallel()

	dir, err := scratch.New("cymbal-test-")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.ReleaseAll() })

	path, err := dir.Write("../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, dir.Root(), filepath.Dir(path))
}

func TestReleaseAll(t *testing.T) {
	t.Parallel()

	dir, err := scratch.New("cymbal-test-")
	require.NoError(t, err)

	a, err := dir.Write("a.jpg", []byte("a"))
	require.NoError(t, err)
	b, err := dir.Write("b.jpg", []byte("b"))
	require.NoError(t, err)

	require.NoError(t, dir.ReleaseAll())
	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
	assert.NoDirExists(t, dir.Root())

	require.NoError(t, dir.ReleaseAll())

	_, err = dir.Write("c.jpg", []byte("c"))
	assert.Error(t, err)
}
