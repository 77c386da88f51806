package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(root, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "b.hcl", "a.hcl", "notes.txt", "sub/c.hcl")

	files, err := FindFilesByExtension(root, ".hcl")

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "sub", "c.hcl"),
	}, files)
	assert.Panics(t, func() { _, _ = FindFilesByExtension(root, "") })
}

func TestCollectFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "build.hcl", "extra/more.hcl", "extra/readme.md")

	t.Run("files and directories are merged without duplicates", func(t *testing.T) {
		files, err := CollectFiles([]string{
			filepath.Join(root, "build.hcl"),
			root,
		}, ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "build.hcl"),
			filepath.Join(root, "extra", "more.hcl"),
		}, files)
	})

	t.Run("missing path is an error", func(t *testing.T) {
		_, err := CollectFiles([]string{filepath.Join(root, "nope.hcl")}, ".hcl")
		assert.ErrorContains(t, err, "error accessing path")
	})
}
