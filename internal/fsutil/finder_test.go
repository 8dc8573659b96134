package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	for _, name := range []string{"a.hcl", "b.test.hcl", "nested/c.hcl", "readme.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(""), 0o644))
	}

	t.Run("directory with exclusion", func(t *testing.T) {
		files, err := CollectFiles(dir, ".hcl", ".test.hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.hcl"),
			filepath.Join(dir, "nested", "c.hcl"),
		}, files)
	})

	t.Run("test files only", func(t *testing.T) {
		files, err := CollectFiles(dir, ".test.hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "b.test.hcl")}, files)
	})

	t.Run("single file root", func(t *testing.T) {
		files, err := CollectFiles(filepath.Join(dir, "a.hcl"), ".hcl", ".test.hcl")
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("single file root excluded", func(t *testing.T) {
		files, err := CollectFiles(filepath.Join(dir, "b.test.hcl"), ".hcl", ".test.hcl")
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := CollectFiles(filepath.Join(dir, "nope"), ".hcl")
		assert.Error(t, err)
	})
}
