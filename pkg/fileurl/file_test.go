package fileurl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "state.json")

	require.NoError(t, WriteFileAtomic(dst, []byte(`{"a":1}`), 0o644))
	require.NoError(t, WriteFileAtomic(dst, []byte(`{"a":2}`), 0o644))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/srv", "data", "x.json"), ResolvePath("./data/x.json", "/srv"))
	assert.Equal(t, "/abs/x.json", ResolvePath("/abs/x.json", "/srv"))
	assert.Equal(t, "", ResolvePath("", "/srv"))
	assert.False(t, IsExist(filepath.Join(t.TempDir(), "missing")))
	assert.True(t, IsDir(t.TempDir()))
}
