package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mito-gallery-service/internal/core/domain"
)

func newStore(t *testing.T) (string, *fileStore) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "screenshots")
	s, err := NewFileStore(Config{RootDir: root, URLPrefix: "/static/screenshots/"})
	require.NoError(t, err)
	return root, s.(*fileStore)
}

func TestNewFileStore_RequiresRoot(t *testing.T) {
	_, err := NewFileStore(Config{})

	assert.ErrorIs(t, err, domain.ErrCacheIO)
}

func TestFileStore_URL(t *testing.T) {
	_, s := newStore(t)

	assert.Equal(t, "/static/screenshots/115/270.png", s.URL(domain.ArtifactKey{EntityID: 115, Degrees: 270}))
}

func TestFileStore_PutExists(t *testing.T) {
	root, s := newStore(t)
	ctx := context.Background()
	key := domain.ArtifactKey{EntityID: 42, Degrees: 90}

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, key, []byte("png-bytes")))

	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := os.ReadFile(filepath.Join(root, "42", "90.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	leftovers, err := filepath.Glob(filepath.Join(root, "42", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileStore_LockStaysOutsideServedRoot(t *testing.T) {
	root, s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, domain.ArtifactKey{EntityID: 3, Degrees: 0}, []byte("png")))
	_, err := s.Clear(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, domain.ArtifactKey{EntityID: 4, Degrees: 0}, []byte("png")))

	assert.Equal(t, filepath.Join(filepath.Dir(root), ".screenshots.lock"), s.lockPath)
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, "4", e.Name())
	}
	_, err = os.Stat(s.lockPath)
	assert.NoError(t, err)
}

func TestFileStore_PutOverwrites(t *testing.T) {
	root, s := newStore(t)
	ctx := context.Background()
	key := domain.ArtifactKey{EntityID: 1, Degrees: 0}

	require.NoError(t, s.Put(ctx, key, []byte("old")))
	require.NoError(t, s.Put(ctx, key, []byte("new")))

	data, err := os.ReadFile(filepath.Join(root, "1", "0.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
}

func TestFileStore_EmptyFileIsAbsent(t *testing.T) {
	root, s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "5"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "5", "45.png"), nil, 0o644))

	ok, err := s.Exists(context.Background(), domain.ArtifactKey{EntityID: 5, Degrees: 45})

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_Clear(t *testing.T) {
	root, s := newStore(t)
	ctx := context.Background()
	for _, key := range []domain.ArtifactKey{
		{EntityID: 1, Degrees: 0},
		{EntityID: 1, Degrees: 45},
		{EntityID: 2, Degrees: 0},
	} {
		require.NoError(t, s.Put(ctx, key, []byte("png")))
	}
	// Unrelated content under the root must survive.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "thumbnails"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644))

	n, err := s.Clear(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	ok, err := s.Exists(ctx, domain.ArtifactKey{EntityID: 1, Degrees: 0})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.DirExists(t, filepath.Join(root, "thumbnails"))
	assert.FileExists(t, filepath.Join(root, "README"))

	n, err = s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFileStore_PutAfterClear(t *testing.T) {
	_, s := newStore(t)
	ctx := context.Background()
	key := domain.ArtifactKey{EntityID: 3, Degrees: 180}

	require.NoError(t, s.Put(ctx, key, []byte("png")))
	_, err := s.Clear(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, key, []byte("png")))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}
