package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"mito-gallery-service/internal/core/domain"
	ports "mito-gallery-service/internal/core/ports/output"
)

const (
	lockSuffix     = ".lock"
	imageExt       = ".png"
	lockRetryDelay = 50 * time.Millisecond
)

type Config struct {
	// RootDir holds one directory per mitochondrion: <root>/<id>/<degrees>.png
	RootDir string
	// URLPrefix is where RootDir is served over HTTP.
	URLPrefix string
}

type fileStore struct {
	root      string
	urlPrefix string
	lockPath  string
}

// NewFileStore creates the root directory if needed. Writers take the
// directory lock shared and Clear takes it exclusively, so several server
// processes can share one screenshot directory.
func NewFileStore(cfg Config) (ports.ArtifactStore, error) {
	if cfg.RootDir == "" {
		return nil, fmt.Errorf("%w: screenshot directory is required", domain.ErrCacheIO)
	}
	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", domain.ErrCacheIO, cfg.RootDir, err)
	}
	return &fileStore{
		root:      cfg.RootDir,
		urlPrefix: strings.TrimSuffix(cfg.URLPrefix, "/"),
		lockPath:  lockPathFor(cfg.RootDir),
	}, nil
}

// lockPathFor places the lock beside root rather than inside it, since root
// is served as static files.
func lockPathFor(root string) string {
	root = filepath.Clean(root)
	return filepath.Join(filepath.Dir(root), "."+filepath.Base(root)+lockSuffix)
}

func fileName(degrees int) string {
	return strconv.Itoa(degrees) + imageExt
}

func (s *fileStore) path(key domain.ArtifactKey) string {
	return filepath.Join(s.root, strconv.FormatInt(key.EntityID, 10), fileName(key.Degrees))
}

func (s *fileStore) URL(key domain.ArtifactKey) string {
	return path.Join(s.urlPrefix, strconv.FormatInt(key.EntityID, 10), fileName(key.Degrees))
}

func (s *fileStore) Exists(_ context.Context, key domain.ArtifactKey) (bool, error) {
	info, err := os.Stat(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat: %v", domain.ErrCacheIO, err)
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}

func (s *fileStore) Put(ctx context.Context, key domain.ArtifactKey, data []byte) error {
	lock := flock.New(s.lockPath)
	if _, err := lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("%w: lock %s: %v", domain.ErrCacheIO, s.lockPath, err)
	}
	defer lock.Unlock()

	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", domain.ErrCacheIO, err)
	}
	if err := writeFileAtomic(dst, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheIO, err)
	}
	return nil
}

// Clear removes every mitochondrion directory under the root and returns
// the number of screenshot files that were in them.
func (s *fileStore) Clear(ctx context.Context) (int, error) {
	lock := flock.New(s.lockPath)
	if _, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return 0, fmt.Errorf("%w: lock %s: %v", domain.ErrCacheIO, s.lockPath, err)
	}
	defer lock.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", domain.ErrCacheIO, s.root, err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := strconv.ParseInt(entry.Name(), 10, 64); err != nil {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		n, err := countImages(dir)
		if err != nil {
			return removed, fmt.Errorf("%w: %v", domain.ErrCacheIO, err)
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("%w: remove %s: %v", domain.ErrCacheIO, dir, err)
		}
		removed += n
	}
	return removed, nil
}

func countImages(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasSuffix(name, imageExt) {
			if _, err := strconv.Atoi(strings.TrimSuffix(name, imageExt)); err == nil {
				n++
			}
		}
	}
	return n, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "screenshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
