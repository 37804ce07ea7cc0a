package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"fpl-cache-api/internal/snapshot"
)

// CacheDir is the archive subdirectory that holds year/month/day/HHMM files.
const CacheDir = "cache"

// FSStore reads snapshots from a local archive checkout. Handles are
// slash-separated paths relative to Root, e.g. "cache/2024/3/9/0152.json.xz".
type FSStore struct {
	Root         string // e.g. "vendor/fplcache"
	Decompressor Decompressor
}

func NewFSStore(root string, d Decompressor) *FSStore {
	return &FSStore{Root: root, Decompressor: d}
}

func (s *FSStore) Path(rel string) string {
	return filepath.Join(s.Root, filepath.FromSlash(rel))
}

func (s *FSStore) Exists(rel string) bool {
	_, err := os.Stat(s.Path(rel))
	return err == nil
}

func (s *FSStore) ReadRaw(rel string) ([]byte, error) {
	if strings.Contains(rel, "..") {
		return nil, fmt.Errorf("invalid snapshot handle: %s", rel)
	}
	return os.ReadFile(s.Path(rel))
}

// List walks Root/cache and returns every *.json.xz snapshot ordered by time.
func (s *FSStore) List(ctx context.Context) ([]snapshot.Ref, error) {
	root := s.Path(CacheDir)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: cache not found at %s (fetch the archive or set FPLCACHE_DIR)", snapshot.ErrStoreUnavailable, root)
	}

	var refs []snapshot.Ref
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), snapshot.Suffix) {
			return nil
		}
		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		ref, err := snapshot.NewRef(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		return nil, err
	}
	snapshot.SortRefs(refs)
	return refs, nil
}

// Load reads and decompresses one snapshot.
func (s *FSStore) Load(ctx context.Context, handle string) ([]byte, error) {
	b, err := s.ReadRaw(handle)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("snapshot %s: %w", handle, err)
	}
	if err != nil {
		return nil, err
	}
	out, err := s.Decompressor.Decompress(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", handle, err)
	}
	return out, nil
}
