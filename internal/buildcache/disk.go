package buildcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/vmihailenco/msgpack/v5"
)

// DiskStore keeps entries as msgpack files under dir/files.
// Thread-safe for concurrent access.
type DiskStore struct {
	mu  sync.RWMutex
	fs  billy.Filesystem
	dir string
}

// DefaultDir returns the per-project cache directory under the user cache home.
func DefaultDir(projectDir string) string {
	key := SumString(filepath.Clean(projectDir)).String()
	return filepath.Join(xdg.CacheHome, "weave", key[:16])
}

// OpenDiskStore prepares a DiskStore rooted at dir.
func OpenDiskStore(fsys billy.Filesystem, dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("buildcache: empty cache directory")
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("buildcache: create %q: %w", dir, err)
	}
	return &DiskStore{fs: fsys, dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskStore) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskStore) pathFor(key Digest) string {
	return c.fs.Join(c.dir, "files", key.String()+".mp")
}

// Put serializes entry and atomically replaces the file for key.
func (c *DiskStore) Put(key Digest, entry *Entry) error {
	if c == nil || entry == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	dir := filepath.Dir(p)
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := c.fs.TempFile(dir, "tmp-")
	if err != nil {
		return err
	}
	tmp := f.Name()

	stored := *entry
	stored.Schema = SchemaVersion
	if err := msgpack.NewEncoder(f).Encode(&stored); err != nil {
		_ = f.Close()
		_ = c.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = c.fs.Remove(tmp)
		return err
	}
	if err := c.fs.Rename(tmp, p); err != nil {
		_ = c.fs.Remove(tmp)
		return err
	}
	return nil
}

// Get reads the entry stored for key.
func (c *DiskStore) Get(key Digest) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := c.fs.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var out Entry
	if err := msgpack.NewDecoder(f).Decode(&out); err != nil {
		return nil, false, err
	}
	if out.Schema != SchemaVersion {
		return nil, false, nil
	}
	return &out, true, nil
}

// DropAll removes every cached entry. Only the entry directory is removed;
// anything else below the cache root is left alone.
func (c *DiskStore) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.fs.Join(c.dir, "files")
	if err := util.RemoveAll(c.fs, entries); err != nil {
		return fmt.Errorf("buildcache: remove %q: %w", entries, err)
	}
	return nil
}
