// Package file implements the file-snapshot storage adapter (§4.13):
// one normalized-event file per source, a single catalog file, atomic
// write-new-then-rename writes, and an mtime-based refresh window
// short-circuited by fsnotify change events.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gigcatalog/ingestor/catalog"
)

// refreshWindow bounds how long a cached catalog read is served
// without re-checking the file's mtime.
const refreshWindow = 5 * time.Minute

// Store is the file-backed SnapshotStore, CatalogStore, and (as a
// fallback) QueryStore.
type Store struct {
	normalizedDir string
	catalogPath   string

	mu          sync.RWMutex
	cached      *catalog.Catalog
	cachedMtime time.Time
	cachedAt    time.Time

	watcher *fsnotify.Watcher
}

// New creates a file store rooted at normalizedDir (per-source
// snapshots) and catalogPath (the catalog document). It starts an
// fsnotify watch on catalogPath's directory so an external rewrite of
// the catalog is picked up before the refresh window elapses.
func New(normalizedDir, catalogPath string) (*Store, error) {
	if err := os.MkdirAll(normalizedDir, 0o755); err != nil {
		return nil, fmt.Errorf("create normalized dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(catalogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	s := &Store{normalizedDir: normalizedDir, catalogPath: catalogPath}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(filepath.Dir(catalogPath)); err == nil {
			s.watcher = watcher
			go s.watchLoop()
		} else {
			watcher.Close()
		}
	}

	return s, nil
}

// Close releases the fsnotify watcher, if one was started.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) watchLoop() {
	for event := range s.watcher.Events {
		if filepath.Clean(event.Name) != filepath.Clean(s.catalogPath) {
			continue
		}
		if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
			s.mu.Lock()
			s.cachedAt = time.Time{} // force a re-read on next access
			s.mu.Unlock()
		}
	}
}

func (s *Store) snapshotPath(source string) string {
	safe := strings.ReplaceAll(source, string(filepath.Separator), "_")
	return filepath.Join(s.normalizedDir, safe+".json")
}

// LoadSnapshot reads the source's latest normalized snapshot.
func (s *Store) LoadSnapshot(ctx context.Context, source string) (catalog.Snapshot, bool, error) {
	b, err := os.ReadFile(s.snapshotPath(source))
	if os.IsNotExist(err) {
		return catalog.Snapshot{}, false, nil
	}
	if err != nil {
		return catalog.Snapshot{}, false, fmt.Errorf("read snapshot %q: %w", source, err)
	}
	var snap catalog.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return catalog.Snapshot{}, false, fmt.Errorf("decode snapshot %q: %w", source, err)
	}
	return snap, true, nil
}

// SaveSnapshot writes a source's snapshot atomically: a temp file in
// the same directory is written and fsynced, then renamed over the
// final path so readers never observe a partial write.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot catalog.Snapshot) error {
	return writeAtomic(s.snapshotPath(snapshot.Source), snapshot)
}

// ListSources returns the source names with a saved snapshot.
func (s *Store) ListSources(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.normalizedDir)
	if err != nil {
		return nil, fmt.Errorf("list normalized dir: %w", err)
	}
	var sources []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		sources = append(sources, strings.TrimSuffix(e.Name(), ".json"))
	}
	return sources, nil
}

// LoadCatalog returns the cached catalog if it's within refreshWindow
// and the file's mtime hasn't advanced, otherwise re-reads the file.
func (s *Store) LoadCatalog(ctx context.Context) (catalog.Catalog, bool, error) {
	info, err := os.Stat(s.catalogPath)
	if os.IsNotExist(err) {
		return catalog.Catalog{}, false, nil
	}
	if err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("stat catalog: %w", err)
	}

	s.mu.RLock()
	fresh := s.cached != nil && time.Since(s.cachedAt) < refreshWindow && !info.ModTime().After(s.cachedMtime)
	cached := s.cached
	s.mu.RUnlock()
	if fresh {
		return *cached, true, nil
	}

	b, err := os.ReadFile(s.catalogPath)
	if err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("read catalog: %w", err)
	}
	var cat catalog.Catalog
	if err := json.Unmarshal(b, &cat); err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("decode catalog: %w", err)
	}

	s.mu.Lock()
	s.cached = &cat
	s.cachedMtime = info.ModTime()
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return cat, true, nil
}

// SaveCatalog writes the catalog atomically and invalidates the cache.
func (s *Store) SaveCatalog(ctx context.Context, cat catalog.Catalog) error {
	if err := writeAtomic(s.catalogPath, cat); err != nil {
		return err
	}
	s.mu.Lock()
	s.cachedAt = time.Time{}
	s.mu.Unlock()
	return nil
}

// Healthy reports whether the store's directories are reachable.
func (s *Store) Healthy(ctx context.Context) bool {
	_, err := os.Stat(s.normalizedDir)
	return err == nil
}

func writeAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %q: %w", path, err)
	}

	tmp := path + ".tmp-" + fmt.Sprint(time.Now().UnixNano())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", path, err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file for %q: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp file for %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file for %q: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file for %q: %w", path, err)
	}
	return nil
}
