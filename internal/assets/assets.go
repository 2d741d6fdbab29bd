// Package assets handles asset loading and caching across S3D archives.
package assets

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Faultbox/eq-assets/pkg/pfs"
	"github.com/Faultbox/eq-assets/pkg/wld"
)

// Manager loads files and decoded worlds from a stack of S3D archives.
type Manager struct {
	archives []namedArchive
	cache    *Cache
	worlds   map[worldKey]*worldEntry
	workers  int
	mu       sync.RWMutex
}

type namedArchive struct {
	name    string // base name, e.g. "gfaydark.s3d"
	archive *pfs.Archive
}

// worldKey identifies a decoded world per archive. Sibling archives
// routinely carry identically named inner files (objects.wld,
// lights.wld), so the file name alone is ambiguous.
type worldKey struct {
	archive string
	file    string
}

type worldEntry struct {
	world  *wld.World
	faults []wld.Fault
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache:  NewCache(),
		worlds: make(map[worldKey]*worldEntry),
	}
}

// SetWorkers bounds parallel chunk inflation for every archive in the
// stack, present and future. Zero restores the per-archive default.
func (m *Manager) SetWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = n
	for _, a := range m.archives {
		a.archive.Workers = n
	}
}

// AddArchive opens an S3D archive from disk and adds it to the stack.
// Archives are searched in reverse order (last added = highest priority).
func (m *Manager) AddArchive(path string) error {
	archive, err := pfs.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	m.addArchive(filepath.Base(path), archive)
	return nil
}

// AddArchiveBytes adds an in-memory archive under the given name.
func (m *Manager) AddArchiveBytes(name string, data []byte) error {
	archive, err := pfs.Load(data)
	if err != nil {
		return fmt.Errorf("loading archive %s: %w", name, err)
	}
	m.addArchive(name, archive)
	return nil
}

func (m *Manager) addArchive(name string, archive *pfs.Archive) {
	m.mu.Lock()
	archive.Workers = m.workers
	m.archives = append(m.archives, namedArchive{name: strings.ToLower(name), archive: archive})
	m.mu.Unlock()
}

// HasArchive reports whether an archive with the given base name
// (with or without the .s3d extension) was already added.
func (m *Manager) HasArchive(name string) bool {
	_, ok := m.archiveByName(name)
	return ok
}

// Load reads a file from the archive stack.
func (m *Manager) Load(name string) ([]byte, error) {
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Search archives in reverse order
	for i := len(m.archives) - 1; i >= 0; i-- {
		data, err := m.archives[i].archive.Read(name)
		if err == nil {
			m.cache.Set(name, data)
			return data, nil
		}
	}

	return nil, fmt.Errorf("file not found: %s", name)
}

// World returns the decoded world for a .wld file in the archive
// stack, along with its non-fatal resolution faults. The lookup
// follows stack priority; decoded worlds are cached per archive, and
// the same pointer comes back on repeat calls.
func (m *Manager) World(name string) (*wld.World, []wld.Fault, error) {
	arch, ok := m.archiveFor(name)
	if !ok {
		return nil, nil, fmt.Errorf("file not found: %s", name)
	}
	return m.worldFrom(arch, name)
}

// archiveByName finds an added archive by base name, with or without
// the .s3d extension.
func (m *Manager) archiveByName(name string) (namedArchive, bool) {
	want := strings.ToLower(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.archives) - 1; i >= 0; i-- {
		a := m.archives[i]
		if a.name == want || strings.TrimSuffix(a.name, ".s3d") == want {
			return a, true
		}
	}
	return namedArchive{}, false
}

// archiveFor finds the highest-priority archive containing a file.
func (m *Manager) archiveFor(name string) (namedArchive, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.archives) - 1; i >= 0; i-- {
		if m.archives[i].archive.Contains(name) {
			return m.archives[i], true
		}
	}
	return namedArchive{}, false
}

// Close drops all archives and caches.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archives = nil
	m.worlds = make(map[worldKey]*worldEntry)
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[strings.ToLower(key)]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Stats returns cache hit/miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[strings.ToLower(key)] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}
