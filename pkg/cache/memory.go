package cache

import (
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/blksword/flashdir/pkg/fs"
)

// MemoryEntry is what the memory tier holds per key: a shared handle to the
// result plus the bookkeeping the orchestrator needs to decide whether a hit
// is still valid and how much room it's taking up.
type MemoryEntry struct {
	Result   *fs.ArcResult
	DirMtime int64
	SizeByte int64
}

// Default memory tier bounds (spec §4.4): 30 entries OR 200 MiB, whichever
// binds first.
const (
	DefaultMemoryMaxEntries = 30
	DefaultMemorySizeBytes  = 200 << 20
)

// Memory is the capacity-bounded LRU memory tier. It wraps groupcache's lru
// package rather than a TinyLFU-style cache (e.g. ristretto, already pulled
// in transitively by badger) because the spec's eviction test requires
// exact, deterministic least-recently-used order, which only a real LRU
// (container/list under the hood) guarantees.
type Memory struct {
	mu       sync.Mutex
	lru      *lru.Cache
	maxBytes int64
	curBytes int64

	// keys is a side index of every key currently in lru. groupcache's
	// lru.Cache has no way to enumerate or prefix-scan its contents, so
	// Invalidate needs its own record of what's present to find a key's
	// descendants the same way the disk tier's prefix scan does.
	keys map[string]struct{}
}

// NewMemory constructs the memory tier. maxEntries <= 0 or maxBytes <= 0
// fall back to the spec's defaults.
func NewMemory(maxEntries int, maxBytes int64) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryMaxEntries
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMemorySizeBytes
	}

	m := &Memory{maxBytes: maxBytes, keys: make(map[string]struct{})}
	m.lru = &lru.Cache{
		MaxEntries: maxEntries,
		OnEvicted: func(key lru.Key, value interface{}) {
			m.curBytes -= value.(*MemoryEntry).SizeByte
			delete(m.keys, key.(string))
		},
	}
	return m
}

// Get returns the cached entry for key, refreshing its recency on a hit.
func (m *Memory) Get(key string) (*MemoryEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*MemoryEntry), true
}

// Insert adds or replaces the entry for key, evicting the least-recently-used
// entries first until both the count and size bounds hold (spec §4.4).
func (m *Memory) Insert(key string, entry *MemoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lru.Get(key); ok {
		// lru.Remove fires OnEvicted, which accounts for the byte and key
		// bookkeeping; doing it again here would double-count.
		m.lru.Remove(key)
	}

	for m.lru.Len() > 0 && m.curBytes+entry.SizeByte > m.maxBytes {
		m.lru.RemoveOldest()
	}

	m.lru.Add(key, entry)
	m.keys[key] = struct{}{}
	m.curBytes += entry.SizeByte
}

// Invalidate removes key and every entry whose key has key as a string
// prefix, mirroring the disk tier's Invalidate (spec §4.4) so a force
// refresh purges descendants from both cache tiers, not just the exact key.
func (m *Memory) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var toRemove []string
	for k := range m.keys {
		if strings.HasPrefix(k, key) {
			toRemove = append(toRemove, k)
		}
	}
	for _, k := range toRemove {
		m.lru.Remove(k)
	}
}

// Clear empties the tier.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Clear()
	m.curBytes = 0
	m.keys = make(map[string]struct{})
}

// Len returns the current entry count, for stats reporting.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}
