package sortable

import (
	"context"
	"sync"
)

// IdentityMap is the process-local IdentityCache. Each scope carries a version
// counter; entries are stamped with the version at Put time and read back only
// while the stamp still matches, so invalidating a scope is O(1) and leaves
// other scopes untouched.
type IdentityMap[K comparable] struct {
	mu       sync.RWMutex
	entries  map[K]identityEntry[K]
	versions map[string]uint64
}

type identityEntry[K comparable] struct {
	rec     *Record[K]
	scope   string
	version uint64
}

// NewIdentityMap returns an empty IdentityMap.
func NewIdentityMap[K comparable]() *IdentityMap[K] {
	return &IdentityMap[K]{
		entries:  make(map[K]identityEntry[K]),
		versions: make(map[string]uint64),
	}
}

// Get implements IdentityCache.
func (m *IdentityMap[K]) Get(_ context.Context, id K) (*Record[K], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok || e.version != m.versions[e.scope] {
		return nil, false
	}
	return e.rec, true
}

// Put implements IdentityCache. The entry follows the stored scope of rec, so
// an unsaved scope change does not escape invalidation of the scope the row
// is still ranked in.
func (m *IdentityMap[K]) Put(_ context.Context, rec *Record[K]) {
	if rec == nil || rec.IsNew() {
		return
	}
	key := rec.savedScope.Key()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[rec.ID] = identityEntry[K]{rec: rec, scope: key, version: m.versions[key]}
}

// Evict implements IdentityCache.
func (m *IdentityMap[K]) Evict(_ context.Context, id K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

// InvalidateScope implements IdentityCache.
func (m *IdentityMap[K]) InvalidateScope(_ context.Context, scope Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[scope.Key()]++
	return nil
}

// Clear implements IdentityCache.
func (m *IdentityMap[K]) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[K]identityEntry[K])
	for k := range m.versions {
		m.versions[k]++
	}
	return nil
}

// Len returns the number of entries, stale ones included.
func (m *IdentityMap[K]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ IdentityCache[int] = (*IdentityMap[int])(nil)
