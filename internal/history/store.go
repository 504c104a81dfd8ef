package history

import (
	"sync"

	"github.com/NichUK/onedrive-versions/internal/graph"
)

// VersionContext is the resolved state for one local path: the owning
// drive, the item, its versions newest first, and which version the UI
// currently has selected.
type VersionContext struct {
	DriveID       string
	ItemID        string
	Name          string
	Versions      []graph.Version
	SelectedIndex int
}

// Selected returns the currently selected version.
func (vc *VersionContext) Selected() graph.Version {
	return vc.Versions[vc.SelectedIndex]
}

// Store owns all VersionContext instances, keyed by canonicalized local
// path. Readers get snapshots; selection changes go through SetIndex.
// Concurrent loads for one path are last-writer-wins.
type Store struct {
	mu       sync.RWMutex
	contexts map[string]*VersionContext
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{contexts: make(map[string]*VersionContext)}
}

// Put stores a context for the path, replacing any prior entry.
func (s *Store) Put(path string, vc *VersionContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[path] = vc
}

// Get returns a snapshot of the context for the path. The Versions slice
// is shared but immutable once fetched.
func (s *Store) Get(path string) (*VersionContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vc, ok := s.contexts[path]
	if !ok {
		return nil, false
	}

	snapshot := *vc
	return &snapshot, true
}

// Clear removes the entry for the path, if any.
func (s *Store) Clear(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, path)
}

// Len returns the number of stored contexts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}

// SetIndex updates the selected version for the path, clamping out-of-range
// requests into [0, len-1] rather than failing. Returns the effective index
// and whether a context existed.
func (s *Store) SetIndex(path string, index int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vc, ok := s.contexts[path]
	if !ok {
		return 0, false
	}

	if index < 0 {
		index = 0
	}
	if index > len(vc.Versions)-1 {
		index = len(vc.Versions) - 1
	}

	vc.SelectedIndex = index
	return index, true
}
