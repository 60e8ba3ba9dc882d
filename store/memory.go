package store

import (
	"sort"
	"sync"

	"github.com/codecrew-ai/codecrew/types"
)

// MemoryStore is the canonical in-process artifact catalog.
// It is safe for concurrent use by session workers.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]types.Artifact
	byType map[types.ArtifactType][]types.Artifact
}

// NewMemoryStore creates an empty catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]types.Artifact),
		byType: make(map[types.ArtifactType][]types.Artifact),
	}
}

func (s *MemoryStore) Put(a types.Artifact) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[a.ID] = a
	s.byType[a.Type] = append(s.byType[a.Type], a)
	return a.ID
}

func (s *MemoryStore) Get(id string) (types.Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	return a, ok
}

func (s *MemoryStore) GetByType(t types.ArtifactType) []types.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := append([]types.Artifact(nil), s.byType[t]...)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Version > matches[j].Version
	})
	return matches
}

func (s *MemoryStore) Latest(t types.ArtifactType) (types.Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := s.byType[t]
	if len(matches) == 0 {
		return types.Artifact{}, false
	}
	latest := matches[0]
	for _, a := range matches[1:] {
		if a.Version > latest.Version {
			latest = a
		}
	}
	return latest, true
}

func (s *MemoryStore) All() []types.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]types.Artifact, 0, len(s.byID))
	for _, a := range s.byID {
		all = append(all, a)
	}
	return all
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]types.Artifact)
	s.byType = make(map[types.ArtifactType][]types.Artifact)
}
