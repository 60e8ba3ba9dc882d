// Package store provides the artifact catalog: an append-only registry of
// every work product produced during a project. Artifacts are immutable once
// stored; Put is the only mutator and reads never mutate.
//
// The catalog contract has no error path: lookups on missing ids or types
// return zero values, never errors.
package store

import "github.com/codecrew-ai/codecrew/types"

// Store is the artifact catalog interface.
type Store interface {
	// Put stores an artifact and returns its ID.
	Put(a types.Artifact) string
	// Get retrieves an artifact by ID.
	Get(id string) (types.Artifact, bool)
	// GetByType returns all artifacts of a type, ordered by version
	// descending (newest first), regardless of insertion order.
	GetByType(t types.ArtifactType) []types.Artifact
	// Latest returns the highest-version artifact of a type.
	Latest(t types.ArtifactType) (types.Artifact, bool)
	// All returns every stored artifact.
	All() []types.Artifact
	// Clear empties the catalog. The only way the catalog is ever reset.
	Clear()
}
