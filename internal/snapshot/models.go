package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

// Snapshot is a point-in-time capture of a project's dependency graph.
// The graph document itself is stored as a content-addressed object and
// attached by Store.Load.
type Snapshot struct {
	ID              string    `json:"id"`
	ParentID        string    `json:"parent_id,omitempty"`
	Tag             string    `json:"tag,omitempty"`
	Description     string    `json:"description,omitempty"`
	Project         string    `json:"project"`
	CreatedAt       time.Time `json:"created_at"`
	ContentHash     string    `json:"content_hash"`
	ModuleCount     int       `json:"module_count"`
	DependencyCount int       `json:"dependency_count"`
	CircularChains  int       `json:"circular_chains"`

	Document *depgraph.Document `json:"-"`
}

// SnapshotIndex is a lightweight listing of all snapshots for fast lookup.
type SnapshotIndex struct {
	Snapshots []SnapshotSummary `json:"snapshots"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SnapshotSummary is the minimal info for listing snapshots.
type SnapshotSummary struct {
	ID              string    `json:"id"`
	ParentID        string    `json:"parent_id,omitempty"`
	Tag             string    `json:"tag,omitempty"`
	Project         string    `json:"project"`
	CreatedAt       time.Time `json:"created_at"`
	ModuleCount     int       `json:"module_count"`
	DependencyCount int       `json:"dependency_count"`
	CircularChains  int       `json:"circular_chains"`
}

// NewSnapshot captures g. Two snapshots of identical graphs share the same
// ContentHash but get distinct IDs.
func NewSnapshot(project string, g *depgraph.DependencyGraph) (*Snapshot, error) {
	data, err := g.ExportJSON()
	if err != nil {
		return nil, fmt.Errorf("export graph: %w", err)
	}
	return &Snapshot{
		ID:              uuid.NewString(),
		Project:         project,
		CreatedAt:       time.Now().UTC(),
		ContentHash:     ContentHash(data),
		ModuleCount:     g.Len(),
		DependencyCount: g.EdgeCount(),
		CircularChains:  len(g.FindCircularDependencies()),
		Document:        g.Document(),
	}, nil
}

// ContentHash computes SHA-256 of content.
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// Graph rebuilds the captured graph.
func (s *Snapshot) Graph() (*depgraph.DependencyGraph, error) {
	if s.Document == nil {
		return nil, fmt.Errorf("snapshot %s has no graph document loaded", s.ID)
	}
	return depgraph.FromDocument(s.Document)
}

// Summary returns a lightweight summary of this snapshot.
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:              s.ID,
		ParentID:        s.ParentID,
		Tag:             s.Tag,
		Project:         s.Project,
		CreatedAt:       s.CreatedAt,
		ModuleCount:     s.ModuleCount,
		DependencyCount: s.DependencyCount,
		CircularChains:  s.CircularChains,
	}
}
