// Package graph persists module dependency graphs outside the process.
package graph

import (
	"context"
	"errors"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

// Repository provides graph storage for module dependency graphs. Graphs
// are keyed by project so several projects can share one store.
type Repository interface {
	// StoreGraph replaces the stored graph of projectID with g.
	StoreGraph(ctx context.Context, projectID string, g *depgraph.DependencyGraph) error
	// LoadGraph rebuilds the stored graph of projectID.
	LoadGraph(ctx context.Context, projectID string) (*depgraph.DependencyGraph, error)
	// QueryDependents returns every module that depends on module, directly
	// or transitively, sorted by name.
	QueryDependents(ctx context.Context, projectID, module string) ([]string, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// ErrProjectNotFound is returned by LoadGraph when nothing is stored for a
// project.
var ErrProjectNotFound = errors.New("project not found")
