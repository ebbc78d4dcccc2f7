// Package neo4j stores module dependency graphs in Neo4j. Modules become
// (:Module {project, name}) nodes and edges become [:DEPENDS_ON]
// relationships carrying the dependency attributes.
package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/LexxLuey/fascraft/internal/depgraph"
	"github.com/LexxLuey/fascraft/internal/graph"
	"github.com/LexxLuey/fascraft/internal/observability"
)

const (
	deleteProjectQuery = "MATCH (m:Module {project: $project}) DETACH DELETE m"

	storeModulesQuery = "UNWIND $modules AS mod " +
		"MERGE (m:Module {project: $project, name: mod.name}) " +
		"SET m.path = mod.path, m.metadata = mod.metadata, m.seq = mod.seq"

	storeEdgesQuery = "UNWIND $edges AS e " +
		"MATCH (a:Module {project: $project, name: e.source}) " +
		"MATCH (b:Module {project: $project, name: e.target}) " +
		"MERGE (a)-[r:DEPENDS_ON]->(b) " +
		"SET r.type = e.type, r.strength = e.strength, r.description = e.description, " +
		"r.file_path = e.file_path, r.line_number = e.line_number, r.seq = e.seq"

	loadModulesQuery = "MATCH (m:Module {project: $project}) " +
		"RETURN m.name AS name, m.path AS path, m.metadata AS metadata ORDER BY m.seq"

	loadEdgesQuery = "MATCH (a:Module {project: $project})-[r:DEPENDS_ON]->(b:Module {project: $project}) " +
		"RETURN a.name AS source, b.name AS target, r.type AS type, r.strength AS strength, " +
		"r.description AS description, r.file_path AS file_path, r.line_number AS line_number " +
		"ORDER BY a.seq, r.seq"

	dependentsQuery = "MATCH (d:Module {project: $project})-[:DEPENDS_ON*1..]->(:Module {project: $project, name: $name}) " +
		"RETURN DISTINCT d.name AS name ORDER BY name"
)

// Neo4jRepository implements graph.Repository using Neo4j.
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// NewNeo4j creates a Neo4j-backed repository.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver, logger: slog.Default().With("component", "neo4j")}, nil
}

func (r *Neo4jRepository) StoreGraph(ctx context.Context, projectID string, g *depgraph.DependencyGraph) (err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "store", projectID)
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	modules, edges, err := graphParams(g.Document())
	if err != nil {
		return err
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, deleteProjectQuery, map[string]any{"project": projectID}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, storeModulesQuery, map[string]any{"project": projectID, "modules": modules}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, storeEdgesQuery, map[string]any{"project": projectID, "edges": edges}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("store graph %s: %w", projectID, err)
	}
	r.logger.Info("graph stored", "project", projectID, "modules", len(modules), "dependencies", len(edges))
	return nil
}

func (r *Neo4jRepository) LoadGraph(ctx context.Context, projectID string) (g *depgraph.DependencyGraph, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "load", projectID)
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{"project": projectID}

		res, err := tx.Run(ctx, loadModulesQuery, params)
		if err != nil {
			return nil, err
		}
		modRecords, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		res, err = tx.Run(ctx, loadEdgesQuery, params)
		if err != nil {
			return nil, err
		}
		edgeRecords, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		modules := make([]map[string]any, len(modRecords))
		for i, rec := range modRecords {
			modules[i] = rec.AsMap()
		}
		edges := make([]map[string]any, len(edgeRecords))
		for i, rec := range edgeRecords {
			edges[i] = rec.AsMap()
		}
		return documentFromRows(modules, edges)
	})
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", projectID, err)
	}

	doc := result.(*depgraph.Document)
	if len(doc.Modules) == 0 {
		return nil, fmt.Errorf("load graph %s: %w", projectID, graph.ErrProjectNotFound)
	}
	g, err = depgraph.FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", projectID, err)
	}
	return g, nil
}

func (r *Neo4jRepository) QueryDependents(ctx context.Context, projectID, module string) ([]string, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "dependents", projectID)
	defer span.End()

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, dependentsQuery, map[string]any{"project": projectID, "name": module})
		if err != nil {
			return nil, err
		}
		names := []string{}
		for records.Next(ctx) {
			n, _ := records.Record().Get("name")
			if s, ok := n.(string); ok {
				names = append(names, s)
			}
		}
		return names, records.Err()
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("query dependents of %s: %w", module, err)
	}
	return result.([]string), nil
}

// Ping verifies the driver can still reach the server.
func (r *Neo4jRepository) Ping(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// graphParams flattens a document into query parameters. Neo4j properties
// cannot hold maps, so metadata is stored as a JSON string.
func graphParams(doc *depgraph.Document) (modules, edges []map[string]any, err error) {
	modules = make([]map[string]any, 0, len(doc.Modules))
	edges = []map[string]any{}
	for i, m := range doc.Modules {
		meta := ""
		if len(m.Metadata) > 0 {
			raw, err := json.Marshal(m.Metadata)
			if err != nil {
				return nil, nil, fmt.Errorf("encode metadata of %s: %w", m.Name, err)
			}
			meta = string(raw)
		}
		modules = append(modules, map[string]any{
			"name":     m.Name,
			"path":     m.Path,
			"metadata": meta,
			"seq":      int64(i),
		})
		for j, d := range m.Dependencies {
			edges = append(edges, map[string]any{
				"source":      m.Name,
				"target":      d.Target,
				"type":        string(d.DependencyType),
				"strength":    string(d.Strength),
				"description": d.Description,
				"file_path":   d.FilePath,
				"line_number": int64(d.LineNumber),
				"seq":         int64(j),
			})
		}
	}
	return modules, edges, nil
}

// documentFromRows rebuilds a document from module and edge rows as
// returned by loadModulesQuery and loadEdgesQuery.
func documentFromRows(modules, edges []map[string]any) (*depgraph.Document, error) {
	doc := &depgraph.Document{Modules: make([]depgraph.DocumentModule, 0, len(modules))}
	index := make(map[string]int, len(modules))
	for _, row := range modules {
		name := stringValue(row["name"])
		dm := depgraph.DocumentModule{
			Name:         name,
			Path:         stringValue(row["path"]),
			Dependencies: []depgraph.DocumentDependency{},
		}
		if raw := stringValue(row["metadata"]); raw != "" {
			if err := json.Unmarshal([]byte(raw), &dm.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", name, err)
			}
		}
		index[name] = len(doc.Modules)
		doc.Modules = append(doc.Modules, dm)
	}
	for _, row := range edges {
		source := stringValue(row["source"])
		i, ok := index[source]
		if !ok {
			return nil, fmt.Errorf("edge from unknown module %s", source)
		}
		line, _ := row["line_number"].(int64)
		doc.Modules[i].Dependencies = append(doc.Modules[i].Dependencies, depgraph.DocumentDependency{
			Target:         stringValue(row["target"]),
			DependencyType: depgraph.DependencyType(stringValue(row["type"])),
			Strength:       depgraph.Strength(stringValue(row["strength"])),
			Description:    stringValue(row["description"]),
			FilePath:       stringValue(row["file_path"]),
			LineNumber:     int(line),
		})
	}
	return doc, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

var _ graph.Repository = (*Neo4jRepository)(nil)
