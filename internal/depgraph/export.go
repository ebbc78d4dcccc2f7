package depgraph

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Document is the serialized form of a graph consumed by external tooling
// (visualizers, snapshots, the graph repository).
type Document struct {
	Modules []DocumentModule `json:"modules"`
}

// DocumentModule is one module with its outgoing edges.
type DocumentModule struct {
	Name         string               `json:"name"`
	Path         string               `json:"path"`
	Metadata     map[string]any       `json:"metadata,omitempty"`
	Dependencies []DocumentDependency `json:"dependencies"`
}

// DocumentDependency is one outgoing edge of a DocumentModule.
type DocumentDependency struct {
	Target         string         `json:"target"`
	DependencyType DependencyType `json:"dependency_type"`
	Strength       Strength       `json:"strength"`
	Description    string         `json:"description"`
	FilePath       string         `json:"file_path,omitempty"`
	LineNumber     int            `json:"line_number,omitempty"`
}

// Document captures the current modules and edges in registration order.
func (g *DependencyGraph) Document() *Document {
	doc := &Document{Modules: make([]DocumentModule, 0, len(g.order))}
	for _, name := range g.order {
		m := g.modules[name]
		dm := DocumentModule{
			Name:         m.Name,
			Path:         m.Path,
			Metadata:     m.Metadata,
			Dependencies: make([]DocumentDependency, 0, len(m.dependencies)),
		}
		for _, d := range m.dependencies {
			dm.Dependencies = append(dm.Dependencies, DocumentDependency{
				Target:         d.TargetModule,
				DependencyType: d.DependencyType,
				Strength:       d.Strength,
				Description:    d.Description,
				FilePath:       d.FilePath,
				LineNumber:     d.LineNumber,
			})
		}
		doc.Modules = append(doc.Modules, dm)
	}
	return doc
}

// FromDocument rebuilds a graph. Modules are registered first so edges may
// point forward in the document.
func FromDocument(doc *Document) (*DependencyGraph, error) {
	g := New()
	for _, m := range doc.Modules {
		g.AddModule(m.Name, m.Path, m.Metadata)
	}
	for _, m := range doc.Modules {
		for _, d := range m.Dependencies {
			opts := []DependencyOption{WithDescription(d.Description), WithLocation(d.FilePath, d.LineNumber)}
			if d.DependencyType != "" {
				opts = append(opts, WithType(d.DependencyType))
			}
			if d.Strength != "" {
				opts = append(opts, WithStrength(d.Strength))
			}
			if _, err := g.AddDependency(m.Name, d.Target, opts...); err != nil {
				return nil, fmt.Errorf("edge %s -> %s: %w", m.Name, d.Target, err)
			}
		}
	}
	return g, nil
}

// ExportJSON serializes the graph document.
func (g *DependencyGraph) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(g.Document(), "", "  ")
}

// ExportGraph writes the JSON document to path.
func (g *DependencyGraph) ExportGraph(path string) error {
	data, err := g.ExportJSON()
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write graph %s: %w", path, err)
	}
	return nil
}

// ParseDocument decodes a JSON document produced by ExportJSON.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal graph document: %w", err)
	}
	return &doc, nil
}

// ExportDOT generates a Graphviz DOT representation. Edges on a cycle are
// drawn in red, weak edges dashed.
func ExportDOT(g *DependencyGraph) string {
	circular := g.CircularModules()

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\" shape=box3d style=filled];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	for _, name := range g.order {
		color := "#1f6feb"
		if circular[name] {
			color = "#f85149"
		}
		b.WriteString(fmt.Sprintf("  %q [label=%q fillcolor=%q];\n", name, name, color))
	}
	b.WriteString("\n")

	for _, name := range g.order {
		for _, d := range g.modules[name].dependencies {
			style := "solid"
			if d.Strength == StrengthWeak {
				style = "dashed"
			}
			color := "#8b949e"
			if circular[d.SourceModule] && circular[d.TargetModule] {
				color = "#f85149"
			}
			b.WriteString(fmt.Sprintf("  %q -> %q [style=%s color=%q label=%q];\n",
				d.SourceModule, d.TargetModule, style, color, string(d.DependencyType)))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid generates a Mermaid flowchart. Nodes get positional IDs so
// names that only differ in punctuation stay distinct.
func ExportMermaid(g *DependencyGraph) string {
	ids := make(map[string]string, len(g.order))
	for i, name := range g.order {
		ids[name] = fmt.Sprintf("m%d", i)
	}

	var b strings.Builder
	b.WriteString("graph LR\n")
	for _, name := range g.order {
		b.WriteString(fmt.Sprintf("  %s[[\"%s\"]]\n", ids[name], mermaidLabel(name)))
	}
	for _, name := range g.order {
		for _, d := range g.modules[name].dependencies {
			arrow := "-->"
			if d.Strength == StrengthWeak {
				arrow = "-.->"
			}
			label := ""
			if d.DependencyType != "" && d.DependencyType != DependencyImport {
				label = "|" + mermaidLabel(string(d.DependencyType)) + "|"
			}
			b.WriteString(fmt.Sprintf("  %s %s%s %s\n",
				ids[d.SourceModule], arrow, label, ids[d.TargetModule]))
		}
	}
	return b.String()
}

// FormatTree renders the graph as a dependency tree rooted at the modules
// nothing depends on. A module already printed on the current branch is
// marked circular, and one already expanded elsewhere is printed once with
// "(see above)" instead of its subtree.
func FormatTree(g *DependencyGraph, title string) string {
	var b strings.Builder
	b.WriteString(title + "\n")

	roots := g.GetRootModules()
	if len(roots) == 0 {
		// every module is depended upon; only possible when cyclic
		roots = g.Modules()
	}

	expanded := make(map[string]bool)
	branch := make(map[string]bool)
	var walk func(name, prefix string, last bool)
	walk = func(name, prefix string, last bool) {
		connector, childPrefix := "├── ", prefix+"│   "
		if last {
			connector, childPrefix = "└── ", prefix+"    "
		}
		deps := g.DependencyNames(name)
		switch {
		case branch[name]:
			b.WriteString(prefix + connector + name + " (circular)\n")
			return
		case expanded[name] && len(deps) > 0:
			b.WriteString(prefix + connector + name + " (see above)\n")
			return
		}
		b.WriteString(prefix + connector + name + "\n")
		expanded[name] = true
		branch[name] = true
		for i, dep := range deps {
			walk(dep, childPrefix, i == len(deps)-1)
		}
		delete(branch, name)
	}

	for i, root := range roots {
		walk(root, "", i == len(roots)-1)
	}
	return b.String()
}

// FormatStatistics returns a human-readable summary of s.
func FormatStatistics(s DependencyStatistics) string {
	var b strings.Builder
	b.WriteString("Dependency Graph Statistics\n")
	b.WriteString("===========================\n\n")
	b.WriteString(fmt.Sprintf("Modules:      %d\n", s.TotalModules))
	b.WriteString(fmt.Sprintf("Dependencies: %d\n", s.TotalDependencies))
	b.WriteString(fmt.Sprintf("Average:      %.2f per module\n", s.AverageDependenciesPerModule))
	if s.MaxDepth >= 0 {
		b.WriteString(fmt.Sprintf("Max Depth:    %d\n", s.MaxDepth))
	} else {
		b.WriteString("Max Depth:    undefined (cyclic)\n")
	}
	b.WriteString(fmt.Sprintf("Leaf Modules: %s\n", joinOrNone(s.LeafModules)))
	b.WriteString(fmt.Sprintf("Root Modules: %s\n", joinOrNone(s.RootModules)))

	if len(s.CircularDependencies) > 0 {
		b.WriteString(fmt.Sprintf("\nCircular Dependencies: %d\n", len(s.CircularDependencies)))
		for i, cycle := range s.CircularDependencies {
			b.WriteString(fmt.Sprintf("  %d: %s\n", i+1, FormatCycle(cycle)))
		}
	}

	if len(s.MostDependencies) > 0 {
		b.WriteString("\nModules with Most Dependencies:\n")
		for _, mc := range s.MostDependencies {
			b.WriteString(fmt.Sprintf("  %s: %d\n", mc.Module, mc.Count))
		}
	}
	if len(s.MostDependents) > 0 {
		b.WriteString("\nModules with Most Dependents:\n")
		for _, mc := range s.MostDependents {
			b.WriteString(fmt.Sprintf("  %s: %d\n", mc.Module, mc.Count))
		}
	}

	return b.String()
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

var mermaidEscaper = strings.NewReplacer(`"`, "#quot;")

func mermaidLabel(s string) string {
	return mermaidEscaper.Replace(s)
}
