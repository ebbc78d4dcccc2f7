package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

// DiffType indicates the kind of change.
type DiffType string

const (
	DiffAdded    DiffType = "added"
	DiffRemoved  DiffType = "removed"
	DiffModified DiffType = "modified"
)

// GraphDiff is the structural difference between two graph documents.
type GraphDiff struct {
	OldID            string       `json:"old_id,omitempty"`
	NewID            string       `json:"new_id,omitempty"`
	OldTag           string       `json:"old_tag,omitempty"`
	NewTag           string       `json:"new_tag,omitempty"`
	ModuleDiffs      []ModuleDiff `json:"module_diffs"`
	EdgeDiffs        []EdgeDiff   `json:"edge_diffs"`
	CyclesIntroduced [][]string   `json:"cycles_introduced,omitempty"`
	CyclesResolved   [][]string   `json:"cycles_resolved,omitempty"`
	Summary          DiffSummary  `json:"summary"`
}

// ModuleDiff is a module that appeared, disappeared or moved.
type ModuleDiff struct {
	Name    string   `json:"name"`
	Type    DiffType `json:"type"`
	OldPath string   `json:"old_path,omitempty"`
	NewPath string   `json:"new_path,omitempty"`
}

// EdgeDiff is a dependency that appeared, disappeared or changed its type
// or strength.
type EdgeDiff struct {
	Source      string                  `json:"source"`
	Target      string                  `json:"target"`
	Type        DiffType                `json:"type"`
	OldType     depgraph.DependencyType `json:"old_type,omitempty"`
	NewType     depgraph.DependencyType `json:"new_type,omitempty"`
	OldStrength depgraph.Strength       `json:"old_strength,omitempty"`
	NewStrength depgraph.Strength       `json:"new_strength,omitempty"`
}

// DiffSummary provides aggregate counts about the diff.
type DiffSummary struct {
	ModulesAdded    int `json:"modules_added"`
	ModulesRemoved  int `json:"modules_removed"`
	ModulesModified int `json:"modules_modified"`
	EdgesAdded      int `json:"edges_added"`
	EdgesRemoved    int `json:"edges_removed"`
	EdgesModified   int `json:"edges_modified"`
}

// Empty reports whether the two graphs are structurally identical.
func (d *GraphDiff) Empty() bool {
	return len(d.ModuleDiffs) == 0 && len(d.EdgeDiffs) == 0
}

// Diff compares two loaded snapshots.
func Diff(old, new *Snapshot) (*GraphDiff, error) {
	if old.Document == nil || new.Document == nil {
		return nil, fmt.Errorf("diff %s..%s: graph document not loaded", old.ID, new.ID)
	}
	d, err := DiffDocuments(old.Document, new.Document)
	if err != nil {
		return nil, err
	}
	d.OldID, d.NewID = old.ID, new.ID
	d.OldTag, d.NewTag = old.Tag, new.Tag
	return d, nil
}

// DiffDocuments compares two graph documents. Both must describe valid
// graphs, since cycles are compared on the rebuilt graphs.
func DiffDocuments(old, new *depgraph.Document) (*GraphDiff, error) {
	d := &GraphDiff{
		ModuleDiffs: diffModules(old, new),
		EdgeDiffs:   diffEdges(old, new),
	}

	oldGraph, err := depgraph.FromDocument(old)
	if err != nil {
		return nil, fmt.Errorf("rebuild old graph: %w", err)
	}
	newGraph, err := depgraph.FromDocument(new)
	if err != nil {
		return nil, fmt.Errorf("rebuild new graph: %w", err)
	}
	d.CyclesIntroduced, d.CyclesResolved = diffCycles(
		oldGraph.FindCircularDependencies(), newGraph.FindCircularDependencies())

	d.Summary = computeSummary(d)
	return d, nil
}

func diffModules(old, new *depgraph.Document) []ModuleDiff {
	oldMap := make(map[string]depgraph.DocumentModule, len(old.Modules))
	for _, m := range old.Modules {
		oldMap[m.Name] = m
	}
	newMap := make(map[string]depgraph.DocumentModule, len(new.Modules))
	for _, m := range new.Modules {
		newMap[m.Name] = m
	}

	var diffs []ModuleDiff
	for name, nm := range newMap {
		om, ok := oldMap[name]
		switch {
		case !ok:
			diffs = append(diffs, ModuleDiff{Name: name, Type: DiffAdded, NewPath: nm.Path})
		case om.Path != nm.Path:
			diffs = append(diffs, ModuleDiff{Name: name, Type: DiffModified, OldPath: om.Path, NewPath: nm.Path})
		}
	}
	for name, om := range oldMap {
		if _, ok := newMap[name]; !ok {
			diffs = append(diffs, ModuleDiff{Name: name, Type: DiffRemoved, OldPath: om.Path})
		}
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Name < diffs[j].Name })
	return diffs
}

type edgeKey struct{ source, target string }

func edgeMap(doc *depgraph.Document) map[edgeKey]depgraph.DocumentDependency {
	edges := make(map[edgeKey]depgraph.DocumentDependency)
	for _, m := range doc.Modules {
		for _, d := range m.Dependencies {
			edges[edgeKey{m.Name, d.Target}] = d
		}
	}
	return edges
}

func diffEdges(old, new *depgraph.Document) []EdgeDiff {
	oldEdges := edgeMap(old)
	newEdges := edgeMap(new)

	var diffs []EdgeDiff
	for k, ne := range newEdges {
		oe, ok := oldEdges[k]
		switch {
		case !ok:
			diffs = append(diffs, EdgeDiff{Source: k.source, Target: k.target, Type: DiffAdded,
				NewType: ne.DependencyType, NewStrength: ne.Strength})
		case oe.DependencyType != ne.DependencyType || oe.Strength != ne.Strength:
			diffs = append(diffs, EdgeDiff{Source: k.source, Target: k.target, Type: DiffModified,
				OldType: oe.DependencyType, NewType: ne.DependencyType,
				OldStrength: oe.Strength, NewStrength: ne.Strength})
		}
	}
	for k, oe := range oldEdges {
		if _, ok := newEdges[k]; !ok {
			diffs = append(diffs, EdgeDiff{Source: k.source, Target: k.target, Type: DiffRemoved,
				OldType: oe.DependencyType, OldStrength: oe.Strength})
		}
	}

	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].Source != diffs[j].Source {
			return diffs[i].Source < diffs[j].Source
		}
		return diffs[i].Target < diffs[j].Target
	})
	return diffs
}

// diffCycles compares cycles by their rendered form.
func diffCycles(old, new [][]string) (introduced, resolved [][]string) {
	oldSet := make(map[string]bool, len(old))
	for _, c := range old {
		oldSet[depgraph.FormatCycle(c)] = true
	}
	newSet := make(map[string]bool, len(new))
	for _, c := range new {
		newSet[depgraph.FormatCycle(c)] = true
		if !oldSet[depgraph.FormatCycle(c)] {
			introduced = append(introduced, c)
		}
	}
	for _, c := range old {
		if !newSet[depgraph.FormatCycle(c)] {
			resolved = append(resolved, c)
		}
	}
	return introduced, resolved
}

func computeSummary(d *GraphDiff) DiffSummary {
	var s DiffSummary
	for _, md := range d.ModuleDiffs {
		switch md.Type {
		case DiffAdded:
			s.ModulesAdded++
		case DiffRemoved:
			s.ModulesRemoved++
		case DiffModified:
			s.ModulesModified++
		}
	}
	for _, ed := range d.EdgeDiffs {
		switch ed.Type {
		case DiffAdded:
			s.EdgesAdded++
		case DiffRemoved:
			s.EdgesRemoved++
		case DiffModified:
			s.EdgesModified++
		}
	}
	return s
}

// FormatDiff returns a human-readable string representation of the diff.
func FormatDiff(d *GraphDiff) string {
	var sb strings.Builder

	if d.OldID != "" || d.NewID != "" {
		sb.WriteString(fmt.Sprintf("Diff: %s → %s\n", d.OldID, d.NewID))
	}
	if d.OldTag != "" || d.NewTag != "" {
		sb.WriteString(fmt.Sprintf("Tags: %s → %s\n", d.OldTag, d.NewTag))
	}

	sb.WriteString(fmt.Sprintf("Modules: +%d -%d ~%d\n",
		d.Summary.ModulesAdded, d.Summary.ModulesRemoved, d.Summary.ModulesModified))
	sb.WriteString(fmt.Sprintf("Dependencies: +%d -%d ~%d\n",
		d.Summary.EdgesAdded, d.Summary.EdgesRemoved, d.Summary.EdgesModified))

	if d.Empty() {
		sb.WriteString("\nNo structural changes.\n")
		return sb.String()
	}

	if len(d.ModuleDiffs) > 0 {
		sb.WriteString("\nModules:\n")
		for _, md := range d.ModuleDiffs {
			sb.WriteString(fmt.Sprintf("  %s %s", icon(md.Type), md.Name))
			if md.Type == DiffModified {
				sb.WriteString(fmt.Sprintf(" (%s → %s)", md.OldPath, md.NewPath))
			}
			sb.WriteString("\n")
		}
	}

	if len(d.EdgeDiffs) > 0 {
		sb.WriteString("\nDependencies:\n")
		for _, ed := range d.EdgeDiffs {
			sb.WriteString(fmt.Sprintf("  %s %s -> %s", icon(ed.Type), ed.Source, ed.Target))
			if ed.Type == DiffModified {
				sb.WriteString(fmt.Sprintf(" [%s/%s → %s/%s]", ed.OldType, ed.OldStrength, ed.NewType, ed.NewStrength))
			}
			sb.WriteString("\n")
		}
	}

	for _, c := range d.CyclesIntroduced {
		sb.WriteString(fmt.Sprintf("\n! cycle introduced: %s", depgraph.FormatCycle(c)))
	}
	for _, c := range d.CyclesResolved {
		sb.WriteString(fmt.Sprintf("\n✓ cycle resolved: %s", depgraph.FormatCycle(c)))
	}
	if len(d.CyclesIntroduced)+len(d.CyclesResolved) > 0 {
		sb.WriteString("\n")
	}

	return sb.String()
}

func icon(t DiffType) string {
	switch t {
	case DiffAdded:
		return "+"
	case DiffRemoved:
		return "-"
	default:
		return "~"
	}
}
