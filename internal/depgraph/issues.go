package depgraph

import (
	"fmt"
	"strings"
)

// IssueType identifies what a validation issue is about.
type IssueType string

const (
	IssueCircular            IssueType = "circular"
	IssueHighDependencyCount IssueType = "high_dependency_count"
	IssueOrphaned            IssueType = "orphaned"
)

// Severity mirrors SuggestionType for validation issues.
type Severity = SuggestionType

// Issue is a single validation finding.
type Issue struct {
	Type        IssueType `json:"type"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Module      string    `json:"module,omitempty"`
	Modules     []string  `json:"modules,omitempty"`
	Count       int       `json:"count,omitempty"`
	Cycle       []string  `json:"cycle,omitempty"`
}

// ValidateDependencies checks the graph and returns one issue per cycle,
// one per module above the dependency threshold, and a single informational
// issue listing modules that nothing depends on.
func (a *Analyzer) ValidateDependencies() []Issue {
	g := a.graph
	issues := []Issue{}

	for _, cycle := range g.FindCircularDependencies() {
		issues = append(issues, Issue{
			Type:        IssueCircular,
			Severity:    SuggestionCritical,
			Title:       "Circular Dependency",
			Description: "Cycle detected: " + FormatCycle(cycle),
			Cycle:       cycle,
		})
	}

	for _, name := range g.Modules() {
		n := len(g.modules[name].dependencies)
		if n > a.highDependencyThreshold {
			issues = append(issues, Issue{
				Type:        IssueHighDependencyCount,
				Severity:    SuggestionWarning,
				Title:       "High Dependency Count",
				Description: fmt.Sprintf("Module '%s' has %d dependencies", name, n),
				Module:      name,
				Count:       n,
			})
		}
	}

	if g.Len() > 1 {
		roots := g.GetRootModules()
		if len(roots) > 0 {
			issues = append(issues, Issue{
				Type:        IssueOrphaned,
				Severity:    SuggestionInfo,
				Title:       "Orphaned Modules",
				Description: fmt.Sprintf("Found %d modules with no dependents: %s", len(roots), strings.Join(roots, ", ")),
				Modules:     roots,
				Count:       len(roots),
			})
		}
	}

	return issues
}

// Resolution reports what ResolveIssues did, or advises, for one issue.
type Resolution struct {
	Issue   Issue             `json:"issue"`
	Applied bool              `json:"applied"`
	Removed *ModuleDependency `json:"removed,omitempty"`
	Message string            `json:"message"`
}

// ResolveIssues tries to fix issues in place. Circular issues are resolved
// by removing one edge of the cycle; other issue types only produce advice.
// It returns one Resolution per issue, in input order.
func ResolveIssues(g *DependencyGraph, issues []Issue) []Resolution {
	var out []Resolution
	for _, issue := range issues {
		switch issue.Type {
		case IssueCircular:
			removed, err := BreakCycle(g, issue.Cycle)
			if err != nil {
				out = append(out, Resolution{Issue: issue, Message: err.Error()})
				continue
			}
			out = append(out, Resolution{
				Issue:   issue,
				Applied: true,
				Removed: &removed,
				Message: fmt.Sprintf("Removed dependency %s -> %s", removed.SourceModule, removed.TargetModule),
			})
		case IssueHighDependencyCount:
			out = append(out, Resolution{
				Issue:   issue,
				Message: fmt.Sprintf("Consider breaking down module '%s' (%d dependencies) into smaller modules", issue.Module, issue.Count),
			})
		default:
			out = append(out, Resolution{Issue: issue, Message: "No automatic resolution available"})
		}
	}
	return out
}

// BreakCycle removes one edge of cycle from g and returns it. The first weak
// edge along the cycle is preferred; otherwise the edge closing the cycle
// is removed. It fails when an edge of the cycle is no longer in g.
func BreakCycle(g *DependencyGraph, cycle []string) (ModuleDependency, error) {
	if len(cycle) < 2 {
		return ModuleDependency{}, fmt.Errorf("break cycle %v: too short", cycle)
	}

	var edges []*ModuleDependency
	for i := 0; i+1 < len(cycle); i++ {
		src, ok := g.modules[cycle[i]]
		if !ok {
			return ModuleDependency{}, &ModuleNotFoundError{Name: cycle[i], Role: "source"}
		}
		e := findEdge(src.dependencies, cycle[i+1])
		if e == nil {
			return ModuleDependency{}, fmt.Errorf("break cycle %s: edge %s -> %s no longer exists",
				FormatCycle(cycle), cycle[i], cycle[i+1])
		}
		edges = append(edges, e)
	}

	victim := edges[len(edges)-1]
	for _, e := range edges {
		if e.Strength == StrengthWeak {
			victim = e
			break
		}
	}
	removed := *victim
	g.RemoveDependency(removed.SourceModule, removed.TargetModule)
	return removed, nil
}
