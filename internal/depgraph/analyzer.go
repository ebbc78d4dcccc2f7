package depgraph

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Health score weights. Existing reports depend on these exact values.
const (
	healthBase      = 100
	circularPenalty = 30
	orphanPenalty   = 10
)

const (
	DefaultHighDependencyThreshold = 10
	DefaultDeepChainThreshold      = 5
	rankingSize                    = 5
)

// Analyzer derives metrics and suggestions from a DependencyGraph. It never
// mutates the graph and keeps no state of its own, so results always reflect
// the graph's current contents.
type Analyzer struct {
	graph                   *DependencyGraph
	highDependencyThreshold int
	deepChainThreshold      int
}

// AnalyzerOption tunes the thresholds used for suggestions and validation.
type AnalyzerOption func(*Analyzer)

// WithHighDependencyThreshold flags modules with more than n dependencies.
func WithHighDependencyThreshold(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.highDependencyThreshold = n
		}
	}
}

// WithDeepChainThreshold flags graphs whose deepest module exceeds n.
func WithDeepChainThreshold(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.deepChainThreshold = n
		}
	}
}

// NewAnalyzer wraps g.
func NewAnalyzer(g *DependencyGraph, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		graph:                   g,
		highDependencyThreshold: DefaultHighDependencyThreshold,
		deepChainThreshold:      DefaultDeepChainThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Graph returns the analyzed graph.
func (a *Analyzer) Graph() *DependencyGraph {
	return a.graph
}

// ModuleHealth is the health report of a single module.
type ModuleHealth struct {
	ModuleName      string     `json:"module_name"`
	DependencyCount int        `json:"dependency_count"`
	DependentCount  int        `json:"dependent_count"`
	Depth           int        `json:"depth"` // -1 when a cycle is reachable
	IsCircular      bool       `json:"is_circular"`
	Cycles          [][]string `json:"cycles,omitempty"`
	HealthScore     int        `json:"health_score"`
}

// AnalyzeModuleHealth scores one module: 100, minus 30 when it appears in a
// cycle reported by FindCircularDependencies, minus 10 when nothing depends
// on it.
func (a *Analyzer) AnalyzeModuleHealth(name string) (ModuleHealth, error) {
	m, ok := a.graph.Module(name)
	if !ok {
		return ModuleHealth{}, &ModuleNotFoundError{Name: name, Role: "module"}
	}

	h := ModuleHealth{
		ModuleName:      name,
		DependencyCount: len(m.dependencies),
		DependentCount:  len(m.dependents),
		Cycles:          a.graph.CyclesContaining(name),
	}
	h.IsCircular = len(h.Cycles) > 0

	depth, err := a.graph.GetModuleDepth(name)
	switch {
	case errors.Is(err, ErrCircularDependency):
		h.Depth = -1
	case err != nil:
		return ModuleHealth{}, err
	default:
		h.Depth = depth
	}

	score := healthBase
	if h.IsCircular {
		score -= circularPenalty
	}
	if h.DependentCount == 0 {
		score -= orphanPenalty
	}
	h.HealthScore = max(0, min(healthBase, score))
	return h, nil
}

// ModuleCount pairs a module with a count used in rankings.
type ModuleCount struct {
	Module string `json:"module"`
	Count  int    `json:"count"`
}

// DependencyStatistics summarizes the whole graph.
type DependencyStatistics struct {
	TotalModules                 int           `json:"total_modules"`
	TotalDependencies            int           `json:"total_dependencies"`
	AverageDependenciesPerModule float64       `json:"average_dependencies_per_module"`
	HasCircularDependencies      bool          `json:"has_circular_dependencies"`
	CircularDependencies         [][]string    `json:"circular_dependencies,omitempty"`
	LeafModules                  []string      `json:"leaf_modules"`
	RootModules                  []string      `json:"root_modules"`
	MaxDepth                     int           `json:"max_depth"` // -1 when cyclic
	MostDependencies             []ModuleCount `json:"most_dependencies,omitempty"`
	MostDependents               []ModuleCount `json:"most_dependents,omitempty"`
}

// GetDependencyStatistics computes graph-wide statistics.
func (a *Analyzer) GetDependencyStatistics() DependencyStatistics {
	g := a.graph
	s := DependencyStatistics{
		TotalModules:      g.Len(),
		TotalDependencies: g.EdgeCount(),
		LeafModules:       g.GetLeafModules(),
		RootModules:       g.GetRootModules(),
	}
	if s.TotalModules > 0 {
		avg := float64(s.TotalDependencies) / float64(s.TotalModules)
		s.AverageDependenciesPerModule = math.Round(avg*100) / 100
	}

	s.CircularDependencies = g.FindCircularDependencies()
	s.HasCircularDependencies = len(s.CircularDependencies) > 0
	if s.HasCircularDependencies {
		s.MaxDepth = -1
	} else {
		s.MaxDepth = a.maxDepth()
	}

	var deps, dependents []ModuleCount
	for _, name := range g.Modules() {
		m, _ := g.Module(name)
		if n := len(m.dependencies); n > 0 {
			deps = append(deps, ModuleCount{Module: name, Count: n})
		}
		if n := len(m.dependents); n > 0 {
			dependents = append(dependents, ModuleCount{Module: name, Count: n})
		}
	}
	s.MostDependencies = topCounts(deps, rankingSize)
	s.MostDependents = topCounts(dependents, rankingSize)
	return s
}

// maxDepth assumes an acyclic graph.
func (a *Analyzer) maxDepth() int {
	depths := a.depths()
	best := 0
	for _, d := range depths {
		best = max(best, d)
	}
	return best
}

// depths computes every module's depth in one pass over the topological
// order. It returns nil for cyclic graphs.
func (a *Analyzer) depths() map[string]int {
	order, err := a.graph.GetTopologicalOrder()
	if err != nil {
		return nil
	}
	depth := make(map[string]int, len(order))
	for _, name := range order {
		d := 0
		for _, dep := range a.graph.DependencyNames(name) {
			d = max(d, depth[dep]+1)
		}
		depth[name] = d
	}
	return depth
}

func topCounts(counts []ModuleCount, n int) []ModuleCount {
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// SuggestionType ranks a suggestion.
type SuggestionType string

const (
	SuggestionCritical SuggestionType = "critical"
	SuggestionWarning  SuggestionType = "warning"
	SuggestionInfo     SuggestionType = "info"
)

// Suggestion titles.
const (
	TitleCircularDependencies = "Circular Dependencies Detected"
	TitleHighDependencyCount  = "High Dependency Count"
	TitleDeepDependencyChain  = "Deep Dependency Chain"
	TitleIsolatedModules      = "Isolated Modules"
)

// Suggestion is one human-readable optimization hint.
type Suggestion struct {
	Type        SuggestionType `json:"type"`
	Issue       string         `json:"issue"`
	Description string         `json:"description"`
	Modules     []string       `json:"modules,omitempty"`
	Cycles      [][]string     `json:"cycles,omitempty"`
}

// SuggestDependencyOptimizations lists improvements, most severe first.
// A graph with cycles always yields at least one critical suggestion.
func (a *Analyzer) SuggestDependencyOptimizations() []Suggestion {
	g := a.graph
	suggestions := []Suggestion{}

	if cycles := g.FindCircularDependencies(); len(cycles) > 0 {
		rendered := make([]string, len(cycles))
		for i, c := range cycles {
			rendered[i] = FormatCycle(c)
		}
		suggestions = append(suggestions, Suggestion{
			Type:  SuggestionCritical,
			Issue: TitleCircularDependencies,
			Description: fmt.Sprintf("Found %d circular dependency chain(s): %s. "+
				"Extract the shared code into a new module or invert one of the dependencies.",
				len(cycles), strings.Join(rendered, "; ")),
			Modules: cycleMembers(cycles),
			Cycles:  cycles,
		})
	}

	for _, name := range g.Modules() {
		if n := len(g.modules[name].dependencies); n > a.highDependencyThreshold {
			suggestions = append(suggestions, Suggestion{
				Type:  SuggestionWarning,
				Issue: TitleHighDependencyCount,
				Description: fmt.Sprintf("Module '%s' has %d dependencies (threshold %d). "+
					"Consider breaking it down into smaller modules.", name, n, a.highDependencyThreshold),
				Modules: []string{name},
			})
		}
	}

	if depths := a.depths(); depths != nil {
		var deepest []string
		worst := 0
		for _, name := range g.Modules() {
			if d := depths[name]; d > a.deepChainThreshold {
				deepest = append(deepest, name)
				worst = max(worst, d)
			}
		}
		if len(deepest) > 0 {
			suggestions = append(suggestions, Suggestion{
				Type:  SuggestionWarning,
				Issue: TitleDeepDependencyChain,
				Description: fmt.Sprintf("Dependency chains reach depth %d (threshold %d). "+
					"Flatten layers that only forward to the next module.", worst, a.deepChainThreshold),
				Modules: deepest,
			})
		}
	}

	if g.Len() > 1 {
		var isolated []string
		for _, name := range g.Modules() {
			m := g.modules[name]
			if len(m.dependencies) == 0 && len(m.dependents) == 0 {
				isolated = append(isolated, name)
			}
		}
		if len(isolated) > 0 {
			suggestions = append(suggestions, Suggestion{
				Type:  SuggestionInfo,
				Issue: TitleIsolatedModules,
				Description: fmt.Sprintf("%d module(s) neither depend on nor are used by any other module: %s.",
					len(isolated), strings.Join(isolated, ", ")),
				Modules: isolated,
			})
		}
	}

	return suggestions
}

// cycleMembers returns the distinct modules of cycles in first-seen order.
func cycleMembers(cycles [][]string) []string {
	seen := make(map[string]bool)
	var members []string
	for _, c := range cycles {
		for _, m := range c {
			if !seen[m] {
				seen[m] = true
				members = append(members, m)
			}
		}
	}
	return members
}
