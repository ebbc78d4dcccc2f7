package tui

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

// ModuleItem is one row of the explorer.
type ModuleItem struct {
	Health       depgraph.ModuleHealth
	Path         string
	Dependencies []string
	Dependents   []string
	Chain        []string // load order ending at the module; nil on a cycle
	Flagged      bool
	Note         string
}

// Name returns the module name.
func (it *ModuleItem) Name() string {
	return it.Health.ModuleName
}

// ExploreSession holds everything the explorer shows for one project.
type ExploreSession struct {
	Project     string
	Items       []*ModuleItem
	Statistics  depgraph.DependencyStatistics
	Suggestions []depgraph.Suggestion
	CreatedAt   time.Time
}

// NewExploreSession analyzes every module of a's graph. Items are ordered by
// health, worst first, then by name.
func NewExploreSession(project string, a *depgraph.Analyzer) (*ExploreSession, error) {
	g := a.Graph()
	s := &ExploreSession{
		Project:     project,
		Items:       make([]*ModuleItem, 0, g.Len()),
		Statistics:  a.GetDependencyStatistics(),
		Suggestions: a.SuggestDependencyOptimizations(),
		CreatedAt:   time.Now(),
	}

	for _, name := range g.Modules() {
		h, err := a.AnalyzeModuleHealth(name)
		if err != nil {
			return nil, err
		}
		item := &ModuleItem{
			Health:       h,
			Dependencies: g.DependencyNames(name),
			Dependents:   g.DependentNames(name),
		}
		if m, ok := g.Module(name); ok {
			item.Path = m.Path
		}
		chain, err := g.GetDependencyChain(name)
		switch {
		case errors.Is(err, depgraph.ErrCircularDependency):
		case err != nil:
			return nil, err
		default:
			item.Chain = chain
		}
		s.Items = append(s.Items, item)
	}

	sort.SliceStable(s.Items, func(i, j int) bool {
		if s.Items[i].Health.HealthScore != s.Items[j].Health.HealthScore {
			return s.Items[i].Health.HealthScore < s.Items[j].Health.HealthScore
		}
		return s.Items[i].Name() < s.Items[j].Name()
	})
	return s, nil
}

// Filter returns the indexes of items whose name contains query, ignoring
// case. An empty query matches everything.
func (s *ExploreSession) Filter(query string) []int {
	query = strings.ToLower(strings.TrimSpace(query))
	idx := make([]int, 0, len(s.Items))
	for i, it := range s.Items {
		if query == "" || strings.Contains(strings.ToLower(it.Name()), query) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Flagged returns the flagged items in session order.
func (s *ExploreSession) Flagged() []*ModuleItem {
	var out []*ModuleItem
	for _, it := range s.Items {
		if it.Flagged {
			out = append(out, it)
		}
	}
	return out
}

// SuggestionsFor returns the suggestions that mention module.
func (s *ExploreSession) SuggestionsFor(module string) []depgraph.Suggestion {
	var out []depgraph.Suggestion
	for _, sg := range s.Suggestions {
		for _, m := range sg.Modules {
			if m == module {
				out = append(out, sg)
				break
			}
		}
	}
	return out
}
