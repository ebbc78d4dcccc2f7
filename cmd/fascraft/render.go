package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

const topHealthModules = 5

func severityLabel(t depgraph.SuggestionType) string {
	switch t {
	case depgraph.SuggestionCritical:
		return "CRITICAL"
	case depgraph.SuggestionWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

func writeSuggestions(w io.Writer, suggestions []depgraph.Suggestion) {
	if len(suggestions) == 0 {
		fmt.Fprintln(w, "  No optimization suggestions")
		return
	}
	for _, s := range suggestions {
		fmt.Fprintf(w, "  [%s] %s\n", severityLabel(s.Type), s.Issue)
		fmt.Fprintf(w, "      %s\n", s.Description)
	}
}

func writeIssues(w io.Writer, issues []depgraph.Issue) {
	if len(issues) == 0 {
		fmt.Fprintln(w, "No dependency issues found")
		return
	}
	fmt.Fprintf(w, "Found %d dependency issue(s):\n", len(issues))
	for _, issue := range issues {
		fmt.Fprintf(w, "  [%s] %s: %s\n", severityLabel(issue.Severity), issue.Title, issue.Description)
	}
}

// writeResolutions prints what ResolveIssues did and returns how many
// edges were removed.
func writeResolutions(w io.Writer, resolutions []depgraph.Resolution) int {
	applied := 0
	for _, r := range resolutions {
		mark := "advice"
		if r.Applied {
			mark = "fixed"
			applied++
		}
		fmt.Fprintf(w, "  [%s] %s: %s\n", mark, r.Issue.Title, r.Message)
	}
	return applied
}

func writeModuleHealth(w io.Writer, h depgraph.ModuleHealth) {
	fmt.Fprintf(w, "%s Health Metrics\n", h.ModuleName)
	fmt.Fprintln(w, strings.Repeat("-", len(h.ModuleName)+15))
	fmt.Fprintf(w, "  Health Score:  %d/100\n", h.HealthScore)
	fmt.Fprintf(w, "  Dependencies:  %d\n", h.DependencyCount)
	fmt.Fprintf(w, "  Dependents:    %d\n", h.DependentCount)
	if h.Depth >= 0 {
		fmt.Fprintf(w, "  Depth:         %d\n", h.Depth)
	} else {
		fmt.Fprintln(w, "  Depth:         undefined (cycle reachable)")
	}
	fmt.Fprintf(w, "  Circular:      %t\n", h.IsCircular)
	for _, c := range h.Cycles {
		fmt.Fprintf(w, "    %s\n", depgraph.FormatCycle(c))
	}
}

func writeProjectHealth(w io.Writer, name string, reports []depgraph.ModuleHealth) {
	fmt.Fprintf(w, "Project Health Overview: %s\n\n", name)
	if len(reports) == 0 {
		fmt.Fprintln(w, "  No modules declared")
		return
	}

	total, circular, orphaned := 0, 0, 0
	for _, h := range reports {
		total += h.HealthScore
		if h.IsCircular {
			circular++
		}
		if h.DependentCount == 0 {
			orphaned++
		}
	}
	fmt.Fprintln(w, "Overall Health Metrics")
	fmt.Fprintf(w, "  Modules:          %d\n", len(reports))
	fmt.Fprintf(w, "  Average Score:    %.1f\n", float64(total)/float64(len(reports)))
	fmt.Fprintf(w, "  Circular Modules: %d\n", circular)
	fmt.Fprintf(w, "  No Dependents:    %d\n", orphaned)

	ranked := append([]depgraph.ModuleHealth(nil), reports...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].HealthScore > ranked[j].HealthScore
	})
	if len(ranked) > topHealthModules {
		ranked = ranked[:topHealthModules]
	}
	fmt.Fprintln(w, "\nTop Modules by Health")
	for i, h := range ranked {
		fmt.Fprintf(w, "  %d. %-20s %3d\n", i+1, h.ModuleName, h.HealthScore)
	}
}
