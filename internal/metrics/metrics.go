// Package metrics builds the report of one analysis session: which steps
// ran, how long they took and what the graph looked like.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/LexxLuey/fascraft/internal/depgraph"
	"github.com/LexxLuey/fascraft/internal/qualitygate"
)

// RunMetrics collects statistics for one analysis session.
type RunMetrics struct {
	RunID      string                      `json:"run_id"`
	Command    string                      `json:"command"`
	Manifest   string                      `json:"manifest,omitempty"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt time.Time                   `json:"finished_at,omitempty"`
	Duration   time.Duration               `json:"duration_ms,omitempty"`
	Graph      GraphMetrics                `json:"graph"`
	Steps      []StepMetrics               `json:"steps"`
	Gates      *qualitygate.PipelineResult `json:"gates,omitempty"`
	Errors     []string                    `json:"errors,omitempty"`
}

type GraphMetrics struct {
	Modules             int     `json:"modules"`
	Dependencies        int     `json:"dependencies"`
	AverageDependencies float64 `json:"average_dependencies"`
	CircularChains      int     `json:"circular_chains"`
	MaxDepth            int     `json:"max_depth"`
	LeafModules         int     `json:"leaf_modules"`
	RootModules         int     `json:"root_modules"`
}

type StepMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
	Error    string        `json:"error,omitempty"`
}

// New starts tracking a session with a fresh run id.
func New(command, manifest string) *RunMetrics {
	return &RunMetrics{
		RunID:     uuid.NewString(),
		Command:   command,
		Manifest:  manifest,
		StartedAt: time.Now(),
	}
}

// CollectGraph copies the graph-wide figures from s.
func (m *RunMetrics) CollectGraph(s depgraph.DependencyStatistics) {
	m.Graph = GraphMetrics{
		Modules:             s.TotalModules,
		Dependencies:        s.TotalDependencies,
		AverageDependencies: s.AverageDependenciesPerModule,
		CircularChains:      len(s.CircularDependencies),
		MaxDepth:            s.MaxDepth,
		LeafModules:         len(s.LeafModules),
		RootModules:         len(s.RootModules),
	}
}

// Step times fn and records it under name. The error of fn is returned
// unchanged.
func (m *RunMetrics) Step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	s := StepMetrics{Name: name, Duration: time.Since(start)}
	if err != nil {
		s.Error = err.Error()
	}
	m.Steps = append(m.Steps, s)
	return err
}

// Finish marks the session as complete.
func (m *RunMetrics) Finish(errs ...error) {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	for _, err := range errs {
		if err != nil {
			m.Errors = append(m.Errors, err.Error())
		}
	}
}

// PrintSummary writes a human-readable summary.
func (m *RunMetrics) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║       FASCRAFT ANALYSIS REPORT       ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Run:         %-23s║\n", shortID(m.RunID))
	fmt.Fprintf(w, "║ Command:     %-23s║\n", m.Command)
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ GRAPH\n")
	fmt.Fprintf(w, "║   Modules:       %d\n", m.Graph.Modules)
	fmt.Fprintf(w, "║   Dependencies:  %d (avg %.2f)\n", m.Graph.Dependencies, m.Graph.AverageDependencies)
	fmt.Fprintf(w, "║   Cycles:        %d\n", m.Graph.CircularChains)
	if m.Graph.MaxDepth >= 0 {
		fmt.Fprintf(w, "║   Max Depth:     %d\n", m.Graph.MaxDepth)
	} else {
		fmt.Fprintf(w, "║   Max Depth:     undefined\n")
	}
	fmt.Fprintf(w, "║   Leaves/Roots:  %d/%d\n", m.Graph.LeafModules, m.Graph.RootModules)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ STEPS\n")
	for _, s := range m.Steps {
		status := "OK"
		if s.Error != "" {
			status = "FAILED"
		}
		fmt.Fprintf(w, "║   %-14s %8s  %s\n", s.Name, s.Duration.Round(time.Millisecond), status)
	}
	if m.Gates != nil {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ GATES\n")
		fmt.Fprintf(w, "║   %d passed, %d failed, %d warnings, %d skipped\n",
			m.Gates.PassedCount, m.Gates.FailedCount, m.Gates.WarningCount, m.Gates.SkippedCount)
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the report as formatted JSON.
func (m *RunMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
