package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunExplore starts the interactive explorer, then shows the summary.
// The returned session carries the user's flags and notes.
func RunExplore(session *ExploreSession, opts ...tea.ProgramOption) (*ExploreSession, error) {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	finalModel, err := tea.NewProgram(NewExploreModel(session), opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("explorer: %w", err)
	}
	final := finalModel.(ExploreModel).Session()

	if _, err := tea.NewProgram(NewSummaryModel(final), opts...).Run(); err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return final, nil
}

// ExploreReport is the JSON written after an exploration.
type ExploreReport struct {
	Timestamp string               `json:"timestamp"`
	Project   string               `json:"project"`
	Flagged   []ExploreReportItem  `json:"flagged"`
	Summary   ExploreReportSummary `json:"summary"`
}

type ExploreReportItem struct {
	Module      string   `json:"module"`
	HealthScore int      `json:"health_score"`
	IsCircular  bool     `json:"is_circular"`
	Dependents  []string `json:"dependents,omitempty"`
	Note        string   `json:"note,omitempty"`
}

type ExploreReportSummary struct {
	Modules        int     `json:"modules"`
	Flagged        int     `json:"flagged"`
	AverageHealth  float64 `json:"average_health"`
	CircularChains int     `json:"circular_chains"`
}

// BuildExploreReport summarizes the session's flagged modules.
func BuildExploreReport(session *ExploreSession) ExploreReport {
	report := ExploreReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Project:   session.Project,
		Flagged:   []ExploreReportItem{},
		Summary: ExploreReportSummary{
			Modules:        len(session.Items),
			CircularChains: len(session.Statistics.CircularDependencies),
		},
	}

	total := 0
	for _, it := range session.Items {
		total += it.Health.HealthScore
		if !it.Flagged {
			continue
		}
		report.Flagged = append(report.Flagged, ExploreReportItem{
			Module:      it.Name(),
			HealthScore: it.Health.HealthScore,
			IsCircular:  it.Health.IsCircular,
			Dependents:  it.Dependents,
			Note:        it.Note,
		})
	}
	report.Summary.Flagged = len(report.Flagged)
	if len(session.Items) > 0 {
		report.Summary.AverageHealth = float64(total) / float64(len(session.Items))
	}
	return report
}

// SaveExploreReport writes the report of session to outputPath.
func SaveExploreReport(session *ExploreSession, outputPath string) error {
	data, err := json.MarshalIndent(BuildExploreReport(session), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
