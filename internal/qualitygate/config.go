package qualitygate

import (
	"fmt"
	"strings"
)

// GateConfig defines the configuration for quality gates. A zero or
// negative limit disables the matching gate.
type GateConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	CycleSeverity string `mapstructure:"cycle_severity" json:"cycle_severity"`

	MinHealthScore float64 `mapstructure:"min_health_score" json:"min_health_score"`
	HealthSeverity string  `mapstructure:"health_severity" json:"health_severity"`

	MaxDependencies int    `mapstructure:"max_dependencies" json:"max_dependencies"`
	FanOutSeverity  string `mapstructure:"fan_out_severity" json:"fan_out_severity"`

	MaxDepth      int    `mapstructure:"max_depth" json:"max_depth"`
	DepthSeverity string `mapstructure:"depth_severity" json:"depth_severity"`

	// MaxIsolated is checked even when 0; use -1 to disable.
	MaxIsolated       int    `mapstructure:"max_isolated" json:"max_isolated"`
	IsolationSeverity string `mapstructure:"isolation_severity" json:"isolation_severity"`
}

// DefaultConfig returns the gates applied when nothing is configured:
// cycles abort the check, everything else only warns.
func DefaultConfig() *GateConfig {
	return &GateConfig{
		Enabled:           true,
		CycleSeverity:     "critical",
		MinHealthScore:    80,
		HealthSeverity:    "advisory",
		MaxDependencies:   10,
		FanOutSeverity:    "advisory",
		MaxDepth:          5,
		DepthSeverity:     "advisory",
		MaxIsolated:       0,
		IsolationSeverity: "advisory",
	}
}

// parseSeverity converts a string to GateSeverity.
func parseSeverity(s string) GateSeverity {
	switch strings.ToLower(s) {
	case "critical":
		return SeverityCritical
	case "required":
		return SeverityRequired
	case "advisory":
		return SeverityAdvisory
	default:
		return SeverityRequired
	}
}

// BuildPipeline constructs a gate pipeline from configuration. A disabled
// configuration yields an empty pipeline, which always passes.
func BuildPipeline(cfg *GateConfig) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := NewPipeline()
	if !cfg.Enabled {
		return p
	}

	p.AddGate(NewAcyclicGate(parseSeverity(cfg.CycleSeverity)))

	if cfg.MinHealthScore > 0 {
		p.AddGate(NewHealthGate(cfg.MinHealthScore, parseSeverity(cfg.HealthSeverity)))
	}

	if cfg.MaxDependencies > 0 {
		p.AddGate(NewFanOutGate(cfg.MaxDependencies, parseSeverity(cfg.FanOutSeverity)))
	}

	if cfg.MaxDepth > 0 {
		p.AddGate(NewDepthGate(cfg.MaxDepth, parseSeverity(cfg.DepthSeverity)))
	}

	if cfg.MaxIsolated >= 0 {
		p.AddGate(NewIsolationGate(cfg.MaxIsolated, parseSeverity(cfg.IsolationSeverity)))
	}

	return p
}

// FormatReport returns a human-readable quality gate report.
func FormatReport(result *PipelineResult) string {
	var b strings.Builder
	b.WriteString("╔══════════════════════════════════════════╗\n")
	b.WriteString("║        Dependency Quality Gates          ║\n")
	b.WriteString("╠══════════════════════════════════════════╣\n")

	for _, gr := range result.Gates {
		icon := "✓"
		switch gr.Status {
		case GateFailed:
			icon = "✗"
		case GateSkipped:
			icon = "○"
		case GateWarning:
			icon = "⚠"
		}

		severity := ""
		switch gr.Severity {
		case SeverityCritical:
			severity = "[CRITICAL]"
		case SeverityRequired:
			severity = "[REQUIRED]"
		case SeverityAdvisory:
			severity = "[ADVISORY]"
		}

		fmt.Fprintf(&b, "║ %s %-10s %-10s %s\n", icon, gr.Name, severity, gr.Message)
		for _, d := range gr.Details {
			fmt.Fprintf(&b, "║   → %s\n", d)
		}
	}

	b.WriteString("╠══════════════════════════════════════════╣\n")
	status := "PASSED"
	if result.Failed() {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "║ Result: %s (%s)\n", status, result.Summary)
	b.WriteString("╚══════════════════════════════════════════╝\n")

	return b.String()
}
