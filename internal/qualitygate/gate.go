// Package qualitygate evaluates a dependency graph against configurable
// thresholds (cycles, module health, fan-out, depth, isolation) and decides
// whether `fascraft deps check` passes.
package qualitygate

import (
	"fmt"
	"time"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

// GateStatus represents the result of a quality gate check.
type GateStatus string

const (
	GatePassed  GateStatus = "passed"
	GateFailed  GateStatus = "failed"
	GateSkipped GateStatus = "skipped"
	GateWarning GateStatus = "warning"
)

// GateSeverity indicates how critical a gate failure is.
type GateSeverity string

const (
	SeverityCritical GateSeverity = "critical" // fails the check and skips the remaining gates
	SeverityRequired GateSeverity = "required" // fails the check
	SeverityAdvisory GateSeverity = "advisory" // reported as a warning only
)

// GateResult captures the outcome of a single gate evaluation.
type GateResult struct {
	Name        string        `json:"name"`
	Status      GateStatus    `json:"status"`
	Severity    GateSeverity  `json:"severity"`
	Value       float64       `json:"value"`
	Threshold   float64       `json:"threshold"`
	Message     string        `json:"message"`
	Details     []string      `json:"details,omitempty"`
	Duration    time.Duration `json:"duration"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

// Gate is the interface all quality gates must implement.
type Gate interface {
	Name() string
	Severity() GateSeverity
	Evaluate(ctx *EvalContext) (*GateResult, error)
}

// EvalContext is the analysis every gate reads from. Building it once keeps
// gates from recomputing cycles and depths.
type EvalContext struct {
	Statistics depgraph.DependencyStatistics
	Health     []depgraph.ModuleHealth
	FanOut     map[string]int // dependencies per module
	Isolated   []string       // modules with neither dependencies nor dependents
}

// NewEvalContext analyzes the graph behind a.
func NewEvalContext(a *depgraph.Analyzer) (*EvalContext, error) {
	g := a.Graph()
	ctx := &EvalContext{
		Statistics: a.GetDependencyStatistics(),
		Health:     make([]depgraph.ModuleHealth, 0, g.Len()),
		FanOut:     make(map[string]int, g.Len()),
	}
	for _, name := range g.Modules() {
		h, err := a.AnalyzeModuleHealth(name)
		if err != nil {
			return nil, fmt.Errorf("analyze %s: %w", name, err)
		}
		ctx.Health = append(ctx.Health, h)
		ctx.FanOut[name] = h.DependencyCount
		if g.Len() > 1 && h.DependencyCount == 0 && h.DependentCount == 0 {
			ctx.Isolated = append(ctx.Isolated, name)
		}
	}
	return ctx, nil
}

// PipelineResult captures the complete gate pipeline evaluation.
type PipelineResult struct {
	Status       GateStatus    `json:"status"` // failed when a critical or required gate failed
	Gates        []GateResult  `json:"gates"`
	PassedCount  int           `json:"passed_count"`
	FailedCount  int           `json:"failed_count"`
	SkippedCount int           `json:"skipped_count"`
	WarningCount int           `json:"warning_count"`
	Duration     time.Duration `json:"duration"`
	EvaluatedAt  time.Time     `json:"evaluated_at"`
	Summary      string        `json:"summary"`
}

// Failed reports whether the pipeline blocks the check.
func (r *PipelineResult) Failed() bool {
	return r.Status == GateFailed
}

// Pipeline runs gates in order.
type Pipeline struct {
	gates []Gate
}

// NewPipeline creates a new quality gate pipeline.
func NewPipeline(gates ...Gate) *Pipeline {
	return &Pipeline{gates: gates}
}

// AddGate appends a gate to the pipeline.
func (p *Pipeline) AddGate(g Gate) {
	p.gates = append(p.gates, g)
}

// Len returns the number of gates.
func (p *Pipeline) Len() int {
	return len(p.gates)
}

// Run evaluates all gates against ctx. A failed advisory gate is downgraded
// to a warning; a failed critical gate skips every gate after it.
func (p *Pipeline) Run(ctx *EvalContext) *PipelineResult {
	start := time.Now()
	result := &PipelineResult{
		Status:      GatePassed,
		Gates:       []GateResult{},
		EvaluatedAt: start,
	}

	aborted := false

	for _, gate := range p.gates {
		if aborted {
			result.Gates = append(result.Gates, GateResult{
				Name:        gate.Name(),
				Status:      GateSkipped,
				Severity:    gate.Severity(),
				Message:     "Skipped due to critical gate failure",
				EvaluatedAt: time.Now(),
			})
			result.SkippedCount++
			continue
		}

		gateStart := time.Now()
		gr, err := gate.Evaluate(ctx)
		if err != nil {
			gr = &GateResult{
				Name:     gate.Name(),
				Status:   GateFailed,
				Severity: gate.Severity(),
				Message:  fmt.Sprintf("Gate evaluation error: %v", err),
			}
		}
		if gr.Status == GateFailed && gr.Severity == SeverityAdvisory {
			gr.Status = GateWarning
		}
		gr.Duration = time.Since(gateStart)
		gr.EvaluatedAt = gateStart

		result.Gates = append(result.Gates, *gr)

		switch gr.Status {
		case GatePassed:
			result.PassedCount++
		case GateFailed:
			result.FailedCount++
			result.Status = GateFailed
			if gr.Severity == SeverityCritical {
				aborted = true
			}
		case GateWarning:
			result.WarningCount++
		case GateSkipped:
			result.SkippedCount++
		}
	}

	result.Duration = time.Since(start)
	result.Summary = formatSummary(result)

	return result
}

func formatSummary(r *PipelineResult) string {
	return fmt.Sprintf("Quality Gates: %d passed, %d failed, %d warnings, %d skipped [%s]",
		r.PassedCount, r.FailedCount, r.WarningCount, r.SkippedCount, r.Status)
}
