package qualitygate

import (
	"fmt"
	"sort"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

// AcyclicGate fails when the graph has any circular dependency.
type AcyclicGate struct {
	severity GateSeverity
}

func NewAcyclicGate(severity GateSeverity) *AcyclicGate {
	return &AcyclicGate{severity: severity}
}

func (g *AcyclicGate) Name() string           { return "acyclic" }
func (g *AcyclicGate) Severity() GateSeverity { return g.severity }
func (g *AcyclicGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	cycles := ctx.Statistics.CircularDependencies
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
		Value:    float64(len(cycles)),
	}
	if len(cycles) == 0 {
		r.Status = GatePassed
		r.Message = "No circular dependencies"
		return r, nil
	}
	r.Status = GateFailed
	r.Message = fmt.Sprintf("%d circular dependency chain(s)", len(cycles))
	for _, c := range cycles {
		r.Details = append(r.Details, depgraph.FormatCycle(c))
	}
	return r, nil
}

// HealthGate checks the average module health score.
type HealthGate struct {
	MinScore float64
	severity GateSeverity
}

func NewHealthGate(minScore float64, severity GateSeverity) *HealthGate {
	return &HealthGate{MinScore: minScore, severity: severity}
}

func (g *HealthGate) Name() string           { return "health" }
func (g *HealthGate) Severity() GateSeverity { return g.severity }
func (g *HealthGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: g.MinScore,
	}
	if len(ctx.Health) == 0 {
		r.Status = GateSkipped
		r.Message = "No modules to evaluate"
		return r, nil
	}

	total := 0
	for _, h := range ctx.Health {
		total += h.HealthScore
		if float64(h.HealthScore) < g.MinScore {
			r.Details = append(r.Details, fmt.Sprintf("%s: %d", h.ModuleName, h.HealthScore))
		}
	}
	avg := float64(total) / float64(len(ctx.Health))
	r.Value = avg

	if avg >= g.MinScore {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Average health %.1f meets threshold %.1f", avg, g.MinScore)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Average health %.1f below threshold %.1f", avg, g.MinScore)
	}
	return r, nil
}

// FanOutGate limits how many dependencies a single module may have.
type FanOutGate struct {
	MaxDependencies int
	severity        GateSeverity
}

func NewFanOutGate(maxDependencies int, severity GateSeverity) *FanOutGate {
	return &FanOutGate{MaxDependencies: maxDependencies, severity: severity}
}

func (g *FanOutGate) Name() string           { return "fan_out" }
func (g *FanOutGate) Severity() GateSeverity { return g.severity }
func (g *FanOutGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: float64(g.MaxDependencies),
	}

	worst := 0
	var offenders []string
	for name, n := range ctx.FanOut {
		worst = max(worst, n)
		if n > g.MaxDependencies {
			offenders = append(offenders, fmt.Sprintf("%s: %d", name, n))
		}
	}
	sort.Strings(offenders)
	r.Value = float64(worst)
	r.Details = offenders

	if len(offenders) == 0 {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("No module exceeds %d dependencies", g.MaxDependencies)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("%d module(s) exceed %d dependencies", len(offenders), g.MaxDependencies)
	}
	return r, nil
}

// DepthGate limits the longest dependency chain. It is skipped on cyclic
// graphs, where depth is undefined.
type DepthGate struct {
	MaxDepth int
	severity GateSeverity
}

func NewDepthGate(maxDepth int, severity GateSeverity) *DepthGate {
	return &DepthGate{MaxDepth: maxDepth, severity: severity}
}

func (g *DepthGate) Name() string           { return "depth" }
func (g *DepthGate) Severity() GateSeverity { return g.severity }
func (g *DepthGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: float64(g.MaxDepth),
	}
	depth := ctx.Statistics.MaxDepth
	if depth < 0 {
		r.Status = GateSkipped
		r.Message = "Depth undefined for a cyclic graph"
		return r, nil
	}
	r.Value = float64(depth)
	if depth <= g.MaxDepth {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Max depth %d within limit %d", depth, g.MaxDepth)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Max depth %d exceeds limit %d", depth, g.MaxDepth)
	}
	return r, nil
}

// IsolationGate limits modules that are disconnected from the rest.
type IsolationGate struct {
	MaxIsolated int
	severity    GateSeverity
}

func NewIsolationGate(maxIsolated int, severity GateSeverity) *IsolationGate {
	return &IsolationGate{MaxIsolated: maxIsolated, severity: severity}
}

func (g *IsolationGate) Name() string           { return "isolation" }
func (g *IsolationGate) Severity() GateSeverity { return g.severity }
func (g *IsolationGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Value:     float64(len(ctx.Isolated)),
		Threshold: float64(g.MaxIsolated),
	}
	if len(ctx.Isolated) <= g.MaxIsolated {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("%d isolated module(s), limit %d", len(ctx.Isolated), g.MaxIsolated)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("%d isolated module(s) exceed limit %d", len(ctx.Isolated), g.MaxIsolated)
		r.Details = ctx.Isolated
	}
	return r, nil
}
