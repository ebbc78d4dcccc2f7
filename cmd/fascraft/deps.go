package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LexxLuey/fascraft/internal/depgraph"
	"github.com/LexxLuey/fascraft/internal/metrics"
	"github.com/LexxLuey/fascraft/internal/observability"
	"github.com/LexxLuey/fascraft/internal/project"
	"github.com/LexxLuey/fascraft/internal/qualitygate"
	"github.com/LexxLuey/fascraft/internal/snapshot"
	"github.com/LexxLuey/fascraft/internal/tui"
)

// errIssuesFound and errGatesFailed make `deps check` exit non-zero without
// repeating the report it already printed.
var (
	errIssuesFound = errors.New("critical dependency issues found")
	errGatesFailed = errors.New("dependency quality gates failed")
)

func newDepsCmd(a *app) *cobra.Command {
	depsCmd := &cobra.Command{
		Use:   "deps",
		Short: "Inspect and validate module dependencies",
	}

	var detailed bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the dependency overview",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(ctx context.Context, args []string) error {
			return a.depsShow(ctx, detailed)
		}),
	}
	showCmd.Flags().BoolVar(&detailed, "detailed", false, "Include rankings and optimization suggestions")

	var (
		addEdge    string
		jsonReport bool
	)
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the dependency graph, or check a dependency before adding it",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(ctx context.Context, args []string) error {
			if addEdge != "" {
				return a.depsCheckAdd(addEdge)
			}
			return a.depsCheck(ctx, jsonReport)
		}),
	}
	checkCmd.Flags().StringVar(&addEdge, "add", "", "Check whether source:target can be added")
	checkCmd.Flags().BoolVar(&jsonReport, "json", false, "Output the run report as JSON")

	healthCmd := &cobra.Command{
		Use:   "health [module]",
		Short: "Show the health of one module or of the whole project",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.runE(func(ctx context.Context, args []string) error {
			if len(args) == 1 {
				return a.depsModuleHealth(ctx, args[0])
			}
			return a.depsProjectHealth(ctx)
		}),
	}

	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Print a build order where every module follows its dependencies",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(ctx context.Context, args []string) error {
			_, g, err := a.loadProject()
			if err != nil {
				return err
			}
			_, span := observability.StartAnalysisSpan(ctx, "order", g.Len())
			defer span.End()
			order, err := g.GetTopologicalOrder()
			observability.RecordError(span, err)
			if err != nil {
				return err
			}
			for i, name := range order {
				a.printf("%3d. %s\n", i+1, name)
			}
			return nil
		}),
	}

	chainCmd := &cobra.Command{
		Use:   "chain <module>",
		Short: "Print a module and its transitive dependencies in build order",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(ctx context.Context, args []string) error {
			_, g, err := a.loadProject()
			if err != nil {
				return err
			}
			chain, err := g.GetDependencyChain(args[0])
			if err != nil {
				return err
			}
			a.printf("%s\n", strings.Join(chain, " -> "))
			return nil
		}),
	}

	depthCmd := &cobra.Command{
		Use:   "depth <module>",
		Short: "Print the length of the longest dependency path from a module",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(ctx context.Context, args []string) error {
			_, g, err := a.loadProject()
			if err != nil {
				return err
			}
			depth, err := g.GetModuleDepth(args[0])
			if err != nil {
				return err
			}
			a.printf("%s: %d\n", args[0], depth)
			return nil
		}),
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the manifest without analyzing the graph",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(ctx context.Context, args []string) error {
			m, err := project.Load(a.manifestPath)
			if err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return fmt.Errorf("manifest %s is invalid:\n%w", a.manifestPath, err)
			}
			a.printf("Manifest %s is valid (%d modules)\n", a.manifestPath, len(m.Modules))
			return nil
		}),
	}

	var write bool
	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Break circular dependencies and advise on the remaining issues",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(ctx context.Context, args []string) error {
			return a.depsResolve(ctx, write)
		}),
	}
	resolveCmd.Flags().BoolVar(&write, "write", false, "Write the resolved graph back to the manifest")

	var (
		format string
		output string
	)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the graph as JSON, Graphviz DOT or Mermaid",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(ctx context.Context, args []string) error {
			return a.depsExport(format, output)
		}),
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "Output format: json, dot, mermaid")
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (stdout when empty)")

	var diffJSON bool
	diffCmd := &cobra.Command{
		Use:   "diff <other>",
		Short: "Compare the project graph with an exported JSON document or another manifest",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(ctx context.Context, args []string) error {
			return a.depsDiff(args[0], diffJSON)
		}),
	}
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output the diff as JSON")

	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Store the project graph in Neo4j",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(ctx context.Context, args []string) error {
			return a.depsStore(ctx)
		}),
	}

	var loadOutput string
	loadCmd := &cobra.Command{
		Use:   "load [project]",
		Short: "Load a project graph from Neo4j",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.runE(func(ctx context.Context, args []string) error {
			return a.depsLoad(ctx, args, loadOutput)
		}),
	}
	loadCmd.Flags().StringVarP(&loadOutput, "output", "o", "", "Write the loaded graph as a manifest")

	dependentsCmd := &cobra.Command{
		Use:   "dependents <module>",
		Short: "List every stored module that depends on a module, directly or not",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(ctx context.Context, args []string) error {
			return a.depsDependents(ctx, args[0])
		}),
	}

	var reportPath string
	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "Browse modules interactively and flag the ones needing work",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(ctx context.Context, args []string) error {
			return a.depsExplore(reportPath)
		}),
	}
	exploreCmd.Flags().StringVar(&reportPath, "report", "", "Write flagged modules to this JSON file")

	depsCmd.AddCommand(showCmd, checkCmd, healthCmd, orderCmd, chainCmd, depthCmd,
		validateCmd, resolveCmd, exportCmd, diffCmd, storeCmd, loadCmd, dependentsCmd, exploreCmd)
	return depsCmd
}

func (a *app) depsShow(ctx context.Context, detailed bool) error {
	m, g, err := a.loadProject()
	if err != nil {
		return err
	}
	_, span := observability.StartAnalysisSpan(ctx, "statistics", g.Len())
	defer span.End()

	an := a.analyzer(g)
	stats := an.GetDependencyStatistics()
	observability.RecordGraphResult(span, stats.TotalModules, stats.TotalDependencies, len(stats.CircularDependencies))

	a.printf("Dependency Overview: %s\n\n", m.Name)
	if stats.HasCircularDependencies {
		a.printf("Critical: Circular dependencies detected!\n\n")
	}
	if !detailed {
		stats.MostDependencies = nil
		stats.MostDependents = nil
	}
	a.printf("%s\n", depgraph.FormatStatistics(stats))
	a.printf("%s", depgraph.FormatTree(g, "Dependency Tree"))

	if detailed {
		a.printf("\nDetailed Analysis\n")
		writeSuggestions(a.out, an.SuggestDependencyOptimizations())
	}
	return nil
}

// depsCheck runs the full validation and the configured quality gates, and
// prints the issues, the gate report and the run report. A failed gate, or a
// critical issue when gates are disabled, makes the command fail.
func (a *app) depsCheck(ctx context.Context, jsonReport bool) error {
	run := metrics.New("deps check", a.manifestPath)

	var g *depgraph.DependencyGraph
	err := run.Step("load", func() error {
		var err error
		_, g, err = a.loadProject()
		return err
	})
	if err != nil {
		run.Finish(err)
		return a.finishReport(run, jsonReport, err)
	}

	_, span := observability.StartAnalysisSpan(ctx, "validate", g.Len())
	defer span.End()

	an := a.analyzer(g)
	var issues []depgraph.Issue
	_ = run.Step("validate", func() error {
		issues = an.ValidateDependencies()
		return nil
	})
	_ = run.Step("statistics", func() error {
		run.CollectGraph(an.GetDependencyStatistics())
		return nil
	})
	_ = run.Step("gates", func() error {
		pipeline := qualitygate.BuildPipeline(&a.cfg.Gates)
		if pipeline.Len() == 0 {
			return nil
		}
		evalCtx, err := qualitygate.NewEvalContext(an)
		if err != nil {
			return err
		}
		run.Gates = pipeline.Run(evalCtx)
		return nil
	})
	observability.RecordGraphResult(span, run.Graph.Modules, run.Graph.Dependencies, run.Graph.CircularChains)

	var failure error
	switch {
	case run.Gates != nil && run.Gates.Failed():
		failure = errGatesFailed
	case run.Gates == nil && hasCritical(issues):
		failure = errIssuesFound
	}
	if failure != nil {
		observability.RecordError(span, failure)
	}
	run.Finish(failure)

	if !jsonReport {
		writeIssues(a.out, issues)
		if run.Gates != nil {
			a.printf("\n%s", qualitygate.FormatReport(run.Gates))
		}
	}
	return a.finishReport(run, jsonReport, failure)
}

func (a *app) finishReport(run *metrics.RunMetrics, jsonReport bool, err error) error {
	if jsonReport {
		data, jerr := run.JSON()
		if jerr != nil {
			return jerr
		}
		a.printf("%s\n", data)
	} else {
		run.PrintSummary(a.out)
	}
	return err
}

func hasCritical(issues []depgraph.Issue) bool {
	for _, issue := range issues {
		if issue.Severity == depgraph.SuggestionCritical {
			return true
		}
	}
	return false
}

// depsCheckAdd answers whether source:target may be added to the project.
func (a *app) depsCheckAdd(edge string) error {
	source, target, ok := strings.Cut(edge, ":")
	if !ok || source == "" || target == "" {
		return fmt.Errorf("invalid --add %q, expected source:target", edge)
	}
	_, g, err := a.loadProject()
	if err != nil {
		return err
	}
	if g.DependsOn(source, target) {
		a.printf("%s already depends on %s\n", source, target)
		return nil
	}
	if err := g.CheckDependency(source, target); err != nil {
		var cycleErr *depgraph.CircularDependencyError
		if errors.As(err, &cycleErr) {
			a.printf("Adding %s -> %s would create a cycle:\n  %s\n", source, target, depgraph.FormatCycle(cycleErr.Cycle))
		}
		return fmt.Errorf("cannot add dependency %s -> %s: %w", source, target, err)
	}
	a.printf("%s -> %s can be added safely\n", source, target)
	return nil
}

func (a *app) depsModuleHealth(ctx context.Context, name string) error {
	_, g, err := a.loadProject()
	if err != nil {
		return err
	}
	_, span := observability.StartAnalysisSpan(ctx, "health", g.Len())
	defer span.End()

	h, err := a.analyzer(g).AnalyzeModuleHealth(name)
	observability.RecordError(span, err)
	if err != nil {
		if errors.Is(err, depgraph.ErrModuleNotFound) {
			return fmt.Errorf("module '%s' not found in dependency graph", name)
		}
		return err
	}
	writeModuleHealth(a.out, h)
	return nil
}

func (a *app) depsProjectHealth(ctx context.Context) error {
	m, g, err := a.loadProject()
	if err != nil {
		return err
	}
	_, span := observability.StartAnalysisSpan(ctx, "health", g.Len())
	defer span.End()

	an := a.analyzer(g)
	reports := make([]depgraph.ModuleHealth, 0, g.Len())
	for _, name := range g.Modules() {
		h, err := an.AnalyzeModuleHealth(name)
		if err != nil {
			return err
		}
		reports = append(reports, h)
	}
	writeProjectHealth(a.out, m.Name, reports)
	return nil
}

func (a *app) depsResolve(ctx context.Context, write bool) error {
	m, g, err := a.loadProject()
	if err != nil {
		return err
	}
	_, span := observability.StartAnalysisSpan(ctx, "resolve", g.Len())
	defer span.End()

	issues := a.analyzer(g).ValidateDependencies()
	if len(issues) == 0 {
		a.printf("No dependency issues found\n")
		return nil
	}
	resolutions := depgraph.ResolveIssues(g, issues)
	applied := writeResolutions(a.out, resolutions)

	if applied == 0 || !write {
		if applied > 0 {
			a.printf("\nRe-run with --write to update %s\n", a.manifestPath)
		}
		return nil
	}
	if err := project.FromGraph(m.Name, g).Save(a.manifestPath); err != nil {
		return err
	}
	a.logger.Info("manifest updated", "path", a.manifestPath, "removed", applied)
	a.printf("\nUpdated %s\n", a.manifestPath)
	return nil
}

func (a *app) depsExport(format, output string) error {
	_, g, err := a.loadProject()
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "json":
		data, err = g.ExportJSON()
		if err != nil {
			return fmt.Errorf("export graph: %w", err)
		}
		data = append(data, '\n')
	case "dot":
		data = []byte(depgraph.ExportDOT(g))
	case "mermaid":
		data = []byte(depgraph.ExportMermaid(g))
	default:
		return fmt.Errorf("unknown export format %q (want json, dot or mermaid)", format)
	}

	if output == "" {
		_, err := a.out.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write export %s: %w", output, err)
	}
	a.printf("Exported %d modules to %s\n", g.Len(), output)
	return nil
}

// depsDiff treats .json files as exported documents and anything else as a
// manifest.
func (a *app) depsDiff(other string, jsonOutput bool) error {
	_, g, err := a.loadProject()
	if err != nil {
		return err
	}

	var otherDoc *depgraph.Document
	if strings.EqualFold(filepath.Ext(other), ".json") {
		data, err := os.ReadFile(other)
		if err != nil {
			return fmt.Errorf("read %s: %w", other, err)
		}
		if otherDoc, err = depgraph.ParseDocument(data); err != nil {
			return err
		}
	} else {
		om, err := project.Load(other)
		if err != nil {
			return err
		}
		og, err := om.Build()
		if err != nil {
			return err
		}
		otherDoc = og.Document()
	}

	d, err := snapshot.DiffDocuments(otherDoc, g.Document())
	if err != nil {
		return err
	}
	if jsonOutput {
		return a.printJSON(d)
	}
	a.printf("%s", snapshot.FormatDiff(d))
	return nil
}

func (a *app) depsStore(ctx context.Context) error {
	m, g, err := a.loadProject()
	if err != nil {
		return err
	}
	repo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	if err := repo.StoreGraph(ctx, m.Name, g); err != nil {
		return err
	}
	a.printf("Stored %s: %d modules, %d dependencies\n", m.Name, g.Len(), g.EdgeCount())
	return nil
}

// depsLoad loads the named project, or the manifest's project when no name
// is given.
func (a *app) depsLoad(ctx context.Context, args []string, output string) error {
	var name string
	if len(args) == 1 {
		name = args[0]
	} else {
		m, err := project.Load(a.manifestPath)
		if err != nil {
			return err
		}
		name = m.Name
	}

	repo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	g, err := repo.LoadGraph(ctx, name)
	if err != nil {
		return err
	}
	a.printf("%s\n", depgraph.FormatStatistics(a.analyzer(g).GetDependencyStatistics()))
	if output != "" {
		if err := project.FromGraph(name, g).Save(output); err != nil {
			return err
		}
		a.printf("Wrote manifest %s\n", output)
	}
	return nil
}

func (a *app) depsDependents(ctx context.Context, module string) error {
	m, err := project.Load(a.manifestPath)
	if err != nil {
		return err
	}
	repo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	names, err := repo.QueryDependents(ctx, m.Name, module)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		a.printf("Nothing depends on %s\n", module)
		return nil
	}
	for _, name := range names {
		a.printf("%s\n", name)
	}
	return nil
}

func (a *app) depsExplore(reportPath string) error {
	m, g, err := a.loadProject()
	if err != nil {
		return err
	}
	session, err := tui.NewExploreSession(m.Name, a.analyzer(g))
	if err != nil {
		return err
	}
	session, err = tui.RunExplore(session)
	if err != nil {
		return err
	}

	flagged := session.Flagged()
	a.logger.Debug("exploration finished", "flagged", len(flagged))
	if reportPath == "" {
		for _, it := range flagged {
			a.printf("flagged: %s (%d/100) %s\n", it.Name(), it.Health.HealthScore, it.Note)
		}
		return nil
	}
	if err := tui.SaveExploreReport(session, reportPath); err != nil {
		return err
	}
	a.printf("Wrote %d flagged module(s) to %s\n", len(flagged), reportPath)
	return nil
}
