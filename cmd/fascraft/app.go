package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/LexxLuey/fascraft/internal/config"
	"github.com/LexxLuey/fascraft/internal/depgraph"
	"github.com/LexxLuey/fascraft/internal/graph/neo4j"
	"github.com/LexxLuey/fascraft/internal/observability"
	"github.com/LexxLuey/fascraft/internal/project"
	"github.com/LexxLuey/fascraft/internal/secrets"
	"github.com/LexxLuey/fascraft/internal/snapshot"
)

// app carries what every command needs once the root flags are parsed.
type app struct {
	configPath   string
	manifestPath string
	logLevel     string

	cfg     *config.Config
	logger  *slog.Logger
	tracing *observability.TracerProvider
	out     io.Writer
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	a.logger = observability.NewLogger(cmd.ErrOrStderr(), observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	slog.SetDefault(a.logger)

	tp, err := observability.InitTracing(cmd.Context(), &observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.tracing = tp
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.tracing == nil {
		return nil
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Warn("tracing shutdown failed", "error", err)
	}
	return nil
}

// version is reported in traces and health responses.
const version = "0.1.0"

// runE wraps a command body in a command span.
func (a *app) runE(fn func(ctx context.Context, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, span := observability.StartCommandSpan(cmd.Context(), cmd.CommandPath())
		defer span.End()
		err := fn(ctx, args)
		observability.RecordError(span, err)
		return err
	}
}

// loadProject reads the manifest and builds its graph.
func (a *app) loadProject() (*project.Manifest, *depgraph.DependencyGraph, error) {
	m, err := project.Load(a.manifestPath)
	if err != nil {
		return nil, nil, err
	}
	g, err := m.Build()
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug("project graph built", "project", m.Name, "modules", g.Len(), "dependencies", g.EdgeCount())
	return m, g, nil
}

func (a *app) analyzer(g *depgraph.DependencyGraph) *depgraph.Analyzer {
	return depgraph.NewAnalyzer(g,
		depgraph.WithHighDependencyThreshold(a.cfg.Analysis.HighDependencyThreshold),
		depgraph.WithDeepChainThreshold(a.cfg.Analysis.DeepChainThreshold),
	)
}

func (a *app) openRepository(ctx context.Context) (*neo4j.Neo4jRepository, error) {
	password, err := a.graphPassword(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := neo4j.NewNeo4j(ctx, a.cfg.Graph.URI, a.cfg.Graph.Username, password)
	if err != nil {
		return nil, fmt.Errorf("connect graph store %s: %w", a.cfg.Graph.URI, err)
	}
	return repo, nil
}

// graphPassword prefers the configured password and otherwise asks the
// secrets provider. A password that resolves nowhere is left empty for
// servers without auth.
func (a *app) graphPassword(ctx context.Context) (string, error) {
	if a.cfg.Graph.Password != "" {
		return a.cfg.Graph.Password, nil
	}
	mgr, err := secrets.NewManager(&a.cfg.Secrets)
	if err != nil {
		return "", fmt.Errorf("secrets: %w", err)
	}
	password, err := mgr.Lookup(ctx, secrets.SecretGraphPassword, secrets.SecretNeo4jPassword)
	if err != nil {
		a.logger.Debug("no graph password configured", "error", err)
		return "", nil
	}
	return password, nil
}

func (a *app) openSnapshots() (*snapshot.Store, error) {
	return snapshot.NewStore(a.cfg.Snapshot.Dir)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}
