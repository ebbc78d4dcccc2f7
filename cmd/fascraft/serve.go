package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/LexxLuey/fascraft/internal/depgraph"
	"github.com/LexxLuey/fascraft/internal/observability"
	"github.com/LexxLuey/fascraft/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr      string
		withStore bool
	)
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the project graph over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return a.serve(cmd.Context(), addr, withStore)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	serveCmd.Flags().BoolVar(&withStore, "with-store", false, "Report Neo4j connectivity in /health")
	return serveCmd
}

// serve blocks until SIGINT/SIGTERM. The manifest is read at startup and on
// every POST /api/graph/reload.
func (a *app) serve(ctx context.Context, addr string, withStore bool) error {
	loader := func(ctx context.Context) (*depgraph.DependencyGraph, error) {
		_, g, err := a.loadProject()
		return g, err
	}

	graph := server.NewGraphHandler(loader, observability.NewGraphMetrics(), a.logger,
		depgraph.WithHighDependencyThreshold(a.cfg.Analysis.HighDependencyThreshold),
		depgraph.WithDeepChainThreshold(a.cfg.Analysis.DeepChainThreshold),
	)
	if err := graph.Reload(ctx); err != nil {
		return err
	}

	srv := server.NewGracefulServer(
		&server.HealthConfig{Version: version},
		&server.ShutdownConfig{Logger: a.logger},
	)
	graph.Register(srv.Mux())
	srv.Health.RegisterCheck("graph", server.GraphHealthChecker(graph))
	srv.Shutdown.AddHook(server.TracingShutdownHook(a.tracing.Shutdown))

	if withStore {
		repo, err := a.openRepository(ctx)
		if err != nil {
			return err
		}
		srv.Health.RegisterCheck("graph-store", server.DatabaseHealthChecker(repo.Ping))
		srv.Shutdown.AddHook(server.DatabaseShutdownHook(repo.Close))
	}

	if err := srv.Start(addr); err != nil {
		return err
	}
	a.logger.Info("serving dependency graph", "addr", srv.Addr(), "manifest", a.manifestPath)
	srv.Wait()
	a.logger.Info("server stopped")
	return nil
}
