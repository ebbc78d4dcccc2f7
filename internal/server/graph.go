package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/LexxLuey/fascraft/internal/depgraph"
	"github.com/LexxLuey/fascraft/internal/observability"
)

// Loader produces the graph to serve, typically by reading the project
// manifest or the graph store.
type Loader func(ctx context.Context) (*depgraph.DependencyGraph, error)

// GraphHandler serves read-only analysis of one dependency graph. The graph
// itself is not safe for concurrent use, so every request holds the read
// lock and Reload swaps the graph under the write lock.
type GraphHandler struct {
	mu       sync.RWMutex
	graph    *depgraph.DependencyGraph
	loadedAt time.Time

	loader       Loader
	analyzerOpts []depgraph.AnalyzerOption
	metrics      *observability.GraphMetrics
	logger       *slog.Logger
}

// NewGraphHandler creates a handler with no graph loaded. metrics and logger
// may be nil.
func NewGraphHandler(loader Loader, metrics *observability.GraphMetrics, logger *slog.Logger, opts ...depgraph.AnalyzerOption) *GraphHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphHandler{
		loader:       loader,
		analyzerOpts: opts,
		metrics:      metrics,
		logger:       logger,
	}
}

// Reload replaces the served graph with a fresh one from the loader. On
// error the previous graph stays in place.
func (h *GraphHandler) Reload(ctx context.Context) error {
	if h.loader == nil {
		return errors.New("reload graph: no loader configured")
	}
	start := time.Now()
	g, err := h.loader(ctx)
	if err == nil && g == nil {
		err = errors.New("loader returned no graph")
	}
	if err != nil {
		h.observe("reload", start, err)
		return fmt.Errorf("reload graph: %w", err)
	}
	h.Set(g)
	h.observe("reload", start, nil)
	h.logger.Info("dependency graph loaded", "modules", g.Len(), "dependencies", g.EdgeCount())
	return nil
}

// Set serves g from now on and refreshes the graph gauges.
func (h *GraphHandler) Set(g *depgraph.DependencyGraph) {
	h.mu.Lock()
	h.graph = g
	h.loadedAt = time.Now().UTC()
	h.mu.Unlock()

	if h.metrics == nil || g == nil {
		return
	}
	a := depgraph.NewAnalyzer(g, h.analyzerOpts...)
	h.metrics.ObserveStatistics(a.GetDependencyStatistics())
	reports := make([]depgraph.ModuleHealth, 0, g.Len())
	for _, name := range g.Modules() {
		if r, err := a.AnalyzeModuleHealth(name); err == nil {
			reports = append(reports, r)
		}
	}
	h.metrics.ObserveHealth(reports)
}

// Statistics returns the statistics of the served graph and false when no
// graph is loaded.
func (h *GraphHandler) Statistics() (depgraph.DependencyStatistics, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.graph == nil {
		return depgraph.DependencyStatistics{}, false
	}
	return depgraph.NewAnalyzer(h.graph, h.analyzerOpts...).GetDependencyStatistics(), true
}

// Register adds the graph API and the metrics endpoint to mux.
func (h *GraphHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/graph", h.handleGraph)
	mux.HandleFunc("GET /api/graph/statistics", h.handleStatistics)
	mux.HandleFunc("GET /api/graph/order", h.handleOrder)
	mux.HandleFunc("GET /api/graph/suggestions", h.handleSuggestions)
	mux.HandleFunc("GET /api/graph/issues", h.handleIssues)
	mux.HandleFunc("GET /api/graph/export", h.handleExport)
	mux.HandleFunc("POST /api/graph/reload", h.handleReload)
	mux.HandleFunc("GET /api/modules/{name}/health", h.handleModuleHealth)
	mux.HandleFunc("GET /api/modules/{name}/chain", h.handleModuleChain)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
}

// Handler returns an http.Handler serving only the graph API.
func (h *GraphHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

// errorResponse is the body of every non-2xx API reply.
type errorResponse struct {
	Error string   `json:"error"`
	Cycle []string `json:"cycle,omitempty"`
}

// withGraph runs fn under the read lock, or replies 503 when nothing is
// loaded yet.
func (h *GraphHandler) withGraph(w http.ResponseWriter, fn func(a *depgraph.Analyzer)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.graph == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no dependency graph loaded"})
		return
	}
	fn(depgraph.NewAnalyzer(h.graph, h.analyzerOpts...))
}

func (h *GraphHandler) handleGraph(w http.ResponseWriter, r *http.Request) {
	h.withGraph(w, func(a *depgraph.Analyzer) {
		writeJSON(w, http.StatusOK, a.Graph().Document())
	})
}

func (h *GraphHandler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	h.withGraph(w, func(a *depgraph.Analyzer) {
		start := time.Now()
		stats := a.GetDependencyStatistics()
		h.observe("statistics", start, nil)
		writeJSON(w, http.StatusOK, stats)
	})
}

func (h *GraphHandler) handleOrder(w http.ResponseWriter, r *http.Request) {
	h.withGraph(w, func(a *depgraph.Analyzer) {
		start := time.Now()
		order, err := a.Graph().GetTopologicalOrder()
		h.observe("order", start, err)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"order": order})
	})
}

func (h *GraphHandler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	h.withGraph(w, func(a *depgraph.Analyzer) {
		start := time.Now()
		suggestions := a.SuggestDependencyOptimizations()
		h.observe("suggestions", start, nil)
		writeJSON(w, http.StatusOK, suggestions)
	})
}

func (h *GraphHandler) handleIssues(w http.ResponseWriter, r *http.Request) {
	h.withGraph(w, func(a *depgraph.Analyzer) {
		start := time.Now()
		issues := a.ValidateDependencies()
		h.observe("validate", start, nil)
		writeJSON(w, http.StatusOK, issues)
	})
}

func (h *GraphHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	h.withGraph(w, func(a *depgraph.Analyzer) {
		var body string
		switch format := r.URL.Query().Get("format"); format {
		case "", "dot":
			body = depgraph.ExportDOT(a.Graph())
			w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		case "mermaid":
			body = depgraph.ExportMermaid(a.Graph())
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown export format %q", format)})
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func (h *GraphHandler) handleModuleHealth(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	h.withGraph(w, func(a *depgraph.Analyzer) {
		start := time.Now()
		report, err := a.AnalyzeModuleHealth(name)
		h.observe("health", start, err)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	})
}

func (h *GraphHandler) handleModuleChain(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	h.withGraph(w, func(a *depgraph.Analyzer) {
		start := time.Now()
		chain, err := a.Graph().GetDependencyChain(name)
		h.observe("chain", start, err)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"module": name, "chain": chain})
	})
}

func (h *GraphHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.Reload(r.Context()); err != nil {
		h.logger.Error("reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	h.mu.RLock()
	resp := map[string]any{
		"modules":      h.graph.Len(),
		"dependencies": h.graph.EdgeCount(),
		"loaded_at":    h.loadedAt,
	}
	h.mu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}

func (h *GraphHandler) observe(operation string, start time.Time, err error) {
	if h.metrics != nil {
		h.metrics.ObserveAnalysis(operation, time.Since(start), err)
	}
}

// writeError maps graph errors to status codes: unknown modules are 404,
// cycles are 409 and carry the offending cycle.
func writeError(w http.ResponseWriter, err error) {
	var cycleErr *depgraph.CircularDependencyError
	switch {
	case errors.As(err, &cycleErr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Cycle: cycleErr.Cycle})
	case errors.Is(err, depgraph.ErrModuleNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
