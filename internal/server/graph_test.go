package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LexxLuey/fascraft/internal/depgraph"
	"github.com/LexxLuey/fascraft/internal/observability"
)

// chainGraph builds user -> auth -> db.
func chainGraph(t *testing.T) *depgraph.DependencyGraph {
	t.Helper()
	g := depgraph.New()
	for _, name := range []string{"user", "auth", "db"} {
		g.AddModule(name, "app/"+name, nil)
	}
	_, err := g.AddDependency("user", "auth")
	require.NoError(t, err)
	_, err = g.AddDependency("auth", "db")
	require.NoError(t, err)
	return g
}

// cycleGraph builds user <-> auth.
func cycleGraph(t *testing.T) *depgraph.DependencyGraph {
	t.Helper()
	g := depgraph.New()
	g.AddModule("user", "app/user", nil)
	g.AddModule("auth", "app/auth", nil)
	_, err := g.AddDependency("user", "auth")
	require.NoError(t, err)
	_, err = g.AddDependency("auth", "user")
	require.NoError(t, err)
	return g
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGraphHandler_NotLoaded(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)

	for _, path := range []string{"/api/graph", "/api/graph/statistics", "/api/graph/order", "/api/modules/user/health"} {
		w := serve(t, h.Handler(), http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
	_, ok := h.Statistics()
	assert.False(t, ok)
}

func TestGraphHandler_Graph(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)
	h.Set(chainGraph(t))

	w := serve(t, h.Handler(), http.MethodGet, "/api/graph")
	require.Equal(t, http.StatusOK, w.Code)

	doc := decode[depgraph.Document](t, w)
	require.Len(t, doc.Modules, 3)
	assert.Equal(t, "user", doc.Modules[0].Name)
	require.Len(t, doc.Modules[0].Dependencies, 1)
	assert.Equal(t, "auth", doc.Modules[0].Dependencies[0].Target)
}

func TestGraphHandler_Statistics(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)
	h.Set(chainGraph(t))

	w := serve(t, h.Handler(), http.MethodGet, "/api/graph/statistics")
	require.Equal(t, http.StatusOK, w.Code)

	stats := decode[depgraph.DependencyStatistics](t, w)
	assert.Equal(t, 3, stats.TotalModules)
	assert.Equal(t, 2, stats.TotalDependencies)
	assert.Equal(t, 2, stats.MaxDepth)
	assert.Equal(t, []string{"db"}, stats.LeafModules)
	assert.Equal(t, []string{"user"}, stats.RootModules)
}

func TestGraphHandler_Order(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)
	h.Set(chainGraph(t))

	w := serve(t, h.Handler(), http.MethodGet, "/api/graph/order")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string][]string](t, w)
	assert.Equal(t, []string{"db", "auth", "user"}, body["order"])
}

func TestGraphHandler_OrderConflictOnCycle(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)
	h.Set(cycleGraph(t))

	w := serve(t, h.Handler(), http.MethodGet, "/api/graph/order")
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[errorResponse](t, w)
	assert.Contains(t, body.Error, "cannot create topological order")
	assert.Equal(t, []string{"user", "auth", "user"}, body.Cycle)
}

func TestGraphHandler_Suggestions(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)
	h.Set(cycleGraph(t))

	w := serve(t, h.Handler(), http.MethodGet, "/api/graph/suggestions")
	require.Equal(t, http.StatusOK, w.Code)
	suggestions := decode[[]depgraph.Suggestion](t, w)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, depgraph.SuggestionCritical, suggestions[0].Type)
	assert.Equal(t, depgraph.TitleCircularDependencies, suggestions[0].Issue)
}

func TestGraphHandler_Issues(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)
	h.Set(cycleGraph(t))

	w := serve(t, h.Handler(), http.MethodGet, "/api/graph/issues")
	require.Equal(t, http.StatusOK, w.Code)
	issues := decode[[]depgraph.Issue](t, w)
	require.Len(t, issues, 1)
	assert.Equal(t, depgraph.IssueCircular, issues[0].Type)
}

func TestGraphHandler_ModuleHealth(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)
	h.Set(chainGraph(t))

	w := serve(t, h.Handler(), http.MethodGet, "/api/modules/auth/health")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[depgraph.ModuleHealth](t, w)
	assert.Equal(t, "auth", report.ModuleName)
	assert.Equal(t, 1, report.Depth)
	assert.Equal(t, 100, report.HealthScore)

	w = serve(t, h.Handler(), http.MethodGet, "/api/modules/user/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 90, decode[depgraph.ModuleHealth](t, w).HealthScore)

	w = serve(t, h.Handler(), http.MethodGet, "/api/modules/missing/health")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGraphHandler_ModuleChain(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)
	h.Set(chainGraph(t))

	w := serve(t, h.Handler(), http.MethodGet, "/api/modules/user/chain")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Module string   `json:"module"`
		Chain  []string `json:"chain"`
	}](t, w)
	assert.Equal(t, []string{"db", "auth", "user"}, body.Chain)

	h.Set(cycleGraph(t))
	w = serve(t, h.Handler(), http.MethodGet, "/api/modules/user/chain")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGraphHandler_Export(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)
	h.Set(chainGraph(t))

	w := serve(t, h.Handler(), http.MethodGet, "/api/graph/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "digraph dependencies {"))

	w = serve(t, h.Handler(), http.MethodGet, "/api/graph/export?format=mermaid")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph LR"))

	w = serve(t, h.Handler(), http.MethodGet, "/api/graph/export?format=svg")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGraphHandler_MethodNotAllowed(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)
	h.Set(chainGraph(t))

	w := serve(t, h.Handler(), http.MethodGet, "/api/graph/reload")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGraphHandler_Reload(t *testing.T) {
	calls := 0
	loader := func(ctx context.Context) (*depgraph.DependencyGraph, error) {
		calls++
		if calls == 1 {
			return chainGraph(t), nil
		}
		return cycleGraph(t), nil
	}
	h := NewGraphHandler(loader, nil, nil)
	require.NoError(t, h.Reload(context.Background()))

	stats, ok := h.Statistics()
	require.True(t, ok)
	assert.Equal(t, 3, stats.TotalModules)

	w := serve(t, h.Handler(), http.MethodPost, "/api/graph/reload")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, 2, body["modules"])

	stats, _ = h.Statistics()
	assert.True(t, stats.HasCircularDependencies)
}

func TestGraphHandler_ReloadKeepsGraphOnError(t *testing.T) {
	fail := false
	loader := func(ctx context.Context) (*depgraph.DependencyGraph, error) {
		if fail {
			return nil, errors.New("manifest unreadable")
		}
		return chainGraph(t), nil
	}
	h := NewGraphHandler(loader, nil, nil)
	require.NoError(t, h.Reload(context.Background()))

	fail = true
	w := serve(t, h.Handler(), http.MethodPost, "/api/graph/reload")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "manifest unreadable")

	stats, ok := h.Statistics()
	require.True(t, ok)
	assert.Equal(t, 3, stats.TotalModules)
}

func TestGraphHandler_ReloadWithoutLoader(t *testing.T) {
	h := NewGraphHandler(nil, nil, nil)
	assert.Error(t, h.Reload(context.Background()))
}

func TestGraphHandler_Metrics(t *testing.T) {
	m := observability.NewGraphMetrics()
	h := NewGraphHandler(nil, m, nil)
	h.Set(chainGraph(t))

	serve(t, h.Handler(), http.MethodGet, "/api/graph/order")
	serve(t, h.Handler(), http.MethodGet, "/api/modules/missing/health")

	w := serve(t, h.Handler(), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "fascraft_graph_modules 3")
	assert.Contains(t, body, `fascraft_analysis_total{operation="order"} 1`)
	assert.Contains(t, body, `fascraft_analysis_error_total{operation="health"} 1`)

	count, err := testutil.GatherAndCount(m.Registry(), "fascraft_module_health_score")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
