package neo4j

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

func sampleGraph(t *testing.T) *depgraph.DependencyGraph {
	t.Helper()
	g := depgraph.New()
	g.AddModule("user", "modules/user", map[string]any{"template": "crud"})
	g.AddModule("auth", "modules/auth", nil)
	g.AddModule("db", "modules/db", nil)
	_, err := g.AddDependency("user", "auth", depgraph.WithStrength(depgraph.StrengthWeak), depgraph.WithLocation("user/api.py", 7))
	require.NoError(t, err)
	_, err = g.AddDependency("user", "db", depgraph.WithType(depgraph.DependencyRuntime))
	require.NoError(t, err)
	_, err = g.AddDependency("auth", "db", depgraph.WithDescription("sessions"))
	require.NoError(t, err)
	return g
}

func TestGraphParams(t *testing.T) {
	modules, edges, err := graphParams(sampleGraph(t).Document())
	require.NoError(t, err)

	require.Len(t, modules, 3)
	assert.Equal(t, "user", modules[0]["name"])
	assert.Equal(t, `{"template":"crud"}`, modules[0]["metadata"])
	assert.Equal(t, "", modules[1]["metadata"])
	assert.Equal(t, int64(2), modules[2]["seq"])

	require.Len(t, edges, 3)
	assert.Equal(t, "weak", edges[0]["strength"])
	assert.Equal(t, int64(7), edges[0]["line_number"])
	assert.Equal(t, "runtime", edges[1]["type"])
	assert.Equal(t, int64(1), edges[1]["seq"])
}

func TestDocumentFromRows_RoundTrip(t *testing.T) {
	g := sampleGraph(t)
	modules, edges, err := graphParams(g.Document())
	require.NoError(t, err)

	// rows come back with the aliases used by the load queries
	doc, err := documentFromRows(modules, edges)
	require.NoError(t, err)

	back, err := depgraph.FromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, g.Modules(), back.Modules())
	for _, name := range g.Modules() {
		assert.Equal(t, g.GetDependencies(name), back.GetDependencies(name), name)
	}
	m, _ := back.Module("user")
	assert.Equal(t, "crud", m.Metadata["template"])
}

func TestDocumentFromRows_UnknownSource(t *testing.T) {
	_, err := documentFromRows(
		[]map[string]any{{"name": "user"}},
		[]map[string]any{{"source": "ghost", "target": "user"}},
	)
	assert.Error(t, err)
}

func TestDocumentFromRows_BadMetadata(t *testing.T) {
	_, err := documentFromRows([]map[string]any{{"name": "user", "metadata": "{"}}, nil)
	assert.ErrorContains(t, err, "decode metadata of user")
}

func TestDocumentFromRows_NilProperties(t *testing.T) {
	doc, err := documentFromRows(
		[]map[string]any{{"name": "user", "path": nil, "metadata": nil}, {"name": "auth"}},
		[]map[string]any{{"source": "user", "target": "auth", "type": nil, "line_number": nil}},
	)
	require.NoError(t, err)

	g, err := depgraph.FromDocument(doc)
	require.NoError(t, err)
	deps := g.GetDependencies("user")
	require.Len(t, deps, 1)
	assert.Equal(t, depgraph.DependencyImport, deps[0].DependencyType)
	assert.Equal(t, depgraph.StrengthStrong, deps[0].Strength)
}
