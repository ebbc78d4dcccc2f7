package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

const sampleManifest = `
name: shop
modules:
  - name: user
    path: modules/user
    metadata:
      template: crud
    dependencies:
      - target: auth
        description: User module imports auth utilities
        file: user/models.py
        line: 15
  - name: auth
    path: modules/auth
    dependencies:
      - target: db
        type: runtime
        strength: weak
  - name: db
    path: modules/db
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndBuild(t *testing.T) {
	m, err := Load(writeFile(t, "fascraft.yaml", sampleManifest))
	require.NoError(t, err)
	assert.Equal(t, "shop", m.Name)
	require.Len(t, m.Modules, 3)

	g, err := m.Build()
	require.NoError(t, err)

	order, err := g.GetTopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "auth", "user"}, order)

	deps := g.GetDependencies("user")
	require.Len(t, deps, 1)
	assert.Equal(t, depgraph.DependencyImport, deps[0].DependencyType)
	assert.Equal(t, depgraph.StrengthStrong, deps[0].Strength)
	assert.Equal(t, "user/models.py", deps[0].FilePath)
	assert.Equal(t, 15, deps[0].LineNumber)

	deps = g.GetDependencies("auth")
	require.Len(t, deps, 1)
	assert.Equal(t, depgraph.DependencyRuntime, deps[0].DependencyType)
	assert.Equal(t, depgraph.StrengthWeak, deps[0].Strength)

	user, _ := g.Module("user")
	assert.Equal(t, "crud", user.Metadata["template"])
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "fascraft.json", `{"modules":[{"name":"a"},{"name":"b","dependencies":[{"target":"a"}]}]}`)
	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(filepath.Dir(path)), m.Name)

	g, err := m.Build()
	require.NoError(t, err)
	assert.True(t, g.DependsOn("b", "a"))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modules []ModuleSpec
		is      error
		msg     string
	}{
		{
			name:    "self dependency",
			modules: []ModuleSpec{{Name: "user", Dependencies: []DependencySpec{{Target: "user"}}}},
			is:      depgraph.ErrSelfDependency,
		},
		{
			name:    "unknown target",
			modules: []ModuleSpec{{Name: "user", Dependencies: []DependencySpec{{Target: "ghost"}}}},
			is:      depgraph.ErrModuleNotFound,
			msg:     "target module 'ghost' not found",
		},
		{
			name:    "duplicate module",
			modules: []ModuleSpec{{Name: "user"}, {Name: "user"}},
			msg:     "declared more than once",
		},
		{
			name:    "empty name",
			modules: []ModuleSpec{{Name: " "}},
			msg:     "name is empty",
		},
		{
			name:    "bad type",
			modules: []ModuleSpec{{Name: "a"}, {Name: "b", Dependencies: []DependencySpec{{Target: "a", Type: "magic"}}}},
			msg:     `unknown dependency type "magic"`,
		},
		{
			name:    "bad strength",
			modules: []ModuleSpec{{Name: "a"}, {Name: "b", Dependencies: []DependencySpec{{Target: "a", Strength: "medium"}}}},
			msg:     `unknown dependency strength "medium"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Manifest{Name: "test", Modules: tt.modules}).Validate()
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			if tt.msg != "" {
				assert.ErrorContains(t, err, tt.msg)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	m := &Manifest{Modules: []ModuleSpec{
		{Name: "user", Dependencies: []DependencySpec{{Target: "user"}, {Target: "ghost"}}},
	}}
	err := m.Validate()
	assert.ErrorIs(t, err, depgraph.ErrSelfDependency)
	assert.ErrorIs(t, err, depgraph.ErrModuleNotFound)
}

func TestBuild_Invalid(t *testing.T) {
	m := &Manifest{Name: "bad", Modules: []ModuleSpec{{Name: "a", Dependencies: []DependencySpec{{Target: "a"}}}}}
	_, err := m.Build()
	assert.True(t, errors.Is(err, depgraph.ErrSelfDependency))
}

func TestBuild_CyclesAreAllowed(t *testing.T) {
	m := &Manifest{Modules: []ModuleSpec{
		{Name: "user", Dependencies: []DependencySpec{{Target: "auth"}}},
		{Name: "auth", Dependencies: []DependencySpec{{Target: "user"}}},
	}}
	g, err := m.Build()
	require.NoError(t, err)
	assert.True(t, g.HasCircularDependencies())
}

func TestSaveRoundTrip(t *testing.T) {
	m, err := Load(writeFile(t, "fascraft.yaml", sampleManifest))
	require.NoError(t, err)
	g, err := m.Build()
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, FromGraph("shop", g).Save(out))

	back, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, "shop", back.Name)

	rebuilt, err := back.Build()
	require.NoError(t, err)
	assert.Equal(t, g.Modules(), rebuilt.Modules())
	for _, name := range g.Modules() {
		assert.Equal(t, g.GetDependencies(name), rebuilt.GetDependencies(name), name)
	}
}
