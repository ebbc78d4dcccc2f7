package depgraph

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDocument_RoundTrip(t *testing.T) {
	g := New()
	g.AddModule("user", "modules/user", map[string]any{"template": "crud"})
	g.AddModule("auth", "modules/auth", nil)
	mustDepend(t, g, "user", "auth",
		WithType(DependencyRuntime), WithStrength(StrengthWeak),
		WithDescription("session lookup"), WithLocation("user/service.py", 12))

	data, err := g.ExportJSON()
	if err != nil {
		t.Fatal(err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		t.Fatal(err)
	}
	back, err := FromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}

	assertStrings(t, back.Modules(), []string{"user", "auth"})
	if !reflect.DeepEqual(back.GetDependencies("user"), g.GetDependencies("user")) {
		t.Errorf("edges differ: %+v vs %+v", back.GetDependencies("user"), g.GetDependencies("user"))
	}
	m, _ := back.Module("user")
	if m.Path != "modules/user" || m.Metadata["template"] != "crud" {
		t.Errorf("module record not preserved: %+v", m)
	}
}

func TestDocument_Fields(t *testing.T) {
	doc := chainGraph(t).Document()
	if len(doc.Modules) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(doc.Modules))
	}
	user := doc.Modules[0]
	if user.Name != "user" || user.Path != "modules/user" {
		t.Errorf("unexpected module %+v", user)
	}
	if len(user.Dependencies) != 1 {
		t.Fatalf("expected 1 edge, got %+v", user.Dependencies)
	}
	d := user.Dependencies[0]
	if d.Target != "auth" || d.DependencyType != DependencyImport || d.Strength != StrengthStrong {
		t.Errorf("unexpected edge %+v", d)
	}
}

func TestFromDocument_DefaultsAndForwardEdges(t *testing.T) {
	doc := &Document{Modules: []DocumentModule{
		{Name: "user", Dependencies: []DocumentDependency{{Target: "auth"}}},
		{Name: "auth"},
	}}
	g, err := FromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	d := g.GetDependencies("user")
	if len(d) != 1 || d[0].DependencyType != DependencyImport || d[0].Strength != StrengthStrong {
		t.Errorf("unexpected edges %+v", d)
	}
}

func TestFromDocument_UnknownTarget(t *testing.T) {
	doc := &Document{Modules: []DocumentModule{
		{Name: "user", Dependencies: []DocumentDependency{{Target: "ghost"}}},
	}}
	if _, err := FromDocument(doc); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestParseDocument_Invalid(t *testing.T) {
	if _, err := ParseDocument([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestExportGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := chainGraph(t).ExportGraph(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"name": "user"`, `"target": "auth"`, `"dependency_type": "import"`, `"strength": "strong"`, `"description"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("export missing %s", want)
		}
	}
}

func TestExportGraph_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "graph.json")
	if err := chainGraph(t).ExportGraph(path); err == nil {
		t.Fatal("expected error")
	}
}

func TestExportDOT(t *testing.T) {
	g := cycleGraph(t)
	g.AddModule("db", "modules/db", nil)
	mustDepend(t, g, "auth", "db", WithStrength(StrengthWeak))

	dot := ExportDOT(g)
	for _, want := range []string{
		"digraph dependencies {",
		`"user" -> "auth" [style=solid color="#f85149" label="import"];`,
		`"auth" -> "db" [style=dashed color="#8b949e" label="import"];`,
		`"db" [label="db" fillcolor="#1f6feb"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s\n%s", want, dot)
		}
	}
}

func TestExportMermaid(t *testing.T) {
	g := New()
	g.AddModule("user-api", "", nil)
	g.AddModule("auth", "", nil)
	g.AddModule("db", "", nil)
	mustDepend(t, g, "user-api", "auth", WithStrength(StrengthWeak))
	mustDepend(t, g, "auth", "db", WithType(DependencyRuntime))

	out := ExportMermaid(g)
	for _, want := range []string{
		"graph LR",
		`m0[["user-api"]]`,
		"m0 -.-> m1",
		"m1 -->|runtime| m2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Mermaid missing %s\n%s", want, out)
		}
	}
}

func TestExport_SimilarNamesStayDistinct(t *testing.T) {
	g := New()
	g.AddModule("user-api", "", nil)
	g.AddModule("user_api", "", nil)
	g.AddModule("db", "", nil)
	mustDepend(t, g, "user-api", "db")

	dot := ExportDOT(g)
	for _, want := range []string{
		`"user-api" [label="user-api"`,
		`"user_api" [label="user_api"`,
		`"user-api" -> "db"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s\n%s", want, dot)
		}
	}
	if strings.Contains(dot, `"user_api" -> "db"`) {
		t.Errorf("edge drawn on the wrong node\n%s", dot)
	}

	out := ExportMermaid(g)
	for _, want := range []string{`m0[["user-api"]]`, `m1[["user_api"]]`, "m0 --> m2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Mermaid missing %s\n%s", want, out)
		}
	}
	if strings.Contains(out, "m1 -->") {
		t.Errorf("edge drawn on the wrong node\n%s", out)
	}
}

func TestExportMermaid_EscapesQuotes(t *testing.T) {
	g := New()
	g.AddModule(`say"hi`, "", nil)

	out := ExportMermaid(g)
	if !strings.Contains(out, `m0[["say#quot;hi"]]`) {
		t.Errorf("quote not escaped\n%s", out)
	}
}

func TestFormatTree(t *testing.T) {
	got := FormatTree(chainGraph(t), "Dependencies")
	want := "Dependencies\n" +
		"└── user\n" +
		"    └── auth\n" +
		"        └── db\n"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestFormatTree_Cycle(t *testing.T) {
	got := FormatTree(cycleGraph(t), "Dependencies")
	if !strings.Contains(got, "user (circular)") {
		t.Errorf("expected cycle marker\n%s", got)
	}
}

func TestFormatTree_SharedDependency(t *testing.T) {
	// web and cli both use auth; auth's subtree is printed once
	g := New()
	for _, n := range []string{"web", "cli", "auth", "db"} {
		g.AddModule(n, n, nil)
	}
	mustDepend(t, g, "web", "auth")
	mustDepend(t, g, "cli", "auth")
	mustDepend(t, g, "auth", "db")

	got := FormatTree(g, "Dependencies")
	want := "Dependencies\n" +
		"├── web\n" +
		"│   └── auth\n" +
		"│       └── db\n" +
		"└── cli\n" +
		"    └── auth (see above)\n"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestFormatTree_LayeredGraphStaysLinear(t *testing.T) {
	// every layer depends on both modules of the next one
	g := New()
	const layers = 20
	for i := 0; i < layers; i++ {
		g.AddModule(fmt.Sprintf("l%d_a", i), "", nil)
		g.AddModule(fmt.Sprintf("l%d_b", i), "", nil)
	}
	for i := 0; i < layers-1; i++ {
		for _, src := range []string{"a", "b"} {
			for _, dst := range []string{"a", "b"} {
				mustDepend(t, g, fmt.Sprintf("l%d_%s", i, src), fmt.Sprintf("l%d_%s", i+1, dst))
			}
		}
	}

	lines := strings.Count(FormatTree(g, "Dependencies"), "\n")
	if lines > 6*layers {
		t.Errorf("tree has %d lines for %d modules", lines, 2*layers)
	}
}

func TestFormatStatistics(t *testing.T) {
	out := FormatStatistics(NewAnalyzer(cycleGraph(t)).GetDependencyStatistics())
	for _, want := range []string{
		"Dependency Graph Statistics",
		"Modules:      2",
		"Average:      1.00 per module",
		"Max Depth:    undefined (cyclic)",
		"Circular Dependencies: 1",
		"user -> auth -> user",
		"Modules with Most Dependencies:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("statistics missing %q\n%s", want, out)
		}
	}
}
