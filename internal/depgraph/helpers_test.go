package depgraph

import (
	"reflect"
	"testing"
)

// chainGraph builds user -> auth -> db.
func chainGraph(t *testing.T) *DependencyGraph {
	t.Helper()
	g := New()
	g.AddModule("user", "modules/user", nil)
	g.AddModule("auth", "modules/auth", nil)
	g.AddModule("db", "modules/db", nil)
	mustDepend(t, g, "user", "auth")
	mustDepend(t, g, "auth", "db")
	return g
}

// cycleGraph builds user <-> auth.
func cycleGraph(t *testing.T) *DependencyGraph {
	t.Helper()
	g := New()
	g.AddModule("user", "modules/user", nil)
	g.AddModule("auth", "modules/auth", nil)
	mustDepend(t, g, "user", "auth")
	mustDepend(t, g, "auth", "user")
	return g
}

// detourCycleGraph builds the cycle a -> b -> c -> a plus a detour
// a -> d -> b back into it.
func detourCycleGraph(t *testing.T) *DependencyGraph {
	t.Helper()
	g := New()
	for _, n := range []string{"a", "b", "c", "d"} {
		g.AddModule(n, n, nil)
	}
	mustDepend(t, g, "a", "b")
	mustDepend(t, g, "b", "c")
	mustDepend(t, g, "c", "a")
	mustDepend(t, g, "a", "d")
	mustDepend(t, g, "d", "b")
	return g
}

func mustDepend(t *testing.T, g *DependencyGraph, source, target string, opts ...DependencyOption) ModuleDependency {
	t.Helper()
	d, err := g.AddDependency(source, target, opts...)
	if err != nil {
		t.Fatalf("AddDependency(%s, %s): %v", source, target, err)
	}
	return d
}

// assertConsistent checks that the matrix, reverse index and both edge lists
// describe the same edge set.
func assertConsistent(t *testing.T, g *DependencyGraph) {
	t.Helper()
	for _, a := range g.Modules() {
		for _, b := range g.Modules() {
			inMatrix := g.DependsOn(a, b)
			inReverse := g.DependedOnBy(b, a)
			inDeps := false
			for _, d := range g.GetDependencies(a) {
				if d.TargetModule == b {
					inDeps = true
				}
			}
			inDependents := false
			for _, d := range g.GetDependents(b) {
				if d.SourceModule == a {
					inDependents = true
				}
			}
			if inMatrix != inReverse || inMatrix != inDeps || inMatrix != inDependents {
				t.Errorf("%s -> %s inconsistent: matrix=%v reverse=%v deps=%v dependents=%v",
					a, b, inMatrix, inReverse, inDeps, inDependents)
			}
		}
	}
}

func assertStrings(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
