// Package depgraph tracks modules of a generated project and the directed
// dependencies between them, and answers ordering, cycle and health
// questions about that graph.
//
// A DependencyGraph is a single-owner, in-memory structure. It performs no
// I/O and no locking: hosts sharing one graph across goroutines must
// serialize mutations themselves. Read-only queries never modify the graph.
package depgraph

// DependencyGraph owns every ModuleInfo and keeps four views of the edge set
// consistent: the per-module outgoing and incoming edge lists, the forward
// matrix and the reverse index.
type DependencyGraph struct {
	modules map[string]*ModuleInfo
	order   []string // insertion order of module names

	dependencyMatrix    map[string]map[string]struct{}
	reverseDependencies map[string]map[string]struct{}
}

// New returns an empty graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		modules:             make(map[string]*ModuleInfo),
		dependencyMatrix:    make(map[string]map[string]struct{}),
		reverseDependencies: make(map[string]map[string]struct{}),
	}
}

// AddModule registers a module and returns its record. Registering a name
// that already exists returns the existing record untouched.
func (g *DependencyGraph) AddModule(name, path string, metadata map[string]any) *ModuleInfo {
	if m, ok := g.modules[name]; ok {
		return m
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}
	m := &ModuleInfo{Name: name, Path: path, Metadata: metadata}
	g.modules[name] = m
	g.order = append(g.order, name)
	g.dependencyMatrix[name] = make(map[string]struct{})
	g.reverseDependencies[name] = make(map[string]struct{})
	return m
}

// RemoveModule deletes a module together with every edge that references it.
func (g *DependencyGraph) RemoveModule(name string) error {
	m, ok := g.modules[name]
	if !ok {
		return &ModuleNotFoundError{Name: name, Role: "module"}
	}
	for _, d := range append([]*ModuleDependency(nil), m.dependencies...) {
		g.RemoveDependency(d.SourceModule, d.TargetModule)
	}
	for _, d := range append([]*ModuleDependency(nil), m.dependents...) {
		g.RemoveDependency(d.SourceModule, d.TargetModule)
	}
	delete(g.modules, name)
	delete(g.dependencyMatrix, name)
	delete(g.reverseDependencies, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// AddDependency records that source depends on target. Both modules must be
// registered (source is checked first) and must differ. Adding an edge that
// already exists returns the existing edge unchanged. On error the graph is
// not modified.
func (g *DependencyGraph) AddDependency(source, target string, opts ...DependencyOption) (ModuleDependency, error) {
	src, ok := g.modules[source]
	if !ok {
		return ModuleDependency{}, &ModuleNotFoundError{Name: source, Role: "source"}
	}
	dst, ok := g.modules[target]
	if !ok {
		return ModuleDependency{}, &ModuleNotFoundError{Name: target, Role: "target"}
	}
	if source == target {
		return ModuleDependency{}, ErrSelfDependency
	}
	if existing := findEdge(src.dependencies, target); existing != nil {
		return *existing, nil
	}

	d := newModuleDependency(source, target, opts...)
	src.dependencies = append(src.dependencies, d)
	dst.dependents = append(dst.dependents, d)
	g.dependencyMatrix[source][target] = struct{}{}
	g.reverseDependencies[target][source] = struct{}{}
	return *d, nil
}

// RemoveDependency deletes the source->target edge from all four views and
// reports whether it existed. Removing a missing edge is not an error.
func (g *DependencyGraph) RemoveDependency(source, target string) bool {
	src, ok := g.modules[source]
	if !ok {
		return false
	}
	if findEdge(src.dependencies, target) == nil {
		return false
	}
	src.dependencies = dropEdges(src.dependencies, source, target)
	if dst, ok := g.modules[target]; ok {
		dst.dependents = dropEdges(dst.dependents, source, target)
	}
	delete(g.dependencyMatrix[source], target)
	if rev, ok := g.reverseDependencies[target]; ok {
		delete(rev, source)
	}
	return true
}

func findEdge(edges []*ModuleDependency, target string) *ModuleDependency {
	for _, e := range edges {
		if e.TargetModule == target {
			return e
		}
	}
	return nil
}

func dropEdges(edges []*ModuleDependency, source, target string) []*ModuleDependency {
	kept := edges[:0]
	for _, e := range edges {
		if e.SourceModule == source && e.TargetModule == target {
			continue
		}
		kept = append(kept, e)
	}
	// clear the tail so removed edges are not retained by the backing array
	for i := len(kept); i < len(edges); i++ {
		edges[i] = nil
	}
	return kept
}

// Module returns the record for name.
func (g *DependencyGraph) Module(name string) (*ModuleInfo, bool) {
	m, ok := g.modules[name]
	return m, ok
}

// HasModule reports whether name is registered.
func (g *DependencyGraph) HasModule(name string) bool {
	_, ok := g.modules[name]
	return ok
}

// Modules returns every module name in registration order.
func (g *DependencyGraph) Modules() []string {
	return append([]string(nil), g.order...)
}

// Len returns the number of modules.
func (g *DependencyGraph) Len() int {
	return len(g.order)
}

// EdgeCount returns the number of dependency edges.
func (g *DependencyGraph) EdgeCount() int {
	n := 0
	for _, name := range g.order {
		n += len(g.modules[name].dependencies)
	}
	return n
}

// GetDependencies returns the outgoing edges of name, empty if unknown.
func (g *DependencyGraph) GetDependencies(name string) []ModuleDependency {
	m, ok := g.modules[name]
	if !ok {
		return []ModuleDependency{}
	}
	return m.Dependencies()
}

// GetDependents returns the incoming edges of name, empty if unknown.
func (g *DependencyGraph) GetDependents(name string) []ModuleDependency {
	m, ok := g.modules[name]
	if !ok {
		return []ModuleDependency{}
	}
	return m.Dependents()
}

// DependencyNames returns the targets name depends on, in edge order.
func (g *DependencyGraph) DependencyNames(name string) []string {
	m, ok := g.modules[name]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m.dependencies))
	for _, d := range m.dependencies {
		names = append(names, d.TargetModule)
	}
	return names
}

// DependentNames returns the modules that depend on name, in edge order.
func (g *DependencyGraph) DependentNames(name string) []string {
	m, ok := g.modules[name]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m.dependents))
	for _, d := range m.dependents {
		names = append(names, d.SourceModule)
	}
	return names
}

// DependsOn reports whether the matrix holds source->target.
func (g *DependencyGraph) DependsOn(source, target string) bool {
	_, ok := g.dependencyMatrix[source][target]
	return ok
}

// DependedOnBy reports whether the reverse index holds target<-source.
func (g *DependencyGraph) DependedOnBy(target, source string) bool {
	_, ok := g.reverseDependencies[target][source]
	return ok
}

// GetLeafModules returns modules without outgoing edges, in registration
// order. They can be built first.
func (g *DependencyGraph) GetLeafModules() []string {
	leaves := []string{}
	for _, name := range g.order {
		if len(g.dependencyMatrix[name]) == 0 {
			leaves = append(leaves, name)
		}
	}
	return leaves
}

// GetRootModules returns modules nothing depends on, in registration order.
func (g *DependencyGraph) GetRootModules() []string {
	roots := []string{}
	for _, name := range g.order {
		if len(g.reverseDependencies[name]) == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}
