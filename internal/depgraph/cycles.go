package depgraph

import "fmt"

type visitState uint8

const (
	unvisited visitState = iota
	visiting             // on the current recursion stack
	finished
)

// dfs is the depth-first walk shared by cycle detection, topological
// ordering, chains and depth. Dependencies are followed in edge insertion
// order so every result is deterministic for a given build sequence.
type dfs struct {
	g     *DependencyGraph
	state map[string]visitState
	stack []string

	// onCycle is called when an edge reaches a module on the stack. A nil
	// return keeps walking; a non-nil error aborts the walk.
	onCycle func(cycle []string) error
	// onFinish is called in post-order, after all dependencies finished.
	onFinish func(name string)
}

func newDFS(g *DependencyGraph) *dfs {
	return &dfs{
		g:     g,
		state: make(map[string]visitState, len(g.order)),
		onCycle: func(cycle []string) error {
			return &CircularDependencyError{Cycle: cycle}
		},
	}
}

func (w *dfs) visit(name string) error {
	w.state[name] = visiting
	w.stack = append(w.stack, name)

	for _, d := range w.g.modules[name].dependencies {
		next := d.TargetModule
		switch w.state[next] {
		case visiting:
			if err := w.onCycle(w.cycleTo(next)); err != nil {
				return err
			}
		case unvisited:
			if err := w.visit(next); err != nil {
				return err
			}
		}
	}

	w.stack = w.stack[:len(w.stack)-1]
	w.state[name] = finished
	if w.onFinish != nil {
		w.onFinish(name)
	}
	return nil
}

// cycleTo returns the stack slice from next's position to the top, closed by
// repeating next.
func (w *dfs) cycleTo(next string) []string {
	start := 0
	for i, n := range w.stack {
		if n == next {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(w.stack)-start+1)
	cycle = append(cycle, w.stack[start:]...)
	return append(cycle, next)
}

// FindCircularDependencies returns every cycle found by a depth-first search
// started from each unvisited module in registration order. Each cycle
// starts and ends with the same module.
func (g *DependencyGraph) FindCircularDependencies() [][]string {
	cycles := [][]string{}
	w := newDFS(g)
	w.onCycle = func(cycle []string) error {
		cycles = append(cycles, cycle)
		return nil
	}
	for _, name := range g.order {
		if w.state[name] == unvisited {
			_ = w.visit(name)
		}
	}
	return cycles
}

// HasCircularDependencies reports whether the graph contains any cycle.
func (g *DependencyGraph) HasCircularDependencies() bool {
	w := newDFS(g)
	for _, name := range g.order {
		if w.state[name] == unvisited {
			if err := w.visit(name); err != nil {
				return true
			}
		}
	}
	return false
}

// GetTopologicalOrder returns every module so that each one appears after
// all the modules it depends on. It fails with a *CircularDependencyError
// when the graph is not acyclic.
func (g *DependencyGraph) GetTopologicalOrder() ([]string, error) {
	order := make([]string, 0, len(g.order))
	w := newDFS(g)
	w.onFinish = func(name string) { order = append(order, name) }
	for _, name := range g.order {
		if w.state[name] == unvisited {
			if err := w.visit(name); err != nil {
				return nil, fmt.Errorf("cannot create topological order: %w", err)
			}
		}
	}
	return order, nil
}

// GetDependencyChain returns name and all of its transitive dependencies in
// build order, ending with name itself.
func (g *DependencyGraph) GetDependencyChain(name string) ([]string, error) {
	if _, ok := g.modules[name]; !ok {
		return nil, &ModuleNotFoundError{Name: name, Role: "module"}
	}
	var chain []string
	w := newDFS(g)
	w.onFinish = func(n string) { chain = append(chain, n) }
	if err := w.visit(name); err != nil {
		return nil, fmt.Errorf("dependency chain of %s: %w", name, err)
	}
	return chain, nil
}

// GetModuleDepth returns 0 for a module without dependencies and otherwise
// one more than the deepest of its dependencies.
func (g *DependencyGraph) GetModuleDepth(name string) (int, error) {
	if _, ok := g.modules[name]; !ok {
		return 0, &ModuleNotFoundError{Name: name, Role: "module"}
	}
	depth := make(map[string]int)
	w := newDFS(g)
	w.onFinish = func(n string) {
		d := 0
		for _, dep := range g.modules[n].dependencies {
			if depth[dep.TargetModule]+1 > d {
				d = depth[dep.TargetModule] + 1
			}
		}
		depth[n] = d
	}
	if err := w.visit(name); err != nil {
		return 0, fmt.Errorf("depth of %s: %w", name, err)
	}
	return depth[name], nil
}

// CheckDependency reports whether adding source->target would be rejected:
// unknown modules, a self-dependency, or a cycle. The cycle in the returned
// *CircularDependencyError reads source -> target -> ... -> source.
func (g *DependencyGraph) CheckDependency(source, target string) error {
	if _, ok := g.modules[source]; !ok {
		return &ModuleNotFoundError{Name: source, Role: "source"}
	}
	if _, ok := g.modules[target]; !ok {
		return &ModuleNotFoundError{Name: target, Role: "target"}
	}
	if source == target {
		return ErrSelfDependency
	}
	if path := g.shortestPath(target, source); path != nil {
		return &CircularDependencyError{Cycle: append([]string{source}, path...)}
	}
	return nil
}

// WouldCreateCycle reports whether adding source->target closes a cycle.
func (g *DependencyGraph) WouldCreateCycle(source, target string) bool {
	if source == target {
		return true
	}
	return g.shortestPath(target, source) != nil
}

// shortestPath returns the breadth-first path from -> ... -> to, or nil.
func (g *DependencyGraph) shortestPath(from, to string) []string {
	if _, ok := g.modules[from]; !ok {
		return nil
	}
	parent := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			var path []string
			for n := to; n != ""; n = parent[n] {
				path = append([]string{n}, path...)
			}
			return path
		}
		for _, d := range g.modules[cur].dependencies {
			if _, seen := parent[d.TargetModule]; !seen {
				parent[d.TargetModule] = cur
				queue = append(queue, d.TargetModule)
			}
		}
	}
	return nil
}

// CircularModules returns the members of every strongly connected component
// with more than one module. This can be wider than the modules of the
// cycles FindCircularDependencies reports; health scoring uses the latter.
// It is recomputed on every call.
func (g *DependencyGraph) CircularModules() map[string]bool {
	index := 0
	indices := make(map[string]int, len(g.order))
	lowlink := make(map[string]int, len(g.order))
	onStack := make(map[string]bool)
	var stack []string
	circular := make(map[string]bool)

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, d := range g.modules[v].dependencies {
			w := d.TargetModule
			if _, seen := indices[w]; !seen {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var component []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			if len(component) > 1 {
				for _, m := range component {
					circular[m] = true
				}
			}
		}
	}

	for _, name := range g.order {
		if _, seen := indices[name]; !seen {
			strongConnect(name)
		}
	}
	return circular
}

// CyclesContaining returns the detected cycles that pass through name.
func (g *DependencyGraph) CyclesContaining(name string) [][]string {
	var out [][]string
	for _, cycle := range g.FindCircularDependencies() {
		for _, m := range cycle {
			if m == name {
				out = append(out, cycle)
				break
			}
		}
	}
	return out
}
