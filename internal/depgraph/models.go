package depgraph

// DependencyType classifies why one module depends on another.
type DependencyType string

const (
	DependencyImport  DependencyType = "import"
	DependencyRuntime DependencyType = "runtime"
	DependencyConfig  DependencyType = "config"
	DependencyTest    DependencyType = "test"
)

// Strength tells how tightly two modules are coupled.
type Strength string

const (
	StrengthStrong Strength = "strong"
	StrengthWeak   Strength = "weak"
)

// ModuleDependency is one directed edge: SourceModule depends on TargetModule.
// Edges are created by DependencyGraph.AddDependency and never mutated.
type ModuleDependency struct {
	SourceModule   string         `json:"source_module"`
	TargetModule   string         `json:"target_module"`
	DependencyType DependencyType `json:"dependency_type"`
	Strength       Strength       `json:"strength"`
	Description    string         `json:"description,omitempty"`
	FilePath       string         `json:"file_path,omitempty"`
	LineNumber     int            `json:"line_number,omitempty"` // 0 when unknown
}

// DependencyOption customizes an edge created by AddDependency.
type DependencyOption func(*ModuleDependency)

// WithType sets the dependency type (default "import").
func WithType(t DependencyType) DependencyOption {
	return func(d *ModuleDependency) { d.DependencyType = t }
}

// WithStrength sets the coupling strength (default "strong").
func WithStrength(s Strength) DependencyOption {
	return func(d *ModuleDependency) { d.Strength = s }
}

// WithDescription attaches a free-text provenance note.
func WithDescription(desc string) DependencyOption {
	return func(d *ModuleDependency) { d.Description = desc }
}

// WithLocation records where the dependency was declared.
func WithLocation(filePath string, line int) DependencyOption {
	return func(d *ModuleDependency) {
		d.FilePath = filePath
		d.LineNumber = line
	}
}

func newModuleDependency(source, target string, opts ...DependencyOption) *ModuleDependency {
	d := &ModuleDependency{
		SourceModule:   source,
		TargetModule:   target,
		DependencyType: DependencyImport,
		Strength:       StrengthStrong,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ModuleInfo is the graph's record for one module. Name is its identity.
// Path and Metadata belong to the caller and are never interpreted by the
// graph; the edge lists are owned by DependencyGraph.
type ModuleInfo struct {
	Name     string         `json:"name"`
	Path     string         `json:"path"`
	Metadata map[string]any `json:"metadata,omitempty"`

	dependencies []*ModuleDependency
	dependents   []*ModuleDependency
}

// Dependencies returns the outgoing edges in insertion order.
func (m *ModuleInfo) Dependencies() []ModuleDependency {
	return copyEdges(m.dependencies)
}

// Dependents returns the incoming edges in insertion order.
func (m *ModuleInfo) Dependents() []ModuleDependency {
	return copyEdges(m.dependents)
}

func copyEdges(edges []*ModuleDependency) []ModuleDependency {
	out := make([]ModuleDependency, len(edges))
	for i, e := range edges {
		out[i] = *e
	}
	return out
}
