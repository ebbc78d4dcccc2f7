// Package project reads the project manifest that declares a generated
// project's modules and their dependencies, and turns it into a
// depgraph.DependencyGraph.
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

// DefaultManifest is the manifest file looked up when none is given.
const DefaultManifest = "fascraft.yaml"

// Manifest is the declared module layout of one project.
type Manifest struct {
	Name    string       `mapstructure:"name"`
	Modules []ModuleSpec `mapstructure:"modules"`
}

// ModuleSpec declares one module.
type ModuleSpec struct {
	Name         string           `mapstructure:"name"`
	Path         string           `mapstructure:"path"`
	Metadata     map[string]any   `mapstructure:"metadata"`
	Dependencies []DependencySpec `mapstructure:"dependencies"`
}

// DependencySpec declares one outgoing dependency of a module. Empty type
// and strength take the graph defaults.
type DependencySpec struct {
	Target      string `mapstructure:"target"`
	Type        string `mapstructure:"type"`
	Strength    string `mapstructure:"strength"`
	Description string `mapstructure:"description"`
	File        string `mapstructure:"file"`
	Line        int    `mapstructure:"line"`
}

var (
	validTypes = map[depgraph.DependencyType]bool{
		depgraph.DependencyImport:  true,
		depgraph.DependencyRuntime: true,
		depgraph.DependencyConfig:  true,
		depgraph.DependencyTest:    true,
	}
	validStrengths = map[depgraph.Strength]bool{
		depgraph.StrengthStrong: true,
		depgraph.StrengthWeak:   true,
	}
)

// Load reads a manifest in any format viper understands (YAML, TOML, JSON).
// A manifest without a name is named after its directory.
func Load(path string) (*Manifest, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := v.Unmarshal(&m); err != nil {
		return nil, fmt.Errorf("unmarshalling manifest: %w", err)
	}
	if m.Name == "" {
		abs, err := filepath.Abs(path)
		if err == nil {
			m.Name = filepath.Base(filepath.Dir(abs))
		}
	}
	slog.Debug("manifest loaded", "path", path, "project", m.Name, "modules", len(m.Modules))
	return &m, nil
}

// Validate reports every problem in the manifest at once.
func (m *Manifest) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(m.Modules))

	for i, mod := range m.Modules {
		if strings.TrimSpace(mod.Name) == "" {
			errs = append(errs, fmt.Errorf("module #%d: name is empty", i+1))
			continue
		}
		if seen[mod.Name] {
			errs = append(errs, fmt.Errorf("module %s: declared more than once", mod.Name))
		}
		seen[mod.Name] = true
	}

	for _, mod := range m.Modules {
		for _, dep := range mod.Dependencies {
			switch {
			case dep.Target == "":
				errs = append(errs, fmt.Errorf("module %s: dependency without target", mod.Name))
			case dep.Target == mod.Name:
				errs = append(errs, fmt.Errorf("module %s: %w", mod.Name, depgraph.ErrSelfDependency))
			case !seen[dep.Target]:
				errs = append(errs, fmt.Errorf("module %s: %w", mod.Name,
					&depgraph.ModuleNotFoundError{Name: dep.Target, Role: "target"}))
			}
			if dep.Type != "" && !validTypes[depgraph.DependencyType(dep.Type)] {
				errs = append(errs, fmt.Errorf("module %s: unknown dependency type %q", mod.Name, dep.Type))
			}
			if dep.Strength != "" && !validStrengths[depgraph.Strength(dep.Strength)] {
				errs = append(errs, fmt.Errorf("module %s: unknown dependency strength %q", mod.Name, dep.Strength))
			}
		}
	}
	return errors.Join(errs...)
}

// Build validates the manifest and returns its graph. Modules are
// registered in declaration order before any edge is added, so
// dependencies may point forward.
func (m *Manifest) Build() (*depgraph.DependencyGraph, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", m.Name, err)
	}

	g := depgraph.New()
	for _, mod := range m.Modules {
		g.AddModule(mod.Name, mod.Path, mod.Metadata)
	}
	for _, mod := range m.Modules {
		for _, dep := range mod.Dependencies {
			if _, err := g.AddDependency(mod.Name, dep.Target, dep.options()...); err != nil {
				return nil, fmt.Errorf("add dependency %s -> %s: %w", mod.Name, dep.Target, err)
			}
		}
	}
	return g, nil
}

func (d DependencySpec) options() []depgraph.DependencyOption {
	opts := []depgraph.DependencyOption{
		depgraph.WithDescription(d.Description),
		depgraph.WithLocation(d.File, d.Line),
	}
	if d.Type != "" {
		opts = append(opts, depgraph.WithType(depgraph.DependencyType(d.Type)))
	}
	if d.Strength != "" {
		opts = append(opts, depgraph.WithStrength(depgraph.Strength(d.Strength)))
	}
	return opts
}

// FromGraph describes g as a manifest, e.g. after cycles were resolved.
func FromGraph(name string, g *depgraph.DependencyGraph) *Manifest {
	m := &Manifest{Name: name}
	for _, dm := range g.Document().Modules {
		spec := ModuleSpec{Name: dm.Name, Path: dm.Path, Metadata: dm.Metadata}
		for _, d := range dm.Dependencies {
			spec.Dependencies = append(spec.Dependencies, DependencySpec{
				Target:      d.Target,
				Type:        string(d.DependencyType),
				Strength:    string(d.Strength),
				Description: d.Description,
				File:        d.FilePath,
				Line:        d.LineNumber,
			})
		}
		m.Modules = append(m.Modules, spec)
	}
	return m
}

// Save writes the manifest to path. The format follows the file extension.
func (m *Manifest) Save(path string) error {
	v := viper.New()
	v.Set("name", m.Name)
	v.Set("modules", m.encode())
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// encode converts modules to plain maps, omitting empty fields.
func (m *Manifest) encode() []map[string]any {
	out := make([]map[string]any, 0, len(m.Modules))
	for _, mod := range m.Modules {
		entry := map[string]any{"name": mod.Name}
		if mod.Path != "" {
			entry["path"] = mod.Path
		}
		if len(mod.Metadata) > 0 {
			entry["metadata"] = mod.Metadata
		}
		if len(mod.Dependencies) > 0 {
			deps := make([]map[string]any, 0, len(mod.Dependencies))
			for _, d := range mod.Dependencies {
				dep := map[string]any{"target": d.Target}
				setIf(dep, "type", d.Type)
				setIf(dep, "strength", d.Strength)
				setIf(dep, "description", d.Description)
				setIf(dep, "file", d.File)
				if d.Line > 0 {
					dep["line"] = d.Line
				}
				deps = append(deps, dep)
			}
			entry["dependencies"] = deps
		}
		out = append(out, entry)
	}
	return out
}

func setIf(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
