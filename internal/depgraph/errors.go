package depgraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrModuleNotFound is matched by every *ModuleNotFoundError.
	ErrModuleNotFound = errors.New("module not found")
	// ErrCircularDependency is matched by every *CircularDependencyError.
	ErrCircularDependency = errors.New("circular dependency")
	// ErrSelfDependency is returned when a module is asked to depend on itself.
	ErrSelfDependency = errors.New("module cannot depend on itself")
)

// ModuleNotFoundError names the module that was missing and the role it
// played in the request ("source", "target" or "module").
type ModuleNotFoundError struct {
	Name string
	Role string
}

func (e *ModuleNotFoundError) Error() string {
	role := e.Role
	if role == "" {
		role = "module"
	}
	if role == "module" {
		return fmt.Sprintf("module '%s' not found", e.Name)
	}
	return fmt.Sprintf("%s module '%s' not found", role, e.Name)
}

func (e *ModuleNotFoundError) Is(target error) bool {
	return target == ErrModuleNotFound
}

// CircularDependencyError carries the offending cycle. The first and last
// element of Cycle are the same module.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency detected: " + FormatCycle(e.Cycle)
}

func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// FormatCycle renders a cycle as "a -> b -> a".
func FormatCycle(cycle []string) string {
	return strings.Join(cycle, " -> ")
}
