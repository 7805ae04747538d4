package feature

import (
	"fmt"

	"github.com/kilnforge/pipelinectl/internal/domain"
)

// ResolveOrder returns feature ids in dependency order (a feature never
// precedes anything it depends on) using a depth-first topological sort
// with a visiting-set for cycle detection. Missing dependency references
// are not an error here — they are surfaced separately as "unmet" by the
// Scheduler — only a true cycle among present ids fails resolution.
func ResolveOrder(features []Feature) ([]string, error) {
	byID := make(map[string]Feature, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(features))
	order := make([]string, 0, len(features))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("Circular dependency: %s: %w", id, domain.ErrCycle)
		}
		state[id] = visiting
		f, ok := byID[id]
		if ok {
			for _, dep := range f.DependsOn {
				if _, exists := byID[dep]; !exists {
					continue // missing reference: treated as unmet elsewhere, not a cycle
				}
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		state[id] = visited
		order = append(order, id)
		return nil
	}

	for _, f := range features {
		if err := visit(f.ID); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// DepsAreMet reports whether every id in depends_on exists in byID and has
// reached StatusComplete. status=complete is authoritative; passes=true
// alone never satisfies a dependency.
func DepsAreMet(f Feature, byID map[string]Feature) bool {
	for _, dep := range f.DependsOn {
		d, ok := byID[dep]
		if !ok || d.Status != StatusComplete {
			return false
		}
	}
	return true
}

// UnmetDependencies returns the subset of f's depends_on that are missing
// or not yet complete, for status-output "blocked" reporting.
func UnmetDependencies(f Feature, byID map[string]Feature) []string {
	var unmet []string
	for _, dep := range f.DependsOn {
		d, ok := byID[dep]
		if !ok || d.Status != StatusComplete {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}
