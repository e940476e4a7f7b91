package resolver

import (
	"fmt"
	"strings"

	"github.com/agentx-labs/webbundle/internal/registry"
)

// MissingDependencyError reports a declared name that no root provides.
type MissingDependencyError struct {
	Entry      string      // entry being resolved, e.g. "agent:sm"
	DeclaredBy registry.ID // resource whose manifest names ID
	ID         registry.ID
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependency %s (declared by %s)", e.ID, e.DeclaredBy)
}

// CircularDependencyError reports a chain that leads back to one of its
// own ancestors. The first and last elements of Chain are the same id.
type CircularDependencyError struct {
	Entry string
	Chain []registry.ID
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		parts[i] = id.String()
	}
	return "circular dependency: " + strings.Join(parts, " → ")
}
