package manifest

import "github.com/agentx-labs/webbundle/internal/registry"

// Kind distinguishes the two entry shapes.
type Kind string

const (
	KindAgent Kind = "agent"
	KindTeam  Kind = "team"
)

// Wildcard in an agent list means every agent currently known to the store.
const Wildcard = "*"

// Manifest is a dependency manifest: ordered names per known category.
// Categories outside registry.Priority cannot be represented.
type Manifest struct {
	Agents     []string
	Workflows  []string
	Tasks      []string
	Templates  []string
	Checklists []string
	Utils      []string
	Data       []string
}

// Names returns the declared names for c in declaration order.
func (m Manifest) Names(c registry.Category) []string {
	switch c {
	case registry.CategoryAgent:
		return m.Agents
	case registry.CategoryWorkflow:
		return m.Workflows
	case registry.CategoryTask:
		return m.Tasks
	case registry.CategoryTemplate:
		return m.Templates
	case registry.CategoryChecklist:
		return m.Checklists
	case registry.CategoryUtil:
		return m.Utils
	case registry.CategoryData:
		return m.Data
	}
	return nil
}

// Add appends names to the list for c. Unknown categories are ignored.
func (m *Manifest) Add(c registry.Category, names ...string) {
	switch c {
	case registry.CategoryAgent:
		m.Agents = append(m.Agents, names...)
	case registry.CategoryWorkflow:
		m.Workflows = append(m.Workflows, names...)
	case registry.CategoryTask:
		m.Tasks = append(m.Tasks, names...)
	case registry.CategoryTemplate:
		m.Templates = append(m.Templates, names...)
	case registry.CategoryChecklist:
		m.Checklists = append(m.Checklists, names...)
	case registry.CategoryUtil:
		m.Utils = append(m.Utils, names...)
	case registry.CategoryData:
		m.Data = append(m.Data, names...)
	}
}

// Len returns the total number of declared names.
func (m Manifest) Len() int {
	n := 0
	for _, c := range registry.Priority {
		n += len(m.Names(c))
	}
	return n
}

// HasWildcard reports whether the agent list contains the wildcard.
func (m Manifest) HasWildcard() bool {
	for _, name := range m.Agents {
		if name == Wildcard {
			return true
		}
	}
	return false
}

// ExpandWildcard returns a copy of m whose agent list has every wildcard
// replaced, in place, by the names of agents. Names equal to exclude are
// left out of the expansion.
func (m Manifest) ExpandWildcard(agents []registry.ID, exclude string) Manifest {
	if !m.HasWildcard() {
		return m
	}
	out := m
	out.Agents = nil
	for _, name := range m.Agents {
		if name != Wildcard {
			out.Agents = append(out.Agents, name)
			continue
		}
		for _, id := range agents {
			if id.Name != exclude {
				out.Agents = append(out.Agents, id.Name)
			}
		}
	}
	return out
}

// Entry is a parsed build entry: an agent or a team.
type Entry struct {
	ID           string
	Kind         Kind
	Title        string
	Description  string
	Dependencies Manifest
	Record       *registry.Record
}

// ResourceID returns the id the entry occupies in the store.
func (e *Entry) ResourceID() registry.ID {
	if e.Kind == KindTeam {
		return registry.ID{Category: registry.CategoryTeam, Name: e.ID}
	}
	return registry.ID{Category: registry.CategoryAgent, Name: e.ID}
}
