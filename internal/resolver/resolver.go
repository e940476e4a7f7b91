package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentx-labs/webbundle/internal/ctxlog"
	"github.com/agentx-labs/webbundle/internal/manifest"
	"github.com/agentx-labs/webbundle/internal/registry"
)

// Result is the outcome of resolving one entry.
type Result struct {
	// Order lists the entry first, then every resolved resource in walk order.
	Order []registry.ID
	// Records parallels Order.
	Records []*registry.Record
	// Errors holds every problem found; the walk never stops early.
	Errors []error
}

// OK reports whether the entry resolved without errors.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

// Err joins Errors, or returns nil when there are none.
func (r *Result) Err() error { return errors.Join(r.Errors...) }

// Resources returns the number of resolved resources, not counting the entry.
func (r *Result) Resources() int {
	if len(r.Order) == 0 {
		return 0
	}
	return len(r.Order) - 1
}

// walker holds the state of one resolution. It is never shared.
type walker struct {
	store   registry.Store
	entry   string
	agents  []registry.ID
	visited map[registry.ID]bool
	missing map[[2]registry.ID]bool
	path    *Path
	result  *Result
}

// Resolve walks entry's manifest against store. The wildcard in an agent
// list expands to store.ListAgents() at the point it is declared, minus the
// declaring agent.
func Resolve(ctx context.Context, store registry.Store, entry *manifest.Entry) *Result {
	root := entry.ResourceID()
	w := &walker{
		store:   store,
		entry:   root.String(),
		agents:  store.ListAgents(),
		visited: map[registry.ID]bool{root: true},
		missing: make(map[[2]registry.ID]bool),
		path:    NewPath(),
		result: &Result{
			Order:   []registry.ID{root},
			Records: []*registry.Record{entry.Record},
		},
	}

	w.path.Push(root)
	w.walk(root, w.expand(entry.Dependencies, root))
	w.path.Pop()

	ctxlog.FromContext(ctx).Debug("resolved entry",
		"entry", w.entry,
		"resources", w.result.Resources(),
		"errors", len(w.result.Errors))
	return w.result
}

// expand replaces the wildcard in m. An agent never lists itself.
func (w *walker) expand(m manifest.Manifest, owner registry.ID) manifest.Manifest {
	exclude := ""
	if owner.Category == registry.CategoryAgent {
		exclude = owner.Name
	}
	return m.ExpandWildcard(w.agents, exclude)
}

func (w *walker) walk(owner registry.ID, m manifest.Manifest) {
	for _, c := range registry.Priority {
		for _, name := range m.Names(c) {
			w.visit(owner, registry.NewID(c, name))
		}
	}
}

func (w *walker) visit(owner, id registry.ID) {
	if chain, onPath := w.path.CycleTo(id); onPath {
		w.result.Errors = append(w.result.Errors, &CircularDependencyError{Entry: w.entry, Chain: chain})
		return
	}
	if w.visited[id] {
		return
	}

	rec, err := w.store.Locate(id)
	if err != nil {
		var nf *registry.NotFoundError
		if !errors.As(err, &nf) {
			w.result.Errors = append(w.result.Errors, fmt.Errorf("locating %s: %w", id, err))
			return
		}
		key := [2]registry.ID{owner, id}
		if !w.missing[key] {
			w.missing[key] = true
			w.result.Errors = append(w.result.Errors, &MissingDependencyError{Entry: w.entry, DeclaredBy: owner, ID: id})
		}
		return
	}

	w.path.Push(id)
	w.visited[id] = true
	w.result.Order = append(w.result.Order, id)
	w.result.Records = append(w.result.Records, rec)

	deps, err := declared(rec)
	if err != nil {
		w.result.Errors = append(w.result.Errors, err)
	} else {
		w.walk(id, w.expand(deps, id))
	}
	w.path.Pop()
}

// declared parses the dependencies a located record declares. Agents reached
// as dependencies carry the same block as agent entries.
func declared(rec *registry.Record) (manifest.Manifest, error) {
	if rec.ID.Category == registry.CategoryAgent {
		entry, err := manifest.ParseAgent(rec)
		if err != nil {
			return manifest.Manifest{}, err
		}
		return entry.Dependencies, nil
	}
	return manifest.ParseResource(rec)
}
