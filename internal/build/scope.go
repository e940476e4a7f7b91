package build

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentx-labs/webbundle/internal/bundle"
	"github.com/agentx-labs/webbundle/internal/extension"
	"github.com/agentx-labs/webbundle/internal/manifest"
	"github.com/agentx-labs/webbundle/internal/registry"
	"github.com/agentx-labs/webbundle/internal/resolver"
	"github.com/spf13/afero"
)

// Scope is one build scope: the core tree alone, or one pack layered over
// it. Its snapshot is loaded once and only read afterwards, so targets of
// the scope can resolve concurrently.
type Scope struct {
	// Pack is nil for the core scope.
	Pack     *extension.Pack
	Snapshot *registry.Snapshot

	bundleOpts bundle.Options

	// err fails every target of the scope. Snapshot is nil when the scope
	// could not be loaded; listed then names the targets to report.
	err    error
	listed map[registry.Category][]string
}

// Err returns the error that fails every target of the scope, if any.
func (s *Scope) Err() error { return s.err }

// Name returns the pack id, or "" for the core scope.
func (s *Scope) Name() string {
	if s.Pack == nil {
		return ""
	}
	return s.Pack.ID
}

// Entry locates and parses one target of the scope.
func (s *Scope) Entry(kind manifest.Kind, id string) (*manifest.Entry, error) {
	cat := registry.CategoryAgent
	if kind == manifest.KindTeam {
		cat = registry.CategoryTeam
	}
	if s.err != nil {
		return nil, s.err
	}
	rec, err := s.Snapshot.Locate(registry.NewID(cat, id))
	if err != nil {
		return nil, err
	}
	return manifest.ParseEntry(rec)
}

// Resolve checks entry's dependency graph without producing output.
func (s *Scope) Resolve(ctx context.Context, entry *manifest.Entry) *resolver.Result {
	if s.err != nil {
		return &resolver.Result{Errors: []error{s.err}}
	}
	return resolver.Resolve(ctx, s.Snapshot, entry)
}

// ResolveAndSerialize resolves entry and serializes it into a bundle. A
// resolution with errors yields no bundle; the joined errors are returned.
func (s *Scope) ResolveAndSerialize(ctx context.Context, entry *manifest.Entry) (*bundle.Bundle, error) {
	res := s.Resolve(ctx, entry)
	if !res.OK() {
		return nil, fmt.Errorf("resolving %s: %w", entry.ResourceID(), res.Err())
	}
	return bundle.New(entry, res, s.bundleOpts)
}

// targets lists the scope's agents and teams. A pack scope only builds the
// entries the pack itself provides; core entries come from the core scope.
func (s *Scope) targets(opts RunOptions) []Target {
	var out []Target
	add := func(kind manifest.Kind, cat registry.Category) {
		for _, id := range s.entryNames(cat) {
			t := Target{Kind: kind, ID: id, Pack: s.Name()}
			if opts.selects(t) {
				out = append(out, t)
			}
		}
	}
	if !opts.TeamsOnly {
		add(manifest.KindAgent, registry.CategoryAgent)
	}
	if !opts.AgentsOnly {
		add(manifest.KindTeam, registry.CategoryTeam)
	}
	return out
}

// entryNames lists the ids of the scope's own entries in one category.
func (s *Scope) entryNames(cat registry.Category) []string {
	if s.Snapshot == nil {
		return s.listed[cat]
	}
	var out []string
	for _, rec := range s.Snapshot.Entries(cat, s.Name()) {
		out = append(out, rec.ID.Name)
	}
	return out
}

// listEntries names the agents and teams under a pack directory without
// loading a snapshot, so a pack that fails to load still reports its
// targets. Unreadable directories list nothing.
func listEntries(fsys afero.Fs, dir string) map[registry.Category][]string {
	out := make(map[registry.Category][]string)
	for _, cat := range []registry.Category{registry.CategoryAgent, registry.CategoryTeam} {
		infos, err := afero.ReadDir(fsys, filepath.Join(dir, cat.Dir()))
		if err != nil {
			continue
		}
		seen := make(map[string]bool)
		for _, info := range infos {
			if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
				continue
			}
			name := registry.NewID(cat, info.Name()).Name
			if !seen[name] {
				seen[name] = true
				out[cat] = append(out[cat], name)
			}
		}
		sort.Strings(out[cat])
	}
	return out
}
