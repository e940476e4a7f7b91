package registry

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/agentx-labs/webbundle/internal/ctxlog"
	"github.com/spf13/afero"
)

// Store is the lookup contract the resolver depends on.
type Store interface {
	Locate(id ID) (*Record, error)
	ListAgents() []ID
}

// Snapshot is an immutable view of every resource visible through an
// ordered source list. It is built once per build scope by Load and is safe
// for concurrent readers because nothing mutates it afterwards.
type Snapshot struct {
	sources  []Source
	records  map[ID]*Record
	shadowed []Shadow
}

var _ Store = (*Snapshot)(nil)

// Load reads every source into a new Snapshot. Sources are given in priority
// order (first = highest); the first source defining an id wins and lower
// definitions are recorded as shadowed, never merged.
func Load(ctx context.Context, fsys afero.Fs, sources []Source) (*Snapshot, error) {
	if err := validateSources(sources); err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx)
	snap := &Snapshot{
		sources: append([]Source(nil), sources...),
		records: make(map[ID]*Record),
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := walkSource(fsys, src)
		if err != nil {
			return nil, err
		}

		for _, id := range sortedIDs(found) {
			if winner, ok := snap.records[id]; ok {
				snap.shadowed = append(snap.shadowed, Shadow{ID: id, Winner: winner.Source, Hidden: src.Name})
				logger.Debug("resource shadowed", "id", id.String(), "winner", winner.Source, "hidden", src.Name)
				continue
			}
			snap.records[id] = found[id]
		}
		logger.Debug("source scanned", "source", src.Name, "path", src.BasePath, "records", len(found))
	}

	return snap, nil
}

// validateSources rejects source lists whose priority is not a total order
// over distinct roots.
func validateSources(sources []Source) error {
	names := make(map[string]string, len(sources))
	paths := make(map[string]string, len(sources))
	for _, src := range sources {
		if prev, ok := names[src.Name]; ok {
			return &DuplicateIDError{Source: src.Name, First: prev, Second: src.BasePath}
		}
		names[src.Name] = src.BasePath

		clean := filepath.Clean(src.BasePath)
		if prev, ok := paths[clean]; ok {
			return &DuplicateIDError{Source: src.Name, First: prev, Second: src.Name}
		}
		paths[clean] = src.Name
	}
	return nil
}

// Locate returns the record for id or a *NotFoundError.
func (s *Snapshot) Locate(id ID) (*Record, error) {
	if rec, ok := s.records[id]; ok {
		return rec, nil
	}
	return nil, &NotFoundError{ID: id}
}

// ListAgents returns every agent id visible in the snapshot, sorted by name.
func (s *Snapshot) ListAgents() []ID {
	var ids []ID
	for id := range s.records {
		if id.Category == CategoryAgent {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids
}

// Entries returns the records of one category, sorted by name. When source
// is non-empty only records whose winning source is source are returned.
func (s *Snapshot) Entries(cat Category, source string) []*Record {
	var out []*Record
	for id, rec := range s.records {
		if id.Category != cat {
			continue
		}
		if source != "" && rec.Source != source {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Name < out[j].ID.Name })
	return out
}

// Sources returns the source list the snapshot was built from.
func (s *Snapshot) Sources() []Source {
	return append([]Source(nil), s.sources...)
}

// Shadowed returns every record hidden by a higher-priority source, in
// scan order.
func (s *Snapshot) Shadowed() []Shadow {
	return append([]Shadow(nil), s.shadowed...)
}

// Len returns the number of visible records.
func (s *Snapshot) Len() int {
	return len(s.records)
}

func sortedIDs(m map[ID]*Record) []ID {
	ids := make([]ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}
