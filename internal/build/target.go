package build

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/agentx-labs/webbundle/internal/manifest"
)

// Target is one artifact to build.
type Target struct {
	Kind manifest.Kind
	ID   string
	// Pack is the expansion pack the target belongs to, "" for core.
	Pack string
}

func (t Target) String() string {
	if t.Pack == "" {
		return string(t.Kind) + ":" + t.ID
	}
	return t.Pack + "/" + string(t.Kind) + ":" + t.ID
}

// ArtifactPath returns where the target's bundle is written under out:
// agents/<id>.txt and teams/<id>.txt for core, and the same layout under
// expansion-packs/<pack>/ for pack targets.
func (t Target) ArtifactPath(out string) string {
	dir := "agents"
	if t.Kind == manifest.KindTeam {
		dir = "teams"
	}
	if t.Pack != "" {
		return filepath.Join(out, "expansion-packs", t.Pack, dir, t.ID+".txt")
	}
	return filepath.Join(out, dir, t.ID+".txt")
}

// RunOptions selects targets and output behaviour for one Run.
type RunOptions struct {
	AgentsOnly   bool
	TeamsOnly    bool
	NoExpansions bool
	// Only restricts the build to these target ids. An id matches agents
	// and teams of every scope.
	Only []string
	// Validate resolves every target without serializing or writing.
	Validate bool
	// Clean removes the output directory before writing.
	Clean bool
}

func (o RunOptions) selects(t Target) bool {
	return len(o.Only) == 0 || slices.Contains(o.Only, t.ID)
}

// TargetResult is the outcome of one target.
type TargetResult struct {
	Target
	State State
	// Resources counts resolved resources, not including the entry.
	Resources int
	Errors    []error
	// Path is the written artifact, empty unless State is StateWritten.
	Path     string
	Duration time.Duration
}

// OK reports whether the target finished without failing.
func (r *TargetResult) OK() bool {
	return r.State != StateFailed && r.State != StatePending
}

func (r *TargetResult) advance(to State) error {
	next, err := r.State.next(to)
	if err != nil {
		return err
	}
	r.State = next
	return nil
}

func (r *TargetResult) fail(errs ...error) {
	r.Errors = append(r.Errors, errs...)
	// Every non-terminal state may fail.
	_ = r.advance(StateFailed)
}
