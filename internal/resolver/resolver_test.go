package resolver

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentx-labs/webbundle/internal/manifest"
	"github.com/agentx-labs/webbundle/internal/registry"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// agentFile renders a minimal agent definition with the given block body.
func agentFile(block string) string {
	return "# agent\n\n```yaml\n" + block + "```\n\nPersona body.\n"
}

func load(t *testing.T, fsys afero.Fs, sources ...registry.Source) *registry.Snapshot {
	t.Helper()
	if len(sources) == 0 {
		sources = []registry.Source{{Name: "core", BasePath: "/core"}}
	}
	snap, err := registry.Load(context.Background(), fsys, sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return snap
}

func parseEntry(t *testing.T, snap *registry.Snapshot, id registry.ID) *manifest.Entry {
	t.Helper()
	rec, err := snap.Locate(id)
	if err != nil {
		t.Fatalf("Locate(%s): %v", id, err)
	}
	entry, err := manifest.ParseEntry(rec)
	if err != nil {
		t.Fatalf("ParseEntry(%s): %v", id, err)
	}
	return entry
}

func ids(t *testing.T, specs ...string) []registry.ID {
	t.Helper()
	out := make([]registry.ID, 0, len(specs))
	for _, s := range specs {
		c, name, _ := strings.Cut(s, ":")
		out = append(out, registry.ID{Category: registry.Category(c), Name: name})
	}
	return out
}

func agentID(name string) registry.ID {
	return registry.ID{Category: registry.CategoryAgent, Name: name}
}

func TestResolveTasksInDeclaredOrder(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agents/sm.md", agentFile("dependencies:\n  tasks:\n    - create-next-story\n    - correct-course\n"))
	writeFile(t, fsys, "/core/tasks/create-next-story.md", "# Create Next Story\n")
	writeFile(t, fsys, "/core/tasks/correct-course.md", "# Correct Course\n")

	snap := load(t, fsys)
	res := Resolve(context.Background(), snap, parseEntry(t, snap, agentID("sm")))

	if !res.OK() {
		t.Fatalf("errors: %v", res.Err())
	}
	want := ids(t, "agent:sm", "task:create-next-story", "task:correct-course")
	if diff := cmp.Diff(want, res.Order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
	if len(res.Records) != len(res.Order) {
		t.Fatalf("Records has %d entries, Order has %d", len(res.Records), len(res.Order))
	}
	for i, rec := range res.Records {
		if rec.ID != res.Order[i] {
			t.Errorf("Records[%d] = %s, want %s", i, rec.ID, res.Order[i])
		}
	}
	if res.Resources() != 2 {
		t.Errorf("Resources() = %d, want 2", res.Resources())
	}
}

func TestResolveSharedTemplateOnce(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agents/qa.md", agentFile("dependencies:\n  tasks: [review-story]\n  templates: [story-tmpl]\n"))
	writeFile(t, fsys, "/core/tasks/review-story.md", "---\ndependencies:\n  templates: [story-tmpl.yaml]\n---\n# Review Story\n")
	writeFile(t, fsys, "/core/templates/story-tmpl.yaml", "template:\n  id: story\n")

	snap := load(t, fsys)
	res := Resolve(context.Background(), snap, parseEntry(t, snap, agentID("qa")))

	if !res.OK() {
		t.Fatalf("errors: %v", res.Err())
	}
	want := ids(t, "agent:qa", "task:review-story", "template:story-tmpl")
	if diff := cmp.Diff(want, res.Order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoryPriority(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agents/pm.md", agentFile(
		"dependencies:\n  data: [kb]\n  checklists: [pm-checklist]\n  templates: [prd-tmpl]\n  tasks: [create-doc]\n  utils: [shard]\n"))
	for _, p := range []string{"data/kb.md", "checklists/pm-checklist.md", "templates/prd-tmpl.yaml", "tasks/create-doc.md", "utils/shard.md"} {
		writeFile(t, fsys, "/core/"+p, p+"\n")
	}

	snap := load(t, fsys)
	res := Resolve(context.Background(), snap, parseEntry(t, snap, agentID("pm")))

	want := ids(t, "agent:pm", "task:create-doc", "template:prd-tmpl", "checklist:pm-checklist", "util:shard", "data:kb")
	if diff := cmp.Diff(want, res.Order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
}

func TestDeterministic(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agent-teams/team-all.yaml", "agents: ['*']\n")
	for _, name := range []string{"sm", "dev", "qa", "pm", "analyst"} {
		writeFile(t, fsys, "/core/agents/"+name+".md", agentFile("dependencies:\n  tasks: [shared, "+name+"-task]\n"))
		writeFile(t, fsys, "/core/tasks/"+name+"-task.md", name+"\n")
	}
	writeFile(t, fsys, "/core/tasks/shared.md", "shared\n")

	first := Resolve(context.Background(), load(t, fsys), parseEntry(t, load(t, fsys), registry.ID{Category: registry.CategoryTeam, Name: "team-all"}))
	second := Resolve(context.Background(), load(t, fsys), parseEntry(t, load(t, fsys), registry.ID{Category: registry.CategoryTeam, Name: "team-all"}))

	if diff := cmp.Diff(first.Order, second.Order); diff != "" {
		t.Errorf("Order differs between runs (-first +second):\n%s", diff)
	}

	seen := make(map[registry.ID]int)
	for _, id := range first.Order {
		seen[id]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("%s appears %d times", id, n)
		}
	}
	if seen[registry.ID{Category: registry.CategoryTask, Name: "shared"}] != 1 {
		t.Error("shared task should be resolved once")
	}
}

func TestMissingDependenciesAreAllReported(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agents/dev.md", agentFile("dependencies:\n  tasks: [one, two]\n  data: [three]\n  utils: [present]\n"))
	writeFile(t, fsys, "/core/utils/present.md", "ok\n")

	snap := load(t, fsys)
	res := Resolve(context.Background(), snap, parseEntry(t, snap, agentID("dev")))

	if len(res.Errors) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(res.Errors), res.Err())
	}
	var got []registry.ID
	for _, err := range res.Errors {
		var md *MissingDependencyError
		if !errors.As(err, &md) {
			t.Fatalf("error %v is not *MissingDependencyError", err)
		}
		if md.DeclaredBy != agentID("dev") || md.Entry != "agent:dev" {
			t.Errorf("error = %+v, want declared by agent:dev", md)
		}
		got = append(got, md.ID)
	}
	if diff := cmp.Diff(ids(t, "task:one", "task:two", "data:three"), got); diff != "" {
		t.Errorf("missing ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ids(t, "agent:dev", "util:present"), res.Order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingNamesDeclaringResource(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agents/dev.md", agentFile("dependencies:\n  tasks: [a, b]\n"))
	writeFile(t, fsys, "/core/tasks/a.md", "---\ndependencies:\n  data: [gone]\n---\n")
	writeFile(t, fsys, "/core/tasks/b.md", "---\ndependencies:\n  data: [gone]\n---\n")

	snap := load(t, fsys)
	res := Resolve(context.Background(), snap, parseEntry(t, snap, agentID("dev")))

	if len(res.Errors) != 2 {
		t.Fatalf("got %d errors, want one per declaring resource: %v", len(res.Errors), res.Err())
	}
	var md *MissingDependencyError
	if !errors.As(res.Errors[1], &md) || md.DeclaredBy.Name != "b" {
		t.Errorf("second error = %v, want declared by task:b", res.Errors[1])
	}
}

func TestCycleIsReportedOnceAndSiblingsResolve(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agents/a.md", agentFile("dependencies:\n  agents: [b]\n  tasks: [from-a]\n"))
	writeFile(t, fsys, "/core/agents/b.md", agentFile("dependencies:\n  agents: [a]\n  tasks: [from-b]\n"))
	writeFile(t, fsys, "/core/tasks/from-a.md", "a\n")
	writeFile(t, fsys, "/core/tasks/from-b.md", "b\n")

	snap := load(t, fsys)
	res := Resolve(context.Background(), snap, parseEntry(t, snap, agentID("a")))

	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(res.Errors), res.Err())
	}
	var cd *CircularDependencyError
	if !errors.As(res.Errors[0], &cd) {
		t.Fatalf("error %v is not *CircularDependencyError", res.Errors[0])
	}
	if diff := cmp.Diff(ids(t, "agent:a", "agent:b", "agent:a"), cd.Chain); diff != "" {
		t.Errorf("Chain mismatch (-want +got):\n%s", diff)
	}
	if got := cd.Error(); got != "circular dependency: agent:a → agent:b → agent:a" {
		t.Errorf("Error() = %q", got)
	}

	want := ids(t, "agent:a", "agent:b", "task:from-b", "task:from-a")
	if diff := cmp.Diff(want, res.Order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
}

func TestResourceCycle(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agents/dev.md", agentFile("dependencies:\n  tasks: [x]\n"))
	writeFile(t, fsys, "/core/tasks/x.md", "---\ndependencies:\n  tasks: [y]\n---\n")
	writeFile(t, fsys, "/core/tasks/y.md", "---\ndependencies:\n  tasks: [x]\n---\n")

	snap := load(t, fsys)
	res := Resolve(context.Background(), snap, parseEntry(t, snap, agentID("dev")))

	var cd *CircularDependencyError
	if len(res.Errors) != 1 || !errors.As(res.Errors[0], &cd) {
		t.Fatalf("errors = %v, want one cycle", res.Err())
	}
	if diff := cmp.Diff(ids(t, "task:x", "task:y", "task:x"), cd.Chain); diff != "" {
		t.Errorf("Chain mismatch (-want +got):\n%s", diff)
	}
}

func TestWildcardFollowsTree(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agent-teams/team-all.yaml", "bundle:\n  name: Everyone\nagents: ['*']\n")
	writeFile(t, fsys, "/core/agents/dev.md", agentFile("agent:\n  id: dev\n"))
	writeFile(t, fsys, "/core/agents/sm.md", agentFile("agent:\n  id: sm\n"))

	team := registry.ID{Category: registry.CategoryTeam, Name: "team-all"}
	snap := load(t, fsys)
	res := Resolve(context.Background(), snap, parseEntry(t, snap, team))
	if diff := cmp.Diff(ids(t, "team:team-all", "agent:dev", "agent:sm"), res.Order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}

	writeFile(t, fsys, "/core/agents/analyst.md", agentFile("agent:\n  id: analyst\n"))
	snap = load(t, fsys)
	res = Resolve(context.Background(), snap, parseEntry(t, snap, team))
	if diff := cmp.Diff(ids(t, "team:team-all", "agent:analyst", "agent:dev", "agent:sm"), res.Order); diff != "" {
		t.Errorf("Order after new agent mismatch (-want +got):\n%s", diff)
	}
}

func TestWildcardAgentSkipsItself(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agents/orchestrator.md", agentFile("dependencies:\n  agents: ['*']\n"))
	writeFile(t, fsys, "/core/agents/dev.md", agentFile("agent:\n  id: dev\n"))

	snap := load(t, fsys)
	res := Resolve(context.Background(), snap, parseEntry(t, snap, agentID("orchestrator")))

	if !res.OK() {
		t.Fatalf("errors: %v", res.Err())
	}
	if diff := cmp.Diff(ids(t, "agent:orchestrator", "agent:dev"), res.Order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
}

func TestOverlayPrecedence(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agents/sm.md", agentFile("dependencies:\n  tasks: [create-next-story]\n"))
	writeFile(t, fsys, "/core/tasks/create-next-story.md", "core\n")
	writeFile(t, fsys, "/pack/tasks/create-next-story.md", "pack\n")

	core := registry.Source{Name: "core", BasePath: "/core"}
	pack := registry.Source{Name: "pack", BasePath: "/pack"}

	tests := []struct {
		name    string
		sources []registry.Source
		want    string
	}{
		{"pack first", []registry.Source{pack, core}, "pack"},
		{"core first", []registry.Source{core, pack}, "core"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := load(t, fsys, tt.sources...)
			res := Resolve(context.Background(), snap, parseEntry(t, snap, agentID("sm")))
			if got := res.Records[1].Source; got != tt.want {
				t.Errorf("task source = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNestedParseError(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/core/agents/dev.md", agentFile("dependencies:\n  tasks: [broken, fine]\n"))
	writeFile(t, fsys, "/core/tasks/broken.md", "---\ndependencies:\n  widgets: [x]\n---\n")
	writeFile(t, fsys, "/core/tasks/fine.md", "fine\n")

	snap := load(t, fsys)
	res := Resolve(context.Background(), snap, parseEntry(t, snap, agentID("dev")))

	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(res.Errors), res.Err())
	}
	var pe *manifest.ParseError
	if !errors.As(res.Errors[0], &pe) {
		t.Fatalf("error %v is not *manifest.ParseError", res.Errors[0])
	}
	if pe.Entry != "task:broken" {
		t.Errorf("ParseError.Entry = %q, want task:broken", pe.Entry)
	}
	if diff := cmp.Diff(ids(t, "agent:dev", "task:broken", "task:fine"), res.Order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
}

// failingStore returns an error that is not a NotFoundError.
type failingStore struct{}

func (failingStore) Locate(registry.ID) (*registry.Record, error) {
	return nil, errors.New("disk on fire")
}
func (failingStore) ListAgents() []registry.ID { return nil }

func TestLocateFailureIsRecorded(t *testing.T) {
	entry := &manifest.Entry{
		ID:           "dev",
		Kind:         manifest.KindAgent,
		Dependencies: manifest.Manifest{Tasks: []string{"x"}},
		Record:       &registry.Record{ID: agentID("dev")},
	}
	res := Resolve(context.Background(), failingStore{}, entry)
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(res.Errors))
	}
	var md *MissingDependencyError
	if errors.As(res.Errors[0], &md) {
		t.Error("store failure should not be reported as missing")
	}
}
