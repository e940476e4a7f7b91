package registry

import (
	"path"
	"strings"
)

// Category is the kind of a resource. The set is closed.
type Category string

const (
	CategoryAgent     Category = "agent"
	CategoryWorkflow  Category = "workflow"
	CategoryTask      Category = "task"
	CategoryTemplate  Category = "template"
	CategoryChecklist Category = "checklist"
	CategoryUtil      Category = "util"
	CategoryData      Category = "data"

	// CategoryTeam marks team definitions. Teams are build entries only and
	// can never be declared as a dependency.
	CategoryTeam Category = "team"
)

// Priority is the fixed order in which dependency categories are walked:
// behavioral resources before reference material.
var Priority = []Category{
	CategoryAgent,
	CategoryWorkflow,
	CategoryTask,
	CategoryTemplate,
	CategoryChecklist,
	CategoryUtil,
	CategoryData,
}

// categoryDirs maps each category to its directory under a root. The same
// plural names are the keys of a dependency manifest.
var categoryDirs = map[Category]string{
	CategoryAgent:     "agents",
	CategoryWorkflow:  "workflows",
	CategoryTask:      "tasks",
	CategoryTemplate:  "templates",
	CategoryChecklist: "checklists",
	CategoryUtil:      "utils",
	CategoryData:      "data",
	CategoryTeam:      "agent-teams",
}

// knownExtensions are stripped from names to form the canonical id.
var knownExtensions = []string{".md", ".yaml", ".yml", ".txt"}

// Dir returns the directory name for c, e.g. "tasks".
func (c Category) Dir() string { return categoryDirs[c] }

// CategoryFromKey maps a plural manifest key or directory name ("tasks",
// "agents") to its Category. Teams are not a dependency key.
func CategoryFromKey(key string) (Category, bool) {
	for _, c := range Priority {
		if categoryDirs[c] == key {
			return c, true
		}
	}
	return "", false
}

// ID identifies one resource: its category plus canonical name.
type ID struct {
	Category Category
	Name     string
}

// NewID builds an ID with a canonical name.
func NewID(c Category, name string) ID {
	return ID{Category: c, Name: CanonicalName(name)}
}

// String renders "category:name", e.g. "task:create-next-story".
func (id ID) String() string {
	return string(id.Category) + ":" + id.Name
}

// Less orders ids by category then name.
func (id ID) Less(other ID) bool {
	if id.Category != other.Category {
		return id.Category < other.Category
	}
	return id.Name < other.Name
}

// CanonicalName trims whitespace, normalizes separators, and strips one
// known file extension: "create-next-story.md" -> "create-next-story".
func CanonicalName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	ext := path.Ext(name)
	for _, known := range knownExtensions {
		if strings.EqualFold(ext, known) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// Source is one resource root. A slice of sources is ordered by priority:
// index 0 shadows everything after it.
type Source struct {
	Name     string // e.g., "core", "bmad-2d-phaser-game-dev"
	BasePath string // path of the root on the filesystem
}

// Record is one resource read from a root. Content is kept byte-for-byte.
type Record struct {
	ID      ID
	Content []byte
	Source  string // name of the root it was read from
	RelPath string // slash-separated path relative to the root, e.g. "tasks/create-next-story.md"
}

// Ext returns the lowercase file extension of the record, e.g. ".md".
func (r *Record) Ext() string {
	return strings.ToLower(path.Ext(r.RelPath))
}

// Shadow notes that a higher-priority root hid a record of a lower one.
type Shadow struct {
	ID     ID
	Winner string // source that provides the record
	Hidden string // source whose record was hidden
}
