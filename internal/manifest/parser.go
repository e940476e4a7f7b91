package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/agentx-labs/webbundle/internal/registry"
	"go.yaml.in/yaml/v3"
)

var (
	errNoBlock         = errors.New("no ```yaml block found")
	errUnterminated    = errors.New("block is not terminated")
	errEmptyBlock      = errors.New("block is empty")
	errWrongCategory   = errors.New("record is not an agent or team")
	errIDMismatch      = errors.New("id does not match file name")
	frontMatterDivider = "---"
)

// dependencyBlock is the YAML shape of a dependencies mapping.
type dependencyBlock struct {
	Agents     []string `yaml:"agents"`
	Workflows  []string `yaml:"workflows"`
	Tasks      []string `yaml:"tasks"`
	Templates  []string `yaml:"templates"`
	Checklists []string `yaml:"checklists"`
	Utils      []string `yaml:"utils"`
	Data       []string `yaml:"data"`
}

type agentDoc struct {
	Agent struct {
		ID        string `yaml:"id"`
		Name      string `yaml:"name"`
		Title     string `yaml:"title"`
		WhenToUse string `yaml:"whenToUse"`
	} `yaml:"agent"`
	Dependencies dependencyBlock `yaml:"dependencies"`
}

type teamDoc struct {
	Bundle struct {
		Name        string `yaml:"name"`
		Icon        string `yaml:"icon"`
		Description string `yaml:"description"`
	} `yaml:"bundle"`
	Agents       []string        `yaml:"agents"`
	Workflows    []string        `yaml:"workflows"`
	Dependencies dependencyBlock `yaml:"dependencies"`
}

type resourceDoc struct {
	Dependencies dependencyBlock `yaml:"dependencies"`
}

// ParseEntry parses rec as an agent or team according to its category.
func ParseEntry(rec *registry.Record) (*Entry, error) {
	switch rec.ID.Category {
	case registry.CategoryAgent:
		return ParseAgent(rec)
	case registry.CategoryTeam:
		return ParseTeam(rec)
	default:
		return nil, &ParseError{Entry: rec.ID.String(), Construct: "entry", Err: errWrongCategory}
	}
}

// ParseAgent parses an agent definition. Markdown agents carry their
// structure in the first ```yaml fenced block; YAML agents are the block.
// The agent's own body stays in rec and is never copied into the manifest.
func ParseAgent(rec *registry.Record) (*Entry, error) {
	entryName := rec.ID.String()

	block, err := structuredBlock(rec)
	if err != nil {
		return nil, &ParseError{Entry: entryName, Construct: "yaml block", Err: err}
	}

	var doc agentDoc
	if err := decodeValidated(entryName, agentSchema, block, &doc); err != nil {
		return nil, err
	}

	if doc.Agent.ID != "" && registry.CanonicalName(doc.Agent.ID) != rec.ID.Name {
		return nil, &ParseError{
			Entry:     entryName,
			Construct: "agent.id",
			Err:       fmt.Errorf("%w: %q", errIDMismatch, doc.Agent.ID),
		}
	}

	title := doc.Agent.Title
	if title == "" {
		title = doc.Agent.Name
	}

	return &Entry{
		ID:           rec.ID.Name,
		Kind:         KindAgent,
		Title:        title,
		Description:  doc.Agent.WhenToUse,
		Dependencies: toManifest(doc.Dependencies),
		Record:       rec,
	}, nil
}

// ParseTeam parses a team definition. The top-level agents and workflows
// lists are merged ahead of any explicit dependencies block.
func ParseTeam(rec *registry.Record) (*Entry, error) {
	entryName := rec.ID.String()

	block, err := structuredBlock(rec)
	if err != nil {
		return nil, &ParseError{Entry: entryName, Construct: "yaml block", Err: err}
	}

	var doc teamDoc
	if err := decodeValidated(entryName, teamSchema, block, &doc); err != nil {
		return nil, err
	}

	deps := doc.Dependencies
	deps.Agents = append(append([]string{}, doc.Agents...), deps.Agents...)
	deps.Workflows = append(append([]string{}, doc.Workflows...), deps.Workflows...)

	title := doc.Bundle.Name
	if title == "" {
		title = rec.ID.Name
	}

	return &Entry{
		ID:           rec.ID.Name,
		Kind:         KindTeam,
		Title:        title,
		Description:  doc.Bundle.Description,
		Dependencies: toManifest(deps),
		Record:       rec,
	}, nil
}

// ParseResource extracts the dependencies a plain resource declares.
// Markdown and text resources use YAML front matter; YAML resources use a
// top-level dependencies key. A YAML resource that does not parse is opaque
// payload and declares nothing, while broken front matter is a ParseError.
func ParseResource(rec *registry.Record) (Manifest, error) {
	entryName := rec.ID.String()

	switch rec.Ext() {
	case ".yaml", ".yml":
		var raw interface{}
		if err := yaml.Unmarshal(rec.Content, &raw); err != nil {
			return Manifest{}, nil
		}
		if !hasDependencies(raw) {
			return Manifest{}, nil
		}
		var doc resourceDoc
		if err := decodeValidated(entryName, resourceSchema, rec.Content, &doc); err != nil {
			return Manifest{}, err
		}
		return toManifest(doc.Dependencies), nil

	default:
		fm, ok, err := frontMatter(rec.Content)
		if err != nil {
			return Manifest{}, &ParseError{Entry: entryName, Construct: "front matter", Err: err}
		}
		if !ok {
			return Manifest{}, nil
		}
		var doc resourceDoc
		if err := decodeValidated(entryName, resourceSchema, fm, &doc); err != nil {
			return Manifest{}, err
		}
		return toManifest(doc.Dependencies), nil
	}
}

// decodeValidated unmarshals block generically, validates it against the
// named schema, and then decodes it into out.
func decodeValidated(entryName, schemaName string, block []byte, out interface{}) error {
	var raw interface{}
	if err := yaml.Unmarshal(block, &raw); err != nil {
		return &ParseError{Entry: entryName, Construct: "yaml block", Err: err}
	}
	if raw == nil {
		return &ParseError{Entry: entryName, Construct: "yaml block", Err: errEmptyBlock}
	}

	issues, err := validate(schemaName, raw)
	if err != nil {
		return &ParseError{Entry: entryName, Construct: "yaml block", Err: err}
	}
	if len(issues) > 0 {
		return issuesError(entryName, issues)
	}

	if err := yaml.Unmarshal(block, out); err != nil {
		return &ParseError{Entry: entryName, Construct: "yaml block", Err: err}
	}
	return nil
}

// issuesError folds schema issues into one ParseError. The construct names
// the first offending location; the message lists all of them.
func issuesError(entryName string, issues []ValidationIssue) error {
	construct := issues[0].Path
	if construct == "" {
		construct = "yaml block"
	}
	msgs := make([]string, 0, len(issues))
	for _, issue := range issues {
		if issue.Path != "" {
			msgs = append(msgs, issue.Path+": "+issue.Message)
		} else {
			msgs = append(msgs, issue.Message)
		}
	}
	return &ParseError{Entry: entryName, Construct: construct, Err: errors.New(strings.Join(msgs, "; "))}
}

// structuredBlock returns the YAML that describes an entry: the whole file
// for YAML records, the first fenced yaml block otherwise.
func structuredBlock(rec *registry.Record) ([]byte, error) {
	switch rec.Ext() {
	case ".yaml", ".yml":
		return rec.Content, nil
	}
	return fencedYAML(rec.Content)
}

// fencedYAML returns the body of the first ```yaml (or ```yml) fence.
func fencedYAML(content []byte) ([]byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), len(content)+1)

	var (
		inside bool
		body   bytes.Buffer
	)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if !inside {
			if isYAMLFence(trimmed) {
				inside = true
			}
			continue
		}
		if trimmed == "```" {
			return body.Bytes(), nil
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if inside {
		return nil, errUnterminated
	}
	return nil, errNoBlock
}

func isYAMLFence(line string) bool {
	if !strings.HasPrefix(line, "```") {
		return false
	}
	lang := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "```")))
	return lang == "yaml" || lang == "yml"
}

// frontMatter returns the YAML between a leading "---" line and the next
// "---" line. ok is false when the content has no front matter.
func frontMatter(content []byte) (block []byte, ok bool, err error) {
	text := string(content)
	first, rest, found := strings.Cut(text, "\n")
	if !found || strings.TrimRight(first, "\r") != frontMatterDivider {
		return nil, false, nil
	}

	var body strings.Builder
	for {
		var line string
		line, rest, found = strings.Cut(rest, "\n")
		if strings.TrimRight(line, "\r") == frontMatterDivider {
			return []byte(body.String()), true, nil
		}
		body.WriteString(line)
		body.WriteByte('\n')
		if !found {
			return nil, false, errUnterminated
		}
	}
}

// hasDependencies reports whether a decoded YAML document is a mapping with
// a dependencies key.
func hasDependencies(raw interface{}) bool {
	switch m := raw.(type) {
	case map[string]interface{}:
		_, ok := m["dependencies"]
		return ok
	case map[interface{}]interface{}:
		_, ok := m["dependencies"]
		return ok
	}
	return false
}

// toManifest canonicalizes every declared name. The wildcard is kept as is.
func toManifest(b dependencyBlock) Manifest {
	canon := func(names []string) []string {
		if len(names) == 0 {
			return nil
		}
		out := make([]string, 0, len(names))
		for _, n := range names {
			if n == Wildcard {
				out = append(out, n)
				continue
			}
			out = append(out, registry.CanonicalName(n))
		}
		return out
	}
	return Manifest{
		Agents:     canon(b.Agents),
		Workflows:  canon(b.Workflows),
		Tasks:      canon(b.Tasks),
		Templates:  canon(b.Templates),
		Checklists: canon(b.Checklists),
		Utils:      canon(b.Utils),
		Data:       canon(b.Data),
	}
}
