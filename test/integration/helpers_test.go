//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentx-labs/webbundle/internal/cli"
)

// setupProject creates a project tree shaped like a real agent method repo:
// a core root with agents, teams, and resources, plus one expansion pack.
// Returns the project root.
func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	core := filepath.Join(root, "core")

	// --- Agents ---
	writeFile(t, filepath.Join(core, "agents/sm.md"), agent("sm", "Scrum Master", `  tasks:
    - create-next-story.md
    - correct-course.md
`))
	writeFile(t, filepath.Join(core, "agents/qa.md"), agent("qa", "Senior Developer & QA Architect", `  tasks:
    - review-story.md
  templates:
    - story-tmpl.yaml
`))
	writeFile(t, filepath.Join(core, "agents/pm.md"), agent("pm", "Product Manager", `  tasks:
    - create-doc.md
  templates:
    - prd-tmpl.yaml
  checklists:
    - pm-checklist.md
  data:
    - technical-preferences.md
`))
	writeFile(t, filepath.Join(core, "agents/bmad-orchestrator.md"), agent("bmad-orchestrator", "BMad Master Orchestrator", `  agents:
    - "*"
  data:
    - bmad-kb.md
`))

	// --- Teams ---
	writeFile(t, filepath.Join(core, "agent-teams/team-all.yaml"), `bundle:
  name: Team All
  icon: "👥"
  description: Includes every core system agent.
agents:
  - bmad-orchestrator
  - "*"
workflows:
  - greenfield-service.yaml
`)
	writeFile(t, filepath.Join(core, "agent-teams/team-no-ui.yaml"), `bundle:
  name: Team No UI
agents: [pm, sm]
`)

	// --- Resources ---
	writeFile(t, filepath.Join(core, "tasks/create-next-story.md"), "# Create Next Story Task\n\nIdentify the next story.\n")
	writeFile(t, filepath.Join(core, "tasks/correct-course.md"), "# Correct Course Task\n")
	writeFile(t, filepath.Join(core, "tasks/review-story.md"), "---\ndependencies:\n  templates:\n    - story-tmpl.yaml\n---\n# Review Story\n")
	writeFile(t, filepath.Join(core, "tasks/create-doc.md"), "# Create Document from Template\n")
	writeFile(t, filepath.Join(core, "templates/story-tmpl.yaml"), "template:\n  id: story-template-v2\n  name: Story Document\n")
	writeFile(t, filepath.Join(core, "templates/prd-tmpl.yaml"), "template:\n  id: prd-template-v2\n")
	writeFile(t, filepath.Join(core, "checklists/pm-checklist.md"), "# Product Manager (PM) Requirements Checklist\n")
	writeFile(t, filepath.Join(core, "data/technical-preferences.md"), "# User-Defined Preferred Patterns and Preferences\n\nNone Listed")
	writeFile(t, filepath.Join(core, "data/bmad-kb.md"), "# BMad Knowledge Base\n")
	writeFile(t, filepath.Join(core, "workflows/greenfield-service.yaml"), `workflow:
  id: greenfield-service
  sequence:
    - agent: pm
      creates: prd.md
dependencies:
  tasks:
    - create-doc
`)

	// --- Expansion pack ---
	pack := filepath.Join(root, "expansion-packs/bmad-2d-phaser-game-dev")
	writeFile(t, filepath.Join(pack, "config.yaml"), `name: bmad-2d-phaser-game-dev
version: 1.11.0
short-title: Phaser 3 2D Game Dev Pack
description: 2D Game Development expansion pack for BMad Method
requires-core: ">=4.0.0"
`)
	writeFile(t, filepath.Join(pack, "agents/game-sm.md"), agent("game-sm", "Game Scrum Master", `  tasks:
    - create-next-story.md
  templates:
    - game-story-tmpl.yaml
`))
	writeFile(t, filepath.Join(pack, "tasks/create-next-story.md"), "# Create Next Game Story\n")
	writeFile(t, filepath.Join(pack, "templates/game-story-tmpl.yaml"), "template:\n  id: game-story-template-v3\n")
	writeFile(t, filepath.Join(pack, "agent-teams/phaser-2d-nodejs-game-team.yaml"), `bundle:
  name: Phaser 2D NodeJS Game Team
agents:
  - game-sm
`)

	writeFile(t, filepath.Join(root, "webbundle.yaml"), "core:\n  version: 4.31.0\n")
	return root
}

// agent renders an agent definition with a fenced yaml block.
func agent(id, title, deps string) string {
	return "# " + id + "\n\nACTIVATION-NOTICE: This file contains your full agent operating guidelines.\n\n" +
		"```yaml\nagent:\n  id: " + id + "\n  title: " + title + "\ndependencies:\n" + deps + "```\n"
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// runCLI executes the command tree and returns its standard output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := cli.Run(context.Background(), args, &out, &errOut)
	return out.String(), err
}

// blockOrder returns the START locations of a bundle in order.
func blockOrder(text string) []string {
	const prefix = "==================== START: "
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, prefix) {
			out = append(out, strings.TrimSuffix(strings.TrimPrefix(line, prefix), " ===================="))
		}
	}
	return out
}
