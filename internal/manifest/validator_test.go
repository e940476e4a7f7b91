package manifest

import (
	"strings"
	"testing"
)

func TestSchemasCompile(t *testing.T) {
	for _, name := range []string{agentSchema, teamSchema, resourceSchema} {
		s, err := getSchema(name)
		if err != nil {
			t.Fatalf("getSchema(%s): %v", name, err)
		}
		if s == nil {
			t.Fatalf("getSchema(%s) = nil", name)
		}
	}
}

func TestValidateReportsPaths(t *testing.T) {
	raw := map[interface{}]interface{}{
		"dependencies": map[string]interface{}{
			"tasks": []interface{}{"ok", 3},
		},
	}
	issues, err := validate(agentSchema, raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(issues) == 0 {
		t.Fatal("expected issues")
	}
	if issues[0].Path != "/dependencies/tasks/1" {
		t.Errorf("Path = %q, want /dependencies/tasks/1", issues[0].Path)
	}
}

func TestValidateAcceptsWildcardAgents(t *testing.T) {
	raw := map[string]interface{}{
		"agents": []interface{}{"*"},
	}
	issues, err := validate(teamSchema, raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("issues = %+v, want none", issues)
	}
}

func TestValidateWildcardOutsideAgents(t *testing.T) {
	raw := map[string]interface{}{
		"dependencies": map[string]interface{}{
			"tasks": []interface{}{"*"},
		},
	}
	issues, err := validate(agentSchema, raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("issues = %+v, want one", issues)
	}
	if issues[0].Path != "/dependencies/tasks/0" || issues[0].Keyword != "not" {
		t.Errorf("issue = %+v, want not at /dependencies/tasks/0", issues[0])
	}
	if strings.Contains(issues[0].Message, "file://") {
		t.Errorf("message quotes a file URL: %q", issues[0].Message)
	}
}

func TestSchemaIDsDoNotDependOnWorkingDir(t *testing.T) {
	s, err := getSchema(agentSchema)
	if err != nil {
		t.Fatalf("getSchema: %v", err)
	}
	if !strings.HasPrefix(s.Location, schemaBase) {
		t.Errorf("Location = %q, want prefix %q", s.Location, schemaBase)
	}
}
