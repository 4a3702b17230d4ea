package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalnine/sqlbench/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlbench.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.db")
	if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func validYAML(snapshot string) string {
	return `
trials: 5
tasks:
  - id: sql_001
    question: "Which customers exceeded their plan's data limit?"
    snapshot: ` + snapshot + `
    expected_sql: "SELECT id FROM customers"
`
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validYAML(writeSnapshot(t))))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", cfg.Agent.MaxRetries)
	}
	if cfg.Agent.StepLimit != 40 {
		t.Errorf("StepLimit = %d, want default 40", cfg.Agent.StepLimit)
	}
	if cfg.Agent.ToolTimeout != 30*time.Second {
		t.Errorf("ToolTimeout = %s, want 30s", cfg.Agent.ToolTimeout)
	}
	if cfg.Decision.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", cfg.Decision.Model)
	}
	if cfg.Results.Dir != "results" {
		t.Errorf("Results.Dir = %q, want results", cfg.Results.Dir)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	snapshot := writeSnapshot(t)
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no tasks", "trials: 3\ntasks: []\n", "no tasks"},
		{"no trials", strings.Replace(validYAML(snapshot), "trials: 5", "trials: 0", 1), "trials"},
		{"snapshot file missing", strings.Replace(validYAML(snapshot), snapshot, "/nonexistent/demo.db", 1), "/nonexistent/demo.db"},
		{"missing id", `
trials: 1
tasks:
  - question: q
    snapshot: s.db
    expected_sql: "SELECT 1"
`, "id is required"},
		{"missing snapshot", `
trials: 1
tasks:
  - id: a
    question: q
    expected_sql: "SELECT 1"
`, "snapshot is required"},
		{"duplicate id", `
trials: 1
tasks:
  - id: a
    question: q
    snapshot: s.db
    expected_sql: "SELECT 1"
  - id: a
    question: q2
    snapshot: s2.db
    expected_sql: "SELECT 2"
`, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nOPENAI_API_KEY=sk-test\nEMPTY=\nQUOTED=\"hello\"\nnot-a-pair\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	env, err := config.LoadEnvFile(path)
	if err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if env["OPENAI_API_KEY"] != "sk-test" {
		t.Errorf("OPENAI_API_KEY = %q", env["OPENAI_API_KEY"])
	}
	if env["QUOTED"] != "hello" {
		t.Errorf("QUOTED = %q", env["QUOTED"])
	}
	if _, ok := env["not-a-pair"]; ok {
		t.Error("bare token should be skipped")
	}
}
