package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/sqlbench/internal/agent"
	"github.com/signalnine/sqlbench/internal/config"
	"github.com/signalnine/sqlbench/internal/pricing"
	"github.com/signalnine/sqlbench/internal/report"
	"github.com/signalnine/sqlbench/internal/result"
	"github.com/signalnine/sqlbench/internal/runner"
	"github.com/signalnine/sqlbench/internal/snapshot"
	"github.com/signalnine/sqlbench/internal/tools"
)

// solver answers every trial with the same write-query-then-finalize
// sequence, keyed off the transcript so concurrent trials can share it.
type solver struct {
	sql string
}

func (s *solver) Decide(ctx context.Context, transcript []agent.Message, defs []agent.ToolDefinition) (*agent.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, m := range transcript {
		if m.Role == agent.RoleAssistant {
			return agent.ScriptFinal("done").Decision, nil
		}
	}
	return agent.ScriptTool(tools.ToolWriteFile, map[string]any{
		"path":    "query.sql",
		"content": s.sql,
	}).Decision, nil
}

// TestEndToEnd drives the whole pipeline offline: seed a snapshot, load
// a YAML config, run trials through the pool, and render a report from
// the persisted records.
func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "telecom.db")
	if err := snapshot.SeedDemo(db); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}

	cfgPath := filepath.Join(dir, "sqlbench.yaml")
	cfgYAML := fmt.Sprintf(`trials: 2
tasks:
  - id: count-customers
    question: How many customers are there?
    snapshot: %s
    expected_sql: SELECT COUNT(*) FROM customers;
results:
  dir: %s
`, db, filepath.Join(dir, "results"))
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}

	records := runner.RunAll(context.Background(), &runner.RunOpts{
		Cfg:        cfg,
		RunDir:     runDir,
		Client:     &solver{sql: "SELECT COUNT(*) FROM customers;"},
		Pricing:    pricing.Default(),
		MaxWorkers: 2,
	})
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for _, rec := range records {
		if !rec.Pass {
			t.Errorf("trial %d failed: %s", rec.Trial, rec.Reason)
		}
	}

	var buf bytes.Buffer
	if err := report.Generate(runDir, "table", &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "count-customers") {
		t.Errorf("report missing task row:\n%s", out)
	}
	if !strings.Contains(out, "1.000") {
		t.Errorf("report missing perfect pass@k:\n%s", out)
	}
}
