package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/signalnine/sqlbench/internal/report"
	"github.com/signalnine/sqlbench/internal/result"
)

func writeRun(t *testing.T) string {
	t.Helper()
	runDir := t.TempDir()
	records := []*result.TrialRecord{
		{Task: "task-a", Trial: 1, Reward: 1.0, Pass: true, StructuralScore: 1.0, DurationMS: 2000, InputTokens: 100, OutputTokens: 50, CostUSD: 0.01},
		{Task: "task-a", Trial: 2, Reward: 0.0, StructuralScore: 0.5, DurationMS: 4000, InputTokens: 200, OutputTokens: 80, CostUSD: 0.02},
		{Task: "task-a", Trial: 3, Reward: 1.0, Pass: true, StructuralScore: 1.0, DurationMS: 3000, InputTokens: 120, OutputTokens: 60, CostUSD: 0.01},
		{Task: "task-b", Trial: 1, Reward: 1.0, Pass: true, StructuralScore: 1.0, DurationMS: 1000, InputTokens: 90, OutputTokens: 40, CostUSD: 0.005},
	}
	for _, rec := range records {
		dir := result.TrialDir(runDir, rec.Task, rec.Trial)
		if err := result.WriteTrial(dir, rec, nil, nil); err != nil {
			t.Fatalf("WriteTrial: %v", err)
		}
	}
	return runDir
}

func TestAggregate(t *testing.T) {
	records := []*result.TrialRecord{
		{Task: "t", Trial: 1, Reward: 1.0},
		{Task: "t", Trial: 2, Reward: 0.0},
		{Task: "t", Trial: 3, Reward: 1.0},
	}
	summaries := report.Aggregate(records)
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	s := summaries[0]
	if want := 2.0 / 3.0; s.PassAtK < want-1e-9 || s.PassAtK > want+1e-9 {
		t.Errorf("pass@k = %v, want %v", s.PassAtK, want)
	}
	if s.PassExpK != 0.0 {
		t.Errorf("pass^k = %v, want 0 with a failing trial", s.PassExpK)
	}
}

func TestGenerateTable(t *testing.T) {
	runDir := writeRun(t)
	var buf bytes.Buffer
	if err := report.Generate(runDir, "table", &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"TASK", "task-a", "task-b", "PASS@K"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateMarkdown(t *testing.T) {
	runDir := writeRun(t)
	var buf bytes.Buffer
	if err := report.Generate(runDir, "markdown", &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "| Task |") {
		t.Errorf("markdown output malformed:\n%s", buf.String())
	}
}

func TestGenerateJSON(t *testing.T) {
	runDir := writeRun(t)
	var buf bytes.Buffer
	if err := report.Generate(runDir, "json", &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var summaries []report.TaskSummary
	if err := json.Unmarshal(buf.Bytes(), &summaries); err != nil {
		t.Fatalf("unmarshaling report: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	if summaries[0].Task != "task-a" || summaries[1].Task != "task-b" {
		t.Errorf("summaries not sorted by task: %v, %v", summaries[0].Task, summaries[1].Task)
	}
	a := summaries[0]
	if a.Trials != 3 {
		t.Errorf("task-a trials = %d, want 3", a.Trials)
	}
	if want := 2.0 / 3.0; a.PassAtK < want-1e-9 || a.PassAtK > want+1e-9 {
		t.Errorf("task-a pass@k = %v, want %v", a.PassAtK, want)
	}
	if summaries[1].PassExpK != 1.0 {
		t.Errorf("task-b pass^k = %v, want 1.0", summaries[1].PassExpK)
	}
}

func TestGenerateEmptyRun(t *testing.T) {
	runDir := t.TempDir()
	if err := report.Generate(runDir, "table", &bytes.Buffer{}); err == nil {
		t.Error("expected error for empty run dir")
	}
}
