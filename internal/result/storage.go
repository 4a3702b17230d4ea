// Package result persists trial outcomes as a browsable directory tree:
// results/runs/<timestamp>/trials/<task>/trial-N with a "latest" symlink
// at the top. Reports rebuild from these files, never from memory.
package result

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/signalnine/sqlbench/internal/agent"
	"github.com/signalnine/sqlbench/internal/trace"
)

// CreateRunDir makes a fresh timestamped run directory under baseDir and
// repoints the latest symlink at it.
func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

func TrialDir(runDir, task string, trial int) string {
	return filepath.Join(runDir, "trials", task, fmt.Sprintf("trial-%d", trial))
}

// WriteTrial persists one finished trial: meta.json for the summary,
// transcript.json for the full message history, spans.json for tracing.
func WriteTrial(trialDir string, rec *TrialRecord, transcript []agent.Message, spans []trace.Span) error {
	if err := os.MkdirAll(trialDir, 0o755); err != nil {
		return fmt.Errorf("creating trial dir: %w", err)
	}
	if err := writeJSON(filepath.Join(trialDir, "meta.json"), rec); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(trialDir, "transcript.json"), transcript); err != nil {
		return err
	}
	if len(spans) > 0 {
		if err := writeJSON(filepath.Join(trialDir, "spans.json"), spans); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteTrialRecord rewrites just the meta.json of an existing trial,
// leaving the transcript and spans untouched.
func WriteTrialRecord(path string, rec *TrialRecord) error {
	return writeJSON(path, rec)
}

func ReadTrialRecord(path string) (*TrialRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	var rec TrialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing meta: %w", err)
	}
	return &rec, nil
}

// ReadRun collects every trial record under runDir, sorted by task then
// trial number. Unreadable records are an error: a half-written run dir
// should not silently skew a report.
func ReadRun(runDir string) ([]*TrialRecord, error) {
	var records []*TrialRecord
	trialsDir := filepath.Join(runDir, "trials")
	err := filepath.WalkDir(trialsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "meta.json" {
			return nil
		}
		rec, err := ReadTrialRecord(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Task != records[j].Task {
			return records[i].Task < records[j].Task
		}
		return records[i].Trial < records[j].Trial
	})
	return records, nil
}
