// Package runner orchestrates trials: it assembles the per-trial sandbox,
// wires the control loop to a decision client and scorer, and persists
// the outcome. Trials never share mutable state; each gets a private
// copy of its database snapshot.
package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/signalnine/sqlbench/internal/agent"
	"github.com/signalnine/sqlbench/internal/config"
	"github.com/signalnine/sqlbench/internal/executor"
	"github.com/signalnine/sqlbench/internal/pricing"
	"github.com/signalnine/sqlbench/internal/result"
	"github.com/signalnine/sqlbench/internal/scorer"
	"github.com/signalnine/sqlbench/internal/snapshot"
	"github.com/signalnine/sqlbench/internal/tools"
	"github.com/signalnine/sqlbench/internal/trace"
)

type TrialOpts struct {
	Cfg      *config.Config
	Task     *config.Task
	TrialNum int
	RunDir   string
	Client   agent.Client
	Pricing  *pricing.Table
	Exporter trace.Exporter      // optional OTLP export
	Runner   tools.CommandRunner // nil means host execution
}

// sqlValidator scores a final answer against the task's reference query
// on a fresh snapshot copy, so a destructive candidate from an earlier
// attempt can never poison validation.
type sqlValidator struct {
	referenceSQL string
	source       string
	scratchDir   string
}

func (v *sqlValidator) Validate(ctx context.Context, answer executor.Answer) scorer.Verdict {
	if v.referenceSQL == "" {
		// No reference query to check against: accept the answer as-is.
		return scorer.Verdict{Reward: 1.0, Pass: true, Reason: "unvalidated"}
	}
	return scorer.Evaluate(ctx, answer.Query, v.referenceSQL, v.source, v.scratchDir)
}

// RunTrial executes one task trial end to end and writes its record under
// the run directory. The returned record mirrors what was persisted.
func RunTrial(ctx context.Context, opts *TrialOpts) (*result.TrialRecord, error) {
	trialDir := result.TrialDir(opts.RunDir, opts.Task.ID, opts.TrialNum)
	if err := os.MkdirAll(trialDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating trial dir: %w", err)
	}

	// The sandbox lives inside the trial dir by default so it is archived
	// with the record; sandbox.root relocates it (e.g. onto a tmpfs).
	workDir := filepath.Join(trialDir, "workspace")
	if opts.Cfg.Sandbox.Root != "" {
		workDir = filepath.Join(opts.Cfg.Sandbox.Root, opts.Task.ID, fmt.Sprintf("trial-%d", opts.TrialNum))
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	dbPath, err := snapshot.Copy(opts.Task.Snapshot, workDir)
	if err != nil {
		return nil, fmt.Errorf("copying snapshot: %w", err)
	}

	schema := opts.Task.SchemaDesc
	if schema == "" {
		schema, err = snapshot.DescribeSchema(opts.Task.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("describing schema: %w", err)
		}
	}

	rec := trace.NewRecorder()
	if opts.Exporter != nil {
		rec.SetExporter(opts.Exporter)
	}

	validator := &sqlValidator{
		referenceSQL: opts.Task.ExpectedSQL,
		source:       opts.Task.Snapshot,
		scratchDir:   filepath.Join(trialDir, "scratch"),
	}

	trialCtx, cancel := context.WithTimeout(ctx, opts.Cfg.Agent.TrialTimeout)
	defer cancel()

	out := executor.Run(trialCtx, executor.Options{
		Client:       opts.Client,
		Dispatcher:   tools.NewDispatcher(workDir, opts.Cfg.Agent.ToolTimeout, opts.Runner),
		Validator:    validator,
		Recorder:     rec,
		Question:     opts.Task.Question,
		SystemPrompt: executor.SystemPrompt(filepath.Base(dbPath), schema),
		MaxRetries:   opts.Cfg.Agent.MaxRetries,
		StepLimit:    opts.Cfg.Agent.StepLimit,
	})

	record := &result.TrialRecord{
		Task:              opts.Task.ID,
		Model:             opts.Cfg.Decision.Model,
		Trial:             opts.TrialNum,
		State:             out.State.String(),
		TerminationReason: out.TerminationReason,
		Attempts:          out.Attempts,
		Steps:             out.Steps,
		DurationMS:        out.Duration.Milliseconds(),
		Reward:            out.Verdict.Reward,
		Pass:              out.Verdict.Pass,
		StructuralScore:   out.Verdict.Structural,
		Reason:            out.Verdict.Reason,
		Answer:            out.Answer.Content,
		Query:             out.Answer.Query,
		InputTokens:       out.Usage.InputTokens,
		OutputTokens:      out.Usage.OutputTokens,
		CostUSD:           opts.Pricing.Cost(opts.Cfg.Decision.Model, out.Usage.InputTokens, out.Usage.OutputTokens),
	}

	if err := result.WriteTrial(trialDir, record, out.Transcript, rec.Spans()); err != nil {
		return nil, fmt.Errorf("writing trial record: %w", err)
	}

	// Export on a fresh context: the trial context may already be done.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	rec.Flush(flushCtx)

	log.Printf("task %s trial %d: %s (%s) reward=%.2f attempts=%d steps=%d",
		opts.Task.ID, opts.TrialNum, record.State, record.TerminationReason,
		record.Reward, record.Attempts, record.Steps)
	return record, nil
}
