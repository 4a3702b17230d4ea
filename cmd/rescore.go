package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/sqlbench/internal/config"
	"github.com/signalnine/sqlbench/internal/result"
	"github.com/signalnine/sqlbench/internal/scorer"
)

func newRescoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rescore <run-dir>",
		Short: "Re-validate a run's stored queries into a new run directory",
		Long: `Walk a run directory and re-run validation on each trial's recorded
candidate query against the current reference SQL. Useful after fixing a
task's expected_sql. Finalized records are never revised in place: the
re-scored records land in a fresh run directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcDir := args[0]
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			taskByID := make(map[string]*config.Task)
			for i := range cfg.Tasks {
				taskByID[cfg.Tasks[i].ID] = &cfg.Tasks[i]
			}

			records, err := result.ReadRun(srcDir)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no trial records under %s", srcDir)
			}

			destDir, err := result.CreateRunDir(cfg.Results.Dir)
			if err != nil {
				return err
			}
			fmt.Printf("Re-scored run directory: %s\n", destDir)

			ctx := context.Background()
			scratch, err := os.MkdirTemp("", "sqlbench-rescore-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(scratch)

			for _, rec := range records {
				task, ok := taskByID[rec.Task]
				if !ok {
					log.Printf("skipping %s/trial-%d: task not in config", rec.Task, rec.Trial)
					continue
				}

				if rec.Query != "" {
					verdict := scorer.Evaluate(ctx, rec.Query, task.ExpectedSQL, task.Snapshot, scratch)
					fmt.Printf("%s trial %d: reward %.2f → %.2f\n",
						rec.Task, rec.Trial, rec.Reward, verdict.Reward)
					rec.Reward = verdict.Reward
					rec.Pass = verdict.Pass
					rec.Reason = verdict.Reason
					rec.StructuralScore = verdict.Structural
				}

				srcTrial := result.TrialDir(srcDir, rec.Task, rec.Trial)
				destTrial := result.TrialDir(destDir, rec.Task, rec.Trial)
				if err := copyTrialFiles(srcTrial, destTrial); err != nil {
					return fmt.Errorf("copying trial files: %w", err)
				}
				if err := result.WriteTrialRecord(filepath.Join(destTrial, "meta.json"), rec); err != nil {
					return fmt.Errorf("writing re-scored record: %w", err)
				}
			}
			return nil
		},
	}
}

// copyTrialFiles duplicates the transcript and span files so the new run
// is self-contained; meta.json is overwritten afterwards.
func copyTrialFiles(src, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		in, err := os.Open(filepath.Join(src, e.Name()))
		if err != nil {
			return err
		}
		out, err := os.Create(filepath.Join(dest, e.Name()))
		if err != nil {
			in.Close()
			return err
		}
		_, err = io.Copy(out, in)
		in.Close()
		out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
