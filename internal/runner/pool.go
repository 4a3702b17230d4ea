package runner

import (
	"context"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/signalnine/sqlbench/internal/agent"
	"github.com/signalnine/sqlbench/internal/config"
	"github.com/signalnine/sqlbench/internal/pricing"
	"github.com/signalnine/sqlbench/internal/result"
	"github.com/signalnine/sqlbench/internal/tools"
	"github.com/signalnine/sqlbench/internal/trace"
)

type RunOpts struct {
	Cfg        *config.Config
	RunDir     string
	Client     agent.Client
	Pricing    *pricing.Table
	Exporter   trace.Exporter
	Runner     tools.CommandRunner
	MaxWorkers int
}

// RunAll executes Trials trials of every configured task, at most
// MaxWorkers at a time. A failed trial is logged and skipped; it never
// cancels its siblings. Records come back sorted by task then trial.
func RunAll(ctx context.Context, opts *RunOpts) []*result.TrialRecord {
	workers := opts.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		records []*result.TrialRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range opts.Cfg.Tasks {
		task := &opts.Cfg.Tasks[i]
		for trial := 1; trial <= opts.Cfg.Trials; trial++ {
			trial := trial
			g.Go(func() error {
				rec, err := RunTrial(gctx, &TrialOpts{
					Cfg:      opts.Cfg,
					Task:     task,
					TrialNum: trial,
					RunDir:   opts.RunDir,
					Client:   opts.Client,
					Pricing:  opts.Pricing,
					Exporter: opts.Exporter,
					Runner:   opts.Runner,
				})
				if err != nil {
					log.Printf("warning: task %s trial %d: %v", task.ID, trial, err)
					return nil
				}
				mu.Lock()
				records = append(records, rec)
				mu.Unlock()
				return nil
			})
		}
	}
	g.Wait()

	sort.Slice(records, func(i, j int) bool {
		if records[i].Task != records[j].Task {
			return records[i].Task < records[j].Task
		}
		return records[i].Trial < records[j].Trial
	})
	return records
}
