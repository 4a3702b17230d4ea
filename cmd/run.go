package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signalnine/sqlbench/internal/config"
	"github.com/signalnine/sqlbench/internal/report"
	"github.com/signalnine/sqlbench/internal/result"
	"github.com/signalnine/sqlbench/internal/runner"
)

var (
	flagTask     string
	flagTrials   int
	flagParallel int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute an eval run across all configured tasks",
		RunE:  runEval,
	}
	cmd.Flags().StringVar(&flagTask, "task", "", "filter to a single task id")
	cmd.Flags().IntVar(&flagTrials, "trials", 0, "override trial count (k)")
	cmd.Flags().IntVar(&flagParallel, "parallel", 1, "max concurrent trials")
	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if flagTrials > 0 {
		cfg.Trials = flagTrials
	}
	if flagTask != "" {
		cfg.Tasks = filterTasks(cfg.Tasks, flagTask)
		if len(cfg.Tasks) == 0 {
			return fmt.Errorf("no task with id %q", flagTask)
		}
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter, err := buildExporter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("configuring tracing: %w", err)
	}
	if exporter != nil {
		defer exporter.Shutdown(context.Background())
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Run directory: %s\n", runDir)
	fmt.Printf("Running %d task(s) × %d trial(s)...\n", len(cfg.Tasks), cfg.Trials)

	records := runner.RunAll(ctx, &runner.RunOpts{
		Cfg:        cfg,
		RunDir:     runDir,
		Client:     client,
		Pricing:    buildPricing(cfg),
		Exporter:   exporter,
		Runner:     buildRunner(cfg),
		MaxWorkers: flagParallel,
	})
	if ctx.Err() != nil {
		fmt.Println("Run interrupted; reporting completed trials.")
	}
	if len(records) == 0 {
		return fmt.Errorf("no trials completed")
	}

	fmt.Println("\n--- Results ---")
	return report.Generate(runDir, "table", os.Stdout)
}

func filterTasks(tasks []config.Task, id string) []config.Task {
	var filtered []config.Task
	for _, t := range tasks {
		if t.ID == id {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
