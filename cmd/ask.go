package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalnine/sqlbench/internal/config"
	"github.com/signalnine/sqlbench/internal/runner"
	"github.com/signalnine/sqlbench/internal/snapshot"
)

var (
	flagSnapshot string
	flagExpected string
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run a single question against a database snapshot",
		Long: `Runs one trial of a single natural-language question. Without
--snapshot a throwaway demo telecom database is seeded. Without
--expected-sql the answer is printed but not validated.

Exits 0 when the trial succeeds, 1 when it fails.`,
		Args: cobra.ExactArgs(1),
		RunE: runAsk,
	}
	cmd.Flags().StringVar(&flagSnapshot, "snapshot", "", "SQLite snapshot to query (default: seeded demo DB)")
	cmd.Flags().StringVar(&flagExpected, "expected-sql", "", "reference query to validate the answer against")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	// A config file is optional here: ask falls back to defaults so it
	// works out of the box with just an API key in the environment.
	var cfg *config.Config
	if _, statErr := os.Stat(cfgFile); statErr == nil {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = &config.Config{}
		cfg.Agent.MaxRetries = 3
		cfg.Agent.StepLimit = 40
		cfg.Agent.ToolTimeout = 30 * time.Second
		cfg.Agent.TrialTimeout = 10 * time.Minute
		cfg.Decision.Model = "gpt-4o"
		cfg.Decision.BaseURL = "https://api.openai.com/v1"
		cfg.Decision.APIKeyEnv = "OPENAI_API_KEY"
		cfg.Decision.MaxTokens = 4096
	}

	source := flagSnapshot
	schemaDesc := ""
	if source == "" {
		source = filepath.Join(os.TempDir(), fmt.Sprintf("sqlbench-demo-%d.db", os.Getpid()))
		defer os.Remove(source)
		if err := snapshot.SeedDemo(source); err != nil {
			return fmt.Errorf("seeding demo database: %w", err)
		}
		schemaDesc = snapshot.DemoSchemaDesc
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runDir, err := os.MkdirTemp("", "sqlbench-ask-")
	if err != nil {
		return err
	}

	task := config.Task{
		ID:          "ask",
		Question:    question,
		Snapshot:    source,
		ExpectedSQL: flagExpected,
		SchemaDesc:  schemaDesc,
	}

	rec, err := runner.RunTrial(ctx, &runner.TrialOpts{
		Cfg:      cfg,
		Task:     &task,
		TrialNum: 1,
		RunDir:   runDir,
		Client:   client,
		Pricing:  buildPricing(cfg),
		Runner:   buildRunner(cfg),
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nAnswer: %s\n", rec.Answer)
	if rec.Query != "" {
		fmt.Printf("Query:  %s\n", rec.Query)
	}
	fmt.Printf("Trial:  %s (%s), %d attempt(s), %d step(s), $%.4f\n",
		rec.State, rec.TerminationReason, rec.Attempts, rec.Steps, rec.CostUSD)
	fmt.Printf("Record: %s\n", filepath.Join(runDir, "trials", task.ID, "trial-1"))

	if !rec.Pass {
		return fmt.Errorf("trial failed (%s): %s", rec.TerminationReason, rec.Reason)
	}
	return nil
}
