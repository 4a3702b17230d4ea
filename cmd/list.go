package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/sqlbench/internal/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Tasks (trials=%d, model=%s):\n", cfg.Trials, cfg.Decision.Model)
			for _, t := range cfg.Tasks {
				fmt.Printf("  - %s: %s\n      snapshot: %s\n", t.ID, t.Question, t.Snapshot)
			}
			return nil
		},
	}
}
