package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/sqlbench/internal/snapshot"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <path>",
		Short: "Create the demo telecom database snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := snapshot.SeedDemo(args[0]); err != nil {
				return err
			}
			fmt.Printf("Seeded demo database at %s\n", args[0])
			return nil
		},
	}
}
