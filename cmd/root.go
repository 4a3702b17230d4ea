package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sqlbench",
		Short: "Eval harness for natural-language-to-SQL agents",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "sqlbench.yaml", "config file path")
	root.AddCommand(newRunCmd())
	root.AddCommand(newAskCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newRescoreCmd())
	root.AddCommand(newSeedCmd())
	return root
}
