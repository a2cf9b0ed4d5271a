package cmd

import (
	"fmt"
	"os"

	"github.com/qvet/qvet/cmd/check"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "qvet",
	Short: "Cross-database query validation for migrations",
	Long:  `qvet runs pairs of queries against a source and target database and compares the results, so migrated data can be vetted without trusting either engine's formatting.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(check.Command())
}
