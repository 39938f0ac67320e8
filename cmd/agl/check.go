package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "check <rule set file path>",
		Short:   "Validate a rule set and print its rules",
		Example: `  agl check expr.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runCheck,
	}
	rootCmd.AddCommand(cmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	rs, err := readRuleSet(args[0])
	if err != nil {
		return err
	}
	rs.Write(os.Stdout)
	return nil
}
