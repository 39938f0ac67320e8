package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/beepsoft/net.akehurst.language/driver"
	"github.com/beepsoft/net.akehurst.language/tester"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "test <rule set file path> <test file path>|<test directory path>",
		Short:   "Test a rule set",
		Example: `  agl test expr.json test`,
		Args:    cobra.ExactArgs(2),
		RunE:    runTest,
	}
	rootCmd.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	ruleSet, err := readRuleSet(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a rule set: %w", err)
	}
	p, err := driver.NewParser(ruleSet)
	if err != nil {
		return err
	}

	var cs []*tester.TestCaseWithMetadata
	{
		cs = tester.ListTestCases(args[1])
		errOccurred := false
		for _, c := range cs {
			if c.Error != nil {
				fmt.Fprintf(os.Stderr, "Failed to read a test case or a directory: %v\n%v\n", c.FilePath, c.Error)
				errOccurred = true
			}
		}
		if errOccurred {
			return errors.New("Cannot run test")
		}
	}

	t := &tester.Tester{
		Parser: p,
		Cases:  cs,
	}
	rs := t.Run(context.Background())
	testFailed := false
	for _, r := range rs {
		fmt.Fprintln(os.Stdout, r)
		if r.Error != nil {
			testFailed = true
		}
	}
	if testFailed {
		return errors.New("Test failed")
	}
	return nil
}
