package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	verr "github.com/beepsoft/net.akehurst.language/error"
	"github.com/beepsoft/net.akehurst.language/grammar"
	"github.com/beepsoft/net.akehurst.language/spec"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agl",
	Short: "Parse text with a scannerless GLR parser",
	Long: `agl reads rule sets declared in JSON files and provides the following features:
- Parses a text and prints the shared packed parse forest.
- Prints the automaton built for a goal rule.
- Runs test cases against a rule set.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}

// readRuleSet loads a declaration file and the files it embeds.
func readRuleSet(path string) (*grammar.RuleSet, error) {
	rs, err := spec.LoadFile(path)
	if err != nil {
		var specErrs verr.SpecErrors
		if errors.As(err, &specErrs) {
			for _, e := range specErrs {
				if e.FilePath != "" {
					e.SourceName = e.FilePath
				} else {
					e.SourceName = path
				}
			}
		}
		return nil, err
	}
	return rs, nil
}

// goalTag returns the tag given by the goal flag, or the default goal of the rule set.
func goalTag(rs *grammar.RuleSet, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	g := rs.DefaultGoal()
	if g == nil {
		return "", errors.New("the rule set declares no goal rule; specify one with --goal")
	}
	return g.Tag, nil
}

// recoverPanic turns a panic of a command into its error and prints the stack of the panic.
func recoverPanic(retErr *error) {
	v := recover()
	if v == nil {
		return
	}
	err, ok := v.(error)
	if !ok {
		err = fmt.Errorf("an unexpected error occurred: %v", v)
	}
	fmt.Fprintf(os.Stderr, "%v:\n%v", err, string(debug.Stack()))
	*retErr = err
}
