package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/beepsoft/net.akehurst.language/driver"
	"github.com/beepsoft/net.akehurst.language/sppt"
	"github.com/spf13/cobra"
)

var parseFlags = struct {
	source      *string
	goal        *string
	onlyNonSkip *bool
	seasonLimit *int
	stats       *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse <rule set file path>",
		Short:   "Parse a text",
		Example: `  cat src | agl parse expr.json -g expr`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	parseFlags.goal = cmd.Flags().StringP("goal", "g", "", "tag of the goal rule (default the first rule declared by name)")
	parseFlags.onlyNonSkip = cmd.Flags().Bool("only-nonskip", false, "omit the nodes of skip rules from the printed tree")
	parseFlags.seasonLimit = cmd.Flags().Int("season-limit", 0, "interrupt the parse after this number of seasons (0 means no limit)")
	parseFlags.stats = cmd.Flags().Bool("stats", false, "print the number of seasons and the largest number of heads")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) (retErr error) {
	defer recoverPanic(&retErr)

	rs, err := readRuleSet(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a rule set: %w", err)
	}

	goal, err := goalTag(rs, *parseFlags.goal)
	if err != nil {
		return err
	}

	var src []byte
	{
		r := io.Reader(os.Stdin)
		if *parseFlags.source != "" {
			f, err := os.Open(*parseFlags.source)
			if err != nil {
				return fmt.Errorf("Cannot open the source file %s: %w", *parseFlags.source, err)
			}
			defer f.Close()
			r = f
		}
		src, err = io.ReadAll(r)
		if err != nil {
			return err
		}
	}

	var opts []driver.ParserOption
	if *parseFlags.seasonLimit > 0 {
		opts = append(opts, driver.SeasonLimit(*parseFlags.seasonLimit))
	}
	p, err := driver.NewParser(rs, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	tree, err := p.Parse(ctx, goal, string(src))
	if err != nil {
		var parseErr *driver.ParseFailedError
		if errors.As(err, &parseErr) {
			fmt.Fprintf(os.Stderr, "longest match:\n")
			sppt.PrintTree(os.Stderr, parseErr.LongestMatch, !*parseFlags.onlyNonSkip)
		}
		return err
	}

	sppt.PrintTree(os.Stdout, tree.Root, !*parseFlags.onlyNonSkip)
	if *parseFlags.stats {
		fmt.Fprintf(os.Stdout, "seasons: %v, max heads: %v, ambiguities: %v\n", tree.Seasons, tree.MaxNumHeads, sppt.CountAmbiguities(tree.Root))
	}
	return nil
}
