package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/beepsoft/net.akehurst.language/automaton"
	"github.com/beepsoft/net.akehurst.language/driver"
	"github.com/spf13/cobra"
)

var showFlags = struct {
	goal *string
	skip *bool
	json *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "show <rule set file path>",
		Short:   "Print the automaton of a goal rule in a readable format",
		Example: `  agl show expr.json -g expr`,
		Args:    cobra.ExactArgs(1),
		RunE:    runShow,
	}
	showFlags.goal = cmd.Flags().StringP("goal", "g", "", "tag of the goal rule (default the first rule declared by name)")
	showFlags.skip = cmd.Flags().Bool("skip", false, "print the automaton of the skip rules instead")
	showFlags.json = cmd.Flags().Bool("json", false, "print the report as JSON")
	rootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) (retErr error) {
	defer recoverPanic(&retErr)

	rs, err := readRuleSet(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a rule set: %w", err)
	}
	p, err := driver.NewParser(rs)
	if err != nil {
		return err
	}

	var ss *automaton.StateSet
	if *showFlags.skip {
		ss = p.Context().SkipStateSet()
		if ss == nil {
			return errors.New("the rule set has no skip rules")
		}
	} else {
		goal, err := goalTag(rs, *showFlags.goal)
		if err != nil {
			return err
		}
		ss, err = p.StateSet(goal)
		if err != nil {
			return err
		}
	}

	report := ss.Report()
	if *showFlags.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return writeReport(os.Stdout, report)
}

const reportTemplate = `# Automaton of {{ .Goal }} in {{ .RuleSet }}{{ if .IsSkip }} (skip){{ end }}
{{ range .States }}
## State {{ .Number }}

{{ .RulePosition }}
{{ if .Closure }}
{{ range .Closure -}}
    {{ . }}
{{ end -}}
{{ end -}}
{{ if .Transitions }}
{{ range .Transitions -}}
{{ printTransition . }}
{{ end -}}
{{ end -}}
{{ end }}`

func writeReport(w io.Writer, report *automaton.Report) error {
	fns := template.FuncMap{
		"printTransition": func(t *automaton.TransitionReport) string {
			prev := "any"
			if t.Previous >= 0 {
				prev = fmt.Sprintf("%v", t.Previous)
			}
			return fmt.Sprintf("%-6v %4v (%v) from %v on %v up %v", t.Action, t.To, t.Target, prev, t.Lookahead, t.UpLookahead)
		},
	}

	tmpl, err := template.New("").Funcs(fns).Parse(reportTemplate)
	if err != nil {
		return err
	}

	err = tmpl.Execute(w, report)
	if err != nil {
		return err
	}

	return nil
}
