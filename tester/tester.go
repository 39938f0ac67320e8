package tester

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beepsoft/net.akehurst.language/driver"
	"github.com/beepsoft/net.akehurst.language/sppt"
	tspec "github.com/beepsoft/net.akehurst.language/spec/test"
)

type TestResult struct {
	TestCasePath string
	Error        error
	Diffs        []*sppt.TreeDiff
}

func (r *TestResult) String() string {
	if r.Error != nil {
		const indent1 = "    "
		const indent2 = indent1 + indent1

		msgLines := strings.Split(r.Error.Error(), "\n")
		msg := fmt.Sprintf("Failed %v:\n%v%v", r.TestCasePath, indent1, strings.Join(msgLines, "\n"+indent1))
		if len(r.Diffs) == 0 {
			return msg
		}
		var diffLines []string
		for _, diff := range r.Diffs {
			diffLines = append(diffLines, diff.Message)
			diffLines = append(diffLines, fmt.Sprintf("%vexpected path: %v", indent1, diff.ExpectedPath))
			diffLines = append(diffLines, fmt.Sprintf("%vactual path:   %v", indent1, diff.ActualPath))
		}
		return fmt.Sprintf("%v\n%v%v", msg, indent2, strings.Join(diffLines, "\n"+indent2))
	}
	return fmt.Sprintf("Passed %v", r.TestCasePath)
}

type TestCaseWithMetadata struct {
	TestCase *tspec.TestCase
	FilePath string
	Error    error
}

// ListTestCases reads the test case at testPath, or every test case under it when it is a directory.
func ListTestCases(testPath string) []*TestCaseWithMetadata {
	fi, err := os.Stat(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	if !fi.IsDir() {
		c, err := parseTestCase(testPath)
		return []*TestCaseWithMetadata{
			{
				TestCase: c,
				FilePath: testPath,
				Error:    err,
			},
		}
	}

	es, err := os.ReadDir(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	var cases []*TestCaseWithMetadata
	for _, e := range es {
		cs := ListTestCases(filepath.Join(testPath, e.Name()))
		cases = append(cases, cs...)
	}
	return cases
}

func parseTestCase(testCasePath string) (*tspec.TestCase, error) {
	f, err := os.Open(testCasePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tspec.ParseTestCase(f)
}

// Tester parses the source of every case with the rule named by the root of its expected trees.
type Tester struct {
	Parser *driver.Parser
	Cases  []*TestCaseWithMetadata
}

func (t *Tester) Run(ctx context.Context) []*TestResult {
	var rs []*TestResult
	for _, c := range t.Cases {
		rs = append(rs, runTest(ctx, t.Parser, c))
	}
	return rs
}

func runTest(ctx context.Context, p *driver.Parser, c *TestCaseWithMetadata) *TestResult {
	expected, err := readExpectedTree(p, c.TestCase)
	if err != nil {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        err,
		}
	}

	actual, err := p.Parse(ctx, expected.Root.Name(), c.TestCase.Source)
	if err != nil {
		var parseErr *driver.ParseFailedError
		if errors.As(err, &parseErr) {
			err = fmt.Errorf("%w\nlongest match: %v", err, sppt.Format(parseErr.LongestMatch, true))
		}
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        err,
		}
	}

	diffs := sppt.DiffTree(expected.Root, actual.Root, true)
	if len(diffs) > 0 {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        fmt.Errorf("output mismatch"),
			Diffs:        diffs,
		}
	}
	if !actual.Contains(expected) || !expected.Contains(actual) {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        fmt.Errorf("the alternatives differ; actual tree:\n%v", sppt.Format(actual.Root, true)),
		}
	}
	return &TestResult{
		TestCasePath: c.FilePath,
	}
}

// readExpectedTree reads every tree of a test case into one tree. Trees sharing a node add their
// children to it as an alternative.
func readExpectedTree(p *driver.Parser, c *tspec.TestCase) (*sppt.Tree, error) {
	tp := sppt.NewTreeParser(p.RuleSet())
	var tree *sppt.Tree
	for _, text := range c.Trees {
		t, err := tp.Parse(text.Text)
		if err != nil {
			var synErr *sppt.TreeSyntaxError
			if errors.As(err, &synErr) {
				return nil, fmt.Errorf("%v:%v: invalid tree: %v", text.Line+synErr.Pos.Row-1, synErr.Pos.Col, synErr.Message)
			}
			return nil, fmt.Errorf("%v: invalid tree: %w", text.Line, err)
		}
		if tree != nil && t.Root != tree.Root {
			return nil, fmt.Errorf("%v: every tree of a test case must have the same root", text.Line)
		}
		tree = t
	}
	return tree, nil
}
