package tester

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beepsoft/net.akehurst.language/driver"
	"github.com/beepsoft/net.akehurst.language/grammar"
	tspec "github.com/beepsoft/net.akehurst.language/spec/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParser(t *testing.T) *driver.Parser {
	t.Helper()
	b := grammar.NewRuleSetBuilder("test")
	b.Concatenation("s", func(items *grammar.ItemsBuilder) {
		items.Ref("foo", "bar", "baz")
	})
	b.Choice("amb", grammar.ChoiceKindAmbiguous, func(alts *grammar.ChoiceBuilder) {
		alts.Ref("a1", "a2")
	})
	b.Concatenation("a1", func(items *grammar.ItemsBuilder) {
		items.Literal("x")
	})
	b.Concatenation("a2", func(items *grammar.ItemsBuilder) {
		items.Literal("x")
	})
	b.Literal("foo", "foo")
	b.Literal("bar", "bar")
	b.Literal("baz", "baz")
	b.SkipPattern("ws", "[\\u{0009}\\u{0020}]+")
	rs, err := b.Build()
	require.NoError(t, err)
	p, err := driver.NewParser(rs)
	require.NoError(t, err)
	return p
}

func TestTester_Run(t *testing.T) {
	tests := []struct {
		testSrc string
		error   bool
	}{
		{
			testSrc: `
Test
---
foo bar baz
---
s {
    foo : 'foo' ws : ' '
    bar : 'bar' ws : ' '
    baz : 'baz'
}
`,
		},
		{
			testSrc: `
Test
---
foo bar baz
---
s { foo : 'foo' bar : 'bar' baz : 'baz' }
`,
			error: true,
		},
		{
			testSrc: `
Test
---
foo bar baz
---
s { foo : 'foo' ws : ' ' bar : 'bar' ws : ' ' }
`,
			error: true,
		},
		{
			testSrc: `
Test
---
foo baz
---
s { foo : 'foo' ws : ' ' baz : 'baz' }
`,
			error: true,
		},
		{
			testSrc: `
Test
---
x
---
amb { a1 { 'x' } }
---
amb { a2 { 'x' } }
`,
		},
		{
			testSrc: `
Test
---
x
---
amb { a1 { 'x' } }
`,
			error: true,
		},
		{
			testSrc: `
Test
---
foo bar baz
---
s { foo : 'foo'
`,
			error: true,
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v", i), func(t *testing.T) {
			c, err := tspec.ParseTestCase(strings.NewReader(tt.testSrc))
			require.NoError(t, err)
			tester := &Tester{
				Parser: newParser(t),
				Cases: []*TestCaseWithMetadata{
					{
						TestCase: c,
					},
				},
			}
			rs := tester.Run(context.Background())
			require.Len(t, rs, 1)
			if tt.error {
				assert.Error(t, rs[0].Error, "this test must fail, but it passed")
				assert.True(t, strings.HasPrefix(rs[0].String(), "Failed"))
			} else {
				assert.NoError(t, rs[0].Error)
				assert.True(t, strings.HasPrefix(rs[0].String(), "Passed"))
			}
		})
	}
}

func TestListTestCases(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	write := func(name, src string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
	}
	write("a.txt", "a\n---\nfoo bar baz\n---\ns { foo : 'foo' ws : ' ' bar : 'bar' ws : ' ' baz : 'baz' }\n")
	write("sub/b.txt", "b\n---\nx\n")

	cs := ListTestCases(dir)
	require.Len(t, cs, 2)
	assert.NoError(t, cs[0].Error)
	assert.Equal(t, "a", cs[0].TestCase.Description)
	assert.Error(t, cs[1].Error)
	assert.Equal(t, filepath.Join(dir, "sub", "b.txt"), cs[1].FilePath)

	missing := ListTestCases(filepath.Join(dir, "missing"))
	require.Len(t, missing, 1)
	assert.Error(t, missing[0].Error)

	tester := &Tester{
		Parser: newParser(t),
		Cases:  cs[:1],
	}
	rs := tester.Run(context.Background())
	require.Len(t, rs, 1)
	assert.NoError(t, rs[0].Error)
}
