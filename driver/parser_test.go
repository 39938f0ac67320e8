package driver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/beepsoft/net.akehurst.language/grammar"
	"github.com/beepsoft/net.akehurst.language/sppt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRuleSet(t *testing.T, name string, init func(b *grammar.RuleSetBuilder)) *grammar.RuleSet {
	t.Helper()
	b := grammar.NewRuleSetBuilder(name)
	init(b)
	rs, err := b.Build()
	require.NoError(t, err)
	return rs
}

func buildParser(t *testing.T, init func(b *grammar.RuleSetBuilder), opts ...ParserOption) *Parser {
	t.Helper()
	p, err := NewParser(buildRuleSet(t, "test", init), opts...)
	require.NoError(t, err)
	return p
}

// expectedTree reads tree literals into one tree; several literals describe the derivations of
// an ambiguous tree.
func expectedTree(t *testing.T, rs *grammar.RuleSet, literals ...string) *sppt.Tree {
	t.Helper()
	tp := sppt.NewTreeParser(rs)
	var tree *sppt.Tree
	for _, lit := range literals {
		var err error
		tree, err = tp.Parse(lit)
		require.NoError(t, err)
	}
	return tree
}

func assertTree(t *testing.T, expected, actual *sppt.Tree) {
	t.Helper()
	if !actual.Contains(expected) || !expected.Contains(actual) {
		t.Fatalf("unexpected tree:\nexpected: %v\nactual:   %v", expected, actual)
	}
}

func abcGrammar(b *grammar.RuleSetBuilder) {
	b.Concatenation("S", func(items *grammar.ItemsBuilder) {
		items.Literal("a")
		items.Literal("b")
		items.Literal("c")
	})
}

func operatorGrammar(b *grammar.RuleSetBuilder) {
	b.Choice("expr", grammar.ChoiceKindPriorityLongest, func(alts *grammar.ChoiceBuilder) {
		alts.Ref("var", "bool", "group", "div", "mul", "add", "sub")
	})
	b.Pattern("var", "[a-z]+")
	b.Literal("bool", "true")
	b.Concatenation("group", func(items *grammar.ItemsBuilder) {
		items.Literal("(")
		items.Ref("expr")
		items.Literal(")")
	})
	for tag, op := range map[string]string{"div": "/", "mul": "*", "add": "+", "sub": "-"} {
		op := op
		b.Concatenation(tag, func(items *grammar.ItemsBuilder) {
			items.Ref("expr")
			items.Literal(op)
			items.Ref("expr")
		})
	}
}

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		caption  string
		grammar  func(b *grammar.RuleSetBuilder)
		goal     string
		src      string
		expected []string
	}{
		{
			caption:  "a concatenation",
			grammar:  abcGrammar,
			goal:     "S",
			src:      "abc",
			expected: []string{`S { 'a' 'b' 'c' }`},
		},
		{
			caption: "a left recursive rule",
			grammar: func(b *grammar.RuleSetBuilder) {
				b.Choice("S", grammar.ChoiceKindLongestPriority, func(alts *grammar.ChoiceBuilder) {
					alts.Literal("a")
					alts.Ref("S1")
				})
				b.Concatenation("S1", func(items *grammar.ItemsBuilder) {
					items.Ref("S")
					items.Literal("a")
				})
			},
			goal:     "S",
			src:      "aaa",
			expected: []string{`S { S1 { S { S1 { S { 'a' } 'a' } } 'a' } }`},
		},
		{
			caption: "a right recursive rule",
			grammar: func(b *grammar.RuleSetBuilder) {
				b.Choice("S", grammar.ChoiceKindLongestPriority, func(alts *grammar.ChoiceBuilder) {
					alts.Literal("a")
					alts.Ref("S1")
				})
				b.Concatenation("S1", func(items *grammar.ItemsBuilder) {
					items.Literal("a")
					items.Ref("S")
				})
			},
			goal:     "S",
			src:      "aaa",
			expected: []string{`S { S1 { 'a' S { S1 { 'a' S { 'a' } } } } }`},
		},
		{
			caption: "a separated list with an optional separator",
			grammar: func(b *grammar.RuleSetBuilder) {
				b.SeparatedList("S", 0, grammar.MultiMax, "a", "sep")
				b.Multi("sep", 0, 1, "comma")
				b.Literal("a", "a")
				b.Literal("comma", ",")
			},
			goal:     "S",
			src:      "a,aa",
			expected: []string{`S { 'a' sep { ',' } 'a' sep { §empty } 'a' }`},
		},
		{
			caption: "an empty separated list",
			grammar: func(b *grammar.RuleSetBuilder) {
				b.SeparatedList("S", 0, grammar.MultiMax, "a", "comma")
				b.Literal("a", "a")
				b.Literal("comma", ",")
			},
			goal:     "S",
			src:      "",
			expected: []string{`S { §empty }`},
		},
		{
			caption:  "operator precedence",
			grammar:  operatorGrammar,
			goal:     "expr",
			src:      "a+b*c",
			expected: []string{`expr { add { expr { var : 'a' } '+' expr { mul { expr { var : 'b' } '*' expr { var : 'c' } } } } }`},
		},
		{
			caption:  "operator precedence with the tighter operator first",
			grammar:  operatorGrammar,
			goal:     "expr",
			src:      "a*b+c",
			expected: []string{`expr { add { expr { mul { expr { var : 'a' } '*' expr { var : 'b' } } } '+' expr { var : 'c' } } }`},
		},
		{
			caption:  "a group",
			grammar:  operatorGrammar,
			goal:     "expr",
			src:      "(a+b)*c",
			expected: []string{`expr { mul { expr { group { '(' expr { add { expr { var : 'a' } '+' expr { var : 'b' } } } ')' } } '*' expr { var : 'c' } } }`},
		},
		{
			caption: "a list of nullable items",
			grammar: func(b *grammar.RuleSetBuilder) {
				b.Multi("S", 0, grammar.MultiMax, "X")
				b.Multi("X", 0, 1, "a")
				b.Literal("a", "a")
			},
			goal:     "S",
			src:      "aa",
			expected: []string{`S { X { 'a' } X { 'a' } }`},
		},
		{
			caption: "an empty list of nullable items",
			grammar: func(b *grammar.RuleSetBuilder) {
				b.Multi("S", 0, grammar.MultiMax, "X")
				b.Multi("X", 0, 1, "a")
				b.Literal("a", "a")
			},
			goal:     "S",
			src:      "",
			expected: []string{`S { §empty }`},
		},
		{
			caption: "an empty rule",
			grammar: func(b *grammar.RuleSetBuilder) {
				b.Concatenation("S", func(items *grammar.ItemsBuilder) {
					items.Literal("a")
					items.Ref("E")
					items.Literal("b")
				})
				b.Empty("E")
			},
			goal:     "S",
			src:      "ab",
			expected: []string{`S { 'a' E { §empty } 'b' }`},
		},
		{
			caption: "a terminal goal",
			grammar: func(b *grammar.RuleSetBuilder) {
				b.Pattern("id", "[a-z]+")
			},
			goal:     "id",
			src:      "abc",
			expected: []string{`id : 'abc'`},
		},
		{
			caption: "an ambiguous choice",
			grammar: func(b *grammar.RuleSetBuilder) {
				b.Choice("S", grammar.ChoiceKindAmbiguous, func(alts *grammar.ChoiceBuilder) {
					alts.Ref("A", "B")
				})
				b.Concatenation("A", func(items *grammar.ItemsBuilder) {
					items.Ref("x")
				})
				b.Concatenation("B", func(items *grammar.ItemsBuilder) {
					items.Ref("x")
				})
				b.Literal("x", "x")
			},
			goal: "S",
			src:  "x",
			expected: []string{
				`S { A { 'x' } }`,
				`S { B { 'x' } }`,
			},
		},
		{
			caption: "the higher priority wins between derivations of equal length",
			grammar: func(b *grammar.RuleSetBuilder) {
				b.Choice("S", grammar.ChoiceKindLongestPriority, func(alts *grammar.ChoiceBuilder) {
					alts.Ref("A", "B")
				})
				b.Concatenation("A", func(items *grammar.ItemsBuilder) {
					items.Ref("x")
				})
				b.Concatenation("B", func(items *grammar.ItemsBuilder) {
					items.Ref("x")
				})
				b.Literal("x", "x")
			},
			goal:     "S",
			src:      "x",
			expected: []string{`S { B { 'x' } }`},
		},
		{
			caption: "the longer first child wins",
			grammar: func(b *grammar.RuleSetBuilder) {
				b.Concatenation("S", func(items *grammar.ItemsBuilder) {
					items.Ref("X", "X")
				})
				b.Multi("X", 1, grammar.MultiMax, "a")
				b.Literal("a", "a")
			},
			goal:     "S",
			src:      "aaa",
			expected: []string{`S { X { 'a' 'a' } X { 'a' } }`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			p := buildParser(t, tt.grammar)
			tree, err := p.Parse(context.Background(), tt.goal, tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.src, tree.Root.MatchedText())
			assert.Greater(t, tree.Seasons, 0)
			assert.Greater(t, tree.MaxNumHeads, 0)
			assertTree(t, expectedTree(t, p.RuleSet(), tt.expected...), tree)
		})
	}
}

func TestParser_Ambiguity(t *testing.T) {
	tests := []struct {
		caption string
		kind    grammar.ChoiceKind
		alts    int
	}{
		{
			caption: "an ambiguous choice keeps the cycle",
			kind:    grammar.ChoiceKindAmbiguous,
			alts:    2,
		},
		{
			caption: "a priority choice drops the cycle",
			kind:    grammar.ChoiceKindLongestPriority,
			alts:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			p := buildParser(t, func(b *grammar.RuleSetBuilder) {
				b.Choice("S", tt.kind, func(alts *grammar.ChoiceBuilder) {
					alts.Literal("a")
					alts.Ref("S")
				})
			})
			tree, err := p.Parse(context.Background(), "S", "a")
			require.NoError(t, err)
			root, ok := tree.Root.AsBranch()
			require.True(t, ok)
			assert.Len(t, root.ChildrenAlternatives(), tt.alts)
			leaf, ok := root.Children()[0].AsLeaf()
			require.True(t, ok)
			assert.Equal(t, "a", leaf.MatchedText())
		})
	}
}

func TestParser_AmbiguousSplit(t *testing.T) {
	p := buildParser(t, func(b *grammar.RuleSetBuilder) {
		b.Choice("E", grammar.ChoiceKindAmbiguous, func(alts *grammar.ChoiceBuilder) {
			alts.Alt(func(items *grammar.ItemsBuilder) {
				items.Ref("E")
				items.Literal("+")
				items.Ref("E")
			})
			alts.Literal("a")
		})
	})

	tree, err := p.Parse(context.Background(), "E", "a+a+a")
	require.NoError(t, err)
	root, ok := tree.Root.AsBranch()
	require.True(t, ok)
	require.Len(t, root.ChildrenAlternatives(), 2)
	var firstEnds []int
	for _, alt := range root.ChildrenAlternatives() {
		require.Len(t, alt, 3)
		firstEnds = append(firstEnds, alt[0].End())
	}
	assert.ElementsMatch(t, []int{1, 3}, firstEnds)

	assertTree(t, expectedTree(t, p.RuleSet(),
		`E { E { E { 'a' } '+' E { 'a' } } '+' E { 'a' } }`,
		`E { E { 'a' } '+' E { E { 'a' } '+' E { 'a' } } }`,
	), tree)
}

func TestParser_SharesNodes(t *testing.T) {
	p := buildParser(t, func(b *grammar.RuleSetBuilder) {
		b.Choice("S", grammar.ChoiceKindAmbiguous, func(alts *grammar.ChoiceBuilder) {
			alts.Ref("P1", "P2")
		})
		b.Concatenation("P1", func(items *grammar.ItemsBuilder) {
			items.Ref("A")
			items.Literal("b")
		})
		b.Concatenation("P2", func(items *grammar.ItemsBuilder) {
			items.Ref("A")
			items.Literal("b")
		})
		b.Concatenation("A", func(items *grammar.ItemsBuilder) {
			items.Literal("a")
		})
	})

	tree, err := p.Parse(context.Background(), "S", "ab")
	require.NoError(t, err)
	root, _ := tree.Root.AsBranch()
	alts := root.ChildrenAlternatives()
	require.Len(t, alts, 2)
	p1, _ := alts[0][0].AsBranch()
	p2, _ := alts[1][0].AsBranch()
	assert.Equal(t, "P1", p1.Name())
	assert.Equal(t, "P2", p2.Name())
	assert.Same(t, p1.Children()[0], p2.Children()[0])
	assert.Same(t, p1.Children()[1], p2.Children()[1])
}

func TestParser_Skip(t *testing.T) {
	p := buildParser(t, func(b *grammar.RuleSetBuilder) {
		abcGrammar(b)
		b.SkipPattern("WS", `[\u{0009}\u{000A}\u{0020}]+`)
		b.Skip("comment", func(items *grammar.ItemsBuilder) {
			items.Literal("/*")
			items.Pattern(`[a-z]*`)
			items.Literal("*/")
		})
	})

	plain, err := p.Parse(context.Background(), "S", "abc")
	require.NoError(t, err)
	for _, src := range []string{" a b  c ", "a\n\tb c", "a/*x*/b /*y*/ c", "  abc"} {
		t.Run(src, func(t *testing.T) {
			tree, err := p.Parse(context.Background(), "S", src)
			require.NoError(t, err)
			assert.Equal(t, src, tree.Root.MatchedText())
			assert.Equal(t, sppt.Format(plain.Root, false), sppt.Format(tree.Root, false))

			root, _ := tree.Root.AsBranch()
			var nonSkip []string
			for _, c := range root.NonSkipChildren() {
				nonSkip = append(nonSkip, c.MatchedText())
			}
			assert.Equal(t, []string{"a", "b", "c"}, nonSkip)
		})
	}

	tree, err := p.Parse(context.Background(), "S", " a/*x*/bc")
	require.NoError(t, err)
	assertTree(t, expectedTree(t, p.RuleSet(), `S { WS : ' ' 'a' comment { '/*' '[a-z]*' : 'x' '*/' } 'b' 'c' }`), tree)
}

func TestParser_Embedded(t *testing.T) {
	inner := buildRuleSet(t, "inner", func(b *grammar.RuleSetBuilder) {
		b.Concatenation("Inner", func(items *grammar.ItemsBuilder) {
			items.Literal("x")
			items.Literal("y")
		})
	})
	p := buildParser(t, func(b *grammar.RuleSetBuilder) {
		b.Concatenation("S", func(items *grammar.ItemsBuilder) {
			items.Literal("a")
			items.Ref("E")
			items.Literal("b")
		})
		b.Embedded("E", inner, "Inner")
	})

	tree, err := p.Parse(context.Background(), "S", "axyb")
	require.NoError(t, err)
	assertTree(t, expectedTree(t, p.RuleSet(), `S { 'a' E { Inner { 'x' 'y' } } 'b' }`), tree)

	_, err = p.Parse(context.Background(), "S", "axb")
	assert.Error(t, err)
}

func TestParser_Cardinality(t *testing.T) {
	p := buildParser(t, func(b *grammar.RuleSetBuilder) {
		b.Multi("S", 2, 3, "a")
		b.SeparatedList("L", 2, 2, "a", "comma")
		b.Literal("a", "a")
		b.Literal("comma", ",")
	})

	tests := []struct {
		goal string
		src  string
		ok   bool
	}{
		{goal: "S", src: "a"},
		{goal: "S", src: "aa", ok: true},
		{goal: "S", src: "aaa", ok: true},
		{goal: "S", src: "aaaa"},
		{goal: "L", src: "a"},
		{goal: "L", src: "a,a", ok: true},
		{goal: "L", src: "a,a,a"},
	}
	for _, tt := range tests {
		t.Run(tt.goal+" "+tt.src, func(t *testing.T) {
			_, err := p.Parse(context.Background(), tt.goal, tt.src)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				var perr *ParseFailedError
				assert.True(t, errors.As(err, &perr))
			}
		})
	}
}

func TestParser_Failure(t *testing.T) {
	p := buildParser(t, abcGrammar)

	tests := []struct {
		caption  string
		src      string
		line     int
		column   int
		expected []string
		longest  string
	}{
		{
			caption:  "an empty input",
			src:      "",
			line:     1,
			column:   1,
			expected: []string{"'a'"},
			longest:  "",
		},
		{
			caption:  "an unexpected character after the first terminal",
			src:      "ax",
			line:     1,
			column:   2,
			expected: []string{"'b'"},
			longest:  "a",
		},
		{
			caption:  "an unexpected character",
			src:      "abx",
			line:     1,
			column:   3,
			expected: []string{"'c'"},
			longest:  "ab",
		},
		{
			caption:  "a goal followed by more text",
			src:      "abcd",
			line:     1,
			column:   4,
			expected: []string{"<EOT>"},
			longest:  "abc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := p.Parse(context.Background(), "S", tt.src)
			var perr *ParseFailedError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.line, perr.Location.Line)
			assert.Equal(t, tt.column, perr.Location.Column)
			assert.Equal(t, tt.expected, perr.ExpectedTerminals)
			require.NotNil(t, perr.LongestMatch)
			assert.Equal(t, tt.longest, perr.LongestMatch.MatchedText())
			assert.NotEmpty(t, perr.Error())
		})
	}
}

func TestParser_FailureLocation(t *testing.T) {
	p := buildParser(t, func(b *grammar.RuleSetBuilder) {
		abcGrammar(b)
		b.SkipPattern("WS", `[\u{000A}\u{0020}]+`)
	})

	_, err := p.Parse(context.Background(), "S", "a\n  b\n x")
	var perr *ParseFailedError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Location.Line)
	assert.Equal(t, 2, perr.Location.Column)
	assert.Equal(t, 7, perr.Location.Position)
}

func TestParser_UndefinedGoal(t *testing.T) {
	p := buildParser(t, abcGrammar)
	_, err := p.Parse(context.Background(), "X", "abc")
	assert.Error(t, err)
}

func TestParser_Interrupt(t *testing.T) {
	p := buildParser(t, abcGrammar)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Parse(ctx, "S", "abc")
	var ierr *InterruptedError
	require.True(t, errors.As(err, &ierr))
	assert.True(t, errors.Is(err, context.Canceled))

	r := p.startRun(context.Background())
	p.Interrupt("stop")
	err = r.check()
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "stop", ierr.Message)
	p.endRun(r)

	_, err = p.Parse(context.Background(), "S", "abc")
	assert.NoError(t, err)
}

func TestParser_SeasonLimit(t *testing.T) {
	p := buildParser(t, abcGrammar, SeasonLimit(1))
	_, err := p.Parse(context.Background(), "S", "abc")
	var ierr *InterruptedError
	assert.True(t, errors.As(err, &ierr))

	_, err = NewParser(p.RuleSet(), SeasonLimit(-1))
	assert.Error(t, err)
}

func TestParser_AutomatonContext(t *testing.T) {
	p1 := buildParser(t, operatorGrammar)
	p2, err := NewParser(p1.RuleSet(), AutomatonContext(p1.Context()))
	require.NoError(t, err)
	assert.Same(t, p1.Context(), p2.Context())

	other := buildRuleSet(t, "other", abcGrammar)
	_, err = NewParser(other, AutomatonContext(p1.Context()))
	assert.Error(t, err)
}

func TestParser_Determinism(t *testing.T) {
	p := buildParser(t, operatorGrammar)
	t1, err := p.Parse(context.Background(), "expr", "a+b*c-d/(e+f)")
	require.NoError(t, err)
	p2 := buildParser(t, operatorGrammar)
	t2, err := p2.Parse(context.Background(), "expr", "a+b*c-d/(e+f)")
	require.NoError(t, err)

	assert.Equal(t, sppt.Format(t1.Root, true), sppt.Format(t2.Root, true))
	assert.True(t, t1.Contains(t2))
	assert.True(t, t2.Contains(t1))
}

func TestParser_Concurrent(t *testing.T) {
	p := buildParser(t, operatorGrammar)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Parse(context.Background(), "expr", "a*(b+c)/d")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}
