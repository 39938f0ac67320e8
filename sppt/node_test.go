package sppt

import (
	"strings"
	"testing"

	"github.com/beepsoft/net.akehurst.language/grammar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseTree(t *testing.T, p *TreeParser, src string) *Tree {
	t.Helper()
	tree, err := p.Parse(src)
	require.NoError(t, err)
	return tree
}

func TestContains(t *testing.T) {
	rs := buildRuleSet(t, func(b *grammar.RuleSetBuilder) {
		b.Choice("S", grammar.ChoiceKindAmbiguous, func(alts *grammar.ChoiceBuilder) {
			alts.Ref("A", "B")
		})
		b.Concatenation("A", func(items *grammar.ItemsBuilder) {
			items.Literal("a")
		})
		b.Concatenation("B", func(items *grammar.ItemsBuilder) {
			items.Literal("a")
		})
	})

	ambiguous := NewTreeParser(rs)
	mustParseTree(t, ambiguous, `S { A { 'a' } }`)
	both := mustParseTree(t, ambiguous, `S { B { 'a' } }`)

	onlyA := mustParseTree(t, NewTreeParser(rs), `S { A { 'a' } }`)
	onlyB := mustParseTree(t, NewTreeParser(rs), `S { B { 'a' } }`)

	assert.True(t, both.Contains(onlyA))
	assert.True(t, both.Contains(onlyB))
	assert.True(t, both.Contains(both))
	assert.False(t, onlyA.Contains(both))
	assert.False(t, onlyA.Contains(onlyB))
}

func TestContains_DifferentText(t *testing.T) {
	rs := buildRuleSet(t, func(b *grammar.RuleSetBuilder) {
		b.Concatenation("S", func(items *grammar.ItemsBuilder) {
			items.Ref("id")
		})
		b.Pattern("id", "[a-z]+")
	})

	t1 := mustParseTree(t, NewTreeParser(rs), `S { id : 'ab' }`)
	t2 := mustParseTree(t, NewTreeParser(rs), `S { id : 'cd' }`)
	assert.False(t, t1.Contains(t2))
}

func TestContains_Cycle(t *testing.T) {
	rs := buildRuleSet(t, func(b *grammar.RuleSetBuilder) {
		b.Choice("S", grammar.ChoiceKindAmbiguous, func(alts *grammar.ChoiceBuilder) {
			alts.Literal("a")
			alts.Ref("S")
		})
	})
	a, _ := rs.FindByTag("'a'")
	s, _ := rs.FindByTag("S")

	leaf := NewLeaf(a, 0, "a")
	cyclic := NewBranch(s, 0, "a")
	cyclic.AddAlternative([]Node{leaf})
	cyclic.AddAlternative([]Node{cyclic})

	plain := NewBranch(s, 0, "a")
	plain.AddAlternative([]Node{NewLeaf(a, 0, "a")})

	assert.True(t, Contains(cyclic, plain))
	assert.True(t, Contains(cyclic, cyclic))
	assert.False(t, Contains(plain, cyclic))

	assert.Equal(t, "S { 'a' }", Format(cyclic, true))
	var b strings.Builder
	PrintTree(&b, cyclic, true)
	assert.Contains(t, b.String(), "<cycle>")
}

func TestFormat(t *testing.T) {
	rs := buildRuleSet(t, func(b *grammar.RuleSetBuilder) {
		b.Concatenation("S", func(items *grammar.ItemsBuilder) {
			items.Literal("a")
			items.Ref("WS", "id", "opt")
			items.Literal("'")
		})
		b.Pattern("id", "[a-z]+")
		b.Multi("opt", 0, 1, "x")
		b.Literal("x", "x")
		b.SkipPattern("WS", `\u{0020}+`)
	})

	src := `S { 'a' WS : ' ' id : 'bc' opt { §empty } '\'' }`
	tree := mustParseTree(t, NewTreeParser(rs), src)
	assert.Equal(t, src, Format(tree.Root, true))
	assert.Equal(t, `S { 'a' id : 'bc' opt { §empty } '\'' }`, Format(tree.Root, false))

	reparsed := mustParseTree(t, NewTreeParser(rs), Format(tree.Root, true))
	assert.True(t, reparsed.Contains(tree))
	assert.True(t, tree.Contains(reparsed))
}

func TestPrintTree(t *testing.T) {
	rs := sepListRuleSet(t)
	tree := mustParseTree(t, NewTreeParser(rs), `S { 'a' sep { ',' } 'a' }`)

	var b strings.Builder
	PrintTree(&b, tree.Root, false)
	expected := `S
├─ a "a"
├─ sep
│  └─ comma ","
└─ a "a"
`
	assert.Equal(t, expected, b.String())
}

func TestDiffTree(t *testing.T) {
	rs := sepListRuleSet(t)

	tests := []struct {
		caption  string
		expected string
		actual   string
		diffs    int
	}{
		{
			caption:  "equal trees",
			expected: `S { 'a' sep { ',' } 'a' }`,
			actual:   `S { 'a' sep { ',' } 'a' }`,
		},
		{
			caption:  "an empty separator",
			expected: `S { 'a' sep { ',' } 'a' }`,
			actual:   `S { 'a' sep { §empty } 'a' }`,
			diffs:    1,
		},
		{
			caption:  "a missing item",
			expected: `S { 'a' sep { ',' } 'a' }`,
			actual:   `S { 'a' }`,
			diffs:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			exp := mustParseTree(t, NewTreeParser(rs), tt.expected)
			act := mustParseTree(t, NewTreeParser(rs), tt.actual)
			diffs := DiffTree(exp.Root, act.Root, false)
			assert.Len(t, diffs, tt.diffs)
			for _, d := range diffs {
				assert.NotEmpty(t, d.Message)
				assert.NotEmpty(t, d.ExpectedPath)
			}
		})
	}
}

func TestWalk(t *testing.T) {
	rs := sepListRuleSet(t)
	tree := mustParseTree(t, NewTreeParser(rs), `S { 'a' sep { ',' } 'a' }`)

	var names []string
	Walk(tree.Root, func(n Node) {
		names = append(names, n.Name())
	})
	assert.Equal(t, []string{"S", "a", "sep", "comma", "a"}, names)
	assert.Equal(t, 0, CountAmbiguities(tree.Root))
}
