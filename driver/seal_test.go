package driver

import (
	"testing"

	"github.com/beepsoft/net.akehurst.language/grammar"
	"github.com/beepsoft/net.akehurst.language/sppt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareLength(t *testing.T) {
	rs := buildRuleSet(t, "test", func(b *grammar.RuleSetBuilder) {
		b.Pattern("x", "[a-z]+")
		b.SkipPattern("WS", "[\\u{0020}]+")
	})
	x, _ := rs.FindByTag("x")
	ws, _ := rs.FindByTag("WS")

	short := []sppt.Node{sppt.NewLeaf(x, 0, "a"), sppt.NewLeaf(x, 1, "bc")}
	long := []sppt.Node{sppt.NewLeaf(x, 0, "ab"), sppt.NewLeaf(x, 2, "c")}
	skipped := []sppt.Node{sppt.NewLeaf(x, 0, "a"), sppt.NewLeaf(ws, 1, " "), sppt.NewLeaf(x, 2, "bc")}

	assert.Equal(t, 1, compareLength(long, short))
	assert.Equal(t, -1, compareLength(short, long))
	assert.Equal(t, 0, compareLength(short, short))
	assert.Equal(t, []int{1, 4}, childEnds(skipped))
}

func TestResolveAmbiguity(t *testing.T) {
	tests := []struct {
		caption  string
		kind     grammar.ChoiceKind
		options  []int
		ends     []int
		expected []int
		priority int
	}{
		{
			caption:  "the longest derivation wins before priority",
			kind:     grammar.ChoiceKindLongestPriority,
			options:  []int{0, 1},
			ends:     []int{2, 1},
			expected: []int{0},
			priority: 0,
		},
		{
			caption:  "the highest priority wins before length",
			kind:     grammar.ChoiceKindPriorityLongest,
			options:  []int{0, 1},
			ends:     []int{2, 1},
			expected: []int{1},
			priority: 1,
		},
		{
			caption:  "an ambiguous choice keeps derivations of equal length",
			kind:     grammar.ChoiceKindAmbiguous,
			options:  []int{1, 0},
			ends:     []int{1, 1},
			expected: []int{0, 1},
			priority: 1,
		},
		{
			caption:  "an ambiguous choice keeps derivations splitting the span differently",
			kind:     grammar.ChoiceKindAmbiguous,
			options:  []int{0, 1},
			ends:     []int{2, 1},
			expected: []int{0, 1},
			priority: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			rs := buildRuleSet(t, "test", func(b *grammar.RuleSetBuilder) {
				b.Choice("S", tt.kind, func(alts *grammar.ChoiceBuilder) {
					alts.Ref("A", "B")
				})
				b.Concatenation("A", func(items *grammar.ItemsBuilder) {
					items.Ref("x", "x")
				})
				b.Concatenation("B", func(items *grammar.ItemsBuilder) {
					items.Ref("x", "x")
				})
				b.Pattern("x", "[a-z]+")
			})
			s, _ := rs.FindByTag("S")
			x, _ := rs.FindByTag("x")
			text := "abc"
			b := sppt.NewBranch(s, 0, text)

			var alts []*alternative
			for i, opt := range tt.options {
				end := tt.ends[i]
				alts = append(alts, &alternative{
					option: opt,
					children: []sppt.Node{
						sppt.NewLeaf(x, 0, text[:end]),
						sppt.NewLeaf(x, end, text[end:]),
					},
				})
			}
			kept, priority := resolveAmbiguity(b, alts)
			var options []int
			for _, alt := range kept {
				options = append(options, alt.option)
			}
			assert.Equal(t, tt.expected, options)
			assert.Equal(t, tt.priority, priority)
		})
	}
}

func TestParseInput_Location(t *testing.T) {
	in := newParseInput("ab\nçd\n")
	tests := []struct {
		pos      int
		expected Location
	}{
		{pos: 0, expected: Location{Position: 0, Line: 1, Column: 1, Length: 1}},
		{pos: 3, expected: Location{Position: 3, Line: 2, Column: 1, Length: 2}},
		{pos: 5, expected: Location{Position: 5, Line: 2, Column: 2, Length: 1}},
		{pos: 7, expected: Location{Position: 7, Line: 3, Column: 1, Length: 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, in.location(tt.pos))
	}
}

func TestParseInput_Leaf(t *testing.T) {
	rs := buildRuleSet(t, "test", func(b *grammar.RuleSetBuilder) {
		b.Pattern("num", "[0-9]+")
	})
	num, _ := rs.FindByTag("num")
	in := newParseInput("x123")

	assert.Nil(t, in.leaf(num, 0))
	l := in.leaf(num, 1)
	require.NotNil(t, l)
	assert.Equal(t, "123", l.node.MatchedText())
	assert.Same(t, l, in.leaf(num, 1))
	assert.True(t, in.matches(grammar.EndOfText, 4))
	assert.False(t, in.matches(grammar.EndOfText, 3))
}
