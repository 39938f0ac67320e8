package grammar

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listRuleSet(t *testing.T) *RuleSet {
	t.Helper()
	b := NewRuleSetBuilder("lists")
	b.Concatenation("S", func(items *ItemsBuilder) {
		items.Literal("a")
		items.Ref("M")
	})
	b.Multi("M", 0, 3, "x")
	b.Multi("O", 0, 1, "x")
	b.SeparatedList("L", 1, MultiMax, "x", "comma")
	b.Choice("C", ChoiceKindLongestPriority, func(alts *ChoiceBuilder) {
		alts.Ref("x")
		alts.Alt(func(items *ItemsBuilder) {
			items.Ref("x", "x")
		})
	})
	b.Literal("x", "x")
	b.Literal("comma", ",")
	rs, err := b.Build()
	require.NoError(t, err)
	return rs
}

func TestRulePosition_Next(t *testing.T) {
	rs := listRuleSet(t)
	rule := func(tag string) *RuntimeRule {
		r, ok := rs.FindByTag(tag)
		require.True(t, ok)
		return r
	}
	rp := func(tag string, opt, pos int) RulePosition {
		return RulePosition{Rule: rule(tag), Option: opt, Position: pos}
	}

	tests := []struct {
		rp   RulePosition
		item string
		next []RulePosition
	}{
		{
			rp:   rp("S", 0, 0),
			item: "'a'",
			next: []RulePosition{rp("S", 0, 1)},
		},
		{
			rp:   rp("S", 0, 1),
			item: "M",
			next: []RulePosition{rp("S", 0, PositionEnd)},
		},
		{
			rp:   rp("M", OptionItem, 0),
			item: "x",
			next: []RulePosition{rp("M", OptionItem, 1), rp("M", OptionItem, PositionEnd)},
		},
		{
			rp:   rp("M", OptionEmpty, 0),
			item: EmptyTagPrefix + "M",
			next: []RulePosition{rp("M", OptionEmpty, PositionEnd)},
		},
		{
			rp:   rp("O", OptionItem, 0),
			item: "x",
			next: []RulePosition{rp("O", OptionItem, PositionEnd)},
		},
		{
			rp:   rp("L", OptionItem, 0),
			item: "x",
			next: []RulePosition{rp("L", OptionItem, 1), rp("L", OptionItem, PositionEnd)},
		},
		{
			rp:   rp("L", OptionItem, 1),
			item: "comma",
			next: []RulePosition{rp("L", OptionItem, 2)},
		},
		{
			rp:   rp("L", OptionItem, 2),
			item: "x",
			next: []RulePosition{rp("L", OptionItem, 1), rp("L", OptionItem, PositionEnd)},
		},
		{
			rp:   rp("C", 1, 0),
			item: "x",
			next: []RulePosition{rp("C", 1, 1)},
		},
		{
			rp:   rp("C", 1, PositionEnd),
			item: "",
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v %v", i, tt.rp), func(t *testing.T) {
			item := tt.rp.Item()
			if tt.item == "" {
				assert.Nil(t, item)
			} else {
				require.NotNil(t, item)
				assert.Equal(t, tt.item, item.Tag)
			}
			assert.Equal(t, tt.next, tt.rp.Next())
		})
	}
}

func TestStartPositions(t *testing.T) {
	rs := listRuleSet(t)
	m, _ := rs.FindByTag("M")
	l, _ := rs.FindByTag("L")
	c, _ := rs.FindByTag("C")
	x, _ := rs.FindByTag("x")

	assert.Len(t, StartPositions(m), 2)
	assert.Len(t, StartPositions(l), 1)
	assert.Len(t, StartPositions(c), 2)
	assert.Empty(t, StartPositions(x))
	for _, rp := range StartPositions(c) {
		assert.True(t, rp.IsAtStart())
		assert.False(t, rp.IsAtEnd())
	}
	assert.Equal(t, "C[0].EOR", EndPosition(c).String())
	assert.Equal(t, "C[1].0", StartPositions(c)[1].String())
}

func TestRulePosition_Allows(t *testing.T) {
	rs := listRuleSet(t)
	m, _ := rs.FindByTag("M")
	l, _ := rs.FindByTag("L")
	mItem := RulePosition{Rule: m, Option: OptionItem, Position: 1}
	mEnd := RulePosition{Rule: m, Option: OptionItem, Position: PositionEnd}
	lItem := RulePosition{Rule: l, Option: OptionItem, Position: 2}
	lSep := RulePosition{Rule: l, Option: OptionItem, Position: 1}
	lEnd := RulePosition{Rule: l, Option: OptionItem, Position: PositionEnd}

	tests := []struct {
		caption    string
		rp         RulePosition
		next       RulePosition
		children   int
		emptyChild bool
		expected   bool
	}{
		{caption: "a multi may repeat below its max", rp: mItem, next: mItem, children: 1, expected: true},
		{caption: "a multi may not repeat at its max", rp: mItem, next: mItem, children: 2, expected: false},
		{caption: "a multi may end at its max", rp: mItem, next: mEnd, children: 2, expected: true},
		{caption: "a repeated empty item is rejected", rp: mItem, next: mEnd, children: 1, emptyChild: true, expected: false},
		{caption: "a separated list ends after its min", rp: lItem, next: lEnd, children: 2, expected: true},
		{caption: "a separator is always allowed", rp: lSep, next: lItem, children: 1, expected: true},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.rp.Allows(tt.next, tt.children, tt.emptyChild))
		})
	}
}
