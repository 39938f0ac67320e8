package grammar

import (
	"fmt"
	"strings"
)

type RuleKind int

const (
	RuleKindGoal RuleKind = iota
	RuleKindTerminal
	RuleKindNonTerminal
	RuleKindEmbedded
)

func (k RuleKind) String() string {
	switch k {
	case RuleKindGoal:
		return "goal"
	case RuleKindTerminal:
		return "terminal"
	case RuleKindNonTerminal:
		return "non-terminal"
	case RuleKindEmbedded:
		return "embedded"
	}
	return fmt.Sprintf("<unknown rule kind: %d>", int(k))
}

type RhsKind int

const (
	RhsKindEmpty RhsKind = iota
	RhsKindConcatenation
	RhsKindChoice
	RhsKindMulti
	RhsKindSeparatedList
)

func (k RhsKind) String() string {
	switch k {
	case RhsKindEmpty:
		return "empty"
	case RhsKindConcatenation:
		return "concatenation"
	case RhsKindChoice:
		return "choice"
	case RhsKindMulti:
		return "multi"
	case RhsKindSeparatedList:
		return "separated-list"
	}
	return fmt.Sprintf("<unknown rhs kind: %d>", int(k))
}

// ChoiceKind selects how alternatives completing the same span are resolved.
type ChoiceKind int

const (
	ChoiceKindNone ChoiceKind = iota
	ChoiceKindLongestPriority
	ChoiceKindPriorityLongest
	ChoiceKindAmbiguous
)

func (k ChoiceKind) String() string {
	switch k {
	case ChoiceKindNone:
		return "none"
	case ChoiceKindLongestPriority:
		return "longest_priority"
	case ChoiceKindPriorityLongest:
		return "priority_longest"
	case ChoiceKindAmbiguous:
		return "ambiguous"
	}
	return fmt.Sprintf("<unknown choice kind: %d>", int(k))
}

func ParseChoiceKind(s string) (ChoiceKind, bool) {
	switch s {
	case "", "longest_priority":
		return ChoiceKindLongestPriority, true
	case "priority_longest":
		return ChoiceKindPriorityLongest, true
	case "ambiguous":
		return ChoiceKindAmbiguous, true
	}
	return ChoiceKindNone, false
}

const (
	GoalRuleNumber       = -1
	EndOfTextRuleNumber  = -2
	SkipMultiRuleNumber  = -3
	SkipChoiceRuleNumber = -4

	// MultiMax as the max of a multi or a separated list means "no upper bound".
	MultiMax = -1
)

// The synthetic tags contain `<` and `>` to avoid conflicting with user-defined tags.
const (
	GoalRuleTag    = "<GOAL>"
	EndOfTextTag   = "<EOT>"
	SkipMultiTag   = "<SKIP-MULTI>"
	SkipChoiceTag  = "<SKIP-CHOICE>"
	EmptyTagPrefix = "§empty."
)

// EndOfText matches only at the end of the input. It appears in lookahead sets, never in a tree.
var EndOfText = &RuntimeRule{
	Number: EndOfTextRuleNumber,
	Tag:    EndOfTextTag,
	Kind:   RuleKindTerminal,
}

type RuntimeRule struct {
	Number      int
	Tag         string
	Kind        RuleKind
	Value       string
	IsPattern   bool
	IsSkip      bool
	IsEmptyRule bool
	Rhs         *Rhs

	EmbeddedRuleSet   *RuleSet
	EmbeddedStartRule *RuntimeRule

	ruleSet *RuleSet
	matcher *patternMatcher
}

func (r *RuntimeRule) String() string {
	return r.Tag
}

func (r *RuntimeRule) IsTerminal() bool {
	return r.Kind == RuleKindTerminal
}

func (r *RuntimeRule) IsNonTerminal() bool {
	return r.Kind == RuleKindNonTerminal
}

func (r *RuntimeRule) IsGoal() bool {
	return r.Kind == RuleKindGoal
}

func (r *RuntimeRule) IsEmbedded() bool {
	return r.Kind == RuleKindEmbedded
}

// RuleSet returns the rule set owning the rule. The shared EndOfText rule has no owner.
func (r *RuntimeRule) RuleSet() *RuleSet {
	return r.ruleSet
}

// Match tries to match a terminal at pos and returns the matched length.
func (r *RuntimeRule) Match(input string, pos int) (int, bool) {
	if pos > len(input) {
		return 0, false
	}
	switch {
	case r.Number == EndOfTextRuleNumber:
		return 0, pos == len(input)
	case r.IsEmptyRule:
		return 0, true
	case r.IsPattern:
		return r.matcher.match(input, pos)
	}
	if strings.HasPrefix(input[pos:], r.Value) {
		return len(r.Value), true
	}
	return 0, false
}

// FirstTerminals returns the non-empty terminals a match of the rule can start with.
func (r *RuntimeRule) FirstTerminals() []*RuntimeRule {
	e := r.firstEntry()
	if e == nil {
		return nil
	}
	return e.terminals()
}

// IsNullable reports whether the rule can match the empty string.
func (r *RuntimeRule) IsNullable() bool {
	e := r.firstEntry()
	if e == nil {
		return false
	}
	return e.empty
}

func (r *RuntimeRule) firstEntry() *firstEntry {
	switch r.Kind {
	case RuleKindTerminal:
		e := newFirstEntry()
		if r.IsEmptyRule {
			e.addEmpty()
		} else {
			e.add(r)
		}
		return e
	case RuleKindEmbedded:
		return r.EmbeddedStartRule.firstEntry()
	case RuleKindGoal:
		return r.Rhs.Alternatives[0][0].firstEntry()
	}
	if r.ruleSet == nil {
		return nil
	}
	return r.ruleSet.first.findByRule(r)
}

// NewGoalRule creates the synthetic goal rule wrapping a user goal.
func NewGoalRule(userGoal *RuntimeRule) *RuntimeRule {
	return &RuntimeRule{
		Number: GoalRuleNumber,
		Tag:    GoalRuleTag,
		Kind:   RuleKindGoal,
		Rhs: &Rhs{
			Kind:         RhsKindConcatenation,
			ChoiceKind:   ChoiceKindNone,
			Alternatives: [][]*RuntimeRule{{userGoal}},
		},
		ruleSet: userGoal.ruleSet,
	}
}

type Rhs struct {
	Kind       RhsKind
	ChoiceKind ChoiceKind

	// Alternatives holds the item sequences of a concatenation (exactly one) or of a choice.
	Alternatives [][]*RuntimeRule

	// Item and Separator are used by multis and separated lists.
	Item      *RuntimeRule
	Separator *RuntimeRule

	// EmptyRule is the synthetic `§empty` terminal of an empty rule or of a list whose min is 0.
	EmptyRule *RuntimeRule

	Min int
	Max int
}

// Items returns every rule referenced by the rhs.
func (rhs *Rhs) Items() []*RuntimeRule {
	var items []*RuntimeRule
	for _, alt := range rhs.Alternatives {
		items = append(items, alt...)
	}
	if rhs.Item != nil {
		items = append(items, rhs.Item)
	}
	if rhs.Separator != nil {
		items = append(items, rhs.Separator)
	}
	if rhs.EmptyRule != nil {
		items = append(items, rhs.EmptyRule)
	}
	return items
}

func (rhs *Rhs) String() string {
	var b strings.Builder
	switch rhs.Kind {
	case RhsKindEmpty:
		fmt.Fprintf(&b, "%v", rhs.EmptyRule)
	case RhsKindConcatenation, RhsKindChoice:
		for i, alt := range rhs.Alternatives {
			if i > 0 {
				if rhs.ChoiceKind == ChoiceKindAmbiguous {
					b.WriteString(" || ")
				} else {
					b.WriteString(" < ")
				}
			}
			for j, item := range alt {
				if j > 0 {
					b.WriteString(" ")
				}
				b.WriteString(item.Tag)
			}
		}
	case RhsKindMulti:
		fmt.Fprintf(&b, "%v{%v,%v}", rhs.Item, rhs.Min, maxString(rhs.Max))
	case RhsKindSeparatedList:
		fmt.Fprintf(&b, "[%v / %v]{%v,%v}", rhs.Item, rhs.Separator, rhs.Min, maxString(rhs.Max))
	}
	return b.String()
}

func maxString(max int) string {
	if max == MultiMax {
		return "*"
	}
	return fmt.Sprintf("%v", max)
}
