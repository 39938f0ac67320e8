package grammar

import (
	"fmt"
	"io"
	"sync/atomic"
)

var ruleSetSerial int64

// RuleSet is an immutable set of runtime rules built by a RuleSetBuilder.
type RuleSet struct {
	Name string

	id         int64
	rules      []*RuntimeRule
	byTag      map[string]*RuntimeRule
	skipRules  []*RuntimeRule
	skipMulti  *RuntimeRule
	skipChoice *RuntimeRule
	first      *firstSet

	defaultGoal *RuntimeRule
}

func newRuleSet(name string) *RuleSet {
	return &RuleSet{
		Name:  name,
		id:    atomic.AddInt64(&ruleSetSerial, 1),
		byTag: map[string]*RuntimeRule{},
	}
}

// ID distinguishes rule sets of one process. The zero value belongs to no rule set.
func (rs *RuleSet) ID() int64 {
	if rs == nil {
		return 0
	}
	return rs.id
}

// Rules returns the user declared rules and their synthetic empty rules ordered by number.
func (rs *RuleSet) Rules() []*RuntimeRule {
	rules := make([]*RuntimeRule, len(rs.rules))
	copy(rules, rs.rules)
	return rules
}

// DefaultGoal returns the first rule declared by name. Terminals declared by the items of other
// rules and skip rules are never the default goal. It is nil when every rule is one of them.
func (rs *RuleSet) DefaultGoal() *RuntimeRule {
	return rs.defaultGoal
}

func (rs *RuleSet) FindByTag(tag string) (*RuntimeRule, bool) {
	r, ok := rs.byTag[tag]
	return r, ok
}

func (rs *RuleSet) FindByNumber(num int) (*RuntimeRule, bool) {
	switch num {
	case SkipMultiRuleNumber:
		return rs.skipMulti, rs.skipMulti != nil
	case SkipChoiceRuleNumber:
		return rs.skipChoice, rs.skipChoice != nil
	case EndOfTextRuleNumber:
		return EndOfText, true
	}
	if num < 0 || num >= len(rs.rules) {
		return nil, false
	}
	return rs.rules[num], true
}

func (rs *RuleSet) SkipRules() []*RuntimeRule {
	return rs.skipRules
}

// SkipMulti returns the synthetic goal of the skip grammar. It is nil when the set has no skip rules.
func (rs *RuleSet) SkipMulti() *RuntimeRule {
	return rs.skipMulti
}

func (rs *RuleSet) Terminals() []*RuntimeRule {
	var terms []*RuntimeRule
	for _, r := range rs.rules {
		if r.IsTerminal() {
			terms = append(terms, r)
		}
	}
	return terms
}

func (rs *RuleSet) NonTerminals() []*RuntimeRule {
	var nonTerms []*RuntimeRule
	for _, r := range rs.rules {
		if r.IsNonTerminal() {
			nonTerms = append(nonTerms, r)
		}
	}
	return nonTerms
}

// Write writes a human readable listing of the rules.
func (rs *RuleSet) Write(w io.Writer) {
	for _, r := range rs.rules {
		var skip string
		if r.IsSkip {
			skip = "skip "
		}
		switch r.Kind {
		case RuleKindTerminal:
			switch {
			case r.IsEmptyRule:
				fmt.Fprintf(w, "%4v %v%v = <empty>\n", r.Number, skip, r.Tag)
			case r.IsPattern:
				fmt.Fprintf(w, "%4v %v%v = \"%v\"\n", r.Number, skip, r.Tag, r.Value)
			default:
				fmt.Fprintf(w, "%4v %v%v = '%v'\n", r.Number, skip, r.Tag, r.Value)
			}
		case RuleKindNonTerminal:
			fmt.Fprintf(w, "%4v %v%v = %v (%v)\n", r.Number, skip, r.Tag, r.Rhs, r.Rhs.Kind)
		case RuleKindEmbedded:
			fmt.Fprintf(w, "%4v %v = %v::%v\n", r.Number, r.Tag, r.EmbeddedRuleSet.Name, r.EmbeddedStartRule)
		}
	}
}
