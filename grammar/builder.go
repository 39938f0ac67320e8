package grammar

import (
	"fmt"
	"strings"

	verr "github.com/beepsoft/net.akehurst.language/error"
)

type ruleBuilder struct {
	tag       string
	kind      RuleKind
	value     string
	isPattern bool
	isSkip    bool

	rhsKind      RhsKind
	choiceKind   ChoiceKind
	alternatives [][]string
	item         string
	separator    string
	min          int
	max          int

	embeddedRuleSet  *RuleSet
	embeddedStartTag string
}

func (b *ruleBuilder) sameTerminal(o *ruleBuilder) bool {
	return b.kind == RuleKindTerminal && o.kind == RuleKindTerminal &&
		b.value == o.value && b.isPattern == o.isPattern && b.isSkip == o.isSkip
}

// RuleSetBuilder collects rule declarations and builds a RuleSet from them.
// Errors are reported by Build, so declarations can be chained freely.
type RuleSetBuilder struct {
	name     string
	builders []*ruleBuilder
	byTag    map[string]*ruleBuilder
	goal     string
	errs     verr.SpecErrors
}

func NewRuleSetBuilder(name string) *RuleSetBuilder {
	return &RuleSetBuilder{
		name:  name,
		byTag: map[string]*ruleBuilder{},
	}
}

func (b *RuleSetBuilder) add(rb *ruleBuilder) {
	if rb.tag == "" || strings.HasPrefix(rb.tag, "<") || strings.HasPrefix(rb.tag, "§") {
		b.errs = append(b.errs, &verr.SpecError{
			Cause: semErrReservedTag,
			Tag:   rb.tag,
		})
		return
	}
	if existing, ok := b.byTag[rb.tag]; ok {
		if existing.sameTerminal(rb) {
			return
		}
		b.errs = append(b.errs, &verr.SpecError{
			Cause: semErrDuplicateRule,
			Tag:   rb.tag,
		})
		return
	}
	b.byTag[rb.tag] = rb
	b.builders = append(b.builders, rb)
}

// declare records the first rule declared by name, which is the default goal of the rule set.
func (b *RuleSetBuilder) declare(tag string) {
	if b.goal == "" {
		b.goal = tag
	}
}

func (b *RuleSetBuilder) terminal(tag, value string, isPattern, isSkip bool) {
	b.add(&ruleBuilder{
		tag:       tag,
		kind:      RuleKindTerminal,
		value:     value,
		isPattern: isPattern,
		isSkip:    isSkip,
	})
}

func (b *RuleSetBuilder) Literal(tag, value string) {
	b.declare(tag)
	b.terminal(tag, value, false, false)
}

func (b *RuleSetBuilder) Pattern(tag, pattern string) {
	b.declare(tag)
	b.terminal(tag, pattern, true, false)
}

// ImplicitLiteral declares the literal an item refers to by value and returns its tag.
func (b *RuleSetBuilder) ImplicitLiteral(value string) string {
	tag := LiteralTag(value)
	b.terminal(tag, value, false, false)
	return tag
}

// ImplicitPattern declares the pattern an item refers to by value and returns its tag.
func (b *RuleSetBuilder) ImplicitPattern(pattern string) string {
	tag := PatternTag(pattern)
	b.terminal(tag, pattern, true, false)
	return tag
}

func (b *RuleSetBuilder) SkipLiteral(tag, value string) {
	b.terminal(tag, value, false, true)
}

func (b *RuleSetBuilder) SkipPattern(tag, pattern string) {
	b.terminal(tag, pattern, true, true)
}

func (b *RuleSetBuilder) Concatenation(tag string, init func(items *ItemsBuilder)) {
	b.declare(tag)
	b.concatenation(tag, false, init)
}

// Skip declares a non-terminal skip rule such as a comment.
func (b *RuleSetBuilder) Skip(tag string, init func(items *ItemsBuilder)) {
	b.concatenation(tag, true, init)
}

func (b *RuleSetBuilder) concatenation(tag string, isSkip bool, init func(items *ItemsBuilder)) {
	items := &ItemsBuilder{
		b: b,
	}
	if init != nil {
		init(items)
	}
	b.add(&ruleBuilder{
		tag:          tag,
		kind:         RuleKindNonTerminal,
		isSkip:       isSkip,
		rhsKind:      RhsKindConcatenation,
		alternatives: [][]string{items.tags},
	})
}

// Choice declares a choice whose alternatives are ordered by ascending priority.
func (b *RuleSetBuilder) Choice(tag string, kind ChoiceKind, init func(alts *ChoiceBuilder)) {
	b.declare(tag)
	alts := &ChoiceBuilder{
		b: b,
	}
	if init != nil {
		init(alts)
	}
	if kind == ChoiceKindNone {
		kind = ChoiceKindLongestPriority
	}
	b.add(&ruleBuilder{
		tag:          tag,
		kind:         RuleKindNonTerminal,
		rhsKind:      RhsKindChoice,
		choiceKind:   kind,
		alternatives: alts.alternatives,
	})
}

// Multi declares `item{min,max}`. Pass MultiMax as max for no upper bound.
func (b *RuleSetBuilder) Multi(tag string, min, max int, item string) {
	b.declare(tag)
	b.add(&ruleBuilder{
		tag:     tag,
		kind:    RuleKindNonTerminal,
		rhsKind: RhsKindMulti,
		item:    item,
		min:     min,
		max:     max,
	})
}

// SeparatedList declares `[item / separator]{min,max}`, where min and max count items.
func (b *RuleSetBuilder) SeparatedList(tag string, min, max int, item, separator string) {
	b.declare(tag)
	b.add(&ruleBuilder{
		tag:       tag,
		kind:      RuleKindNonTerminal,
		rhsKind:   RhsKindSeparatedList,
		item:      item,
		separator: separator,
		min:       min,
		max:       max,
	})
}

// Empty declares a non-terminal matching only the empty string.
func (b *RuleSetBuilder) Empty(tag string) {
	b.declare(tag)
	b.add(&ruleBuilder{
		tag:     tag,
		kind:    RuleKindNonTerminal,
		rhsKind: RhsKindEmpty,
	})
}

// Embedded declares a rule parsed by the start rule of another rule set.
func (b *RuleSetBuilder) Embedded(tag string, ruleSet *RuleSet, startTag string) {
	b.declare(tag)
	b.add(&ruleBuilder{
		tag:              tag,
		kind:             RuleKindEmbedded,
		embeddedRuleSet:  ruleSet,
		embeddedStartTag: startTag,
	})
}

type ItemsBuilder struct {
	b    *RuleSetBuilder
	tags []string
}

// Literal adds a literal item. The terminal is declared implicitly with the tag `'value'`.
func (ib *ItemsBuilder) Literal(value string) {
	ib.tags = append(ib.tags, ib.b.ImplicitLiteral(value))
}

// Pattern adds a pattern item. The terminal is declared implicitly with the tag `"pattern"`.
func (ib *ItemsBuilder) Pattern(pattern string) {
	ib.tags = append(ib.tags, ib.b.ImplicitPattern(pattern))
}

func (ib *ItemsBuilder) Ref(tags ...string) {
	ib.tags = append(ib.tags, tags...)
}

type ChoiceBuilder struct {
	b            *RuleSetBuilder
	alternatives [][]string
}

func (cb *ChoiceBuilder) Literal(value string) {
	cb.Alt(func(items *ItemsBuilder) {
		items.Literal(value)
	})
}

func (cb *ChoiceBuilder) Pattern(pattern string) {
	cb.Alt(func(items *ItemsBuilder) {
		items.Pattern(pattern)
	})
}

// Ref adds one single-item alternative per tag.
func (cb *ChoiceBuilder) Ref(tags ...string) {
	for _, tag := range tags {
		cb.alternatives = append(cb.alternatives, []string{tag})
	}
}

// Alt adds an alternative made of a sequence of items.
func (cb *ChoiceBuilder) Alt(init func(items *ItemsBuilder)) {
	items := &ItemsBuilder{
		b: cb.b,
	}
	init(items)
	cb.alternatives = append(cb.alternatives, items.tags)
}

func LiteralTag(value string) string {
	return fmt.Sprintf("'%v'", value)
}

func PatternTag(pattern string) string {
	return fmt.Sprintf("\"%v\"", pattern)
}

// Build validates the declarations and builds an immutable rule set. The returned error is
// an error.SpecErrors listing every malformed declaration.
func (b *RuleSetBuilder) Build() (*RuleSet, error) {
	errs := append(verr.SpecErrors{}, b.errs...)
	if len(b.builders) == 0 {
		errs = append(errs, &verr.SpecError{
			Cause: semErrNoRule,
		})
		return nil, errs
	}

	rs := newRuleSet(b.name)
	for i, rb := range b.builders {
		r := &RuntimeRule{
			Number:    i,
			Tag:       rb.tag,
			Kind:      rb.kind,
			Value:     rb.value,
			IsPattern: rb.isPattern,
			IsSkip:    rb.isSkip,
			ruleSet:   rs,
		}
		rs.rules = append(rs.rules, r)
		rs.byTag[r.Tag] = r
	}
	rs.defaultGoal = rs.byTag[b.goal]

	for i, rb := range b.builders {
		r := rs.rules[i]
		var err *verr.SpecError
		switch rb.kind {
		case RuleKindTerminal:
			err = buildTerminal(r)
		case RuleKindNonTerminal:
			err = buildRhs(rs, r, rb)
		case RuleKindEmbedded:
			err = buildEmbedded(r, rb)
		}
		if err != nil {
			err.Tag = r.Tag
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	for _, r := range rs.rules {
		if r.IsSkip {
			rs.skipRules = append(rs.skipRules, r)
		}
	}
	if len(rs.skipRules) > 0 {
		genSkipRules(rs)
	}

	nonTerms := rs.NonTerminals()
	if rs.skipMulti != nil {
		nonTerms = append(nonTerms, rs.skipChoice, rs.skipMulti)
	}
	rs.first = genFirstSet(nonTerms)

	return rs, nil
}

func buildTerminal(r *RuntimeRule) *verr.SpecError {
	if !r.IsPattern {
		if r.Value == "" {
			return &verr.SpecError{
				Cause: semErrEmptyLiteral,
			}
		}
		return nil
	}
	m, err := newPatternMatcher(r.Value)
	if err != nil {
		return &verr.SpecError{
			Cause:  semErrInvalidPattern,
			Detail: err.Error(),
		}
	}
	r.matcher = m
	return nil
}

func buildRhs(rs *RuleSet, r *RuntimeRule, rb *ruleBuilder) *verr.SpecError {
	lookup := func(tag string) (*RuntimeRule, *verr.SpecError) {
		item, ok := rs.byTag[tag]
		if !ok {
			return nil, &verr.SpecError{
				Cause:  semErrUndefinedRule,
				Detail: tag,
			}
		}
		return item, nil
	}

	rhs := &Rhs{
		Kind:       rb.rhsKind,
		ChoiceKind: rb.choiceKind,
		Min:        rb.min,
		Max:        rb.max,
	}
	switch rb.rhsKind {
	case RhsKindEmpty:
		rhs.EmptyRule = genEmptyRule(rs, r)
	case RhsKindConcatenation, RhsKindChoice:
		if len(rb.alternatives) == 0 {
			return &verr.SpecError{
				Cause: semErrNoItems,
			}
		}
		for _, alt := range rb.alternatives {
			if len(alt) == 0 {
				if rb.rhsKind == RhsKindConcatenation {
					return &verr.SpecError{
						Cause: semErrNoItems,
					}
				}
				return &verr.SpecError{
					Cause: semErrEmptyAlternative,
				}
			}
			items := make([]*RuntimeRule, len(alt))
			for i, tag := range alt {
				item, err := lookup(tag)
				if err != nil {
					return err
				}
				items[i] = item
			}
			rhs.Alternatives = append(rhs.Alternatives, items)
		}
	case RhsKindMulti, RhsKindSeparatedList:
		if rb.min < 0 || rb.max == 0 || (rb.max != MultiMax && (rb.max < 0 || rb.max < rb.min)) {
			return &verr.SpecError{
				Cause:  semErrInvalidCardinality,
				Detail: fmt.Sprintf("min: %v, max: %v", rb.min, rb.max),
			}
		}
		item, err := lookup(rb.item)
		if err != nil {
			return err
		}
		rhs.Item = item
		if rb.rhsKind == RhsKindSeparatedList {
			sep, err := lookup(rb.separator)
			if err != nil {
				return err
			}
			rhs.Separator = sep
		}
		if rb.min == 0 {
			rhs.EmptyRule = genEmptyRule(rs, r)
		}
	}
	r.Rhs = rhs
	return nil
}

func genEmptyRule(rs *RuleSet, owner *RuntimeRule) *RuntimeRule {
	r := &RuntimeRule{
		Number:      len(rs.rules),
		Tag:         EmptyTagPrefix + owner.Tag,
		Kind:        RuleKindTerminal,
		IsEmptyRule: true,
		ruleSet:     rs,
	}
	rs.rules = append(rs.rules, r)
	rs.byTag[r.Tag] = r
	return r
}

func buildEmbedded(r *RuntimeRule, rb *ruleBuilder) *verr.SpecError {
	if rb.embeddedRuleSet == nil {
		return &verr.SpecError{
			Cause: semErrNoEmbeddedRuleSet,
		}
	}
	start, ok := rb.embeddedRuleSet.FindByTag(rb.embeddedStartTag)
	if !ok {
		return &verr.SpecError{
			Cause:  semErrUndefinedEmbedded,
			Detail: rb.embeddedStartTag,
		}
	}
	if !start.IsTerminal() && !start.IsNonTerminal() {
		return &verr.SpecError{
			Cause:  semErrEmbeddedNotTerminal,
			Detail: rb.embeddedStartTag,
		}
	}
	r.EmbeddedRuleSet = rb.embeddedRuleSet
	r.EmbeddedStartRule = start
	return nil
}

func genSkipRules(rs *RuleSet) {
	alts := make([][]*RuntimeRule, len(rs.skipRules))
	for i, r := range rs.skipRules {
		alts[i] = []*RuntimeRule{r}
	}
	rs.skipChoice = &RuntimeRule{
		Number: SkipChoiceRuleNumber,
		Tag:    SkipChoiceTag,
		Kind:   RuleKindNonTerminal,
		Rhs: &Rhs{
			Kind:         RhsKindChoice,
			ChoiceKind:   ChoiceKindLongestPriority,
			Alternatives: alts,
		},
		ruleSet: rs,
	}
	rs.skipMulti = &RuntimeRule{
		Number: SkipMultiRuleNumber,
		Tag:    SkipMultiTag,
		Kind:   RuleKindNonTerminal,
		Rhs: &Rhs{
			Kind: RhsKindMulti,
			Item: rs.skipChoice,
			Min:  1,
			Max:  MultiMax,
		},
		ruleSet: rs,
	}
}
