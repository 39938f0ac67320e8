package grammar

import "sort"

type firstEntry struct {
	symbols map[*RuntimeRule]struct{}
	empty   bool
}

func newFirstEntry() *firstEntry {
	return &firstEntry{
		symbols: map[*RuntimeRule]struct{}{},
		empty:   false,
	}
}

func (e *firstEntry) add(term *RuntimeRule) bool {
	if _, ok := e.symbols[term]; ok {
		return false
	}
	e.symbols[term] = struct{}{}
	return true
}

func (e *firstEntry) addEmpty() bool {
	if !e.empty {
		e.empty = true
		return true
	}
	return false
}

func (e *firstEntry) mergeExceptEmpty(target *firstEntry) bool {
	if target == nil {
		return false
	}
	changed := false
	for sym := range target.symbols {
		added := e.add(sym)
		if added {
			changed = true
		}
	}
	return changed
}

func (e *firstEntry) terminals() []*RuntimeRule {
	terms := make([]*RuntimeRule, 0, len(e.symbols))
	for t := range e.symbols {
		terms = append(terms, t)
	}
	SortRules(terms)
	return terms
}

type firstSet struct {
	set map[*RuntimeRule]*firstEntry
}

func (fst *firstSet) findByRule(r *RuntimeRule) *firstEntry {
	if fst == nil {
		return nil
	}
	return fst.set[r]
}

// genFirstSet computes the FIRST set and the nullability of every non-terminal by iterating
// until no entry changes.
func genFirstSet(nonTerms []*RuntimeRule) *firstSet {
	fst := &firstSet{
		set: map[*RuntimeRule]*firstEntry{},
	}
	for _, r := range nonTerms {
		fst.set[r] = newFirstEntry()
	}

	for {
		more := false
		for _, r := range nonTerms {
			if genRuleFirstEntry(fst, fst.set[r], r) {
				more = true
			}
		}
		if !more {
			break
		}
	}
	return fst
}

func genRuleFirstEntry(fst *firstSet, acc *firstEntry, r *RuntimeRule) bool {
	rhs := r.Rhs
	switch rhs.Kind {
	case RhsKindEmpty:
		return acc.addEmpty()
	case RhsKindConcatenation, RhsKindChoice:
		changed := false
		for _, alt := range rhs.Alternatives {
			if genSeqFirstEntry(fst, acc, alt) {
				changed = true
			}
		}
		return changed
	case RhsKindMulti:
		changed := genSeqFirstEntry(fst, acc, []*RuntimeRule{rhs.Item})
		if rhs.Min == 0 && acc.addEmpty() {
			changed = true
		}
		return changed
	case RhsKindSeparatedList:
		changed := genSeqFirstEntry(fst, acc, []*RuntimeRule{rhs.Item})
		// A nullable item lets the list start with a separator.
		if rhs.Max != 1 && genSeqFirstEntry(fst, acc, []*RuntimeRule{rhs.Item, rhs.Separator}) {
			changed = true
		}
		if rhs.Min == 0 && acc.addEmpty() {
			changed = true
		}
		return changed
	}
	return false
}

func genSeqFirstEntry(fst *firstSet, acc *firstEntry, seq []*RuntimeRule) bool {
	changed := false
	for _, item := range seq {
		var e *firstEntry
		if item.IsNonTerminal() {
			e = fst.findByRule(item)
		} else {
			e = item.firstEntry()
		}
		if acc.mergeExceptEmpty(e) {
			changed = true
		}
		if e == nil || !e.empty {
			return changed
		}
	}
	if acc.addEmpty() {
		changed = true
	}
	return changed
}

// SortRules orders rules by their rule set and number so that iteration over rule sets is deterministic.
func SortRules(rules []*RuntimeRule) {
	sort.Slice(rules, func(i, j int) bool {
		return RuleLess(rules[i], rules[j])
	})
}

func RuleLess(a, b *RuntimeRule) bool {
	ai, bi := a.ruleSet.ID(), b.ruleSet.ID()
	if ai != bi {
		return ai < bi
	}
	return a.Number < b.Number
}
