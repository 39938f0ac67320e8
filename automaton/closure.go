package automaton

import (
	"github.com/beepsoft/net.akehurst.language/grammar"
)

// closureItem is a rule start position predicted by a state. lookahead is what may follow the
// predicted rule; it contains the UP marker when the rule may end the state's own rule.
type closureItem struct {
	rp        grammar.RulePosition
	lookahead *LookaheadSet
}

type closureItemKey struct {
	rp        grammar.RulePosition
	lookahead *LookaheadSet
}

// closure returns the positions predicted by a mid-rule state, not including the state itself.
// Left recursive rules are handled by the known-items set; every item is expanded once.
func (ss *StateSet) closure(from *ParserState) []*closureItem {
	if items, ok := ss.closures[from]; ok {
		return items
	}

	items := []*closureItem{}
	knownItems := map[closureItemKey]struct{}{}
	uncheckedItems := ss.predict(from.RulePosition, ss.ctx.pool.up)
	for _, ci := range uncheckedItems {
		knownItems[closureItemKey{ci.rp, ci.lookahead}] = struct{}{}
	}
	for len(uncheckedItems) > 0 {
		nextUncheckedItems := []*closureItem{}
		for _, ci := range uncheckedItems {
			items = append(items, ci)
			for _, predicted := range ss.predict(ci.rp, ci.lookahead) {
				key := closureItemKey{predicted.rp, predicted.lookahead}
				if _, known := knownItems[key]; known {
					continue
				}
				knownItems[key] = struct{}{}
				nextUncheckedItems = append(nextUncheckedItems, predicted)
			}
		}
		uncheckedItems = nextUncheckedItems
	}

	ss.closures[from] = items
	return items
}

// predict expands the non-terminal expected at rp into its start positions.
func (ss *StateSet) predict(rp grammar.RulePosition, inherited *LookaheadSet) []*closureItem {
	item := rp.Item()
	if item == nil || !item.IsNonTerminal() {
		return nil
	}
	follow := ss.expectedAfter(rp, inherited)
	var items []*closureItem
	for _, start := range grammar.StartPositions(item) {
		items = append(items, &closureItem{
			rp:        start,
			lookahead: follow,
		})
	}
	return items
}

type firstOfEntry struct {
	terms    []*grammar.RuntimeRule
	nullable bool
}

// firstOf computes the terminals that can start the remainder of a rule from rp and whether the
// remainder can match the empty string.
func (ss *StateSet) firstOf(rp grammar.RulePosition) *firstOfEntry {
	if e, ok := ss.firsts[rp]; ok {
		return e
	}

	e := &firstOfEntry{}
	knownTerms := map[*grammar.RuntimeRule]struct{}{}
	knownPositions := map[grammar.RulePosition]struct{}{
		rp: {},
	}
	uncheckedPositions := []grammar.RulePosition{rp}
	for len(uncheckedPositions) > 0 {
		p := uncheckedPositions[len(uncheckedPositions)-1]
		uncheckedPositions = uncheckedPositions[:len(uncheckedPositions)-1]
		if p.IsAtEnd() {
			e.nullable = true
			continue
		}
		item := p.Item()
		for _, t := range item.FirstTerminals() {
			if _, ok := knownTerms[t]; ok {
				continue
			}
			knownTerms[t] = struct{}{}
			e.terms = append(e.terms, t)
		}
		if !item.IsNullable() {
			continue
		}
		for _, next := range p.Next() {
			if _, known := knownPositions[next]; known {
				continue
			}
			knownPositions[next] = struct{}{}
			uncheckedPositions = append(uncheckedPositions, next)
		}
	}
	grammar.SortRules(e.terms)

	ss.firsts[rp] = e
	return e
}

// lookaheadAt returns what may be seen at rp: the first terminals of the remainder, completed by
// inherited when the remainder can be empty.
func (ss *StateSet) lookaheadAt(rp grammar.RulePosition, inherited *LookaheadSet) *LookaheadSet {
	e := ss.firstOf(rp)
	s := ss.ctx.pool.build(e.terms, false, false)
	if e.nullable {
		s = ss.ctx.pool.union(s, inherited)
	}
	return s
}

// expectedAfter returns what may follow the item at rp, over every position reachable by consuming it.
func (ss *StateSet) expectedAfter(rp grammar.RulePosition, inherited *LookaheadSet) *LookaheadSet {
	s := ss.ctx.pool.empty
	for _, next := range rp.Next() {
		s = ss.ctx.pool.union(s, ss.lookaheadAt(next, inherited))
	}
	return s
}
