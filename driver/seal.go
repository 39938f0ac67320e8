package driver

import (
	"sort"

	"github.com/beepsoft/net.akehurst.language/grammar"
	"github.com/beepsoft/net.akehurst.language/sppt"
)

type alternative struct {
	option   int
	children []sppt.Node
}

// seal fills the children alternatives of every branch reachable from root. Branches are filled
// once; a branch reachable from several parents is shared by all of them.
func (g *parseGraph) seal(root *completed) {
	lists := map[nodeIdx][][]sppt.Node{}
	stack := []*completed{root}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c.sealed {
			continue
		}
		c.sealed = true

		b, ok := c.node.AsBranch()
		if !ok {
			continue
		}
		var alts []*alternative
		for _, d := range c.derivs {
			for _, left := range g.expand(d.left, lists) {
				alts = append(alts, &alternative{
					option:   d.option,
					children: appendChild(left, d),
				})
			}
		}
		kept, priority := resolveAmbiguity(b, alts)
		for _, alt := range kept {
			if !b.AddAlternative(alt.children) {
				continue
			}
			for _, child := range alt.children {
				if cc, ok := g.completed[sppt.IdentityOf(child)]; ok && cc.node == child && !cc.sealed {
					stack = append(stack, cc)
				}
			}
		}
		b.SetPriority(priority)
	}
}

// expand returns the children lists of a partial node. Derivations of partial nodes always point
// to nodes with fewer children, so the recursion ends.
func (g *parseGraph) expand(idx nodeIdx, memo map[nodeIdx][][]sppt.Node) [][]sppt.Node {
	if idx == nilNode {
		return [][]sppt.Node{nil}
	}
	if lists, ok := memo[idx]; ok {
		return lists
	}
	var lists [][]sppt.Node
	for _, d := range g.get(idx).derivs {
		for _, left := range g.expand(d.left, memo) {
			lists = append(lists, appendChild(left, d))
		}
	}
	memo[idx] = lists
	return lists
}

func appendChild(left []sppt.Node, d derivation) []sppt.Node {
	children := make([]sppt.Node, 0, len(left)+1+len(d.skip))
	children = append(children, left...)
	children = append(children, d.child.node)
	children = append(children, d.skip...)
	return children
}

// resolveAmbiguity selects the derivations a branch keeps and the priority it is given.
//
// A derivation made of the branch itself is dropped unless the rule is an ambiguous choice, and a
// branch matching the empty string keeps its explicit empty derivations over the others. Then
// the derivations are compared by length and priority according to the choice kind of the rule;
// derivations that compare equal are all kept. Every derivation of an ambiguous choice covers the
// span of the branch, so none of them dominates and all are kept.
func resolveAmbiguity(b *sppt.Branch, alts []*alternative) ([]*alternative, int) {
	rhs := b.Rule().Rhs
	kind := grammar.ChoiceKindNone
	if rhs != nil && rhs.Kind == grammar.RhsKindChoice {
		kind = rhs.ChoiceKind
	}

	if kind != grammar.ChoiceKindAmbiguous {
		alts = filterAlternatives(alts, func(alt *alternative) bool {
			return !(len(alt.children) == 1 && alt.children[0] == sppt.Node(b))
		})
	}
	if b.MatchedLength() == 0 {
		explicit := filterAlternatives(alts, func(alt *alternative) bool {
			for _, c := range alt.children {
				if c.IsEmptyLeaf() {
					return true
				}
			}
			return false
		})
		if len(explicit) > 0 {
			alts = explicit
		}
	}

	priorityOf := func(alt *alternative) int {
		if kind == grammar.ChoiceKindNone {
			return 0
		}
		return alt.option
	}
	compare := func(a, b *alternative) int {
		switch kind {
		case grammar.ChoiceKindAmbiguous:
			return 0
		case grammar.ChoiceKindLongestPriority:
			if c := compareLength(a.children, b.children); c != 0 {
				return c
			}
			return compareInt(priorityOf(a), priorityOf(b))
		case grammar.ChoiceKindPriorityLongest:
			if c := compareInt(priorityOf(a), priorityOf(b)); c != 0 {
				return c
			}
			return compareLength(a.children, b.children)
		}
		return compareLength(a.children, b.children)
	}

	var best []*alternative
	for _, alt := range alts {
		if len(best) == 0 {
			best = []*alternative{alt}
			continue
		}
		switch c := compare(alt, best[0]); {
		case c > 0:
			best = []*alternative{alt}
		case c == 0:
			best = append(best, alt)
		}
	}
	sort.SliceStable(best, func(i, j int) bool {
		return best[i].option < best[j].option
	})

	priority := 0
	for _, alt := range best {
		if p := priorityOf(alt); p > priority {
			priority = p
		}
	}
	return best, priority
}

func filterAlternatives(alts []*alternative, keep func(alt *alternative) bool) []*alternative {
	var kept []*alternative
	for _, alt := range alts {
		if keep(alt) {
			kept = append(kept, alt)
		}
	}
	return kept
}

// compareLength prefers the derivation whose earliest differing non-skip child ends later.
func compareLength(a, b []sppt.Node) int {
	ea := childEnds(a)
	eb := childEnds(b)
	for i := 0; i < len(ea) && i < len(eb); i++ {
		if c := compareInt(ea[i], eb[i]); c != 0 {
			return c
		}
	}
	return 0
}

func childEnds(children []sppt.Node) []int {
	ends := make([]int, 0, len(children))
	for _, c := range children {
		if c.IsSkip() {
			continue
		}
		ends = append(ends, c.End())
	}
	return ends
}

func compareInt(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}
