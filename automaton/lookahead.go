package automaton

import (
	"fmt"
	"strings"

	"github.com/beepsoft/net.akehurst.language/grammar"
)

// LookaheadSet is a set of terminals guarding a transition. Sets are interned per Context, so two
// sets of one context are equal exactly when they are the same pointer.
//
// IncludesUp marks a set that is completed by the lookahead of the node a transition starts from.
// IncludesAny marks a set that accepts any input.
type LookaheadSet struct {
	Number      int
	Content     []*grammar.RuntimeRule
	IncludesUp  bool
	IncludesAny bool

	ctxNumber int
}

func (s *LookaheadSet) String() string {
	var b strings.Builder
	b.WriteString("{")
	sep := ""
	if s.IncludesUp {
		b.WriteString("UP")
		sep = ", "
	}
	if s.IncludesAny {
		fmt.Fprintf(&b, "%vANY", sep)
		sep = ", "
	}
	for _, t := range s.Content {
		fmt.Fprintf(&b, "%v%v", sep, t.Tag)
		sep = ", "
	}
	b.WriteString("}")
	return b.String()
}

func (s *LookaheadSet) IsEmpty() bool {
	return len(s.Content) == 0 && !s.IncludesUp && !s.IncludesAny
}

func (s *LookaheadSet) Contains(t *grammar.RuntimeRule) bool {
	for _, c := range s.Content {
		if c == t {
			return true
		}
	}
	return false
}

type lookaheadPool struct {
	ctxNumber int
	sets      map[string]*LookaheadSet
	list      []*LookaheadSet
	empty     *LookaheadSet
	up        *LookaheadSet
	any       *LookaheadSet
	eot       *LookaheadSet
}

func newLookaheadPool(ctxNumber int) *lookaheadPool {
	p := &lookaheadPool{
		ctxNumber: ctxNumber,
		sets:      map[string]*LookaheadSet{},
	}
	p.empty = p.intern(nil, false, false)
	p.up = p.intern(nil, true, false)
	p.any = p.intern(nil, false, true)
	p.eot = p.intern([]*grammar.RuntimeRule{grammar.EndOfText}, false, false)
	return p
}

func lookaheadKey(content []*grammar.RuntimeRule, up, any bool) string {
	var b strings.Builder
	if up {
		b.WriteString("U")
	}
	if any {
		b.WriteString("A")
	}
	for _, t := range content {
		fmt.Fprintf(&b, ",%v:%v", t.RuleSet().ID(), t.Number)
	}
	return b.String()
}

// intern returns the unique set with the given content. content must be sorted and free of duplicates.
func (p *lookaheadPool) intern(content []*grammar.RuntimeRule, up, any bool) *LookaheadSet {
	key := lookaheadKey(content, up, any)
	if s, ok := p.sets[key]; ok {
		return s
	}
	s := &LookaheadSet{
		Number:      len(p.list),
		Content:     content,
		IncludesUp:  up,
		IncludesAny: any,
		ctxNumber:   p.ctxNumber,
	}
	p.sets[key] = s
	p.list = append(p.list, s)
	return s
}

// build interns a set from unsorted terminals that may contain duplicates.
func (p *lookaheadPool) build(terms []*grammar.RuntimeRule, up, any bool) *LookaheadSet {
	content := make([]*grammar.RuntimeRule, 0, len(terms))
	known := map[*grammar.RuntimeRule]struct{}{}
	for _, t := range terms {
		if _, ok := known[t]; ok {
			continue
		}
		known[t] = struct{}{}
		content = append(content, t)
	}
	grammar.SortRules(content)
	return p.intern(content, up, any)
}

func (p *lookaheadPool) union(a, b *LookaheadSet) *LookaheadSet {
	switch {
	case a == b || b.IsEmpty():
		return a
	case a.IsEmpty():
		return b
	}
	terms := make([]*grammar.RuntimeRule, 0, len(a.Content)+len(b.Content))
	terms = append(terms, a.Content...)
	terms = append(terms, b.Content...)
	return p.build(terms, a.IncludesUp || b.IncludesUp, a.IncludesAny || b.IncludesAny)
}

// resolve replaces the UP marker of s by the content of parent.
func (p *lookaheadPool) resolve(s, parent *LookaheadSet) *LookaheadSet {
	if !s.IncludesUp {
		return s
	}
	withoutUp := p.intern(s.Content, false, s.IncludesAny)
	if parent == nil {
		return withoutUp
	}
	return p.union(withoutUp, parent)
}
