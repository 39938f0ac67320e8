package automaton

import (
	"sync"

	"github.com/beepsoft/net.akehurst.language/grammar"
)

// Context owns the automata of one compiled rule set: a state set per goal, the skip state set,
// the interned lookahead sets and the contexts of embedded rule sets. A context may be shared by
// parsers running concurrently; its lazily filled tables are guarded by a mutex.
type Context struct {
	Number int

	ruleSet   *grammar.RuleSet
	mu        sync.Mutex
	pool      *lookaheadPool
	stateSets map[*grammar.RuntimeRule]*StateSet
	skipSet   *StateSet
	embedded  map[*grammar.RuleSet]*Context
	numbers   *contextNumbers
}

type contextNumbers struct {
	mu   sync.Mutex
	next int
}

func (n *contextNumbers) take() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	num := n.next
	n.next++
	return num
}

func NewContext(rs *grammar.RuleSet) *Context {
	return newContext(rs, &contextNumbers{})
}

func newContext(rs *grammar.RuleSet, numbers *contextNumbers) *Context {
	num := numbers.take()
	return &Context{
		Number:    num,
		ruleSet:   rs,
		pool:      newLookaheadPool(num),
		stateSets: map[*grammar.RuntimeRule]*StateSet{},
		embedded:  map[*grammar.RuleSet]*Context{},
		numbers:   numbers,
	}
}

func (c *Context) RuleSet() *grammar.RuleSet {
	return c.ruleSet
}

// StateSet returns the automaton parsing userGoal, creating it on first use.
func (c *Context) StateSet(userGoal *grammar.RuntimeRule) *StateSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ss, ok := c.stateSets[userGoal]; ok {
		return ss
	}
	ss := newStateSet(c, len(c.stateSets), userGoal, false)
	c.stateSets[userGoal] = ss
	return ss
}

// SkipStateSet returns the automaton of the skip rules, or nil when the rule set has none.
func (c *Context) SkipStateSet() *StateSet {
	skip := c.ruleSet.SkipMulti()
	if skip == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.skipSet == nil {
		c.skipSet = newStateSet(c, -1, skip, true)
	}
	return c.skipSet
}

// Embedded returns the context of a rule set embedded in this one.
func (c *Context) Embedded(rs *grammar.RuleSet) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.embedded[rs]; ok {
		return e
	}
	e := newContext(rs, c.numbers)
	c.embedded[rs] = e
	return e
}

func (c *Context) EmptyLookahead() *LookaheadSet {
	return c.pool.empty
}

func (c *Context) EndOfTextLookahead() *LookaheadSet {
	return c.pool.eot
}

func (c *Context) AnyLookahead() *LookaheadSet {
	return c.pool.any
}

// Resolve replaces the UP marker of s by parent.
func (c *Context) Resolve(s, parent *LookaheadSet) *LookaheadSet {
	if !s.IncludesUp {
		return s
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pool.resolve(s, parent)
}

// Import interns a set of another context in this one.
func (c *Context) Import(s *LookaheadSet) *LookaheadSet {
	if s.ctxNumber == c.Number {
		return s
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pool.intern(s.Content, s.IncludesUp, s.IncludesAny)
}
