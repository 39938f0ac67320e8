package driver

import (
	"container/heap"
	"fmt"

	"github.com/beepsoft/net.akehurst.language/automaton"
	"github.com/beepsoft/net.akehurst.language/grammar"
	"github.com/beepsoft/net.akehurst.language/sppt"
)

type workKind int

const (
	workWidth workKind = iota
	workReduce
)

// work is a step of the parser: a WIDTH from a partial node or the reduction of a complete node
// into one of its previous nodes.
type work struct {
	kind workKind
	node nodeIdx
	prev nodeIdx
}

// positionHeap orders the positions that have pending work.
type positionHeap []int

func (h positionHeap) Len() int           { return len(h) }
func (h positionHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h positionHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *positionHeap) Push(x any) {
	*h = append(*h, x.(int))
}

func (h *positionHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type goal struct {
	done *completed
	skip []sppt.Node
	end  int
}

type embeddedKey struct {
	rule  *grammar.RuntimeRule
	pos   int
	guard *automaton.LookaheadSet
}

// rejectedChild is a terminal or embedded node that matched after a partial node but was not
// followed by any of the terminals its lookahead allows.
type rejectedChild struct {
	prev  nodeIdx
	done  *completed
	skip  []sppt.Node
	next  int
	guard *automaton.LookaheadSet
}

type skipResult struct {
	nodes []sppt.Node
	end   int
}

// runtimeParser grows the graph of one goal over one input. Work is bucketed by the input
// position it starts from and buckets are processed in increasing order, each up to a fixpoint.
// A bucket is a season.
type runtimeParser struct {
	run   *run
	actx  *automaton.Context
	ss    *automaton.StateSet
	in    *parseInput
	graph *parseGraph
	endLh *automaton.LookaheadSet

	// skipSet is nil for a parser of skip rules and for rule sets without skip rules.
	skipSet  *automaton.StateSet
	skips    map[int]*skipResult
	embedded map[embeddedKey]*completed

	buckets      map[int][]work
	positions    positionHeap
	goals        []*goal
	partialGoals []*goal
	rejected     []rejectedChild
	seasons      int
	maxNumHeads  int
	seasonLimit  int
}

func newRuntimeParser(r *run, actx *automaton.Context, ss *automaton.StateSet, in *parseInput, endLh *automaton.LookaheadSet, seasonLimit int) *runtimeParser {
	p := &runtimeParser{
		run:         r,
		actx:        actx,
		ss:          ss,
		in:          in,
		graph:       newParseGraph(in),
		endLh:       endLh,
		skips:       map[int]*skipResult{},
		embedded:    map[embeddedKey]*completed{},
		buckets:     map[int][]work{},
		seasonLimit: seasonLimit,
	}
	if !ss.IsSkip {
		p.skipSet = actx.SkipStateSet()
	}
	return p
}

func (p *runtimeParser) schedule(w work, pos int) {
	if _, ok := p.buckets[pos]; !ok {
		heap.Push(&p.positions, pos)
	}
	p.buckets[pos] = append(p.buckets[pos], w)
}

// parse runs the parser from the start state at start until no growth remains.
func (p *runtimeParser) parse(start int) error {
	s0, _ := p.graph.node(growingKey{
		state: p.ss.StartState,
		lh:    p.endLh,
		start: start,
		next:  start,
	})
	p.schedule(work{kind: workWidth, node: s0, prev: nilNode}, start)

	for p.positions.Len() > 0 {
		pos := heap.Pop(&p.positions).(int)
		p.seasons++
		if p.seasonLimit > 0 && p.seasons > p.seasonLimit {
			return &InterruptedError{
				Message: fmt.Sprintf("the parse exceeded the limit of %v seasons", p.seasonLimit),
			}
		}
		for i := 0; i < len(p.buckets[pos]); i++ {
			if err := p.run.check(); err != nil {
				return err
			}
			w := p.buckets[pos][i]
			var err error
			switch w.kind {
			case workWidth:
				err = p.width(w.node)
			case workReduce:
				p.reduce(w.node, w.prev)
			}
			if err != nil {
				return err
			}
		}
		delete(p.buckets, pos)
		if heads := p.graph.heads[pos]; heads > p.maxNumHeads {
			p.maxNumHeads = heads
		}
	}
	return nil
}

func (p *runtimeParser) width(idx nodeIdx) error {
	n := p.graph.get(idx)
	for _, tr := range p.ss.Transitions(n.key.state, nil) {
		var done *completed
		guard := p.actx.Resolve(tr.Lookahead, n.key.lh)
		switch tr.Action {
		case automaton.ActionWidth:
			done = p.in.leaf(tr.To.Rule(), n.key.next)
		case automaton.ActionEmbed:
			var err error
			done, err = p.embed(tr.To.Rule(), n.key.next, guard)
			if err != nil {
				return err
			}
		default:
			continue
		}
		if done == nil {
			continue
		}

		skip, err := p.skipAt(done.node.End())
		if err != nil {
			return err
		}
		if !p.lookaheadMatches(guard, skip.end) {
			p.reject(rejectedChild{
				prev:  idx,
				done:  done,
				skip:  skip.nodes,
				next:  skip.end,
				guard: guard,
			})
			continue
		}
		c := p.addComplete(growingKey{
			state: tr.To,
			start: n.key.next,
			next:  skip.end,
		}, done, skip.nodes)
		p.addPrevious(c, idx)
	}
	return nil
}

func (p *runtimeParser) reduce(cIdx, pIdx nodeIdx) {
	c := p.graph.get(cIdx)
	prev := p.graph.get(pIdx)
	emptyChild := c.done.node.MatchedLength() == 0
	for _, tr := range p.ss.Transitions(c.key.state, prev.key.state) {
		guard := p.actx.Resolve(tr.Lookahead, prev.key.lh)
		switch tr.Action {
		case automaton.ActionHeight:
			if !p.lookaheadMatches(guard, c.key.next) {
				continue
			}
			d := derivation{
				option: tr.Option,
				left:   nilNode,
				child:  c.done,
				skip:   c.skip,
			}
			var r nodeIdx
			if tr.To.IsAtEnd() {
				r = p.complete(tr.To, c.key.start, c.key.next, d)
			} else {
				r = p.addPartial(growingKey{
					state: tr.To,
					lh:    p.actx.Resolve(tr.UpLookahead, prev.key.lh),
					start: c.key.start,
					next:  c.key.next,
					count: 1,
				}, d)
			}
			p.addPrevious(r, pIdx)
		case automaton.ActionGraft:
			if !tr.AllowsChildren(prev.key.count, emptyChild) {
				continue
			}
			matched := p.lookaheadMatches(guard, c.key.next)
			if tr.To.IsGoal() {
				g := &goal{
					done: c.done,
					skip: c.skip,
					end:  c.key.next,
				}
				if matched {
					p.goals = append(p.goals, g)
				} else {
					p.partialGoals = append(p.partialGoals, g)
				}
				continue
			}
			if !matched {
				continue
			}
			d := derivation{
				option: tr.Option,
				left:   pIdx,
				child:  c.done,
				skip:   c.skip,
			}
			var r nodeIdx
			if tr.To.IsAtEnd() {
				r = p.complete(tr.To, prev.key.start, c.key.next, d)
			} else {
				r = p.addPartial(growingKey{
					state: tr.To,
					lh:    prev.key.lh,
					start: prev.key.start,
					next:  c.key.next,
					count: prev.key.count + 1,
				}, d)
			}
			p.inherit(r, pIdx)
		}
	}
}

// reject remembers the rejected children that reached furthest.
func (p *runtimeParser) reject(r rejectedChild) {
	if len(p.rejected) > 0 {
		switch {
		case r.next < p.rejected[0].next:
			return
		case r.next > p.rejected[0].next:
			p.rejected = p.rejected[:0]
		}
	}
	p.rejected = append(p.rejected, r)
}

func (p *runtimeParser) addPartial(key growingKey, d derivation) nodeIdx {
	idx, created := p.graph.node(key)
	p.graph.get(idx).addDerivation(d)
	if created {
		p.schedule(work{kind: workWidth, node: idx, prev: nilNode}, key.next)
	}
	return idx
}

func (p *runtimeParser) addComplete(key growingKey, done *completed, skip []sppt.Node) nodeIdx {
	idx, created := p.graph.node(key)
	if created {
		n := p.graph.get(idx)
		n.done = done
		n.skip = skip
	}
	return idx
}

// complete records a derivation of the rule of the end state over [start, end).
func (p *runtimeParser) complete(end *automaton.ParserState, start, next int, d derivation) nodeIdx {
	done := p.graph.branch(end.Rule(), start, next)
	done.addDerivation(d)
	return p.addComplete(growingKey{
		state: end,
		start: start,
		next:  next,
	}, done, nil)
}

// addPrevious links a node to a previous node. A complete node is reduced into every previous
// node it gets.
func (p *runtimeParser) addPrevious(idx, prev nodeIdx) {
	n := p.graph.get(idx)
	if _, ok := n.prevSet[prev]; ok {
		return
	}
	n.prevSet[prev] = struct{}{}
	n.previous = append(n.previous, prev)
	if n.isComplete() {
		p.schedule(work{kind: workReduce, node: idx, prev: prev}, n.key.next)
	}
	for _, i := range n.inheritors {
		p.addPrevious(i, prev)
	}
}

// inherit makes idx share every previous node of from, now and later.
func (p *runtimeParser) inherit(idx, from nodeIdx) {
	f := p.graph.get(from)
	if _, ok := f.inherits[idx]; ok {
		return
	}
	f.inherits[idx] = struct{}{}
	f.inheritors = append(f.inheritors, idx)
	for _, prev := range f.previous {
		p.addPrevious(idx, prev)
	}
}

func (p *runtimeParser) lookaheadMatches(s *automaton.LookaheadSet, pos int) bool {
	if s.IncludesAny {
		return true
	}
	for _, t := range s.Content {
		if p.in.matches(t, pos) {
			return true
		}
	}
	return false
}

// skipAt matches the longest sequence of skip rules at pos.
func (p *runtimeParser) skipAt(pos int) (*skipResult, error) {
	if r, ok := p.skips[pos]; ok {
		return r, nil
	}
	r := &skipResult{
		end: pos,
	}
	if p.skipSet != nil && p.skipStartsAt(pos) {
		np := newRuntimeParser(p.run, p.actx, p.skipSet, p.in, p.actx.AnyLookahead(), 0)
		if err := np.parse(pos); err != nil {
			return nil, err
		}
		if g := np.longestGoal(); g != nil {
			np.graph.seal(g.done)
			r.nodes = flattenSkip(g.done.node)
			r.end = g.end
		}
	}
	p.skips[pos] = r
	return r, nil
}

func (p *runtimeParser) skipStartsAt(pos int) bool {
	for _, t := range p.skipSet.UserGoal.FirstTerminals() {
		if p.in.matches(t, pos) {
			return true
		}
	}
	return false
}

// flattenSkip turns the tree of the skip goal into the sequence of skip rule nodes it matched.
func flattenSkip(n sppt.Node) []sppt.Node {
	b, ok := n.AsBranch()
	if !ok {
		return []sppt.Node{n}
	}
	switch b.Rule().Number {
	case grammar.SkipMultiRuleNumber, grammar.SkipChoiceRuleNumber:
		var nodes []sppt.Node
		for _, c := range b.Children() {
			nodes = append(nodes, flattenSkip(c)...)
		}
		return nodes
	}
	return []sppt.Node{n}
}

// embed parses the start rule of an embedded rule set at pos and wraps the longest match in a
// branch of the embedded rule.
func (p *runtimeParser) embed(rule *grammar.RuntimeRule, pos int, guard *automaton.LookaheadSet) (*completed, error) {
	key := embeddedKey{rule, pos, guard}
	if done, ok := p.embedded[key]; ok {
		return done, nil
	}
	ectx := p.actx.Embedded(rule.EmbeddedRuleSet)
	ess := ectx.StateSet(rule.EmbeddedStartRule)
	np := newRuntimeParser(p.run, ectx, ess, p.in, ectx.Import(guard), p.seasonLimit)
	root, _, err := np.parseLongest(pos)
	if err != nil {
		return nil, err
	}
	var done *completed
	if root != nil {
		done = p.graph.wrap(rule, root)
	}
	p.embedded[key] = done
	return done, nil
}

// parseLongest parses from pos, skipping leading skip nodes, and returns the tree of the longest
// goal, or nil when there is none.
func (p *runtimeParser) parseLongest(pos int) (sppt.Node, int, error) {
	skip, err := p.skipAt(pos)
	if err != nil {
		return nil, 0, err
	}
	if err := p.parse(skip.end); err != nil {
		return nil, 0, err
	}
	g := p.longestGoal()
	if g == nil {
		return nil, 0, nil
	}
	return p.result(g, pos, skip.nodes), g.end, nil
}

func (p *runtimeParser) longestGoal() *goal {
	var longest *goal
	for _, g := range p.goals {
		if longest == nil || g.end > longest.end {
			longest = g
		}
	}
	return longest
}

func (p *runtimeParser) goalAt(end int) *goal {
	for _, g := range p.goals {
		if g.end == end {
			return g
		}
	}
	return nil
}

func (p *runtimeParser) longestPartialGoal() *goal {
	var longest *goal
	for _, g := range p.partialGoals {
		if longest == nil || g.end > longest.end {
			longest = g
		}
	}
	return longest
}

// result seals the tree of a goal. A branch root starting after leading skip nodes is replaced by
// a branch of the same rule covering them.
func (p *runtimeParser) result(g *goal, start int, leading []sppt.Node) sppt.Node {
	p.graph.seal(g.done)
	root := g.done.node
	b, ok := root.AsBranch()
	if !ok || (len(leading) == 0 && len(g.skip) == 0) {
		return root
	}
	wrapped := sppt.NewBranch(b.Rule(), start, p.in.text[start:g.end])
	for _, alt := range b.ChildrenAlternatives() {
		children := make([]sppt.Node, 0, len(leading)+len(alt)+len(g.skip))
		children = append(children, leading...)
		children = append(children, alt...)
		children = append(children, g.skip...)
		wrapped.AddAlternative(children)
	}
	wrapped.SetPriority(b.Priority())
	return wrapped
}
