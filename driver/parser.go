package driver

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/beepsoft/net.akehurst.language/automaton"
	"github.com/beepsoft/net.akehurst.language/grammar"
	"github.com/beepsoft/net.akehurst.language/sppt"
)

type ParserOption func(p *Parser) error

// AutomatonContext makes the parser use automata built by other parsers of the same rule set.
func AutomatonContext(actx *automaton.Context) ParserOption {
	return func(p *Parser) error {
		if actx.RuleSet() != p.ruleSet {
			return fmt.Errorf("the automaton context belongs to another rule set: %v", actx.RuleSet().Name)
		}
		p.actx = actx
		return nil
	}
}

// SeasonLimit stops a parse working on more than limit input positions. 0 means no limit.
func SeasonLimit(limit int) ParserOption {
	return func(p *Parser) error {
		if limit < 0 {
			return fmt.Errorf("a season limit must be 0 or greater: %v", limit)
		}
		p.seasonLimit = limit
		return nil
	}
}

// run is one call of Parse.
type run struct {
	ctx     context.Context
	message atomic.Pointer[string]
}

func (r *run) check() error {
	if msg := r.message.Load(); msg != nil {
		return &InterruptedError{
			Message: *msg,
		}
	}
	if err := r.ctx.Err(); err != nil {
		return &InterruptedError{
			Message: err.Error(),
			Cause:   err,
		}
	}
	return nil
}

// Parser parses texts with the rules of one rule set. Automata are built on demand and kept for
// later parses. A Parser may be used by several goroutines at once.
type Parser struct {
	ruleSet     *grammar.RuleSet
	actx        *automaton.Context
	seasonLimit int

	mu   sync.Mutex
	runs map[*run]struct{}
}

func NewParser(rs *grammar.RuleSet, opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		ruleSet: rs,
		runs:    map[*run]struct{}{},
	}

	for _, opt := range opts {
		err := opt(p)
		if err != nil {
			return nil, err
		}
	}

	if p.actx == nil {
		p.actx = automaton.NewContext(rs)
	}

	return p, nil
}

func (p *Parser) RuleSet() *grammar.RuleSet {
	return p.ruleSet
}

func (p *Parser) Context() *automaton.Context {
	return p.actx
}

// StateSet returns the automaton of a goal rule.
func (p *Parser) StateSet(goalTag string) (*automaton.StateSet, error) {
	goal, err := p.goal(goalTag)
	if err != nil {
		return nil, err
	}
	return p.actx.StateSet(goal), nil
}

func (p *Parser) goal(goalTag string) (*grammar.RuntimeRule, error) {
	goal, ok := p.ruleSet.FindByTag(goalTag)
	if !ok || goal.IsEmptyRule {
		return nil, fmt.Errorf("undefined goal rule: %v", goalTag)
	}
	return goal, nil
}

// Interrupt stops every parse currently running with an InterruptedError carrying message.
func (p *Parser) Interrupt(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for r := range p.runs {
		r.message.Store(&message)
	}
}

func (p *Parser) startRun(ctx context.Context) *run {
	r := &run{
		ctx: ctx,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs[r] = struct{}{}
	return r
}

func (p *Parser) endRun(r *run) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, r)
}

// Parse parses the whole input with the rule goalTag. It returns a *ParseFailedError when the rule
// does not match the input and an *InterruptedError when the parse was stopped.
func (p *Parser) Parse(ctx context.Context, goalTag string, input string) (*sppt.Tree, error) {
	goal, err := p.goal(goalTag)
	if err != nil {
		return nil, err
	}
	r := p.startRun(ctx)
	defer p.endRun(r)

	in := newParseInput(input)
	rp := newRuntimeParser(r, p.actx, p.actx.StateSet(goal), in, p.actx.EndOfTextLookahead(), p.seasonLimit)
	leading, err := rp.skipAt(0)
	if err != nil {
		return nil, err
	}
	if err := rp.parse(leading.end); err != nil {
		return nil, err
	}

	if g := rp.goalAt(len(input)); g != nil {
		return &sppt.Tree{
			Root:        rp.result(g, 0, leading.nodes),
			Seasons:     rp.seasons,
			MaxNumHeads: rp.maxNumHeads,
		}, nil
	}
	return nil, rp.failure(goal, leading)
}

// failure describes why no goal covers the whole input. The failure is reported where the parse
// got furthest, counting children whose lookahead did not match; a goal followed by unexpected text
// is reported at its end when nothing got further.
func (p *runtimeParser) failure(userGoal *grammar.RuntimeRule, leading *skipResult) *ParseFailedError {
	pos, nodes := p.graph.furthest()
	var rejected []rejectedChild
	if len(p.rejected) > 0 && p.rejected[0].next >= pos {
		if p.rejected[0].next > pos {
			pos = p.rejected[0].next
			nodes = nil
		}
		rejected = p.rejected
	}

	if g := p.longestPartialGoal(); g != nil && g.end >= pos {
		return &ParseFailedError{
			Message:           fmt.Sprintf("goal does not match the full text; %v", p.describeAt(g.end)),
			Location:          p.in.location(g.end),
			ExpectedTerminals: p.expectedAt(g.end, nil),
			LongestMatch:      p.result(g, 0, leading.nodes),
		}
	}

	var longest sppt.Node
	consider := func(start int, tree func() sppt.Node) {
		if longest != nil && start >= longest.Start() {
			return
		}
		longest = tree()
	}
	for _, idx := range nodes {
		idx := idx
		n := p.graph.get(idx)
		if !n.isComplete() {
			consider(n.key.start, func() sppt.Node { return p.partialTree(userGoal, idx, nil) })
			continue
		}
		for _, prev := range n.previous {
			prev := prev
			pn := p.graph.get(prev)
			if pn.key.state.IsGoal() {
				consider(n.key.start, func() sppt.Node { return p.partialTree(userGoal, idx, nil) })
				continue
			}
			last := &lastChild{
				done: n.done,
				skip: n.skip,
				next: n.key.next,
			}
			consider(pn.key.start, func() sppt.Node { return p.partialTree(userGoal, prev, last) })
		}
	}
	for _, r := range rejected {
		r := r
		pn := p.graph.get(r.prev)
		if pn.key.state.IsGoal() {
			consider(r.done.node.Start(), func() sppt.Node { return r.done.node })
			continue
		}
		last := &lastChild{
			done: r.done,
			skip: r.skip,
			next: r.next,
		}
		consider(pn.key.start, func() sppt.Node { return p.partialTree(userGoal, r.prev, last) })
	}
	return &ParseFailedError{
		Message:           p.describeAt(pos),
		Location:          p.in.location(pos),
		ExpectedTerminals: p.expectedAt(pos, rejected),
		LongestMatch:      longest,
	}
}

func (p *runtimeParser) describeAt(pos int) string {
	if pos >= len(p.in.text) {
		return "unexpected end of text"
	}
	c, _ := utf8.DecodeRuneInString(p.in.text[pos:])
	return fmt.Sprintf("unexpected character %q", c)
}

// lastChild is a child appended to the children of a partial node.
type lastChild struct {
	done *completed
	skip []sppt.Node
	next int
}

// partialTree builds the tree of a growing node. A partial node yields a branch of its rule holding
// the children matched so far, followed by last when there is one. The start node yields an empty
// branch of the goal.
func (p *runtimeParser) partialTree(userGoal *grammar.RuntimeRule, idx nodeIdx, last *lastChild) sppt.Node {
	n := p.graph.get(idx)
	switch {
	case n.isComplete():
		p.graph.seal(n.done)
		return n.done.node
	case n.key.state.IsGoal():
		return sppt.NewBranch(userGoal, n.key.start, "")
	}
	var children []sppt.Node
	if lists := p.graph.expand(idx, map[nodeIdx][][]sppt.Node{}); len(lists) > 0 {
		children = append(children, lists[0]...)
	}
	end := n.key.next
	if last != nil {
		children = append(children, last.done.node)
		children = append(children, last.skip...)
		end = last.next
	}
	for _, child := range children {
		if c, ok := p.graph.completed[sppt.IdentityOf(child)]; ok && c.node == child {
			p.graph.seal(c)
		}
	}
	b := sppt.NewBranch(n.key.state.Rule(), n.key.start, p.in.text[n.key.start:end])
	if len(children) > 0 {
		b.AddAlternative(children)
	}
	return b
}

// expectedAt returns the terminals that would have let the nodes at pos and the rejected children
// grow.
func (p *runtimeParser) expectedAt(pos int, rejected []rejectedChild) []string {
	known := map[string]struct{}{}
	add := func(s *automaton.LookaheadSet) {
		for _, t := range s.Content {
			known[t.Tag] = struct{}{}
		}
	}
	for _, r := range rejected {
		add(r.guard)
	}
	for _, n := range p.graph.nodes {
		if n.key.next != pos {
			continue
		}
		if !n.isComplete() {
			for _, tr := range p.ss.Transitions(n.key.state, nil) {
				if tr.Action == automaton.ActionWidth || tr.Action == automaton.ActionEmbed {
					for _, t := range tr.To.Rule().FirstTerminals() {
						known[t.Tag] = struct{}{}
					}
				}
			}
			continue
		}
		for _, prev := range n.previous {
			pn := p.graph.get(prev)
			for _, tr := range p.ss.Transitions(n.key.state, pn.key.state) {
				add(p.actx.Resolve(tr.Lookahead, pn.key.lh))
			}
		}
	}
	var expected []string
	for tag := range known {
		expected = append(expected, tag)
	}
	sort.Strings(expected)
	return expected
}
