package automaton

import (
	"fmt"

	"github.com/beepsoft/net.akehurst.language/grammar"
)

type stateNum int

const stateNumInitial = stateNum(0)

func (n stateNum) Int() int {
	return int(n)
}

func (n stateNum) String() string {
	return fmt.Sprintf("%v", int(n))
}

func (n stateNum) next() stateNum {
	return stateNum(n + 1)
}

// ParserState is a rule position inside one state set. End positions are shared by all options
// of a rule.
type ParserState struct {
	Number       int
	RulePosition grammar.RulePosition
	StateSet     *StateSet
}

func (s *ParserState) String() string {
	return fmt.Sprintf("%v/%v", s.Number, s.RulePosition)
}

func (s *ParserState) Rule() *grammar.RuntimeRule {
	return s.RulePosition.Rule
}

func (s *ParserState) IsAtEnd() bool {
	return s.RulePosition.IsAtEnd()
}

func (s *ParserState) IsGoal() bool {
	return s.RulePosition.Rule.IsGoal()
}

type transitionKey struct {
	from *ParserState
	prev *ParserState
}

// StateSet is the automaton parsing one goal rule, either of the user grammar or of its skip rules.
// States and transitions are created on demand and memoized.
type StateSet struct {
	Number     int
	UserGoal   *grammar.RuntimeRule
	Goal       *grammar.RuntimeRule
	IsSkip     bool
	StartState *ParserState

	ctx         *Context
	preBuilt    bool
	currentNum  stateNum
	states      map[grammar.RulePosition]*ParserState
	stateList   []*ParserState
	closures    map[*ParserState][]*closureItem
	firsts      map[grammar.RulePosition]*firstOfEntry
	transitions map[transitionKey][]*Transition
	keys        []transitionKey
}

func newStateSet(ctx *Context, num int, userGoal *grammar.RuntimeRule, isSkip bool) *StateSet {
	ss := &StateSet{
		Number:      num,
		UserGoal:    userGoal,
		Goal:        grammar.NewGoalRule(userGoal),
		IsSkip:      isSkip,
		ctx:         ctx,
		currentNum:  stateNumInitial,
		states:      map[grammar.RulePosition]*ParserState{},
		closures:    map[*ParserState][]*closureItem{},
		firsts:      map[grammar.RulePosition]*firstOfEntry{},
		transitions: map[transitionKey][]*Transition{},
	}
	ss.StartState = ss.state(grammar.StartPositions(ss.Goal)[0])
	return ss
}

func (ss *StateSet) Context() *Context {
	return ss.ctx
}

// state returns the state of a position. The caller must hold the context lock or own the state
// set exclusively.
func (ss *StateSet) state(rp grammar.RulePosition) *ParserState {
	if rp.IsAtEnd() {
		rp = grammar.EndPosition(rp.Rule)
	}
	if s, ok := ss.states[rp]; ok {
		return s
	}
	s := &ParserState{
		Number:       ss.currentNum.Int(),
		RulePosition: rp,
		StateSet:     ss,
	}
	ss.currentNum = ss.currentNum.next()
	ss.states[rp] = s
	ss.stateList = append(ss.stateList, s)
	return s
}

// State returns the state of a position, creating it when it is not known yet.
func (ss *StateSet) State(rp grammar.RulePosition) *ParserState {
	ss.ctx.mu.Lock()
	defer ss.ctx.mu.Unlock()
	return ss.state(rp)
}

// States returns the states created so far in creation order.
func (ss *StateSet) States() []*ParserState {
	ss.ctx.mu.Lock()
	defer ss.ctx.mu.Unlock()
	states := make([]*ParserState, len(ss.stateList))
	copy(states, ss.stateList)
	return states
}

// Build creates every state reachable from the start state together with its transitions.
// Parsing does not need it; transitions are otherwise computed when a parse first reaches them.
func (ss *StateSet) Build() {
	ss.ctx.mu.Lock()
	defer ss.ctx.mu.Unlock()
	if ss.preBuilt {
		return
	}

	knownMids := map[*ParserState]struct{}{
		ss.StartState: {},
	}
	uncheckedMids := []*ParserState{ss.StartState}
	for len(uncheckedMids) > 0 {
		nextUncheckedMids := []*ParserState{}
		for _, mid := range uncheckedMids {
			ss.transitionsOf(mid, nil)
			for _, r := range ss.completableRules(mid) {
				end := ss.state(grammar.EndPosition(r))
				for _, t := range ss.transitionsOf(end, mid) {
					if t.To.IsAtEnd() {
						ss.transitionsOf(t.To, nil)
						continue
					}
					if _, known := knownMids[t.To]; known {
						continue
					}
					knownMids[t.To] = struct{}{}
					nextUncheckedMids = append(nextUncheckedMids, t.To)
				}
			}
		}
		uncheckedMids = nextUncheckedMids
	}
	ss.transitionsOf(ss.state(grammar.EndPosition(ss.Goal)), nil)

	ss.preBuilt = true
}

// completableRules returns the rules whose completion can take mid as the previous state.
func (ss *StateSet) completableRules(mid *ParserState) []*grammar.RuntimeRule {
	var rules []*grammar.RuntimeRule
	known := map[*grammar.RuntimeRule]struct{}{}
	add := func(r *grammar.RuntimeRule) {
		if r == nil {
			return
		}
		if _, ok := known[r]; ok {
			return
		}
		known[r] = struct{}{}
		rules = append(rules, r)
	}
	add(mid.RulePosition.Item())
	for _, ci := range ss.closure(mid) {
		add(ci.rp.Item())
	}
	return rules
}
