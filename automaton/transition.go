package automaton

import (
	"fmt"

	"github.com/beepsoft/net.akehurst.language/grammar"
)

type Action int

const (
	ActionWidth Action = iota
	ActionHeight
	ActionGraft
	ActionGoal
	ActionEmbed
)

func (a Action) String() string {
	switch a {
	case ActionWidth:
		return "WIDTH"
	case ActionHeight:
		return "HEIGHT"
	case ActionGraft:
		return "GRAFT"
	case ActionGoal:
		return "GOAL"
	case ActionEmbed:
		return "EMBED"
	}
	return fmt.Sprintf("<unknown action: %d>", int(a))
}

// Transition is an edge of the automaton.
//
// Lookahead must be matched at the input position reached by the transition; UP in it stands for the
// lookahead carried by the previous node (or by the node itself for WIDTH and EMBED).
// UpLookahead is the lookahead carried by the node a HEIGHT or GRAFT creates.
// PrevGuard is the position of the previous state a GRAFT appends a child to; HEIGHT has none.
type Transition struct {
	From        *ParserState
	To          *ParserState
	Option      int
	Action      Action
	Lookahead   *LookaheadSet
	UpLookahead *LookaheadSet
	PrevGuard   *grammar.RulePosition

	target grammar.RulePosition
}

func (t *Transition) String() string {
	return fmt.Sprintf("%v -%v-> %v %v", t.From, t.Action, t.To, t.Lookahead)
}

// Target returns the position reached, keeping the option at the end of a rule.
func (t *Transition) Target() grammar.RulePosition {
	return t.target
}

// AllowsChildren is the runtime guard of a GRAFT: it enforces the cardinality of lists given the
// number of non-skip children the previous node already has.
func (t *Transition) AllowsChildren(children int, emptyChild bool) bool {
	if t.PrevGuard == nil {
		return true
	}
	return t.PrevGuard.Allows(t.target, children, emptyChild)
}

// Transitions returns the transitions from a state. With a nil previous state it returns the
// context-free WIDTH, EMBED and GOAL transitions; with a previous state it returns the HEIGHT and
// GRAFT transitions of a completed rule growing into that state.
func (ss *StateSet) Transitions(from, prev *ParserState) []*Transition {
	ss.ctx.mu.Lock()
	defer ss.ctx.mu.Unlock()
	return ss.transitionsOf(from, prev)
}

func (ss *StateSet) transitionsOf(from, prev *ParserState) []*Transition {
	key := transitionKey{from, prev}
	if ts, ok := ss.transitions[key]; ok {
		return ts
	}

	var ts []*Transition
	switch {
	case prev == nil && from.IsAtEnd():
		if from.IsGoal() {
			ts = []*Transition{
				{
					From:        from,
					To:          from,
					Action:      ActionGoal,
					Lookahead:   ss.ctx.pool.empty,
					UpLookahead: ss.ctx.pool.empty,
					target:      from.RulePosition,
				},
			}
		}
	case prev == nil:
		ts = ss.genWidthTransitions(from)
	case from.IsAtEnd():
		ts = append(ss.genGraftTransitions(from, prev), ss.genHeightTransitions(from, prev)...)
	}

	ss.transitions[key] = ts
	ss.keys = append(ss.keys, key)
	return ts
}

func (ss *StateSet) genWidthTransitions(from *ParserState) []*Transition {
	var ts []*Transition
	byTerm := map[*grammar.RuntimeRule]*Transition{}
	add := func(rp grammar.RulePosition, inherited *LookaheadSet) {
		item := rp.Item()
		if item == nil || (!item.IsTerminal() && !item.IsEmbedded()) {
			return
		}
		lookahead := ss.expectedAfter(rp, inherited)
		if t, ok := byTerm[item]; ok {
			t.Lookahead = ss.ctx.pool.union(t.Lookahead, lookahead)
			return
		}
		action := ActionWidth
		if item.IsEmbedded() {
			action = ActionEmbed
		}
		end := grammar.EndPosition(item)
		t := &Transition{
			From:        from,
			To:          ss.state(end),
			Action:      action,
			Lookahead:   lookahead,
			UpLookahead: ss.ctx.pool.empty,
			target:      end,
		}
		byTerm[item] = t
		ts = append(ts, t)
	}

	add(from.RulePosition, ss.ctx.pool.up)
	for _, ci := range ss.closure(from) {
		add(ci.rp, ci.lookahead)
	}
	return ts
}

// genGraftTransitions appends the completed rule of from to the previous state when the previous
// state expects it.
func (ss *StateSet) genGraftTransitions(from, prev *ParserState) []*Transition {
	prevRP := prev.RulePosition
	if prevRP.Item() != from.Rule() {
		return nil
	}
	var ts []*Transition
	for _, next := range prevRP.Next() {
		guard := prevRP
		ts = append(ts, &Transition{
			From:        from,
			To:          ss.state(next),
			Option:      next.Option,
			Action:      ActionGraft,
			Lookahead:   ss.lookaheadAt(next, ss.ctx.pool.up),
			UpLookahead: ss.ctx.pool.up,
			PrevGuard:   &guard,
			target:      next,
		})
	}
	return ts
}

// genHeightTransitions starts every rule predicted by the previous state whose first item is the
// completed rule of from.
func (ss *StateSet) genHeightTransitions(from, prev *ParserState) []*Transition {
	var ts []*Transition
	byTarget := map[grammar.RulePosition]*Transition{}
	for _, ci := range ss.closure(prev) {
		if ci.rp.Item() != from.Rule() {
			continue
		}
		for _, next := range ci.rp.Next() {
			if !ci.rp.Allows(next, 0, false) {
				continue
			}
			lookahead := ss.lookaheadAt(next, ci.lookahead)
			if t, ok := byTarget[next]; ok {
				t.Lookahead = ss.ctx.pool.union(t.Lookahead, lookahead)
				t.UpLookahead = ss.ctx.pool.union(t.UpLookahead, ci.lookahead)
				continue
			}
			t := &Transition{
				From:        from,
				To:          ss.state(next),
				Option:      next.Option,
				Action:      ActionHeight,
				Lookahead:   lookahead,
				UpLookahead: ci.lookahead,
				target:      next,
			}
			byTarget[next] = t
			ts = append(ts, t)
		}
	}
	return ts
}
