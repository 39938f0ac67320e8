package automaton

import (
	"fmt"
)

type Report struct {
	RuleSet string         `json:"rule_set"`
	Goal    string         `json:"goal"`
	IsSkip  bool           `json:"is_skip"`
	States  []*StateReport `json:"states"`
}

type StateReport struct {
	Number       int                 `json:"number"`
	RulePosition string              `json:"rule_position"`
	Closure      []string            `json:"closure,omitempty"`
	Transitions  []*TransitionReport `json:"transitions,omitempty"`
}

type TransitionReport struct {
	Previous    int    `json:"previous"`
	Action      string `json:"action"`
	To          int    `json:"to"`
	Target      string `json:"target"`
	Lookahead   string `json:"lookahead"`
	UpLookahead string `json:"up_lookahead"`
}

// Report builds the whole automaton and describes it. Transitions that do not depend on a previous
// state have -1 as their previous state number.
func (ss *StateSet) Report() *Report {
	ss.Build()

	ss.ctx.mu.Lock()
	defer ss.ctx.mu.Unlock()

	report := &Report{
		RuleSet: ss.ctx.ruleSet.Name,
		Goal:    ss.UserGoal.Tag,
		IsSkip:  ss.IsSkip,
	}
	byNum := map[int]*StateReport{}
	for _, s := range ss.stateList {
		sr := &StateReport{
			Number:       s.Number,
			RulePosition: s.RulePosition.String(),
		}
		if !s.IsAtEnd() {
			for _, ci := range ss.closure(s) {
				sr.Closure = append(sr.Closure, fmt.Sprintf("%v %v", ci.rp, ci.lookahead))
			}
		}
		byNum[s.Number] = sr
		report.States = append(report.States, sr)
	}
	for _, key := range ss.keys {
		prev := -1
		if key.prev != nil {
			prev = key.prev.Number
		}
		sr := byNum[key.from.Number]
		for _, t := range ss.transitions[key] {
			sr.Transitions = append(sr.Transitions, &TransitionReport{
				Previous:    prev,
				Action:      t.Action.String(),
				To:          t.To.Number,
				Target:      t.target.String(),
				Lookahead:   t.Lookahead.String(),
				UpLookahead: t.UpLookahead.String(),
			})
		}
	}
	return report
}
