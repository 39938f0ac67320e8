package grammar

import "fmt"

// Options of multis and separated lists.
const (
	OptionItem  = 0
	OptionEmpty = 1
)

const (
	PositionStart = 0
	PositionEnd   = -1

	// positionRepeat is the position of a multi after at least one item.
	positionRepeat = 1

	// A separated list alternates between these two positions after its first item.
	positionSeparator = 1
	positionNextItem  = 2
)

// RulePosition identifies a point inside one option of a rule. The zero Position is the start of
// the option and PositionEnd is the point where the whole rule has been matched.
type RulePosition struct {
	Rule     *RuntimeRule
	Option   int
	Position int
}

func (rp RulePosition) String() string {
	if rp.IsAtEnd() {
		return fmt.Sprintf("%v[%v].EOR", rp.Rule, rp.Option)
	}
	return fmt.Sprintf("%v[%v].%v", rp.Rule, rp.Option, rp.Position)
}

func (rp RulePosition) IsAtStart() bool {
	return rp.Position == PositionStart
}

func (rp RulePosition) IsAtEnd() bool {
	return rp.Position == PositionEnd
}

// StartPositions returns the start position of every option of a rule. Terminals and embedded
// rules have no inner positions.
func StartPositions(r *RuntimeRule) []RulePosition {
	switch r.Kind {
	case RuleKindTerminal, RuleKindEmbedded:
		return nil
	case RuleKindGoal:
		return []RulePosition{{Rule: r, Option: 0, Position: PositionStart}}
	}
	rhs := r.Rhs
	switch rhs.Kind {
	case RhsKindChoice:
		rps := make([]RulePosition, len(rhs.Alternatives))
		for i := range rhs.Alternatives {
			rps[i] = RulePosition{Rule: r, Option: i, Position: PositionStart}
		}
		return rps
	case RhsKindMulti, RhsKindSeparatedList:
		rps := []RulePosition{{Rule: r, Option: OptionItem, Position: PositionStart}}
		if rhs.EmptyRule != nil {
			rps = append(rps, RulePosition{Rule: r, Option: OptionEmpty, Position: PositionStart})
		}
		return rps
	}
	return []RulePosition{{Rule: r, Option: 0, Position: PositionStart}}
}

// EndPosition returns the end of a rule independent of the option that reached it.
func EndPosition(r *RuntimeRule) RulePosition {
	return RulePosition{Rule: r, Option: 0, Position: PositionEnd}
}

// Item returns the rule expected at the position, or nil at the end.
func (rp RulePosition) Item() *RuntimeRule {
	if rp.IsAtEnd() || rp.Rule.Rhs == nil {
		return nil
	}
	rhs := rp.Rule.Rhs
	switch rhs.Kind {
	case RhsKindEmpty:
		return rhs.EmptyRule
	case RhsKindConcatenation, RhsKindChoice:
		return rhs.Alternatives[rp.Option][rp.Position]
	case RhsKindMulti:
		if rp.Option == OptionEmpty {
			return rhs.EmptyRule
		}
		return rhs.Item
	case RhsKindSeparatedList:
		if rp.Option == OptionEmpty {
			return rhs.EmptyRule
		}
		if rp.Position == positionSeparator {
			return rhs.Separator
		}
		return rhs.Item
	}
	return nil
}

// Next returns the positions reachable by consuming the item at the position. Lists yield two
// positions, one continuing and one ending the list; Allows decides which of them a concrete
// number of matched items permits.
func (rp RulePosition) Next() []RulePosition {
	if rp.IsAtEnd() || rp.Rule.Rhs == nil {
		return nil
	}
	end := RulePosition{Rule: rp.Rule, Option: rp.Option, Position: PositionEnd}
	rhs := rp.Rule.Rhs
	switch rhs.Kind {
	case RhsKindConcatenation, RhsKindChoice:
		if rp.Position+1 < len(rhs.Alternatives[rp.Option]) {
			return []RulePosition{{Rule: rp.Rule, Option: rp.Option, Position: rp.Position + 1}}
		}
		return []RulePosition{end}
	case RhsKindMulti:
		if rp.Option == OptionEmpty || rhs.Max == 1 {
			return []RulePosition{end}
		}
		return []RulePosition{{Rule: rp.Rule, Option: rp.Option, Position: positionRepeat}, end}
	case RhsKindSeparatedList:
		if rp.Option == OptionEmpty {
			return []RulePosition{end}
		}
		if rp.Position == positionSeparator {
			return []RulePosition{{Rule: rp.Rule, Option: rp.Option, Position: positionNextItem}}
		}
		if rhs.Max == 1 {
			return []RulePosition{end}
		}
		return []RulePosition{{Rule: rp.Rule, Option: rp.Option, Position: positionSeparator}, end}
	}
	return []RulePosition{end}
}

// Allows reports whether a list may move from rp to next when the node has `children` non-skip
// children before consuming the item at rp. A repeated item matching the empty string is only
// accepted while it is needed to reach the minimum, so that lists of nullable items stay finite.
func (rp RulePosition) Allows(next RulePosition, children int, emptyChild bool) bool {
	rhs := rp.Rule.Rhs
	if rhs == nil || rp.Option == OptionEmpty {
		return true
	}
	var items int
	switch rhs.Kind {
	case RhsKindMulti:
		items = children + 1
	case RhsKindSeparatedList:
		if rp.Position == positionSeparator {
			return true
		}
		items = children/2 + 1
	default:
		return true
	}
	if emptyChild && items > 1 && items > rhs.Min {
		return false
	}
	if next.IsAtEnd() {
		return items >= rhs.Min
	}
	return rhs.Max == MultiMax || items < rhs.Max
}
