package driver

import (
	"unicode/utf8"

	"github.com/beepsoft/net.akehurst.language/grammar"
	"github.com/beepsoft/net.akehurst.language/sppt"
)

type leafKey struct {
	rule *grammar.RuntimeRule
	pos  int
}

// parseInput is the text of one parse and the terminals matched in it. It is shared by the
// parser of the goal and the nested parsers of skip rules and embedded rule sets.
type parseInput struct {
	text   string
	leaves map[leafKey]*completed
}

func newParseInput(text string) *parseInput {
	return &parseInput{
		text:   text,
		leaves: map[leafKey]*completed{},
	}
}

// leaf matches a terminal at pos. It returns nil when the terminal does not match.
func (in *parseInput) leaf(term *grammar.RuntimeRule, pos int) *completed {
	key := leafKey{term, pos}
	if l, ok := in.leaves[key]; ok {
		return l
	}
	var l *completed
	if n, ok := term.Match(in.text, pos); ok {
		l = &completed{
			node:   sppt.NewLeaf(term, pos, in.text[pos:pos+n]),
			sealed: true,
		}
	}
	in.leaves[key] = l
	return l
}

// matches reports whether a terminal matches at pos.
func (in *parseInput) matches(term *grammar.RuntimeRule, pos int) bool {
	if term == grammar.EndOfText {
		return pos == len(in.text)
	}
	return in.leaf(term, pos) != nil
}

type Location struct {
	Position int
	Line     int
	Column   int
	Length   int
}

// location converts a byte offset into a 1-based line and a 1-based column counted in characters.
func (in *parseInput) location(pos int) Location {
	line := 1
	lineStart := 0
	for i := 0; i < pos && i < len(in.text); i++ {
		if in.text[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	length := 0
	if pos < len(in.text) {
		_, length = utf8.DecodeRuneInString(in.text[pos:])
	}
	return Location{
		Position: pos,
		Line:     line,
		Column:   utf8.RuneCountInString(in.text[lineStart:pos]) + 1,
		Length:   length,
	}
}
