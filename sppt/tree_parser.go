package sppt

import (
	"fmt"
	"strings"

	"github.com/beepsoft/net.akehurst.language/grammar"
)

// TreeParser reads trees written in the tree-literal notation:
//
//	Rule { child child }   a branch
//	'text'                 a leaf of the literal terminal matching text
//	name : 'text'          a leaf of the terminal named name
//	'pattern' : 'text'     a leaf of the pattern terminal
//	§empty                 the empty leaf of the enclosing rule ($empty is accepted too)
//
// Positions are computed from the texts of the leaves. Nodes are shared by identity across every
// tree a parser reads, so reading two derivations of one span yields an ambiguous branch.
type TreeParser struct {
	rs    *grammar.RuleSet
	nodes map[Identity]Node
}

func NewTreeParser(rs *grammar.RuleSet) *TreeParser {
	return &TreeParser{
		rs:    rs,
		nodes: map[Identity]Node{},
	}
}

type TreeSyntaxError struct {
	Pos     Position
	Message string
}

func (e *TreeSyntaxError) Error() string {
	return fmt.Sprintf("%v: %v", e.Pos, e.Message)
}

type treeReader struct {
	p      *TreeParser
	lex    *treeLexer
	peeked *token
	offset int
}

// Parse reads one tree literal.
func (p *TreeParser) Parse(src string) (*Tree, error) {
	lex, err := newTreeLexer(src)
	if err != nil {
		return nil, err
	}
	r := &treeReader{
		p:   p,
		lex: lex,
	}
	root, err := r.node(p.rs, nil)
	if err != nil {
		return nil, err
	}
	tok, err := r.next()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokenKindEOF {
		return nil, &TreeSyntaxError{Pos: tok.pos, Message: fmt.Sprintf("unexpected %v after the root node", describe(tok))}
	}
	return &Tree{
		Root: root,
	}, nil
}

func (r *treeReader) next() (*token, error) {
	if r.peeked != nil {
		tok := r.peeked
		r.peeked = nil
		return tok, nil
	}
	tok, err := r.lex.next()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokenKindInvalid {
		return nil, &TreeSyntaxError{Pos: tok.pos, Message: fmt.Sprintf("invalid token: %v", tok.text)}
	}
	return tok, nil
}

func (r *treeReader) peek() (*token, error) {
	if r.peeked == nil {
		tok, err := r.next()
		if err != nil {
			return nil, err
		}
		r.peeked = tok
	}
	return r.peeked, nil
}

func (r *treeReader) expect(kind tokenKind) (*token, error) {
	tok, err := r.next()
	if err != nil {
		return nil, err
	}
	if tok.kind != kind {
		return nil, &TreeSyntaxError{Pos: tok.pos, Message: fmt.Sprintf("expected %v but got %v", kind, describe(tok))}
	}
	return tok, nil
}

// node reads one node. rs resolves the names and parent is the rule of the enclosing branch.
func (r *treeReader) node(rs *grammar.RuleSet, parent *grammar.RuntimeRule) (Node, error) {
	tok, err := r.next()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokenKindEmpty:
		if parent == nil || parent.Rhs == nil || parent.Rhs.EmptyRule == nil {
			return nil, &TreeSyntaxError{Pos: tok.pos, Message: "§empty is only allowed in a rule that can be empty"}
		}
		return r.leaf(parent.Rhs.EmptyRule, ""), nil
	case tokenKindLiteral:
		next, err := r.peek()
		if err != nil {
			return nil, err
		}
		if next.kind != tokenKindColon {
			rule, ok := findLiteral(rs, tok.text)
			if !ok {
				return nil, &TreeSyntaxError{Pos: tok.pos, Message: fmt.Sprintf("no literal terminal matches '%v'", tok.text)}
			}
			return r.leaf(rule, tok.text), nil
		}
		r.next()
		text, err := r.expect(tokenKindLiteral)
		if err != nil {
			return nil, err
		}
		rule, ok := findPattern(rs, tok.text)
		if !ok {
			return nil, &TreeSyntaxError{Pos: tok.pos, Message: fmt.Sprintf("no terminal has the pattern '%v'", tok.text)}
		}
		return r.leaf(rule, text.text), nil
	case tokenKindName:
		rule, ok := rs.FindByTag(tok.text)
		if !ok {
			return nil, &TreeSyntaxError{Pos: tok.pos, Message: fmt.Sprintf("undefined rule: %v", tok.text)}
		}
		next, err := r.next()
		if err != nil {
			return nil, err
		}
		switch next.kind {
		case tokenKindColon:
			if !rule.IsTerminal() {
				return nil, &TreeSyntaxError{Pos: tok.pos, Message: fmt.Sprintf("%v is not a terminal", tok.text)}
			}
			text, err := r.expect(tokenKindLiteral)
			if err != nil {
				return nil, err
			}
			return r.leaf(rule, text.text), nil
		case tokenKindLBrace:
			if rule.IsTerminal() {
				return nil, &TreeSyntaxError{Pos: tok.pos, Message: fmt.Sprintf("%v is a terminal; write it as %v : 'text'", tok.text, tok.text)}
			}
			return r.branch(rs, rule)
		}
		return nil, &TreeSyntaxError{Pos: next.pos, Message: fmt.Sprintf("expected ':' or '{' but got %v", describe(next))}
	}
	return nil, &TreeSyntaxError{Pos: tok.pos, Message: fmt.Sprintf("expected a node but got %v", describe(tok))}
}

func (r *treeReader) branch(rs *grammar.RuleSet, rule *grammar.RuntimeRule) (Node, error) {
	start := r.offset
	childRuleSet := rs
	if rule.IsEmbedded() {
		childRuleSet = rule.EmbeddedRuleSet
	}

	var children []Node
	var text strings.Builder
	for {
		tok, err := r.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokenKindRBrace {
			r.next()
			break
		}
		if tok.kind == tokenKindEOF {
			return nil, &TreeSyntaxError{Pos: tok.pos, Message: fmt.Sprintf("the branch %v is not closed", rule)}
		}
		child, err := r.node(childRuleSet, rule)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		text.WriteString(child.MatchedText())
	}

	id := Identity{Rule: rule, Start: start, Length: text.Len()}
	if n, ok := r.p.nodes[id]; ok {
		b, ok := n.AsBranch()
		if !ok {
			return nil, fmt.Errorf("a leaf and a branch share the identity %v", id)
		}
		b.AddAlternative(children)
		return b, nil
	}
	b := NewBranch(rule, start, text.String())
	b.AddAlternative(children)
	r.p.nodes[id] = b
	return b, nil
}

func (r *treeReader) leaf(rule *grammar.RuntimeRule, text string) Node {
	start := r.offset
	r.offset += len(text)
	id := Identity{Rule: rule, Start: start, Length: len(text)}
	if n, ok := r.p.nodes[id]; ok {
		return n
	}
	l := NewLeaf(rule, start, text)
	r.p.nodes[id] = l
	return l
}

// findLiteral prefers the terminal declared inline for the literal over named terminals with
// the same value.
func findLiteral(rs *grammar.RuleSet, value string) (*grammar.RuntimeRule, bool) {
	if r, ok := rs.FindByTag(grammar.LiteralTag(value)); ok && r.IsTerminal() && !r.IsPattern {
		return r, true
	}
	for _, r := range rs.Terminals() {
		if !r.IsPattern && !r.IsEmptyRule && r.Value == value {
			return r, true
		}
	}
	return nil, false
}

func findPattern(rs *grammar.RuleSet, pattern string) (*grammar.RuntimeRule, bool) {
	if r, ok := rs.FindByTag(grammar.PatternTag(pattern)); ok && r.IsTerminal() {
		return r, true
	}
	for _, r := range rs.Terminals() {
		if !r.IsEmptyRule && r.Value == pattern {
			return r, true
		}
	}
	return nil, false
}

func describe(tok *token) string {
	switch tok.kind {
	case tokenKindEOF:
		return "the end of the tree"
	case tokenKindName, tokenKindLiteral:
		return fmt.Sprintf("%v '%v'", tok.kind, tok.text)
	}
	return fmt.Sprintf("'%v'", tok.text)
}
