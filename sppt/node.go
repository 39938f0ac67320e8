package sppt

import (
	"fmt"

	"github.com/beepsoft/net.akehurst.language/grammar"
)

// Node is a completed node of a shared packed parse tree, either a *Leaf or a *Branch.
// Two nodes of one tree are the same node exactly when they have the same rule, start and length.
type Node interface {
	Rule() *grammar.RuntimeRule
	Name() string
	Start() int
	MatchedLength() int
	End() int
	MatchedText() string
	IsSkip() bool
	IsEmptyLeaf() bool
	AsLeaf() (*Leaf, bool)
	AsBranch() (*Branch, bool)
	Priority() int
	String() string
}

// Identity is the key of a node within one tree.
type Identity struct {
	Rule   *grammar.RuntimeRule
	Start  int
	Length int
}

func (id Identity) String() string {
	return fmt.Sprintf("%v(%v,%v)", id.Rule, id.Start, id.Length)
}

func IdentityOf(n Node) Identity {
	return Identity{
		Rule:   n.Rule(),
		Start:  n.Start(),
		Length: n.MatchedLength(),
	}
}

type Leaf struct {
	rule  *grammar.RuntimeRule
	start int
	text  string
}

func NewLeaf(rule *grammar.RuntimeRule, start int, text string) *Leaf {
	return &Leaf{
		rule:  rule,
		start: start,
		text:  text,
	}
}

func (l *Leaf) Rule() *grammar.RuntimeRule { return l.rule }
func (l *Leaf) Name() string               { return l.rule.Tag }
func (l *Leaf) Start() int                 { return l.start }
func (l *Leaf) MatchedLength() int         { return len(l.text) }
func (l *Leaf) End() int                   { return l.start + len(l.text) }
func (l *Leaf) MatchedText() string        { return l.text }
func (l *Leaf) IsSkip() bool               { return l.rule.IsSkip }
func (l *Leaf) IsEmptyLeaf() bool          { return l.rule.IsEmptyRule }
func (l *Leaf) AsLeaf() (*Leaf, bool)      { return l, true }
func (l *Leaf) AsBranch() (*Branch, bool)  { return nil, false }
func (l *Leaf) Priority() int              { return 0 }

// IsPattern reports whether the leaf was matched by a pattern terminal.
func (l *Leaf) IsPattern() bool {
	return l.rule.IsPattern
}

func (l *Leaf) String() string {
	return fmt.Sprintf("%v %q @%v", l.rule, l.text, l.start)
}

// Branch is a non-terminal node. Each element of its children alternatives is one derivation of
// the same span; a branch with more than one alternative is ambiguous.
type Branch struct {
	rule         *grammar.RuntimeRule
	start        int
	text         string
	priority     int
	alternatives [][]Node
}

func NewBranch(rule *grammar.RuntimeRule, start int, text string) *Branch {
	return &Branch{
		rule:  rule,
		start: start,
		text:  text,
	}
}

func (b *Branch) Rule() *grammar.RuntimeRule { return b.rule }
func (b *Branch) Name() string               { return b.rule.Tag }
func (b *Branch) Start() int                 { return b.start }
func (b *Branch) MatchedLength() int         { return len(b.text) }
func (b *Branch) End() int                   { return b.start + len(b.text) }
func (b *Branch) MatchedText() string        { return b.text }
func (b *Branch) IsSkip() bool               { return b.rule.IsSkip }
func (b *Branch) IsEmptyLeaf() bool          { return false }
func (b *Branch) AsLeaf() (*Leaf, bool)      { return nil, false }
func (b *Branch) AsBranch() (*Branch, bool)  { return b, true }
func (b *Branch) Priority() int              { return b.priority }

func (b *Branch) String() string {
	return fmt.Sprintf("%v %q @%v (%v alternatives)", b.rule, b.text, b.start, len(b.alternatives))
}

// SetPriority sets the priority the branch was selected with. Only tree builders call it.
func (b *Branch) SetPriority(priority int) {
	b.priority = priority
}

// AddAlternative appends a children list unless an identical one is already present. It reports
// whether the list was added.
func (b *Branch) AddAlternative(children []Node) bool {
	for _, alt := range b.alternatives {
		if sameChildren(alt, children) {
			return false
		}
	}
	b.alternatives = append(b.alternatives, children)
	return true
}

func sameChildren(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ChildrenAlternatives returns every derivation of the branch.
func (b *Branch) ChildrenAlternatives() [][]Node {
	return b.alternatives
}

// Children returns the first derivation of the branch.
func (b *Branch) Children() []Node {
	if len(b.alternatives) == 0 {
		return nil
	}
	return b.alternatives[0]
}

// NonSkipChildren returns the first derivation without its skip nodes.
func (b *Branch) NonSkipChildren() []Node {
	var children []Node
	for _, c := range b.Children() {
		if c.IsSkip() {
			continue
		}
		children = append(children, c)
	}
	return children
}

// Child returns the i-th non-skip child of the first derivation, or nil.
func (b *Branch) Child(i int) Node {
	children := b.NonSkipChildren()
	if i < 0 || i >= len(children) {
		return nil
	}
	return children[i]
}

func (b *Branch) IsAmbiguous() bool {
	return len(b.alternatives) > 1
}

// Tree is the result of a successful parse.
type Tree struct {
	Root Node

	// Seasons is the number of input positions the parser worked on and MaxNumHeads is the largest
	// number of growing nodes one of them held.
	Seasons     int
	MaxNumHeads int
}

// Contains reports whether every derivation of other is also a derivation of t.
func (t *Tree) Contains(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return Contains(t.Root, other.Root)
}

func (t *Tree) String() string {
	if t == nil || t.Root == nil {
		return ""
	}
	return Format(t.Root, true)
}

// Walk visits every node reachable from root once, parents before children.
func Walk(root Node, visit func(n Node)) {
	known := map[Node]struct{}{}
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := known[n]; ok {
			continue
		}
		known[n] = struct{}{}
		visit(n)
		b, ok := n.AsBranch()
		if !ok {
			continue
		}
		alts := b.ChildrenAlternatives()
		for i := len(alts) - 1; i >= 0; i-- {
			for j := len(alts[i]) - 1; j >= 0; j-- {
				stack = append(stack, alts[i][j])
			}
		}
	}
}

// CountAmbiguities returns the number of branches with more than one derivation.
func CountAmbiguities(root Node) int {
	count := 0
	Walk(root, func(n Node) {
		if b, ok := n.AsBranch(); ok && b.IsAmbiguous() {
			count++
		}
	})
	return count
}
