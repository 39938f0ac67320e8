package driver

import (
	"github.com/beepsoft/net.akehurst.language/automaton"
	"github.com/beepsoft/net.akehurst.language/grammar"
	"github.com/beepsoft/net.akehurst.language/sppt"
)

type nodeIdx int

const nilNode = nodeIdx(-1)

// growingKey identifies a growing node. Complete nodes have no lookahead. count is the number of
// non-skip children a partial node holds; it keeps the cardinality of lists exact and makes the
// derivations of partial nodes acyclic.
type growingKey struct {
	state *automaton.ParserState
	lh    *automaton.LookaheadSet
	start int
	next  int
	count int
}

// derivation is one way of reaching a node: the children of left followed by child and the skip
// nodes matched after it.
type derivation struct {
	option int
	left   nodeIdx
	child  *completed
	skip   []sppt.Node
}

func (d derivation) equal(o derivation) bool {
	if d.option != o.option || d.left != o.left || d.child != o.child || len(d.skip) != len(o.skip) {
		return false
	}
	for i := range d.skip {
		if d.skip[i] != o.skip[i] {
			return false
		}
	}
	return true
}

// growingNode is a node of the graph-structured stack. Its previous nodes are the partial nodes
// it will be reduced into. A node created by appending a child to a partial node inherits every
// previous node of that partial node, including the ones added later.
type growingNode struct {
	key        growingKey
	derivs     []derivation
	previous   []nodeIdx
	prevSet    map[nodeIdx]struct{}
	inheritors []nodeIdx
	inherits   map[nodeIdx]struct{}

	// done and skip are set on complete nodes.
	done *completed
	skip []sppt.Node
}

func (n *growingNode) isComplete() bool {
	return n.key.state.IsAtEnd()
}

func (n *growingNode) addDerivation(d derivation) {
	for _, e := range n.derivs {
		if e.equal(d) {
			return
		}
	}
	n.derivs = append(n.derivs, d)
}

// completed is a node of the result tree together with the derivations found for it. Leaves and
// nodes returned by nested parsers are sealed from the start; branches are sealed once the parse
// is over.
type completed struct {
	node   sppt.Node
	derivs []derivation
	sealed bool
}

func (c *completed) addDerivation(d derivation) {
	for _, e := range c.derivs {
		if e.equal(d) {
			return
		}
	}
	c.derivs = append(c.derivs, d)
}

// parseGraph is the arena of one parse: growing nodes are addressed by index.
type parseGraph struct {
	in        *parseInput
	nodes     []*growingNode
	index     map[growingKey]nodeIdx
	completed map[sppt.Identity]*completed
	heads     map[int]int
}

func newParseGraph(in *parseInput) *parseGraph {
	return &parseGraph{
		in:        in,
		index:     map[growingKey]nodeIdx{},
		completed: map[sppt.Identity]*completed{},
		heads:     map[int]int{},
	}
}

// node returns the node of a key, creating it when it does not exist yet.
func (g *parseGraph) node(key growingKey) (nodeIdx, bool) {
	if idx, ok := g.index[key]; ok {
		return idx, false
	}
	idx := nodeIdx(len(g.nodes))
	g.nodes = append(g.nodes, &growingNode{
		key:      key,
		prevSet:  map[nodeIdx]struct{}{},
		inherits: map[nodeIdx]struct{}{},
	})
	g.index[key] = idx
	g.heads[key.next]++
	return idx, true
}

func (g *parseGraph) get(idx nodeIdx) *growingNode {
	return g.nodes[idx]
}

// branch returns the completed branch of a span, so that every derivation of one rule over one
// span shares one node.
func (g *parseGraph) branch(rule *grammar.RuntimeRule, start, end int) *completed {
	id := sppt.Identity{Rule: rule, Start: start, Length: end - start}
	if c, ok := g.completed[id]; ok {
		return c
	}
	c := &completed{
		node: sppt.NewBranch(rule, start, g.in.text[start:end]),
	}
	g.completed[id] = c
	return c
}

// wrap returns a sealed branch of rule whose only child is node.
func (g *parseGraph) wrap(rule *grammar.RuntimeRule, node sppt.Node) *completed {
	id := sppt.Identity{Rule: rule, Start: node.Start(), Length: node.MatchedLength()}
	if c, ok := g.completed[id]; ok {
		return c
	}
	b := sppt.NewBranch(rule, node.Start(), node.MatchedText())
	b.AddAlternative([]sppt.Node{node})
	c := &completed{
		node:   b,
		sealed: true,
	}
	g.completed[id] = c
	return c
}

// furthest returns the nodes that reached the greatest input position.
func (g *parseGraph) furthest() (int, []nodeIdx) {
	pos := -1
	var nodes []nodeIdx
	for i, n := range g.nodes {
		switch {
		case n.key.next > pos:
			pos = n.key.next
			nodes = []nodeIdx{nodeIdx(i)}
		case n.key.next == pos:
			nodes = append(nodes, nodeIdx(i))
		}
	}
	return pos, nodes
}
