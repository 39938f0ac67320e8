package sppt

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/beepsoft/net.akehurst.language/grammar"
)

var nameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Format writes a node in the tree-literal notation read by TreeParser, following the first
// derivation of every branch.
func Format(n Node, withSkip bool) string {
	var b strings.Builder
	format(&b, n, withSkip, map[Node]struct{}{})
	return b.String()
}

func format(b *strings.Builder, n Node, withSkip bool, onPath map[Node]struct{}) {
	switch n := n.(type) {
	case *Leaf:
		b.WriteString(formatLeaf(n))
	case *Branch:
		b.WriteString(n.Name())
		if _, ok := onPath[n]; ok {
			b.WriteString(" { }")
			return
		}
		onPath[n] = struct{}{}
		defer delete(onPath, n)

		b.WriteString(" {")
		for _, c := range n.Children() {
			if c.IsSkip() && !withSkip {
				continue
			}
			b.WriteString(" ")
			format(b, c, withSkip, onPath)
		}
		b.WriteString(" }")
	}
}

func formatLeaf(l *Leaf) string {
	r := l.Rule()
	switch {
	case r.IsEmptyRule:
		return "§empty"
	case !r.IsPattern && r.Tag == grammar.LiteralTag(r.Value):
		return quote(l.MatchedText())
	case nameRE.MatchString(r.Tag):
		return fmt.Sprintf("%v : %v", r.Tag, quote(l.MatchedText()))
	case r.IsPattern:
		return fmt.Sprintf("%v : %v", quote(r.Value), quote(l.MatchedText()))
	}
	return quote(l.MatchedText())
}

func quote(s string) string {
	var b strings.Builder
	b.WriteString("'")
	for _, c := range s {
		if c == '\'' || c == '\\' {
			b.WriteRune('\\')
		}
		b.WriteRune(c)
	}
	b.WriteString("'")
	return b.String()
}

// PrintTree writes a node as an indented tree. Every derivation of an ambiguous branch is printed.
func PrintTree(w io.Writer, n Node, withSkip bool) {
	printTree(w, n, withSkip, "", "", map[Node]struct{}{})
}

func printTree(w io.Writer, n Node, withSkip bool, ruledLine string, childRuledLinePrefix string, onPath map[Node]struct{}) {
	if n == nil {
		return
	}

	switch n := n.(type) {
	case *Leaf:
		if n.IsEmptyLeaf() {
			fmt.Fprintf(w, "%v§empty\n", ruledLine)
			return
		}
		fmt.Fprintf(w, "%v%v %v\n", ruledLine, n.Name(), strconv.Quote(n.MatchedText()))
	case *Branch:
		if _, ok := onPath[n]; ok {
			fmt.Fprintf(w, "%v%v <cycle>\n", ruledLine, n.Name())
			return
		}
		onPath[n] = struct{}{}
		defer delete(onPath, n)

		alts := n.ChildrenAlternatives()
		if len(alts) <= 1 {
			fmt.Fprintf(w, "%v%v\n", ruledLine, n.Name())
			printChildren(w, n.Children(), withSkip, childRuledLinePrefix, onPath)
			return
		}

		fmt.Fprintf(w, "%v%v <ambiguous: %v>\n", ruledLine, n.Name(), len(alts))
		for i, alt := range alts {
			line, prefix := ruledLines(i, len(alts))
			fmt.Fprintf(w, "%v#%v\n", childRuledLinePrefix+line, i+1)
			printChildren(w, alt, withSkip, childRuledLinePrefix+prefix, onPath)
		}
	}
}

func printChildren(w io.Writer, children []Node, withSkip bool, prefix string, onPath map[Node]struct{}) {
	var cs []Node
	for _, c := range children {
		if c.IsSkip() && !withSkip {
			continue
		}
		cs = append(cs, c)
	}
	for i, c := range cs {
		line, childPrefix := ruledLines(i, len(cs))
		printTree(w, c, withSkip, prefix+line, prefix+childPrefix, onPath)
	}
}

func ruledLines(i, num int) (string, string) {
	if num > 1 && i < num-1 {
		return "├─ ", "│  "
	}
	return "└─ ", "   "
}
