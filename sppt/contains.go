package sppt

// Contains reports whether every derivation of other is also a derivation of n. Nodes are
// compared by name, start, length and, for leaves, text, so that trees built from different rule
// sets of one grammar can be compared.
func Contains(n, other Node) bool {
	return contains(n, other, map[[2]Node]struct{}{})
}

func contains(n, other Node, visiting map[[2]Node]struct{}) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Name() != other.Name() || n.Start() != other.Start() || n.MatchedLength() != other.MatchedLength() {
		return false
	}

	switch o := other.(type) {
	case *Leaf:
		l, ok := n.AsLeaf()
		if !ok {
			return false
		}
		return l.MatchedText() == o.MatchedText()
	case *Branch:
		b, ok := n.AsBranch()
		if !ok {
			return false
		}

		// A pair already being compared is assumed to match; a cycle holds when the rest does.
		key := [2]Node{n, other}
		if _, ok := visiting[key]; ok {
			return true
		}
		visiting[key] = struct{}{}
		defer delete(visiting, key)

		for _, otherChildren := range o.ChildrenAlternatives() {
			found := false
			for _, children := range b.ChildrenAlternatives() {
				if len(children) != len(otherChildren) {
					continue
				}
				matched := true
				for i := range children {
					if !contains(children[i], otherChildren[i], visiting) {
						matched = false
						break
					}
				}
				if matched {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	return false
}
