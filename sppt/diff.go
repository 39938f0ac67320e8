package sppt

import "fmt"

type TreeDiff struct {
	ExpectedPath string
	ActualPath   string
	Message      string
}

func newTreeDiff(expectedPath, actualPath string, message string) *TreeDiff {
	return &TreeDiff{
		ExpectedPath: expectedPath,
		ActualPath:   actualPath,
		Message:      message,
	}
}

// DiffTree compares the first derivations of two trees and describes where they differ. Skip nodes
// are ignored unless withSkip is set.
func DiffTree(expected, actual Node, withSkip bool) []*TreeDiff {
	return diffTree(expected, actual, withSkip, "", "", map[[2]Node]struct{}{})
}

func diffTree(expected, actual Node, withSkip bool, expParent, actParent string, visiting map[[2]Node]struct{}) []*TreeDiff {
	if expected == nil && actual == nil {
		return nil
	}
	if expected == nil || actual == nil {
		return []*TreeDiff{
			newTreeDiff(expParent, actParent, "one of the nodes is missing"),
		}
	}
	expPath := nodePath(expParent, expected)
	actPath := nodePath(actParent, actual)

	if actual.Name() != expected.Name() {
		msg := fmt.Sprintf("unexpected rule: expected '%v' but got '%v'", expected.Name(), actual.Name())
		return []*TreeDiff{
			newTreeDiff(expPath, actPath, msg),
		}
	}
	if actual.MatchedText() != expected.MatchedText() {
		msg := fmt.Sprintf("unexpected text: expected '%v' but got '%v'", expected.MatchedText(), actual.MatchedText())
		return []*TreeDiff{
			newTreeDiff(expPath, actPath, msg),
		}
	}

	expBranch, expIsBranch := expected.AsBranch()
	actBranch, actIsBranch := actual.AsBranch()
	if expIsBranch != actIsBranch {
		msg := fmt.Sprintf("unexpected node type: expected a %v but got a %v", nodeType(expected), nodeType(actual))
		return []*TreeDiff{
			newTreeDiff(expPath, actPath, msg),
		}
	}
	if !expIsBranch {
		return nil
	}

	key := [2]Node{expected, actual}
	if _, ok := visiting[key]; ok {
		return nil
	}
	visiting[key] = struct{}{}
	defer delete(visiting, key)

	if len(actBranch.ChildrenAlternatives()) != len(expBranch.ChildrenAlternatives()) {
		msg := fmt.Sprintf("unexpected alternative count: expected %v but got %v", len(expBranch.ChildrenAlternatives()), len(actBranch.ChildrenAlternatives()))
		return []*TreeDiff{
			newTreeDiff(expPath, actPath, msg),
		}
	}

	expChildren := filterSkip(expBranch.Children(), withSkip)
	actChildren := filterSkip(actBranch.Children(), withSkip)
	if len(actChildren) != len(expChildren) {
		msg := fmt.Sprintf("unexpected node count: expected %v but got %v", len(expChildren), len(actChildren))
		return []*TreeDiff{
			newTreeDiff(expPath, actPath, msg),
		}
	}
	var diffs []*TreeDiff
	for i, exp := range expChildren {
		ds := diffTree(exp, actChildren[i], withSkip, fmt.Sprintf("%v.[%v]", expPath, i), fmt.Sprintf("%v.[%v]", actPath, i), visiting)
		diffs = append(diffs, ds...)
	}
	return diffs
}

func nodePath(parent string, n Node) string {
	return parent + n.Name()
}

func nodeType(n Node) string {
	if _, ok := n.AsBranch(); ok {
		return "branch"
	}
	return "leaf"
}

func filterSkip(nodes []Node, withSkip bool) []Node {
	if withSkip {
		return nodes
	}
	var filtered []Node
	for _, n := range nodes {
		if n.IsSkip() {
			continue
		}
		filtered = append(filtered, n)
	}
	return filtered
}
