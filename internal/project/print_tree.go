package project

import (
	"fmt"
	"io"
	"strings"
)

type TreeMark string

const (
	MarkListed   TreeMark = "listed"
	MarkRepeated TreeMark = "repeated"
	MarkIgnored  TreeMark = "ignored"
	MarkSkipped  TreeMark = "skipped"
)

// TreeNode is one appearance of a project in the tree view. The same project can appear under
// several parents; only its first appearance carries children.
type TreeNode struct {
	Project  *Project
	Mark     TreeMark
	Children []*TreeNode
}

const treeLegend = `# - project_name: listed or target of command execution;
# - (project_name): have already been printed in the tree;
# - <project_name>: have been ignored (see ` + "`--ignore-project`" + ` option);
# - {project_name}: have been skipped (see ` + "`--skip-project`" + ` option);
`

// BuildTree mirrors the traversal from roots without deduplicating across branches.
func BuildTree(roots []*Project) []*TreeNode {
	printed := map[string]struct{}{}
	var build func([]*Project) []*TreeNode
	build = func(list []*Project) []*TreeNode {
		var out []*TreeNode
		for _, p := range list {
			node := &TreeNode{Project: p, Mark: MarkListed}
			out = append(out, node)
			if p.Ignore {
				node.Mark = MarkIgnored
				continue
			}
			if _, ok := printed[p.Path]; ok {
				node.Mark = MarkRepeated
				continue
			}
			printed[p.Path] = struct{}{}
			if p.Skip {
				node.Mark = MarkSkipped
			}
			node.Children = build(p.displayChildren())
		}
		return out
	}
	return build(roots)
}

// PrintTree writes the legend followed by the tree, four spaces per level.
func PrintTree(w io.Writer, roots []*Project) error {
	if _, err := fmt.Fprint(w, treeLegend, "\n"); err != nil {
		return err
	}
	var emit func([]*TreeNode, int) error
	emit = func(nodes []*TreeNode, depth int) error {
		indent := strings.Repeat("    ", depth)
		for _, n := range nodes {
			if _, err := fmt.Fprintln(w, indent+n.Label()); err != nil {
				return err
			}
			if err := emit(n.Children, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return emit(BuildTree(roots), 0)
}

func (n *TreeNode) Label() string {
	name := n.Project.Name
	switch n.Mark {
	case MarkRepeated:
		return "(" + name + ")"
	case MarkIgnored:
		return "<" + name + ">"
	case MarkSkipped:
		return "{" + name + "}"
	default:
		return name
	}
}
