// File: internal/project/print_graph.go
// Brief: Graph printing (dot / mermaid) for inspecting include relations.

package project

import (
	"fmt"
	"io"
	"strings"
)

// Edges returns (dependent, dependency) pairs over the linearized graph, sorted by the
// dependent's position and then manifest order.
func Edges(order []*Project) [][2]*Project {
	pos := Positions(order)
	var edges [][2]*Project
	for _, p := range order {
		for _, dep := range p.Dependencies {
			if _, ok := pos[dep.Path]; !ok {
				continue
			}
			edges = append(edges, [2]*Project{p, dep})
		}
	}
	return edges
}

func PrintGraphDOT(w io.Writer, roots []*Project) error {
	order := Linearize(roots, false)
	fmt.Fprintln(w, "digraph deps {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box];")
	for _, n := range order {
		attrs := "label=" + dotQuote(n.Name)
		if n.Skip {
			attrs += ",style=dashed"
		}
		fmt.Fprintf(w, "  %s [%s];\n", dotQuote(n.Path), attrs)
	}
	for _, e := range Edges(order) {
		// Edge: dependency -> dependent, the order in which they run.
		fmt.Fprintf(w, "  %s -> %s;\n", dotQuote(e[1].Path), dotQuote(e[0].Path))
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// dotQuote renders s as a double-quoted DOT ID.
func dotQuote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

func PrintGraphMermaid(w io.Writer, roots []*Project) error {
	order := Linearize(roots, false)
	ids := make(map[string]string, len(order))
	fmt.Fprintln(w, "graph TD")
	for i, n := range order {
		id := fmt.Sprintf("%s_%d", safeID(n.Name), i)
		ids[n.Path] = id
		fmt.Fprintf(w, "  %s[\"%s\"]\n", id, strings.ReplaceAll(n.Name, `"`, "#quot;"))
	}
	var err error
	for _, e := range Edges(order) {
		_, err = fmt.Fprintf(w, "  %s --> %s\n", ids[e[1].Path], ids[e[0].Path])
	}
	return err
}

func safeID(s string) string {
	out := strings.Builder{}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			out.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			out.WriteRune(r)
		case r >= '0' && r <= '9':
			out.WriteRune(r)
		default:
			out.WriteRune('_')
		}
	}
	return out.String()
}
