package render

import (
	"fmt"
	"io"
	"strings"
)

// DOT renders the diagram as Graphviz input. Positions are pinned, so
// `neato -n2 -Tpng` reproduces the circular layout exactly.
type DOT struct{}

func (DOT) Ext() string { return "dot" }

func (DOT) Render(w io.Writer, b Bundle) error {
	var sb strings.Builder
	sb.WriteString("digraph connexions {\n")
	fmt.Fprintf(&sb, "\tlabel=%q;\n", b.Title)
	sb.WriteString("\tlabelloc=\"t\";\n")
	sb.WriteString("\tnode [shape=circle style=filled fixedsize=true width=0.5 fontsize=10];\n")

	for _, n := range b.Nodes {
		fmt.Fprintf(&sb, "\t%d [label=%q fillcolor=%q pos=\"%.3f,%.3f!\"];\n",
			n.ID, n.Label, n.Color, n.X, n.Y)
	}
	for _, e := range b.Edges {
		fmt.Fprintf(&sb, "\t%d -> %d [penwidth=%.2f tooltip=%q];\n",
			e.From, e.To, e.Width, e.Weight)
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
