// Package render turns a built trading graph into diagram artifacts. The
// graph stays pure data; every backend here is headless and writes to an
// io.Writer, so rendering is testable without a display or external tools.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/carbonlens/carbonlens/engine/domain"
	"github.com/carbonlens/carbonlens/engine/graph"
	"github.com/carbonlens/carbonlens/pkg/fn"
)

// Node is one diagram node with its resolved layout.
type Node struct {
	ID     int64
	Label  string
	Color  string
	X, Y   float64
	LabelX float64
	LabelY float64
}

// Edge is one diagram arrow.
type Edge struct {
	From   int64
	To     int64
	Weight string
	Width  float64
}

// Bundle is the renderer-facing projection of a trading graph: layout
// already joined onto nodes, weights stringified, plus the diagram title.
type Bundle struct {
	Title   string
	FocalID int64
	Nodes   []Node
	Edges   []Edge
}

// FromGraph flattens a graph and its layout into a Bundle.
func FromGraph(g *graph.Graph, title string) Bundle {
	b := Bundle{Title: title, FocalID: g.FocalID}
	b.Nodes = fn.Map(g.Nodes, func(n graph.Node) Node {
		p := g.Positions[n.ID]
		lp := g.LabelOffsets[n.ID]
		return Node{
			ID:     n.ID,
			Label:  n.Name,
			Color:  n.Color,
			X:      p.X,
			Y:      p.Y,
			LabelX: lp.X,
			LabelY: lp.Y,
		}
	})
	b.Edges = fn.Map(g.Edges, func(e graph.Edge) Edge {
		return Edge{
			From:   e.From,
			To:     e.To,
			Weight: e.Weight.String(),
			Width:  e.Width,
		}
	})
	return b
}

// Renderer writes a diagram bundle in one output format.
type Renderer interface {
	// Render writes the diagram to w.
	Render(w io.Writer, b Bundle) error
	// Ext returns the artifact file extension without the dot.
	Ext() string
}

// Title formats the diagram title for a focal entity. Entities without a
// display name (companies) fall back to the id.
func Title(ref domain.EntityRef, name string) string {
	if name == "" {
		name = ref.ID
	}
	return fmt.Sprintf("ETS trading connections for %s: %s", ref.Kind, name)
}

// Filename derives the deterministic artifact name arrows_<kind>_<id>.<ext>.
// Company registration numbers may contain spaces or slashes; those become
// underscores so the name is filesystem-safe.
func Filename(ref domain.EntityRef, ext string) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-':
			return r
		default:
			return '_'
		}
	}, ref.ID)
	return fmt.Sprintf("arrows_%s_%s.%s", ref.Kind, id, ext)
}
