package render

import (
	"embed"
	"fmt"
	"io"
	"math"
	"strings"
	"text/template"
)

// escape makes a string safe for SVG text content and attributes. The
// template is text/template on purpose (html/template mangles SVG), so
// escaping is explicit.
var escape = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;",
).Replace

//go:embed templates/diagram.svg.tmpl
var templates embed.FS

var svgTemplate = template.Must(
	template.New("diagram.svg.tmpl").
		Funcs(template.FuncMap{"half": func(n int) int { return n / 2 }}).
		ParseFS(templates, "templates/diagram.svg.tmpl"))

// SVG renders the diagram directly as an SVG image, no external tools
// involved.
type SVG struct {
	// Size is the square canvas edge in pixels. Zero means 640.
	Size int
}

func (SVG) Ext() string { return "svg" }

const svgNodeRadius = 14.0

type svgNode struct {
	CX, CY float64
	R      float64
	Color  string
	Label  string
	LabelX float64
	LabelY float64
}

type svgEdge struct {
	X1, Y1 float64
	X2, Y2 float64
	Width  float64
	Title  string
}

type svgDoc struct {
	Size  int
	Title string
	Nodes []svgNode
	Edges []svgEdge
}

func (s SVG) Render(w io.Writer, b Bundle) error {
	size := s.Size
	if size <= 0 {
		size = 640
	}

	// Fit the layout into the canvas with room for labels. Graph y grows
	// upward, SVG y grows downward.
	extent := 0.1
	for _, n := range b.Nodes {
		extent = math.Max(extent, math.Abs(n.X))
		extent = math.Max(extent, math.Abs(n.LabelY))
	}
	scale := (float64(size)/2 - 60) / extent
	center := float64(size) / 2
	px := func(x float64) float64 { return center + scale*x }
	py := func(y float64) float64 { return center - scale*y }

	doc := svgDoc{Size: size, Title: escape(b.Title)}

	pos := make(map[int64][2]float64, len(b.Nodes))
	for _, n := range b.Nodes {
		pos[n.ID] = [2]float64{px(n.X), py(n.Y)}
	}

	// Edges go under the nodes; endpoints pull back to the node border so
	// the arrowheads stay visible.
	for _, e := range b.Edges {
		from, to := pos[e.From], pos[e.To]
		x1, y1, x2, y2 := from[0], from[1], to[0], to[1]
		if d := math.Hypot(x2-x1, y2-y1); d > 0 {
			ux, uy := (x2-x1)/d, (y2-y1)/d
			x1 += ux * svgNodeRadius
			y1 += uy * svgNodeRadius
			x2 -= ux * (svgNodeRadius + 4)
			y2 -= uy * (svgNodeRadius + 4)
		}
		doc.Edges = append(doc.Edges, svgEdge{
			X1: x1, Y1: y1, X2: x2, Y2: y2,
			Width: math.Max(e.Width*2, 0.5),
			Title: escape(fmt.Sprintf("%d -> %d: %s", e.From, e.To, e.Weight)),
		})
	}

	for _, n := range b.Nodes {
		doc.Nodes = append(doc.Nodes, svgNode{
			CX:     px(n.X),
			CY:     py(n.Y),
			R:      svgNodeRadius,
			Color:  n.Color,
			Label:  escape(n.Label),
			LabelX: px(n.LabelX),
			LabelY: py(n.LabelY),
		})
	}

	return svgTemplate.Execute(w, doc)
}
