package graph

import (
	"math"
	"sort"
)

// place computes the deterministic layout: the focal node pinned at the
// origin, all other nodes evenly spaced on a circle, ordered so nodes with
// the same role are adjacent. Label anchors sit below each node by a fixed
// fraction of the radius so they clear the node marker.
func place(g *Graph, opts Options) {
	labelDrop := opts.Radius / 8

	var others []Node
	for _, n := range g.Nodes {
		if n.ID == g.FocalID {
			continue
		}
		others = append(others, n)
	}

	// Stable sort by role label over the id-ordered node list keeps the
	// circular ordering reproducible.
	sort.SliceStable(others, func(i, j int) bool {
		return others[i].Role < others[j].Role
	})

	for i, n := range others {
		theta := 2 * math.Pi * float64(i) / float64(len(others))
		p := Point{
			X: opts.Radius * math.Cos(theta),
			Y: opts.Radius * math.Sin(theta),
		}
		g.Positions[n.ID] = p
		g.LabelOffsets[n.ID] = Point{X: p.X, Y: p.Y - labelDrop}
	}

	g.Positions[g.FocalID] = Point{}
	g.LabelOffsets[g.FocalID] = Point{Y: -labelDrop}
}

func sortInt64s(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
}
