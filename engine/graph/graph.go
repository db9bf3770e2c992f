// Package graph builds the directed trading graph for a focal entity from
// its normalized transaction table: weighted edges per ordered entity pair,
// directional role classification per node, and a deterministic circular
// layout. The result is pure data; rendering is a separate consumer.
package graph

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/carbonlens/carbonlens/engine/domain"
	"github.com/carbonlens/carbonlens/pkg/fn"
)

// Role classifies a node by its direction of trade relative to the graph.
type Role string

const (
	// RoleThis marks the focal entity.
	RoleThis Role = "this"
	// RoleTrader marks entities that both send and receive.
	RoleTrader Role = "trader"
	// RoleSender marks entities that only appear on the transferring side.
	RoleSender Role = "sender"
	// RoleReceiver marks entities that only appear on the acquiring side.
	RoleReceiver Role = "receiver"
)

// roleColors maps each role to its diagram color, 1:1.
var roleColors = map[Role]string{
	RoleThis:     "green",
	RoleTrader:   "violet",
	RoleSender:   "blue",
	RoleReceiver: "red",
}

// Color returns the diagram color for the role.
func (r Role) Color() string { return roleColors[r] }

// Node is one entity in the trading graph.
type Node struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"` // entity type; may be empty or "unknown"
	Role  Role   `json:"role"`
	Color string `json:"color"`
}

// Edge aggregates all transactions for one ordered (from, to) pair.
type Edge struct {
	From   int64           `json:"from"`
	To     int64           `json:"to"`
	Weight decimal.Decimal `json:"weight"`
	Width  float64         `json:"width"`
}

// Point is a 2D layout coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Graph is the built trading graph plus its layout. Never mutated after
// construction; rebuild instead.
type Graph struct {
	Nodes        []Node          `json:"nodes"`
	Edges        []Edge          `json:"edges"`
	Positions    map[int64]Point `json:"positions"`
	LabelOffsets map[int64]Point `json:"label_offsets"`
	FocalID      int64           `json:"focal_id"`
}

// Options tunes graph construction.
type Options struct {
	// MaxNodes refuses to build graphs that would be unreadable.
	MaxNodes int
	// Radius of the circle the non-focal nodes are placed on.
	Radius float64
	// MinEdgeWidth and MaxEdgeWidth bound the rendered stroke widths. The
	// heaviest edge in the graph always gets MaxEdgeWidth.
	MinEdgeWidth float64
	MaxEdgeWidth float64
	// FocalName and FocalType annotate the focal node when the transaction
	// table never mentions it (isolated entity).
	FocalName string
	FocalType string
}

// DefaultOptions returns the standard diagram tuning.
func DefaultOptions() Options {
	return Options{
		MaxNodes:     40,
		Radius:       2,
		MinEdgeWidth: 0.05,
		MaxEdgeWidth: 3,
	}
}

// TooLargeError wraps ErrGraphTooLarge with the offending node count.
type TooLargeError struct {
	Nodes int
	Limit int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("%s: %d nodes (limit %d)", domain.ErrGraphTooLarge, e.Nodes, e.Limit)
}

func (e *TooLargeError) Unwrap() error { return domain.ErrGraphTooLarge }

// Build constructs the trading graph for focalID from the normalized table.
// An empty table yields a single-node graph holding only the focal entity.
// Given the same table and focal id the result is exactly reproducible.
func Build(table []domain.NormalizedTransaction, focalID int64, opts Options) (*Graph, error) {
	if opts.MaxNodes <= 0 {
		opts = DefaultOptions()
	}

	g := &Graph{
		FocalID:      focalID,
		Positions:    make(map[int64]Point),
		LabelOffsets: make(map[int64]Point),
	}

	if len(table) == 0 {
		g.Nodes = []Node{{
			ID:    focalID,
			Name:  opts.FocalName,
			Type:  opts.FocalType,
			Role:  RoleThis,
			Color: RoleThis.Color(),
		}}
		place(g, opts)
		return g, nil
	}

	ids, names, types := collectNodes(table, focalID, opts)
	if len(ids) > opts.MaxNodes {
		return nil, &TooLargeError{Nodes: len(ids), Limit: opts.MaxNodes}
	}

	roles := classify(table, ids, focalID)
	for _, id := range ids {
		role := roles[id]
		g.Nodes = append(g.Nodes, Node{
			ID:    id,
			Name:  names[id],
			Type:  types[id],
			Role:  role,
			Color: role.Color(),
		})
	}

	g.Edges = buildEdges(table, opts)
	place(g, opts)
	return g, nil
}

// collectNodes returns the distinct node ids in ascending order together
// with each id's display name and type. Names resolve from the first row
// mentioning the id, transferring side scanned before acquiring, so later
// disagreeing rows never win.
func collectNodes(table []domain.NormalizedTransaction, focalID int64, opts Options) (ids []int64, names, types map[int64]string) {
	names = make(map[int64]string)
	types = make(map[int64]string)

	all := make([]int64, 0, 2*len(table))
	for _, tx := range table {
		if _, ok := names[tx.TransferringID]; !ok {
			names[tx.TransferringID] = tx.TransferringName
			types[tx.TransferringID] = tx.TransferringType
		}
		all = append(all, tx.TransferringID)
	}
	for _, tx := range table {
		if _, ok := names[tx.AcquiringID]; !ok {
			names[tx.AcquiringID] = tx.AcquiringName
			types[tx.AcquiringID] = tx.AcquiringType
		}
		all = append(all, tx.AcquiringID)
	}
	ids = fn.Unique(all)

	// The focal entity is always a node, even when it never trades.
	if _, ok := names[focalID]; !ok {
		ids = append(ids, focalID)
		names[focalID] = opts.FocalName
		types[focalID] = opts.FocalType
	}

	sortInt64s(ids)
	return ids, names, types
}

// classify assigns directional roles: trader for nodes on both sides,
// otherwise sender or receiver. The focal entity's role is always RoleThis,
// overriding the computed one.
func classify(table []domain.NormalizedTransaction, ids []int64, focalID int64) map[int64]Role {
	sending := make(map[int64]struct{})
	receiving := make(map[int64]struct{})
	for _, tx := range table {
		sending[tx.TransferringID] = struct{}{}
		receiving[tx.AcquiringID] = struct{}{}
	}

	roles := make(map[int64]Role, len(ids))
	for _, id := range ids {
		_, sends := sending[id]
		_, receives := receiving[id]
		switch {
		case sends && receives:
			roles[id] = RoleTrader
		case sends:
			roles[id] = RoleSender
		case receives:
			roles[id] = RoleReceiver
		default:
			roles[id] = RoleThis // isolated focal node
		}
	}
	roles[focalID] = RoleThis
	return roles
}

// buildEdges groups the table by ordered (from, to) pair. Edge weight is the
// exact decimal sum of amounts; visual width interpolates between the
// configured bounds so the heaviest edge always renders at MaxEdgeWidth.
func buildEdges(table []domain.NormalizedTransaction, opts Options) []Edge {
	type pair struct{ from, to int64 }

	weights := make(map[pair]decimal.Decimal)
	var order []pair
	for _, tx := range table {
		p := pair{tx.TransferringID, tx.AcquiringID}
		if _, ok := weights[p]; !ok {
			order = append(order, p)
		}
		weights[p] = weights[p].Add(tx.Amount)
	}

	maxWeight := decimal.Zero
	for _, w := range weights {
		if w.GreaterThan(maxWeight) {
			maxWeight = w
		}
	}

	edges := make([]Edge, 0, len(order))
	for _, p := range order {
		w := weights[p]
		width := opts.MinEdgeWidth
		if maxWeight.IsPositive() {
			ratio, _ := w.Div(maxWeight).Float64()
			width = opts.MinEdgeWidth + (opts.MaxEdgeWidth-opts.MinEdgeWidth)*ratio
		}
		edges = append(edges, Edge{From: p.from, To: p.to, Weight: w, Width: width})
	}

	sortEdges(edges)
	return edges
}
