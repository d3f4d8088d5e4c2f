package graph

import (
	"sort"

	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/metadata"
)

// Graph is the arena of TypeNodes for one pipeline run. Nodes are addressed
// by token; relationships are explicit edges, never embedded pointers, so
// cyclic metadata cannot produce cyclic ownership.
type Graph struct {
	byToken map[metadata.Token]*TypeNode
	edges   []Edge

	// maxToken tracks the highest adapter-issued token so synthetic
	// instantiation tokens never collide with real ones.
	maxToken metadata.Token
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{byToken: map[metadata.Token]*TypeNode{}}
}

// AddNode inserts a node into the arena. Token collisions indicate broken
// adapter output and are reported as metadata inconsistencies.
func (g *Graph) AddNode(n *TypeNode) error {
	if _, exists := g.byToken[n.Token]; exists {
		return errors.NewMetadataInconsistency(uint32(n.Token), "duplicate token")
	}
	g.byToken[n.Token] = n
	if n.Token > g.maxToken {
		g.maxToken = n.Token
	}
	return nil
}

// Node returns the node for a token, if present.
func (g *Graph) Node(t metadata.Token) (*TypeNode, bool) {
	n, ok := g.byToken[t]
	return n, ok
}

// Nodes returns all nodes sorted by token. Token order is the canonical
// deterministic iteration order everywhere in the pipeline.
func (g *Graph) Nodes() []*TypeNode {
	out := make([]*TypeNode, 0, len(g.byToken))
	for _, n := range g.byToken {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.byToken) }

// AddEdge appends a typed edge.
func (g *Graph) AddEdge(e Edge) { g.edges = append(g.edges, e) }

// Edges returns all edges in insertion order. Insertion happens in token
// order over nodes and declaration order over members, so the sequence is
// deterministic for identical input.
func (g *Graph) Edges() []Edge { return g.edges }

// OrderingEdges returns the subset of edges that constrain emission order.
func (g *Graph) OrderingEdges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if e.Ordering() {
			out = append(out, e)
		}
	}
	return out
}

// IsValueType reports whether the token names a type stored by value when
// used as a field: structs, enums, and instantiations of generic structs.
func (g *Graph) IsValueType(t metadata.Token) bool {
	n, ok := g.byToken[t]
	if !ok {
		return false
	}
	switch n.Kind {
	case metadata.KindStruct, metadata.KindEnum:
		return true
	case metadata.KindInstantiation:
		return g.IsValueType(n.Definition)
	}
	return false
}

// nextSyntheticToken reserves a fresh token above every adapter-issued one.
// Callers must hold whatever lock guards node insertion.
func (g *Graph) nextSyntheticToken() metadata.Token {
	g.maxToken++
	return g.maxToken
}
