package graph

import "github.com/typeforge/typeforge/metadata"

// EdgeKind types the relation between two TypeNodes.
type EdgeKind string

const (
	// EdgeInherits points from a type to its base type.
	EdgeInherits EdgeKind = "inherits"
	// EdgeImplements points from a type to an implemented interface.
	EdgeImplements EdgeKind = "implements"
	// EdgeContainsField points from a type to the type of one of its
	// instance fields. ByValue distinguishes embedded value storage from
	// indirection; only by-value containment forces declaration order.
	EdgeContainsField EdgeKind = "contains-field-of"
	// EdgeGenericArgument points from an instantiation node to its generic
	// definition and to each concrete type argument.
	EdgeGenericArgument EdgeKind = "generic-argument-of"
	// EdgeNestedIn points from a nested type to its declaring type.
	EdgeNestedIn EdgeKind = "nested-in"
)

// Edge is one typed relation between two TypeNodes, addressed by token.
type Edge struct {
	From    metadata.Token `json:"from"`
	To      metadata.Token `json:"to"`
	Kind    EdgeKind       `json:"kind"`
	ByValue bool           `json:"by_value,omitempty"`
}

// Ordering reports whether the edge constrains emission order: inheritance,
// interface implementation, and by-value field containment require the
// target to be fully declared first.
func (e Edge) Ordering() bool {
	switch e.Kind {
	case EdgeInherits, EdgeImplements:
		return true
	case EdgeContainsField:
		return e.ByValue
	}
	return false
}
