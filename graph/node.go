// Package graph holds the in-memory type graph built from metadata adapter
// records: an arena of TypeNodes addressed by stable tokens, with all
// inter-node relationships expressed as typed edges rather than owning
// pointers. Graph state lives for exactly one pipeline run.
package graph

import (
	"github.com/typeforge/typeforge/metadata"
)

// TypeNode represents one concrete type: a class, struct, interface, enum,
// or a materialized generic instantiation.
type TypeNode struct {
	Token     metadata.Token
	Name      string
	Namespace string
	Assembly  string
	// FullName is the namespace-qualified original name. Instantiation nodes
	// carry a rendered name like "List`1<Int32>".
	FullName string
	Kind     metadata.TypeKind

	// Layout metadata when statically known; metadata.SizeUnknown otherwise.
	Size      int64
	Alignment int64

	GenericArity  int
	DeclaringType metadata.Token

	// Parent and Interfaces are resolved after instantiation resolution.
	Parent     *TypeReference
	Interfaces []TypeReference

	Fields  []*FieldNode
	Methods []*MethodNode

	GenericParams []metadata.GenericParamRecord
	Vtable        []metadata.VtableSlotRecord

	// Excluded types render as opaque placeholders, never declarations.
	Excluded bool

	// Instantiation-only: the generic definition and its ordered arguments.
	Definition metadata.Token
	TypeArgs   []TypeReference

	// Raw adapter references, consumed by the resolution passes.
	rawParent     *metadata.TypeRef
	rawInterfaces []metadata.TypeRef
}

// IsInstantiation reports whether the node is a materialized generic
// instantiation rather than a type definition.
func (n *TypeNode) IsInstantiation() bool { return n.Kind == metadata.KindInstantiation }

// FieldNode represents one field of a TypeNode.
type FieldNode struct {
	Token  metadata.Token
	Owner  metadata.Token
	Name   string
	Type   TypeReference
	Offset int64 // metadata.SizeUnknown when layout is absent
	Static bool

	raw metadata.TypeRef
}

// MethodNode represents one method declaration of a TypeNode. Bodies are
// never reconstructed.
type MethodNode struct {
	Token        metadata.Token
	Owner        metadata.Token
	Name         string
	Params       []ParamNode
	Return       TypeReference
	Virtual      bool
	Slot         int // vtable slot index, -1 when not virtual
	Static       bool
	GenericArity int

	rawParams []metadata.ParamRecord
	rawReturn metadata.TypeRef
}

// ParamNode is one ordered method parameter.
type ParamNode struct {
	Name string
	Type TypeReference
}

// TypeReference is a resolved, possibly-indirect reference to a TypeNode.
// For generic-inst shapes, Token addresses the materialized instantiation
// node and Definition the generic definition it binds.
type TypeReference struct {
	Shape      metadata.RefShape
	Token      metadata.Token
	Definition metadata.Token
	Prim       metadata.PrimitiveKind
	Elem       *TypeReference
	Args       []TypeReference
	Index      int
}

// DependencyTarget returns the token whose declaration this reference pulls
// in at a use-by-value site, and whether the use is by value. Indirected
// shapes (pointer, by-ref, array) reference their element without forcing
// declaration order; primitives and open generic parameters reference
// nothing.
func (r TypeReference) DependencyTarget(g *Graph) (metadata.Token, bool) {
	switch r.Shape {
	case metadata.RefDirect:
		return r.Token, g.IsValueType(r.Token)
	case metadata.RefGenericInst:
		// Open instantiations stay symbolic; the declaration dependency is
		// on the generic definition itself.
		tok := r.Token
		if tok == metadata.NoToken {
			tok = r.Definition
		}
		return tok, g.IsValueType(tok)
	case metadata.RefPointer, metadata.RefByRef, metadata.RefArray, metadata.RefMultiArray:
		if r.Elem != nil {
			tok, _ := r.Elem.DependencyTarget(g)
			return tok, false
		}
	}
	return metadata.NoToken, false
}
