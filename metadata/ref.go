package metadata

import (
	"fmt"
	"sort"
	"strings"
)

// RefShape discriminates the closed set of type-reference shapes an adapter
// can yield. References are trees: pointer/byref/array wrap an element,
// generic instantiations carry an argument list.
type RefShape string

const (
	// RefDirect names a type definition by token.
	RefDirect RefShape = "direct"
	// RefPrimitive names one of the runtime's built-in primitive kinds.
	RefPrimitive RefShape = "primitive"
	// RefPointer is an indirection; it never forces declaration order.
	RefPointer RefShape = "pointer"
	// RefByRef is a by-reference passing wrapper (managed `ref`).
	RefByRef RefShape = "byref"
	// RefArray is a single-dimension zero-based array.
	RefArray RefShape = "array"
	// RefMultiArray is a multi-dimensional array. Rendered as the object
	// placeholder by every backend.
	RefMultiArray RefShape = "multi-array"
	// RefGenericInst binds a generic definition to concrete arguments.
	RefGenericInst RefShape = "generic-inst"
	// RefGenericParam is a placeholder for a class-level generic parameter.
	RefGenericParam RefShape = "generic-param"
	// RefGenericMethodParam is a placeholder for a method-level generic parameter.
	RefGenericMethodParam RefShape = "generic-method-param"
)

// PrimitiveKind names the runtime's built-in value kinds.
type PrimitiveKind string

const (
	PrimVoid    PrimitiveKind = "void"
	PrimBool    PrimitiveKind = "bool"
	PrimChar    PrimitiveKind = "char"
	PrimI1      PrimitiveKind = "i1"
	PrimU1      PrimitiveKind = "u1"
	PrimI2      PrimitiveKind = "i2"
	PrimU2      PrimitiveKind = "u2"
	PrimI4      PrimitiveKind = "i4"
	PrimU4      PrimitiveKind = "u4"
	PrimI8      PrimitiveKind = "i8"
	PrimU8      PrimitiveKind = "u8"
	PrimR4      PrimitiveKind = "r4"
	PrimR8      PrimitiveKind = "r8"
	PrimString  PrimitiveKind = "string"
	PrimObject  PrimitiveKind = "object"
	PrimIntPtr  PrimitiveKind = "intptr"
	PrimUIntPtr PrimitiveKind = "uintptr"
)

// TypeRef is a possibly-indirect reference to a type. Target is meaningful
// for direct and generic-inst shapes, Elem for wrapper shapes, Args for
// generic instantiations, Index for generic-parameter placeholders.
type TypeRef struct {
	Shape  RefShape      `json:"shape"`
	Target Token         `json:"target,omitempty"`
	Prim   PrimitiveKind `json:"prim,omitempty"`
	Elem   *TypeRef      `json:"elem,omitempty"`
	Args   []TypeRef     `json:"args,omitempty"`
	Index  int           `json:"index,omitempty"`
}

// Direct constructs a direct reference to a type definition token.
func Direct(t Token) TypeRef { return TypeRef{Shape: RefDirect, Target: t} }

// Primitive constructs a primitive reference.
func Primitive(p PrimitiveKind) TypeRef { return TypeRef{Shape: RefPrimitive, Prim: p} }

// PointerTo wraps a reference in one level of indirection.
func PointerTo(elem TypeRef) TypeRef { return TypeRef{Shape: RefPointer, Elem: &elem} }

// ByRefTo wraps a reference as by-ref.
func ByRefTo(elem TypeRef) TypeRef { return TypeRef{Shape: RefByRef, Elem: &elem} }

// ArrayOf constructs a single-dimension array reference.
func ArrayOf(elem TypeRef) TypeRef { return TypeRef{Shape: RefArray, Elem: &elem} }

// GenericInst binds a generic definition token to concrete arguments.
func GenericInst(def Token, args ...TypeRef) TypeRef {
	return TypeRef{Shape: RefGenericInst, Target: def, Args: args}
}

// GenericParam references the class-level generic parameter at index.
func GenericParam(index int) TypeRef { return TypeRef{Shape: RefGenericParam, Index: index} }

// GenericMethodParam references the method-level generic parameter at index.
func GenericMethodParam(index int) TypeRef {
	return TypeRef{Shape: RefGenericMethodParam, Index: index}
}

// IsZero reports whether the reference is absent.
func (r TypeRef) IsZero() bool { return r.Shape == "" }

// Key renders a canonical structural key for the reference. Two references
// with equal keys are structurally identical; the instantiation resolver
// memoizes on this.
func (r TypeRef) Key() string {
	var b strings.Builder
	r.writeKey(&b)
	return b.String()
}

func (r TypeRef) writeKey(b *strings.Builder) {
	switch r.Shape {
	case RefDirect:
		fmt.Fprintf(b, "t%d", r.Target)
	case RefPrimitive:
		fmt.Fprintf(b, "p:%s", r.Prim)
	case RefPointer, RefByRef, RefArray, RefMultiArray:
		fmt.Fprintf(b, "%s(", r.Shape)
		if r.Elem != nil {
			r.Elem.writeKey(b)
		}
		b.WriteByte(')')
	case RefGenericInst:
		fmt.Fprintf(b, "g%d<", r.Target)
		for i, a := range r.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			a.writeKey(b)
		}
		b.WriteByte('>')
	case RefGenericParam:
		fmt.Fprintf(b, "var%d", r.Index)
	case RefGenericMethodParam:
		fmt.Fprintf(b, "mvar%d", r.Index)
	}
}

// ReferencedTokens collects every type-definition token named anywhere in
// the reference tree, sorted and deduplicated.
func (r TypeRef) ReferencedTokens() []Token {
	seen := map[Token]struct{}{}
	r.collectTokens(seen)
	out := make([]Token, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r TypeRef) collectTokens(seen map[Token]struct{}) {
	if r.Target != NoToken {
		seen[r.Target] = struct{}{}
	}
	if r.Elem != nil {
		r.Elem.collectTokens(seen)
	}
	for _, a := range r.Args {
		a.collectTokens(seen)
	}
}

// HasOpenParameter reports whether the reference tree still names a class or
// method generic parameter with no concrete binding.
func (r TypeRef) HasOpenParameter() bool {
	if r.Shape == RefGenericParam || r.Shape == RefGenericMethodParam {
		return true
	}
	if r.Elem != nil && r.Elem.HasOpenParameter() {
		return true
	}
	for _, a := range r.Args {
		if a.HasOpenParameter() {
			return true
		}
	}
	return false
}
