// Package metadata defines the adapter boundary between typeforge and the
// low-level binary readers that decode a managed runtime's metadata store.
//
// The pipeline never parses raw bytes itself: an Adapter yields typed records
// for assemblies, type definitions, fields, methods, generic parameters and
// vtables, each addressable by a stable integer Token. Which adapter decodes
// which binary-format revision is a registration concern (see registry.go);
// the pipeline is agnostic beyond accepting whichever adapter it is given.
package metadata

import "fmt"

// Token is the stable integer identifier of a metadata record. Tokens are
// globally unique within one metadata snapshot.
type Token uint32

// NoToken marks an absent token reference (e.g. a top-level type has no
// declaring type).
const NoToken Token = 0

// String renders the token in the conventional hex form used in diagnostics.
func (t Token) String() string {
	return fmt.Sprintf("0x%08x", uint32(t))
}

// TypeKind classifies a type definition record.
type TypeKind string

const (
	KindClass     TypeKind = "class"
	KindStruct    TypeKind = "struct"
	KindInterface TypeKind = "interface"
	KindEnum      TypeKind = "enum"
	// KindInstantiation marks graph nodes materialized for concrete generic
	// instantiations. Adapters never yield this kind; the pipeline does.
	KindInstantiation TypeKind = "instantiation"
)

// SizeUnknown marks absent layout information. Layout metadata is optional;
// absent sizes and offsets are omitted from output, never zeroed.
const SizeUnknown int64 = -1

// AssemblyRecord describes one assembly in the metadata store.
type AssemblyRecord struct {
	Token Token  `json:"token"`
	Name  string `json:"name"`
}

// TypeDefRecord describes one type definition.
type TypeDefRecord struct {
	Token         Token     `json:"token"`
	Name          string    `json:"name"`
	Namespace     string    `json:"namespace"`
	Assembly      string    `json:"assembly"`
	Kind          TypeKind  `json:"kind"`
	Parent        *TypeRef  `json:"parent,omitempty"`
	Interfaces    []TypeRef `json:"interfaces,omitempty"`
	DeclaringType Token     `json:"declaring_type,omitempty"`
	GenericArity  int       `json:"generic_arity,omitempty"`
	Size          int64     `json:"size,omitempty"`
	Alignment     int64     `json:"alignment,omitempty"`
}

// FullName returns the namespace-qualified original name.
func (r TypeDefRecord) FullName() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "." + r.Name
}

// FieldRecord describes one field of a type definition.
type FieldRecord struct {
	Token  Token   `json:"token"`
	Owner  Token   `json:"owner"`
	Name   string  `json:"name"`
	Type   TypeRef `json:"type"`
	Offset int64   `json:"offset"` // SizeUnknown when layout is absent
	Static bool    `json:"static,omitempty"`
}

// ParamRecord describes one method parameter.
type ParamRecord struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
}

// MethodRecord describes one method of a type definition. Method bodies are
// never decoded; only the structural signature survives.
type MethodRecord struct {
	Token        Token         `json:"token"`
	Owner        Token         `json:"owner"`
	Name         string        `json:"name"`
	Params       []ParamRecord `json:"params,omitempty"`
	Return       TypeRef       `json:"return"`
	Virtual      bool          `json:"virtual,omitempty"`
	Slot         int           `json:"slot"` // vtable slot index, -1 when not virtual
	Static       bool          `json:"static,omitempty"`
	GenericArity int           `json:"generic_arity,omitempty"`
}

// GenericParamRecord describes one generic parameter of a type or method.
type GenericParamRecord struct {
	Token Token  `json:"token"`
	Owner Token  `json:"owner"`
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// VtableSlotRecord describes one slot of a type's virtual dispatch table.
// Override chains preserve the base method's slot index in derived types.
type VtableSlotRecord struct {
	Slot       int   `json:"slot"`
	Method     Token `json:"method"`
	DeclaredBy Token `json:"declared_by"`
}
