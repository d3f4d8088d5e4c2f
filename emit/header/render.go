package header

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/typeforge/typeforge/emit"
	"github.com/typeforge/typeforge/graph"
	"github.com/typeforge/typeforge/logger"
	"github.com/typeforge/typeforge/metadata"
	"github.com/typeforge/typeforge/naming"
)

// cppPrimitives maps runtime primitive kinds to their C++ spelling. String,
// object, and arrays are reference types and gain the pointer at the usage
// site, not here.
var cppPrimitives = map[metadata.PrimitiveKind]string{
	metadata.PrimVoid:    "void",
	metadata.PrimBool:    "bool",
	metadata.PrimChar:    "char16_t",
	metadata.PrimI1:      "int8_t",
	metadata.PrimU1:      "uint8_t",
	metadata.PrimI2:      "int16_t",
	metadata.PrimU2:      "uint16_t",
	metadata.PrimI4:      "int32_t",
	metadata.PrimU4:      "uint32_t",
	metadata.PrimI8:      "int64_t",
	metadata.PrimU8:      "uint64_t",
	metadata.PrimR4:      "float",
	metadata.PrimR8:      "double",
	metadata.PrimString:  "TfString",
	metadata.PrimObject:  "TfObject",
	metadata.PrimIntPtr:  "intptr_t",
	metadata.PrimUIntPtr: "uintptr_t",
}

type renderer struct {
	g     *graph.Graph
	names *naming.Table
	log   *zap.SugaredLogger
}

// renderUnit produces one self-contained declaration unit. Units carry no
// includes of their own; the master header sequences them and the global
// forward block satisfies every by-indirection reference.
func (r *renderer) renderUnit(n *graph.TypeNode) []byte {
	var b strings.Builder
	b.WriteString("#pragma once\n")
	b.WriteString("// " + n.FullName)
	if n.Assembly != "" {
		b.WriteString(" (" + n.Assembly + ")")
	}
	b.WriteString("\n\n")

	path := r.names.NamespacePath(n.Token)
	openNamespaces(&b, path)
	r.renderType(&b, n)
	closeNamespaces(&b, path)
	return []byte(b.String())
}

func (r *renderer) renderType(b *strings.Builder, n *graph.TypeNode) {
	switch {
	case n.Excluded:
		r.renderExcluded(b, n)
	case n.Kind == metadata.KindEnum:
		r.renderEnum(b, n)
	case n.Kind == metadata.KindInterface:
		r.renderInterface(b, n)
	case n.GenericArity > 0 && !n.IsInstantiation():
		r.renderOpenGeneric(b, n)
	default:
		r.renderStruct(b, n)
	}
}

// renderExcluded keeps the type addressable without exposing members. A
// known size becomes an opaque byte blob so by-value containment still
// lays out correctly.
func (r *renderer) renderExcluded(b *strings.Builder, n *graph.TypeNode) {
	name := r.names.TypeName(n.Token)
	if n.Size > 0 {
		fmt.Fprintf(b, "struct %s { uint8_t opaque[0x%x]; }; // excluded\n", name, n.Size)
		return
	}
	fmt.Fprintf(b, "struct %s; // excluded\n", name)
}

func (r *renderer) renderEnum(b *strings.Builder, n *graph.TypeNode) {
	underlying := "int32_t"
	for _, f := range n.Fields {
		if !f.Static && f.Type.Shape == metadata.RefPrimitive {
			underlying = cppPrimitives[f.Type.Prim]
			break
		}
	}
	r.sizeComment(b, n)
	fmt.Fprintf(b, "enum class %s : %s {\n", r.names.TypeName(n.Token), underlying)
	for _, f := range n.Fields {
		if f.Static {
			fmt.Fprintf(b, "    %s,\n", r.names.FieldName(f.Token))
		}
	}
	b.WriteString("};\n")
}

// renderOpenGeneric declares the template without members: only concrete
// instantiations carry layouts worth declaring.
func (r *renderer) renderOpenGeneric(b *strings.Builder, n *graph.TypeNode) {
	params := make([]string, n.GenericArity)
	for i := range params {
		params[i] = fmt.Sprintf("typename T%d", i)
	}
	fmt.Fprintf(b, "template <%s>\n", strings.Join(params, ", "))
	fmt.Fprintf(b, "struct %s; // open generic definition, see instantiations\n",
		r.names.TypeName(n.Token))
}

func (r *renderer) renderInterface(b *strings.Builder, n *graph.TypeNode) {
	fmt.Fprintf(b, "struct %s {\n", r.names.TypeName(n.Token))
	fmt.Fprintf(b, "    virtual ~%s() = default;\n", r.names.TypeName(n.Token))
	for _, m := range n.Methods {
		if m.Static {
			continue
		}
		fmt.Fprintf(b, "    virtual %s = 0;\n", r.methodSignature(m))
	}
	b.WriteString("};\n")
}

func (r *renderer) renderStruct(b *strings.Builder, n *graph.TypeNode) {
	r.sizeComment(b, n)
	fmt.Fprintf(b, "struct %s", r.names.TypeName(n.Token))
	if n.Parent != nil && n.Parent.Shape != metadata.RefPrimitive {
		b.WriteString(" : " + r.renderRef(*n.Parent, emit.UsageTypeName))
	}
	if len(n.Interfaces) > 0 {
		impls := make([]string, len(n.Interfaces))
		for i, iface := range n.Interfaces {
			impls[i] = r.renderRef(iface, emit.UsageTypeName)
		}
		b.WriteString(" /* implements " + strings.Join(impls, ", ") + " */")
	}
	b.WriteString(" {\n")

	for _, f := range n.Fields {
		if f.Static {
			continue
		}
		fmt.Fprintf(b, "    %s %s;", r.renderRef(f.Type, emit.UsageField), r.names.FieldName(f.Token))
		if f.Offset != metadata.SizeUnknown {
			fmt.Fprintf(b, " // offset: 0x%x", f.Offset)
		}
		b.WriteString("\n")
	}
	for _, f := range n.Fields {
		if f.Static {
			fmt.Fprintf(b, "    static %s %s;\n",
				r.renderRef(f.Type, emit.UsageField), r.names.FieldName(f.Token))
		}
	}

	if len(n.Methods) > 0 {
		b.WriteString("\n")
	}
	for _, m := range n.Methods {
		b.WriteString("    ")
		if m.Static {
			b.WriteString("static ")
		} else if m.Virtual {
			b.WriteString("virtual ")
		}
		b.WriteString(r.methodSignature(m) + ";")
		if m.Virtual {
			fmt.Fprintf(b, " // slot: %d", m.Slot)
		}
		b.WriteString("\n")
	}

	b.WriteString("};\n")
}

func (r *renderer) sizeComment(b *strings.Builder, n *graph.TypeNode) {
	if n.Size == metadata.SizeUnknown {
		return
	}
	fmt.Fprintf(b, "// size: 0x%x", n.Size)
	if n.Alignment != metadata.SizeUnknown {
		fmt.Fprintf(b, ", align: 0x%x", n.Alignment)
	}
	b.WriteString("\n")
}

func (r *renderer) methodSignature(m *graph.MethodNode) string {
	params := make([]string, len(m.Params))
	paramNames := r.names.ParamNames(m.Token)
	for i, p := range m.Params {
		params[i] = r.renderRef(p.Type, emit.UsageParam) + " " + paramNames[i]
	}
	sig := fmt.Sprintf("%s %s(%s)",
		r.renderRef(m.Return, emit.UsageReturn), r.names.MethodName(m.Token),
		strings.Join(params, ", "))
	if m.GenericArity > 0 {
		sig += fmt.Sprintf(" /* %d generic method parameter(s) */", m.GenericArity)
	}
	return sig
}

// renderRef flattens a reference shape to C++ syntax. Reference-kind types
// (classes, string, object, arrays) spell as pointers in member and
// signature positions; value types spell bare. UsageTypeName positions
// (inheritance lists) never take the pointer.
func (r *renderer) renderRef(ref graph.TypeReference, usage emit.Usage) string {
	switch ref.Shape {
	case metadata.RefPrimitive:
		name := cppPrimitives[ref.Prim]
		if usage != emit.UsageTypeName &&
			(ref.Prim == metadata.PrimString || ref.Prim == metadata.PrimObject) {
			name += "*"
		}
		return name
	case metadata.RefDirect:
		return r.named(ref.Token, usage)
	case metadata.RefGenericInst:
		tok := ref.Token
		if tok == metadata.NoToken {
			tok = ref.Definition
		}
		return r.named(tok, usage)
	case metadata.RefPointer:
		return r.renderRef(*ref.Elem, emit.UsageTypeName) + "*"
	case metadata.RefByRef:
		return r.renderRef(*ref.Elem, emit.UsageTypeName) + "*"
	case metadata.RefArray:
		return "TfArray<" + r.renderRef(*ref.Elem, emit.UsageGenericArg) + ">*"
	case metadata.RefMultiArray:
		r.log.Warnw("multi-dimensional array degraded to object reference",
			logger.FieldTarget, emit.TargetHeader)
		return "TfObject* /* multi-dimensional array */"
	case metadata.RefGenericParam:
		return fmt.Sprintf("T%d", ref.Index)
	case metadata.RefGenericMethodParam:
		return fmt.Sprintf("TM%d", ref.Index)
	}
	return "TfObject*"
}

// named qualifies a token's sanitized name and appends the pointer for
// reference-kind targets outside type-name positions.
func (r *renderer) named(tok metadata.Token, usage emit.Usage) string {
	name := r.names.QualifiedName(tok, "::")
	if name == "" {
		return "TfObject*"
	}
	if len(r.names.NamespacePath(tok)) > 0 {
		name = "::" + name
	}
	if usage != emit.UsageTypeName && !r.g.IsValueType(tok) {
		name += "*"
	}
	return name
}
