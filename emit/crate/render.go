package crate

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/typeforge/typeforge/emit"
	"github.com/typeforge/typeforge/graph"
	"github.com/typeforge/typeforge/internal/util"
	"github.com/typeforge/typeforge/logger"
	"github.com/typeforge/typeforge/metadata"
	"github.com/typeforge/typeforge/naming"
	"github.com/typeforge/typeforge/order"
)

// rustPrimitives maps runtime primitive kinds to their Rust spelling.
// String, object, and arrays gain the raw-pointer wrapper at the usage site.
var rustPrimitives = map[metadata.PrimitiveKind]string{
	metadata.PrimVoid:    "()",
	metadata.PrimBool:    "bool",
	metadata.PrimChar:    "u16",
	metadata.PrimI1:      "i8",
	metadata.PrimU1:      "u8",
	metadata.PrimI2:      "i16",
	metadata.PrimU2:      "u16",
	metadata.PrimI4:      "i32",
	metadata.PrimU4:      "u32",
	metadata.PrimI8:      "i64",
	metadata.PrimU8:      "u64",
	metadata.PrimR4:      "f32",
	metadata.PrimR8:      "f64",
	metadata.PrimString:  "crate::TfString",
	metadata.PrimObject:  "crate::TfObject",
	metadata.PrimIntPtr:  "isize",
	metadata.PrimUIntPtr: "usize",
}

type renderer struct {
	g       *graph.Graph
	names   *naming.Table
	modules map[string]string // assembly -> rust module name
	log     *zap.SugaredLogger
}

func (r *renderer) sortedModules() []string {
	out := make([]string, 0, len(r.modules))
	for _, mod := range r.modules {
		out = append(out, mod)
	}
	sort.Strings(out)
	return out
}

// renderModule produces one assembly's source file: namespace groups as
// nested modules, types within a group in emission-order positions.
func (r *renderer) renderModule(mod string, ord *order.EmissionOrder) []byte {
	type entry struct {
		pos  int
		node *graph.TypeNode
	}
	byNS := map[string][]entry{}
	for _, n := range r.g.Nodes() {
		if r.modules[n.Assembly] != mod {
			continue
		}
		pos, ok := ord.Position(n.Token)
		if !ok {
			continue
		}
		key := strings.Join(r.names.NamespacePath(n.Token), "::")
		byNS[key] = append(byNS[key], entry{pos: pos, node: n})
	}
	var b strings.Builder
	for _, key := range util.SortedKeys(byNS) {
		entries := byNS[key]
		sort.Slice(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })

		segments := []string{}
		if key != "" {
			segments = strings.Split(key, "::")
		}
		for _, seg := range segments {
			b.WriteString("pub mod " + seg + " {\n")
		}
		for _, en := range entries {
			r.renderType(&b, en.node)
			b.WriteString("\n")
		}
		for range segments {
			b.WriteString("}\n")
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func (r *renderer) renderType(b *strings.Builder, n *graph.TypeNode) {
	fmt.Fprintf(b, "// %s", n.FullName)
	if n.Assembly != "" {
		fmt.Fprintf(b, " (%s)", n.Assembly)
	}
	b.WriteString("\n")

	switch {
	case n.Excluded:
		r.renderExcluded(b, n)
	case n.Kind == metadata.KindEnum:
		r.renderEnum(b, n)
	case n.Kind == metadata.KindInterface:
		r.renderTrait(b, n)
	case n.GenericArity > 0 && !n.IsInstantiation():
		r.renderOpenGeneric(b, n)
	default:
		r.renderStruct(b, n)
	}
}

func (r *renderer) renderExcluded(b *strings.Builder, n *graph.TypeNode) {
	name := r.names.TypeName(n.Token)
	b.WriteString("#[repr(C)]\n")
	if n.Size > 0 {
		fmt.Fprintf(b, "pub struct %s {\n    _opaque: [u8; 0x%x],\n}\n", name, n.Size)
		return
	}
	fmt.Fprintf(b, "pub struct %s {\n    _opaque: [u8; 0],\n}\n", name)
}

func (r *renderer) renderEnum(b *strings.Builder, n *graph.TypeNode) {
	underlying := "i32"
	for _, f := range n.Fields {
		if !f.Static && f.Type.Shape == metadata.RefPrimitive {
			underlying = rustPrimitives[f.Type.Prim]
			break
		}
	}
	variants := []string{}
	for _, f := range n.Fields {
		if f.Static {
			variants = append(variants, r.names.FieldName(f.Token))
		}
	}
	name := r.names.TypeName(n.Token)
	if len(variants) == 0 {
		fmt.Fprintf(b, "#[repr(transparent)]\npub struct %s(pub %s);\n", name, underlying)
		return
	}
	fmt.Fprintf(b, "#[repr(%s)]\npub enum %s {\n", underlying, name)
	for _, v := range variants {
		fmt.Fprintf(b, "    %s,\n", v)
	}
	b.WriteString("}\n")
}

func (r *renderer) renderTrait(b *strings.Builder, n *graph.TypeNode) {
	fmt.Fprintf(b, "pub trait %s {\n", r.names.TypeName(n.Token))
	for _, m := range n.Methods {
		if m.Static {
			continue
		}
		fmt.Fprintf(b, "    fn %s;", r.methodSignature(m, true))
		if m.Virtual {
			fmt.Fprintf(b, " // slot: %d", m.Slot)
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
}

// renderOpenGeneric keeps the definition nameable for cross-references but
// member-less: layouts only exist on concrete instantiations.
func (r *renderer) renderOpenGeneric(b *strings.Builder, n *graph.TypeNode) {
	params := make([]string, n.GenericArity)
	for i := range params {
		params[i] = fmt.Sprintf("T%d", i)
	}
	list := strings.Join(params, ", ")
	fmt.Fprintf(b, "// open generic definition, see instantiations\n")
	fmt.Fprintf(b, "pub struct %s<%s>(::core::marker::PhantomData<(%s)>);\n",
		r.names.TypeName(n.Token), list, list)
}

func (r *renderer) renderStruct(b *strings.Builder, n *graph.TypeNode) {
	if n.Size != metadata.SizeUnknown {
		fmt.Fprintf(b, "// size: 0x%x", n.Size)
		if n.Alignment != metadata.SizeUnknown {
			fmt.Fprintf(b, ", align: 0x%x", n.Alignment)
		}
		b.WriteString("\n")
	}
	b.WriteString("#[repr(C)]\n")
	fmt.Fprintf(b, "pub struct %s {\n", r.names.TypeName(n.Token))

	if base, ok := r.baseEmbed(n); ok {
		fmt.Fprintf(b, "    pub base: %s,\n", base)
	}
	for _, f := range n.Fields {
		if f.Static {
			continue
		}
		fmt.Fprintf(b, "    pub %s: %s,", r.names.FieldName(f.Token), r.renderRef(f.Type, emit.UsageField))
		if f.Offset != metadata.SizeUnknown {
			fmt.Fprintf(b, " // offset: 0x%x", f.Offset)
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")

	// Method declarations have no bodiless inherent form in Rust; the
	// signatures ride along as structured comments.
	for _, m := range n.Methods {
		fmt.Fprintf(b, "// fn %s;", r.methodSignature(m, !m.Static))
		if m.Virtual {
			fmt.Fprintf(b, " // slot: %d", m.Slot)
		}
		b.WriteString("\n")
	}
}

// baseEmbed resolves the inherited layout prefix: managed inheritance maps
// to the base type embedded as the first field under repr(C).
func (r *renderer) baseEmbed(n *graph.TypeNode) (string, bool) {
	if n.Parent == nil {
		return "", false
	}
	switch n.Parent.Shape {
	case metadata.RefDirect, metadata.RefGenericInst:
		tok := n.Parent.Token
		if tok == metadata.NoToken {
			tok = n.Parent.Definition
		}
		if name := r.path(tok); name != "" {
			return name, true
		}
	case metadata.RefPrimitive:
		if n.Parent.Prim == metadata.PrimObject {
			return "crate::TfObject", true
		}
	}
	return "", false
}

func (r *renderer) methodSignature(m *graph.MethodNode, withSelf bool) string {
	params := []string{}
	if withSelf {
		params = append(params, "&self")
	}
	paramNames := r.names.ParamNames(m.Token)
	for i, p := range m.Params {
		params = append(params, paramNames[i]+": "+r.renderRef(p.Type, emit.UsageParam))
	}
	sig := fmt.Sprintf("%s(%s)", r.names.MethodName(m.Token), strings.Join(params, ", "))
	if ret := r.renderRef(m.Return, emit.UsageReturn); ret != "()" {
		sig += " -> " + ret
	}
	return sig
}

// renderRef flattens a reference shape to Rust syntax. Reference-kind
// targets spell as *mut outside bare type-name positions.
func (r *renderer) renderRef(ref graph.TypeReference, usage emit.Usage) string {
	switch ref.Shape {
	case metadata.RefPrimitive:
		name := rustPrimitives[ref.Prim]
		if usage != emit.UsageTypeName &&
			(ref.Prim == metadata.PrimString || ref.Prim == metadata.PrimObject) {
			name = "*mut " + name
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
	case metadata.RefPointer, metadata.RefByRef:
		return "*mut " + r.renderRef(*ref.Elem, emit.UsageTypeName)
	case metadata.RefArray:
		return "*mut crate::TfArray<" + r.renderRef(*ref.Elem, emit.UsageGenericArg) + ">"
	case metadata.RefMultiArray:
		r.log.Warnw("multi-dimensional array degraded to object reference",
			logger.FieldTarget, emit.TargetCrate)
		return "*mut crate::TfObject"
	case metadata.RefGenericParam:
		return fmt.Sprintf("T%d", ref.Index)
	case metadata.RefGenericMethodParam:
		return fmt.Sprintf("TM%d", ref.Index)
	}
	return "*mut crate::TfObject"
}

func (r *renderer) named(tok metadata.Token, usage emit.Usage) string {
	name := r.path(tok)
	if name == "" {
		return "*mut crate::TfObject"
	}
	if usage != emit.UsageTypeName && !r.g.IsValueType(tok) {
		name = "*mut " + name
	}
	return name
}

// path builds the crate-absolute module path of a type.
func (r *renderer) path(tok metadata.Token) string {
	n, ok := r.g.Node(tok)
	if !ok {
		return ""
	}
	parts := []string{"crate", r.modules[n.Assembly]}
	parts = append(parts, r.names.NamespacePath(tok)...)
	parts = append(parts, r.names.TypeName(tok))
	return strings.Join(parts, "::")
}
