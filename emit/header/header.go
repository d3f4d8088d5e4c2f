// Package header renders the native-header target: a tree of C++ headers,
// one declaration unit per type, stitched together by a master header whose
// include sequence mirrors the emission order.
package header

import (
	"bytes"
	"fmt"
	"path/filepath"
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

const (
	preludeFile = "typeforge-prelude.h"
	masterFile  = "types.h"
)

// Emitter writes the C++ header tree.
type Emitter struct {
	log *zap.SugaredLogger
}

// New creates the native-header emitter.
func New() *Emitter {
	return &Emitter{log: logger.Named("emit.header")}
}

// Target returns the emitter's target identifier.
func (e *Emitter) Target() string { return emit.TargetHeader }

// Emit writes one header per type under Assembly/Namespace directories, a
// prelude with the primitive spellings, and a master header including every
// unit in emission order. Pointer and by-ref uses are satisfied by a global
// forward-declaration block, so only by-value dependencies constrain the
// include sequence.
func (e *Emitter) Emit(g *graph.Graph, ord *order.EmissionOrder, names *naming.Table, outDir string) error {
	return emit.Publish(e.Target(), outDir, func(dir string) error {
		if err := emit.WriteFile(e.Target(), filepath.Join(dir, preludeFile), []byte(prelude)); err != nil {
			return err
		}

		r := &renderer{g: g, names: names, log: e.log}

		var master bytes.Buffer
		master.WriteString("#pragma once\n\n")
		master.WriteString("#include \"" + preludeFile + "\"\n\n")
		writeForwardBlock(&master, g, names)

		for _, item := range ord.Items {
			n, ok := g.Node(item.Token)
			if !ok {
				continue
			}
			switch item.Kind {
			case order.ItemForwardDecl:
				master.WriteString(forwardDecl(n, names))
			case order.ItemDefinition:
				rel := unitPath(n, names)
				unit := r.renderUnit(n)
				if err := emit.WriteFile(e.Target(), filepath.Join(dir, rel), unit); err != nil {
					return err
				}
				master.WriteString("#include \"" + filepath.ToSlash(rel) + "\"\n")
			}
		}

		e.log.Infow("header tree written",
			logger.FieldTarget, e.Target(),
			logger.FieldCount, g.Len())
		return emit.WriteFile(e.Target(), filepath.Join(dir, masterFile), master.Bytes())
	})
}

// unitPath places a type's header under its assembly and namespace.
func unitPath(n *graph.TypeNode, names *naming.Table) string {
	parts := []string{assemblyDir(n)}
	parts = append(parts, names.NamespacePath(n.Token)...)
	parts = append(parts, names.TypeName(n.Token)+".h")
	return filepath.Join(parts...)
}

func assemblyDir(n *graph.TypeNode) string {
	if n.Assembly == "" {
		return "_synthetic"
	}
	return strings.TrimSuffix(n.Assembly, ".dll")
}

// writeForwardBlock announces every emitted type up front. C++ permits
// pointer and reference uses of an incomplete type, so this block lets a
// unit mention any later-defined type by indirection without include-order
// gymnastics.
func writeForwardBlock(buf *bytes.Buffer, g *graph.Graph, names *naming.Table) {
	byNS := map[string][]*graph.TypeNode{}
	for _, n := range g.Nodes() {
		// Enums cannot be forward-declared without redeclaration conflicts
		// and are never referenced by indirection alone.
		if n.Kind == metadata.KindEnum {
			continue
		}
		key := strings.Join(names.NamespacePath(n.Token), "::")
		byNS[key] = append(byNS[key], n)
	}
	for _, key := range util.SortedKeys(byNS) {
		if key != "" {
			buf.WriteString("namespace " + strings.ReplaceAll(key, "::", " { namespace ") + " {\n")
		}
		for _, n := range byNS[key] {
			if n.GenericArity > 0 && !n.IsInstantiation() {
				params := make([]string, n.GenericArity)
				for i := range params {
					params[i] = fmt.Sprintf("typename T%d", i)
				}
				buf.WriteString("template <" + strings.Join(params, ", ") + "> ")
			}
			buf.WriteString("struct " + names.TypeName(n.Token) + ";\n")
		}
		if key != "" {
			buf.WriteString(strings.Repeat("}", strings.Count(key, "::")+1) + "\n")
		}
		buf.WriteString("\n")
	}
}

// forwardDecl renders one cycle-break marker at its position in the master
// header.
func forwardDecl(n *graph.TypeNode, names *naming.Table) string {
	var b strings.Builder
	b.WriteString("// forward declaration breaking a declaration cycle\n")
	openNamespaces(&b, names.NamespacePath(n.Token))
	b.WriteString("struct " + names.TypeName(n.Token) + ";\n")
	closeNamespaces(&b, names.NamespacePath(n.Token))
	b.WriteString("\n")
	return b.String()
}

func openNamespaces(b *strings.Builder, path []string) {
	for _, seg := range path {
		b.WriteString("namespace " + seg + " {\n")
	}
}

func closeNamespaces(b *strings.Builder, path []string) {
	for range path {
		b.WriteString("}\n")
	}
}

const prelude = `#pragma once

#include <cstdint>

// Opaque runtime-provided reference types. Generated declarations only ever
// hold pointers to these.
struct TfString;
struct TfObject;

template <typename T>
struct TfArray;
`
