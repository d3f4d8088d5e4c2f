// Package interchange renders the interchange-document target: a single
// JSON document carrying the full graph — nodes, reference shape trees,
// layout, edges — so downstream tools can reconstruct it without re-running
// resolution. It is the only target that preserves the raw graph instead of
// flattening it into declaration order.
package interchange

import (
	"encoding/json"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/typeforge/typeforge/emit"
	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/graph"
	"github.com/typeforge/typeforge/logger"
	"github.com/typeforge/typeforge/metadata"
	"github.com/typeforge/typeforge/naming"
	"github.com/typeforge/typeforge/order"
)

// FormatVersion identifies the document schema. Consumers reject unknown
// major versions.
const FormatVersion = "1.0"

// DocumentFile is the artifact name inside the output directory.
const DocumentFile = "graph.json"

// Document is the schema root. Types sort by token and edges keep graph
// insertion order, which is itself token-ordered, so encoding is
// deterministic.
type Document struct {
	FormatVersion string      `json:"format_version"`
	Types         []TypeEntry `json:"types"`
	Edges         []EdgeEntry `json:"edges"`
}

// TypeEntry serializes one TypeNode with both its original and emitted
// names.
type TypeEntry struct {
	Token         uint32              `json:"token"`
	Name          string              `json:"name"`
	FullName      string              `json:"full_name"`
	EmittedName   string              `json:"emitted_name"`
	Namespace     string              `json:"namespace,omitempty"`
	Assembly      string              `json:"assembly,omitempty"`
	Kind          string              `json:"kind"`
	Size          *int64              `json:"size,omitempty"`
	Alignment     *int64              `json:"alignment,omitempty"`
	GenericArity  int                 `json:"generic_arity,omitempty"`
	DeclaringType uint32              `json:"declaring_type,omitempty"`
	Excluded      bool                `json:"excluded,omitempty"`
	Definition    uint32              `json:"definition,omitempty"`
	GenericParams []GenericParamEntry `json:"generic_params,omitempty"`
	TypeArgs      []RefEntry          `json:"type_args,omitempty"`
	Parent        *RefEntry           `json:"parent,omitempty"`
	Interfaces    []RefEntry          `json:"interfaces,omitempty"`
	Fields        []FieldEntry        `json:"fields,omitempty"`
	Methods       []MethodEntry       `json:"methods,omitempty"`
	Vtable        []VtableEntry       `json:"vtable,omitempty"`
}

// RefEntry preserves the resolved reference shape tree.
type RefEntry struct {
	Shape      string     `json:"shape"`
	Token      uint32     `json:"token,omitempty"`
	Definition uint32     `json:"definition,omitempty"`
	Prim       string     `json:"prim,omitempty"`
	Elem       *RefEntry  `json:"elem,omitempty"`
	Args       []RefEntry `json:"args,omitempty"`
	Index      int        `json:"index,omitempty"`
}

// GenericParamEntry serializes one declared generic parameter.
type GenericParamEntry struct {
	Token uint32 `json:"token,omitempty"`
	Owner uint32 `json:"owner"`
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// FieldEntry serializes one field.
type FieldEntry struct {
	Token  uint32   `json:"token"`
	Name   string   `json:"name"`
	Type   RefEntry `json:"type"`
	Offset *int64   `json:"offset,omitempty"`
	Static bool     `json:"static,omitempty"`
}

// MethodEntry serializes one method declaration.
type MethodEntry struct {
	Token        uint32       `json:"token"`
	Name         string       `json:"name"`
	Params       []ParamEntry `json:"params,omitempty"`
	Return       RefEntry     `json:"return"`
	Virtual      bool         `json:"virtual,omitempty"`
	Slot         int          `json:"slot"`
	Static       bool         `json:"static,omitempty"`
	GenericArity int          `json:"generic_arity,omitempty"`
}

// ParamEntry is one ordered parameter.
type ParamEntry struct {
	Name string   `json:"name,omitempty"`
	Type RefEntry `json:"type"`
}

// VtableEntry preserves virtual dispatch slots and the declaring type of
// each override chain.
type VtableEntry struct {
	Slot       int    `json:"slot"`
	Method     uint32 `json:"method"`
	DeclaredBy uint32 `json:"declared_by"`
}

// EdgeEntry serializes one typed edge.
type EdgeEntry struct {
	From    uint32 `json:"from"`
	To      uint32 `json:"to"`
	Kind    string `json:"kind"`
	ByValue bool   `json:"by_value,omitempty"`
}

// Emitter writes the interchange document.
type Emitter struct {
	log *zap.SugaredLogger
}

// New creates the interchange-document emitter.
func New() *Emitter {
	return &Emitter{log: logger.Named("emit.interchange")}
}

// Target returns the emitter's target identifier.
func (e *Emitter) Target() string { return emit.TargetInterchange }

// Emit encodes the graph into outDir/graph.json. The emission order is not
// part of the schema: the document carries enough structure to re-derive it.
func (e *Emitter) Emit(g *graph.Graph, _ *order.EmissionOrder, names *naming.Table, outDir string) error {
	doc := Build(g, names)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.WrapOutputWriteFailure(err, e.Target())
	}
	data = append(data, '\n')

	return emit.Publish(e.Target(), outDir, func(dir string) error {
		if err := emit.WriteFile(e.Target(), filepath.Join(dir, DocumentFile), data); err != nil {
			return err
		}
		e.log.Infow("interchange document written",
			logger.FieldTarget, e.Target(),
			logger.FieldNodeCount, len(doc.Types),
			logger.FieldEdgeCount, len(doc.Edges))
		return nil
	})
}

// Build converts a finalized graph into its document form.
func Build(g *graph.Graph, names *naming.Table) *Document {
	doc := &Document{FormatVersion: FormatVersion}

	for _, n := range g.Nodes() {
		entry := TypeEntry{
			Token:         uint32(n.Token),
			Name:          n.Name,
			FullName:      n.FullName,
			EmittedName:   names.TypeName(n.Token),
			Namespace:     n.Namespace,
			Assembly:      n.Assembly,
			Kind:          string(n.Kind),
			Size:          optInt(n.Size),
			Alignment:     optInt(n.Alignment),
			GenericArity:  n.GenericArity,
			DeclaringType: uint32(n.DeclaringType),
			Excluded:      n.Excluded,
			Definition:    uint32(n.Definition),
		}
		for _, gp := range n.GenericParams {
			entry.GenericParams = append(entry.GenericParams, GenericParamEntry{
				Token: uint32(gp.Token),
				Owner: uint32(gp.Owner),
				Index: gp.Index,
				Name:  gp.Name,
			})
		}
		if n.Parent != nil {
			p := refEntry(*n.Parent)
			entry.Parent = &p
		}
		for _, iface := range n.Interfaces {
			entry.Interfaces = append(entry.Interfaces, refEntry(iface))
		}
		for _, arg := range n.TypeArgs {
			entry.TypeArgs = append(entry.TypeArgs, refEntry(arg))
		}
		for _, f := range n.Fields {
			entry.Fields = append(entry.Fields, FieldEntry{
				Token:  uint32(f.Token),
				Name:   f.Name,
				Type:   refEntry(f.Type),
				Offset: optInt(f.Offset),
				Static: f.Static,
			})
		}
		for _, m := range n.Methods {
			me := MethodEntry{
				Token:        uint32(m.Token),
				Name:         m.Name,
				Return:       refEntry(m.Return),
				Virtual:      m.Virtual,
				Slot:         m.Slot,
				Static:       m.Static,
				GenericArity: m.GenericArity,
			}
			for _, p := range m.Params {
				me.Params = append(me.Params, ParamEntry{Name: p.Name, Type: refEntry(p.Type)})
			}
			entry.Methods = append(entry.Methods, me)
		}
		for _, v := range n.Vtable {
			entry.Vtable = append(entry.Vtable, VtableEntry{
				Slot:       v.Slot,
				Method:     uint32(v.Method),
				DeclaredBy: uint32(v.DeclaredBy),
			})
		}
		doc.Types = append(doc.Types, entry)
	}

	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeEntry{
			From:    uint32(e.From),
			To:      uint32(e.To),
			Kind:    string(e.Kind),
			ByValue: e.ByValue,
		})
	}
	return doc
}

func refEntry(r graph.TypeReference) RefEntry {
	out := RefEntry{
		Shape:      string(r.Shape),
		Token:      uint32(r.Token),
		Definition: uint32(r.Definition),
		Prim:       string(r.Prim),
		Index:      r.Index,
	}
	if r.Elem != nil {
		elem := refEntry(*r.Elem)
		out.Elem = &elem
	}
	for _, a := range r.Args {
		out.Args = append(out.Args, refEntry(a))
	}
	return out
}

func optInt(v int64) *int64 {
	if v == metadata.SizeUnknown {
		return nil
	}
	return &v
}
