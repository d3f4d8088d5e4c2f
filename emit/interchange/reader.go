package interchange

import (
	"encoding/json"
	"os"

	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/graph"
	"github.com/typeforge/typeforge/metadata"
)

// Load reads and decodes an interchange document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapSourceUnavailable(err, path)
	}
	return Decode(data)
}

// Decode parses a document and checks its schema version.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing interchange document")
	}
	if doc.FormatVersion != FormatVersion {
		return nil, errors.Newf("unsupported interchange format version %q (want %s)",
			doc.FormatVersion, FormatVersion)
	}
	return &doc, nil
}

// Reconstruct rebuilds a graph from its document form. The result is
// isomorphic to the graph the document was built from: same nodes, same
// resolved references, same edges and layout.
func Reconstruct(doc *Document) (*graph.Graph, error) {
	g := graph.New()
	for i := range doc.Types {
		te := &doc.Types[i]
		n := &graph.TypeNode{
			Token:         metadata.Token(te.Token),
			Name:          te.Name,
			Namespace:     te.Namespace,
			Assembly:      te.Assembly,
			FullName:      te.FullName,
			Kind:          metadata.TypeKind(te.Kind),
			Size:          fromOpt(te.Size),
			Alignment:     fromOpt(te.Alignment),
			GenericArity:  te.GenericArity,
			DeclaringType: metadata.Token(te.DeclaringType),
			Excluded:      te.Excluded,
			Definition:    metadata.Token(te.Definition),
		}
		for _, gp := range te.GenericParams {
			n.GenericParams = append(n.GenericParams, metadata.GenericParamRecord{
				Token: metadata.Token(gp.Token),
				Owner: metadata.Token(gp.Owner),
				Index: gp.Index,
				Name:  gp.Name,
			})
		}
		if te.Parent != nil {
			p := fromRefEntry(*te.Parent)
			n.Parent = &p
		}
		for _, iface := range te.Interfaces {
			n.Interfaces = append(n.Interfaces, fromRefEntry(iface))
		}
		for _, arg := range te.TypeArgs {
			n.TypeArgs = append(n.TypeArgs, fromRefEntry(arg))
		}
		for _, fe := range te.Fields {
			n.Fields = append(n.Fields, &graph.FieldNode{
				Token:  metadata.Token(fe.Token),
				Owner:  n.Token,
				Name:   fe.Name,
				Type:   fromRefEntry(fe.Type),
				Offset: fromOpt(fe.Offset),
				Static: fe.Static,
			})
		}
		for _, me := range te.Methods {
			m := &graph.MethodNode{
				Token:        metadata.Token(me.Token),
				Owner:        n.Token,
				Name:         me.Name,
				Return:       fromRefEntry(me.Return),
				Virtual:      me.Virtual,
				Slot:         me.Slot,
				Static:       me.Static,
				GenericArity: me.GenericArity,
			}
			for _, pe := range me.Params {
				m.Params = append(m.Params, graph.ParamNode{Name: pe.Name, Type: fromRefEntry(pe.Type)})
			}
			n.Methods = append(n.Methods, m)
		}
		for _, ve := range te.Vtable {
			n.Vtable = append(n.Vtable, metadata.VtableSlotRecord{
				Slot:       ve.Slot,
				Method:     metadata.Token(ve.Method),
				DeclaredBy: metadata.Token(ve.DeclaredBy),
			})
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	for _, ee := range doc.Edges {
		g.AddEdge(graph.Edge{
			From:    metadata.Token(ee.From),
			To:      metadata.Token(ee.To),
			Kind:    graph.EdgeKind(ee.Kind),
			ByValue: ee.ByValue,
		})
	}
	return g, nil
}

func fromRefEntry(e RefEntry) graph.TypeReference {
	out := graph.TypeReference{
		Shape:      metadata.RefShape(e.Shape),
		Token:      metadata.Token(e.Token),
		Definition: metadata.Token(e.Definition),
		Prim:       metadata.PrimitiveKind(e.Prim),
		Index:      e.Index,
	}
	if e.Elem != nil {
		elem := fromRefEntry(*e.Elem)
		out.Elem = &elem
	}
	for _, a := range e.Args {
		out.Args = append(out.Args, fromRefEntry(a))
	}
	return out
}

func fromOpt(v *int64) int64 {
	if v == nil {
		return metadata.SizeUnknown
	}
	return *v
}
