package graph

import (
	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/metadata"
)

// Finalize walks every raw reference in the graph, materializing generic
// instantiations and resolving references in place, then populates the edge
// set. After Finalize the graph is immutable: emitters and the dependency
// resolver only read it.
//
// Unresolved references surviving this pass are a defect in the adapter
// output and abort the run.
func Finalize(g *Graph) error {
	inst := NewInstantiator(g)

	// Snapshot the definition nodes; instantiation nodes appended during the
	// walk already resolve their members on materialization.
	for _, n := range g.Nodes() {
		if n.IsInstantiation() {
			// Members were resolved at materialization.
			continue
		}
		if err := resolveNode(inst, n); err != nil {
			return errors.Wrapf(err, "resolving %s", n.FullName)
		}
	}

	buildEdges(g)
	return nil
}

func resolveNode(inst *Instantiator, n *TypeNode) error {
	scope := RefScope{ClassArity: n.GenericArity}
	if n.rawParent != nil {
		parent, err := inst.ResolveRef(*n.rawParent, scope)
		if err != nil {
			return err
		}
		n.Parent = &parent
	}
	for _, iface := range n.rawInterfaces {
		resolved, err := inst.ResolveRef(iface, scope)
		if err != nil {
			return err
		}
		n.Interfaces = append(n.Interfaces, resolved)
	}
	for _, f := range n.Fields {
		resolved, err := inst.ResolveRef(f.raw, scope)
		if err != nil {
			return err
		}
		f.Type = resolved
	}
	for _, m := range n.Methods {
		methodScope := RefScope{ClassArity: n.GenericArity, MethodArity: m.GenericArity}
		ret, err := inst.ResolveRef(m.rawReturn, methodScope)
		if err != nil {
			return err
		}
		m.Return = ret
		for _, p := range m.rawParams {
			resolved, err := inst.ResolveRef(p.Type, methodScope)
			if err != nil {
				return err
			}
			m.Params = append(m.Params, ParamNode{Name: p.Name, Type: resolved})
		}
	}
	return nil
}

// buildEdges derives the typed edge set from resolved references. Nodes are
// visited in token order and members in declaration order, so the edge
// sequence is deterministic for identical input.
func buildEdges(g *Graph) {
	for _, n := range g.Nodes() {
		if n.DeclaringType != metadata.NoToken {
			g.AddEdge(Edge{From: n.Token, To: n.DeclaringType, Kind: EdgeNestedIn})
		}
		if n.Parent != nil {
			if tok := referenceToken(*n.Parent); tok != metadata.NoToken {
				g.AddEdge(Edge{From: n.Token, To: tok, Kind: EdgeInherits})
			}
		}
		for _, iface := range n.Interfaces {
			if tok := referenceToken(iface); tok != metadata.NoToken {
				g.AddEdge(Edge{From: n.Token, To: tok, Kind: EdgeImplements})
			}
		}
		for _, f := range n.Fields {
			if f.Static {
				continue
			}
			tok, byValue := f.Type.DependencyTarget(g)
			if tok != metadata.NoToken {
				g.AddEdge(Edge{From: n.Token, To: tok, Kind: EdgeContainsField, ByValue: byValue})
			}
		}
		if n.IsInstantiation() {
			g.AddEdge(Edge{From: n.Token, To: n.Definition, Kind: EdgeGenericArgument})
			for _, arg := range n.TypeArgs {
				if tok := referenceToken(arg); tok != metadata.NoToken {
					g.AddEdge(Edge{From: n.Token, To: tok, Kind: EdgeGenericArgument})
				}
			}
		}
	}
}

// referenceToken returns the node token a reference names at its top level,
// ignoring primitives and open generic parameters.
func referenceToken(r TypeReference) metadata.Token {
	switch r.Shape {
	case metadata.RefDirect:
		return r.Token
	case metadata.RefGenericInst:
		if r.Token != metadata.NoToken {
			return r.Token
		}
		return r.Definition
	case metadata.RefPointer, metadata.RefByRef, metadata.RefArray, metadata.RefMultiArray:
		if r.Elem != nil {
			return referenceToken(*r.Elem)
		}
	}
	return metadata.NoToken
}
