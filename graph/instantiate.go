package graph

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/logger"
	"github.com/typeforge/typeforge/metadata"
)

// RefScope describes the generic binders in scope at a reference site: the
// arity of the declaring type and, inside a method signature, the arity of
// the method. A generic-parameter placeholder outside these bounds has no
// concrete binding anywhere and is an unresolved-binding failure.
type RefScope struct {
	ClassArity  int
	MethodArity int
}

// Instantiator materializes generic instantiation nodes, memoized by the
// structural key (definition token, argument sequence) so every distinct
// instantiation exists exactly once no matter how many sites reference it.
//
// The memo table is the run's single shared mutable structure: many readers,
// exclusive access only on first materialization of a key. Recursive
// instantiations are handled with an in-progress set; a re-entrant request
// for a key under construction receives the reserved token of the node
// being built rather than a fresh duplicate.
type Instantiator struct {
	g *Graph

	mu         sync.RWMutex
	memo       map[string]metadata.Token
	inProgress map[string]metadata.Token

	log *zap.SugaredLogger
}

// NewInstantiator creates an instantiator over a built graph.
func NewInstantiator(g *Graph) *Instantiator {
	return &Instantiator{
		g:          g,
		memo:       map[string]metadata.Token{},
		inProgress: map[string]metadata.Token{},
		log:        logger.Named("graph.instantiator"),
	}
}

// Count returns the number of materialized instantiation nodes.
func (r *Instantiator) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.memo)
}

// ResolveRef converts a raw adapter reference into a resolved TypeReference,
// materializing any concrete generic instantiations it names. Instantiations
// still carrying in-scope generic parameters stay symbolic (no node, the
// Definition token set); they belong to open generic declarations and are
// concretized later through substitution.
func (r *Instantiator) ResolveRef(ref metadata.TypeRef, scope RefScope) (TypeReference, error) {
	switch ref.Shape {
	case metadata.RefDirect:
		return TypeReference{Shape: metadata.RefDirect, Token: ref.Target}, nil
	case metadata.RefPrimitive:
		return TypeReference{Shape: metadata.RefPrimitive, Prim: ref.Prim}, nil
	case metadata.RefPointer, metadata.RefByRef, metadata.RefArray, metadata.RefMultiArray:
		out := TypeReference{Shape: ref.Shape}
		if ref.Elem != nil {
			elem, err := r.ResolveRef(*ref.Elem, scope)
			if err != nil {
				return TypeReference{}, err
			}
			out.Elem = &elem
		}
		return out, nil
	case metadata.RefGenericParam:
		if ref.Index < 0 || ref.Index >= scope.ClassArity {
			return TypeReference{}, errors.Wrapf(errors.ErrUnresolvedGenericBinding,
				"class generic parameter %d has no binding (arity %d in scope)", ref.Index, scope.ClassArity)
		}
		return TypeReference{Shape: metadata.RefGenericParam, Index: ref.Index}, nil
	case metadata.RefGenericMethodParam:
		if ref.Index < 0 || ref.Index >= scope.MethodArity {
			return TypeReference{}, errors.Wrapf(errors.ErrUnresolvedGenericBinding,
				"method generic parameter %d has no binding (arity %d in scope)", ref.Index, scope.MethodArity)
		}
		return TypeReference{Shape: metadata.RefGenericMethodParam, Index: ref.Index}, nil
	case metadata.RefGenericInst:
		return r.resolveInst(ref, scope)
	}
	return TypeReference{}, errors.AssertionFailedf("unknown reference shape %q", ref.Shape)
}

func (r *Instantiator) resolveInst(ref metadata.TypeRef, scope RefScope) (TypeReference, error) {
	def, ok := r.g.Node(ref.Target)
	if !ok {
		return TypeReference{}, errors.NewMetadataInconsistency(uint32(ref.Target),
			"generic instantiation definition")
	}
	if def.GenericArity != len(ref.Args) {
		return TypeReference{}, errors.NewUnresolvedGenericBinding(uint32(ref.Target),
			errors.Newf("arity %d does not match %d arguments", def.GenericArity, len(ref.Args)).Error())
	}

	open := false
	for _, arg := range ref.Args {
		if arg.HasOpenParameter() {
			open = true
			break
		}
	}
	if open {
		// Validate the arguments against the binders in scope, but leave the
		// instantiation symbolic: no node is materialized for an open shape.
		args := make([]TypeReference, len(ref.Args))
		for i, a := range ref.Args {
			resolved, err := r.ResolveRef(a, scope)
			if err != nil {
				return TypeReference{}, err
			}
			args[i] = resolved
		}
		return TypeReference{
			Shape:      metadata.RefGenericInst,
			Definition: ref.Target,
			Args:       args,
		}, nil
	}

	return r.instantiate(ref, def)
}

// instantiate materializes a fully-concrete instantiation, or retrieves the
// already-materialized node for its structural key.
func (r *Instantiator) instantiate(ref metadata.TypeRef, def *TypeNode) (TypeReference, error) {
	key := ref.Key()

	// Repeat lookups are the common case; take the read lock first.
	r.mu.RLock()
	tok, done := r.memo[key]
	r.mu.RUnlock()
	if done {
		return r.instRef(ref, tok)
	}

	r.mu.Lock()
	if tok, done := r.memo[key]; done {
		r.mu.Unlock()
		return r.instRef(ref, tok)
	}
	if tok, building := r.inProgress[key]; building {
		// Re-entrant request: return the node under construction.
		r.mu.Unlock()
		return r.instRef(ref, tok)
	}
	tok = r.g.nextSyntheticToken()
	r.inProgress[key] = tok
	r.mu.Unlock()

	node, err := r.materialize(tok, def, ref)

	r.mu.Lock()
	delete(r.inProgress, key)
	if err == nil {
		if addErr := r.g.AddNode(node); addErr != nil {
			err = addErr
		} else {
			r.memo[key] = tok
		}
	}
	r.mu.Unlock()
	if err != nil {
		return TypeReference{}, err
	}

	r.log.Debugw("materialized instantiation",
		logger.FieldToken, tok.String(),
		logger.FieldTypeName, node.FullName)

	// instRef re-enters ResolveRef for the argument references, so the lock
	// must be released first: a nested concrete instantiation would otherwise
	// block on its own holder.
	return r.instRef(ref, tok)
}

// materialize builds the instantiation node: definition plus ordered type
// arguments, with member signatures produced by substituting the arguments
// into the definition's members. Substitution eliminates every class-level
// placeholder, so members resolve in a closed scope (method binders aside).
func (r *Instantiator) materialize(tok metadata.Token, def *TypeNode, ref metadata.TypeRef) (*TypeNode, error) {
	args := make([]TypeReference, len(ref.Args))
	for i, rawArg := range ref.Args {
		resolved, err := r.ResolveRef(rawArg, RefScope{})
		if err != nil {
			return nil, err
		}
		args[i] = resolved
	}

	node := &TypeNode{
		Token:         tok,
		Name:          def.Name,
		Namespace:     def.Namespace,
		Assembly:      def.Assembly,
		Kind:          metadata.KindInstantiation,
		Size:          metadata.SizeUnknown,
		Alignment:     metadata.SizeUnknown,
		DeclaringType: def.DeclaringType,
		Excluded:      def.Excluded,
		Definition:    def.Token,
		TypeArgs:      args,
		Vtable:        def.Vtable,
	}

	if def.rawParent != nil {
		parent, err := r.substituteAndResolve(*def.rawParent, ref.Args, def.Token, RefScope{})
		if err != nil {
			return nil, err
		}
		node.Parent = &parent
	}
	for _, iface := range def.rawInterfaces {
		resolved, err := r.substituteAndResolve(iface, ref.Args, def.Token, RefScope{})
		if err != nil {
			return nil, err
		}
		node.Interfaces = append(node.Interfaces, resolved)
	}

	for _, f := range def.Fields {
		resolved, err := r.substituteAndResolve(f.raw, ref.Args, def.Token, RefScope{})
		if err != nil {
			return nil, err
		}
		node.Fields = append(node.Fields, &FieldNode{
			Token:  f.Token,
			Owner:  tok,
			Name:   f.Name,
			Type:   resolved,
			Offset: f.Offset,
			Static: f.Static,
		})
	}

	for _, m := range def.Methods {
		method := &MethodNode{
			Token:        m.Token,
			Owner:        tok,
			Name:         m.Name,
			Virtual:      m.Virtual,
			Slot:         m.Slot,
			Static:       m.Static,
			GenericArity: m.GenericArity,
		}
		scope := RefScope{MethodArity: m.GenericArity}
		ret, err := r.substituteAndResolve(m.rawReturn, ref.Args, def.Token, scope)
		if err != nil {
			return nil, err
		}
		method.Return = ret
		for _, p := range m.rawParams {
			resolved, err := r.substituteAndResolve(p.Type, ref.Args, def.Token, scope)
			if err != nil {
				return nil, err
			}
			method.Params = append(method.Params, ParamNode{Name: p.Name, Type: resolved})
		}
		node.Methods = append(node.Methods, method)
	}

	node.FullName = r.displayName(def, args)
	return node, nil
}

func (r *Instantiator) substituteAndResolve(ref metadata.TypeRef, args []metadata.TypeRef, definition metadata.Token, scope RefScope) (TypeReference, error) {
	substituted, err := substitute(ref, args, definition)
	if err != nil {
		return TypeReference{}, err
	}
	return r.ResolveRef(substituted, scope)
}

// substitute replaces class-level generic-parameter placeholders with the
// concrete arguments of the instantiation. Method-level placeholders are
// left intact: they bind at the method, not the type.
func substitute(ref metadata.TypeRef, args []metadata.TypeRef, definition metadata.Token) (metadata.TypeRef, error) {
	switch ref.Shape {
	case metadata.RefGenericParam:
		if ref.Index < 0 || ref.Index >= len(args) {
			return metadata.TypeRef{}, errors.NewUnresolvedGenericBinding(uint32(definition),
				errors.Newf("generic parameter index %d outside %d arguments", ref.Index, len(args)).Error())
		}
		return args[ref.Index], nil
	case metadata.RefPointer, metadata.RefByRef, metadata.RefArray, metadata.RefMultiArray:
		if ref.Elem == nil {
			return ref, nil
		}
		elem, err := substitute(*ref.Elem, args, definition)
		if err != nil {
			return metadata.TypeRef{}, err
		}
		out := ref
		out.Elem = &elem
		return out, nil
	case metadata.RefGenericInst:
		out := ref
		out.Args = make([]metadata.TypeRef, len(ref.Args))
		for i, a := range ref.Args {
			sub, err := substitute(a, args, definition)
			if err != nil {
				return metadata.TypeRef{}, err
			}
			out.Args[i] = sub
		}
		return out, nil
	}
	return ref, nil
}

func (r *Instantiator) instRef(ref metadata.TypeRef, tok metadata.Token) (TypeReference, error) {
	args := make([]TypeReference, len(ref.Args))
	for i, a := range ref.Args {
		resolved, err := r.ResolveRef(a, RefScope{})
		if err != nil {
			return TypeReference{}, err
		}
		args[i] = resolved
	}
	return TypeReference{
		Shape:      metadata.RefGenericInst,
		Token:      tok,
		Definition: ref.Target,
		Args:       args,
	}, nil
}

// displayName renders the instantiation's qualified original name, e.g.
// "System.Collections.Generic.List`1<System.Int32>".
func (r *Instantiator) displayName(def *TypeNode, args []TypeReference) string {
	var b strings.Builder
	b.WriteString(def.FullName)
	b.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.refDisplay(a))
	}
	b.WriteByte('>')
	return b.String()
}

func (r *Instantiator) refDisplay(ref TypeReference) string {
	switch ref.Shape {
	case metadata.RefPrimitive:
		return string(ref.Prim)
	case metadata.RefDirect, metadata.RefGenericInst:
		if n, ok := r.g.Node(ref.Token); ok && n.FullName != "" {
			return n.FullName
		}
		return ref.Token.String()
	case metadata.RefPointer:
		return r.refDisplay(*ref.Elem) + "*"
	case metadata.RefByRef:
		return r.refDisplay(*ref.Elem) + "&"
	case metadata.RefArray:
		return r.refDisplay(*ref.Elem) + "[]"
	case metadata.RefMultiArray:
		return r.refDisplay(*ref.Elem) + "[,]"
	}
	return string(ref.Shape)
}
