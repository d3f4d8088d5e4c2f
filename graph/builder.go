package graph

import (
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/logger"
	"github.com/typeforge/typeforge/metadata"
)

// Builder converts metadata adapter records into a complete TypeNode/Edge
// set. Independent assemblies are processed in parallel; cross-assembly
// token resolution is deferred to a barrier after all assemblies are built.
type Builder struct {
	adapter  metadata.Adapter
	excluded map[string]bool
	log      *zap.SugaredLogger
}

// NewBuilder creates a builder over one adapter. Types whose full original
// name appears in excluded are marked opaque and skipped by emitters.
func NewBuilder(adapter metadata.Adapter, excluded []string) *Builder {
	ex := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		ex[name] = true
	}
	return &Builder{
		adapter:  adapter,
		excluded: ex,
		log:      logger.Named("graph.builder"),
	}
}

// Build produces the populated graph. Referenced tokens without a backing
// record fail with a metadata-inconsistency error naming the token; nothing
// is silently skipped.
func (b *Builder) Build() (*Graph, error) {
	assemblies, err := b.adapter.Assemblies()
	if err != nil {
		return nil, errors.Wrap(err, "reading assemblies")
	}
	typeDefs, err := b.adapter.TypeDefinitions()
	if err != nil {
		return nil, errors.Wrap(err, "reading type definitions")
	}

	byAssembly := map[string][]metadata.TypeDefRecord{}
	for _, def := range typeDefs {
		byAssembly[def.Assembly] = append(byAssembly[def.Assembly], def)
	}

	// Fan out per assembly: each assembly's records are self-contained until
	// cross-assembly references are resolved below the barrier.
	results := make([][]*TypeNode, len(assemblies))
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, asm := range assemblies {
		i, asm := i, asm
		eg.Go(func() error {
			nodes, err := b.buildAssembly(byAssembly[asm.Name])
			if err != nil {
				return errors.Wrapf(err, "assembly %s", asm.Name)
			}
			results[i] = nodes
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Barrier reached: merge into the arena in deterministic order.
	g := New()
	for _, nodes := range results {
		for _, n := range nodes {
			if err := g.AddNode(n); err != nil {
				return nil, err
			}
		}
	}

	if def, ok := firstOrphan(byAssembly, assemblies); ok {
		return nil, errors.NewMetadataInconsistency(uint32(def.Token),
			"declared in assembly "+def.Assembly+" which has no record")
	}

	if err := b.checkTokens(g); err != nil {
		return nil, err
	}

	b.log.Infow("graph built",
		logger.FieldNodeCount, g.Len(),
		logger.FieldCount, len(assemblies))
	return g, nil
}

// buildAssembly constructs nodes for one assembly's type definitions.
// Member fetches go back to the adapter; raw references stay unresolved
// until the post-barrier passes.
func (b *Builder) buildAssembly(defs []metadata.TypeDefRecord) ([]*TypeNode, error) {
	nodes := make([]*TypeNode, 0, len(defs))
	for _, def := range defs {
		node, err := b.buildType(def)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Token < nodes[j].Token })
	return nodes, nil
}

func (b *Builder) buildType(def metadata.TypeDefRecord) (*TypeNode, error) {
	node := &TypeNode{
		Token:         def.Token,
		Name:          def.Name,
		Namespace:     def.Namespace,
		Assembly:      def.Assembly,
		FullName:      def.FullName(),
		Kind:          def.Kind,
		Size:          sizeOrUnknown(def.Size),
		Alignment:     sizeOrUnknown(def.Alignment),
		GenericArity:  def.GenericArity,
		DeclaringType: def.DeclaringType,
		Excluded:      b.excluded[def.FullName()],
		rawParent:     def.Parent,
		rawInterfaces: def.Interfaces,
	}

	fields, err := b.adapter.FieldsOf(def.Token)
	if err != nil {
		return nil, errors.Wrapf(err, "fields of %s", def.Token)
	}
	for _, f := range fields {
		node.Fields = append(node.Fields, &FieldNode{
			Token:  f.Token,
			Owner:  f.Owner,
			Name:   f.Name,
			Offset: f.Offset,
			Static: f.Static,
			raw:    f.Type,
		})
	}

	methods, err := b.adapter.MethodsOf(def.Token)
	if err != nil {
		return nil, errors.Wrapf(err, "methods of %s", def.Token)
	}
	for _, m := range methods {
		node.Methods = append(node.Methods, &MethodNode{
			Token:        m.Token,
			Owner:        m.Owner,
			Name:         m.Name,
			Virtual:      m.Virtual,
			Slot:         m.Slot,
			Static:       m.Static,
			GenericArity: m.GenericArity,
			rawParams:    m.Params,
			rawReturn:    m.Return,
		})
	}

	generics, err := b.adapter.GenericParametersOf(def.Token)
	if err != nil {
		return nil, errors.Wrapf(err, "generic parameters of %s", def.Token)
	}
	node.GenericParams = generics

	vtable, err := b.adapter.VtableOf(def.Token)
	if err != nil {
		return nil, errors.Wrapf(err, "vtable of %s", def.Token)
	}
	node.Vtable = vtable

	return node, nil
}

// checkTokens verifies that every token referenced from any raw reference,
// declaring-type link, or vtable entry has a backing node. A dangling token
// indicates an adapter/version mismatch and aborts the run.
func (b *Builder) checkTokens(g *Graph) error {
	methodTokens := map[metadata.Token]struct{}{}
	for _, n := range g.Nodes() {
		for _, m := range n.Methods {
			methodTokens[m.Token] = struct{}{}
		}
	}

	for _, n := range g.Nodes() {
		if n.DeclaringType != metadata.NoToken {
			if _, ok := g.Node(n.DeclaringType); !ok {
				return errors.NewMetadataInconsistency(uint32(n.DeclaringType),
					"declaring type of "+n.FullName)
			}
		}
		if n.rawParent != nil {
			if err := checkRefTokens(g, *n.rawParent, "base type of "+n.FullName); err != nil {
				return err
			}
		}
		for _, iface := range n.rawInterfaces {
			if err := checkRefTokens(g, iface, "interface of "+n.FullName); err != nil {
				return err
			}
		}
		for _, f := range n.Fields {
			if err := checkRefTokens(g, f.raw, "field "+n.FullName+"."+f.Name); err != nil {
				return err
			}
		}
		for _, m := range n.Methods {
			if err := checkRefTokens(g, m.rawReturn, "return of "+n.FullName+"."+m.Name); err != nil {
				return err
			}
			for _, p := range m.rawParams {
				if err := checkRefTokens(g, p.Type, "parameter of "+n.FullName+"."+m.Name); err != nil {
					return err
				}
			}
		}
		for _, slot := range n.Vtable {
			if _, ok := methodTokens[slot.Method]; !ok {
				return errors.NewMetadataInconsistency(uint32(slot.Method),
					"vtable slot of "+n.FullName)
			}
		}
	}
	return nil
}

func checkRefTokens(g *Graph, ref metadata.TypeRef, context string) error {
	for _, tok := range ref.ReferencedTokens() {
		if _, ok := g.Node(tok); !ok {
			return errors.NewMetadataInconsistency(uint32(tok), context)
		}
	}
	return nil
}

// firstOrphan returns the smallest-token type definition naming an assembly
// with no record, so the diagnostic is stable across runs.
func firstOrphan(byAssembly map[string][]metadata.TypeDefRecord, assemblies []metadata.AssemblyRecord) (metadata.TypeDefRecord, bool) {
	known := map[string]bool{}
	for _, a := range assemblies {
		known[a.Name] = true
	}
	var orphan metadata.TypeDefRecord
	found := false
	for name, defs := range byAssembly {
		if known[name] {
			continue
		}
		for _, def := range defs {
			if !found || def.Token < orphan.Token {
				orphan = def
				found = true
			}
		}
	}
	return orphan, found
}

func sizeOrUnknown(v int64) int64 {
	if v <= 0 {
		return metadata.SizeUnknown
	}
	return v
}
