package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/metadata"
)

func buildFinalized(t *testing.T, snap *metadata.Snapshot) *Graph {
	t.Helper()
	g, err := NewBuilder(snap, nil).Build()
	require.NoError(t, err)
	require.NoError(t, Finalize(g))
	return g
}

func TestBuildSimpleHierarchy(t *testing.T) {
	snap := metadata.NewSnapshot("29.0.0").
		AddAssembly(metadata.AssemblyRecord{Token: 1, Name: "Core"}).
		AddType(metadata.TypeDefRecord{Token: 10, Name: "Base", Namespace: "App", Assembly: "Core", Kind: metadata.KindClass}).
		AddType(metadata.TypeDefRecord{
			Token: 11, Name: "Derived", Namespace: "App", Assembly: "Core",
			Kind: metadata.KindClass, Parent: refTo(metadata.Direct(10)),
		}).
		AddField(metadata.FieldRecord{Token: 100, Owner: 11, Name: "weight", Type: metadata.Primitive(metadata.PrimR4), Offset: 0x10})

	g := buildFinalized(t, snap)

	require.Equal(t, 2, g.Len())
	derived, ok := g.Node(11)
	require.True(t, ok)
	require.NotNil(t, derived.Parent)
	assert.Equal(t, metadata.Token(10), derived.Parent.Token)
	require.Len(t, derived.Fields, 1)
	assert.Equal(t, metadata.PrimR4, derived.Fields[0].Type.Prim)

	var inherits []Edge
	for _, e := range g.Edges() {
		if e.Kind == EdgeInherits {
			inherits = append(inherits, e)
		}
	}
	require.Len(t, inherits, 1)
	assert.Equal(t, metadata.Token(11), inherits[0].From)
	assert.Equal(t, metadata.Token(10), inherits[0].To)
}

func TestBuildDanglingTokenFails(t *testing.T) {
	snap := metadata.NewSnapshot("29.0.0").
		AddAssembly(metadata.AssemblyRecord{Token: 1, Name: "Core"}).
		AddType(metadata.TypeDefRecord{Token: 10, Name: "Orphaned", Assembly: "Core", Kind: metadata.KindClass}).
		AddField(metadata.FieldRecord{Token: 100, Owner: 10, Name: "ghost", Type: metadata.Direct(9999), Offset: 0})

	_, err := NewBuilder(snap, nil).Build()
	require.Error(t, err)
	assert.True(t, errors.IsMetadataInconsistency(err))
	assert.Contains(t, err.Error(), "0x0000270f")
}

func TestBuildUnknownAssemblyFails(t *testing.T) {
	snap := metadata.NewSnapshot("29.0.0").
		AddAssembly(metadata.AssemblyRecord{Token: 1, Name: "Core"}).
		AddType(metadata.TypeDefRecord{Token: 10, Name: "Stray", Assembly: "Ghost", Kind: metadata.KindClass})

	_, err := NewBuilder(snap, nil).Build()
	require.Error(t, err)
	assert.True(t, errors.IsMetadataInconsistency(err))
	assert.Contains(t, err.Error(), "Ghost")
	assert.Contains(t, err.Error(), "0x0000000a")
}

func TestBuildParallelAssembliesDeterministic(t *testing.T) {
	snap := metadata.NewSnapshot("29.0.0")
	// Enough assemblies to exercise the fan-out path.
	for i := 0; i < 8; i++ {
		name := string(rune('A' + i))
		snap.AddAssembly(metadata.AssemblyRecord{Token: metadata.Token(i + 1), Name: name})
		for j := 0; j < 5; j++ {
			snap.AddType(metadata.TypeDefRecord{
				Token:    metadata.Token(100 + i*10 + j),
				Name:     "T" + name + string(rune('0'+j)),
				Assembly: name,
				Kind:     metadata.KindClass,
			})
		}
	}

	first := buildFinalized(t, snap)
	second := buildFinalized(t, snap)

	require.Equal(t, first.Len(), second.Len())
	firstNodes := first.Nodes()
	secondNodes := second.Nodes()
	for i := range firstNodes {
		assert.Equal(t, firstNodes[i].Token, secondNodes[i].Token)
		assert.Equal(t, firstNodes[i].FullName, secondNodes[i].FullName)
	}
	assert.Equal(t, first.Edges(), second.Edges())
}

func TestBuildCrossAssemblyReference(t *testing.T) {
	snap := metadata.NewSnapshot("29.0.0").
		AddAssembly(metadata.AssemblyRecord{Token: 1, Name: "Core"}).
		AddAssembly(metadata.AssemblyRecord{Token: 2, Name: "Game"}).
		AddType(metadata.TypeDefRecord{Token: 10, Name: "Vec3", Assembly: "Core", Kind: metadata.KindStruct, Size: 12}).
		AddType(metadata.TypeDefRecord{Token: 20, Name: "Player", Assembly: "Game", Kind: metadata.KindClass}).
		AddField(metadata.FieldRecord{Token: 200, Owner: 20, Name: "position", Type: metadata.Direct(10), Offset: 0x10})

	g := buildFinalized(t, snap)

	var contains []Edge
	for _, e := range g.Edges() {
		if e.Kind == EdgeContainsField {
			contains = append(contains, e)
		}
	}
	require.Len(t, contains, 1)
	assert.True(t, contains[0].ByValue, "struct field is contained by value")
}

func TestBuildExcludedTypes(t *testing.T) {
	snap := metadata.NewSnapshot("29.0.0").
		AddAssembly(metadata.AssemblyRecord{Token: 1, Name: "Core"}).
		AddType(metadata.TypeDefRecord{Token: 10, Name: "Internal", Namespace: "App", Assembly: "Core", Kind: metadata.KindClass})

	g, err := NewBuilder(snap, []string{"App.Internal"}).Build()
	require.NoError(t, err)
	n, ok := g.Node(10)
	require.True(t, ok)
	assert.True(t, n.Excluded)
}

func TestStaticFieldsProduceNoContainmentEdge(t *testing.T) {
	snap := metadata.NewSnapshot("29.0.0").
		AddAssembly(metadata.AssemblyRecord{Token: 1, Name: "Core"}).
		AddType(metadata.TypeDefRecord{Token: 10, Name: "Config", Assembly: "Core", Kind: metadata.KindStruct, Size: 4}).
		AddType(metadata.TypeDefRecord{Token: 11, Name: "Holder", Assembly: "Core", Kind: metadata.KindClass}).
		AddField(metadata.FieldRecord{Token: 100, Owner: 11, Name: "shared", Type: metadata.Direct(10), Offset: metadata.SizeUnknown, Static: true})

	g := buildFinalized(t, snap)
	for _, e := range g.Edges() {
		assert.NotEqual(t, EdgeContainsField, e.Kind)
	}
}

func refTo(r metadata.TypeRef) *metadata.TypeRef { return &r }
