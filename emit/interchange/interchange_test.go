package interchange

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/typeforge/emit"
	"github.com/typeforge/typeforge/graph"
	"github.com/typeforge/typeforge/metadata"
	"github.com/typeforge/typeforge/naming"
	"github.com/typeforge/typeforge/order"
)

func prim(p metadata.PrimitiveKind) graph.TypeReference {
	return graph.TypeReference{Shape: metadata.RefPrimitive, Prim: p}
}

func fixtureGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	require.NoError(t, g.AddNode(&graph.TypeNode{
		Token: 1, Name: "Box`1", Namespace: "App", Assembly: "Core.dll",
		FullName: "App.Box`1", Kind: metadata.KindClass,
		Size: metadata.SizeUnknown, Alignment: metadata.SizeUnknown,
		GenericArity: 1,
		GenericParams: []metadata.GenericParamRecord{
			{Owner: 1, Index: 0, Name: "T"},
		},
		Fields: []*graph.FieldNode{
			{Token: 10, Owner: 1, Name: "value",
				Type:   graph.TypeReference{Shape: metadata.RefGenericParam, Index: 0},
				Offset: metadata.SizeUnknown},
		},
	}))
	require.NoError(t, g.AddNode(&graph.TypeNode{
		Token: 2, Name: "Holder", Namespace: "App", Assembly: "Core.dll",
		FullName: "App.Holder", Kind: metadata.KindClass,
		Size: 0x20, Alignment: 8,
		Fields: []*graph.FieldNode{
			{Token: 11, Owner: 2, Name: "boxed",
				Type: graph.TypeReference{
					Shape: metadata.RefGenericInst, Token: 101, Definition: 1,
					Args: []graph.TypeReference{prim(metadata.PrimI4)},
				},
				Offset: 0x10},
			{Token: 12, Owner: 2, Name: "values",
				Type: graph.TypeReference{Shape: metadata.RefArray,
					Elem: &graph.TypeReference{Shape: metadata.RefPrimitive, Prim: metadata.PrimR8}},
				Offset: 0x18},
		},
		Methods: []*graph.MethodNode{
			{Token: 20, Owner: 2, Name: "Get",
				Return:  prim(metadata.PrimObject),
				Virtual: true, Slot: 3},
		},
		Vtable: []metadata.VtableSlotRecord{
			{Slot: 3, Method: 20, DeclaredBy: 2},
		},
	}))
	require.NoError(t, g.AddNode(&graph.TypeNode{
		Token: 101, Name: "Box`1", Namespace: "App", Assembly: "Core.dll",
		FullName: "App.Box`1<i4>", Kind: metadata.KindInstantiation,
		Size: metadata.SizeUnknown, Alignment: metadata.SizeUnknown,
		Definition: 1,
		TypeArgs:   []graph.TypeReference{prim(metadata.PrimI4)},
		Fields: []*graph.FieldNode{
			{Token: 10, Owner: 101, Name: "value", Type: prim(metadata.PrimI4),
				Offset: metadata.SizeUnknown},
		},
	}))
	g.AddEdge(graph.Edge{From: 101, To: 1, Kind: graph.EdgeGenericArgument})
	g.AddEdge(graph.Edge{From: 2, To: 101, Kind: graph.EdgeContainsField})
	return g
}

func emitFixture(t *testing.T, outDir string) *graph.Graph {
	t.Helper()
	g := fixtureGraph(t)
	ord, err := order.Resolve(g)
	require.NoError(t, err)
	names, err := naming.NewTable(g, emit.TargetInterchange)
	require.NoError(t, err)
	require.NoError(t, New().Emit(g, ord, names, outDir))
	return g
}

func TestRoundTripReconstructsGraph(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "interchange")
	g := emitFixture(t, outDir)

	doc, err := Load(filepath.Join(outDir, DocumentFile))
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, doc.FormatVersion)

	rebuilt, err := Reconstruct(doc)
	require.NoError(t, err)

	require.Equal(t, g.Len(), rebuilt.Len())
	for _, n := range g.Nodes() {
		m, ok := rebuilt.Node(n.Token)
		require.True(t, ok, n.Token)
		assert.Equal(t, n, m, n.FullName)
	}
	assert.Equal(t, g.Edges(), rebuilt.Edges())
}

func TestDocumentOmitsUnknownLayout(t *testing.T) {
	doc := Build(fixtureGraph(t), mustTable(t))

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	var raw struct {
		Types []map[string]any `json:"types"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))

	// Box`1 has no known layout: size and alignment keys are absent.
	_, hasSize := raw.Types[0]["size"]
	assert.False(t, hasSize)
	// Holder carries both.
	assert.EqualValues(t, 0x20, raw.Types[1]["size"])
	assert.EqualValues(t, 8, raw.Types[1]["alignment"])
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	_, err := Decode([]byte(`{"format_version": "99.0", "types": [], "edges": []}`))
	assert.Error(t, err)
}

func TestEmitDeterministic(t *testing.T) {
	first := filepath.Join(t.TempDir(), "a")
	second := filepath.Join(t.TempDir(), "b")
	emitFixture(t, first)
	emitFixture(t, second)

	a, err := os.ReadFile(filepath.Join(first, DocumentFile))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(second, DocumentFile))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func mustTable(t *testing.T) *naming.Table {
	t.Helper()
	names, err := naming.NewTable(fixtureGraph(t), emit.TargetInterchange)
	require.NoError(t, err)
	return names
}
