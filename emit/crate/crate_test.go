package crate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/sebdah/goldie/v2"
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
		Token: 1, Name: "Vec", Namespace: "App", Assembly: "Core.dll",
		FullName: "App.Vec", Kind: metadata.KindStruct,
		Size: 8, Alignment: metadata.SizeUnknown,
		Fields: []*graph.FieldNode{
			{Token: 10, Owner: 1, Name: "x", Type: prim(metadata.PrimR4), Offset: 0},
			{Token: 11, Owner: 1, Name: "y", Type: prim(metadata.PrimR4), Offset: 4},
		},
	}))
	require.NoError(t, g.AddNode(&graph.TypeNode{
		Token: 2, Name: "Player", Namespace: "App", Assembly: "Core.dll",
		FullName: "App.Player", Kind: metadata.KindClass,
		Size: metadata.SizeUnknown, Alignment: metadata.SizeUnknown,
		Fields: []*graph.FieldNode{
			{Token: 12, Owner: 2, Name: "pos",
				Type:   graph.TypeReference{Shape: metadata.RefDirect, Token: 1},
				Offset: 0x10},
			{Token: 13, Owner: 2, Name: "name", Type: prim(metadata.PrimString), Offset: 0x18},
		},
		Methods: []*graph.MethodNode{
			{Token: 20, Owner: 2, Name: "Update",
				Params:  []graph.ParamNode{{Name: "dt", Type: prim(metadata.PrimR4)}},
				Return:  prim(metadata.PrimVoid),
				Virtual: true, Slot: 0},
		},
	}))
	require.NoError(t, g.AddNode(&graph.TypeNode{
		Token: 3, Name: "Color", Namespace: "App", Assembly: "Core.dll",
		FullName: "App.Color", Kind: metadata.KindEnum,
		Size: metadata.SizeUnknown, Alignment: metadata.SizeUnknown,
		Fields: []*graph.FieldNode{
			{Token: 30, Owner: 3, Name: "value__", Type: prim(metadata.PrimI4),
				Offset: metadata.SizeUnknown},
			{Token: 31, Owner: 3, Name: "Red", Static: true,
				Type: graph.TypeReference{Shape: metadata.RefDirect, Token: 3}, Offset: metadata.SizeUnknown},
			{Token: 32, Owner: 3, Name: "Green", Static: true,
				Type: graph.TypeReference{Shape: metadata.RefDirect, Token: 3}, Offset: metadata.SizeUnknown},
		},
	}))
	g.AddEdge(graph.Edge{From: 2, To: 1, Kind: graph.EdgeContainsField, ByValue: true})
	return g
}

func emitFixture(t *testing.T, outDir string) {
	t.Helper()
	g := fixtureGraph(t)
	ord, err := order.Resolve(g)
	require.NoError(t, err)
	names, err := naming.NewTable(g, emit.TargetCrate)
	require.NoError(t, err)
	require.NoError(t, New("fixture-types").Emit(g, ord, names, outDir))
}

func TestEmitGolden(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "crate")
	emitFixture(t, outDir)

	data, err := os.ReadFile(filepath.Join(outDir, "src", "core.rs"))
	require.NoError(t, err)
	goldie.New(t).Assert(t, "core_rs", data)
}

func TestManifestRoundTrips(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "crate")
	emitFixture(t, outDir)

	data, err := os.ReadFile(filepath.Join(outDir, "Cargo.toml"))
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, toml.Unmarshal(data, &m))
	assert.Equal(t, "fixture-types", m.Package.Name)
	assert.Equal(t, "0.1.0", m.Package.Version)
	assert.Equal(t, "2021", m.Package.Edition)
}

func TestLibDeclaresAssemblyModules(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "crate")
	emitFixture(t, outDir)

	data, err := os.ReadFile(filepath.Join(outDir, "src", "lib.rs"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "pub mod core;")
	assert.Contains(t, content, "pub struct TfString")
	assert.Contains(t, content, "pub struct TfArray<T>")
}

func TestClassReferencesSpellAsRawPointers(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "crate")
	emitFixture(t, outDir)

	data, err := os.ReadFile(filepath.Join(outDir, "src", "core.rs"))
	require.NoError(t, err)
	content := string(data)

	// Value-type field embeds directly, string field goes through *mut.
	assert.Contains(t, content, "pub pos: crate::core::app::Vec,")
	assert.Contains(t, content, "pub name: *mut crate::TfString,")
	assert.False(t, strings.Contains(content, "*mut crate::core::app::Vec"))
}

func TestEmitDeterministic(t *testing.T) {
	first := filepath.Join(t.TempDir(), "a")
	second := filepath.Join(t.TempDir(), "b")
	emitFixture(t, first)
	emitFixture(t, second)

	for _, rel := range []string{"Cargo.toml", filepath.Join("src", "lib.rs"), filepath.Join("src", "core.rs")} {
		a, err := os.ReadFile(filepath.Join(first, rel))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, rel))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), rel)
	}
}
