package header

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

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
			{Token: 31, Owner: 3, Name: "Red", Static: true, Type: graph.TypeReference{Shape: metadata.RefDirect, Token: 3}, Offset: metadata.SizeUnknown},
			{Token: 32, Owner: 3, Name: "Green", Static: true, Type: graph.TypeReference{Shape: metadata.RefDirect, Token: 3}, Offset: metadata.SizeUnknown},
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
	names, err := naming.NewTable(g, emit.TargetHeader)
	require.NoError(t, err)
	require.NoError(t, New().Emit(g, ord, names, outDir))
}

func TestEmitGolden(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "headers")
	emitFixture(t, outDir)

	gold := goldie.New(t)
	for name, rel := range map[string]string{
		"types_h":  masterFile,
		"vec_h":    filepath.Join("Core", "App", "Vec.h"),
		"player_h": filepath.Join("Core", "App", "Player.h"),
		"color_h":  filepath.Join("Core", "App", "Color.h"),
	} {
		data, err := os.ReadFile(filepath.Join(outDir, rel))
		require.NoError(t, err, rel)
		gold.Assert(t, name, data)
	}
}

func TestEmitWritesPrelude(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "headers")
	emitFixture(t, outDir)

	data, err := os.ReadFile(filepath.Join(outDir, preludeFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "struct TfString;")
	assert.Contains(t, string(data), "struct TfArray;")
}

func TestEmitDeterministic(t *testing.T) {
	first := filepath.Join(t.TempDir(), "a")
	second := filepath.Join(t.TempDir(), "b")
	emitFixture(t, first)
	emitFixture(t, second)

	err := filepath.Walk(first, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(first, path)
		require.NoError(t, err)
		a, err := os.ReadFile(path)
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, rel))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), rel)
		return nil
	})
	require.NoError(t, err)
}

func TestMasterHeaderMirrorsEmissionOrder(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "headers")
	emitFixture(t, outDir)

	data, err := os.ReadFile(filepath.Join(outDir, masterFile))
	require.NoError(t, err)
	content := string(data)

	vec := "#include \"Core/App/Vec.h\""
	player := "#include \"Core/App/Player.h\""
	assert.Contains(t, content, vec)
	assert.Contains(t, content, player)
	// Player contains Vec by value: Vec's unit must be included first.
	assert.Less(t, strings.Index(content, vec), strings.Index(content, player))
}
