package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/typeforge/graph"
	"github.com/typeforge/typeforge/metadata"
)

func mustRules(t *testing.T, target string) Rules {
	t.Helper()
	r, err := LoadRules(target)
	require.NoError(t, err)
	return r
}

func TestLegalizeReplacesIllegalCharacters(t *testing.T) {
	san := NewSanitizer(mustRules(t, "native-header"))

	assert.Equal(t, "Box_1_i4", san.Legalize("Box`1<i4>", KindType))
	assert.Equal(t, "Module", san.Legalize("<Module>", KindType))
	assert.Equal(t, "unnamed", san.Legalize("<>", KindType))
}

func TestLegalizeDigitLeadingName(t *testing.T) {
	san := NewSanitizer(mustRules(t, "native-header"))

	assert.Equal(t, "_3DVector", san.Legalize("3DVector", KindType))
}

func TestLegalizeReservedWords(t *testing.T) {
	header := NewSanitizer(mustRules(t, "native-header"))
	crate := NewSanitizer(mustRules(t, "source-crate"))

	assert.Equal(t, "class_", header.Legalize("class", KindType))
	assert.Equal(t, "match_", crate.Legalize("match", KindField))
	// Not reserved in C++, untouched.
	assert.Equal(t, "match", header.Legalize("match", KindField))
}

func TestCrateCaseConventions(t *testing.T) {
	san := NewSanitizer(mustRules(t, "source-crate"))

	assert.Equal(t, "GameObject", san.Legalize("gameObject", KindType))
	assert.Equal(t, "max_health", san.Legalize("MaxHealth", KindField))
	assert.Equal(t, "take_damage", san.Legalize("TakeDamage", KindMethod))
	assert.Equal(t, "core_util", san.Legalize("CoreUtil", KindNamespace))
}

func TestSanitizeCollisionSuffix(t *testing.T) {
	san := NewSanitizer(mustRules(t, "native-header"))

	// Distinct originals legalize to the same candidate.
	first := san.Sanitize("Value$1", "App", KindType, 10)
	second := san.Sanitize("Value@1", "App", KindType, 11)

	assert.Equal(t, "Value_1", first)
	assert.Equal(t, "Value_1_"+TokenSuffix(11), second)

	// Same token re-sanitized keeps its name.
	assert.Equal(t, first, san.Sanitize("Value$1", "App", KindType, 10))

	// Different scope, no collision.
	assert.Equal(t, "Value_1", san.Sanitize("Value$1", "App.Sub", KindType, 12))
}

func TestSanitizeSuffixedCandidateAlreadyTaken(t *testing.T) {
	san := NewSanitizer(mustRules(t, "native-header"))

	// An original name that happens to spell exactly the suffix another
	// token would receive on collision.
	taken := san.Sanitize("Foo_"+TokenSuffix(3), "App", KindType, 1)
	base := san.Sanitize("Foo", "App", KindType, 2)
	third := san.Sanitize("Foo", "App", KindType, 3)

	assert.Equal(t, "Foo_"+TokenSuffix(3), taken)
	assert.Equal(t, "Foo", base)
	assert.NotEqual(t, taken, third)
	assert.NotEqual(t, base, third)
	assert.Equal(t, "Foo_"+TokenSuffix(3)+"_"+TokenSuffix(3), third)

	// Re-sanitizing the doubly-suffixed token keeps its name.
	assert.Equal(t, third, san.Sanitize("Foo", "App", KindType, 3))
}

func TestTokenSuffixStable(t *testing.T) {
	assert.Equal(t, TokenSuffix(0x1234), TokenSuffix(0x1234))
	assert.NotEqual(t, TokenSuffix(1), TokenSuffix(2))
	assert.NotEmpty(t, TokenSuffix(0))
}

func buildNamingGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	require.NoError(t, g.AddNode(&graph.TypeNode{
		Token:     1,
		Name:      "GameObject",
		Namespace: "App.Engine",
		Kind:      metadata.KindClass,
		Fields: []*graph.FieldNode{
			{Token: 100, Owner: 1, Name: "MaxHealth"},
			{Token: 101, Owner: 1, Name: "max$health"},
		},
		Methods: []*graph.MethodNode{
			{Token: 200, Owner: 1, Name: "TakeDamage", Params: []graph.ParamNode{
				{Name: "amount"}, {Name: ""},
			}},
		},
	}))
	require.NoError(t, g.AddNode(&graph.TypeNode{
		Token:     2,
		Name:      "Game@Object",
		Namespace: "App.Engine",
		Kind:      metadata.KindStruct,
	}))
	require.NoError(t, g.AddNode(&graph.TypeNode{
		Token: 3,
		Name:  "Orphan",
		Kind:  metadata.KindClass,
	}))
	return g
}

func TestTableAssignsUniqueTypeNames(t *testing.T) {
	g := buildNamingGraph(t)

	table, err := NewTable(g, "native-header")
	require.NoError(t, err)

	assert.Equal(t, "GameObject", table.TypeName(1))
	assert.Equal(t, "Game_Object", table.TypeName(2))
	assert.Equal(t, []string{"App", "Engine"}, table.NamespacePath(1))
	assert.Equal(t, "App::Engine::GameObject", table.QualifiedName(1, "::"))
	assert.Empty(t, table.NamespacePath(3))
	assert.Equal(t, "Orphan", table.QualifiedName(3, "::"))
}

func TestTableFieldCollisionWithinType(t *testing.T) {
	g := buildNamingGraph(t)

	table, err := NewTable(g, "source-crate")
	require.NoError(t, err)

	assert.Equal(t, "max_health", table.FieldName(100))
	assert.Equal(t, "max_health_"+TokenSuffix(101), table.FieldName(101))
	assert.Equal(t, "take_damage", table.MethodName(200))
	assert.Equal(t, []string{"amount", "arg"}, table.ParamNames(200))
}

func TestTableDeterministic(t *testing.T) {
	for _, target := range []string{"native-header", "source-crate", "interchange-document"} {
		g := buildNamingGraph(t)
		a, err := NewTable(g, target)
		require.NoError(t, err)
		b, err := NewTable(g, target)
		require.NoError(t, err)
		for _, n := range g.Nodes() {
			assert.Equal(t, a.TypeName(n.Token), b.TypeName(n.Token), target)
			assert.Equal(t, a.NamespacePath(n.Token), b.NamespacePath(n.Token), target)
		}
	}
}

func TestSharedNamespacePath(t *testing.T) {
	g := buildNamingGraph(t)

	table, err := NewTable(g, "source-crate")
	require.NoError(t, err)

	// Both types in App.Engine resolve to the same module path.
	assert.Equal(t, table.NamespacePath(1), table.NamespacePath(2))
	assert.Equal(t, []string{"app", "engine"}, table.NamespacePath(1))
}
