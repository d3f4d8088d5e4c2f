// Package emit defines the backend emitter contract and the atomic output
// staging shared by every target. Emitters are read-only over the finalized
// graph: given the same graph, order, and name table they may run in
// parallel against disjoint output directories.
package emit

import (
	"github.com/typeforge/typeforge/graph"
	"github.com/typeforge/typeforge/naming"
	"github.com/typeforge/typeforge/order"
)

// Output target identifiers. They double as naming-rules table keys.
const (
	TargetHeader      = "native-header"
	TargetCrate       = "source-crate"
	TargetInterchange = "interchange-document"
)

// Targets lists every supported output target.
func Targets() []string {
	return []string{TargetHeader, TargetCrate, TargetInterchange}
}

// Emitter renders one artifact set from the finalized pipeline state. Emit
// must not mutate the graph and must publish atomically: on error the output
// directory is left untouched.
type Emitter interface {
	Target() string
	Emit(g *graph.Graph, ord *order.EmissionOrder, names *naming.Table, outDir string) error
}

// Usage identifies the syntactic position a type reference is rendered in.
// The same reference spells differently as a field type, a parameter, a
// return type, a generic argument, or a bare type name (inheritance lists,
// forward declarations).
type Usage int

const (
	UsageField Usage = iota
	UsageParam
	UsageReturn
	UsageGenericArg
	UsageTypeName
)
