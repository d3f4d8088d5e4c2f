// Package order computes the linear emission order over the type graph:
// every inherits/implements/by-value-containment edge A→B places B before A
// except where A and B are mutually dependent. True cycles are broken with
// forward-declaration markers; by-value containment cycles have no valid
// break strategy and abort the run.
package order

import (
	"sort"

	"go.uber.org/zap"

	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/graph"
	"github.com/typeforge/typeforge/logger"
	"github.com/typeforge/typeforge/metadata"
)

// ItemKind discriminates emission order entries.
type ItemKind string

const (
	// ItemDefinition is the full definition of a type.
	ItemDefinition ItemKind = "definition"
	// ItemForwardDecl is a partial announcement breaking an ordering cycle;
	// the full definition follows later in the sequence.
	ItemForwardDecl ItemKind = "forward-declaration"
)

// Item is one entry of the emission order.
type Item struct {
	Kind  ItemKind
	Token metadata.Token
}

// EmissionOrder is the finalized declaration sequence for one pipeline run.
// It is owned by the run that produced it and never persisted.
type EmissionOrder struct {
	Items []Item

	positions map[metadata.Token]int
	forward   map[metadata.Token]int
}

// Position returns the index of a token's full definition.
func (o *EmissionOrder) Position(t metadata.Token) (int, bool) {
	pos, ok := o.positions[t]
	return pos, ok
}

// ForwardDeclared reports whether the token received a cycle-break marker,
// and at which index.
func (o *EmissionOrder) ForwardDeclared(t metadata.Token) (int, bool) {
	pos, ok := o.forward[t]
	return pos, ok
}

func (o *EmissionOrder) append(item Item) {
	switch item.Kind {
	case ItemDefinition:
		o.positions[item.Token] = len(o.Items)
	case ItemForwardDecl:
		o.forward[item.Token] = len(o.Items)
	}
	o.Items = append(o.Items, item)
}

// Resolve computes the emission order for a finalized graph. Ties among
// otherwise-unordered nodes break by token, guaranteeing run-to-run
// determinism for identical input.
func Resolve(g *graph.Graph) (*EmissionOrder, error) {
	r := newResolver(g)
	ord, err := r.run()
	if err != nil {
		return nil, err
	}
	r.log.Infow("emission order resolved",
		logger.FieldCount, len(ord.Items),
		"forward_declarations", len(ord.forward))
	return ord, nil
}

type resolver struct {
	g      *graph.Graph
	tokens []metadata.Token
	// deps[a] holds every b that a's declaration requires fully declared.
	deps map[metadata.Token][]metadata.Token
	// valueDeps is the by-value containment subset, used to classify cycles.
	valueDeps map[metadata.Token][]metadata.Token
	log       *zap.SugaredLogger
}

func newResolver(g *graph.Graph) *resolver {
	r := &resolver{
		g:         g,
		deps:      map[metadata.Token][]metadata.Token{},
		valueDeps: map[metadata.Token][]metadata.Token{},
		log:       logger.Named("order.resolver"),
	}
	for _, n := range g.Nodes() {
		r.tokens = append(r.tokens, n.Token)
	}
	seen := map[[2]metadata.Token]bool{}
	for _, e := range g.OrderingEdges() {
		key := [2]metadata.Token{e.From, e.To}
		if !seen[key] {
			seen[key] = true
			r.deps[e.From] = append(r.deps[e.From], e.To)
		}
		if e.Kind == graph.EdgeContainsField && e.ByValue {
			r.valueDeps[e.From] = append(r.valueDeps[e.From], e.To)
		}
	}
	for _, adj := range r.deps {
		sort.Slice(adj, func(i, j int) bool { return adj[i] < adj[j] })
	}
	return r
}

func (r *resolver) run() (*EmissionOrder, error) {
	components := r.stronglyConnected()

	// Classify cyclic components before ordering anything: a run that cannot
	// guarantee structural fidelity is refused outright.
	cyclic := map[int]bool{}
	for idx, comp := range components {
		if len(comp) > 1 || r.hasSelfLoop(comp[0]) {
			cyclic[idx] = true
			if members, unbreakable := r.byValueCycle(comp); unbreakable {
				return nil, errors.NewUnbreakableCycle(tokensToUint32(members))
			}
		}
	}

	return r.linearize(components, cyclic)
}

// stronglyConnected runs Tarjan's algorithm iteratively. Roots are visited
// in token order and neighbors in sorted order, so component discovery order
// is deterministic.
func (r *resolver) stronglyConnected() [][]metadata.Token {
	index := map[metadata.Token]int{}
	lowlink := map[metadata.Token]int{}
	onStack := map[metadata.Token]bool{}
	var stack []metadata.Token
	var components [][]metadata.Token
	next := 0

	type frame struct {
		token metadata.Token
		adj   []metadata.Token
		pos   int
	}

	var visit func(root metadata.Token)
	visit = func(root metadata.Token) {
		frames := []frame{{token: root, adj: r.deps[root]}}
		index[root] = next
		lowlink[root] = next
		next++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			if f.pos < len(f.adj) {
				w := f.adj[f.pos]
				f.pos++
				if _, visited := index[w]; !visited {
					index[w] = next
					lowlink[w] = next
					next++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, frame{token: w, adj: r.deps[w]})
				} else if onStack[w] {
					if index[w] < lowlink[f.token] {
						lowlink[f.token] = index[w]
					}
				}
				continue
			}

			v := f.token
			if lowlink[v] == index[v] {
				var comp []metadata.Token
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
				components = append(components, comp)
			}
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[v] < lowlink[parent.token] {
					lowlink[parent.token] = lowlink[v]
				}
			}
		}
	}

	for _, t := range r.tokens {
		if _, visited := index[t]; !visited {
			visit(t)
		}
	}
	return components
}

func (r *resolver) hasSelfLoop(t metadata.Token) bool {
	for _, dep := range r.deps[t] {
		if dep == t {
			return true
		}
	}
	return false
}

// byValueCycle reports whether the component's by-value containment edges
// form a cycle on their own. Such a cycle cannot be declared in any order:
// each member would need the other's full layout first.
func (r *resolver) byValueCycle(comp []metadata.Token) ([]metadata.Token, bool) {
	members := map[metadata.Token]bool{}
	for _, t := range comp {
		members[t] = true
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[metadata.Token]int{}

	var dfs func(t metadata.Token) bool
	dfs = func(t metadata.Token) bool {
		color[t] = gray
		for _, dep := range r.valueDeps[t] {
			if !members[dep] {
				continue
			}
			if color[dep] == gray {
				return true
			}
			if color[dep] == white && dfs(dep) {
				return true
			}
		}
		color[t] = black
		return false
	}

	for _, t := range comp {
		if color[t] == white && dfs(t) {
			return comp, true
		}
	}
	return nil, false
}

// linearize performs a deterministic topological sort over the component
// condensation, expanding cyclic components with a single forward-declaration
// marker for their lexicographically-smallest-token member.
func (r *resolver) linearize(components [][]metadata.Token, cyclic map[int]bool) (*EmissionOrder, error) {
	compOf := map[metadata.Token]int{}
	for idx, comp := range components {
		for _, t := range comp {
			compOf[t] = idx
		}
	}

	// Condensation edges: component of A depends on component of B.
	compDeps := make([]map[int]bool, len(components))
	indegree := make([]int, len(components))
	for idx := range components {
		compDeps[idx] = map[int]bool{}
	}
	dependents := make([]map[int]bool, len(components))
	for idx := range components {
		dependents[idx] = map[int]bool{}
	}
	for from, adj := range r.deps {
		for _, to := range adj {
			cf, ct := compOf[from], compOf[to]
			if cf == ct {
				continue
			}
			if !compDeps[cf][ct] {
				compDeps[cf][ct] = true
				dependents[ct][cf] = true
				indegree[cf]++
			}
		}
	}

	ord := &EmissionOrder{
		positions: map[metadata.Token]int{},
		forward:   map[metadata.Token]int{},
	}

	ready := &tokenMinQueue{}
	for idx, comp := range components {
		if indegree[idx] == 0 {
			ready.push(idx, comp[0])
		}
	}

	emitted := 0
	for ready.len() > 0 {
		idx := ready.pop()
		comp := components[idx]

		if cyclic[idx] {
			if err := r.expandCycle(comp, ord); err != nil {
				return nil, err
			}
		} else {
			ord.append(Item{Kind: ItemDefinition, Token: comp[0]})
		}
		emitted += len(comp)

		for dep := range dependents[idx] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready.push(dep, components[dep][0])
			}
		}
	}

	if emitted != len(r.tokens) {
		return nil, errors.AssertionFailedf(
			"emission order covers %d of %d types", emitted, len(r.tokens))
	}
	return ord, nil
}

// expandCycle orders the members of one cyclic component. The smallest-token
// member is forward-declared up front; edges into it are thereby satisfied
// and the remainder sorts topologically, with the representative's full
// definition landing at its natural position.
func (r *resolver) expandCycle(comp []metadata.Token, ord *EmissionOrder) error {
	rep := comp[0]
	ord.append(Item{Kind: ItemForwardDecl, Token: rep})

	members := map[metadata.Token]bool{}
	for _, t := range comp {
		members[t] = true
	}

	indegree := map[metadata.Token]int{}
	dependents := map[metadata.Token][]metadata.Token{}
	for _, t := range comp {
		indegree[t] = 0
	}
	for _, from := range comp {
		for _, to := range r.deps[from] {
			if !members[to] || to == rep || to == from {
				// Edges into the representative are satisfied by the marker.
				continue
			}
			dependents[to] = append(dependents[to], from)
			indegree[from]++
		}
	}

	var ready []metadata.Token
	for _, t := range comp {
		if indegree[t] == 0 {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	placed := 0
	for len(ready) > 0 {
		t := ready[0]
		ready = ready[1:]
		ord.append(Item{Kind: ItemDefinition, Token: t})
		placed++
		changed := false
		for _, dep := range dependents[t] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
				changed = true
			}
		}
		if changed {
			sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		}
	}

	if placed != len(comp) {
		// A residual cycle that one marker cannot break. With inheritance
		// and interface edges acyclic in well-formed metadata, what remains
		// traces back to by-value containment.
		var residual []metadata.Token
		for _, t := range comp {
			if _, done := ord.Position(t); !done {
				residual = append(residual, t)
			}
		}
		return errors.NewUnbreakableCycle(tokensToUint32(residual))
	}
	return nil
}

// tokenMinQueue is a ready list that always yields the component whose
// representative token is smallest.
type tokenMinQueue struct {
	entries []struct {
		comp int
		rep  metadata.Token
	}
}

func (q *tokenMinQueue) len() int { return len(q.entries) }

func (q *tokenMinQueue) push(comp int, rep metadata.Token) {
	q.entries = append(q.entries, struct {
		comp int
		rep  metadata.Token
	}{comp, rep})
}

func (q *tokenMinQueue) pop() int {
	best := 0
	for i := 1; i < len(q.entries); i++ {
		if q.entries[i].rep < q.entries[best].rep {
			best = i
		}
	}
	comp := q.entries[best].comp
	q.entries = append(q.entries[:best], q.entries[best+1:]...)
	return comp
}

func tokensToUint32(tokens []metadata.Token) []uint32 {
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	out := make([]uint32, len(tokens))
	for i, t := range tokens {
		out[i] = uint32(t)
	}
	return out
}
