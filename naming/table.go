package naming

import (
	"strings"

	"github.com/typeforge/typeforge/graph"
	"github.com/typeforge/typeforge/metadata"
)

// Table holds every sanitized name for one graph under one target's rules.
// It is built once, in token order, and read concurrently by emitters.
type Table struct {
	target string
	rules  Rules

	types      map[metadata.Token]string
	namespaces map[metadata.Token][]string
	fields     map[metadata.Token]string
	methods    map[metadata.Token]string
	params     map[metadata.Token][]string
}

// NewTable sanitizes every identifier in the graph for the given target.
// Nodes are visited in token order, so the suffix a colliding name receives
// never depends on build scheduling.
func NewTable(g *graph.Graph, target string) (*Table, error) {
	rules, err := LoadRules(target)
	if err != nil {
		return nil, err
	}
	t := &Table{
		target:     target,
		rules:      rules,
		types:      map[metadata.Token]string{},
		namespaces: map[metadata.Token][]string{},
		fields:     map[metadata.Token]string{},
		methods:    map[metadata.Token]string{},
		params:     map[metadata.Token][]string{},
	}
	san := NewSanitizer(rules)

	nsCache := map[string][]string{}
	for _, n := range g.Nodes() {
		path, ok := nsCache[n.Namespace]
		if !ok {
			path = namespacePath(san, n.Namespace)
			nsCache[n.Namespace] = path
		}
		t.namespaces[n.Token] = path
		scope := strings.Join(path, "/")
		base := n.Name
		if n.IsInstantiation() {
			// Rendered argument list keeps distinct bindings of one generic
			// definition from colliding: Box`1<i4> and Box`1<r8> legalize to
			// different base names before the ledger ever sees them.
			base = strings.TrimPrefix(n.FullName, n.Namespace+".")
		}
		t.types[n.Token] = san.Sanitize(base, scope, KindType, n.Token)

		memberScope := "type:" + n.Token.String()
		for _, f := range n.Fields {
			t.fields[f.Token] = san.Sanitize(f.Name, memberScope, KindField, f.Token)
		}
		for _, m := range n.Methods {
			t.methods[m.Token] = san.Sanitize(m.Name, memberScope+"/methods", KindMethod, m.Token)
			names := make([]string, len(m.Params))
			paramScope := "method:" + m.Token.String()
			for i, p := range m.Params {
				name := p.Name
				if name == "" {
					name = "arg"
				}
				names[i] = san.Sanitize(name, paramScope, KindParam, m.Token+metadata.Token(i))
			}
			t.params[m.Token] = names
		}
	}
	return t, nil
}

// Target reports which rules table the names were built under.
func (t *Table) Target() string { return t.target }

// TypeName returns the sanitized type identifier, or "" for unknown tokens.
func (t *Table) TypeName(token metadata.Token) string { return t.types[token] }

// NamespacePath returns the sanitized namespace segments of the type, outer
// first. Global-namespace types return an empty path.
func (t *Table) NamespacePath(token metadata.Token) []string { return t.namespaces[token] }

// QualifiedName joins the namespace path and type name with the separator.
func (t *Table) QualifiedName(token metadata.Token, sep string) string {
	parts := append(append([]string{}, t.namespaces[token]...), t.types[token])
	return strings.Join(parts, sep)
}

// FieldName returns the sanitized field identifier.
func (t *Table) FieldName(token metadata.Token) string { return t.fields[token] }

// MethodName returns the sanitized method identifier.
func (t *Table) MethodName(token metadata.Token) string { return t.methods[token] }

// ParamNames returns the sanitized parameter identifiers of a method, in
// declaration order.
func (t *Table) ParamNames(token metadata.Token) []string { return t.params[token] }

// namespacePath legalizes the dotted namespace segment by segment.
// Namespaces are shared path prefixes, not scoped identifiers, so they
// bypass the uniqueness ledger: every type in "App.Util" must land under
// the same sanitized path.
func namespacePath(san *Sanitizer, namespace string) []string {
	if namespace == "" {
		return nil
	}
	segments := strings.Split(namespace, ".")
	path := make([]string, 0, len(segments))
	for _, seg := range segments {
		path = append(path, san.Legalize(seg, KindNamespace))
	}
	return path
}
