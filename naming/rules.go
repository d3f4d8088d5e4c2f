// Package naming maps original metadata names, which may collide, shadow
// target-language keywords, or contain illegal characters, to unique legal
// identifiers for each output target. The original→sanitized mapping is kept
// for cross-referencing, and every decision is deterministic: repeated runs
// on identical input produce identical names.
package naming

import (
	"embed"

	"gopkg.in/yaml.v3"

	"github.com/typeforge/typeforge/errors"
)

//go:embed rules/*.yaml
var rulesFS embed.FS

// CaseStyle selects the case convention applied to an identifier.
type CaseStyle string

const (
	CasePreserve CaseStyle = "preserve"
	CasePascal   CaseStyle = "pascal"
	CaseCamel    CaseStyle = "camel"
	CaseSnake    CaseStyle = "snake"
)

// Rules parameterizes the sanitizer for one target language: reserved words,
// the replacement for illegal characters, and case conventions per
// identifier kind. Each backend ships a rules table; overrides can be loaded
// from configuration.
type Rules struct {
	Target        string    `yaml:"target"`
	Replacement   string    `yaml:"replacement"`
	TypeCase      CaseStyle `yaml:"type_case"`
	FieldCase     CaseStyle `yaml:"field_case"`
	MethodCase    CaseStyle `yaml:"method_case"`
	NamespaceCase CaseStyle `yaml:"namespace_case"`
	Reserved      []string  `yaml:"reserved"`

	reserved map[string]bool
}

// LoadRules returns the embedded rules table for a target.
func LoadRules(target string) (Rules, error) {
	data, err := rulesFS.ReadFile("rules/" + target + ".yaml")
	if err != nil {
		return Rules{}, errors.Wrapf(err, "no naming rules for target %q", target)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML rules document.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, errors.Wrap(err, "parsing naming rules")
	}
	if r.Replacement == "" {
		r.Replacement = "_"
	}
	r.reserved = make(map[string]bool, len(r.Reserved))
	for _, word := range r.Reserved {
		r.reserved[word] = true
	}
	return r, nil
}

// IsReserved reports whether the identifier collides with a target keyword.
func (r Rules) IsReserved(name string) bool { return r.reserved[name] }

func (r Rules) caseFor(kind Kind) CaseStyle {
	switch kind {
	case KindType:
		return r.TypeCase
	case KindField, KindParam:
		return r.FieldCase
	case KindMethod:
		return r.MethodCase
	case KindNamespace:
		return r.NamespaceCase
	}
	return CasePreserve
}
