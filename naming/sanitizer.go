package naming

import (
	"encoding/binary"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/typeforge/typeforge/internal/util"
	"github.com/typeforge/typeforge/metadata"
)

// Kind classifies the identifier being sanitized; case conventions and
// uniqueness scopes differ per kind.
type Kind string

const (
	KindType      Kind = "type"
	KindField     Kind = "field"
	KindMethod    Kind = "method"
	KindParam     Kind = "param"
	KindNamespace Kind = "namespace"
)

// Sanitizer turns original names into legal, non-colliding identifiers
// under one target's rules. It keeps a per-scope uniqueness ledger; on
// collision the colliding name gains a stable suffix derived from the
// owning token, never from randomness.
type Sanitizer struct {
	rules Rules
	// ledger maps scope -> sanitized name -> token that owns it.
	ledger map[string]map[string]metadata.Token
}

// NewSanitizer creates a sanitizer over one target's rules.
func NewSanitizer(rules Rules) *Sanitizer {
	return &Sanitizer{
		rules:  rules,
		ledger: map[string]map[string]metadata.Token{},
	}
}

// Sanitize maps (original, scope, kind) to a legal unique identifier. The
// owning token pins the name: sanitizing the same token twice in a scope
// returns the same identifier, and a different token colliding on the same
// candidate receives a token-derived suffix instead.
func (s *Sanitizer) Sanitize(original, scope string, kind Kind, token metadata.Token) string {
	candidate := s.legalize(original, kind)

	names := s.ledger[scope]
	if names == nil {
		names = map[string]metadata.Token{}
		s.ledger[scope] = names
	}

	// The suffixed candidate can itself be taken when another token's
	// original name legalized to exactly that spelling; keep appending the
	// token suffix until the name is free. Each round lengthens the
	// candidate, so the loop terminates.
	owner, taken := names[candidate]
	for taken {
		if owner == token {
			return candidate
		}
		candidate = candidate + "_" + TokenSuffix(token)
		owner, taken = names[candidate]
	}
	names[candidate] = token
	return candidate
}

// Legalize strips illegal characters, applies the case convention, and
// dodges reserved words without consulting the uniqueness ledger.
func (s *Sanitizer) Legalize(original string, kind Kind) string {
	return s.legalize(original, kind)
}

func (s *Sanitizer) legalize(original string, kind Kind) string {
	var b strings.Builder
	for _, r := range original {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteString(s.rules.Replacement)
		}
	}
	name := collapseRuns(b.String(), s.rules.Replacement)

	switch s.rules.caseFor(kind) {
	case CasePascal:
		name = util.ToPascalCase(name)
	case CaseCamel:
		name = util.ToCamelCase(name)
	case CaseSnake:
		name = util.ToSnakeCase(name)
	}

	if name == "" {
		name = "unnamed"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = s.rules.Replacement + name
	}
	if s.rules.IsReserved(name) {
		name += "_"
	}
	return name
}

// TokenSuffix renders the stable disambiguating suffix for a token: the
// big-endian token bytes in base58, compact and identifier-safe.
func TokenSuffix(token metadata.Token) string {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(token))
	return base58.Encode(buf[:])
}

// collapseRuns squeezes repeated replacement strings and trims them from
// both ends, so "Box`1<i4>" becomes "Box_1_i4" rather than "Box_1_i4__".
func collapseRuns(name, replacement string) string {
	if replacement == "" {
		return name
	}
	double := replacement + replacement
	for strings.Contains(name, double) {
		name = strings.ReplaceAll(name, double, replacement)
	}
	name = strings.TrimPrefix(name, replacement)
	name = strings.TrimSuffix(name, replacement)
	return name
}
