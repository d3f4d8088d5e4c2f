package util

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts PascalCase or camelCase to snake_case. Acronym runs
// stay together: "HTTPSConnection" becomes "https_connection".
func ToSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevUpper := unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !prevUpper || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ToPascalCase converts snake_case or kebab-case to PascalCase.
func ToPascalCase(s string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(s, isWordSep) {
		runes := []rune(part)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(string(runes[1:]))
	}
	return b.String()
}

// ToCamelCase converts snake_case or kebab-case to camelCase.
func ToCamelCase(s string) string {
	pascal := []rune(ToPascalCase(s))
	if len(pascal) == 0 {
		return ""
	}
	pascal[0] = unicode.ToLower(pascal[0])
	return string(pascal)
}

func isWordSep(r rune) bool { return r == '_' || r == '-' }
