package similarity

import (
	"strings"
	"unicode"
)

// SplitCases splits snake_case, kebab-case, and camelCase words into
// space separated parts: "OrderService" and "order_service" both become
// "Order Service" and "order service".
func SplitCases(name string) string {
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	words := strings.Fields(name)
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, splitCamel(w)...)
	}
	return strings.Join(parts, " ")
}

// splitCamel breaks before an upper-case letter that follows a non upper-case
// letter, and before the last upper-case letter of a run that starts a
// capitalised word ("HTTPServer" -> "HTTP", "Server").
func splitCamel(word string) []string {
	rs := []rune(word)
	var parts []string
	start := 0
	for i := 1; i < len(rs); i++ {
		if !unicode.IsUpper(rs[i]) {
			continue
		}
		prevUpper := unicode.IsUpper(rs[i-1])
		nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
		if !prevUpper || nextLower {
			parts = append(parts, string(rs[start:i]))
			start = i
		}
	}
	return append(parts, string(rs[start:]))
}

// SplitAtSeparators splits s at whitespace and the separators '-', '.', '_'.
func SplitAtSeparators(s string) []string {
	return strings.Fields(strings.NewReplacer("-", " ", ".", " ", "_", " ").Replace(s))
}

// Words splits s at single spaces after trimming, the tokenisation the
// comparator uses for its length check.
func Words(s string) []string {
	return strings.Split(strings.TrimSpace(s), " ")
}
