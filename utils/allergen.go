package utils

import "strings"

// NormalizeAllergenCodes trims and upper-cases each code, drops empties and
// keeps the first occurrence of each code in input order.
func NormalizeAllergenCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		code := strings.ToUpper(strings.TrimSpace(c))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
