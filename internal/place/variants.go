package place

import "strings"

// Variants returns the ordered, de-duplicated spelling variants of name:
// trimmed, whitespace-collapsed, space-free, hyphens as spaces and hyphen-free.
// Empty forms are skipped and first-seen order is kept, so the first element
// is always the trimmed input.
func Variants(name string) []string {
	var out []string
	add := func(v string) {
		if v == "" {
			return
		}
		for _, existing := range out {
			if existing == v {
				return
			}
		}
		out = append(out, v)
	}

	base := strings.TrimSpace(name)
	add(base)
	squeezed := strings.Join(strings.Fields(base), " ")
	add(squeezed)
	add(strings.ReplaceAll(squeezed, " ", ""))
	add(strings.ReplaceAll(squeezed, "-", " "))
	add(strings.ReplaceAll(squeezed, "-", ""))
	return out
}
