package render

import "strings"

// Measure reports the rendered width of a string in page units under the
// drawing backend's current font. Implementations must be safe for
// concurrent reads.
type Measure func(s string) float64

// WrapText splits text into lines no wider than maxWidth using greedy
// packing: words accumulate until the next word would overflow, then the
// line breaks. A single word wider than maxWidth is kept whole on its own
// line rather than split. Empty or whitespace-only input yields exactly
// one empty line so callers can rely on a non-zero line count.
func WrapText(text string, maxWidth float64, measure Measure) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	lines := make([]string, 0, 1)
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if measure(candidate) > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}
