package errz

import (
	"sort"
	"strings"
)

// SuggestSimilar finds candidates within a small edit distance of the
// target, closest first. Used for "Did you mean" hints on name errors.
func SuggestSimilar(target string, candidates []string) []string {
	if len(target) == 0 || len(candidates) == 0 {
		return nil
	}

	// Short names only tolerate small typos.
	threshold := 3
	if len(target) <= 3 {
		threshold = 1
	} else if len(target) <= 5 {
		threshold = 2
	}

	type scored struct {
		value string
		dist  int
	}
	lowered := strings.ToLower(target)
	var matches []scored
	for _, candidate := range candidates {
		if candidate == "" || strings.ToLower(candidate) == lowered {
			continue
		}
		if d := editDistance(lowered, strings.ToLower(candidate)); d <= threshold {
			matches = append(matches, scored{candidate, d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].value < matches[j].value
	})
	if len(matches) > 3 {
		matches = matches[:3]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.value
	}
	return out
}

// FormatSuggestions renders suggestions as a hint, or "" when empty.
func FormatSuggestions(suggestions []string) string {
	switch len(suggestions) {
	case 0:
		return ""
	case 1:
		return "Did you mean '" + suggestions[0] + "'?"
	default:
		return "Did you mean one of: '" + strings.Join(suggestions, "', '") + "'?"
	}
}

// editDistance is the Levenshtein distance over runes, computed with
// two rows.
func editDistance(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) > len(br) {
		ar, br = br, ar
	}
	if len(ar) == 0 {
		return len(br)
	}
	prev := make([]int, len(ar)+1)
	curr := make([]int, len(ar)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(br); j++ {
		curr[0] = j
		for i := 1; i <= len(ar); i++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			d := prev[i] + 1
			if curr[i-1]+1 < d {
				d = curr[i-1] + 1
			}
			if prev[i-1]+cost < d {
				d = prev[i-1] + cost
			}
			curr[i] = d
		}
		prev, curr = curr, prev
	}
	return prev[len(ar)]
}
