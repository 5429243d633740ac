package matching

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Similarity scores two strings in [0,1] as 2*M/T, where T is the combined
// rune length and M is the number of runes covered by the matching blocks
// found by recursively taking the longest common block and repeating on the
// pieces to its left and right.
//
// Empty input scores 0. Identical input scores exactly 1. The block search
// can depend on argument order, so both orders are scored and the larger
// value is returned, which keeps the function symmetric.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ra, rb := runeStrings(a), runeStrings(b)
	matched := matchingRunes(ra, rb)
	if reverse := matchingRunes(rb, ra); reverse > matched {
		matched = reverse
	}

	return 2 * float64(matched) / float64(len(ra)+len(rb))
}

// matchingRunes returns the total size of the matching blocks of a and b.
// Junk heuristics are off so long addresses are compared rune for rune.
func matchingRunes(a, b []string) int {
	m := difflib.NewMatcherWithJunk(a, b, false, nil)

	total := 0
	for _, block := range m.GetMatchingBlocks() {
		total += block.Size
	}
	return total
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
