package dedup

import (
	"strings"
	"unicode"
)

// NormalizeTitle lowercases a title, strips punctuation, and collapses
// whitespace, producing the form used for similarity comparison.
func NormalizeTitle(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity returns a score in [0, 1] for two normalized titles: the
// Sørensen–Dice coefficient over their token sets. Identical token sets
// score 1, disjoint sets 0. Both inputs are expected to already be
// normalized with NormalizeTitle.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	common := 0
	for tok := range tokensA {
		if tokensB[tok] {
			common++
		}
	}

	return 2 * float64(common) / float64(len(tokensA)+len(tokensB))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
