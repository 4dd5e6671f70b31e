package utils

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Fuzzy similarity helpers shared by the deduplicator and the marketplace
// enrichment match check.

// SimilarityWeights are the components of the combined title similarity.
type SimilarityWeights struct {
	Levenshtein float64
	Jaccard     float64
	Keyword     float64
}

// DefaultSimilarityWeights weight token-set overlap highest: listings for
// the same venue reorder words far more often than they change them.
var DefaultSimilarityWeights = SimilarityWeights{
	Levenshtein: 0.3,
	Jaccard:     0.4,
	Keyword:     0.3,
}

// LevenshteinSimilarity maps edit distance into [0,1], 1 meaning equal.
func LevenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// WordSetJaccard is intersection-over-union of the whitespace-split word
// sets of a and b.
func WordSetJaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// KeywordOverlap restricts the comparison to a fixed domain keyword list.
// Generic filler words never enter this component, so two listings only
// score here when they share landmark or activity-type vocabulary.
func KeywordOverlap(a, b string, keywords []string) float64 {
	kwA := presentKeywords(a, keywords)
	kwB := presentKeywords(b, keywords)
	if len(kwA) == 0 && len(kwB) == 0 {
		return 0
	}
	if len(kwA) == 0 || len(kwB) == 0 {
		return 0
	}
	inter := 0
	for w := range kwA {
		if kwB[w] {
			inter++
		}
	}
	union := len(kwA) + len(kwB) - inter
	return float64(inter) / float64(union)
}

// CombinedTitleSimilarity is the weighted blend used to decide whether two
// normalized titles describe the same product.
func CombinedTitleSimilarity(a, b string, keywords []string, w SimilarityWeights) float64 {
	return w.Levenshtein*LevenshteinSimilarity(a, b) +
		w.Jaccard*WordSetJaccard(a, b) +
		w.Keyword*KeywordOverlap(a, b, keywords)
}

func wordSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		out[w] = true
	}
	return out
}

func presentKeywords(s string, keywords []string) map[string]bool {
	out := make(map[string]bool)
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			out[kw] = true
		}
	}
	return out
}
