package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, LevenshteinSimilarity("seine river cruise", "seine river cruise"))
	assert.Equal(t, 1.0, LevenshteinSimilarity("", ""))
	assert.Equal(t, 0.0, LevenshteinSimilarity("abcd", "wxyz"))

	got := LevenshteinSimilarity("museum", "museums")
	assert.InDelta(t, 1-1.0/7, got, 1e-9)
}

func TestWordSetJaccard(t *testing.T) {
	assert.Equal(t, 1.0, WordSetJaccard("river cruise", "cruise river"))
	assert.Equal(t, 0.0, WordSetJaccard("palace garden", "harbor kayak"))
	assert.InDelta(t, 0.5, WordSetJaccard("seine river cruise", "seine cruise dinner"), 1e-9)
}

func TestKeywordOverlapIgnoresNonKeywords(t *testing.T) {
	keywords := []string{"cruise", "museum", "dinner"}

	assert.Equal(t, 1.0, KeywordOverlap("grand cruise", "sunset cruise", keywords))
	assert.InDelta(t, 0.5, KeywordOverlap("river cruise", "dinner cruise", keywords), 1e-9)
	assert.Equal(t, 0.0, KeywordOverlap("walking trip", "bus ride", keywords))
	assert.Equal(t, 0.0, KeywordOverlap("cruise", "walking trip", keywords))
}

func TestCombinedTitleSimilarityBounds(t *testing.T) {
	keywords := []string{"cruise", "museum"}

	same := CombinedTitleSimilarity("seine river cruise", "seine river cruise", keywords, DefaultSimilarityWeights)
	assert.Equal(t, 1.0, same)

	different := CombinedTitleSimilarity("louvre museum", "harbor kayak", keywords, DefaultSimilarityWeights)
	assert.Less(t, different, 0.3)

	similar := CombinedTitleSimilarity("seine river cruise", "seine river dinner cruise", keywords, DefaultSimilarityWeights)
	assert.Greater(t, similar, 0.6)
	assert.Less(t, similar, 1.0)
}
