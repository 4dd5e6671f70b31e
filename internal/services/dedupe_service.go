package services

import (
	"regexp"
	"strings"

	"tripforge/internal/models/domain_models"
	"tripforge/pkg/utils"
)

// DedupeConfig tunes the merge decision. Thresholds differ per call site:
// a single generation batch can merge aggressively because everything came
// from one prompt, while merging across batches needs near-certainty plus
// the extra category/slot checks.
type DedupeConfig struct {
	MergeThreshold         float64
	DurationToleranceHours float64
	LocationThreshold      float64
	RequireCategoryMatch   bool
	RequireTimeSlotMatch   bool
}

// DefaultDedupeConfig is the in-batch configuration.
func DefaultDedupeConfig() DedupeConfig {
	return DedupeConfig{
		MergeThreshold:         0.6,
		DurationToleranceHours: 0.5,
		LocationThreshold:      0.5,
	}
}

// CrossBatchDedupeConfig is used when folding user-pinned activities into
// freshly generated candidates.
func CrossBatchDedupeConfig() DedupeConfig {
	return DedupeConfig{
		MergeThreshold:         0.85,
		DurationToleranceHours: 0.5,
		LocationThreshold:      0.5,
		RequireCategoryMatch:   true,
		RequireTimeSlotMatch:   true,
	}
}

type DedupeServiceInterface interface {
	// Dedupe clusters near-duplicate activities and keeps one
	// representative per cluster. Output length never exceeds input
	// length, and the result is deterministic given the input order.
	Dedupe(activities []domain_models.Activity, cfg DedupeConfig) []domain_models.Activity
}

type DedupeService struct{}

func NewDedupeService() DedupeServiceInterface {
	return &DedupeService{}
}

// fillerTokens are marketing noise that says nothing about which venue a
// listing is for.
var fillerTokens = map[string]bool{
	"tickets": true, "ticket": true, "tour": true, "tours": true,
	"guided": true, "exclusive": true, "priority": true, "access": true,
	"entry": true, "admission": true, "experience": true, "visit": true,
	"the": true, "a": true, "an": true, "of": true, "in": true,
	"at": true, "to": true, "with": true, "for": true, "and": true,
	"from": true, "on": true, "by": true,
}

// fillerPhraseRe catches marketing phrases that span tokens. It has to run
// before punctuation stripping, which would break the hyphenated forms
// into ordinary words.
var fillerPhraseRe = regexp.MustCompile(`skip[\s-]*the[\s-]*line`)

// domainKeywords are landmark and activity-type words; overlap on these is
// a strong same-product signal even when the rest of the title differs.
var domainKeywords = []string{
	"cruise", "museum", "palace", "cathedral", "church", "temple",
	"castle", "tower", "bridge", "market", "garden", "park", "gallery",
	"beach", "island", "mountain", "river", "lake", "canal", "harbor",
	"dinner", "lunch", "tasting", "wine", "food", "cooking", "show",
	"concert", "walking", "bike", "boat", "kayak", "hike", "safari",
	"aquarium", "zoo", "observatory", "vineyard",
}

var titlePunctRe = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

const (
	maxDurationHours = 24
	minDurationHours = 0.25
)

func (d *DedupeService) Dedupe(activities []domain_models.Activity, cfg DedupeConfig) []domain_models.Activity {
	type group struct {
		representative domain_models.Activity
		normTitle      string
	}

	var groups []group
	for _, activity := range activities {
		norm := normalizeTitle(activity.Name)

		merged := false
		for i := range groups {
			if !d.sameProduct(norm, activity, groups[i].normTitle, groups[i].representative, cfg) {
				continue
			}
			if betterRepresentative(activity, groups[i].representative) {
				groups[i].representative = activity
				groups[i].normTitle = norm
			}
			merged = true
			break
		}
		if !merged {
			groups = append(groups, group{representative: activity, normTitle: norm})
		}
	}

	out := make([]domain_models.Activity, 0, len(groups))
	for _, g := range groups {
		if !durationSane(g.representative.DurationHours) {
			continue
		}
		out = append(out, g.representative)
	}
	return out
}

func (d *DedupeService) sameProduct(normA string, a domain_models.Activity, normB string, b domain_models.Activity, cfg DedupeConfig) bool {
	if normA == normB && normA != "" {
		return true
	}

	score := utils.CombinedTitleSimilarity(normA, normB, domainKeywords, utils.DefaultSimilarityWeights)
	if score <= cfg.MergeThreshold {
		return false
	}

	// Title similarity alone is not enough: two different venues with
	// generic names must not merge, so duration and location have to agree
	// as well.
	if diff := a.DurationHours - b.DurationHours; diff > cfg.DurationToleranceHours || diff < -cfg.DurationToleranceHours {
		return false
	}
	if !locationsCompatible(a.Location, b.Location, cfg.LocationThreshold) {
		return false
	}
	if cfg.RequireCategoryMatch && !strings.EqualFold(a.Category, b.Category) {
		return false
	}
	if cfg.RequireTimeSlotMatch && a.TimeSlot != b.TimeSlot {
		return false
	}
	return true
}

// betterRepresentative reports whether candidate should replace current.
// First satisfied criterion wins: any rating beats none, then higher
// rating, then more reviews, then lower price.
func betterRepresentative(candidate, current domain_models.Activity) bool {
	if (candidate.Rating > 0) != (current.Rating > 0) {
		return candidate.Rating > 0
	}
	if candidate.Rating != current.Rating {
		return candidate.Rating > current.Rating
	}
	if candidate.NumberOfReviews != current.NumberOfReviews {
		return candidate.NumberOfReviews > current.NumberOfReviews
	}
	return candidate.Price.Amount < current.Price.Amount
}

// durationSane drops multi-day products mistakenly returned as single
// activities and sub-15-minute stubs, keeping unknown (zero) durations.
func durationSane(hours float64) bool {
	if hours == 0 {
		return true
	}
	return hours >= minDurationHours && hours <= maxDurationHours
}

func normalizeTitle(title string) string {
	lower := strings.ToLower(title)
	lower = fillerPhraseRe.ReplaceAllString(lower, " ")
	lower = titlePunctRe.ReplaceAllString(lower, " ")

	var kept []string
	for _, word := range strings.Fields(lower) {
		if fillerTokens[word] {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

func locationsCompatible(a, b string, threshold float64) bool {
	normA := strings.ToLower(strings.TrimSpace(a))
	normB := strings.ToLower(strings.TrimSpace(b))
	if normA == normB {
		return true
	}
	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		return true
	}
	return utils.WordSetJaccard(normA, normB) >= threshold
}
