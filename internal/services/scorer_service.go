package services

import (
	"fmt"
	"strings"

	"tripforge/internal/models/domain_models"
)

// ScoreResult is the scorer's full verdict for one activity. A zero score
// with an empty reason is a valid outcome, not an error.
type ScoreResult struct {
	Score   int
	Matched []string
	Reason  string
}

type ScorerServiceInterface interface {
	// Score is pure and deterministic: same activity and preferences,
	// same result, no side effects.
	Score(activity domain_models.Activity, prefs domain_models.TravelerPreferences) ScoreResult

	// ScoreBatch attaches scores to a validated batch.
	ScoreBatch(activities []domain_models.Activity, prefs domain_models.TravelerPreferences) []domain_models.ScoredActivity
}

type ScorerService struct {
	tiers TierServiceInterface
}

func NewScorerService(tiers TierServiceInterface) ScorerServiceInterface {
	return &ScorerService{tiers: tiers}
}

const (
	wellReviewedMin  = 50
	highRatingMin    = 4.5
	decentRatingMin  = 4.0
	wellReviewedPts  = 1
	highRatingPts    = 2
	decentRatingPts  = 1
	interestPts      = 1
	styleMatchPts    = 1
	accessibilityPts = 1
	dietaryPts       = 1
)

func (s *ScorerService) Score(activity domain_models.Activity, prefs domain_models.TravelerPreferences) ScoreResult {
	var result ScoreResult
	var reasons []string

	if activity.NumberOfReviews > wellReviewedMin {
		result.Score += wellReviewedPts
		reasons = append(reasons, fmt.Sprintf("well-reviewed (%d reviews)", activity.NumberOfReviews))
	}

	switch {
	case activity.Rating >= highRatingMin:
		result.Score += highRatingPts
		reasons = append(reasons, fmt.Sprintf("highly rated (%.1f)", activity.Rating))
	case activity.Rating >= decentRatingMin:
		result.Score += decentRatingPts
		reasons = append(reasons, fmt.Sprintf("well rated (%.1f)", activity.Rating))
	}

	haystack := strings.ToLower(activity.Description + " " + activity.Category)
	for _, interest := range prefs.Interests {
		needle := strings.ToLower(strings.TrimSpace(interest))
		if needle == "" || !strings.Contains(haystack, needle) {
			continue
		}
		result.Score += interestPts
		result.Matched = append(result.Matched, interest)
		reasons = append(reasons, fmt.Sprintf("matches interest %q", interest))
	}

	if style := strings.ToLower(strings.TrimSpace(prefs.TravelStyle)); style != "" {
		if s.tiers.Classify(activity.Price.Amount) == domain_models.Tier(style) {
			result.Score += styleMatchPts
			reasons = append(reasons, fmt.Sprintf("fits %s travel style", style))
		}
	}

	desc := strings.ToLower(activity.Description)
	for _, need := range prefs.AccessibilityNeeds {
		needle := strings.ToLower(strings.TrimSpace(need))
		if needle == "" || !strings.Contains(desc, needle) {
			continue
		}
		result.Score += accessibilityPts
		result.Matched = append(result.Matched, need)
		reasons = append(reasons, fmt.Sprintf("supports %s", need))
	}

	for _, diet := range prefs.DietaryRestrictions {
		needle := strings.ToLower(strings.TrimSpace(diet))
		if needle == "" || !strings.Contains(desc, needle) {
			continue
		}
		result.Score += dietaryPts
		result.Matched = append(result.Matched, diet)
		reasons = append(reasons, fmt.Sprintf("caters to %s", diet))
	}

	result.Reason = strings.Join(reasons, "; ")
	return result
}

func (s *ScorerService) ScoreBatch(activities []domain_models.Activity, prefs domain_models.TravelerPreferences) []domain_models.ScoredActivity {
	out := make([]domain_models.ScoredActivity, 0, len(activities))
	for _, activity := range activities {
		verdict := s.Score(activity, prefs)
		out = append(out, domain_models.ScoredActivity{
			Activity:           activity,
			PreferenceScore:    verdict.Score,
			MatchedPreferences: verdict.Matched,
			ScoringReason:      verdict.Reason,
		})
	}
	return out
}
