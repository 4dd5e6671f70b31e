package domain_models

// TravelerPreferences is the read-only profile the scorer matches
// activities against.
type TravelerPreferences struct {
	Interests           []string `json:"interests"`
	TravelStyle         string   `json:"travelStyle"`
	AccessibilityNeeds  []string `json:"accessibilityNeeds"`
	DietaryRestrictions []string `json:"dietaryRestrictions"`
}
