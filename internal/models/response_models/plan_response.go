package response_models

import (
	"tripforge/internal/models/domain_models"
)

// TierDay is one day of a tier-filtered itinerary suggestion: the single
// best activity per slot plus every candidate that could fill that slot.
type TierDay struct {
	Day int `json:"day"`

	Morning   *domain_models.ScoredActivity `json:"morning,omitempty"`
	Afternoon *domain_models.ScoredActivity `json:"afternoon,omitempty"`
	Evening   *domain_models.ScoredActivity `json:"evening,omitempty"`

	MorningOptions   []domain_models.ScoredActivity `json:"morningOptions,omitempty"`
	AfternoonOptions []domain_models.ScoredActivity `json:"afternoonOptions,omitempty"`
	EveningOptions   []domain_models.ScoredActivity `json:"eveningOptions,omitempty"`
}

// SuggestedItineraries groups the candidate pool into one itinerary per
// price tier so the client can offer a budget/medium/premium toggle.
type SuggestedItineraries struct {
	Budget  []TierDay `json:"budget"`
	Medium  []TierDay `json:"medium"`
	Premium []TierDay `json:"premium"`
}

// FlightBranch carries the flight-search branch result. A branch error is
// partial-result data, not a request failure.
type FlightBranch struct {
	Offers []domain_models.FlightOffer `json:"offers,omitempty"`
	Error  string                      `json:"error,omitempty"`
}

// CostBranch carries the local-cost estimation branch result.
type CostBranch struct {
	Estimate *domain_models.CostEstimate `json:"estimate,omitempty"`
	Error    string                      `json:"error,omitempty"`
}

type PlanResponse struct {
	Destination string `json:"destination"`
	Days        int    `json:"days"`

	Activities           []domain_models.ScheduledActivity `json:"activities"`
	Schedule             []domain_models.ScheduleDay       `json:"schedule"`
	TripOverview         string                            `json:"tripOverview"`
	ActivityFitNotes     string                            `json:"activityFitNotes"`
	SuggestedItineraries SuggestedItineraries              `json:"suggestedItineraries"`

	Flights *FlightBranch `json:"flights,omitempty"`
	Costs   *CostBranch   `json:"costs,omitempty"`
}

type GenerateActivityResponse struct {
	Activity domain_models.Activity `json:"activity"`
}
