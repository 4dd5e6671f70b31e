package request_models

import (
	"tripforge/internal/models/domain_models"
)

// PlanRequest is the POST /plans body. PreselectedActivities come from a
// previous plan response with the user's day/slot choice attached, so they
// arrive fully shaped rather than as raw text.
type PlanRequest struct {
	Destination string                           `json:"destination" binding:"required"`
	Days        int                              `json:"days" binding:"required,min=1,max=30"`
	Preferences domain_models.TravelerPreferences `json:"preferences"`

	PreselectedActivities []domain_models.ScoredActivity `json:"preselectedActivities"`

	Flights *FlightSearchRequest `json:"flights,omitempty"`
}

// FlightSearchRequest is the optional flight branch of a plan request.
// Dates are "2006-01-02".
type FlightSearchRequest struct {
	Origin        string `json:"origin" binding:"required"`
	DepartureDate string `json:"departureDate" binding:"required"`
	ReturnDate    string `json:"returnDate"`
	Passengers    int    `json:"passengers"`
}

// GenerateActivityRequest is the POST /plans/activity body: exactly one
// activity for one slot of one day.
type GenerateActivityRequest struct {
	Destination string `json:"destination" binding:"required"`
	DayNumber   int    `json:"dayNumber" binding:"required,min=1"`
	TimeSlot    string `json:"timeSlot" binding:"required"`
	Tier        string `json:"tier" binding:"required"`
	Category    string `json:"category" binding:"required"`
}
