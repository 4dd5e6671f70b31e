package domain_models

// TimeSlot is one of the three fixed day partitions used as the grid unit
// for allocation.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
)

// AllTimeSlots lists the slots in fill-priority order.
var AllTimeSlots = []TimeSlot{SlotMorning, SlotAfternoon, SlotEvening}

// SlotStartTimes are the canonical start times attached by the fallback
// allocator.
var SlotStartTimes = map[TimeSlot]string{
	SlotMorning:   "09:00",
	SlotAfternoon: "14:00",
	SlotEvening:   "19:00",
}

func IsValidTimeSlot(s string) bool {
	switch TimeSlot(s) {
	case SlotMorning, SlotAfternoon, SlotEvening:
		return true
	}
	return false
}

// Tier is a coarse price bucket used for both filtering and user-facing
// grouping.
type Tier string

const (
	TierBudget  Tier = "budget"
	TierMedium  Tier = "medium"
	TierPremium Tier = "premium"
)

var AllTiers = []Tier{TierBudget, TierMedium, TierPremium}

func IsValidTier(s string) bool {
	switch Tier(s) {
	case TierBudget, TierMedium, TierPremium:
		return true
	}
	return false
}

type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type BookingInfo struct {
	URL                string   `json:"url"`
	Method             string   `json:"method"`
	CancellationPolicy string   `json:"cancellationPolicy,omitempty"`
	Languages          []string `json:"languages,omitempty"`
	ProductCode        string   `json:"productCode,omitempty"`
}

type OperatingHours struct {
	Weekday string `json:"weekday"`
	Weekend string `json:"weekend"`
}

type Contact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type Images struct {
	Main    string   `json:"main"`
	Gallery []string `json:"gallery"`
}

type ActivityDetails struct {
	Highlights []string `json:"highlights"`
}

// RawActivity is an activity exactly as decoded from sanitized LLM output.
// Nothing about it is trusted yet; the validator is the only component
// allowed to turn it into an Activity.
type RawActivity struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Price           Price            `json:"price"`
	Duration        float64          `json:"duration"`
	Category        string           `json:"category"`
	Location        string           `json:"location"`
	TimeSlot        string           `json:"timeSlot"`
	DayNumber       int              `json:"dayNumber"`
	Rating          float64          `json:"rating"`
	NumberOfReviews int              `json:"numberOfReviews"`
	Tier            string           `json:"tier"`
	Selected        bool             `json:"selected"`
	Booking         *BookingInfo     `json:"bookingInfo"`
	OperatingHours  *OperatingHours  `json:"operatingHours"`
	Contact         *Contact         `json:"contact"`
	Images          *Images          `json:"images"`
	Details         *ActivityDetails `json:"details"`
}

// Activity is a validated activity. DurationHours is normalized: sources
// report duration either in hours or in minutes, and everything past the
// validator works in hours.
type Activity struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Price           Price            `json:"price"`
	DurationHours   float64          `json:"duration"`
	Category        string           `json:"category"`
	Location        string           `json:"location"`
	TimeSlot        TimeSlot         `json:"timeSlot"`
	DayNumber       int              `json:"dayNumber"`
	Rating          float64          `json:"rating"`
	NumberOfReviews int              `json:"numberOfReviews"`
	Tier            Tier             `json:"tier"`
	Selected        bool             `json:"selected"`
	Booking         BookingInfo      `json:"bookingInfo"`
	OperatingHours  OperatingHours   `json:"operatingHours"`
	Contact         Contact          `json:"contact"`
	Images          Images           `json:"images"`
	Details         *ActivityDetails `json:"details,omitempty"`

	IsVerified         bool   `json:"isVerified"`
	VerificationStatus string `json:"verificationStatus"`
}

// ScoredActivity is an Activity after the preference scorer has run. The
// score fields are never present on raw input.
type ScoredActivity struct {
	Activity

	PreferenceScore    int      `json:"preferenceScore"`
	MatchedPreferences []string `json:"matchedPreferences"`
	ScoringReason      string   `json:"scoringReason"`
}

// NormalizeDurationHours folds the two duration units the sources use into
// hours. The feeds carry no unit field, so magnitude is the only
// discriminator: any value above 24 is read as minutes. An
// hour-denominated multi-day figure (say 30) therefore collapses to half
// an hour instead of being dropped as oversized; slot allocation never
// schedules multi-day products, so the misread stays harmless.
func NormalizeDurationHours(d float64) float64 {
	if d > 24 {
		return d / 60
	}
	return d
}
