package domain_models

// CabinClass values mirror what the GDS reports.
type CabinClass string

const (
	CabinEconomy  CabinClass = "economy"
	CabinBusiness CabinClass = "business"
	CabinFirst    CabinClass = "first"
)

type FlightOffer struct {
	Carrier       string     `json:"carrier"`
	FlightNumber  string     `json:"flightNumber"`
	Origin        string     `json:"origin"`
	Destination   string     `json:"destination"`
	DepartureTime string     `json:"departureTime"`
	ArrivalTime   string     `json:"arrivalTime"`
	Cabin         CabinClass `json:"cabin"`
	Price         Price      `json:"price"`
	Tier          Tier       `json:"tier"`
}

// CostEstimate is the local-cost branch result: rough daily spend per tier
// for the destination, excluding flights.
type CostEstimate struct {
	Currency         string  `json:"currency"`
	DailyBudget      float64 `json:"dailyBudget"`
	DailyMedium      float64 `json:"dailyMedium"`
	DailyPremium     float64 `json:"dailyPremium"`
	EstimationSource string  `json:"estimationSource"`
}
