package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripforge/internal/models/domain_models"
	"tripforge/internal/models/request_models"
	mem "tripforge/pkg/memcache"
	"tripforge/pkg/utils"
)

type passThroughMarketplace struct{}

func (passThroughMarketplace) Enrich(ctx context.Context, activities []domain_models.Activity) []domain_models.Activity {
	return activities
}

type passThroughImages struct{}

func (passThroughImages) Backfill(ctx context.Context, raws []domain_models.RawActivity) []domain_models.RawActivity {
	return raws
}

type stubFlights struct {
	offers []domain_models.FlightOffer
	err    error
}

func (s *stubFlights) Search(ctx context.Context, req FlightSearchRequest) ([]domain_models.FlightOffer, error) {
	return s.offers, s.err
}

func newTestPlanner(llm utils.LLMClientInterface, flights FlightServiceInterface) PlannerServiceInterface {
	return newTestPlannerWithImages(llm, flights, passThroughImages{})
}

func newTestPlannerWithImages(llm utils.LLMClientInterface, flights FlightServiceInterface, images ImageServiceInterface) PlannerServiceInterface {
	tiers := NewTierService()
	sanitizer := NewSanitizerService()
	return NewPlannerService(
		llm,
		sanitizer,
		NewValidatorService(tiers),
		NewDedupeService(),
		NewScorerService(tiers),
		tiers,
		NewAllocatorService(llm, sanitizer, tiers),
		passThroughMarketplace{},
		flights,
		images,
		mem.NewPlanCache(),
	)
}

const generatedActivitiesJSON = `{"activities": [
	{"name": "Colosseum Visit", "description": "Ancient arena tour", "price": {"amount": 25, "currency": "EUR"},
	 "duration": 2, "category": "Cultural & Historical", "location": "Rome, Italy",
	 "timeSlot": "morning", "dayNumber": 1, "rating": 4.7, "numberOfReviews": 900, "tier": "budget",
	 "bookingInfo": {"url": "https://example.com/colosseum", "method": "online"},
	 "operatingHours": {"weekday": "09:00-18:00", "weekend": "09:00-18:00"},
	 "contact": {"email": "info@example.com"},
	 "images": {"main": "https://example.com/c.jpg", "gallery": ["https://example.com/c2.jpg"]},
	 "details": {"highlights": ["a", "b", "c", "d", "e"]}},
	{"name": "Vatican Museums", "description": "Art and history", "price": {"amount": 40, "currency": "EUR"},
	 "duration": 3, "category": "Cultural & Historical", "location": "Rome, Italy",
	 "timeSlot": "afternoon", "dayNumber": 1, "rating": 4.8, "numberOfReviews": 1200, "tier": "medium",
	 "bookingInfo": {"url": "https://example.com/vatican", "method": "online"},
	 "operatingHours": {"weekday": "08:00-18:00", "weekend": "08:00-14:00"},
	 "contact": {"email": "info@example.com"},
	 "images": {"main": "https://example.com/v.jpg", "gallery": ["https://example.com/v2.jpg"]},
	 "details": {"highlights": ["a", "b", "c", "d", "e"]}},
	{"name": "Trastevere Food Walk", "description": "Street food evening", "price": {"amount": 60, "currency": "EUR"},
	 "duration": 2.5, "category": "Food & Entertainment", "location": "Rome, Italy",
	 "timeSlot": "evening", "dayNumber": 1, "rating": 4.6, "numberOfReviews": 400, "tier": "medium",
	 "bookingInfo": {"url": "https://example.com/food", "method": "online"},
	 "operatingHours": {"weekday": "17:00-22:00", "weekend": "17:00-23:00"},
	 "contact": {"phone": "+39 06 000 000"},
	 "images": {"main": "https://example.com/f.jpg", "gallery": ["https://example.com/f2.jpg"]},
	 "details": {"highlights": ["a", "b", "c", "d", "e"]}},
	{"name": "Opera Night", "description": "Open-air opera", "price": {"amount": 150, "currency": "EUR"},
	 "duration": 3, "category": "Food & Entertainment", "location": "Rome, Italy",
	 "timeSlot": "evening", "dayNumber": 2, "rating": 4.9, "numberOfReviews": 250, "tier": "premium",
	 "bookingInfo": {"url": "https://example.com/opera", "method": "online"},
	 "operatingHours": {"weekday": "19:00-23:00", "weekend": "19:00-23:00"},
	 "contact": {"email": "opera@example.com"},
	 "images": {"main": "https://example.com/o.jpg", "gallery": ["https://example.com/o2.jpg"]},
	 "details": {"highlights": ["a", "b", "c", "d", "e"]}}
]}`

func TestCreatePlanReturnsCompleteSchedule(t *testing.T) {
	planner := newTestPlanner(&stubLLM{response: generatedActivitiesJSON}, &stubFlights{})

	resp, err := planner.CreatePlan(context.Background(), request_models.PlanRequest{
		Destination: "Rome",
		Days:        2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Rome", resp.Destination)
	require.Len(t, resp.Schedule, 2)
	assert.NotEmpty(t, resp.Activities)
	assert.NotEmpty(t, resp.TripOverview)
	assert.Nil(t, resp.Flights, "no flight section requested")

	assert.NotEmpty(t, resp.SuggestedItineraries.Medium)
	require.Len(t, resp.SuggestedItineraries.Medium, 2)
}

func TestCreatePlanFlightFailureDoesNotFailThePlan(t *testing.T) {
	planner := newTestPlanner(
		&stubLLM{response: generatedActivitiesJSON},
		&stubFlights{err: errors.New("gds outage")},
	)

	resp, err := planner.CreatePlan(context.Background(), request_models.PlanRequest{
		Destination: "Rome",
		Days:        2,
		Flights: &request_models.FlightSearchRequest{
			Origin:        "MAD",
			DepartureDate: "2026-10-01",
		},
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Flights)
	assert.Contains(t, resp.Flights.Error, "gds outage")
	assert.Empty(t, resp.Flights.Offers)
	assert.NotEmpty(t, resp.Activities, "activity branch unaffected")
}

func TestCreatePlanFailsWhenNothingParses(t *testing.T) {
	planner := newTestPlanner(&stubLLM{response: "sorry, I cannot help with that"}, &stubFlights{})

	_, err := planner.CreatePlan(context.Background(), request_models.PlanRequest{
		Destination: "Rome",
		Days:        2,
	})
	assert.ErrorIs(t, err, utils.ErrParse)
}

func TestCreatePlanFailsWhenNoActivitySurvivesValidation(t *testing.T) {
	// Parseable, but every activity is missing its booking block.
	response := `{"activities": [
		{"name": "A", "description": "d", "price": {"amount": 25, "currency": "EUR"}, "location": "Rome", "dayNumber": 1},
		{"name": "B", "description": "d", "price": {"amount": 40, "currency": "EUR"}, "location": "Rome", "dayNumber": 2}
	]}`
	planner := newTestPlanner(&stubLLM{response: response}, &stubFlights{})

	_, err := planner.CreatePlan(context.Background(), request_models.PlanRequest{
		Destination: "Rome",
		Days:        2,
	})
	assert.ErrorIs(t, err, utils.ErrNoValidActivities)
}

func TestCreatePlanRejectsBadInput(t *testing.T) {
	planner := newTestPlanner(&stubLLM{}, &stubFlights{})

	_, err := planner.CreatePlan(context.Background(), request_models.PlanRequest{Destination: "", Days: 3})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	_, err = planner.CreatePlan(context.Background(), request_models.PlanRequest{Destination: "Rome", Days: 0})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestCreatePlanDropsCandidatesDuplicatingPins(t *testing.T) {
	planner := newTestPlanner(&stubLLM{response: generatedActivitiesJSON}, &stubFlights{})

	pin := pinnedActivity("Colosseum Visit", 1, domain_models.SlotMorning)
	resp, err := planner.CreatePlan(context.Background(), request_models.PlanRequest{
		Destination:           "Rome",
		Days:                  2,
		PreselectedActivities: []domain_models.ScoredActivity{pin},
	})
	require.NoError(t, err)

	count := 0
	for _, a := range resp.Activities {
		if a.Name == "Colosseum Visit" {
			count++
			assert.Equal(t, 1, a.DayNumber)
			assert.Equal(t, domain_models.SlotMorning, a.TimeSlot)
		}
	}
	assert.Equal(t, 1, count, "pin and generated copy must collapse to one")
}

func TestCreatePlanCachesGeneration(t *testing.T) {
	llm := &stubLLM{response: generatedActivitiesJSON}
	planner := newTestPlanner(llm, &stubFlights{})

	req := request_models.PlanRequest{Destination: "Rome", Days: 2}

	_, err := planner.CreatePlan(context.Background(), req)
	require.NoError(t, err)
	firstRun := atomic.LoadInt64(&llm.calls)

	_, err = planner.CreatePlan(context.Background(), req)
	require.NoError(t, err)
	secondRun := atomic.LoadInt64(&llm.calls) - firstRun

	assert.Equal(t, firstRun-1, secondRun, "generation call must come from the cache on the second run")
}

func TestCreatePlanBackfillsMissingImagesBeforeValidation(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [
			{"url": "https://images.example.com/a.jpg"},
			{"url": "https://images.example.com/b.jpg"},
			{"url": "https://images.example.com/c.jpg"}
		]}`))
	}))
	defer server.Close()

	// Complete except for images; only the backfill can save it from the
	// validator.
	const payload = `{"activities": [
		{"name": "Palatine Hill Walk", "description": "Ruins above the Forum", "price": {"amount": 20, "currency": "EUR"},
		 "duration": 2, "category": "Cultural & Historical", "location": "Rome, Italy",
		 "timeSlot": "morning", "dayNumber": 1, "rating": 4.5, "numberOfReviews": 400, "tier": "budget",
		 "bookingInfo": {"url": "https://example.com/palatine", "method": "online"},
		 "operatingHours": {"weekday": "09:00-18:00", "weekend": "09:00-18:00"},
		 "contact": {"email": "info@example.com"},
		 "details": {"highlights": ["h1", "h2", "h3", "h4", "h5"]}}
	]}`

	planner := newTestPlannerWithImages(
		&stubLLM{response: payload},
		&stubFlights{},
		NewImageService(server.URL, "test-key"),
	)

	resp, err := planner.CreatePlan(context.Background(), request_models.PlanRequest{Destination: "Rome", Days: 1})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, atomic.LoadInt64(&hits), int64(1), "image provider must be queried for the imageless activity")

	found := false
	for _, a := range resp.Activities {
		if a.Name == "Palatine Hill Walk" {
			found = true
			assert.Equal(t, "https://images.example.com/a.jpg", a.Images.Main)
			assert.NotEmpty(t, a.Images.Gallery)
		}
	}
	assert.True(t, found, "imageless activity must survive validation once backfilled")
}
