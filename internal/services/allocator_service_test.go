package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripforge/internal/models/domain_models"
	"tripforge/pkg/utils"
)

type stubLLM struct {
	response string
	err      error
	calls    int64
}

func (s *stubLLM) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt64(&s.calls, 1)
	return s.response, s.err
}

func (s *stubLLM) Close() error { return nil }

func scoredActivity(name string, score int) domain_models.ScoredActivity {
	return domain_models.ScoredActivity{
		Activity: domain_models.Activity{
			Name:          name,
			Location:      "Rome, Italy",
			DurationHours: 2,
			Price:         domain_models.Price{Amount: 40, Currency: "EUR"},
			Rating:        4.0,
			Tier:          domain_models.TierMedium,
		},
		PreferenceScore: score,
	}
}

func pinnedActivity(name string, day int, slot domain_models.TimeSlot) domain_models.ScoredActivity {
	a := scoredActivity(name, 10)
	a.DayNumber = day
	a.TimeSlot = slot
	a.Selected = true
	return a
}

func newTestAllocator(llm utils.LLMClientInterface) AllocatorServiceInterface {
	return NewAllocatorService(llm, NewSanitizerService(), NewTierService())
}

func candidatePool() []domain_models.ScoredActivity {
	return []domain_models.ScoredActivity{
		scoredActivity("Colosseum Visit", 6),
		scoredActivity("Trastevere Food Walk", 5),
		scoredActivity("Vatican Museums", 4),
		scoredActivity("Borghese Gallery", 3),
		scoredActivity("Trevi Fountain Stroll", 2),
		scoredActivity("Aventine Hill Sunset", 1),
		scoredActivity("Ostia Antica Trip", 1),
		scoredActivity("Testaccio Market", 0),
	}
}

func TestAllocateFallbackPlacesPinsAndFillsByScore(t *testing.T) {
	alloc := newTestAllocator(&stubLLM{err: errors.New("llm down")})

	pin := pinnedActivity("Opera at Caracalla", 2, domain_models.SlotEvening)
	schedule := alloc.Allocate(context.Background(), AllocationRequest{
		Destination: "Rome",
		Days:        3,
		Preselected: []domain_models.ScoredActivity{pin},
		Candidates:  candidatePool(),
	})

	require.Len(t, schedule.Days, 3)
	assert.True(t, schedule.FindActivity(2, domain_models.SlotEvening, "Opera at Caracalla"))

	// Day 1 gets the three highest-scoring candidates in slot order.
	day1 := schedule.Days[0]
	require.Len(t, day1.Activities, 3)
	assert.Equal(t, "Colosseum Visit", day1.Activities[0].Name)
	assert.Equal(t, domain_models.SlotMorning, day1.Activities[0].TimeSlot)
	assert.Equal(t, "09:00", day1.Activities[0].StartTime)
	assert.Equal(t, "Trastevere Food Walk", day1.Activities[1].Name)
	assert.Equal(t, "14:00", day1.Activities[1].StartTime)
	assert.Equal(t, "Vatican Museums", day1.Activities[2].Name)
	assert.Equal(t, "19:00", day1.Activities[2].StartTime)

	// No activity appears on two days.
	seen := map[string]int{}
	for _, a := range schedule.Activities() {
		seen[a.Name]++
	}
	for name, count := range seen {
		assert.Equal(t, 1, count, "activity %s reused", name)
	}
}

func TestAllocateFallsBackWhenOptimizerDropsPin(t *testing.T) {
	// An otherwise plausible optimizer answer that omits the pinned
	// activity entirely.
	optimized := `{"tripOverview":"ok","activityFitNotes":"ok","days":[
		{"day":1,"activities":[{"name":"Colosseum Visit","timeSlot":"morning"}]},
		{"day":2,"activities":[{"name":"Vatican Museums","timeSlot":"morning"}]},
		{"day":3,"activities":[{"name":"Borghese Gallery","timeSlot":"morning"}]}]}`

	pin := pinnedActivity("Opera at Caracalla", 2, domain_models.SlotEvening)
	req := AllocationRequest{
		Destination: "Rome",
		Days:        3,
		Preselected: []domain_models.ScoredActivity{pin},
		Candidates:  candidatePool(),
	}

	fromBadOptimizer := newTestAllocator(&stubLLM{response: optimized}).Allocate(context.Background(), req)
	fromFailedOptimizer := newTestAllocator(&stubLLM{err: errors.New("timeout")}).Allocate(context.Background(), req)

	assert.Equal(t, fromFailedOptimizer, fromBadOptimizer, "dropped pin must produce the deterministic fallback")
	assert.True(t, fromBadOptimizer.FindActivity(2, domain_models.SlotEvening, "Opera at Caracalla"))
}

func TestAllocateKeepsVerifiedOptimizerSchedule(t *testing.T) {
	optimized := `{"tripOverview":"A curated Rome weekend","activityFitNotes":"Grouped by area","days":[
		{"day":1,"activities":[
			{"name":"Colosseum Visit","timeSlot":"morning"},
			{"name":"Opera at Caracalla","timeSlot":"evening"}]},
		{"day":2,"activities":[{"name":"Vatican Museums","timeSlot":"morning"}]}]}`

	pin := pinnedActivity("Opera at Caracalla", 1, domain_models.SlotEvening)
	schedule := newTestAllocator(&stubLLM{response: optimized}).Allocate(context.Background(), AllocationRequest{
		Destination: "Rome",
		Days:        2,
		Preselected: []domain_models.ScoredActivity{pin},
		Candidates:  candidatePool(),
	})

	assert.Equal(t, "A curated Rome weekend", schedule.TripOverview)
	assert.True(t, schedule.FindActivity(1, domain_models.SlotEvening, "Opera at Caracalla"))
	assert.True(t, schedule.FindActivity(2, domain_models.SlotMorning, "Vatican Museums"))
}

func TestAllocateIgnoresInventedOptimizerNames(t *testing.T) {
	optimized := `{"tripOverview":"x","activityFitNotes":"x","days":[
		{"day":1,"activities":[
			{"name":"Made Up Palace","timeSlot":"morning"},
			{"name":"Colosseum Visit","timeSlot":"afternoon"}]}]}`

	schedule := newTestAllocator(&stubLLM{response: optimized}).Allocate(context.Background(), AllocationRequest{
		Destination: "Rome",
		Days:        1,
		Candidates:  candidatePool(),
	})

	for _, a := range schedule.Activities() {
		assert.NotEqual(t, "Made Up Palace", a.Name)
	}
	assert.True(t, schedule.FindActivity(1, domain_models.SlotAfternoon, "Colosseum Visit"))
}

func TestGenerateSingleActivity(t *testing.T) {
	response := `{"name":"Rooftop Aperitivo","description":"Drinks above the old town",
		"price":{"amount":25,"currency":"EUR"},"duration":1.5,
		"location":"Rome, Italy","rating":4.4,"numberOfReviews":90}`

	alloc := newTestAllocator(&stubLLM{response: response})
	activity, err := alloc.GenerateSingleActivity(context.Background(), SingleActivityRequest{
		Destination: "Rome",
		DayNumber:   2,
		TimeSlot:    domain_models.SlotEvening,
		Tier:        domain_models.TierBudget,
		Category:    "Food & Entertainment",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rooftop Aperitivo", activity.Name)
	assert.Equal(t, 2, activity.DayNumber)
	assert.Equal(t, domain_models.SlotEvening, activity.TimeSlot)
	assert.Equal(t, domain_models.TierBudget, activity.Tier)
}

func TestGenerateSingleActivityHardFailsOnBadNumerics(t *testing.T) {
	cases := map[string]string{
		"missing price": `{"name":"X","description":"d","location":"Rome","duration":1.5,"rating":4.0}`,
		"bad duration":  `{"name":"X","description":"d","location":"Rome","price":{"amount":25,"currency":"EUR"},"duration":-2,"rating":4.0}`,
		"bad rating":    `{"name":"X","description":"d","location":"Rome","price":{"amount":25,"currency":"EUR"},"duration":2,"rating":9}`,
		"wrong tier":    `{"name":"X","description":"d","location":"Rome","price":{"amount":500,"currency":"EUR"},"duration":2,"rating":4.0}`,
	}

	for label, response := range cases {
		alloc := newTestAllocator(&stubLLM{response: response})
		_, err := alloc.GenerateSingleActivity(context.Background(), SingleActivityRequest{
			Destination: "Rome",
			DayNumber:   1,
			TimeSlot:    domain_models.SlotMorning,
			Tier:        domain_models.TierBudget,
			Category:    "Food & Entertainment",
		})
		assert.ErrorIs(t, err, utils.ErrUnexpectedBehaviorOfAI, label)
	}
}

func TestGenerateSingleActivityRejectsInvalidRequest(t *testing.T) {
	alloc := newTestAllocator(&stubLLM{})

	_, err := alloc.GenerateSingleActivity(context.Background(), SingleActivityRequest{
		Destination: "Rome",
		TimeSlot:    "midnight",
		Tier:        domain_models.TierBudget,
	})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}
