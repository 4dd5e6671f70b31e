package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"tripforge/internal/models/domain_models"
	"tripforge/internal/models/request_models"
	"tripforge/internal/models/response_models"
	mem "tripforge/pkg/memcache"
	"tripforge/pkg/utils"
)

type PlannerServiceInterface interface {
	CreatePlan(ctx context.Context, req request_models.PlanRequest) (response_models.PlanResponse, error)
	GenerateActivity(ctx context.Context, req request_models.GenerateActivityRequest) (domain_models.Activity, error)
}

// PlannerService runs the whole pipeline for a plan request. Three branches
// run concurrently: activity generation, flight search and local-cost
// estimation. Only the activity branch is load-bearing; the other two
// degrade to per-branch error fields in the response.
type PlannerService struct {
	llm         utils.LLMClientInterface
	sanitizer   SanitizerServiceInterface
	validator   ValidatorServiceInterface
	dedupe      DedupeServiceInterface
	scorer      ScorerServiceInterface
	tiers       TierServiceInterface
	allocator   AllocatorServiceInterface
	marketplace MarketplaceServiceInterface
	flights     FlightServiceInterface
	images      ImageServiceInterface
	cache       mem.PlanCacheStore
}

func NewPlannerService(
	llm utils.LLMClientInterface,
	sanitizer SanitizerServiceInterface,
	validator ValidatorServiceInterface,
	dedupe DedupeServiceInterface,
	scorer ScorerServiceInterface,
	tiers TierServiceInterface,
	allocator AllocatorServiceInterface,
	marketplace MarketplaceServiceInterface,
	flights FlightServiceInterface,
	images ImageServiceInterface,
	cache mem.PlanCacheStore,
) PlannerServiceInterface {
	return &PlannerService{
		llm:         llm,
		sanitizer:   sanitizer,
		validator:   validator,
		dedupe:      dedupe,
		scorer:      scorer,
		tiers:       tiers,
		allocator:   allocator,
		marketplace: marketplace,
		flights:     flights,
		images:      images,
		cache:       cache,
	}
}

const (
	planDeadline = 90 * time.Second
	planCacheTTL = 15 * time.Minute
)

func (s *PlannerService) CreatePlan(ctx context.Context, req request_models.PlanRequest) (response_models.PlanResponse, error) {
	if strings.TrimSpace(req.Destination) == "" || req.Days < 1 || req.Days > 30 {
		return response_models.PlanResponse{}, utils.ErrInvalidInput
	}

	var (
		wg sync.WaitGroup

		candidates    []domain_models.ScoredActivity
		candidatesErr error

		flightBranch *response_models.FlightBranch
		costBranch   response_models.CostBranch
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		candidates, candidatesErr = s.generateCandidates(ctx, req)
	}()

	if req.Flights != nil {
		flightBranch = &response_models.FlightBranch{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			offers, err := s.flights.Search(ctx, FlightSearchRequest{
				Origin:        req.Flights.Origin,
				Destination:   req.Destination,
				DepartureDate: req.Flights.DepartureDate,
				ReturnDate:    req.Flights.ReturnDate,
				Passengers:    req.Flights.Passengers,
			})
			if err != nil {
				log.Printf("planner: flight branch failed: %v", err)
				flightBranch.Error = err.Error()
				return
			}
			flightBranch.Offers = offers
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		estimate, err := s.estimateLocalCosts(ctx, req.Destination)
		if err != nil {
			log.Printf("planner: cost branch failed: %v", err)
			costBranch.Error = err.Error()
			return
		}
		costBranch.Estimate = estimate
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// The deadline bounds the caller's wait, not the remote calls: calls
	// already in flight run to completion and their results are discarded.
	waitCtx, cancel := context.WithTimeout(ctx, planDeadline)
	defer cancel()
	select {
	case <-done:
	case <-waitCtx.Done():
		return response_models.PlanResponse{}, fmt.Errorf("plan generation: %w", waitCtx.Err())
	}

	if candidatesErr != nil {
		return response_models.PlanResponse{}, candidatesErr
	}

	schedule := s.allocator.Allocate(ctx, AllocationRequest{
		Destination: req.Destination,
		Days:        req.Days,
		Preselected: req.PreselectedActivities,
		Candidates:  candidates,
	})

	pool := make([]domain_models.ScoredActivity, 0, len(req.PreselectedActivities)+len(candidates))
	pool = append(pool, req.PreselectedActivities...)
	pool = append(pool, candidates...)

	resp := response_models.PlanResponse{
		Destination:          req.Destination,
		Days:                 req.Days,
		Activities:           schedule.Activities(),
		Schedule:             schedule.Days,
		TripOverview:         schedule.TripOverview,
		ActivityFitNotes:     schedule.ActivityFitNotes,
		SuggestedItineraries: buildSuggestedItineraries(req.Days, pool),
		Flights:              flightBranch,
	}
	if costBranch.Estimate != nil || costBranch.Error != "" {
		resp.Costs = &costBranch
	}
	return resp, nil
}

func (s *PlannerService) GenerateActivity(ctx context.Context, req request_models.GenerateActivityRequest) (domain_models.Activity, error) {
	return s.allocator.GenerateSingleActivity(ctx, SingleActivityRequest{
		Destination: req.Destination,
		DayNumber:   req.DayNumber,
		TimeSlot:    domain_models.TimeSlot(req.TimeSlot),
		Tier:        domain_models.Tier(req.Tier),
		Category:    req.Category,
	})
}

// generateCandidates is the activity branch: LLM generation (cached),
// sanitize, backfill missing images, validate, dedupe, enrich, score,
// then drop anything that duplicates a user-pinned activity.
func (s *PlannerService) generateCandidates(ctx context.Context, req request_models.PlanRequest) ([]domain_models.ScoredActivity, error) {
	key := mem.CacheKey(
		req.Destination,
		strconv.Itoa(req.Days),
		strings.Join(req.Preferences.Interests, ","),
		req.Preferences.TravelStyle,
	)

	raw, cached := s.cache.Get(key)
	if !cached {
		var err error
		raw, err = s.llm.CompleteJSON(ctx, buildPlanPrompt(req))
		if err != nil {
			return nil, fmt.Errorf("%w: activity generation: %v", utils.ErrProviderUnavailable, err)
		}
		s.cache.Set(key, raw, planCacheTTL)
	}

	parsed, err := s.sanitizer.Sanitize(raw)
	if err != nil {
		return nil, err
	}

	withImages := s.images.Backfill(ctx, parsed.Activities)

	valid := s.validator.ValidateBatch(withImages)
	if len(valid) == 0 {
		return nil, utils.ErrNoValidActivities
	}

	deduped := s.dedupe.Dedupe(valid, DefaultDedupeConfig())
	enriched := s.marketplace.Enrich(ctx, deduped)

	scored := s.scorer.ScoreBatch(enriched, req.Preferences)
	return dropPinnedDuplicates(scored, req.PreselectedActivities), nil
}

// dropPinnedDuplicates removes candidates that are the same product as a
// pinned activity, under the strict cross-batch merge rules. The pins
// themselves are never touched.
func dropPinnedDuplicates(candidates []domain_models.ScoredActivity, pins []domain_models.ScoredActivity) []domain_models.ScoredActivity {
	if len(pins) == 0 {
		return candidates
	}

	d := &DedupeService{}
	cfg := CrossBatchDedupeConfig()

	out := make([]domain_models.ScoredActivity, 0, len(candidates))
	for _, c := range candidates {
		normC := normalizeTitle(c.Name)
		dup := false
		for _, pin := range pins {
			if d.sameProduct(normC, c.Activity, normalizeTitle(pin.Name), pin.Activity, cfg) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// buildSuggestedItineraries groups the scored pool into one itinerary per
// tier: per day and slot, the single best unused activity plus every
// activity eligible for that slot.
func buildSuggestedItineraries(days int, pool []domain_models.ScoredActivity) response_models.SuggestedItineraries {
	return response_models.SuggestedItineraries{
		Budget:  buildTierDays(days, filterTier(pool, domain_models.TierBudget)),
		Medium:  buildTierDays(days, filterTier(pool, domain_models.TierMedium)),
		Premium: buildTierDays(days, filterTier(pool, domain_models.TierPremium)),
	}
}

func filterTier(pool []domain_models.ScoredActivity, tier domain_models.Tier) []domain_models.ScoredActivity {
	out := make([]domain_models.ScoredActivity, 0, len(pool))
	for _, a := range pool {
		if a.Tier == tier {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PreferenceScore > out[j].PreferenceScore
	})
	return out
}

func buildTierDays(days int, tierPool []domain_models.ScoredActivity) []response_models.TierDay {
	used := make(map[string]bool)

	slotOptions := func(slot domain_models.TimeSlot) []domain_models.ScoredActivity {
		var opts []domain_models.ScoredActivity
		for _, a := range tierPool {
			if a.TimeSlot == slot || a.TimeSlot == "" {
				opts = append(opts, a)
			}
		}
		return opts
	}

	pickBest := func(opts []domain_models.ScoredActivity) *domain_models.ScoredActivity {
		for i := range opts {
			key := strings.ToLower(opts[i].Name)
			if used[key] {
				continue
			}
			used[key] = true
			chosen := opts[i]
			return &chosen
		}
		return nil
	}

	out := make([]response_models.TierDay, 0, days)
	for day := 1; day <= days; day++ {
		morningOpts := slotOptions(domain_models.SlotMorning)
		afternoonOpts := slotOptions(domain_models.SlotAfternoon)
		eveningOpts := slotOptions(domain_models.SlotEvening)

		out = append(out, response_models.TierDay{
			Day:              day,
			Morning:          pickBest(morningOpts),
			Afternoon:        pickBest(afternoonOpts),
			Evening:          pickBest(eveningOpts),
			MorningOptions:   morningOpts,
			AfternoonOptions: afternoonOpts,
			EveningOptions:   eveningOpts,
		})
	}
	return out
}

// estimateLocalCosts asks the LLM for rough daily spend per tier. The
// numbers are advisory and the branch fails soft.
func (s *PlannerService) estimateLocalCosts(ctx context.Context, destination string) (*domain_models.CostEstimate, error) {
	prompt := fmt.Sprintf(`Estimate typical daily travel costs in %s per person, excluding flights.
Return JSON only: {"currency":"USD","dailyBudget":0,"dailyMedium":0,"dailyPremium":0}
dailyBudget covers hostels and street food, dailyMedium mid-range hotels and restaurants, dailyPremium high-end.`,
		destination)

	raw, err := s.llm.CompleteJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("cost estimation: %w", err)
	}

	cleaned := raw
	for _, step := range repairSteps {
		cleaned = step.apply(cleaned)
	}

	var estimate domain_models.CostEstimate
	if err := json.Unmarshal([]byte(cleaned), &estimate); err != nil {
		return nil, fmt.Errorf("cost estimation parse: %w", err)
	}
	if estimate.DailyBudget <= 0 || estimate.DailyMedium < estimate.DailyBudget || estimate.DailyPremium < estimate.DailyMedium {
		return nil, fmt.Errorf("cost estimation returned implausible numbers")
	}
	estimate.EstimationSource = "llm"
	return &estimate, nil
}

func buildPlanPrompt(req request_models.PlanRequest) string {
	var prompt strings.Builder

	fmt.Fprintf(&prompt, "Suggest bookable activities for a %d-day trip to %s.\n", req.Days, req.Destination)
	fmt.Fprintf(&prompt, "Return %d to %d activities spread across all days and time slots.\n\n",
		req.Days*targetActivitiesPerDay, req.Days*targetActivitiesPerDay*2)

	if len(req.Preferences.Interests) > 0 {
		fmt.Fprintf(&prompt, "Traveler interests: %s.\n", strings.Join(req.Preferences.Interests, ", "))
	}
	if req.Preferences.TravelStyle != "" {
		fmt.Fprintf(&prompt, "Travel style: %s.\n", req.Preferences.TravelStyle)
	}
	if len(req.Preferences.AccessibilityNeeds) > 0 {
		fmt.Fprintf(&prompt, "Accessibility needs: %s.\n", strings.Join(req.Preferences.AccessibilityNeeds, ", "))
	}
	if len(req.Preferences.DietaryRestrictions) > 0 {
		fmt.Fprintf(&prompt, "Dietary restrictions: %s.\n", strings.Join(req.Preferences.DietaryRestrictions, ", "))
	}

	prompt.WriteString(`
Return JSON only, no markdown, in this exact shape:
{"activities":[{
  "name":"...","description":"...",
  "price":{"amount":0,"currency":"USD"},"duration":0,
  "category":"Cultural & Historical","location":"...",
  "timeSlot":"morning","dayNumber":1,
  "rating":0,"numberOfReviews":0,"tier":"budget",
  "bookingInfo":{"url":"https://...","method":"online"},
  "operatingHours":{"weekday":"09:00-18:00","weekend":"10:00-17:00"},
  "contact":{"phone":"...","email":"..."},
  "images":{"main":"https://...","gallery":["https://..."]},
  "details":{"highlights":["...","...","...","...","..."]}
}]}
category is one of: Cultural & Historical, Nature & Adventure, Food & Entertainment, Lifestyle & Local.
duration is in hours. tier is budget, medium or premium and must match the price.
Every activity needs at least 5 highlights and a real booking URL.`)

	return prompt.String()
}
