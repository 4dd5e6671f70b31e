package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"tripforge/internal/models/domain_models"
	"tripforge/pkg/utils"
)

// AllocationRequest is the allocator's input. Preselected activities carry
// immutable dayNumber/timeSlot pins; candidates are already validated,
// deduplicated and scored.
type AllocationRequest struct {
	Destination string
	Days        int
	Preselected []domain_models.ScoredActivity
	Candidates  []domain_models.ScoredActivity
}

// SingleActivityRequest asks for exactly one activity for one slot.
type SingleActivityRequest struct {
	Destination string
	DayNumber   int
	TimeSlot    domain_models.TimeSlot
	Tier        domain_models.Tier
	Category    string
}

type AllocatorServiceInterface interface {
	// Allocate is total for any non-empty candidate pool: it always
	// returns a complete schedule, falling back to the deterministic local
	// algorithm when LLM optimization fails or drops a pinned activity.
	Allocate(ctx context.Context, req AllocationRequest) domain_models.Schedule

	GenerateSingleActivity(ctx context.Context, req SingleActivityRequest) (domain_models.Activity, error)
}

type AllocatorService struct {
	llm       utils.LLMClientInterface
	sanitizer SanitizerServiceInterface
	tiers     TierServiceInterface
}

func NewAllocatorService(
	llm utils.LLMClientInterface,
	sanitizer SanitizerServiceInterface,
	tiers TierServiceInterface,
) AllocatorServiceInterface {
	return &AllocatorService{
		llm:       llm,
		sanitizer: sanitizer,
		tiers:     tiers,
	}
}

const targetActivitiesPerDay = 3

func (a *AllocatorService) Allocate(ctx context.Context, req AllocationRequest) domain_models.Schedule {
	if req.Days < 1 {
		req.Days = 1
	}

	schedule, err := a.optimize(ctx, req)
	if err != nil {
		log.Printf("allocator: optimization failed, using fallback: %v", err)
		return a.fallbackSchedule(req)
	}

	// Verify state: every pinned (day, slot, name) triple must appear
	// unchanged, otherwise the optimizer's output is discarded wholesale.
	for _, pin := range req.Preselected {
		if !schedule.FindActivity(pin.DayNumber, pin.TimeSlot, pin.Name) {
			log.Printf("allocator: optimizer dropped pinned activity %q (day %d %s), using fallback",
				pin.Name, pin.DayNumber, pin.TimeSlot)
			return a.fallbackSchedule(req)
		}
	}

	return schedule
}

// optimizerSchedule is the wire shape the optimize prompt requests.
type optimizerSchedule struct {
	TripOverview     string `json:"tripOverview"`
	ActivityFitNotes string `json:"activityFitNotes"`
	Days             []struct {
		Day        int `json:"day"`
		Activities []struct {
			Name     string `json:"name"`
			TimeSlot string `json:"timeSlot"`
		} `json:"activities"`
	} `json:"days"`
}

func (a *AllocatorService) optimize(ctx context.Context, req AllocationRequest) (domain_models.Schedule, error) {
	raw, err := a.llm.CompleteJSON(ctx, buildOptimizePrompt(req))
	if err != nil {
		return domain_models.Schedule{}, fmt.Errorf("optimize call: %w", err)
	}

	cleaned := raw
	for _, step := range repairSteps {
		cleaned = step.apply(cleaned)
	}

	var parsed optimizerSchedule
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return domain_models.Schedule{}, fmt.Errorf("optimize parse: %w", err)
	}
	if len(parsed.Days) != req.Days {
		return domain_models.Schedule{}, fmt.Errorf("optimize returned %d days, want %d", len(parsed.Days), req.Days)
	}

	pool := make(map[string]domain_models.ScoredActivity, len(req.Preselected)+len(req.Candidates))
	for _, c := range req.Candidates {
		pool[strings.ToLower(c.Name)] = c
	}
	for _, p := range req.Preselected {
		pool[strings.ToLower(p.Name)] = p
	}

	schedule := domain_models.Schedule{
		TripOverview:     parsed.TripOverview,
		ActivityFitNotes: parsed.ActivityFitNotes,
	}
	used := make(map[string]bool)
	for _, day := range parsed.Days {
		if day.Day < 1 || day.Day > req.Days {
			return domain_models.Schedule{}, fmt.Errorf("optimize returned out-of-range day %d", day.Day)
		}
		out := domain_models.ScheduleDay{Day: day.Day}
		for _, ref := range day.Activities {
			if !domain_models.IsValidTimeSlot(ref.TimeSlot) {
				continue
			}
			activity, ok := pool[strings.ToLower(ref.Name)]
			if !ok || used[strings.ToLower(ref.Name)] {
				// Invented or repeated names are skipped; the verify step
				// decides whether what remains is acceptable.
				continue
			}
			used[strings.ToLower(ref.Name)] = true

			slot := domain_models.TimeSlot(ref.TimeSlot)
			activity.DayNumber = day.Day
			activity.TimeSlot = slot
			out.Activities = append(out.Activities, domain_models.ScheduledActivity{
				ScoredActivity: activity,
				StartTime:      domain_models.SlotStartTimes[slot],
			})
		}
		sortDayBySlot(&out)
		schedule.Days = append(schedule.Days, out)
	}
	sort.Slice(schedule.Days, func(i, j int) bool { return schedule.Days[i].Day < schedule.Days[j].Day })

	return schedule, nil
}

// fallbackSchedule is the deterministic local allocator. Pinned activities
// are always resolved into their slots before any candidate fill.
func (a *AllocatorService) fallbackSchedule(req AllocationRequest) domain_models.Schedule {
	pinned := make(map[int]map[domain_models.TimeSlot]domain_models.ScoredActivity)
	for _, pin := range req.Preselected {
		day := clampDay(pin.DayNumber, req.Days)
		if pinned[day] == nil {
			pinned[day] = make(map[domain_models.TimeSlot]domain_models.ScoredActivity)
		}
		pinned[day][pin.TimeSlot] = pin
	}

	candidates := make([]domain_models.ScoredActivity, len(req.Candidates))
	copy(candidates, req.Candidates)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PreferenceScore > candidates[j].PreferenceScore
	})

	used := make(map[string]bool)
	for _, pin := range req.Preselected {
		used[strings.ToLower(pin.Name)] = true
	}

	next := func() (domain_models.ScoredActivity, bool) {
		for _, c := range candidates {
			if !used[strings.ToLower(c.Name)] {
				used[strings.ToLower(c.Name)] = true
				return c, true
			}
		}
		return domain_models.ScoredActivity{}, false
	}

	schedule := domain_models.Schedule{
		TripOverview: fmt.Sprintf("A %d-day plan for %s assembled from the highest-scoring activities.",
			req.Days, req.Destination),
		ActivityFitNotes: "Schedule built locally by preference score; pinned activities kept in place.",
	}

	for day := 1; day <= req.Days; day++ {
		out := domain_models.ScheduleDay{Day: day}

		needed := targetActivitiesPerDay - len(pinned[day])
		for _, slot := range domain_models.AllTimeSlots {
			if pin, ok := pinned[day][slot]; ok {
				pin.DayNumber = day
				out.Activities = append(out.Activities, domain_models.ScheduledActivity{
					ScoredActivity: pin,
					StartTime:      domain_models.SlotStartTimes[slot],
				})
				continue
			}
			if needed <= 0 {
				continue
			}
			candidate, ok := next()
			if !ok {
				continue
			}
			candidate.DayNumber = day
			candidate.TimeSlot = slot
			out.Activities = append(out.Activities, domain_models.ScheduledActivity{
				ScoredActivity: candidate,
				StartTime:      domain_models.SlotStartTimes[slot],
			})
			needed--
		}

		schedule.Days = append(schedule.Days, out)
	}

	return schedule
}

func (a *AllocatorService) GenerateSingleActivity(ctx context.Context, req SingleActivityRequest) (domain_models.Activity, error) {
	if req.Destination == "" || !domain_models.IsValidTier(string(req.Tier)) ||
		!domain_models.IsValidTimeSlot(string(req.TimeSlot)) {
		return domain_models.Activity{}, utils.ErrInvalidInput
	}

	raw, err := a.llm.CompleteJSON(ctx, buildSingleActivityPrompt(req))
	if err != nil {
		return domain_models.Activity{}, fmt.Errorf("%w: %v", utils.ErrUnexpectedBehaviorOfAI, err)
	}

	result, err := a.sanitizer.Sanitize(raw)
	if err != nil {
		return domain_models.Activity{}, err
	}
	candidate := result.Activities[0]

	// No batch to average across here, so every numeric field must be
	// present and in range: no partial acceptance.
	if strings.TrimSpace(candidate.Name) == "" ||
		strings.TrimSpace(candidate.Description) == "" ||
		strings.TrimSpace(candidate.Location) == "" {
		return domain_models.Activity{}, utils.ErrUnexpectedBehaviorOfAI
	}
	if candidate.Price.Amount <= 0 ||
		candidate.Rating < 0 || candidate.Rating > 5 ||
		candidate.NumberOfReviews < 0 {
		return domain_models.Activity{}, utils.ErrUnexpectedBehaviorOfAI
	}
	duration := domain_models.NormalizeDurationHours(candidate.Duration)
	if duration <= 0 || duration > 24 {
		return domain_models.Activity{}, utils.ErrUnexpectedBehaviorOfAI
	}
	if a.tiers.Classify(candidate.Price.Amount) != req.Tier {
		return domain_models.Activity{}, utils.ErrUnexpectedBehaviorOfAI
	}

	activity := domain_models.Activity{
		Name:            candidate.Name,
		Description:     candidate.Description,
		Price:           candidate.Price,
		DurationHours:   duration,
		Category:        req.Category,
		Location:        candidate.Location,
		TimeSlot:        req.TimeSlot,
		DayNumber:       req.DayNumber,
		Rating:          candidate.Rating,
		NumberOfReviews: candidate.NumberOfReviews,
		Tier:            req.Tier,
	}
	return activity, nil
}

func buildOptimizePrompt(req AllocationRequest) string {
	var prompt strings.Builder

	fmt.Fprintf(&prompt, "Arrange a %d-day itinerary for %s. Return JSON only, no markdown.\n\n", req.Days, req.Destination)

	if len(req.Preselected) > 0 {
		prompt.WriteString("Pinned activities (MUST appear exactly at the given day and timeSlot, names unchanged):\n")
		for _, pin := range req.Preselected {
			fmt.Fprintf(&prompt, "- %q on day %d, %s\n", pin.Name, pin.DayNumber, pin.TimeSlot)
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("Candidate activities (use names exactly as written):\n")
	for _, c := range req.Candidates {
		fmt.Fprintf(&prompt, "- %q | category: %s | duration: %.1fh | score: %d\n",
			c.Name, c.Category, c.DurationHours, c.PreferenceScore)
	}

	fmt.Fprintf(&prompt, `
Constraints:
- Exactly %d days, day numbered 1..%d with no gaps.
- timeSlot is one of "morning", "afternoon", "evening"; at most one activity per slot.
- Prefer higher-score candidates, balance categories across the trip, and group nearby activities on the same day.

Return JSON in this exact shape:
{"tripOverview":"...","activityFitNotes":"...","days":[{"day":1,"activities":[{"name":"...","timeSlot":"morning"}]}]}
`, req.Days, req.Days)

	return prompt.String()
}

func buildSingleActivityPrompt(req SingleActivityRequest) string {
	return fmt.Sprintf(`Suggest exactly one bookable %s-tier %s activity in %s for the %s time slot.
Return JSON only, a single object with keys:
{"name":"...","description":"...","price":{"amount":0,"currency":"USD"},"duration":0,"location":"...","rating":0,"numberOfReviews":0}
All numeric fields are required. No markdown, no extra text.`,
		req.Tier, req.Category, req.Destination, req.TimeSlot)
}

func sortDayBySlot(day *domain_models.ScheduleDay) {
	order := map[domain_models.TimeSlot]int{
		domain_models.SlotMorning:   0,
		domain_models.SlotAfternoon: 1,
		domain_models.SlotEvening:   2,
	}
	sort.SliceStable(day.Activities, func(i, j int) bool {
		return order[day.Activities[i].TimeSlot] < order[day.Activities[j].TimeSlot]
	})
}

func clampDay(day, max int) int {
	if day < 1 {
		return 1
	}
	if day > max {
		return max
	}
	return day
}
