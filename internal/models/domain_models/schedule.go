package domain_models

// ScheduledActivity is an activity pinned to its final position in the
// plan. It is never mutated after the schedule is returned.
type ScheduledActivity struct {
	ScoredActivity

	StartTime string `json:"startTime"`
}

type ScheduleDay struct {
	Day        int                 `json:"day"`
	Activities []ScheduledActivity `json:"activities"`
}

// Schedule is the allocator's output. Callers cannot tell an optimized
// schedule from a fallback one by shape, only by the narrative fields.
type Schedule struct {
	Days             []ScheduleDay `json:"days"`
	TripOverview     string        `json:"tripOverview"`
	ActivityFitNotes string        `json:"activityFitNotes"`
}

// Activities flattens the schedule in day order, slot order within a day.
func (s Schedule) Activities() []ScheduledActivity {
	var out []ScheduledActivity
	for _, day := range s.Days {
		out = append(out, day.Activities...)
	}
	return out
}

// FindActivity reports whether the (day, slot, name) triple is present.
// The preselection invariant is checked with exactly this lookup.
func (s Schedule) FindActivity(day int, slot TimeSlot, name string) bool {
	for _, d := range s.Days {
		if d.Day != day {
			continue
		}
		for _, a := range d.Activities {
			if a.TimeSlot == slot && a.Name == name {
				return true
			}
		}
	}
	return false
}
