package feed

import (
	"strings"
	"time"

	"github.com/mindfulhq/mindful/internal/store"
)

// Situation is the normalized view of the user's current state that the
// scorer and the AI prompts consume. Ephemeral, rebuilt per request.
type Situation struct {
	Now        time.Time
	TimeOfDay  string // morning, afternoon, evening, night
	DayOfWeek  string // lowercase weekday name
	UserEnergy string // LOW, MEDIUM, HIGH
	RecentMood string
	Location   string
}

// Normalize buckets a wall-clock time and raw mood/location signals into a
// Situation. Pure function: the same inputs always yield the same situation.
// An unknown mood normalizes to NEUTRAL and a missing location to "unknown";
// user energy starts at MEDIUM until an assessment fills it in.
func Normalize(now time.Time, mood, location string) Situation {
	var timeOfDay string
	switch h := now.Hour(); {
	case h >= 5 && h < 12:
		timeOfDay = "morning"
	case h >= 12 && h < 17:
		timeOfDay = "afternoon"
	case h >= 17 && h < 21:
		timeOfDay = "evening"
	default:
		timeOfDay = "night"
	}

	switch mood {
	case store.MoodGreat, store.MoodGood, store.MoodNeutral, store.MoodStressed, store.MoodBad:
	default:
		mood = store.MoodNeutral
	}
	if location == "" {
		location = "unknown"
	}

	return Situation{
		Now:        now,
		TimeOfDay:  timeOfDay,
		DayOfWeek:  strings.ToLower(now.Weekday().String()),
		UserEnergy: store.EnergyMedium,
		RecentMood: mood,
		Location:   location,
	}
}
