package feed

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mindfulhq/mindful/internal/llm"
	"github.com/mindfulhq/mindful/internal/store"
)

// maxEnergyEntries caps how many recent entries feed the AI assessment.
const maxEnergyEntries = 5

// Estimate is the assessed user energy level and how much evidence backs it.
type Estimate struct {
	Level      string  `json:"energy_level"`
	Confidence float64 `json:"confidence"`
	SampleSize int     `json:"sample_size"`
}

// energyStrategy is one way of deriving an energy estimate from recent
// entries. A false return means the strategy produced nothing and the next
// one should run.
type energyStrategy interface {
	assess(ctx context.Context, entries []store.Entry) (Estimate, bool)
}

// AssessEnergy derives the user's current energy level from recent journal
// entries, newest first. With a client the AI strategy runs first; any
// failure there falls through to the mood table, never to an error. No
// entries means no evidence: MEDIUM at zero confidence.
func (e *Engine) AssessEnergy(ctx context.Context, client llm.Client, entries []store.Entry) Estimate {
	if len(entries) == 0 {
		return Estimate{Level: store.EnergyMedium}
	}

	var strategies []energyStrategy
	if client != nil {
		strategies = append(strategies, aiEnergy{client})
	}
	strategies = append(strategies, moodEnergy{})

	for _, s := range strategies {
		if est, ok := s.assess(ctx, entries); ok {
			return est
		}
	}
	return Estimate{Level: store.EnergyMedium}
}

// aiEnergy asks the collaborator to read tone across the recent window.
type aiEnergy struct {
	client llm.Client
}

func (a aiEnergy) assess(ctx context.Context, entries []store.Entry) (Estimate, bool) {
	sample := entries
	if len(sample) > maxEnergyEntries {
		sample = sample[:maxEnergyEntries]
	}
	prompted := make([]llm.EnergyEntry, len(sample))
	for i, entry := range sample {
		prompted[i] = llm.EnergyEntry{Date: entry.Date, Mood: entry.Mood, Content: entry.Content}
	}

	resp, err := a.client.Complete(ctx, llm.EnergyAssessmentPrompt(prompted))
	if err != nil {
		log.Warn("ai energy assessment failed, falling back to mood table", "err", err)
		return Estimate{}, false
	}

	var result struct {
		EnergyLevel string  `json:"energy_level"`
		Confidence  float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(resp.Content)), &result); err != nil {
		log.Warn("ai energy assessment unparseable, falling back to mood table", "err", err)
		return Estimate{}, false
	}

	switch result.EnergyLevel {
	case store.EnergyLow, store.EnergyMedium, store.EnergyHigh:
	default:
		log.Warn("ai energy assessment returned unknown level, falling back to mood table",
			"level", result.EnergyLevel)
		return Estimate{}, false
	}

	return Estimate{
		Level:      result.EnergyLevel,
		Confidence: result.Confidence,
		SampleSize: len(entries),
	}, true
}

// moodEnergy maps the most recent entry's mood through a fixed table. It
// always produces an estimate.
type moodEnergy struct{}

func (moodEnergy) assess(ctx context.Context, entries []store.Entry) (Estimate, bool) {
	var level string
	switch entries[0].Mood {
	case store.MoodGreat:
		level = store.EnergyHigh
	case store.MoodStressed, store.MoodBad:
		level = store.EnergyLow
	default:
		level = store.EnergyMedium
	}

	return Estimate{
		Level:      level,
		Confidence: 0.6,
		SampleSize: len(entries),
	}, true
}

// cleanJSON strips markdown code fences that models wrap JSON in despite
// instructions not to.
func cleanJSON(content string) string {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
