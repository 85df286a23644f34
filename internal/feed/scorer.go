package feed

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mindfulhq/mindful/internal/llm"
	"github.com/mindfulhq/mindful/internal/store"
)

// Relevance weights. Urgency and context fit dominate; current energy nudges.
const (
	urgencyWeight = 0.4
	contextWeight = 0.4
	energyWeight  = 0.2
)

// Urgency scores how pressing a task is (0-100) from its priority and due
// date. Priority contributes up to 40 points, the due date up to 60.
func Urgency(task *store.Task, now time.Time) float64 {
	score := 0.0

	switch task.Priority {
	case store.PriorityHigh:
		score += 40
	case store.PriorityLow:
		score += 10
	default:
		score += 25
	}

	if task.DueAt == nil {
		score += 20
		return math.Min(score, 100)
	}

	// Whole days until due, floored. A deadline 30 hours out is "tomorrow",
	// and anything in the past floors negative.
	days := int(math.Floor(task.DueAt.Sub(now).Hours() / 24))
	switch {
	case days < 0:
		score += 60
	case days == 0:
		score += 55
	case days == 1:
		score += 45
	case days <= 3:
		score += 35
	case days <= 7:
		score += 25
	default:
		score += 10
	}

	return math.Min(score, 100)
}

// matchStrategy is one way of scoring how well a task fits a situation.
// A false return means the strategy produced nothing and the next one
// should run.
type matchStrategy interface {
	match(ctx context.Context, task *store.Task, s Situation) (float64, bool)
}

// ContextMatch scores how well a task fits the current situation (0-100).
// With a client the AI strategy runs first; failures fall through to the
// rules, which always produce a score.
func (e *Engine) ContextMatch(ctx context.Context, client llm.Client, task *store.Task, s Situation) float64 {
	var strategies []matchStrategy
	if client != nil {
		strategies = append(strategies, aiMatch{client})
	}
	strategies = append(strategies, ruleMatch{})

	for _, strat := range strategies {
		if score, ok := strat.match(ctx, task, s); ok {
			return score
		}
	}
	return 50
}

// aiMatch delegates the fit judgment to the collaborator.
type aiMatch struct {
	client llm.Client
}

func (a aiMatch) match(ctx context.Context, task *store.Task, s Situation) (float64, bool) {
	prompt := llm.ContextMatchPrompt(task.Title, task.Context, task.EnergyLevel,
		s.TimeOfDay, s.DayOfWeek, s.UserEnergy, s.Location)
	resp, err := a.client.Complete(ctx, prompt)
	if err != nil {
		log.Warn("ai context match failed, falling back to rules", "task", task.ID, "err", err)
		return 0, false
	}

	var result struct {
		ContextMatchScore float64 `json:"context_match_score"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(resp.Content)), &result); err != nil {
		log.Warn("ai context match unparseable, falling back to rules", "task", task.ID, "err", err)
		return 0, false
	}

	return math.Max(0, math.Min(result.ContextMatchScore, 100)), true
}

// ruleMatch is the deterministic path: base 50, shifted by how the task's
// context fits the clock and how its energy demand compares to the user's
// current level.
type ruleMatch struct{}

func (ruleMatch) match(ctx context.Context, task *store.Task, s Situation) (float64, bool) {
	score := 50.0

	weekday := s.Now.Weekday()
	weekend := weekday == time.Saturday || weekday == time.Sunday
	workHours := s.Now.Hour() >= 9 && s.Now.Hour() < 18

	switch task.Context {
	case store.ContextProfessional:
		if workHours && !weekend {
			score += 30
		} else if weekend {
			score -= 20
		}
	case store.ContextPersonal:
		if weekend || !workHours {
			score += 30
		} else {
			score -= 10
		}
	}

	if task.EnergyLevel != "" && s.UserEnergy != "" {
		taskEnergy := energyOrdinal(task.EnergyLevel)
		userEnergy := energyOrdinal(s.UserEnergy)
		if taskEnergy > userEnergy {
			score -= 20
		} else if taskEnergy == userEnergy {
			score += 10
		}
	}

	return math.Max(0, math.Min(score, 100)), true
}

func energyOrdinal(level string) int {
	switch level {
	case store.EnergyLow:
		return 1
	case store.EnergyHigh:
		return 3
	default:
		return 2
	}
}

// energyScore converts the user's energy level to its score component.
func energyScore(userEnergy string) float64 {
	switch userEnergy {
	case store.EnergyLow:
		return 30
	case store.EnergyHigh:
		return 90
	default:
		return 60
	}
}

// Score computes the overall relevance of a task in a situation, 0-100
// rounded to two decimals.
func (e *Engine) Score(ctx context.Context, client llm.Client, task *store.Task, s Situation) float64 {
	relevance := Urgency(task, s.Now)*urgencyWeight +
		e.ContextMatch(ctx, client, task, s)*contextWeight +
		energyScore(s.UserEnergy)*energyWeight
	return math.Round(relevance*100) / 100
}
