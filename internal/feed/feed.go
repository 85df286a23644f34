package feed

import (
	"context"
	"sort"
	"time"

	"github.com/mindfulhq/mindful/internal/llm"
	"github.com/mindfulhq/mindful/internal/store"
)

// Engine ranks open tasks by contextual relevance. The AI client is passed
// per call because credentials can arrive with each request; a nil client
// runs the deterministic paths throughout.
type Engine struct {
	DB      *store.DB
	Timeout time.Duration
}

// New creates a new feed Engine.
func New(db *store.DB) *Engine {
	return &Engine{
		DB:      db,
		Timeout: 120 * time.Second,
	}
}

// ScoredTask pairs a task with its relevance score.
type ScoredTask struct {
	Task           store.Task `json:"task"`
	RelevanceScore float64    `json:"relevance_score"`
}

// Rank assesses the user's energy from recent entries, scores every open
// task against the situation at now, and returns them ordered by descending
// relevance. The sort is stable, so equal scores keep store order.
func (e *Engine) Rank(ctx context.Context, client llm.Client, now time.Time) ([]ScoredTask, Estimate, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	entries, err := e.DB.RecentEntries(maxEnergyEntries)
	if err != nil {
		return nil, Estimate{}, err
	}

	mood := ""
	if len(entries) > 0 {
		mood = entries[0].Mood
	}
	situation := Normalize(now, mood, "")

	estimate := e.AssessEnergy(ctx, client, entries)
	situation.UserEnergy = estimate.Level

	tasks, err := e.DB.ListTasks(true)
	if err != nil {
		return nil, Estimate{}, err
	}

	scored := make([]ScoredTask, 0, len(tasks))
	for i := range tasks {
		scored = append(scored, ScoredTask{
			Task:           tasks[i],
			RelevanceScore: e.Score(ctx, client, &tasks[i], situation),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})

	return scored, estimate, nil
}
