package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mindfulhq/mindful/internal/feed"
	"github.com/mindfulhq/mindful/internal/llm"
	"github.com/mindfulhq/mindful/internal/store"
)

// classification is the JSON structure returned by the task classification LLM.
type classification struct {
	Context     string `json:"context"`
	Category    string `json:"category"`
	EnergyLevel string `json:"energy_level"`
	Reasoning   string `json:"reasoning"`
}

// decomposition is the JSON structure returned by the task decomposition LLM.
type decomposition struct {
	Subtasks []struct {
		Title            string `json:"title"`
		EstimatedMinutes int    `json:"estimated_minutes"`
	} `json:"subtasks"`
	Tags                  []string `json:"tags"`
	EstimatedTotalMinutes int      `json:"estimated_total_minutes"`
	Priority              string   `json:"priority"`
}

// ProcessTask turns a natural language description into a structured task:
// classify the intent, decompose into subtasks, then persist. Malformed AI
// output for either step falls back to conservative defaults rather than
// failing the request, so a flaky model still yields a usable task.
func (e *Engine) ProcessTask(ctx context.Context, client llm.Client, input string, situation feed.Situation) (*store.Task, error) {
	if client == nil {
		return nil, fmt.Errorf("task processing: %w", llm.ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cls := e.classify(ctx, client, input, situation)
	dec := e.decompose(ctx, client, input, cls)

	subtasks := make([]store.Subtask, 0, len(dec.Subtasks))
	for _, st := range dec.Subtasks {
		minutes := st.EstimatedMinutes
		if minutes == 0 {
			minutes = 30
		}
		subtasks = append(subtasks, store.Subtask{Title: st.Title, EstimatedMinutes: minutes})
	}

	total := dec.EstimatedTotalMinutes
	task := &store.Task{
		Title:            input,
		Priority:         dec.Priority,
		Context:          cls.Context,
		EnergyLevel:      cls.EnergyLevel,
		Category:         cls.Category,
		Tags:             dec.Tags,
		Subtasks:         subtasks,
		EstimatedMinutes: &total,
	}
	if err := e.DB.CreateTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (e *Engine) classify(ctx context.Context, client llm.Client, input string, situation feed.Situation) classification {
	fallback := classification{
		Context:     store.ContextPersonal,
		Category:    "General",
		EnergyLevel: store.EnergyMedium,
	}

	prompt := llm.TaskClassificationPrompt(input, situation.TimeOfDay, situation.DayOfWeek, situation.RecentMood)
	resp, err := client.Complete(ctx, prompt)
	if err != nil {
		log.Warn("task classification failed, using defaults", "err", err)
		return fallback
	}

	var cls classification
	if err := json.Unmarshal([]byte(cleanJSONResponse(resp.Content)), &cls); err != nil {
		log.Warn("task classification unparseable, using defaults", "err", err)
		return fallback
	}
	if cls.Context == "" {
		cls.Context = store.ContextPersonal
	}
	if cls.Category == "" {
		cls.Category = "General"
	}
	if cls.EnergyLevel == "" {
		cls.EnergyLevel = store.EnergyMedium
	}
	return cls
}

func (e *Engine) decompose(ctx context.Context, client llm.Client, input string, cls classification) decomposition {
	fallback := decomposition{
		Tags:                  []string{strings.ToLower(cls.Category)},
		EstimatedTotalMinutes: 30,
		Priority:              store.PriorityMedium,
	}
	fallback.Subtasks = append(fallback.Subtasks, struct {
		Title            string `json:"title"`
		EstimatedMinutes int    `json:"estimated_minutes"`
	}{Title: input, EstimatedMinutes: 30})

	prompt := llm.TaskDecompositionPrompt(input, cls.Context, cls.Category)
	resp, err := client.Complete(ctx, prompt)
	if err != nil {
		log.Warn("task decomposition failed, using defaults", "err", err)
		return fallback
	}

	var dec decomposition
	if err := json.Unmarshal([]byte(cleanJSONResponse(resp.Content)), &dec); err != nil {
		log.Warn("task decomposition unparseable, using defaults", "err", err)
		return fallback
	}
	if dec.Priority == "" {
		dec.Priority = store.PriorityMedium
	}
	return dec
}

// cleanJSONResponse strips markdown code fences that models wrap JSON in
// despite instructions not to.
func cleanJSONResponse(content string) string {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
