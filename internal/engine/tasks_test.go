package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mindfulhq/mindful/internal/feed"
	"github.com/mindfulhq/mindful/internal/llm"
	"github.com/mindfulhq/mindful/internal/store"
)

// multiResponseMock returns a different canned response per call.
type multiResponseMock struct {
	responses []string
	errs      []error
	calls     int
}

func (m *multiResponseMock) Complete(ctx context.Context, prompt string) (*llm.Response, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.responses) {
		return nil, errors.New("unexpected call")
	}
	return &llm.Response{Content: m.responses[i], Provider: "mock"}, nil
}

func testSituation() feed.Situation {
	return feed.Normalize(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), "GOOD", "")
}

func TestProcessTask(t *testing.T) {
	db := testDB(t)
	e := New(db)

	mock := &multiResponseMock{responses: []string{
		`{"context": "PROFESSIONAL", "category": "Feature Development", "energy_level": "HIGH", "reasoning": "coding work"}`,
		"```json\n" + `{
			"subtasks": [
				{"title": "Write the design doc", "estimated_minutes": 60},
				{"title": "Implement the endpoint", "estimated_minutes": 120}
			],
			"tags": ["backend", "api"],
			"estimated_total_minutes": 180,
			"priority": "HIGH"
		}` + "\n```",
	}}

	task, err := e.ProcessTask(context.Background(), mock, "Build the export API", testSituation())
	if err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if mock.calls != 2 {
		t.Errorf("calls = %d, want classify then decompose", mock.calls)
	}
	if task.Title != "Build the export API" {
		t.Errorf("Title = %q", task.Title)
	}
	if task.Context != store.ContextProfessional || task.Category != "Feature Development" {
		t.Errorf("classification = %q/%q", task.Context, task.Category)
	}
	if task.EnergyLevel != store.EnergyHigh || task.Priority != store.PriorityHigh {
		t.Errorf("energy/priority = %q/%q", task.EnergyLevel, task.Priority)
	}
	if len(task.Subtasks) != 2 || task.Subtasks[1].EstimatedMinutes != 120 {
		t.Errorf("subtasks = %+v", task.Subtasks)
	}
	if task.EstimatedMinutes == nil || *task.EstimatedMinutes != 180 {
		t.Errorf("EstimatedMinutes = %v", task.EstimatedMinutes)
	}

	// Persisted, not just returned.
	got, err := db.GetTask(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got == nil || got.Title != task.Title {
		t.Errorf("task not persisted: %+v", got)
	}
}

func TestProcessTaskClassificationFailureUsesDefaults(t *testing.T) {
	db := testDB(t)
	e := New(db)

	mock := &multiResponseMock{
		responses: []string{
			"not json at all",
			`{"subtasks": [{"title": "only step", "estimated_minutes": 15}], "tags": ["general"], "estimated_total_minutes": 15, "priority": "LOW"}`,
		},
	}

	task, err := e.ProcessTask(context.Background(), mock, "Do the thing", testSituation())
	if err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if task.Context != store.ContextPersonal || task.Category != "General" || task.EnergyLevel != store.EnergyMedium {
		t.Errorf("defaults not applied: %q/%q/%q", task.Context, task.Category, task.EnergyLevel)
	}
	if task.Priority != store.PriorityLow {
		t.Errorf("Priority = %q, decomposition should still apply", task.Priority)
	}
}

func TestProcessTaskDecompositionFailureUsesDefaults(t *testing.T) {
	db := testDB(t)
	e := New(db)

	mock := &multiResponseMock{
		responses: []string{
			`{"context": "PERSONAL", "category": "Travel", "energy_level": "LOW", "reasoning": "booking"}`,
			"",
		},
		errs: []error{nil, errors.New("model timeout")},
	}

	task, err := e.ProcessTask(context.Background(), mock, "Book flights to Lisbon", testSituation())
	if err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(task.Subtasks) != 1 || task.Subtasks[0].Title != "Book flights to Lisbon" {
		t.Errorf("fallback subtasks = %+v", task.Subtasks)
	}
	if task.Subtasks[0].EstimatedMinutes != 30 {
		t.Errorf("fallback minutes = %d, want 30", task.Subtasks[0].EstimatedMinutes)
	}
	if len(task.Tags) != 1 || task.Tags[0] != "travel" {
		t.Errorf("fallback tags = %v", task.Tags)
	}
	if task.Priority != store.PriorityMedium {
		t.Errorf("fallback priority = %q", task.Priority)
	}
}

func TestProcessTaskNoClient(t *testing.T) {
	db := testDB(t)
	e := New(db)

	_, err := e.ProcessTask(context.Background(), nil, "anything", testSituation())
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
