package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mindfulhq/mindful/internal/config"
	"github.com/mindfulhq/mindful/internal/llm"
	"github.com/mindfulhq/mindful/internal/store"
)

// multiMock returns a different canned response per call.
type multiMock struct {
	responses []string
	calls     int
}

func (m *multiMock) Complete(ctx context.Context, prompt string) (*llm.Response, error) {
	i := m.calls
	m.calls++
	if i >= len(m.responses) {
		return nil, fmt.Errorf("unexpected call %d", i)
	}
	return &llm.Response{Content: m.responses[i], Provider: "mock"}, nil
}

// testServer builds a server over an in-memory db. A non-nil client is
// returned for every request regardless of headers.
func testServer(t *testing.T, client llm.Client) (*Server, *store.DB) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := New(db, config.AIConfig{Provider: "gemini"}, "test")
	if client != nil {
		s.newClient = func(apiKey string) (llm.Client, error) {
			return client, nil
		}
	}
	return s, db
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t, nil)
	w := doJSON(t, s, "GET", "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestCreateAndListEntries(t *testing.T) {
	s, _ := testServer(t, nil)

	w := doJSON(t, s, "POST", "/api/entries", map[string]any{
		"content": "Slow morning, strong coffee.",
		"mood":    "GOOD",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	if created["id"] == "" || created["mood"] != "GOOD" {
		t.Errorf("created = %v", created)
	}

	w = doJSON(t, s, "GET", "/api/entries?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	entries := body["entries"].([]any)
	if len(entries) != 1 {
		t.Errorf("entries = %v", entries)
	}
}

func TestCreateEntryValidation(t *testing.T) {
	s, _ := testServer(t, nil)

	w := doJSON(t, s, "POST", "/api/entries", map[string]any{"mood": "GOOD"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing content: status = %d", w.Code)
	}

	w = doJSON(t, s, "POST", "/api/entries", map[string]any{
		"content": "x", "date": "yesterday",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d", w.Code)
	}
}

const extractionJSON = `{
	"people": [{"name": "Sarah", "relationship": "friend", "sentiment": "Positive", "context": "Had lunch"}],
	"events": [],
	"feelings": [{"name": "contentment", "intensity": 6, "root_cause": "good food"}]
}`

func TestExtract(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: extractionJSON}}
	s, db := testServer(t, mock)

	entry := &store.Entry{Content: "Had lunch with Sarah. Felt content.", Mood: store.MoodGood}
	if err := db.CreateEntry(entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	w := doJSON(t, s, "POST", "/api/entries/"+entry.ID+"/extract", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	counts := body["counts"].(map[string]any)
	if counts["people"].(float64) != 1 || counts["feelings"].(float64) != 1 {
		t.Errorf("counts = %v", counts)
	}

	// Second call conflicts.
	w = doJSON(t, s, "POST", "/api/entries/"+entry.ID+"/extract", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("repeat status = %d, want 409", w.Code)
	}
}

func TestExtractMissingKey(t *testing.T) {
	// Gemini provider with no configured key and no header: nil client.
	s, db := testServer(t, nil)

	entry := &store.Entry{Content: "A long enough entry to extract.", Mood: store.MoodNeutral}
	if err := db.CreateEntry(entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	w := doJSON(t, s, "POST", "/api/entries/"+entry.ID+"/extract", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestExtractNotFound(t *testing.T) {
	s, _ := testServer(t, &llm.MockClient{})
	w := doJSON(t, s, "POST", "/api/entries/nope/extract", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestExtractShortContent(t *testing.T) {
	s, db := testServer(t, &llm.MockClient{})
	entry := &store.Entry{Content: "meh", Mood: store.MoodNeutral}
	if err := db.CreateEntry(entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	w := doJSON(t, s, "POST", "/api/entries/"+entry.ID+"/extract", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExtractUpstreamFailure(t *testing.T) {
	mock := &llm.MockClient{Err: fmt.Errorf("gemini api: %w", llm.ErrUnavailable)}
	s, db := testServer(t, mock)

	entry := &store.Entry{Content: "A long enough entry to extract.", Mood: store.MoodNeutral}
	if err := db.CreateEntry(entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	w := doJSON(t, s, "POST", "/api/entries/"+entry.ID+"/extract", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestEntities(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: extractionJSON}}
	s, db := testServer(t, mock)

	entry := &store.Entry{Content: "Had lunch with Sarah. Felt content.", Mood: store.MoodGood}
	if err := db.CreateEntry(entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if w := doJSON(t, s, "POST", "/api/entries/"+entry.ID+"/extract", nil); w.Code != http.StatusOK {
		t.Fatalf("extract: %d", w.Code)
	}

	w := doJSON(t, s, "GET", "/api/entities?kind=PERSON", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	entities := decode(t, w)["entities"].([]any)
	if len(entities) != 1 {
		t.Fatalf("entities = %v", entities)
	}
	first := entities[0].(map[string]any)
	if first["name"] != "Sarah" {
		t.Errorf("name = %v", first["name"])
	}

	id := int64(first["id"].(float64))
	w = doJSON(t, s, "GET", fmt.Sprintf("/api/entities/%d", id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get entity: %d", w.Code)
	}
	detail := decode(t, w)
	interactions := detail["interactions"].([]any)
	if len(interactions) != 1 {
		t.Errorf("interactions = %v", interactions)
	}

	w = doJSON(t, s, "GET", "/api/entities?kind=PLACE", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d", w.Code)
	}

	w = doJSON(t, s, "GET", "/api/entities/999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing entity status = %d", w.Code)
	}
}

func TestTasksLifecycle(t *testing.T) {
	s, _ := testServer(t, nil)

	w := doJSON(t, s, "POST", "/api/tasks", map[string]any{
		"title":    "Ship the release",
		"priority": "HIGH",
		"context":  "PROFESSIONAL",
		"due_at":   time.Now().Add(4 * time.Hour).Format(time.RFC3339),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	id := int64(created["id"].(float64))

	w = doJSON(t, s, "GET", "/api/tasks?open=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	tasks := decode(t, w)["tasks"].([]any)
	if len(tasks) != 1 {
		t.Fatalf("tasks = %v", tasks)
	}

	w = doJSON(t, s, "POST", fmt.Sprintf("/api/tasks/%d/complete", id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete: %d", w.Code)
	}

	w = doJSON(t, s, "GET", "/api/tasks?open=true", nil)
	tasks = decode(t, w)["tasks"].([]any)
	if len(tasks) != 0 {
		t.Errorf("open tasks after complete = %v", tasks)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	s, _ := testServer(t, nil)

	w := doJSON(t, s, "POST", "/api/tasks", map[string]any{"priority": "HIGH"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing title: %d", w.Code)
	}

	w = doJSON(t, s, "POST", "/api/tasks", map[string]any{
		"title": "x", "priority": "URGENT",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad priority: %d", w.Code)
	}
}

func TestCreateTaskProcessed(t *testing.T) {
	mock := &multiMock{responses: []string{
		`{"context": "PROFESSIONAL", "category": "Feature Development", "energy_level": "HIGH"}`,
		`{"subtasks": [{"title": "step one", "estimated_minutes": 20}], "tags": ["api"], "estimated_total_minutes": 20, "priority": "HIGH"}`,
	}}
	s, _ := testServer(t, mock)

	w := doJSON(t, s, "POST", "/api/tasks", map[string]any{
		"title":   "Build the export API",
		"process": true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	task := decode(t, w)
	if task["category"] != "Feature Development" || task["priority"] != "HIGH" {
		t.Errorf("task = %v", task)
	}
	subtasks := task["subtasks"].([]any)
	if len(subtasks) != 1 {
		t.Errorf("subtasks = %v", subtasks)
	}
}

func TestFeed(t *testing.T) {
	s, db := testServer(t, nil)

	now := time.Now()
	dueSoon := now.Add(time.Hour)
	urgent := &store.Task{Title: "urgent", Priority: store.PriorityHigh, DueAt: &dueSoon}
	idle := &store.Task{Title: "idle", Priority: store.PriorityLow}
	for _, task := range []*store.Task{idle, urgent} {
		if err := db.CreateTask(task); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	w := doJSON(t, s, "GET", "/api/feed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	items := body["feed"].([]any)
	if len(items) != 2 {
		t.Fatalf("feed = %v", items)
	}
	first := items[0].(map[string]any)
	second := items[1].(map[string]any)
	if first["title"] != "urgent" {
		t.Errorf("first item = %v", first["title"])
	}
	if first["relevance_score"].(float64) < second["relevance_score"].(float64) {
		t.Error("feed not sorted by relevance")
	}
	if _, ok := body["user_energy"].(map[string]any); !ok {
		t.Errorf("user_energy missing: %v", body)
	}

	w = doJSON(t, s, "GET", "/api/feed?limit=1", nil)
	items = decode(t, w)["feed"].([]any)
	if len(items) != 1 {
		t.Errorf("limited feed = %v", items)
	}
}
