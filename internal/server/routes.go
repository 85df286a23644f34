package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/mindfulhq/mindful/internal/engine"
	"github.com/mindfulhq/mindful/internal/feed"
	"github.com/mindfulhq/mindful/internal/llm"
	"github.com/mindfulhq/mindful/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func entryJSON(e *store.Entry) map[string]any {
	out := map[string]any{
		"id":      e.ID,
		"date":    e.Date.Format(time.RFC3339),
		"content": e.Content,
		"mood":    e.Mood,
	}
	if e.ExtractedAt != nil {
		out["extracted_at"] = *e.ExtractedAt
	}
	return out
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
		Mood    string `json:"mood"`
		Date    string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, `{"error":"content required"}`, http.StatusBadRequest)
		return
	}
	if req.Mood == "" {
		req.Mood = store.MoodNeutral
	}

	entry := &store.Entry{Content: req.Content, Mood: req.Mood}
	if req.Date != "" {
		date, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			http.Error(w, `{"error":"date must be RFC3339"}`, http.StatusBadRequest)
			return
		}
		entry.Date = date
	}

	if err := s.db.CreateEntry(entry); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, entryJSON(entry))
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"error":"limit must be a positive integer"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.db.RecentEntries(limit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, len(entries))
	for i := range entries {
		out[i] = entryJSON(&entries[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")

	entry, err := s.db.GetEntry(entryID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, `{"error":"entry not found"}`, http.StatusNotFound)
		return
	}

	client, err := s.clientFor(r)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if client == nil {
		http.Error(w, `{"error":"API key required for extraction"}`, http.StatusUnauthorized)
		return
	}

	counts, err := s.engine.ExtractEntry(r.Context(), client, entry)
	switch {
	case errors.Is(err, engine.ErrContentTooShort):
		http.Error(w, `{"error":"entry content too short to extract"}`, http.StatusBadRequest)
		return
	case errors.Is(err, engine.ErrAlreadyExtracted):
		http.Error(w, `{"error":"entry already extracted"}`, http.StatusConflict)
		return
	case errors.Is(err, llm.ErrUnavailable):
		log.Error("extraction upstream failure", "entry", entryID, "err", err)
		http.Error(w, `{"error":"ai collaborator unavailable"}`, http.StatusBadGateway)
		return
	case err != nil:
		log.Error("extraction storage failure", "entry", entryID, "err", err)
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entry_id": entryID,
		"counts":   counts,
	})
}

func entityJSON(e *store.Entity) map[string]any {
	return map[string]any{
		"id":                  e.ID,
		"kind":                e.Kind,
		"name":                e.Name,
		"accumulated_context": e.AccumulatedContext,
		"updated_at":          e.UpdatedAt,
	}
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	switch kind {
	case "", store.KindPerson, store.KindEvent, store.KindFeeling:
	default:
		http.Error(w, `{"error":"kind must be PERSON, EVENT, or FEELING"}`, http.StatusBadRequest)
		return
	}

	entities, err := s.db.ListEntities(kind)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, len(entities))
	for i := range entities {
		out[i] = entityJSON(&entities[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": out})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "entityID"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid entity id"}`, http.StatusBadRequest)
		return
	}

	entity, err := s.db.GetEntity(id)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if entity == nil {
		http.Error(w, `{"error":"entity not found"}`, http.StatusNotFound)
		return
	}

	interactions, err := s.db.GetInteractions(id)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := entityJSON(entity)
	recs := make([]map[string]any, len(interactions))
	for i, rec := range interactions {
		recs[i] = map[string]any{
			"entry_id":  rec.EntryID,
			"snippet":   rec.Snippet,
			"sentiment": rec.Sentiment,
		}
	}
	out["interactions"] = recs
	writeJSON(w, http.StatusOK, out)
}

func taskJSON(t *store.Task) map[string]any {
	out := map[string]any{
		"id":           t.ID,
		"title":        t.Title,
		"completed":    t.Completed,
		"priority":     t.Priority,
		"context":      t.Context,
		"energy_level": t.EnergyLevel,
		"category":     t.Category,
		"tags":         t.Tags,
		"subtasks":     t.Subtasks,
	}
	if t.DueAt != nil {
		out["due_at"] = t.DueAt.Format(time.RFC3339)
	}
	if t.EstimatedMinutes != nil {
		out["estimated_minutes"] = *t.EstimatedMinutes
	}
	return out
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	openOnly := r.URL.Query().Get("open") == "true"

	tasks, err := s.db.ListTasks(openOnly)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, len(tasks))
	for i := range tasks {
		out[i] = taskJSON(&tasks[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		DueAt       string `json:"due_at"`
		Priority    string `json:"priority"`
		Context     string `json:"context"`
		EnergyLevel string `json:"energy_level"`
		Category    string `json:"category"`
		Process     bool   `json:"process"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, `{"error":"title required"}`, http.StatusBadRequest)
		return
	}

	if req.Process {
		client, err := s.clientFor(r)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if client != nil {
			mood := ""
			if recent, err := s.db.RecentEntries(1); err == nil && len(recent) > 0 {
				mood = recent[0].Mood
			}
			situation := feed.Normalize(time.Now(), mood, "")
			task, err := s.engine.ProcessTask(r.Context(), client, req.Title, situation)
			if err != nil {
				log.Error("task processing failure", "err", err)
				http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusCreated, taskJSON(task))
			return
		}
		// No collaborator: fall through to plain creation with defaults.
	}

	task := &store.Task{
		Title:       req.Title,
		Priority:    req.Priority,
		Context:     req.Context,
		EnergyLevel: req.EnergyLevel,
		Category:    req.Category,
	}
	if req.DueAt != "" {
		due, err := time.Parse(time.RFC3339, req.DueAt)
		if err != nil {
			http.Error(w, `{"error":"due_at must be RFC3339"}`, http.StatusBadRequest)
			return
		}
		task.DueAt = &due
	}

	if err := s.db.CreateTask(task); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, taskJSON(task))
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	if err := s.db.CompleteTask(id); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	client, err := s.clientFor(r)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	scored, estimate, err := s.feed.Rank(r.Context(), client, time.Now())
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"error":"limit must be a positive integer"}`, http.StatusBadRequest)
			return
		}
		if n < len(scored) {
			scored = scored[:n]
		}
	}

	out := make([]map[string]any, len(scored))
	for i := range scored {
		item := taskJSON(&scored[i].Task)
		item["relevance_score"] = scored[i].RelevanceScore
		out[i] = item
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"feed":        out,
		"user_energy": estimate,
	})
}
