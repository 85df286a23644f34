package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mindfulhq/mindful/internal/config"
	"github.com/mindfulhq/mindful/internal/engine"
	"github.com/mindfulhq/mindful/internal/feed"
	"github.com/mindfulhq/mindful/internal/llm"
	"github.com/mindfulhq/mindful/internal/store"
)

// apiKeyHeader carries a per-request Gemini credential. When present it
// overrides the configured key for that request only.
const apiKeyHeader = "X-Gemini-API-Key"

// Server is the mindful HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	feed    *feed.Engine
	router  chi.Router
	version string
	started time.Time

	// newClient builds the AI client for one request. Swapped in tests.
	newClient func(apiKey string) (llm.Client, error)
}

// New creates a new Server with the given database, AI config, and version.
func New(db *store.DB, ai config.AIConfig, version string) *Server {
	s := &Server{
		db:      db,
		engine:  engine.New(db),
		feed:    feed.New(db),
		version: version,
		started: time.Now(),
		newClient: func(apiKey string) (llm.Client, error) {
			return llm.NewClient(ai, apiKey)
		},
	}
	if ai.Timeout > 0 {
		s.engine.Timeout = time.Duration(ai.Timeout) * time.Second
		s.feed.Timeout = time.Duration(ai.Timeout) * time.Second
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// clientFor builds the AI client for a request, honoring the key header.
// A nil client with nil error means no collaborator for this request.
func (s *Server) clientFor(r *http.Request) (llm.Client, error) {
	return s.newClient(r.Header.Get(apiKeyHeader))
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/entries", s.handleCreateEntry)
		r.Get("/entries", s.handleListEntries)
		r.Post("/entries/{entryID}/extract", s.handleExtract)

		r.Get("/entities", s.handleListEntities)
		r.Get("/entities/{entityID}", s.handleGetEntity)

		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks", s.handleCreateTask)
		r.Post("/tasks/{taskID}/complete", s.handleCompleteTask)

		r.Get("/feed", s.handleFeed)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
