package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mindfulhq/mindful/internal/llm"
	"github.com/mindfulhq/mindful/internal/store"
)

// minExtractableLen is the minimum entry length worth sending to the LLM.
const minExtractableLen = 10

var (
	// ErrContentTooShort means the entry is too short to extract anything from.
	ErrContentTooShort = errors.New("entry content too short to extract")
	// ErrAlreadyExtracted means the entry has been processed before. Extraction
	// is not idempotent at the graph level, so repeats are refused.
	ErrAlreadyExtracted = errors.New("entry already extracted")
)

// Engine orchestrates entity extraction and task enrichment. The AI client is
// passed per call rather than held on the struct because credentials can
// arrive with each request.
type Engine struct {
	DB      *store.DB
	Timeout time.Duration
}

// New creates a new Engine.
func New(db *store.DB) *Engine {
	return &Engine{
		DB:      db,
		Timeout: 120 * time.Second,
	}
}

// ExtractEntry runs AI extraction on a journal entry and merges the results
// into the entity graph. Unlike energy assessment there is no deterministic
// fallback: without a working collaborator the error propagates, wrapped in
// llm.ErrUnavailable, and the entry stays unextracted for a later retry.
func (e *Engine) ExtractEntry(ctx context.Context, client llm.Client, entry *store.Entry) (Counts, error) {
	if len(strings.TrimSpace(entry.Content)) < minExtractableLen {
		return Counts{}, ErrContentTooShort
	}
	if entry.ExtractedAt != nil {
		return Counts{}, ErrAlreadyExtracted
	}
	if client == nil {
		return Counts{}, fmt.Errorf("extraction: %w", llm.ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	resp, err := client.Complete(ctx, llm.ExtractionPrompt(entry.Content))
	if err != nil {
		return Counts{}, fmt.Errorf("llm extraction: %w", err)
	}

	batch, err := parseExtractionResponse(resp.Content)
	if err != nil {
		return Counts{}, fmt.Errorf("parse extraction response: %w: %w", llm.ErrUnavailable, err)
	}

	return e.Reconcile(ctx, entry.ID, entry.Date, batch)
}
