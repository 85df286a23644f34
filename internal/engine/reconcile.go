package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mindfulhq/mindful/internal/store"
)

// Counts reports how many of each entity type an extraction merged.
type Counts struct {
	People   int `json:"people"`
	Events   int `json:"events"`
	Feelings int `json:"feelings"`
}

// Reconcile merges one extraction batch into the entity graph for a source
// entry. The whole batch lands in one transaction together with the entry's
// extracted_at stamp; a failure anywhere leaves both the graph and the entry
// untouched, so the entry either commits fully or stays retryable.
func (e *Engine) Reconcile(ctx context.Context, entryID string, entryDate time.Time, batch *ExtractionBatch) (Counts, error) {
	upserts, counts := planUpserts(batch, entryDate)
	if err := e.DB.ApplyExtraction(ctx, entryID, upserts); err != nil {
		return Counts{}, err
	}
	return counts, nil
}

// planUpserts turns an extraction batch into the ordered writes for a single
// transaction. People first, then events, then feelings. Mentions with empty
// names are dropped rather than failing the batch.
func planUpserts(batch *ExtractionBatch, entryDate time.Time) ([]store.EntityUpsert, Counts) {
	date := entryDate.Format("2006-01-02")
	var upserts []store.EntityUpsert
	var counts Counts

	for _, p := range batch.People {
		if strings.TrimSpace(p.Name) == "" {
			log.Warn("extraction: dropping person with empty name")
			continue
		}
		upserts = append(upserts, store.EntityUpsert{
			Kind:        store.KindPerson,
			Name:        p.Name,
			SeedContext: fmt.Sprintf("Relationship: %s", p.Relationship),
			ContextLine: contextLine(p.Context, date),
			Snippet:     p.Context,
			Sentiment:   sentimentScore(p.Sentiment),
		})
		counts.People++
	}

	for _, ev := range batch.Events {
		if strings.TrimSpace(ev.Name) == "" {
			log.Warn("extraction: dropping event with empty name")
			continue
		}
		upserts = append(upserts, store.EntityUpsert{
			Kind:        store.KindEvent,
			Name:        ev.Name,
			SeedContext: fmt.Sprintf("Category: %s", ev.Category),
			ContextLine: contextLine(ev.Context, date),
			Snippet:     ev.Context,
			Sentiment:   0.5,
		})
		counts.Events++
	}

	for _, f := range batch.Feelings {
		if strings.TrimSpace(f.Name) == "" {
			log.Warn("extraction: dropping feeling with empty name")
			continue
		}
		// Feelings accumulate interactions only; their context stays empty.
		upserts = append(upserts, store.EntityUpsert{
			Kind:      store.KindFeeling,
			Name:      f.Name,
			Snippet:   f.RootCause,
			Sentiment: clamp01(f.Intensity / 10.0),
		})
		counts.Feelings++
	}

	return upserts, counts
}

// contextLine formats the dated line appended to an existing entity's
// accumulated context. An empty mention context appends nothing.
func contextLine(context, date string) string {
	if context == "" {
		return ""
	}
	return fmt.Sprintf("\n- %s (%s)", context, date)
}

// sentimentScore maps an extraction sentiment label to a score. Matching is a
// substring check so "Very Positive" and "positive" both count.
func sentimentScore(sentiment string) float64 {
	s := strings.ToLower(sentiment)
	switch {
	case strings.Contains(s, "positive"):
		return 1.0
	case strings.Contains(s, "negative"):
		return 0.0
	default:
		return 0.5
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
