package store

import (
	"context"
	"strings"
	"testing"
)

func TestApplyExtractionCreatesAndRecords(t *testing.T) {
	db := testDB(t)
	entry := seedEntry(t, db)

	err := db.ApplyExtraction(context.Background(), entry.ID, []EntityUpsert{
		{Kind: KindPerson, Name: "Sarah", SeedContext: "Relationship: friend",
			ContextLine: "\n- Had lunch (2026-04-12)", Snippet: "Had lunch", Sentiment: 1.0},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	e, err := db.GetEntityByName(KindPerson, "Sarah")
	if err != nil || e == nil {
		t.Fatalf("get entity: %v, %v", e, err)
	}
	// New entity: seed only, no context line appended.
	if e.AccumulatedContext != "Relationship: friend" {
		t.Errorf("AccumulatedContext = %q", e.AccumulatedContext)
	}

	interactions, err := db.GetEntryInteractions(entry.ID)
	if err != nil {
		t.Fatalf("get interactions: %v", err)
	}
	if len(interactions) != 1 || interactions[0].Snippet != "Had lunch" {
		t.Errorf("interactions = %+v", interactions)
	}

	// The stamp commits with the graph, never separately.
	got, err := db.GetEntry(entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.ExtractedAt == nil {
		t.Error("entry not stamped with the committed batch")
	}
}

func TestApplyExtractionAppendsToExisting(t *testing.T) {
	db := testDB(t)
	entry := seedEntry(t, db)

	first := []EntityUpsert{{Kind: KindPerson, Name: "Sarah",
		SeedContext: "Relationship: friend", ContextLine: "\n- first (2026-04-10)", Snippet: "a", Sentiment: 0.5}}
	if err := db.ApplyExtraction(context.Background(), entry.ID, first); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	second := []EntityUpsert{{Kind: KindPerson, Name: "sarah",
		SeedContext: "Relationship: sister", ContextLine: "\n- second (2026-04-12)", Snippet: "b", Sentiment: 0.5}}
	if err := db.ApplyExtraction(context.Background(), entry.ID, second); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	e, err := db.GetEntityByName(KindPerson, "Sarah")
	if err != nil || e == nil {
		t.Fatalf("get entity: %v, %v", e, err)
	}
	want := "Relationship: friend\n- second (2026-04-12)"
	if e.AccumulatedContext != want {
		t.Errorf("AccumulatedContext = %q, want %q", e.AccumulatedContext, want)
	}

	interactions, err := db.GetInteractions(e.ID)
	if err != nil {
		t.Fatalf("get interactions: %v", err)
	}
	if len(interactions) != 2 {
		t.Errorf("interactions = %d, want 2", len(interactions))
	}
}

func TestApplyExtractionAtomic(t *testing.T) {
	db := testDB(t)
	entry := seedEntry(t, db)

	// Second upsert violates the kind CHECK, so the whole batch must roll back.
	err := db.ApplyExtraction(context.Background(), entry.ID, []EntityUpsert{
		{Kind: KindPerson, Name: "Sarah", SeedContext: "Relationship: friend", Snippet: "a", Sentiment: 0.5},
		{Kind: "PLACE", Name: "Lisbon", Snippet: "b", Sentiment: 0.5},
	})
	if err == nil {
		t.Fatal("expected error from invalid kind")
	}

	count, err := db.CountEntities()
	if err != nil {
		t.Fatalf("count entities: %v", err)
	}
	if count != 0 {
		t.Errorf("entities = %d after failed batch, want 0", count)
	}
	count, err = db.CountInteractions()
	if err != nil {
		t.Fatalf("count interactions: %v", err)
	}
	if count != 0 {
		t.Errorf("interactions = %d after failed batch, want 0", count)
	}

	// The rollback covers the extracted_at stamp too: a failed batch leaves
	// the entry retryable, and a retry starts from a clean graph.
	got, err := db.GetEntry(entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.ExtractedAt != nil {
		t.Error("failed batch must not stamp the entry")
	}
}

func TestApplyExtractionEmptyBatch(t *testing.T) {
	db := testDB(t)
	entry := seedEntry(t, db)

	if err := db.ApplyExtraction(context.Background(), entry.ID, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	// Nothing extracted still counts as processed.
	got, err := db.GetEntry(entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.ExtractedAt == nil {
		t.Error("empty batch should still stamp the entry")
	}
}

func TestApplyExtractionLongContextAccumulates(t *testing.T) {
	db := testDB(t)
	entry := seedEntry(t, db)

	for i := 0; i < 5; i++ {
		err := db.ApplyExtraction(context.Background(), entry.ID, []EntityUpsert{
			{Kind: KindEvent, Name: "Standup", SeedContext: "Category: work",
				ContextLine: "\n- again (2026-04-12)", Snippet: "s", Sentiment: 0.5},
		})
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}

	e, err := db.GetEntityByName(KindEvent, "Standup")
	if err != nil || e == nil {
		t.Fatalf("get entity: %v, %v", e, err)
	}
	if got := strings.Count(e.AccumulatedContext, "- again"); got != 4 {
		t.Errorf("appended lines = %d, want 4 (first apply seeds only)", got)
	}
}
