package database_test

import (
	"path/filepath"
	"testing"

	"scoredeck/internal/database"
	"scoredeck/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(t.TempDir(), "scoredeck.db"),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := newTestDB(t)

	entries := []database.ImportHistoryEntry{
		{ID: "a", Filename: "sp.csv", PlayStyle: models.PlayStyleSP, Status: "success",
			Result: models.ImportResult{NewSongs: 2, InsertedScores: 40}},
		{ID: "b", Filename: "dp.csv", PlayStyle: models.PlayStyleDP, Status: "error",
			Message: "malformed CSV"},
	}
	for _, e := range entries {
		if err := db.History.Record(e); err != nil {
			t.Fatalf("record returned error: %v", err)
		}
	}

	got, err := db.History.Recent(10)
	if err != nil {
		t.Fatalf("recent returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}

	byID := map[string]database.ImportHistoryEntry{}
	for _, e := range got {
		byID[e.ID] = e
	}
	if byID["a"].Result.InsertedScores != 40 {
		t.Fatalf("expected counts to round-trip, got %+v", byID["a"])
	}
	if byID["b"].Message != "malformed CSV" {
		t.Fatalf("expected failure message to round-trip, got %+v", byID["b"])
	}
	if byID["a"].CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestRecentHonoursLimit(t *testing.T) {
	db := newTestDB(t)
	for _, id := range []string{"a", "b", "c"} {
		err := db.History.Record(database.ImportHistoryEntry{
			ID: id, Filename: id + ".csv", PlayStyle: models.PlayStyleSP, Status: "success",
		})
		if err != nil {
			t.Fatalf("record returned error: %v", err)
		}
	}

	got, err := db.History.Recent(2)
	if err != nil {
		t.Fatalf("recent returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit of 2 entries, got %d", len(got))
	}
}
