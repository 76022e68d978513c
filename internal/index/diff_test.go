package index

import (
	"testing"

	"jobwatch/internal/model"
)

func urls(listings []model.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.URL
	}
	return out
}

func TestDiffEmptyBatch(t *testing.T) {
	s := newTestStore(t)

	newL, seen, total, err := s.IndexWithDiff(nil)
	if err != nil {
		t.Fatalf("IndexWithDiff: %v", err)
	}
	if len(newL) != 0 || len(seen) != 0 || total != 0 {
		t.Errorf("empty batch: got new=%d seen=%d total=%d", len(newL), len(seen), total)
	}
	if n, _ := s.Count(""); n != 0 {
		t.Errorf("store should be untouched, has %d rows", n)
	}
}

func TestDiffSnapshotClassification(t *testing.T) {
	s := newTestStore(t)

	// store = {A}
	if _, _, _, err := s.IndexWithDiff([]model.Listing{listing("A")}); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	// index [A, B, C] → NEW = [B, C], SEEN = [A], total = 3
	newL, seen, total, err := s.IndexWithDiff([]model.Listing{listing("A"), listing("B"), listing("C")})
	if err != nil {
		t.Fatalf("IndexWithDiff: %v", err)
	}
	if got := urls(newL); len(got) != 2 || got[0] != "B" || got[1] != "C" {
		t.Errorf("new = %v, want [B C]", got)
	}
	if got := urls(seen); len(got) != 1 || got[0] != "A" {
		t.Errorf("seen = %v, want [A]", got)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestDiffIdempotentReupsert(t *testing.T) {
	s := newTestStore(t)
	batch := []model.Listing{listing("u1"), listing("u2"), listing("u3")}

	if _, _, _, err := s.IndexWithDiff(batch); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	before, _ := s.Count("")

	newL, seen, total, err := s.IndexWithDiff(batch)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(newL) != 0 {
		t.Errorf("second pass new = %v, want none", urls(newL))
	}
	if len(seen) != 3 || total != 3 {
		t.Errorf("second pass seen=%d total=%d, want 3/3", len(seen), total)
	}
	after, _ := s.Count("")
	if before != after {
		t.Errorf("row count changed on re-upsert: %d → %d", before, after)
	}
}

func TestDiffTwoCycleScenario(t *testing.T) {
	s := newTestStore(t)

	newL, seen, total, err := s.IndexWithDiff([]model.Listing{listing("u1"), listing("u2")})
	if err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	if got := urls(newL); len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Errorf("cycle 1 new = %v, want [u1 u2]", got)
	}
	if len(seen) != 0 || total != 2 {
		t.Errorf("cycle 1 seen=%d total=%d, want 0/2", len(seen), total)
	}
	if n, _ := s.Count(""); n != 2 {
		t.Errorf("cycle 1 store size = %d, want 2", n)
	}

	newL, seen, total, err = s.IndexWithDiff([]model.Listing{listing("u1"), listing("u3")})
	if err != nil {
		t.Fatalf("cycle 2: %v", err)
	}
	if got := urls(newL); len(got) != 1 || got[0] != "u3" {
		t.Errorf("cycle 2 new = %v, want [u3]", got)
	}
	if got := urls(seen); len(got) != 1 || got[0] != "u1" {
		t.Errorf("cycle 2 seen = %v, want [u1]", got)
	}
	if total != 2 {
		t.Errorf("cycle 2 total = %d, want 2", total)
	}
	if n, _ := s.Count(""); n != 3 {
		t.Errorf("cycle 2 store size = %d, want 3", n)
	}
}

func TestDiffDuplicateURLInBatch(t *testing.T) {
	s := newTestStore(t)

	first := listing("u1")
	first.Title = "Early title"
	second := listing("u1")
	second.Title = "Late title"

	newL, seen, total, err := s.IndexWithDiff([]model.Listing{first, second})
	if err != nil {
		t.Fatalf("IndexWithDiff: %v", err)
	}
	if len(newL) != 1 || len(seen) != 1 || total != 2 {
		t.Errorf("dup batch: new=%d seen=%d total=%d, want 1/1/2", len(newL), len(seen), total)
	}

	// Last occurrence wins at persist time.
	got, ok, err := s.ByURL("u1")
	if err != nil || !ok {
		t.Fatalf("ByURL: ok=%v err=%v", ok, err)
	}
	if got.Title != "Late title" {
		t.Errorf("stored title = %q, want last write", got.Title)
	}
}

// Pins the current full-replace behavior: a re-scrape with blanked fields
// overwrites previously known data rather than merging field by field.
func TestUpsertReplacesWholeRecord(t *testing.T) {
	s := newTestStore(t)

	full := listing("u1")
	full.Salary = "£31,469 - £38,308"
	full.Description = "Acute ward nurse."
	if _, _, _, err := s.IndexWithDiff([]model.Listing{full}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	blanked := listing("u1")
	blanked.Salary = ""
	blanked.Description = ""
	if _, _, _, err := s.IndexWithDiff([]model.Listing{blanked}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, _, err := s.ByURL("u1")
	if err != nil {
		t.Fatalf("ByURL: %v", err)
	}
	if got.Salary != "" || got.Description != "" {
		t.Errorf("expected whole-record replace to blank fields, got %+v", got)
	}
}

func TestReupsertPreservesIndexedAt(t *testing.T) {
	s := newTestStore(t)

	if _, _, _, err := s.IndexWithDiff([]model.Listing{listing("u1")}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	var first string
	if err := s.db.QueryRow("SELECT indexed_at FROM jobs WHERE url = ?", "u1").Scan(&first); err != nil {
		t.Fatalf("reading indexed_at: %v", err)
	}

	// Backdate, re-upsert, and verify the first-write timestamp survives.
	if _, err := s.db.Exec("UPDATE jobs SET indexed_at = ? WHERE url = ?", "2020-01-01 00:00:00", "u1"); err != nil {
		t.Fatalf("backdating: %v", err)
	}
	if _, _, _, err := s.IndexWithDiff([]model.Listing{listing("u1")}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	var after string
	if err := s.db.QueryRow("SELECT indexed_at FROM jobs WHERE url = ?", "u1").Scan(&after); err != nil {
		t.Fatalf("reading indexed_at: %v", err)
	}
	if after != "2020-01-01 00:00:00" {
		t.Errorf("indexed_at changed on re-upsert: %q", after)
	}
}
