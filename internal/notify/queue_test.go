package notify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"jobwatch/internal/model"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q := NewQueue(filepath.Join(t.TempDir(), "new_jobs.json"))
	q.now = func() time.Time { return time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC) }
	return q
}

func sampleListings(urls ...string) []model.Listing {
	out := make([]model.Listing, len(urls))
	for i, u := range urls {
		out[i] = model.Listing{
			URL:      u,
			Title:    "Staff Nurse",
			Employer: "NHS Trust",
			Location: "London",
			Salary:   "£30,000",
			Source:   "nhs",
		}
	}
	return out
}

func TestQueueEnqueuePeekDrainScenario(t *testing.T) {
	q := newTestQueue(t)

	if got := q.Peek(); len(got) != 0 {
		t.Fatalf("fresh queue should be empty, got %d", len(got))
	}

	if err := q.Enqueue(sampleListings("u1", "u2")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if got := q.Peek(); len(got) != 2 {
		t.Fatalf("after first enqueue: got %d, want 2", len(got))
	}

	if err := q.Enqueue(sampleListings("u3")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if got := q.Peek(); len(got) != 3 {
		t.Fatalf("after second enqueue: got %d, want 3", len(got))
	}

	drained, err := q.Drain()
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(drained) != 3 {
		t.Fatalf("Drain returned %d, want 3", len(drained))
	}
	if drained[0].URL != "u1" || drained[2].URL != "u3" {
		t.Errorf("drain order wrong: %+v", drained)
	}
	if got := q.Peek(); len(got) != 0 {
		t.Errorf("queue should be empty after drain, got %d", len(got))
	}
}

func TestQueueEntrySnapshot(t *testing.T) {
	q := newTestQueue(t)
	if err := q.Enqueue(sampleListings("u1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	e := q.Peek()[0]
	if e.Timestamp != "2026-08-25T09:00:00" {
		t.Errorf("timestamp = %q", e.Timestamp)
	}
	if e.Title != "Staff Nurse" || e.Employer != "NHS Trust" || e.Source != "nhs" {
		t.Errorf("entry fields not snapshotted: %+v", e)
	}
}

func TestQueueCorruptFileReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new_jobs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	q := NewQueue(path)
	if got := q.Peek(); len(got) != 0 {
		t.Errorf("corrupt file should read as empty, got %d", len(got))
	}

	// And the queue self-heals on the next write.
	if err := q.Enqueue(sampleListings("u1")); err != nil {
		t.Fatalf("Enqueue over corrupt file: %v", err)
	}
	if got := q.Peek(); len(got) != 1 {
		t.Errorf("after heal: got %d, want 1", len(got))
	}
}

func TestQueueMissingFileReadsEmpty(t *testing.T) {
	q := NewQueue(filepath.Join(t.TempDir(), "does", "not", "exist.json"))
	if got := q.Peek(); got != nil {
		t.Errorf("missing file should read as empty, got %v", got)
	}
}

func TestQueueEnqueueNothingIsNoop(t *testing.T) {
	q := newTestQueue(t)
	if err := q.Enqueue(nil); err != nil {
		t.Fatalf("Enqueue(nil): %v", err)
	}
	if _, err := os.Stat(q.path); !os.IsNotExist(err) {
		t.Error("empty enqueue should not create the file")
	}
}
