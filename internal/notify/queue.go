// Package notify holds the push-notification side of the pipeline: the
// durable pending queue written at reindex time, the bounded message
// batcher, the outbound transports, and the digest/alert message text.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jobwatch/internal/model"
)

// Entry is the denormalized snapshot of one newly indexed listing, appended
// to the pending queue for downstream consumers.
type Entry struct {
	Timestamp      string `json:"timestamp"`
	Title          string `json:"title"`
	Employer       string `json:"employer"`
	Location       string `json:"location"`
	Salary         string `json:"salary"`
	ContractType   string `json:"contract_type"`
	WorkingPattern string `json:"working_pattern"`
	URL            string `json:"url"`
	Source         string `json:"source"`
}

// Queue is a durable ordered list of pending notification entries backed by
// a single JSON array file. Writes are read-modify-write, not transactional;
// only one process is expected to touch the file at a time. A missing or
// unparseable file reads as an empty queue.
type Queue struct {
	path string
	now  func() time.Time
}

// NewQueue creates a queue backed by the file at path.
func NewQueue(path string) *Queue {
	return &Queue{path: path, now: time.Now}
}

// Enqueue appends one entry per listing, all stamped with the current time.
func (q *Queue) Enqueue(listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	entries := q.load()
	stamp := q.now().Format("2006-01-02T15:04:05")
	for _, l := range listings {
		entries = append(entries, Entry{
			Timestamp:      stamp,
			Title:          l.Title,
			Employer:       l.Employer,
			Location:       l.Location,
			Salary:         l.Salary,
			ContractType:   l.ContractType,
			WorkingPattern: l.WorkingPattern,
			URL:            l.URL,
			Source:         l.Source,
		})
	}
	return q.save(entries)
}

// Peek returns the pending entries without consuming them.
func (q *Queue) Peek() []Entry {
	return q.load()
}

// Drain returns the pending entries and resets the queue to empty.
func (q *Queue) Drain() ([]Entry, error) {
	entries := q.load()
	if err := q.save([]Entry{}); err != nil {
		return nil, err
	}
	return entries, nil
}

func (q *Queue) load() []Entry {
	data, err := os.ReadFile(q.path)
	if err != nil {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		// Corrupt queue file: treat as empty rather than failing the cycle.
		return nil
	}
	return entries
}

func (q *Queue) save(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("creating queue dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding queue: %w", err)
	}
	if err := os.WriteFile(q.path, data, 0o644); err != nil {
		return fmt.Errorf("writing queue: %w", err)
	}
	return nil
}
