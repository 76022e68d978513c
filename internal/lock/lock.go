// Package lock provides the advisory lock that keeps cron-triggered reindex
// runs from overlapping. The lock is an explicit {held_by, acquired_at}
// record behind a small storage interface, with a staleness policy so a
// crashed run cannot wedge future ones.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how old a lock record may be before it is considered
// abandoned and reclaimed.
const DefaultTTL = time.Hour

// Record identifies one held lock.
type Record struct {
	HeldBy     string    `json:"held_by"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Storage persists a single lock record.
type Storage interface {
	Read() (Record, bool, error)
	Write(Record) error
	Remove() error
}

// Stale reports whether a lock record is old enough to reclaim.
func Stale(rec Record, now time.Time, ttl time.Duration) bool {
	return now.Sub(rec.AcquiredAt) > ttl
}

// Lock is an advisory mutual-exclusion guard with staleness recovery.
type Lock struct {
	storage Storage
	ttl     time.Duration
	now     func() time.Time
	id      string
}

// New creates a lock over the given storage with the given staleness TTL.
func New(storage Storage, ttl time.Duration) *Lock {
	return &Lock{
		storage: storage,
		ttl:     ttl,
		now:     time.Now,
		id:      uuid.NewString(),
	}
}

// Acquire attempts to take the lock. It returns false (with no error) when
// another live holder has it: contention is a normal outcome, not a failure.
// A record older than the TTL is treated as abandoned and taken over.
func (l *Lock) Acquire() (bool, error) {
	rec, exists, err := l.storage.Read()
	if err != nil {
		return false, fmt.Errorf("reading lock: %w", err)
	}
	if exists && !Stale(rec, l.now(), l.ttl) {
		return false, nil
	}

	err = l.storage.Write(Record{HeldBy: l.id, AcquiredAt: l.now()})
	if err != nil {
		return false, fmt.Errorf("writing lock: %w", err)
	}
	return true, nil
}

// Release removes the lock if this instance still holds it. Releasing a lock
// that was reclaimed by someone else is a no-op.
func (l *Lock) Release() error {
	rec, exists, err := l.storage.Read()
	if err != nil {
		return fmt.Errorf("reading lock for release: %w", err)
	}
	if !exists || rec.HeldBy != l.id {
		return nil
	}
	if err := l.storage.Remove(); err != nil {
		return fmt.Errorf("removing lock: %w", err)
	}
	return nil
}

// FileStorage keeps the lock record as a small JSON file.
type FileStorage struct {
	path string
}

// NewFileStorage returns storage backed by the file at path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) Read() (Record, bool, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// An unreadable lock file is treated as a stale leftover.
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (f *FileStorage) Write(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

func (f *FileStorage) Remove() error {
	err := os.Remove(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
