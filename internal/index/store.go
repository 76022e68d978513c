// Package index owns the durable listing index: a single sqlite file keyed
// by listing URL, with whole-record upserts, snapshot-based new-item
// detection, and closing-date expiry.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"jobwatch/internal/model"
)

// Store is the persistent listing index. It is owned by a single process;
// no cross-process write coordination is attempted beyond the advisory
// reindex lock at the CLI layer.
type Store struct {
	db *sql.DB
}

// Open opens (or lazily creates) the index database at dbPath and ensures
// the jobs table exists.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening index db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging index db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS jobs (
		url             TEXT PRIMARY KEY,
		title           TEXT,
		employer        TEXT,
		location        TEXT,
		salary          TEXT,
		date_posted     TEXT,
		closing_date    TEXT,
		contract_type   TEXT,
		working_pattern TEXT,
		description     TEXT,
		job_reference   TEXT,
		source          TEXT,
		staff_group     TEXT,
		indexed_at      TEXT DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating jobs table: %w", err)
	}

	return &Store{db: db}, nil
}

// URLSet returns the set of URLs currently present in the index.
func (s *Store) URLSet() (map[string]struct{}, error) {
	rows, err := s.db.Query("SELECT url FROM jobs")
	if err != nil {
		return nil, fmt.Errorf("reading url set: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning url: %w", err)
		}
		urls[u] = struct{}{}
	}
	return urls, rows.Err()
}

// All returns every indexed listing, newest posting first. An empty source
// returns listings from all sources.
func (s *Store) All(source string) ([]model.Listing, error) {
	query := "SELECT " + listingColumns + " FROM jobs ORDER BY date_posted DESC"
	args := []any{}
	if source != "" {
		query = "SELECT " + listingColumns + " FROM jobs WHERE source = ? ORDER BY date_posted DESC"
		args = append(args, source)
	}
	return s.queryListings(query, args...)
}

// Search filters listings with SQL LIKE over title, description, and
// employer, optionally constrained by location and source.
func (s *Store) Search(keyword, location, source string, limit int) ([]model.Listing, error) {
	var conditions []string
	var args []any

	if keyword != "" {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ? OR employer LIKE ?)")
		kw := "%" + keyword + "%"
		args = append(args, kw, kw, kw)
	}
	if location != "" {
		conditions = append(conditions, "location LIKE ?")
		args = append(args, "%"+location+"%")
	}
	if source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, source)
	}

	where := "1=1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}
	args = append(args, limit)

	query := "SELECT " + listingColumns + " FROM jobs WHERE " + where +
		" ORDER BY date_posted DESC LIMIT ?"
	return s.queryListings(query, args...)
}

// ByURL fetches a single listing, or ok=false if the URL is not indexed.
func (s *Store) ByURL(url string) (model.Listing, bool, error) {
	listings, err := s.queryListings(
		"SELECT "+listingColumns+" FROM jobs WHERE url = ?", url)
	if err != nil {
		return model.Listing{}, false, err
	}
	if len(listings) == 0 {
		return model.Listing{}, false, nil
	}
	return listings[0], true, nil
}

// Count returns the number of indexed listings, optionally for one source.
func (s *Store) Count(source string) (int, error) {
	query := "SELECT COUNT(*) FROM jobs"
	args := []any{}
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting jobs: %w", err)
	}
	return count, nil
}

// PurgeExpired removes every listing whose closing date is non-empty,
// parseable, and strictly before today. Listings with no closing date are
// kept indefinitely: an unknown closing date means "assume still open".
// Unparseable closing dates are likewise kept, since they cannot be compared.
func (s *Store) PurgeExpired(now time.Time) (int, error) {
	rows, err := s.db.Query("SELECT url, closing_date FROM jobs WHERE closing_date != ''")
	if err != nil {
		return 0, fmt.Errorf("reading closing dates: %w", err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var expired []string
	for rows.Next() {
		var url, closing string
		if err := rows.Scan(&url, &closing); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning closing date: %w", err)
		}
		if t, ok := model.ParseDate(closing); ok && t.Before(today) {
			expired = append(expired, url)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(expired) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting purge tx: %w", err)
	}
	for _, url := range expired {
		if _, err := tx.Exec("DELETE FROM jobs WHERE url = ?", url); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("purging %s: %w", url, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing purge: %w", err)
	}
	return len(expired), nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const listingColumns = `url, title, employer, location, salary, date_posted,
	closing_date, contract_type, working_pattern, description, job_reference,
	source, staff_group`

func (s *Store) queryListings(query string, args ...any) ([]model.Listing, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		err := rows.Scan(&l.URL, &l.Title, &l.Employer, &l.Location, &l.Salary,
			&l.DatePosted, &l.ClosingDate, &l.ContractType, &l.WorkingPattern,
			&l.Description, &l.JobReference, &l.Source, &l.StaffGroup)
		if err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
