package index

import (
	"fmt"

	"jobwatch/internal/model"
)

// IndexWithDiff upserts a batch of incoming listings and classifies each one
// as new or already seen against a snapshot of the index taken before the
// batch. The returned slices preserve input order; totalIndexed is the size
// of the incoming batch, not the index row count.
//
// Classification is snapshot-based: a URL absent from the pre-batch snapshot
// is new exactly once; if the same URL appears again later in the batch it
// counts as seen, and the last occurrence wins at persist time. Upserts are
// whole-record replaces except for indexed_at, which keeps its first-write
// value. The whole batch is written in one transaction; a storage failure
// aborts the batch with nothing committed.
//
// Note this is a different notion of "new" than the notification baseline in
// the bot package: this one tracks index freshness per reindex, the baseline
// tracks what has been announced. They are kept separate on purpose.
func (s *Store) IndexWithDiff(incoming []model.Listing) (newListings, seen []model.Listing, totalIndexed int, err error) {
	if len(incoming) == 0 {
		return nil, nil, 0, nil
	}

	snapshot, err := s.URLSet()
	if err != nil {
		return nil, nil, 0, err
	}

	inBatch := make(map[string]struct{})
	for _, l := range incoming {
		_, existed := snapshot[l.URL]
		_, dup := inBatch[l.URL]
		if existed || dup {
			seen = append(seen, l)
		} else {
			newListings = append(newListings, l)
			inBatch[l.URL] = struct{}{}
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("starting upsert tx: %w", err)
	}

	upsert := `INSERT INTO jobs (
		url, title, employer, location, salary, date_posted, closing_date,
		contract_type, working_pattern, description, job_reference, source, staff_group)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(url) DO UPDATE SET
		title = excluded.title,
		employer = excluded.employer,
		location = excluded.location,
		salary = excluded.salary,
		date_posted = excluded.date_posted,
		closing_date = excluded.closing_date,
		contract_type = excluded.contract_type,
		working_pattern = excluded.working_pattern,
		description = excluded.description,
		job_reference = excluded.job_reference,
		source = excluded.source,
		staff_group = excluded.staff_group`

	stmt, err := tx.Prepare(upsert)
	if err != nil {
		tx.Rollback()
		return nil, nil, 0, fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, l := range incoming {
		_, err := stmt.Exec(l.URL, l.Title, l.Employer, l.Location, l.Salary,
			l.DatePosted, l.ClosingDate, l.ContractType, l.WorkingPattern,
			l.Description, l.JobReference, l.Source, l.StaffGroup)
		if err != nil {
			tx.Rollback()
			return nil, nil, 0, fmt.Errorf("upserting %s: %w", l.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, 0, fmt.Errorf("committing upsert: %w", err)
	}
	return newListings, seen, len(incoming), nil
}
