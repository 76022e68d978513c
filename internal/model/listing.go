package model

import "context"

// Listing is the unified representation of a job advert from any board.
// Identity is the URL: two listings with the same URL are the same advert.
// All other fields are free-form text as scraped and may be empty.
type Listing struct {
	URL            string
	Title          string
	Employer       string
	Location       string
	Salary         string
	DatePosted     string // free-text date, not guaranteed parseable
	ClosingDate    string // free-text date, often absent
	ContractType   string
	WorkingPattern string
	Description    string
	JobReference   string
	Source         string // connector tag: "nhs", "dwp", "indeed"
	StaffGroup     string
}

// Valid reports whether the listing carries an identity. A listing with an
// empty URL is "absent" and must never be indexed or counted.
func (l Listing) Valid() bool {
	return l.URL != ""
}

// Connector produces the current set of listings for one job board.
// maxPages overrides the connector's configured page depth; 0 means use the
// configured depth, which may itself be "auto-detect all pages". Implementations
// tag every listing with their source, drop records without a URL, and
// de-duplicate by URL when fanning out across multiple keywords.
type Connector interface {
	Name() string
	Fetch(ctx context.Context, maxPages int) ([]Listing, error)
}

// Transport delivers one outbound notification message to the configured
// destination. A nil return means the message was accepted.
type Transport interface {
	Send(ctx context.Context, body string) error
}
